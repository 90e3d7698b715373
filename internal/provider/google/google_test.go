// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package google_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/sigil-dev/sparqlgate/internal/provider"
	"github.com/sigil-dev/sparqlgate/internal/provider/google"
)

func TestConvertTools(t *testing.T) {
	schema := map[string]any{"type": "object"}
	got := google.ConvertTools([]provider.ToolDefinition{
		{Name: "sparql_query", Description: "query", InputSchema: schema},
		{Name: "now", Description: "clock", InputSchema: schema},
	})

	require.Len(t, got, 1, "all declarations share one tool")
	decls := got[0].FunctionDeclarations
	require.Len(t, decls, 2)
	assert.Equal(t, "sparql_query", decls[0].Name)
	assert.Equal(t, "clock", decls[1].Description)
	assert.Equal(t, schema, decls[0].ParametersJsonSchema)
}

func TestToolCalls(t *testing.T) {
	content := &genai.Content{
		Role: "model",
		Parts: []*genai.Part{
			{Text: "thinking"},
			{FunctionCall: &genai.FunctionCall{ID: "fc1", Name: "sparql_query", Args: map[string]any{"query": "ASK {}"}}},
			{FunctionCall: &genai.FunctionCall{Name: "now"}},
		},
	}

	calls := google.ToolCalls(content)
	require.Len(t, calls, 2)
	assert.Equal(t, "fc1", calls[0].ID)
	assert.JSONEq(t, `{"query":"ASK {}"}`, calls[0].Arguments)

	assert.Equal(t, "now", calls[1].ID, "missing id falls back to the name")
	assert.Equal(t, "{}", calls[1].Arguments)
}

func TestToolResponse(t *testing.T) {
	content := google.ToolResponse([]provider.ToolResult{
		{Name: "sparql_query", Content: "rows"},
		{Name: "now", Content: "boom", IsError: true},
	})

	assert.Equal(t, "user", content.Role)
	require.Len(t, content.Parts, 2)
	assert.Equal(t, map[string]any{"result": "rows"}, content.Parts[0].FunctionResponse.Response)
	assert.Equal(t, map[string]any{"error": "boom"}, content.Parts[1].FunctionResponse.Response)
}
