// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package google translates gateway tools to and from the Gemini API.
package google

import (
	"encoding/json"

	"google.golang.org/genai"

	"github.com/sigil-dev/sparqlgate/internal/provider"
)

// ConvertTools transforms tool definitions into one genai.Tool holding a
// function declaration per tool.
func ConvertTools(tools []provider.ToolDefinition) []*genai.Tool {
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:                 t.Name,
			Description:          t.Description,
			ParametersJsonSchema: t.InputSchema,
		})
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

// Export is ConvertTools as a provider.Exporter.
func Export(tools []provider.ToolDefinition) any { return ConvertTools(tools) }

// ToolCalls extracts function calls from a model response. Gemini may omit
// call IDs, in which case the function name is used.
func ToolCalls(content *genai.Content) []provider.ToolCall {
	var calls []provider.ToolCall
	for _, part := range content.Parts {
		fc := part.FunctionCall
		if fc == nil {
			continue
		}
		args, err := json.Marshal(fc.Args)
		if err != nil || fc.Args == nil {
			args = []byte("{}")
		}
		id := fc.ID
		if id == "" {
			id = fc.Name
		}
		calls = append(calls, provider.ToolCall{ID: id, Name: fc.Name, Arguments: string(args)})
	}
	return calls
}

// ToolResponse answers every call in one user content.
func ToolResponse(results []provider.ToolResult) *genai.Content {
	parts := make([]*genai.Part, 0, len(results))
	for _, r := range results {
		key := "result"
		if r.IsError {
			key = "error"
		}
		parts = append(parts, &genai.Part{
			FunctionResponse: &genai.FunctionResponse{
				Name:     r.Name,
				Response: map[string]any{key: r.Content},
			},
		})
	}
	return &genai.Content{Role: "user", Parts: parts}
}
