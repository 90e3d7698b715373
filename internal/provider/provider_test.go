// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package provider_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigil-dev/sparqlgate/internal/provider"
	sigilerr "github.com/sigil-dev/sparqlgate/pkg/errors"
)

func TestExporters_Export(t *testing.T) {
	tools := []provider.ToolDefinition{{Name: "now"}}
	exporters := provider.Exporters{
		provider.OpenAI: func(in []provider.ToolDefinition) any { return len(in) },
		provider.Google: func(in []provider.ToolDefinition) any { return "google" },
	}

	out, err := exporters.Export(provider.OpenAI, tools)
	require.NoError(t, err)
	assert.Equal(t, 1, out)

	_, err = exporters.Export(provider.Anthropic, tools)
	require.Error(t, err)
	assert.True(t, sigilerr.HasCode(err, sigilerr.CodeProviderNameInvalid))
	assert.True(t, sigilerr.IsInvalidInput(err))
	assert.Equal(t, []string{"google", "openai"}, sigilerr.StringsField(err, "supported"))
}

func TestExporters_Names(t *testing.T) {
	assert.Empty(t, provider.Exporters{}.Names())
	names := provider.Exporters{
		provider.Google:    nil,
		provider.Anthropic: nil,
		provider.OpenAI:    nil,
	}.Names()
	assert.Equal(t, []string{"anthropic", "google", "openai"}, names)
}

func TestRequiredFields(t *testing.T) {
	tests := []struct {
		name   string
		schema map[string]any
		want   []string
	}{
		{name: "string slice", schema: map[string]any{"required": []string{"a", "b"}}, want: []string{"a", "b"}},
		{name: "decoded", schema: map[string]any{"required": []any{"a", 1, "c"}}, want: []string{"a", "c"}},
		{name: "missing", schema: map[string]any{}, want: nil},
		{name: "wrong type", schema: map[string]any{"required": "a"}, want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, provider.RequiredFields(tt.schema))
		})
	}
}
