// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package provider holds the provider-neutral tool types exchanged with LLM
// agents. The subpackages translate them to and from each vendor SDK.
package provider

import (
	"maps"
	"slices"

	sigilerr "github.com/sigil-dev/sparqlgate/pkg/errors"
)

// Name identifies an LLM provider SDK.
type Name string

const (
	OpenAI    Name = "openai"
	Anthropic Name = "anthropic"
	Google    Name = "google"
)

// ToolDefinition describes a tool available to the agent. InputSchema is a
// JSON Schema object.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // JSON object
}

// ToolResult is the answer to one ToolCall.
type ToolResult struct {
	CallID  string `json:"call_id"`
	Name    string `json:"name"`
	Content string `json:"content"`
	IsError bool   `json:"is_error,omitempty"`
}

// Exporter converts tool definitions to a provider's request parameters.
type Exporter func(tools []ToolDefinition) any

// Exporters maps provider names to exporters.
type Exporters map[Name]Exporter

// Export converts tools for the named provider.
func (e Exporters) Export(name Name, tools []ToolDefinition) (any, error) {
	fn, ok := e[name]
	if !ok {
		return nil, sigilerr.New(sigilerr.CodeProviderNameInvalid, "unknown provider "+string(name),
			sigilerr.Field("provider", string(name)),
			sigilerr.Field("supported", e.Names()),
		)
	}
	return fn(tools), nil
}

// Names returns the registered provider names, sorted.
func (e Exporters) Names() []string {
	names := make([]string, 0, len(e))
	for _, n := range slices.Sorted(maps.Keys(e)) {
		names = append(names, string(n))
	}
	return names
}

// RequiredFields returns the "required" list of a JSON Schema, accepting both
// []string and the []any produced by decoding JSON.
func RequiredFields(schema map[string]any) []string {
	switch req := schema["required"].(type) {
	case []string:
		return req
	case []any:
		out := make([]string, 0, len(req))
		for _, v := range req {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
