// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package anthropic translates gateway tools to and from the Anthropic
// messages API.
package anthropic

import (
	anthropicsdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/sigil-dev/sparqlgate/internal/provider"
)

// ConvertTools transforms tool definitions into Anthropic tool params.
func ConvertTools(tools []provider.ToolDefinition) []anthropicsdk.ToolUnionParam {
	result := make([]anthropicsdk.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		result = append(result, anthropicsdk.ToolUnionParam{
			OfTool: &anthropicsdk.ToolParam{
				Name:        t.Name,
				Description: anthropicsdk.Opt(t.Description),
				InputSchema: inputSchema(t.InputSchema),
			},
		})
	}
	return result
}

// Export is ConvertTools as a provider.Exporter.
func Export(tools []provider.ToolDefinition) any { return ConvertTools(tools) }

func inputSchema(raw map[string]any) anthropicsdk.ToolInputSchemaParam {
	schema := anthropicsdk.ToolInputSchemaParam{}
	if props, ok := raw["properties"]; ok {
		schema.Properties = props
	}
	schema.Required = provider.RequiredFields(raw)
	return schema
}

// ToolCalls extracts tool_use blocks from a model response.
func ToolCalls(msg *anthropicsdk.Message) []provider.ToolCall {
	var calls []provider.ToolCall
	for _, block := range msg.Content {
		if block.Type != "tool_use" {
			continue
		}
		calls = append(calls, provider.ToolCall{
			ID:        block.ID,
			Name:      block.Name,
			Arguments: string(block.Input),
		})
	}
	return calls
}

// ToolResultMessage answers every call in one user message.
func ToolResultMessage(results []provider.ToolResult) anthropicsdk.MessageParam {
	blocks := make([]anthropicsdk.ContentBlockParamUnion, 0, len(results))
	for _, r := range results {
		blocks = append(blocks, anthropicsdk.NewToolResultBlock(r.CallID, r.Content, r.IsError))
	}
	return anthropicsdk.NewUserMessage(blocks...)
}
