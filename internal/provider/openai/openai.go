// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package openai translates gateway tools to and from the OpenAI chat
// completions API.
package openai

import (
	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/sigil-dev/sparqlgate/internal/provider"
)

// ConvertTools transforms tool definitions into OpenAI tool params.
func ConvertTools(tools []provider.ToolDefinition) []openaisdk.ChatCompletionToolParam {
	result := make([]openaisdk.ChatCompletionToolParam, 0, len(tools))
	for _, t := range tools {
		result = append(result, openaisdk.ChatCompletionToolParam{
			Function: shared.FunctionDefinitionParam{
				Name:        t.Name,
				Description: param.NewOpt(t.Description),
				Parameters:  shared.FunctionParameters(t.InputSchema),
			},
		})
	}
	return result
}

// Export is ConvertTools as a provider.Exporter.
func Export(tools []provider.ToolDefinition) any { return ConvertTools(tools) }

// ToolCalls extracts the tool invocations from an assistant message.
func ToolCalls(msg openaisdk.ChatCompletionMessage) []provider.ToolCall {
	calls := make([]provider.ToolCall, 0, len(msg.ToolCalls))
	for _, tc := range msg.ToolCalls {
		calls = append(calls, provider.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return calls
}

// ToolMessages turns tool results into tool role messages.
func ToolMessages(results []provider.ToolResult) []openaisdk.ChatCompletionMessageParamUnion {
	msgs := make([]openaisdk.ChatCompletionMessageParamUnion, 0, len(results))
	for _, r := range results {
		msgs = append(msgs, openaisdk.ToolMessage(r.Content, r.CallID))
	}
	return msgs
}
