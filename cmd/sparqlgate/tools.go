// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sigil-dev/sparqlgate/internal/provider"
	anthropicprov "github.com/sigil-dev/sparqlgate/internal/provider/anthropic"
	googleprov "github.com/sigil-dev/sparqlgate/internal/provider/google"
	openaiprov "github.com/sigil-dev/sparqlgate/internal/provider/openai"
)

// exporters converts tool definitions for each supported LLM SDK.
var exporters = provider.Exporters{
	provider.OpenAI:    openaiprov.Export,
	provider.Anthropic: anthropicprov.Export,
	provider.Google:    googleprov.Export,
}

func newToolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Inspect the agent tools",
		Long:  "List the tools built from the configuration, or export their definitions for an LLM SDK.",
	}

	cmd.AddCommand(newToolsListCmd(), newToolsExportCmd())

	return cmd
}

func newToolsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the configured tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			defs, err := toolDefinitions(cmd)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(defs))
			for _, d := range defs {
				rows = append(rows, []string{d.Name, firstSentence(d.Description)})
			}
			_, err = io.WriteString(cmd.OutOrStdout(), renderTable([]string{"TOOL", "DESCRIPTION"}, rows))
			return err
		},
	}
}

func newToolsExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Print tool definitions as JSON request parameters for an LLM SDK",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			name, _ := cmd.Flags().GetString("provider")
			defs, err := toolDefinitions(cmd)
			if err != nil {
				return err
			}
			return exportTools(cmd.OutOrStdout(), provider.Name(name), defs)
		},
	}

	cmd.Flags().String("provider", string(provider.OpenAI),
		fmt.Sprintf("target SDK: %s", strings.Join(exporters.Names(), ", ")))

	return cmd
}

func toolDefinitions(cmd *cobra.Command) ([]provider.ToolDefinition, error) {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	gw, err := WireGateway(cmd.Context(), cfg, true)
	if err != nil {
		return nil, err
	}
	defs := gw.Toolkit.Definitions()
	return defs, gw.Close()
}

func exportTools(w io.Writer, name provider.Name, defs []provider.ToolDefinition) error {
	params, err := exporters.Export(name, defs)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(params)
}

func firstSentence(s string) string {
	if i := strings.Index(s, ". "); i >= 0 {
		return s[:i+1]
	}
	return strings.TrimSpace(s)
}
