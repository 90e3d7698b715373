// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sigil-dev/sparqlgate/internal/graphdb"
	"github.com/sigil-dev/sparqlgate/internal/sparql"
	sigilerr "github.com/sigil-dev/sparqlgate/pkg/errors"
)

func newNamespacesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "namespaces",
		Short: "List the repository's prefix declarations",
		Long:  "Print the prefix to namespace mapping used to normalize queries, as loaded from GraphDB.",
		Args:  cobra.NoArgs,
		RunE:  runNamespaces,
	}

	cmd.Flags().StringP("output", "o", "table", "output format: table, yaml or json")

	return cmd
}

func runNamespaces(cmd *cobra.Command, _ []string) error {
	output, _ := cmd.Flags().GetString("output")
	if output != "table" && output != "yaml" && output != "json" {
		return sigilerr.Errorf(sigilerr.CodeCLIInputInvalid, "unknown output format %q (want table, yaml or json)", output)
	}

	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	g, err := graphdb.New(cmd.Context(), graphDBConfig(cfg))
	if err != nil {
		return err
	}

	return writeNamespaces(cmd.OutOrStdout(), g.Registry().Namespaces(), output)
}

func writeNamespaces(w io.Writer, namespaces []sparql.Namespace, output string) error {
	switch output {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(namespaces)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(namespaces); err != nil {
			return err
		}
		return enc.Close()
	default:
		rows := make([][]string, 0, len(namespaces))
		for _, ns := range namespaces {
			rows = append(rows, []string{ns.Prefix, ns.IRI})
		}
		_, err := io.WriteString(w, renderTable([]string{"PREFIX", "NAMESPACE"}, rows))
		return err
	}
}
