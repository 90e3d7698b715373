// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sigil-dev/sparqlgate/internal/config"
	"github.com/sigil-dev/sparqlgate/internal/server"
	sigilerr "github.com/sigil-dev/sparqlgate/pkg/errors"
)

// gatewayStatus is the body of GET /api/v1/status.
type gatewayStatus struct {
	Status  string               `json:"status"`
	Version string               `json:"version"`
	Tools   []string             `json:"tools"`
	GraphDB server.GraphDBStatus `json:"graphdb"`
}

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show gateway status",
		Long:  "Query a running gateway's status endpoint and display its GraphDB connection and tools.",
		Args:  cobra.NoArgs,
		RunE:  runStatus,
	}

	cmd.Flags().String("address", "", "gateway address to check (default networking.listen)")

	return cmd
}

func runStatus(cmd *cobra.Command, _ []string) error {
	addr := gatewayAddress(cmd)
	out := cmd.OutOrStdout()

	var st gatewayStatus
	if err := newGatewayClient(addr).getJSON(cmd.Context(), "/api/v1/status", &st); err != nil {
		if sigilerr.HasCode(err, sigilerr.CodeCLIGatewayNotRunning) {
			_, _ = fmt.Fprintf(out, "Gateway at %s is not running (connection refused)\n", addr)
			return nil
		}
		_, _ = fmt.Fprintf(out, "Gateway at %s: %s\n", addr, errorStyle.Render(err.Error()))
		return nil
	}

	writeStatus(out, addr, &st)
	return nil
}

// defaultGatewayAddress matches the networking.listen default.
const defaultGatewayAddress = "127.0.0.1:8080"

// gatewayAddress returns --address, else the configured listen address, else
// the default. A config that fails to load is not an error here.
func gatewayAddress(cmd *cobra.Command) string {
	if addr, _ := cmd.Flags().GetString("address"); addr != "" {
		return addr
	}
	explicit, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadWithSecrets(config.ResolvePath(explicit), secretStoreFactory())
	if err != nil {
		return defaultGatewayAddress
	}
	return cfg.Networking.Listen
}

func writeStatus(w io.Writer, addr string, st *gatewayStatus) {
	g := st.GraphDB
	fts := "unknown"
	if g.FTSEnabled != nil {
		fts = "disabled"
		if *g.FTSEnabled {
			fts = "enabled"
		}
	}

	_, _ = fmt.Fprintln(w, titleStyle.Render("sparqlgate "+st.Version+" at "+addr))
	lines := []struct{ name, value string }{
		{"Status", statusStyle(st.Status).Render(st.Status)},
		{"Repository", g.Repository},
		{"GraphDB", g.Version},
		{"Namespaces", strconv.Itoa(g.Namespaces)},
		{"Full-text search", statusStyle(fts).Render(fts)},
		{"Autocomplete", statusStyle(g.Autocomplete).Render(g.Autocomplete)},
		{"RDF rank", statusStyle(g.RDFRank).Render(g.RDFRank)},
		{"Tools", strings.Join(st.Tools, ", ")},
	}
	for _, l := range lines {
		_, _ = fmt.Fprintf(w, "%-20s %s\n", l.name+":", l.value)
	}
	if g.Health.LastError != "" {
		_, _ = fmt.Fprintf(w, "%-20s %s\n", "Last error:", errorStyle.Render(g.Health.LastError))
	}
	for _, e := range g.Errors {
		_, _ = fmt.Fprintf(w, "%-20s %s\n", "Probe failed:", dimStyle.Render(e))
	}
}
