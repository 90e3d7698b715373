// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sigil-dev/sparqlgate/internal/mcp"
)

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the agent tools over MCP on stdio",
		Long:  "Expose every configured tool to an MCP client over stdin and stdout. Logs go to stderr.",
		RunE:  runMCP,
	}
}

func runMCP(cmd *cobra.Command, _ []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gw, err := WireGateway(ctx, cfg, true)
	if err != nil {
		return err
	}

	srv, err := mcp.NewServer(gw.Toolkit, version)
	if err != nil {
		return closeAll(gw, err)
	}

	slog.Info("mcp server listening on stdio", "tools", gw.Toolkit.Names())
	return closeAll(gw, srv.Serve(ctx, cmd.InOrStdin(), cmd.OutOrStdout()))
}
