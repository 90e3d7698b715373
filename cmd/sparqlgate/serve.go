// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sigil-dev/sparqlgate/internal/server"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP gateway",
		Long:  "Load configuration, connect to GraphDB, build the agent tools and serve the HTTP API until interrupted.",
		RunE:  runServe,
	}

	cmd.Flags().String("listen", "", "override listen address (host:port)")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
		cfg.Networking.Listen = listen
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gw, err := WireGateway(ctx, cfg, true)
	if err != nil {
		return err
	}

	srv, err := server.New(serverConfig(cfg))
	if err != nil {
		return closeAll(gw, err)
	}
	svc, err := server.NewServices(gw.Graph, gw.Toolkit, gw.QueryLog,
		server.WithDefaultValidation(cfg.Validation.Enabled))
	if err != nil {
		return closeAll(gw, err)
	}
	srv.RegisterServices(svc)

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "sparqlgate %s serving %s on %s\n", version, gw.Graph.Repository(), cfg.Networking.Listen)
	slog.Info("http server starting", "listen", cfg.Networking.Listen, "tools", gw.Toolkit.Names())

	err = srv.Start(ctx)
	if err == nil {
		slog.Info("http server stopped")
	}
	return closeAll(gw, err)
}
