// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sigil-dev/sparqlgate/internal/config"
	sigilerr "github.com/sigil-dev/sparqlgate/pkg/errors"
)

// NewRootCmd creates the root sparqlgate command with all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "sparqlgate",
		Short:         "SPARQL validation and normalization gateway for GraphDB",
		Long:          "sparqlgate checks, repairs and runs SPARQL queries written by LLM agents against a GraphDB repository.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level, _ := cmd.Flags().GetString("log-level")
			if level == "" {
				level = "info"
			}
			return setupLogging(cmd.ErrOrStderr(), level, "text")
		},
	}

	root.PersistentFlags().StringP("config", "c", "", "path to config file (default ~/.config/sparqlgate/sparqlgate.yaml)")
	root.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (overrides logging.level)")

	root.AddCommand(
		newServeCmd(),
		newMCPCmd(),
		newQueryCmd(),
		newNamespacesCmd(),
		newStatusCmd(),
		newDoctorCmd(),
		newInitCmd(),
		newSecretCmd(),
		newLogCmd(),
		newToolsCmd(),
		newVersionCmd(),
	)

	return root
}

// loadConfig reads the configuration selected by --config and applies its
// logging settings. It returns the config file used, "" when none.
func loadConfig(cmd *cobra.Command) (*config.Config, string, error) {
	explicit, _ := cmd.Flags().GetString("config")
	path := config.ResolvePath(explicit)

	cfg, err := config.LoadWithSecrets(path, secretStoreFactory())
	if err != nil {
		return nil, path, err
	}

	level := cfg.Logging.Level
	if override, _ := cmd.Flags().GetString("log-level"); override != "" {
		level = override
	}
	if err := setupLogging(cmd.ErrOrStderr(), level, cfg.Logging.Format); err != nil {
		return nil, path, err
	}
	config.WarnInsecurePermissions(path)
	if path != "" {
		slog.Debug("config loaded", "path", path)
	}
	return cfg, path, nil
}

// setupLogging installs the default slog logger. Logs always go to w
// (stderr) so that stdout stays free for results and the MCP protocol.
func setupLogging(w io.Writer, level, format string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return sigilerr.Errorf(sigilerr.CodeCLIInputInvalid, "invalid log level %q", level)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	switch strings.ToLower(format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	case "", "text":
		handler = slog.NewTextHandler(w, opts)
	default:
		return sigilerr.Errorf(sigilerr.CodeCLIInputInvalid, "invalid log format %q", format)
	}
	slog.SetDefault(slog.New(handler))
	return nil
}
