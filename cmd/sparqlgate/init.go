// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sigil-dev/sparqlgate/internal/config"
)

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Long: `Write the commented default configuration to ~/.config/sparqlgate/sparqlgate.yaml,
or to the path given with --config. An existing file is kept unless --force is set.`,
		Args: cobra.NoArgs,
		RunE: runInit,
	}

	cmd.Flags().Bool("force", false, "overwrite an existing config file")

	return cmd
}

func runInit(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		var err error
		if path, err = config.DefaultConfigPath(); err != nil {
			return err
		}
	}
	force, _ := cmd.Flags().GetBool("force")

	written, err := config.WriteDefault(path, force)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !written {
		_, _ = fmt.Fprintf(out, "%s already exists (use --force to overwrite)\n", path)
		return nil
	}
	_, _ = fmt.Fprintln(out, successStyle.Render("Wrote "+path))
	_, _ = fmt.Fprintln(out, dimStyle.Render("Set graphdb.repository_id, then run 'sparqlgate doctor'."))
	return nil
}
