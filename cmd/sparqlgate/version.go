// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	sigilerr "github.com/sigil-dev/sparqlgate/pkg/errors"
)

// Build-time variables set via ldflags.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

type buildInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
	Go      string `json:"go"`
}

func currentBuild() buildInfo {
	return buildInfo{Version: version, Commit: commit, Date: date, Go: runtime.Version()}
}

func newVersionCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print sparqlgate version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := currentBuild()
			switch output {
			case "text":
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "sparqlgate %s (commit: %s, built: %s)\n", info.Version, info.Commit, info.Date)
				return err
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			default:
				return sigilerr.Errorf(sigilerr.CodeCLIInputInvalid, "unknown output format %q (want text or json)", output)
			}
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text or json")
	return cmd
}
