// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sigil-dev/sparqlgate/internal/store"
	sigilerr "github.com/sigil-dev/sparqlgate/pkg/errors"
)

const logQueryWidth = 60

func newLogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show audited queries",
		Long:  "List queries recorded in the audit log, newest first.",
		Args:  cobra.NoArgs,
		RunE:  runLog,
	}

	cmd.Flags().String("source", "", "filter by source: api, mcp, cli or tool")
	cmd.Flags().String("tool", "", "filter by tool name")
	cmd.Flags().String("outcome", "", `filter by outcome: "ok" or an error code`)
	cmd.Flags().Duration("since", 0, "only entries newer than this, e.g. 1h")
	cmd.Flags().Int("limit", 20, "maximum number of entries")
	cmd.Flags().StringP("output", "o", "table", "output format: table or json")

	return cmd
}

func runLog(cmd *cobra.Command, _ []string) error {
	filter, err := logFilter(cmd)
	if err != nil {
		return err
	}
	output, _ := cmd.Flags().GetString("output")
	if output != "table" && output != "json" {
		return sigilerr.Errorf(sigilerr.CodeCLIInputInvalid, "unknown output format %q (want table or json)", output)
	}

	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	queryLog, err := store.NewQueryLogStore(storageConfig(cfg))
	if err != nil {
		return err
	}
	defer func() { _ = queryLog.Close() }()

	entries, err := queryLog.Query(cmd.Context(), filter)
	if err != nil {
		return err
	}
	return writeLog(cmd.OutOrStdout(), entries, output)
}

func logFilter(cmd *cobra.Command) (store.QueryLogFilter, error) {
	var f store.QueryLogFilter
	source, _ := cmd.Flags().GetString("source")
	f.Source = store.Source(source)
	if source != "" && !f.Source.Valid() {
		return f, sigilerr.Errorf(sigilerr.CodeCLIInputInvalid, "unknown source %q (want api, mcp, cli or tool)", source)
	}
	f.Tool, _ = cmd.Flags().GetString("tool")
	f.Outcome, _ = cmd.Flags().GetString("outcome")
	if since, _ := cmd.Flags().GetDuration("since"); since > 0 {
		f.From = time.Now().Add(-since)
	}
	f.Limit, _ = cmd.Flags().GetInt("limit")
	if f.Limit < 1 {
		return f, sigilerr.Errorf(sigilerr.CodeCLIInputInvalid, "limit must be at least 1, got %d", f.Limit)
	}
	return f, nil
}

func writeLog(w io.Writer, entries []*store.QueryLogEntry, output string) error {
	if output == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if entries == nil {
			entries = []*store.QueryLogEntry{}
		}
		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		_, err := io.WriteString(w, "No queries recorded.\n")
		return err
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		outcome := e.Outcome
		if outcome == store.OutcomeOK {
			outcome = successStyle.Render(outcome)
		} else {
			outcome = errorStyle.Render(outcome)
		}
		rows = append(rows, []string{
			e.Timestamp.Local().Format(time.DateTime),
			string(e.Source),
			e.Tool,
			outcome,
			e.Duration.Round(time.Millisecond).String(),
			oneLine(e.RawQuery, logQueryWidth),
		})
	}
	_, err := io.WriteString(w, renderTable([]string{"TIME", "SOURCE", "TOOL", "OUTCOME", "DURATION", "QUERY"}, rows))
	return err
}

// oneLine collapses whitespace and cuts s to width runes.
func oneLine(s string, width int) string {
	runes := []rune(strings.Join(strings.Fields(s), " "))
	if len(runes) <= width {
		return string(runes)
	}
	return string(runes[:width-1]) + "…"
}
