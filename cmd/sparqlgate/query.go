// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sigil-dev/sparqlgate/internal/graphdb"
	"github.com/sigil-dev/sparqlgate/internal/store"
	sigilerr "github.com/sigil-dev/sparqlgate/pkg/errors"
)

func newQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query [QUERY | -]",
		Short: "Validate and run a SPARQL query",
		Long: `Validate, normalize and execute one SPARQL query against the configured repository.
The query is read from the argument, or from stdin when the argument is "-" or missing.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runQuery,
	}

	cmd.Flags().String("format", "", "result format (json, xml, csv, tsv, turtle, n3, rdf+xml, json-ld)")
	cmd.Flags().Bool("no-validate", false, "skip prefix and IRI validation")
	cmd.Flags().Bool("normalize-only", false, "print the normalized query without executing it")
	cmd.Flags().Bool("show-query", false, "print the executed query to stderr")
	cmd.Flags().StringP("output", "o", "raw", "output style: raw or table (SELECT/ASK with json results)")

	return cmd
}

func runQuery(cmd *cobra.Command, args []string) error {
	text, err := readQuery(cmd, args)
	if err != nil {
		return err
	}
	output, _ := cmd.Flags().GetString("output")
	if output != "raw" && output != "table" {
		return sigilerr.Errorf(sigilerr.CodeCLIInputInvalid, "unknown output style %q (want raw or table)", output)
	}
	format, _ := cmd.Flags().GetString("format")
	if format != "" {
		if _, ok := graphdb.ParseFormat(format); !ok {
			return sigilerr.Errorf(sigilerr.CodeCLIInputInvalid, "unknown result format %q", format)
		}
	}

	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	gw, err := WireGateway(cmd.Context(), cfg, false)
	if err != nil {
		return err
	}

	if only, _ := cmd.Flags().GetBool("normalize-only"); only {
		return closeAll(gw, printNormalized(cmd, gw.Graph, text))
	}

	validate := cfg.Validation.Enabled
	if noValidate, _ := cmd.Flags().GetBool("no-validate"); noValidate {
		validate = false
	}

	start := time.Now()
	res, err := gw.Graph.Eval(cmd.Context(), text, graphdb.WithFormat(format), graphdb.WithValidation(validate))
	auditCLIQuery(cmd.Context(), gw.QueryLog, text, res, time.Since(start), err)
	if err != nil {
		return closeAll(gw, err)
	}

	if show, _ := cmd.Flags().GetBool("show-query"); show {
		_, _ = fmt.Fprintln(cmd.ErrOrStderr(), dimStyle.Render(res.Query))
	}
	return closeAll(gw, printResult(cmd.OutOrStdout(), res, output))
}

func readQuery(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		return args[0], nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", sigilerr.Wrap(err, sigilerr.CodeCLIInputInvalid, "reading query from stdin")
	}
	text := string(data)
	if strings.TrimSpace(text) == "" {
		return "", sigilerr.New(sigilerr.CodeCLIInputInvalid, "no query given")
	}
	return text, nil
}

func printNormalized(cmd *cobra.Command, g *graphdb.Client, text string) error {
	n, err := g.Normalize(cmd.Context(), text)
	if err != nil {
		return err
	}
	for _, c := range n.Corrections {
		if c.From != "" {
			slog.Info("prefix corrected", "kind", c.Kind, "prefix", c.Prefix, "from", c.From, "to", c.To)
		} else {
			slog.Info("prefix corrected", "kind", c.Kind, "prefix", c.Prefix, "to", c.To)
		}
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), n.Text())
	return err
}

func printResult(w io.Writer, res *graphdb.Result, output string) error {
	if output == "table" && res.Format == graphdb.FormatJSON {
		solutions, err := res.Bindings()
		if err != nil {
			return err
		}
		if solutions.Boolean != nil {
			_, err = fmt.Fprintln(w, *solutions.Boolean)
			return err
		}
		rows := make([][]string, 0, len(solutions.Results.Bindings))
		for _, b := range solutions.Results.Bindings {
			row := make([]string, len(solutions.Head.Vars))
			for i, v := range solutions.Head.Vars {
				row[i] = b[v].Value
			}
			rows = append(rows, row)
		}
		_, err = io.WriteString(w, renderTable(solutions.Head.Vars, rows))
		return err
	}

	if _, err := w.Write(res.Body); err != nil {
		return err
	}
	if len(res.Body) > 0 && res.Body[len(res.Body)-1] != '\n' {
		_, err := io.WriteString(w, "\n")
		return err
	}
	return nil
}

// auditCLIQuery records the query in the audit log. Failures are logged and
// never fail the command.
func auditCLIQuery(ctx context.Context, queryLog store.QueryLogStore, raw string, res *graphdb.Result, elapsed time.Duration, callErr error) {
	entry := &store.QueryLogEntry{
		Source:   store.SourceCLI,
		RawQuery: raw,
		Outcome:  store.OutcomeOf(callErr),
		Duration: elapsed,
	}
	if res != nil {
		entry.FinalQuery = res.Query
	}
	if err := queryLog.Append(context.WithoutCancel(ctx), entry); err != nil {
		slog.Warn("query audit failed", "error", err)
	}
}
