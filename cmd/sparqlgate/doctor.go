// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"github.com/sigil-dev/sparqlgate/internal/config"
	"github.com/sigil-dev/sparqlgate/internal/graphdb"
	sigilerr "github.com/sigil-dev/sparqlgate/pkg/errors"
)

func newDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostics",
		Long:  "Check the config file, data directory, disk space, GraphDB connectivity and repository features.",
		Args:  cobra.NoArgs,
		RunE:  runDoctor,
	}

	cmd.Flags().String("address", "", "gateway address to check (default networking.listen)")

	return cmd
}

type doctorCheck struct {
	name string
	fn   func(ctx context.Context) string
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	explicit, _ := cmd.Flags().GetString("config")
	path := config.ResolvePath(explicit)

	cfg, cfgErr := config.LoadWithSecrets(path, secretStoreFactory())

	checks := []doctorCheck{
		{"Binary", func(context.Context) string { return checkBinary() }},
		{"Platform", func(context.Context) string { return checkPlatform() }},
		{"Config", func(context.Context) string { return checkConfig(path, cfgErr) }},
		{"Gateway", func(ctx context.Context) string { return checkGateway(ctx, gatewayAddress(cmd)) }},
	}
	if cfg != nil {
		checks = append(checks,
			doctorCheck{"Data Dir", func(context.Context) string { return checkDataDir(cfg) }},
			doctorCheck{"Disk Space", func(context.Context) string { return checkDiskSpace(cfg.Storage.DataDir) }},
		)
		checks = append(checks, graphDBChecks(ctx, cfg)...)
	}

	results := runChecks(ctx, checks)

	w := cmd.OutOrStdout()
	for i, c := range checks {
		if _, err := fmt.Fprintf(w, "%-20s %s\n", c.name+":", results[i]); err != nil {
			return err
		}
	}
	return nil
}

// runChecks runs every check concurrently and returns the results in order.
func runChecks(ctx context.Context, checks []doctorCheck) []string {
	results := make([]string, len(checks))
	var eg errgroup.Group
	for i, c := range checks {
		eg.Go(func() error {
			results[i] = c.fn(ctx)
			return nil
		})
	}
	_ = eg.Wait()
	return results
}

// graphDBChecks connects once; the feature probes share the client.
func graphDBChecks(ctx context.Context, cfg *config.Config) []doctorCheck {
	g, err := graphdb.New(ctx, graphDBConfig(cfg))
	if err != nil {
		msg := errorStyle.Render("unreachable: " + err.Error())
		return []doctorCheck{{"GraphDB", func(context.Context) string { return msg }}}
	}

	return []doctorCheck{
		{"GraphDB", func(ctx context.Context) string {
			v, err := g.Version(ctx)
			if err != nil {
				return errorStyle.Render("error: " + err.Error())
			}
			return fmt.Sprintf("%s at %s, repository %s, %d namespaces",
				v, g.BaseURL(), g.Repository(), g.Registry().Len())
		}},
		{"Full-text search", func(ctx context.Context) string {
			on, err := g.FTSEnabled(ctx)
			if err != nil {
				return errorStyle.Render("error: " + err.Error())
			}
			if on {
				return statusStyle("enabled").Render("enabled")
			}
			return statusStyle("disabled").Render("disabled")
		}},
		{"Autocomplete", func(ctx context.Context) string {
			st, err := g.AutocompleteStatus(ctx)
			if err != nil {
				return errorStyle.Render("error: " + err.Error())
			}
			return statusStyle(string(st)).Render(string(st))
		}},
		{"RDF Rank", func(ctx context.Context) string {
			st, err := g.RDFRankStatus(ctx)
			if err != nil {
				return errorStyle.Render("error: " + err.Error())
			}
			return statusStyle(string(st)).Render(string(st))
		}},
	}
}

func checkBinary() string {
	return fmt.Sprintf("sparqlgate %s (commit %s)", version, commit)
}

func checkPlatform() string {
	return fmt.Sprintf("%s/%s, Go %s", runtime.GOOS, runtime.GOARCH, runtime.Version())
}

func checkGateway(ctx context.Context, addr string) string {
	var st gatewayStatus
	if err := newGatewayClient(addr).getJSON(ctx, "/api/v1/status", &st); err != nil {
		if sigilerr.HasCode(err, sigilerr.CodeCLIGatewayNotRunning) {
			return fmt.Sprintf("not running at %s (run 'sparqlgate serve')", addr)
		}
		return fmt.Sprintf("error: %s", err)
	}
	return fmt.Sprintf("%s at %s", st.Status, addr)
}

func checkConfig(path string, loadErr error) string {
	source := "defaults and environment (no config file)"
	if path != "" {
		source = path
		if config.WarnInsecurePermissions(path) {
			source += " " + warnStyle.Render("(insecure permissions, run chmod 600)")
		}
	}
	if loadErr != nil {
		return errorStyle.Render("invalid: "+strings.ReplaceAll(loadErr.Error(), "\n", "; ")) + " from " + source
	}
	return "loaded from " + source
}

func checkDataDir(cfg *config.Config) string {
	if cfg.Storage.Backend == "memory" {
		return "not used (memory backend)"
	}
	dir := cfg.Storage.DataDir
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return errorStyle.Render(fmt.Sprintf("cannot create %s: %s", dir, err))
	}
	f, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return errorStyle.Render(fmt.Sprintf("%s is not writable: %s", dir, err))
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	return fmt.Sprintf("%s (writable)", filepath.Clean(dir))
}

func checkDiskSpace(dataDir string) string {
	path := dataDir
	if _, err := os.Stat(path); os.IsNotExist(err) {
		// Fall back to home directory if data dir doesn't exist yet.
		path, _ = os.UserHomeDir()
	}

	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return fmt.Sprintf("unable to check: %s", err)
	}

	availBytes := stat.Bavail * uint64(stat.Bsize)
	return formatBytes(availBytes) + " available"
}

// formatBytes formats a byte count as a human-readable string.
func formatBytes(b uint64) string {
	const (
		gb = 1024 * 1024 * 1024
		mb = 1024 * 1024
	)
	switch {
	case b >= gb:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(gb))
	case b >= mb:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(mb))
	default:
		return fmt.Sprintf("%d bytes", b)
	}
}
