// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/sigil-dev/sparqlgate/internal/config"
	"github.com/sigil-dev/sparqlgate/internal/graphdb"
	"github.com/sigil-dev/sparqlgate/internal/server"
	"github.com/sigil-dev/sparqlgate/internal/store"
	_ "github.com/sigil-dev/sparqlgate/internal/store/sqlite" // register sqlite backend
	"github.com/sigil-dev/sparqlgate/internal/tools"
	sigilerr "github.com/sigil-dev/sparqlgate/pkg/errors"
)

// Gateway holds the wired subsystems shared by serve, mcp and query.
type Gateway struct {
	Graph    *graphdb.Client
	QueryLog store.QueryLogStore
	// Toolkit is nil unless requested from WireGateway.
	Toolkit *tools.Toolkit
}

// WireGateway opens the query log, connects to GraphDB and, when withTools
// is set, builds the agent toolkit.
func WireGateway(ctx context.Context, cfg *config.Config, withTools bool) (*Gateway, error) {
	queryLog, err := store.NewQueryLogStore(storageConfig(cfg))
	if err != nil {
		return nil, sigilerr.Wrap(err, sigilerr.CodeCLISetupFailure, "opening query log")
	}

	graph, err := graphdb.New(ctx, graphDBConfig(cfg))
	if err != nil {
		_ = queryLog.Close()
		return nil, err
	}
	slog.Info("connected to graphdb",
		"base_url", graph.BaseURL(),
		"repository", graph.Repository(),
		"namespaces", graph.Registry().Len(),
	)

	gw := &Gateway{Graph: graph, QueryLog: queryLog}
	if !withTools {
		return gw, nil
	}

	gw.Toolkit, err = tools.Build(ctx, graph, toolsConfig(cfg, queryLog))
	if err != nil {
		_ = queryLog.Close()
		return nil, err
	}
	return gw, nil
}

// Close releases the query log.
func (g *Gateway) Close() error {
	if g.QueryLog == nil {
		return nil
	}
	return g.QueryLog.Close()
}

func graphDBConfig(cfg *config.Config) graphdb.Config {
	excluded := cfg.Validation.ExcludedNamespaces
	if excluded == nil {
		// An explicitly empty list in the config file means exclude nothing.
		excluded = []string{}
	}
	return graphdb.Config{
		BaseURL:            cfg.GraphDB.BaseURL,
		Repository:         cfg.GraphDB.RepositoryID,
		AuthHeader:         cfg.GraphDB.AuthHeader,
		ConnectTimeout:     cfg.GraphDB.ConnectTimeout,
		ReadTimeout:        cfg.GraphDB.ReadTimeout,
		ExcludedNamespaces: excluded,
	}
}

func toolsConfig(cfg *config.Config, queryLog store.QueryLogStore) tools.Config {
	t := cfg.Tools
	return tools.Config{
		AutocompleteEnabled: t.Autocomplete.Enabled,
		Autocomplete: tools.AutocompleteConfig{
			Limit:        t.Autocomplete.Limit,
			PropertyPath: t.Autocomplete.PropertyPath,
		},
		Retrieval: tools.RetrievalConfig{
			ConnectorName: t.Retrieval.ConnectorName,
			Limit:         t.Retrieval.Limit,
		},
		Ontology: tools.OntologyConfig{
			Query: t.Ontology.Query,
			File:  t.Ontology.File,
		},
		Toolkit: tools.ToolkitConfig{
			QueryLog:        queryLog,
			Timeout:         t.Timeout,
			MaxTotalOutput:  t.Output.MaxTotal,
			MinSingleOutput: t.Output.MinSingle,
		},
	}
}

func serverConfig(cfg *config.Config) server.Config {
	return server.Config{
		ListenAddr:  cfg.Networking.Listen,
		CORSOrigins: cfg.Networking.CORSOrigins,
		RateLimit: server.RateLimitConfig{
			RequestsPerSecond: cfg.Networking.RateLimit.RPS,
			Burst:             cfg.Networking.RateLimit.Burst,
		},
		Metrics: cfg.Telemetry.Metrics,
		Version: version,
	}
}

func storageConfig(cfg *config.Config) *store.StorageConfig {
	return &store.StorageConfig{Backend: cfg.Storage.Backend, DataDir: cfg.Storage.DataDir}
}

// closeAll closes the gateway and joins the error with err.
func closeAll(g *Gateway, err error) error {
	if cerr := g.Close(); cerr != nil {
		return errors.Join(err, cerr)
	}
	return err
}
