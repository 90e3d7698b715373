// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package tools

import (
	"context"
	"log/slog"
)

// Config selects and configures the tools of a gateway toolkit. sparql_query
// and now are always present.
type Config struct {
	AutocompleteEnabled bool
	Autocomplete        AutocompleteConfig
	Retrieval           RetrievalConfig
	Ontology            OntologyConfig
	Toolkit             ToolkitConfig
}

// Build constructs the configured tools against g. Optional tools whose
// construction probe fails make Build fail; nothing is silently dropped.
func Build(ctx context.Context, g Graph, cfg Config) (*Toolkit, error) {
	list := []Tool{NewSPARQLQuery(g)}

	if cfg.AutocompleteEnabled {
		ac, err := NewAutocompleteSearch(ctx, g, cfg.Autocomplete)
		if err != nil {
			return nil, err
		}
		list = append(list, ac)
	}
	if cfg.Retrieval.ConnectorName != "" {
		rs, err := NewRetrievalSearch(ctx, g, cfg.Retrieval)
		if err != nil {
			return nil, err
		}
		list = append(list, rs)
	}
	if cfg.Ontology.Query != "" || cfg.Ontology.File != "" {
		ont, err := NewOntologySchema(g, cfg.Ontology)
		if err != nil {
			return nil, err
		}
		list = append(list, ont)
	}
	list = append(list, NewNow())

	k, err := NewToolkit(cfg.Toolkit, list...)
	if err != nil {
		return nil, err
	}
	slog.Info("toolkit ready", "tools", k.Names())
	return k, nil
}
