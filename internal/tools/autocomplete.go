// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package tools

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/sigil-dev/sparqlgate/internal/provider"
	"github.com/sigil-dev/sparqlgate/internal/sparql"
	sigilerr "github.com/sigil-dev/sparqlgate/pkg/errors"
)

// DefaultPropertyPath is the name property searched by autocomplete.
const DefaultPropertyPath = "<http://www.w3.org/2000/01/rdf-schema#label>"

const autocompletePrologue = `PREFIX rank: <http://www.ontotext.com/owlim/RDFRank#>
PREFIX auto: <http://www.ontotext.com/plugins/autocomplete#>
SELECT ?iri ?name ?rank {
    ?iri auto:query {{literal:query}} ;
        {{path:property_path}} ?name ;
`

const autocompleteEpilogue = `        rank:hasRDFRank5 ?rank.
}
ORDER BY DESC(?rank)
LIMIT {{int:limit}}`

var (
	autocompleteQuery        = sparql.MustTemplate(autocompletePrologue + autocompleteEpilogue)
	autocompleteQueryByClass = sparql.MustTemplate(autocompletePrologue + "        a {{iri:result_class}} ;\n" + autocompleteEpilogue)
)

// AutocompleteConfig configures the autocomplete_search tool.
type AutocompleteConfig struct {
	Limit int
	// PropertyPath is a SPARQL property path to the searched names.
	PropertyPath string
}

// AutocompleteSearch finds IRIs by name using the GraphDB autocomplete index,
// ordered by RDF rank.
type AutocompleteSearch struct {
	graph Graph
	cfg   AutocompleteConfig
}

// NewAutocompleteSearch checks that the repository has the autocomplete
// index enabled. A missing RDF rank only produces a warning.
func NewAutocompleteSearch(ctx context.Context, g Graph, cfg AutocompleteConfig) (*AutocompleteSearch, error) {
	if cfg.Limit == 0 {
		cfg.Limit = 10
	}
	if cfg.Limit < 1 {
		return nil, sigilerr.Errorf(sigilerr.CodeToolConfigInvalid, "autocomplete limit must be at least 1, got %d", cfg.Limit)
	}
	cfg.PropertyPath = strings.TrimSpace(cfg.PropertyPath)
	if cfg.PropertyPath == "" {
		cfg.PropertyPath = DefaultPropertyPath
	}
	if _, err := sparql.ParsePath(cfg.PropertyPath); err != nil {
		return nil, sigilerr.Wrap(err, sigilerr.CodeToolConfigInvalid, "autocomplete property path")
	}

	enabled, err := g.AutocompleteEnabled(ctx)
	if err != nil {
		return nil, err
	}
	if !enabled {
		return nil, sigilerr.New(sigilerr.CodeToolConfigInvalid,
			"You must enable the autocomplete index for the repository to use the Autocomplete search tool.")
	}

	computed, err := g.RDFRankComputed(ctx)
	if err != nil {
		return nil, err
	}
	if !computed {
		slog.Warn("The RDF Rank for the repository is not computed. It's recommended to compute it " +
			"in order to use the Autocomplete search tool.")
	}
	return &AutocompleteSearch{graph: g, cfg: cfg}, nil
}

func (t *AutocompleteSearch) Definition() provider.ToolDefinition {
	return provider.ToolDefinition{
		Name:        "autocomplete_search",
		Description: "Discover IRIs by searching their names and getting results in order of relevance.",
		InputSchema: objectSchema([]string{"query"}, map[string]string{
			"query": "Autocomplete search query",
			"result_class": "Filter the results by class. A valid value is the full IRI of one class from the ontology. " +
				"Do not use prefixes to shorten the full IRI.",
		}),
	}
}

type autocompleteArgs struct {
	Query       string `json:"query"`
	ResultClass string `json:"result_class"`
}

// Query renders the search query without running it.
func (t *AutocompleteSearch) Query(term, resultClass string) (*sparql.Query, error) {
	values := map[string]any{
		"query":         term,
		"property_path": t.cfg.PropertyPath,
		"limit":         t.cfg.Limit,
	}
	tmpl := autocompleteQuery
	if resultClass != "" {
		values["result_class"] = resultClass
		tmpl = autocompleteQueryByClass
	}
	return tmpl.Render(values)
}

func (t *AutocompleteSearch) Call(ctx context.Context, args json.RawMessage) (string, error) {
	var a autocompleteArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return "", sigilerr.Wrap(err, sigilerr.CodeToolArgumentsInvalid, "decoding autocomplete_search arguments")
	}

	q, err := t.Query(a.Query, a.ResultClass)
	if err != nil {
		return "", err
	}
	slog.Debug("searching with autocomplete query", "query", q.Text)

	res, err := t.graph.Eval(ctx, q.Text)
	if err != nil {
		recordQuery(ctx, q.Text, "")
		return "", err
	}
	recordQuery(ctx, q.Text, res.Query)
	return formatPayload(res)
}
