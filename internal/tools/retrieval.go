// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package tools

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/sigil-dev/sparqlgate/internal/graphdb"
	"github.com/sigil-dev/sparqlgate/internal/provider"
	"github.com/sigil-dev/sparqlgate/internal/sparql"
	sigilerr "github.com/sigil-dev/sparqlgate/pkg/errors"
)

var retrievalQuery = sparql.MustTemplate(`PREFIX retr: <http://www.ontotext.com/connectors/retrieval#>
PREFIX retr-inst: <http://www.ontotext.com/connectors/retrieval/instance#>
SELECT * {
    [] a retr-inst:{{name:connector}} ;
        retr:query {{literal:query}} ;
        retr:limit {{int:limit}} ;
        retr:entities ?entity .
    ?entity retr:snippets _:s .
    _:s retr:snippetField ?field ;
        retr:snippetText ?text .
}`)

// RetrievalConfig configures the retrieval_search tool.
type RetrievalConfig struct {
	ConnectorName string
	Limit         int
}

// RetrievalSearch queries a GraphDB ChatGPT Retrieval connector for document
// snippets relevant to a text query.
type RetrievalSearch struct {
	graph Graph
	cfg   RetrievalConfig
}

// NewRetrievalSearch checks that the named connector exists.
func NewRetrievalSearch(ctx context.Context, g Graph, cfg RetrievalConfig) (*RetrievalSearch, error) {
	if cfg.Limit == 0 {
		cfg.Limit = 10
	}
	if cfg.Limit < 1 {
		return nil, sigilerr.Errorf(sigilerr.CodeToolConfigInvalid, "retrieval limit must be at least 1, got %d", cfg.Limit)
	}
	if cfg.ConnectorName == "" {
		return nil, sigilerr.New(sigilerr.CodeToolConfigInvalid, "retrieval connector name is required")
	}

	exists, err := g.RetrievalConnectorExists(ctx, cfg.ConnectorName)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, sigilerr.New(sigilerr.CodeToolConfigInvalid,
			`ChatGPT Retrieval connector with name "`+cfg.ConnectorName+`" doesn't exist.`,
			sigilerr.Field("connector", cfg.ConnectorName))
	}
	return &RetrievalSearch{graph: g, cfg: cfg}, nil
}

func (t *RetrievalSearch) Definition() provider.ToolDefinition {
	return provider.ToolDefinition{
		Name:        "retrieval_search",
		Description: "Query the vector database to retrieve relevant pieces of documents.",
		InputSchema: objectSchema([]string{"query"}, map[string]string{
			"query": "text query",
		}),
	}
}

func (t *RetrievalSearch) Call(ctx context.Context, args json.RawMessage) (string, error) {
	var a queryArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return "", sigilerr.Wrap(err, sigilerr.CodeToolArgumentsInvalid, "decoding retrieval_search arguments")
	}

	q, err := retrievalQuery.Render(map[string]any{
		"connector": t.cfg.ConnectorName,
		"query":     a.Query,
		"limit":     t.cfg.Limit,
	})
	if err != nil {
		return "", err
	}
	slog.Debug("searching with retrieval query", "query", q.Text)

	// Connector instance IRIs are virtual, so the existence check is skipped.
	res, err := t.graph.Eval(ctx, q.Text, graphdb.WithValidation(false))
	if err != nil {
		recordQuery(ctx, q.Text, "")
		return "", err
	}
	recordQuery(ctx, q.Text, res.Query)
	return formatPayload(res)
}
