// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package tools

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/sigil-dev/sparqlgate/internal/graphdb"
	"github.com/sigil-dev/sparqlgate/internal/provider"
	sigilerr "github.com/sigil-dev/sparqlgate/pkg/errors"
)

// SPARQLQuery runs agent-written read queries through the full validation
// pipeline.
type SPARQLQuery struct {
	graph Graph
}

func NewSPARQLQuery(g Graph) *SPARQLQuery { return &SPARQLQuery{graph: g} }

func (t *SPARQLQuery) Definition() provider.ToolDefinition {
	return provider.ToolDefinition{
		Name: "sparql_query",
		Description: "Query GraphDB by SPARQL SELECT, CONSTRUCT, DESCRIBE or ASK query and return the result. " +
			"Missing or wrong prefixes are corrected. Every IRI must be stored in the repository.",
		InputSchema: objectSchema([]string{"query"}, map[string]string{
			"query": "A valid SPARQL SELECT, CONSTRUCT, DESCRIBE or ASK query without literals",
		}),
	}
}

type queryArgs struct {
	Query string `json:"query"`
}

// QueryOutput is the sparql_query result: the executed query and its payload.
// Result holds the decoded JSON payload or the raw text of other formats.
type QueryOutput struct {
	Query  string `json:"query"`
	Result any    `json:"result"`
}

func (t *SPARQLQuery) Call(ctx context.Context, args json.RawMessage) (string, error) {
	var a queryArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return "", sigilerr.Wrap(err, sigilerr.CodeToolArgumentsInvalid, "decoding sparql_query arguments")
	}

	res, err := t.graph.Eval(ctx, a.Query)
	if err != nil {
		recordQuery(ctx, a.Query, "")
		return "", err
	}
	recordQuery(ctx, a.Query, res.Query)

	return marshalOutput(QueryOutput{Query: res.Query, Result: payload(res)})
}

// payload keeps JSON bodies as JSON and everything else as text.
func payload(res *graphdb.Result) any {
	body := bytes.TrimSpace(res.Body)
	if json.Valid(body) {
		return json.RawMessage(body)
	}
	return string(res.Body)
}

// formatPayload renders a result for the agent: indented JSON when possible.
func formatPayload(res *graphdb.Result) (string, error) {
	p := payload(res)
	if s, ok := p.(string); ok {
		return s, nil
	}
	return marshalOutput(p)
}

func marshalOutput(v any) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", sigilerr.Wrap(err, sigilerr.CodeToolOutputInvalid, "encoding tool output")
	}
	return string(b), nil
}
