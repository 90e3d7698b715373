// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package tools

import (
	"context"
	"encoding/json"
	"os"
	"strings"

	"github.com/sigil-dev/sparqlgate/internal/graphdb"
	"github.com/sigil-dev/sparqlgate/internal/provider"
	"github.com/sigil-dev/sparqlgate/internal/sparql"
	sigilerr "github.com/sigil-dev/sparqlgate/pkg/errors"
)

// OntologyConfig selects the schema source. Exactly one of Query and File
// must be set.
type OntologyConfig struct {
	// Query is a CONSTRUCT query returning the schema.
	Query string
	// File is a Turtle file holding the schema.
	File string
}

// OntologySchema returns the ontology schema and vocabulary of the data, as
// Turtle.
type OntologySchema struct {
	graph Graph
	query string
	// schema is the file content, loaded once.
	schema string
}

func NewOntologySchema(g Graph, cfg OntologyConfig) (*OntologySchema, error) {
	query := strings.TrimSpace(cfg.Query)
	file := strings.TrimSpace(cfg.File)
	switch {
	case query != "" && file != "":
		return nil, sigilerr.New(sigilerr.CodeToolConfigInvalid,
			"Expected either ontology schema query or ontology schema file, but both are provided")
	case query == "" && file == "":
		return nil, sigilerr.New(sigilerr.CodeToolConfigInvalid,
			"Expected either ontology schema query or ontology schema file, but neither is provided")
	}

	if file != "" {
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, sigilerr.Wrap(err, sigilerr.CodeToolConfigInvalid, "reading ontology schema file",
				sigilerr.Field("file", file))
		}
		if len(strings.TrimSpace(string(b))) == 0 {
			return nil, sigilerr.New(sigilerr.CodeToolConfigInvalid, "ontology schema file is empty",
				sigilerr.Field("file", file))
		}
		return &OntologySchema{graph: g, schema: string(b)}, nil
	}

	q, err := sparql.Parse(query)
	if err != nil {
		return nil, sigilerr.Wrap(err, sigilerr.CodeToolConfigInvalid, "ontology schema query")
	}
	if q.Type != sparql.Construct {
		return nil, sigilerr.New(sigilerr.CodeToolConfigInvalid,
			"Ontology schema query must be a CONSTRUCT query, got "+string(q.Type),
			sigilerr.Field("type", string(q.Type)))
	}
	return &OntologySchema{graph: g, query: query}, nil
}

func (t *OntologySchema) Definition() provider.ToolDefinition {
	return provider.ToolDefinition{
		Name:        "ontology_schema",
		Description: "Returns the ontology schema and vocabulary used in the data stored in GraphDB, serialized as Turtle.",
		InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
	}
}

func (t *OntologySchema) Call(ctx context.Context, _ json.RawMessage) (string, error) {
	if t.query == "" {
		return t.schema, nil
	}
	res, err := t.graph.Eval(ctx, t.query, graphdb.WithFormat(string(graphdb.FormatTurtle)), graphdb.WithValidation(false))
	if err != nil {
		recordQuery(ctx, t.query, "")
		return "", err
	}
	recordQuery(ctx, t.query, res.Query)
	return string(res.Body), nil
}
