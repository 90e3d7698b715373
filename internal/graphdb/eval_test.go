// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package graphdb_test

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigil-dev/sparqlgate/internal/graphdb"
	"github.com/sigil-dev/sparqlgate/internal/graphdb/graphdbtest"
	"github.com/sigil-dev/sparqlgate/internal/sparql"
	sigilerr "github.com/sigil-dev/sparqlgate/pkg/errors"
)

// sixRedEyed is a SELECT result with six bindings for ?s.
var sixRedEyed = func() string {
	rows := make([]string, 6)
	for i := range rows {
		rows[i] = fmt.Sprintf(`{"s":{"type":"uri","value":"https://swapi.co/resource/character/%d"}}`, i+1)
	}
	return `{"head":{"vars":["s"]},"results":{"bindings":[` + strings.Join(rows, ",") + `]}}`
}()

func newClient(t *testing.T, fake *graphdbtest.Server, mutate ...func(*graphdb.Config)) *graphdb.Client {
	t.Helper()
	cfg := graphdb.Config{BaseURL: fake.URL, Repository: graphdbtest.Repository}
	for _, m := range mutate {
		m(&cfg)
	}
	c, err := graphdb.New(context.Background(), cfg)
	require.NoError(t, err)
	return c
}

func TestEvalInjectsMissingPrefix(t *testing.T) {
	fake := graphdbtest.New(t, graphdbtest.WithSelectBody(sixRedEyed))
	c := newClient(t, fake)

	res, err := c.Eval(context.Background(), `SELECT * { ?s voc:eyeColor "red" }`)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(res.Query, "PREFIX voc: <https://swapi.co/vocabulary/>"), res.Query)
	assert.Equal(t, sparql.Select, res.Type)
	assert.Equal(t, graphdb.FormatJSON, res.Format)

	solutions, err := res.Bindings()
	require.NoError(t, err)
	assert.Equal(t, []string{"s"}, solutions.Head.Vars)
	assert.Len(t, solutions.Results.Bindings, 6)

	queries := fake.Queries()
	assert.Equal(t, res.Query, queries[len(queries)-1])
}

func TestEvalRewritesWrongNamespace(t *testing.T) {
	fake := graphdbtest.New(t, graphdbtest.WithSelectBody(sixRedEyed))
	c := newClient(t, fake)

	res, err := c.Eval(context.Background(), `PREFIX voc: <https://swapi.co/voc/> SELECT * { ?s voc:eyeColor "red" }`)
	require.NoError(t, err)

	assert.Equal(t, `PREFIX voc: <https://swapi.co/vocabulary/> SELECT * { ?s voc:eyeColor "red" }`, res.Query)
	solutions, err := res.Bindings()
	require.NoError(t, err)
	assert.Len(t, solutions.Results.Bindings, 6)
}

func TestEvalReportsUndefinedPrefix(t *testing.T) {
	fake := graphdbtest.New(t)
	c := newClient(t, fake)
	sent := len(fake.Queries())

	_, err := c.Eval(context.Background(), `SELECT ?label { ?s unknown:label ?label }`)
	require.Error(t, err)
	assert.True(t, sigilerr.IsUndefinedPrefix(err))
	assert.Equal(t, "The following prefixes are undefined: unknown", err.Error())
	assert.Len(t, fake.Queries(), sent, "nothing may reach the server")
}

func TestEvalReportsUnknownIRI(t *testing.T) {
	fake := graphdbtest.New(t, graphdbtest.WithUnknownIRIs("https://swapi.co/vocabulary/unknown"))
	c := newClient(t, fake)

	_, err := c.Eval(context.Background(), `SELECT * { ?s voc:unknown "red" ; voc:eyeColor ?c }`)
	require.Error(t, err)
	assert.True(t, sigilerr.IsUnknownIRI(err))
	assert.Equal(t,
		"The following IRIs are not used in the data stored in GraphDB: <https://swapi.co/vocabulary/unknown>",
		err.Error())
	assert.Equal(t, []string{"https://swapi.co/vocabulary/unknown"}, sigilerr.StringsField(err, "iris"))
	assert.Equal(t, http.StatusUnprocessableEntity, sigilerr.HTTPStatus(err))
}

func TestEvalListsEveryUnknownIRI(t *testing.T) {
	fake := graphdbtest.New(t, graphdbtest.WithUnknownIRIs(
		"https://swapi.co/vocabulary/a",
		"https://swapi.co/resource/b",
	))
	c := newClient(t, fake)

	_, err := c.Eval(context.Background(),
		`SELECT * { ?s voc:a <https://swapi.co/resource/b> ; voc:eyeColor ?c }`)
	require.Error(t, err)
	assert.Equal(t,
		"The following IRIs are not used in the data stored in GraphDB: <https://swapi.co/vocabulary/a>, <https://swapi.co/resource/b>",
		err.Error())
}

func TestEvalRejectsUpdateBeforeSending(t *testing.T) {
	fake := graphdbtest.New(t)
	c := newClient(t, fake)
	sent := len(fake.Queries())

	_, err := c.Eval(context.Background(),
		`DELETE DATA { <https://swapi.co/resource/human/1> <https://swapi.co/vocabulary/eyeColor> "blue" }`)
	require.Error(t, err)
	assert.True(t, sigilerr.IsUnsupportedQueryType(err))
	assert.Equal(t,
		"Expected {SelectQuery | ConstructQuery | DescribeQuery | AskQuery}, found 'DELETE'  (at char 0), (line:1, col:1)",
		err.Error())
	assert.Len(t, fake.Queries(), sent)
}

func TestEvalSyntaxErrorIsVerbatim(t *testing.T) {
	fake := graphdbtest.New(t)
	c := newClient(t, fake)

	_, err := c.Eval(context.Background(), "SELECT {?s ?p ?o}")
	require.Error(t, err)
	assert.True(t, sigilerr.IsSyntaxError(err))
	assert.Equal(t, "Expected SelectQuery, found '{'  (at char 7), (line:1, col:8)", err.Error())
}

func TestEvalSkipsExistenceCheckWithoutCandidates(t *testing.T) {
	fake := graphdbtest.New(t)
	c := newClient(t, fake)
	sent := len(fake.Queries())

	_, err := c.Eval(context.Background(), `SELECT * { ?s ?p "1"^^xsd:integer } LIMIT 1`)
	require.NoError(t, err)
	assert.Len(t, fake.Queries(), sent+1, "only the query itself is sent")
}

func TestEvalExcludedNamespaces(t *testing.T) {
	const xsdString = "http://www.w3.org/2001/XMLSchema#string"
	fake := graphdbtest.New(t, graphdbtest.WithUnknownIRIs(xsdString))
	query := `SELECT * { ?s a <` + xsdString + `> }`

	_, err := newClient(t, fake).Eval(context.Background(), query)
	assert.NoError(t, err)

	strict := newClient(t, fake, func(cfg *graphdb.Config) { cfg.ExcludedNamespaces = []string{} })
	_, err = strict.Eval(context.Background(), query)
	assert.True(t, sigilerr.IsUnknownIRI(err))
}

func TestEvalFormatSelection(t *testing.T) {
	fake := graphdbtest.New(t)
	c := newClient(t, fake)

	const (
		selectQ    = `SELECT * { ?s ?p ?o } LIMIT 1`
		constructQ = `CONSTRUCT { ?s ?p ?o } WHERE { ?s ?p ?o } LIMIT 1`
	)
	tests := []struct {
		name        string
		query       string
		format      string
		want        graphdb.Format
		contentType string
	}{
		{"select default", selectQ, "", graphdb.FormatJSON, "application/sparql-results+json"},
		{"select csv", selectQ, "csv", graphdb.FormatCSV, "text/csv"},
		{"select tsv upper", selectQ, "TSV", graphdb.FormatTSV, "text/tab-separated-values"},
		{"select xml", selectQ, "xml", graphdb.FormatXML, "application/sparql-results+xml"},
		{"select unknown ignored", selectQ, "yaml", graphdb.FormatJSON, "application/sparql-results+json"},
		{"select graph format ignored", selectQ, "turtle", graphdb.FormatJSON, "application/sparql-results+json"},
		{"construct default", constructQ, "", graphdb.FormatTurtle, "text/turtle"},
		{"construct rdf alias", constructQ, "rdf", graphdb.FormatRDFXML, "application/rdf+xml"},
		{"construct json-ld", constructQ, "json-ld", graphdb.FormatJSONLD, "application/ld+json"},
		{"construct tabular ignored", constructQ, "csv", graphdb.FormatTurtle, "text/turtle"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := c.Eval(context.Background(), tt.query, graphdb.WithFormat(tt.format))
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Format)
			assert.Equal(t, tt.contentType, res.ContentType)
		})
	}
}

func TestEvalConstructReturnsTurtle(t *testing.T) {
	fake := graphdbtest.New(t)
	c := newClient(t, fake)

	res, err := c.Eval(context.Background(), `DESCRIBE <https://swapi.co/resource/human/1>`)
	require.NoError(t, err)
	assert.Equal(t, sparql.Describe, res.Type)
	assert.Contains(t, string(res.Body), `"Luke Skywalker"`)

	_, err = res.Bindings()
	assert.True(t, sigilerr.HasCode(err, sigilerr.CodeSPARQLResultInvalid))
}

func TestEvalWithoutValidationSendsRawText(t *testing.T) {
	fake := graphdbtest.New(t)
	c := newClient(t, fake)

	raw := `SELECT * { ?s nope:thing ?o }`
	res, err := c.Eval(context.Background(), raw, graphdb.WithValidation(false))
	require.NoError(t, err)
	assert.Equal(t, raw, res.Query)

	queries := fake.Queries()
	assert.Equal(t, raw, queries[len(queries)-1])

	res, err = c.Eval(context.Background(), "this is not sparql", graphdb.WithValidation(false))
	require.NoError(t, err)
	assert.Equal(t, graphdb.FormatJSON, res.Format)
	assert.Empty(t, res.Type)
}

func TestEvalTransportFailure(t *testing.T) {
	fake := graphdbtest.New(t)
	c := newClient(t, fake)
	fake.Fail(http.StatusInternalServerError)

	_, err := c.Eval(context.Background(), `SELECT * { ?s ?p ?o }`)
	require.Error(t, err)
	assert.True(t, sigilerr.IsTransport(err))
	assert.Equal(t, sigilerr.CodeGraphDBUpstreamFailure, sigilerr.CodeOf(err))
	assert.False(t, sigilerr.IsValidation(err))
	assert.Equal(t, http.StatusBadGateway, sigilerr.HTTPStatus(err))
	assert.Equal(t, http.StatusInternalServerError, sigilerr.FieldsOf(err)["status"])
	assert.Contains(t, err.Error(), "HTTP 500")

	h := c.Health()
	assert.False(t, h.Available)
	assert.Equal(t, int64(1), h.FailureCount)

	fake.Fail(0)
	_, err = c.Eval(context.Background(), `SELECT * { ?s ?p ?o }`)
	require.NoError(t, err)
	assert.True(t, c.Health().Available)
}

func TestEvalExistenceCheckTransportFailure(t *testing.T) {
	fake := graphdbtest.New(t)
	c := newClient(t, fake)
	fake.Fail(http.StatusServiceUnavailable)

	_, err := c.Eval(context.Background(), `SELECT * { ?s voc:eyeColor ?o }`)
	assert.True(t, sigilerr.IsTransport(err))
}

func TestNormalizeSendsNothing(t *testing.T) {
	fake := graphdbtest.New(t)
	c := newClient(t, fake)
	sent := len(fake.Queries())

	n, err := c.Normalize(context.Background(), `SELECT * { ?s voc:eyeColor rdfs:Resource }`)
	require.NoError(t, err)
	assert.Equal(t,
		`PREFIX voc: <https://swapi.co/vocabulary/> PREFIX rdfs: <http://www.w3.org/2000/01/rdf-schema#> SELECT * { ?s voc:eyeColor rdfs:Resource }`,
		n.Text())
	assert.Len(t, n.Corrections, 2)
	assert.Len(t, fake.Queries(), sent)
}
