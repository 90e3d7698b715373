// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigil-dev/sparqlgate/internal/graphdb"
	"github.com/sigil-dev/sparqlgate/internal/graphdb/graphdbtest"
	"github.com/sigil-dev/sparqlgate/internal/server"
	"github.com/sigil-dev/sparqlgate/internal/store"
	"github.com/sigil-dev/sparqlgate/internal/tools"
	sigilerr "github.com/sigil-dev/sparqlgate/pkg/errors"
)

type fixture struct {
	srv  *server.Server
	fake *graphdbtest.Server
	log  *store.MemoryQueryLog
}

func newFixture(t *testing.T, opts ...graphdbtest.Option) *fixture {
	t.Helper()
	fake := graphdbtest.New(t, opts...)
	c, err := graphdb.New(context.Background(), graphdb.Config{BaseURL: fake.URL, Repository: graphdbtest.Repository})
	require.NoError(t, err)

	log := store.NewMemoryQueryLog()
	k, err := tools.NewToolkit(tools.ToolkitConfig{QueryLog: log}, tools.NewSPARQLQuery(c), tools.NewNow())
	require.NoError(t, err)

	svc, err := server.NewServices(c, k, log)
	require.NoError(t, err)

	srv := newTestServer(t, server.Config{Version: "test"})
	srv.RegisterServices(svc)
	return &fixture{srv: srv, fake: fake, log: log}
}

func (f *fixture) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(w, req)

	var decoded map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &decoded)
	return w, decoded
}

func TestNewServices_Required(t *testing.T) {
	_, err := server.NewServices(nil, nil, nil)
	require.Error(t, err)
	assert.True(t, sigilerr.HasCode(err, sigilerr.CodeServerConfigInvalid))
}

func TestRoutes_Status(t *testing.T) {
	f := newFixture(t, graphdbtest.WithFTS("true"))

	w, body := f.do(t, http.MethodGet, "/api/v1/status", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test", body["version"])
	assert.Equal(t, []any{"sparql_query", "now"}, body["tools"])

	g := body["graphdb"].(map[string]any)
	assert.Equal(t, graphdbtest.Repository, g["repository"])
	assert.Equal(t, "10.7.0", g["version"])
	assert.Equal(t, true, g["fts_enabled"])
	assert.Equal(t, "READY", g["autocomplete"])
	assert.Equal(t, "COMPUTED", g["rdf_rank"])
	assert.EqualValues(t, len(graphdbtest.SWAPINamespaces), g["namespaces"])
	assert.Nil(t, g["errors"])
}

func TestRoutes_Namespaces(t *testing.T) {
	f := newFixture(t)

	w, body := f.do(t, http.MethodGet, "/api/v1/namespaces", nil)
	require.Equal(t, http.StatusOK, w.Code)

	ns := body["namespaces"].([]any)
	require.Len(t, ns, len(graphdbtest.SWAPINamespaces))
	first := ns[0].(map[string]any)
	assert.Equal(t, "owl", first["prefix"])
	assert.Equal(t, "http://www.w3.org/2002/07/owl#", first["namespace"])
}

func TestRoutes_SPARQL(t *testing.T) {
	f := newFixture(t)

	w, body := f.do(t, http.MethodPost, "/api/v1/sparql", map[string]any{
		"query": "SELECT ?s { ?s voc:eyeColor ?c }",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, "SELECT", body["type"])
	assert.Equal(t, "json", body["format"])
	assert.True(t, strings.HasPrefix(body["query"].(string), "PREFIX voc: <https://swapi.co/vocabulary/>"))
	result, ok := body["result"].(map[string]any)
	require.True(t, ok, "JSON results are inlined")
	assert.Contains(t, result, "results")

	entries, err := f.log.Query(context.Background(), store.QueryLogFilter{Source: store.SourceAPI})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, store.OutcomeOK, entries[0].Outcome)
	assert.Equal(t, body["query"], entries[0].FinalQuery)
}

func TestRoutes_SPARQLGraphResultIsText(t *testing.T) {
	f := newFixture(t)

	w, body := f.do(t, http.MethodPost, "/api/v1/sparql", map[string]any{
		"query": "DESCRIBE <https://swapi.co/resource/human/1>",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "turtle", body["format"])
	assert.Contains(t, body["result"], "Luke Skywalker")
}

func TestRoutes_SPARQLErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    map[string]any
		status  int
		code    sigilerr.Code
		message string
	}{
		{
			name:    "undefined prefix",
			body:    map[string]any{"query": "SELECT * { ?s foo:bar ?o . ?s baz:qux ?x }"},
			status:  http.StatusUnprocessableEntity,
			code:    sigilerr.CodeSPARQLPrefixUndefined,
			message: "The following prefixes are undefined: foo, baz",
		},
		{
			name:    "unknown iri",
			body:    map[string]any{"query": "SELECT * { ?s voc:hairColour ?c }"},
			status:  http.StatusUnprocessableEntity,
			code:    sigilerr.CodeSPARQLIRINotStored,
			message: "The following IRIs are not used in the data stored in GraphDB: <https://swapi.co/vocabulary/hairColour>",
		},
		{
			name:   "update rejected",
			body:   map[string]any{"query": "DELETE WHERE { ?s ?p ?o }"},
			status: http.StatusUnprocessableEntity,
			code:   sigilerr.CodeSPARQLQueryTypeRejected,
		},
		{
			name:   "syntax error",
			body:   map[string]any{"query": "SELECT {"},
			status: http.StatusBadRequest,
			code:   sigilerr.CodeSPARQLSyntaxInvalid,
		},
		{
			name:    "unknown format",
			body:    map[string]any{"query": "ASK {}", "format": "yaml"},
			status:  http.StatusBadRequest,
			code:    sigilerr.CodeServerRequestInvalid,
			message: `unknown result format "yaml"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, graphdbtest.WithUnknownIRIs("https://swapi.co/vocabulary/hairColour"))

			w, body := f.do(t, http.MethodPost, "/api/v1/sparql", tt.body)
			require.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, string(tt.code), body["code"])
			if tt.message != "" {
				assert.Equal(t, tt.message, body["message"])
			}
		})
	}
}

func TestRoutes_SPARQLUpstreamFailure(t *testing.T) {
	f := newFixture(t)
	f.fake.Fail(http.StatusInternalServerError)

	w, body := f.do(t, http.MethodPost, "/api/v1/sparql", map[string]any{
		"query":    "SELECT ?s { ?s ?p ?o }",
		"validate": false,
	})
	assert.Equal(t, http.StatusBadGateway, w.Code, w.Body.String())
	assert.Equal(t, string(sigilerr.CodeGraphDBUpstreamFailure), body["code"])

	entries, err := f.log.Query(context.Background(), store.QueryLogFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, string(sigilerr.CodeGraphDBUpstreamFailure), entries[0].Outcome)
}

func TestRoutes_SPARQLMissingQuery(t *testing.T) {
	f := newFixture(t)

	w, _ := f.do(t, http.MethodPost, "/api/v1/sparql", map[string]any{"query": ""})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Empty(t, f.fake.Queries()[1:], "nothing beyond the connectivity check is sent")
}

func TestRoutes_Normalize(t *testing.T) {
	f := newFixture(t)
	before := len(f.fake.Queries())

	w, body := f.do(t, http.MethodPost, "/api/v1/sparql/normalize", map[string]any{
		"query": "PREFIX voc: <https://example.org/wrong/>\nSELECT ?s { ?s voc:eyeColor ?c }",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, "SELECT", body["type"])
	assert.Contains(t, body["query"], "PREFIX voc: <https://swapi.co/vocabulary/>")
	corrections := body["corrections"].([]any)
	require.Len(t, corrections, 1)
	assert.Equal(t, "rewritten", corrections[0].(map[string]any)["kind"])
	assert.Len(t, f.fake.Queries(), before, "normalization sends nothing")
}

func TestRoutes_Tools(t *testing.T) {
	f := newFixture(t)

	w, body := f.do(t, http.MethodGet, "/api/v1/tools", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := body["tools"].([]any)
	require.Len(t, list, 2)
	assert.Equal(t, "sparql_query", list[0].(map[string]any)["name"])

	w, body = f.do(t, http.MethodPost, "/api/v1/tools/sparql_query", map[string]any{
		"query": "ASK { ?s voc:eyeColor ?c }",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "sparql_query", body["tool"])
	assert.Contains(t, body["output"], `"boolean": true`)

	entries, err := f.log.Query(context.Background(), store.QueryLogFilter{Tool: "sparql_query"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, store.SourceAPI, entries[0].Source)
}

func TestRoutes_CallToolArguments(t *testing.T) {
	tests := []struct {
		name string
		body any
	}{
		{name: "empty object", body: map[string]any{}},
		{name: "no body", body: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			w, body := f.do(t, http.MethodPost, "/api/v1/tools/now", tt.body)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.Equal(t, "now", body["tool"])
			assert.NotEmpty(t, body["output"])
		})
	}
}

func TestRoutes_ToolErrors(t *testing.T) {
	f := newFixture(t)

	w, body := f.do(t, http.MethodPost, "/api/v1/tools/nope", map[string]any{})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, string(sigilerr.CodeToolNotFound), body["code"])

	w, body = f.do(t, http.MethodPost, "/api/v1/tools/sparql_query", map[string]any{"q": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(sigilerr.CodeToolArgumentsInvalid), body["code"])
}

func TestRoutes_QueryLog(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/api/v1/sparql", map[string]any{"query": "ASK { ?s voc:eyeColor ?c }"})
	f.do(t, http.MethodPost, "/api/v1/sparql", map[string]any{"query": "SELECT * { ?s foo:bar ?o }"})

	w, body := f.do(t, http.MethodGet, "/api/v1/log", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	entries := body["entries"].([]any)
	require.Len(t, entries, 2)
	assert.Equal(t, string(sigilerr.CodeSPARQLPrefixUndefined), entries[0].(map[string]any)["outcome"])

	w, body = f.do(t, http.MethodGet, "/api/v1/log?outcome=ok&source=api", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["entries"], 1)

	w, body = f.do(t, http.MethodGet, "/api/v1/log?from=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(sigilerr.CodeServerRequestInvalid), body["code"])
}

func TestRoutes_SPARQLDefaultValidationOff(t *testing.T) {
	fake := graphdbtest.New(t, graphdbtest.WithUnknownIRIs("https://swapi.co/vocabulary/hairColour"))
	c, err := graphdb.New(context.Background(), graphdb.Config{BaseURL: fake.URL, Repository: graphdbtest.Repository})
	require.NoError(t, err)
	k, err := tools.NewToolkit(tools.ToolkitConfig{}, tools.NewSPARQLQuery(c))
	require.NoError(t, err)
	svc, err := server.NewServices(c, k, nil, server.WithDefaultValidation(false))
	require.NoError(t, err)
	srv := newTestServer(t, server.Config{})
	srv.RegisterServices(svc)
	f := &fixture{srv: srv, fake: fake}

	query := "SELECT * { ?s <https://swapi.co/vocabulary/hairColour> ?c }"
	w, body := f.do(t, http.MethodPost, "/api/v1/sparql", map[string]any{"query": query})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, query, body["query"])

	w, _ = f.do(t, http.MethodPost, "/api/v1/sparql", map[string]any{"query": query, "validate": true})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w, _ = f.do(t, http.MethodGet, "/api/v1/log", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
