// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package graphdbtest provides an in-process fake of the GraphDB endpoints
// the gateway uses.
package graphdbtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/sigil-dev/sparqlgate/internal/sparql"
)

// Repository is the repository id served by the fake.
const Repository = "starwars"

var (
	valuesBlock = regexp.MustCompile(`VALUES \?iri \{([^}]*)\}`)
	iriToken    = regexp.MustCompile(`<([^>]*)>`)
)

// Server is a fake GraphDB. Its state can be changed between requests with
// Update and Fail.
type Server struct {
	*httptest.Server

	mu                  sync.Mutex
	namespaces          []sparql.Namespace
	unknown             map[string]bool
	version             string
	fts                 string
	autocompleteEnabled bool
	autocompleteStatus  string
	rdfRankStatus       string
	similarityIndexes   []string
	retrievalConnectors []string
	authHeader          string
	failStatus          int
	graphBody           string
	selectBody          string
	queries             []string

	versionCalls atomic.Int64
}

// Option configures a Server.
type Option func(*Server)

func WithNamespaces(ns ...sparql.Namespace) Option {
	return func(s *Server) { s.namespaces = ns }
}

// WithUnknownIRIs makes the existence check report iris as not stored.
func WithUnknownIRIs(iris ...string) Option {
	return func(s *Server) {
		for _, iri := range iris {
			s.unknown[iri] = true
		}
	}
}

func WithVersion(v string) Option { return func(s *Server) { s.version = v } }

func WithFTS(value string) Option { return func(s *Server) { s.fts = value } }

func WithAutocomplete(enabled bool, status string) Option {
	return func(s *Server) { s.autocompleteEnabled, s.autocompleteStatus = enabled, status }
}

func WithRDFRank(status string) Option { return func(s *Server) { s.rdfRankStatus = status } }

func WithSimilarityIndexes(names ...string) Option {
	return func(s *Server) { s.similarityIndexes = names }
}

func WithRetrievalConnectors(names ...string) Option {
	return func(s *Server) { s.retrievalConnectors = names }
}

// WithAuth rejects requests whose Authorization header differs from header.
func WithAuth(header string) Option { return func(s *Server) { s.authHeader = header } }

// WithGraphBody sets the Turtle returned for CONSTRUCT and DESCRIBE.
func WithGraphBody(body string) Option { return func(s *Server) { s.graphBody = body } }

// WithSelectBody sets the SPARQL JSON returned for SELECT queries in place of
// the echoed query text.
func WithSelectBody(body string) Option { return func(s *Server) { s.selectBody = body } }

// SWAPINamespaces is the registry used across tests.
var SWAPINamespaces = []sparql.Namespace{
	{Prefix: "voc", IRI: "https://swapi.co/vocabulary/"},
	{Prefix: "rdfs", IRI: "http://www.w3.org/2000/01/rdf-schema#"},
	{Prefix: "rdf", IRI: "http://www.w3.org/1999/02/22-rdf-syntax-ns#"},
	{Prefix: "xsd", IRI: "http://www.w3.org/2001/XMLSchema#"},
	{Prefix: "owl", IRI: "http://www.w3.org/2002/07/owl#"},
}

// New starts a fake server that is closed when the test ends.
func New(t testing.TB, opts ...Option) *Server {
	t.Helper()
	s := &Server{
		namespaces:          SWAPINamespaces,
		unknown:             map[string]bool{},
		version:             "10.7.0",
		fts:                 "false",
		autocompleteEnabled: true,
		autocompleteStatus:  "READY",
		rdfRankStatus:       "COMPUTED",
		graphBody:           "<https://swapi.co/resource/human/1> <http://www.w3.org/2000/01/rdf-schema#label> \"Luke Skywalker\" .\n",
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(s.auth)
	r.Post("/repositories/{repo}", s.sparql)
	r.Get("/repositories/{repo}", s.sparql)
	r.Get("/repositories/{repo}/namespaces", s.listNamespaces)
	r.Get("/rest/info/version", s.serveVersion)
	r.Get("/rest/repositories/{repo}", s.repositoryConfig)
	r.Get("/rest/similarity", s.named(func() []string { return s.similarityIndexes }))
	r.Get("/rest/connectors/existing", s.named(func() []string { return s.retrievalConnectors }))

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// Update applies opts to a running server.
func (s *Server) Update(opts ...Option) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, opt := range opts {
		opt(s)
	}
}

// Fail makes the SPARQL endpoint answer with status; zero restores it.
func (s *Server) Fail(status int) {
	s.mu.Lock()
	s.failStatus = status
	s.mu.Unlock()
}

// Queries returns every query the SPARQL endpoint received, in order.
func (s *Server) Queries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.queries...)
}

// VersionCalls counts requests to /rest/info/version.
func (s *Server) VersionCalls() int64 { return s.versionCalls.Load() }

func (s *Server) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		want := s.authHeader
		s.mu.Unlock()
		if want != "" && r.Header.Get("Authorization") != want {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) sparql(w http.ResponseWriter, r *http.Request) {
	if chi.URLParam(r, "repo") != Repository {
		http.Error(w, "Unknown repository", http.StatusNotFound)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	query := r.Form.Get("query")

	s.mu.Lock()
	s.queries = append(s.queries, query)
	fail := s.failStatus
	s.mu.Unlock()
	if fail != 0 {
		http.Error(w, "Internal error", fail)
		return
	}

	switch {
	case strings.Contains(query, "<http://www.ontotext.com/owlim/entity#id>"):
		s.existenceCheck(w, query)
	case strings.Contains(query, "autocomplete#enabled"):
		s.mu.Lock()
		enabled := s.autocompleteEnabled
		s.mu.Unlock()
		writeJSON(w, "application/sparql-results+json", map[string]any{"head": map[string]any{}, "boolean": enabled})
	case strings.Contains(query, "autocomplete#status"):
		s.mu.Lock()
		status := s.autocompleteStatus
		s.mu.Unlock()
		writeSolutions(w, []string{"status"}, statusRows(status))
	case strings.Contains(query, "RDFRank#status") || strings.Contains(query, "rank:status"):
		s.mu.Lock()
		status := s.rdfRankStatus
		s.mu.Unlock()
		writeSolutions(w, []string{"status"}, statusRows(status))
	case strings.HasPrefix(strings.ToUpper(strings.TrimSpace(stripPrologue(query))), "ASK"):
		writeJSON(w, "application/sparql-results+json", map[string]any{"head": map[string]any{}, "boolean": true})
	default:
		s.echo(w, r, query)
	}
}

// echo answers a query with the query text itself, so concurrent callers
// can tell their results apart.
func (s *Server) echo(w http.ResponseWriter, r *http.Request, query string) {
	accept := r.Header.Get("Accept")
	switch {
	case strings.Contains(accept, "sparql-results+json"):
		s.mu.Lock()
		body := s.selectBody
		s.mu.Unlock()
		if body != "" {
			w.Header().Set("Content-Type", "application/sparql-results+json")
			fmt.Fprint(w, body)
			return
		}
		writeSolutions(w, []string{"query"}, []map[string]any{
			{"query": map[string]string{"type": "literal", "value": query}},
		})
	case strings.Contains(accept, "text/turtle"):
		s.mu.Lock()
		body := s.graphBody
		s.mu.Unlock()
		w.Header().Set("Content-Type", "text/turtle")
		fmt.Fprint(w, body)
	default:
		w.Header().Set("Content-Type", accept)
		fmt.Fprint(w, query)
	}
}

func (s *Server) existenceCheck(w http.ResponseWriter, query string) {
	var rows []map[string]any
	if m := valuesBlock.FindStringSubmatch(query); m != nil {
		s.mu.Lock()
		for _, iri := range iriToken.FindAllStringSubmatch(m[1], -1) {
			if s.unknown[iri[1]] {
				rows = append(rows, map[string]any{"iri": map[string]string{"type": "uri", "value": iri[1]}})
			}
		}
		s.mu.Unlock()
	}
	writeSolutions(w, []string{"iri"}, rows)
}

func (s *Server) listNamespaces(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	rows := make([]map[string]any, 0, len(s.namespaces))
	for _, ns := range s.namespaces {
		rows = append(rows, map[string]any{
			"prefix":    map[string]string{"type": "literal", "value": ns.Prefix},
			"namespace": map[string]string{"type": "literal", "value": ns.IRI},
		})
	}
	s.mu.Unlock()
	writeSolutions(w, []string{"prefix", "namespace"}, rows)
}

func (s *Server) serveVersion(w http.ResponseWriter, r *http.Request) {
	s.versionCalls.Add(1)
	s.mu.Lock()
	v := s.version
	s.mu.Unlock()
	writeJSON(w, "application/json", map[string]string{"productVersion": v, "productType": "free"})
}

func (s *Server) repositoryConfig(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	fts := s.fts
	s.mu.Unlock()
	writeJSON(w, "application/json", map[string]any{
		"id": chi.URLParam(r, "repo"),
		"params": map[string]any{
			"enableFtsIndex": map[string]string{"name": "enableFtsIndex", "value": fts},
		},
	})
}

func (s *Server) named(list func() []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-GraphDB-Repository") != Repository {
			http.Error(w, "missing repository header", http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		items := make([]map[string]string, 0)
		for _, name := range list() {
			items = append(items, map[string]string{"name": name})
		}
		s.mu.Unlock()
		writeJSON(w, "application/json", items)
	}
}

func statusRows(status string) []map[string]any {
	if status == "" {
		return nil
	}
	return []map[string]any{{"status": map[string]string{"type": "literal", "value": status}}}
}

func stripPrologue(query string) string {
	for {
		q := strings.TrimSpace(query)
		upper := strings.ToUpper(q)
		if !strings.HasPrefix(upper, "PREFIX") && !strings.HasPrefix(upper, "BASE") {
			return q
		}
		end := strings.Index(q, ">")
		if end < 0 {
			return q
		}
		query = q[end+1:]
	}
}

func writeSolutions(w http.ResponseWriter, vars []string, rows []map[string]any) {
	if rows == nil {
		rows = []map[string]any{}
	}
	writeJSON(w, "application/sparql-results+json", map[string]any{
		"head":    map[string]any{"vars": vars},
		"results": map[string]any{"bindings": rows},
	})
}

func writeJSON(w http.ResponseWriter, contentType string, v any) {
	w.Header().Set("Content-Type", contentType)
	_ = json.NewEncoder(w).Encode(v)
}
