// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/sync/errgroup"

	"github.com/sigil-dev/sparqlgate/internal/graphdb"
	"github.com/sigil-dev/sparqlgate/internal/provider"
	"github.com/sigil-dev/sparqlgate/internal/sparql"
	"github.com/sigil-dev/sparqlgate/internal/store"
	"github.com/sigil-dev/sparqlgate/internal/tools"
	sigilerr "github.com/sigil-dev/sparqlgate/pkg/errors"
	"github.com/sigil-dev/sparqlgate/pkg/health"
)

// defaultLogLimit caps /api/v1/log when no limit is given.
const defaultLogLimit = 100

// RegisterServices sets the service dependencies and registers REST routes.
func (s *Server) RegisterServices(svc *Services) {
	s.services = svc
	s.registerRoutes()
}

func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "gateway-status",
		Method:      http.MethodGet,
		Path:        "/api/v1/status",
		Summary:     "Gateway and GraphDB status",
		Tags:        []string{"system"},
	}, s.handleStatus)

	huma.Register(s.api, huma.Operation{
		OperationID: "list-namespaces",
		Method:      http.MethodGet,
		Path:        "/api/v1/namespaces",
		Summary:     "List the repository's prefix bindings",
		Tags:        []string{"sparql"},
	}, s.handleListNamespaces)

	huma.Register(s.api, huma.Operation{
		OperationID: "run-sparql",
		Method:      http.MethodPost,
		Path:        "/api/v1/sparql",
		Summary:     "Validate, normalize and execute a read-only query",
		Tags:        []string{"sparql"},
	}, s.handleSPARQL)

	huma.Register(s.api, huma.Operation{
		OperationID: "normalize-sparql",
		Method:      http.MethodPost,
		Path:        "/api/v1/sparql/normalize",
		Summary:     "Parse a query and normalize its prefixes without executing it",
		Tags:        []string{"sparql"},
	}, s.handleNormalize)

	huma.Register(s.api, huma.Operation{
		OperationID: "list-tools",
		Method:      http.MethodGet,
		Path:        "/api/v1/tools",
		Summary:     "List agent tools",
		Tags:        []string{"tools"},
	}, s.handleListTools)

	huma.Register(s.api, huma.Operation{
		OperationID: "call-tool",
		Method:      http.MethodPost,
		Path:        "/api/v1/tools/{name}",
		Summary:     "Call an agent tool",
		Tags:        []string{"tools"},
	}, s.handleCallTool)

	huma.Register(s.api, huma.Operation{
		OperationID: "query-log",
		Method:      http.MethodGet,
		Path:        "/api/v1/log",
		Summary:     "List audited queries, newest first",
		Tags:        []string{"log"},
	}, s.handleQueryLog)
}

// --- Request/Response types for huma ---

// GraphDBStatus describes the upstream repository.
type GraphDBStatus struct {
	Repository   string         `json:"repository"`
	Version      string         `json:"version,omitempty"`
	FTSEnabled   *bool          `json:"fts_enabled,omitempty"`
	Autocomplete string         `json:"autocomplete,omitempty"`
	RDFRank      string         `json:"rdf_rank,omitempty"`
	Namespaces   int            `json:"namespaces"`
	Health       health.Metrics `json:"health"`
	Errors       []string       `json:"errors,omitempty" doc:"Probes that failed"`
}

type statusOutput struct {
	Body struct {
		Status  string        `json:"status" example:"ok" doc:"Gateway status"`
		Version string        `json:"version"`
		Tools   []string      `json:"tools"`
		GraphDB GraphDBStatus `json:"graphdb"`
	}
}

type listNamespacesOutput struct {
	Body struct {
		Namespaces []sparql.Namespace `json:"namespaces"`
	}
}

type sparqlInput struct {
	Body struct {
		Query    string `json:"query" minLength:"1" doc:"SPARQL SELECT, ASK, CONSTRUCT or DESCRIBE query"`
		Format   string `json:"format,omitempty" doc:"Result format, defaults by query type"`
		Validate *bool  `json:"validate,omitempty" doc:"Check prefixes and IRIs before executing (server default when omitted)"`
	}
}

type sparqlOutput struct {
	Body struct {
		Query       string           `json:"query" doc:"Finalized query text"`
		Type        sparql.QueryType `json:"type,omitempty"`
		Format      graphdb.Format   `json:"format"`
		ContentType string           `json:"content_type"`
		Result      any              `json:"result" doc:"JSON results inline, other formats as text"`
	}
}

type normalizeInput struct {
	Body struct {
		Query string `json:"query" minLength:"1"`
	}
}

type normalizeOutput struct {
	Body struct {
		Query       string              `json:"query" doc:"Finalized query text"`
		Type        sparql.QueryType    `json:"type"`
		Corrections []sparql.Correction `json:"corrections"`
	}
}

type listToolsOutput struct {
	Body struct {
		Tools []provider.ToolDefinition `json:"tools"`
	}
}

type callToolInput struct {
	Name string         `path:"name"`
	Body map[string]any `required:"false" doc:"Tool arguments; checked against the tool's input schema"`
}

type callToolOutput struct {
	Body struct {
		Tool   string `json:"tool"`
		Output string `json:"output"`
	}
}

type queryLogInput struct {
	Source  string `query:"source" enum:"api,mcp,cli,tool" doc:"Filter by source"`
	Tool    string `query:"tool"`
	Outcome string `query:"outcome" doc:"ok or an error code"`
	From    string `query:"from" doc:"RFC 3339 lower bound (inclusive)"`
	To      string `query:"to" doc:"RFC 3339 upper bound (exclusive)"`
	Limit   int    `query:"limit" minimum:"0" maximum:"1000"`
	Offset  int    `query:"offset" minimum:"0"`
}

type queryLogOutput struct {
	Body struct {
		Entries []*store.QueryLogEntry `json:"entries"`
	}
}

// --- Handlers ---

func (s *Server) handleStatus(ctx context.Context, _ *struct{}) (*statusOutput, error) {
	g := s.services.graph
	st := GraphDBStatus{
		Repository: g.Repository(),
		Namespaces: g.Registry().Len(),
		Health:     g.Health(),
	}

	// Probes are independent; a failing one is reported, not fatal.
	var (
		eg       errgroup.Group
		version  string
		fts      bool
		auto     graphdb.AutocompleteStatus
		rank     graphdb.RDFRankStatus
		versionE error
		ftsE     error
		autoE    error
		rankE    error
	)
	eg.Go(func() error { version, versionE = g.Version(ctx); return nil })
	eg.Go(func() error { fts, ftsE = g.FTSEnabled(ctx); return nil })
	eg.Go(func() error { auto, autoE = g.AutocompleteStatus(ctx); return nil })
	eg.Go(func() error { rank, rankE = g.RDFRankStatus(ctx); return nil })
	_ = eg.Wait()

	for _, e := range []error{versionE, ftsE, autoE, rankE} {
		if e != nil {
			st.Errors = append(st.Errors, e.Error())
		}
	}
	st.Version = version
	if ftsE == nil {
		st.FTSEnabled = &fts
	}
	if autoE == nil {
		st.Autocomplete = string(auto)
	}
	if rankE == nil {
		st.RDFRank = string(rank)
	}

	out := &statusOutput{}
	out.Body.Status = st.Health.Status()
	out.Body.Version = s.cfg.Version
	out.Body.Tools = s.services.toolkit.Names()
	out.Body.GraphDB = st
	return out, nil
}

func (s *Server) handleListNamespaces(_ context.Context, _ *struct{}) (*listNamespacesOutput, error) {
	out := &listNamespacesOutput{}
	out.Body.Namespaces = s.services.graph.Registry().Namespaces()
	return out, nil
}

func (s *Server) handleSPARQL(ctx context.Context, input *sparqlInput) (*sparqlOutput, error) {
	validate := s.services.validate
	if input.Body.Validate != nil {
		validate = *input.Body.Validate
	}
	opts := []graphdb.EvalOption{graphdb.WithValidation(validate)}
	if input.Body.Format != "" {
		if _, ok := graphdb.ParseFormat(input.Body.Format); !ok {
			return nil, apiError(sigilerr.Errorf(sigilerr.CodeServerRequestInvalid,
				"unknown result format %q", input.Body.Format))
		}
		opts = append(opts, graphdb.WithFormat(input.Body.Format))
	}

	start := time.Now()
	res, err := s.services.graph.Eval(ctx, input.Body.Query, opts...)
	s.audit(ctx, input.Body.Query, res, time.Since(start), err)
	if err != nil {
		return nil, apiError(err)
	}

	out := &sparqlOutput{}
	out.Body.Query = res.Query
	out.Body.Type = res.Type
	out.Body.Format = res.Format
	out.Body.ContentType = res.ContentType
	out.Body.Result = resultPayload(res)
	return out, nil
}

func (s *Server) handleNormalize(ctx context.Context, input *normalizeInput) (*normalizeOutput, error) {
	n, err := s.services.graph.Normalize(ctx, input.Body.Query)
	if err != nil {
		return nil, apiError(err)
	}
	out := &normalizeOutput{}
	out.Body.Query = n.Text()
	out.Body.Type = n.Query.Type
	out.Body.Corrections = n.Corrections
	if out.Body.Corrections == nil {
		out.Body.Corrections = []sparql.Correction{}
	}
	return out, nil
}

func (s *Server) handleListTools(_ context.Context, _ *struct{}) (*listToolsOutput, error) {
	out := &listToolsOutput{}
	out.Body.Tools = s.services.toolkit.Definitions()
	return out, nil
}

func (s *Server) handleCallTool(ctx context.Context, input *callToolInput) (*callToolOutput, error) {
	var args json.RawMessage
	if input.Body != nil {
		raw, err := json.Marshal(input.Body)
		if err != nil {
			return nil, apiError(sigilerr.Wrap(err, sigilerr.CodeServerRequestInvalid, "encoding tool arguments"))
		}
		args = raw
	}
	output, err := s.services.toolkit.Call(tools.WithSource(ctx, store.SourceAPI), input.Name, args)
	if err != nil {
		return nil, apiError(err)
	}
	out := &callToolOutput{}
	out.Body.Tool = input.Name
	out.Body.Output = output
	return out, nil
}

func (s *Server) handleQueryLog(ctx context.Context, input *queryLogInput) (*queryLogOutput, error) {
	if s.services.queryLog == nil {
		return nil, huma.Error503ServiceUnavailable("query log not configured")
	}
	filter := store.QueryLogFilter{
		Source:  store.Source(input.Source),
		Tool:    input.Tool,
		Outcome: input.Outcome,
		Limit:   input.Limit,
		Offset:  input.Offset,
	}
	if filter.Limit == 0 {
		filter.Limit = defaultLogLimit
	}
	var err error
	if filter.From, err = parseTimeParam("from", input.From); err != nil {
		return nil, apiError(err)
	}
	if filter.To, err = parseTimeParam("to", input.To); err != nil {
		return nil, apiError(err)
	}

	entries, err := s.services.queryLog.Query(ctx, filter)
	if err != nil {
		return nil, apiError(err)
	}
	out := &queryLogOutput{}
	out.Body.Entries = entries
	if out.Body.Entries == nil {
		out.Body.Entries = []*store.QueryLogEntry{}
	}
	return out, nil
}

// audit records a query executed through /api/v1/sparql. Failures are
// logged and never affect the response.
func (s *Server) audit(ctx context.Context, raw string, res *graphdb.Result, elapsed time.Duration, callErr error) {
	if s.services.queryLog == nil {
		return
	}
	entry := &store.QueryLogEntry{
		Source:   store.SourceAPI,
		RawQuery: raw,
		Outcome:  store.OutcomeOf(callErr),
		Duration: elapsed,
	}
	if res != nil {
		entry.FinalQuery = res.Query
	}
	if err := s.services.queryLog.Append(context.WithoutCancel(ctx), entry); err != nil {
		slog.Warn("query log append failed", "error", err)
	}
}

func parseTimeParam(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, sigilerr.Wrapf(err, sigilerr.CodeServerRequestInvalid, "parameter %s must be an RFC 3339 time", name)
	}
	return t, nil
}

// resultPayload inlines JSON bodies and returns anything else as text.
func resultPayload(res *graphdb.Result) any {
	if res.Format == graphdb.FormatJSON || res.Format == graphdb.FormatJSONLD {
		if json.Valid(res.Body) {
			return json.RawMessage(res.Body)
		}
	}
	return string(res.Body)
}
