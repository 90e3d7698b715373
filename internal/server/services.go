// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package server

import (
	"context"

	"github.com/sigil-dev/sparqlgate/internal/graphdb"
	"github.com/sigil-dev/sparqlgate/internal/sparql"
	"github.com/sigil-dev/sparqlgate/internal/store"
	"github.com/sigil-dev/sparqlgate/internal/tools"
	sigilerr "github.com/sigil-dev/sparqlgate/pkg/errors"
	"github.com/sigil-dev/sparqlgate/pkg/health"
)

// Gateway is the part of the GraphDB client the routes use.
type Gateway interface {
	Eval(ctx context.Context, query string, opts ...graphdb.EvalOption) (*graphdb.Result, error)
	Normalize(ctx context.Context, query string) (*sparql.Normalized, error)
	Registry() *sparql.Registry
	Repository() string
	Version(ctx context.Context) (string, error)
	FTSEnabled(ctx context.Context) (bool, error)
	AutocompleteStatus(ctx context.Context) (graphdb.AutocompleteStatus, error)
	RDFRankStatus(ctx context.Context) (graphdb.RDFRankStatus, error)
	Health() health.Metrics
}

var _ Gateway = (*graphdb.Client)(nil)

// Services holds dependencies injected into route handlers.
type Services struct {
	graph    Gateway
	toolkit  *tools.Toolkit
	queryLog store.QueryLogStore // optional; nil = no auditing and no /api/v1/log
	validate bool
}

// ServiceOption configures Services.
type ServiceOption func(*Services)

// WithDefaultValidation sets whether /api/v1/sparql validates queries when
// the request does not say. The default is true.
func WithDefaultValidation(validate bool) ServiceOption {
	return func(s *Services) { s.validate = validate }
}

// NewServices creates a Services instance. The query log may be nil.
func NewServices(g Gateway, toolkit *tools.Toolkit, queryLog store.QueryLogStore, opts ...ServiceOption) (*Services, error) {
	if g == nil {
		return nil, sigilerr.New(sigilerr.CodeServerConfigInvalid, "graphdb client is required")
	}
	if toolkit == nil {
		return nil, sigilerr.New(sigilerr.CodeServerConfigInvalid, "toolkit is required")
	}
	svc := &Services{graph: g, toolkit: toolkit, queryLog: queryLog, validate: true}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}
