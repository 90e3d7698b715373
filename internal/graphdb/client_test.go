// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package graphdb_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigil-dev/sparqlgate/internal/graphdb"
	"github.com/sigil-dev/sparqlgate/internal/graphdb/graphdbtest"
	"github.com/sigil-dev/sparqlgate/internal/sparql"
	sigilerr "github.com/sigil-dev/sparqlgate/pkg/errors"
)

func TestNewChecksConnectivityAndLoadsRegistry(t *testing.T) {
	fake := graphdbtest.New(t)
	c := newClient(t, fake)

	assert.Equal(t, "ASK {?s ?p ?o}", fake.Queries()[0])
	ns, ok := c.Registry().Lookup("voc")
	assert.True(t, ok)
	assert.Equal(t, "https://swapi.co/vocabulary/", ns)
	assert.Equal(t, len(graphdbtest.SWAPINamespaces), c.Registry().Len())
	assert.Equal(t, graphdbtest.Repository, c.Repository())
}

func TestNewRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  graphdb.Config
	}{
		{"no url", graphdb.Config{Repository: "x"}},
		{"relative url", graphdb.Config{BaseURL: "localhost:7200", Repository: "x"}},
		{"no repository", graphdb.Config{BaseURL: "http://localhost:7200"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := graphdb.New(context.Background(), tt.cfg)
			assert.True(t, sigilerr.HasCode(err, sigilerr.CodeGraphDBConfigInvalid))
		})
	}
}

func TestNewUnknownRepository(t *testing.T) {
	fake := graphdbtest.New(t)
	_, err := graphdb.New(context.Background(), graphdb.Config{BaseURL: fake.URL, Repository: "missing"})
	require.Error(t, err)
	assert.True(t, sigilerr.IsTransport(err))
	assert.Equal(t, http.StatusNotFound, sigilerr.FieldsOf(err)["status"])
}

func TestNewRejectsConflictingNamespaces(t *testing.T) {
	fake := graphdbtest.New(t, graphdbtest.WithNamespaces(
		sparql.Namespace{Prefix: "voc", IRI: "https://swapi.co/vocabulary/"},
		sparql.Namespace{Prefix: "voc", IRI: "https://swapi.co/other/"},
	))
	_, err := graphdb.New(context.Background(), graphdb.Config{BaseURL: fake.URL, Repository: graphdbtest.Repository})
	assert.True(t, sigilerr.HasCode(err, sigilerr.CodeGraphDBResponseInvalid))
}

func TestAuthHeader(t *testing.T) {
	fake := graphdbtest.New(t, graphdbtest.WithAuth("Basic YWRtaW46cm9vdA=="))

	_, err := graphdb.New(context.Background(), graphdb.Config{BaseURL: fake.URL, Repository: graphdbtest.Repository})
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, sigilerr.FieldsOf(err)["status"])

	c := newClient(t, fake, func(cfg *graphdb.Config) { cfg.AuthHeader = "Basic YWRtaW46cm9vdA==" })
	ok, err := c.FTSEnabled(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReadTimeoutIsTransportTimeout(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	t.Cleanup(slow.Close)

	_, err := graphdb.New(context.Background(), graphdb.Config{
		BaseURL:        slow.URL,
		Repository:     "x",
		ConnectTimeout: 50 * time.Millisecond,
		ReadTimeout:    50 * time.Millisecond,
	})
	require.Error(t, err)
	assert.True(t, sigilerr.IsTransport(err))
	assert.Equal(t, sigilerr.CodeGraphDBTransportTimeout, sigilerr.CodeOf(err))
	assert.Equal(t, http.StatusGatewayTimeout, sigilerr.HTTPStatus(err))
}

func TestUnreachableServerIsTransportFailure(t *testing.T) {
	down := httptest.NewServer(http.NotFoundHandler())
	url := down.URL
	down.Close()

	_, err := graphdb.New(context.Background(), graphdb.Config{BaseURL: url, Repository: "x"})
	require.Error(t, err)
	assert.Equal(t, sigilerr.CodeGraphDBTransportFailure, sigilerr.CodeOf(err))
}

func TestReconnectReloadsRegistry(t *testing.T) {
	fake := graphdbtest.New(t)
	c := newClient(t, fake)

	fake.Update(graphdbtest.WithNamespaces(sparql.Namespace{Prefix: "sw", IRI: "https://swapi.co/vocabulary/"}))
	require.NoError(t, c.Reconnect(context.Background()))

	_, ok := c.Registry().Lookup("voc")
	assert.False(t, ok)
	_, ok = c.Registry().Lookup("sw")
	assert.True(t, ok)
}

func TestHealthTrackerCooldown(t *testing.T) {
	h := graphdb.NewHealthTracker(time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	h.SetNowFunc(func() time.Time { return now })

	assert.True(t, h.Available())
	assert.Equal(t, "ok", h.Metrics().Status())

	h.RecordFailure(sigilerr.New(sigilerr.CodeGraphDBTransportFailure, "connection refused"))
	m := h.Metrics()
	assert.False(t, m.Available)
	assert.Equal(t, "unavailable", m.Status())
	assert.Equal(t, "connection refused", m.LastError)
	require.NotNil(t, m.CooldownUntil)
	assert.Equal(t, now.Add(time.Minute), *m.CooldownUntil)

	now = now.Add(2 * time.Minute)
	assert.True(t, h.Available())
	assert.Equal(t, "recovering", h.Metrics().Status())

	h.RecordSuccess()
	m = h.Metrics()
	assert.Nil(t, m.CooldownUntil)
	assert.Equal(t, int64(1), m.FailureCount)
}
