// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStatusServer(t *testing.T, body any) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/status" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)

	old := defaultHTTPClient
	defaultHTTPClient = srv.Client()
	t.Cleanup(func() { defaultHTTPClient = old })

	return strings.TrimPrefix(srv.URL, "http://")
}

// closedAddress returns an address nothing listens on.
func closedAddress(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func TestStatus_Running(t *testing.T) {
	addr := newStatusServer(t, map[string]any{
		"status":  "ok",
		"version": "1.2.3",
		"tools":   []string{"sparql_query", "now"},
		"graphdb": map[string]any{
			"repository":   "starwars",
			"version":      "10.7.0",
			"fts_enabled":  true,
			"autocomplete": "READY",
			"rdf_rank":     "COMPUTED",
			"namespaces":   5,
			"health":       map[string]any{"available": true},
		},
	})

	out, _, err := execute(t, "", "status", "--address", addr)
	require.NoError(t, err)

	for _, want := range []string{"sparqlgate 1.2.3 at " + addr, "ok", "starwars", "10.7.0", "enabled", "READY", "COMPUTED", "sparql_query, now"} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "Probe failed")
}

func TestStatus_ProbeErrors(t *testing.T) {
	addr := newStatusServer(t, map[string]any{
		"status": "unavailable",
		"graphdb": map[string]any{
			"repository": "starwars",
			"health":     map[string]any{"available": false, "last_error": "connection refused"},
			"errors":     []string{"graphdb version request failed"},
		},
	})

	out, _, err := execute(t, "", "status", "--address", addr)
	require.NoError(t, err)
	assert.Contains(t, out, "unavailable")
	assert.Contains(t, out, "connection refused")
	assert.Contains(t, out, "graphdb version request failed")
	assert.Contains(t, out, "unknown", "FTS state is unknown when the probe failed")
}

func TestStatus_NotRunning(t *testing.T) {
	addr := closedAddress(t)

	out, _, err := execute(t, "", "status", "--address", addr)
	require.NoError(t, err)
	assert.Equal(t, "Gateway at "+addr+" is not running (connection refused)\n", out)
}

func TestGatewayAddress_FromConfig(t *testing.T) {
	newTestEnv(t)
	t.Setenv("SPARQLGATE_NETWORKING_LISTEN", "127.0.0.1:9999")

	cmd := newStatusCmd()
	cmd.Flags().String("config", "", "")
	assert.Equal(t, "127.0.0.1:9999", gatewayAddress(cmd))
}

func TestGatewayAddress_DefaultWhenConfigInvalid(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cmd := newStatusCmd()
	cmd.Flags().String("config", "", "")
	assert.Equal(t, defaultGatewayAddress, gatewayAddress(cmd))
}
