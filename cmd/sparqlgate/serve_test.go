// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServe_StartsAndShutsDown(t *testing.T) {
	newTestEnv(t)
	addr := closedAddress(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	root := NewRootCmd()
	out := new(syncBuffer)
	root.SetOut(out)
	root.SetErr(new(syncBuffer))
	root.SetArgs([]string{"serve", "--listen", addr})

	errCh := make(chan error, 1)
	go func() { errCh <- root.ExecuteContext(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/health")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)
	assert.Contains(t, out.String(), "serving starwars on "+addr)

	resp, err := http.Post("http://"+addr+"/api/v1/sparql", "application/json",
		strings.NewReader(`{"query":"SELECT ?s { ?s voc:eyeColor \"blue\" }"}`))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Query string `json:"query"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, strings.HasPrefix(body.Query, "PREFIX voc: <https://swapi.co/vocabulary/>"))

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("serve did not shut down")
	}
}

func TestServe_InvalidConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	_, _, err := execute(t, "", "serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "graphdb.repository_id")
}

func TestMCP_Help(t *testing.T) {
	out, _, err := execute(t, "", "mcp", "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "stdin and stdout")
}
