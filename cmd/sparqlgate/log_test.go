// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigil-dev/sparqlgate/internal/store"
	sigilerr "github.com/sigil-dev/sparqlgate/pkg/errors"
)

func TestLog_Empty(t *testing.T) {
	newTestEnv(t)

	out, _, err := execute(t, "", "log")
	require.NoError(t, err)
	assert.Equal(t, "No queries recorded.\n", out)

	out, _, err = execute(t, "", "log", "-o", "json")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)
}

func TestLog_Filters(t *testing.T) {
	newTestEnv(t)

	_, _, err := execute(t, "", "query", eyeColorQuery)
	require.NoError(t, err)
	_, _, err = execute(t, "", "query", "SELECT ?s { ?s foo:bar ?o }")
	require.Error(t, err)

	tests := []struct {
		name string
		args []string
		want int
	}{
		{name: "all", args: nil, want: 2},
		{name: "by source", args: []string{"--source", "cli"}, want: 2},
		{name: "other source", args: []string{"--source", "mcp"}, want: 0},
		{name: "ok only", args: []string{"--outcome", "ok"}, want: 1},
		{name: "failures", args: []string{"--outcome", string(sigilerr.CodeSPARQLPrefixUndefined)}, want: 1},
		{name: "limit", args: []string{"--limit", "1"}, want: 1},
		{name: "since", args: []string{"--since", "1h"}, want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(t, "", append([]string{"log", "-o", "json"}, tt.args...)...)
			require.NoError(t, err)

			var entries []store.QueryLogEntry
			require.NoError(t, json.Unmarshal([]byte(out), &entries))
			assert.Len(t, entries, tt.want)
		})
	}
}

func TestLog_Table(t *testing.T) {
	newTestEnv(t)

	_, _, err := execute(t, "", "query", eyeColorQuery)
	require.NoError(t, err)

	out, _, err := execute(t, "", "log")
	require.NoError(t, err)
	for _, want := range []string{"TIME", "SOURCE", "OUTCOME", "QUERY", "cli", "ok", `?s voc:eyeColor "blue"`} {
		assert.Contains(t, out, want)
	}
}

func TestLog_InvalidFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "source", args: []string{"log", "--source", "email"}},
		{name: "limit", args: []string{"log", "--limit", "0"}},
		{name: "output", args: []string{"log", "-o", "csv"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			newTestEnv(t)
			_, _, err := execute(t, "", tt.args...)
			require.Error(t, err)
			assert.True(t, sigilerr.HasCode(err, sigilerr.CodeCLIInputInvalid))
		})
	}
}

func TestWriteLog_JSONKeepsFields(t *testing.T) {
	buf := new(bytes.Buffer)
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, writeLog(buf, []*store.QueryLogEntry{{
		ID: "1", Timestamp: ts, Source: store.SourceTool, Tool: "sparql_query",
		RawQuery: "ASK {}", Outcome: store.OutcomeOK, Duration: time.Second,
	}}, "json"))

	var got []store.QueryLogEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "sparql_query", got[0].Tool)
	assert.True(t, ts.Equal(got[0].Timestamp))
}

func TestOneLine(t *testing.T) {
	assert.Equal(t, "SELECT * { ?s ?p ?o }", oneLine("SELECT *\n{\n  ?s ?p ?o\n}", 60))
	assert.Equal(t, "abcd…", oneLine("abcdefgh", 5))
	assert.Equal(t, "äöüß", oneLine("äöüß", 4))
}
