// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigil-dev/sparqlgate/internal/store"
	"github.com/sigil-dev/sparqlgate/internal/store/sqlite"
	sigilerr "github.com/sigil-dev/sparqlgate/pkg/errors"
)

func TestQueryLogStore_Append_and_Query(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	base := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	entries := []*store.QueryLogEntry{
		{
			ID: "q-1", Timestamp: base, Source: store.SourceAPI,
			RawQuery: "SELECT ?s { ?s voc:name ?n }", FinalQuery: "PREFIX voc: <https://swapi.co/vocabulary/> SELECT ?s { ?s voc:name ?n }",
			Outcome: store.OutcomeOK, Duration: 12 * time.Millisecond,
		},
		{
			ID: "q-2", Timestamp: base.Add(time.Second), Source: store.SourceMCP, Tool: "sparql_query",
			RawQuery: "SELECT ?s { ?s voc:hairColour ?c }",
			Outcome:  string(sigilerr.CodeSPARQLIRINotStored), Duration: 3 * time.Millisecond,
		},
		{
			ID: "q-3", Timestamp: base.Add(2 * time.Second), Source: store.SourceTool, Tool: "autocomplete_search",
			RawQuery: "SELECT ?iri { }", Outcome: store.OutcomeOK,
		},
	}
	for _, e := range entries {
		require.NoError(t, s.Append(ctx, e))
	}

	all, err := s.Query(ctx, store.QueryLogFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "q-3", all[0].ID, "newest first")
	assert.Equal(t, "q-1", all[2].ID)
	assert.Equal(t, entries[0].FinalQuery, all[2].FinalQuery)
	assert.Equal(t, 12*time.Millisecond, all[2].Duration)
	assert.True(t, base.Equal(all[2].Timestamp))

	bySource, err := s.Query(ctx, store.QueryLogFilter{Source: store.SourceMCP})
	require.NoError(t, err)
	require.Len(t, bySource, 1)
	assert.Equal(t, "q-2", bySource[0].ID)

	byTool, err := s.Query(ctx, store.QueryLogFilter{Tool: "autocomplete_search"})
	require.NoError(t, err)
	assert.Len(t, byTool, 1)

	failures, err := s.Query(ctx, store.QueryLogFilter{Outcome: string(sigilerr.CodeSPARQLIRINotStored)})
	require.NoError(t, err)
	assert.Len(t, failures, 1)

	ranged, err := s.Query(ctx, store.QueryLogFilter{
		From: base.Add(500 * time.Millisecond),
		To:   base.Add(2 * time.Second),
	})
	require.NoError(t, err)
	require.Len(t, ranged, 1)
	assert.Equal(t, "q-2", ranged[0].ID)

	limited, err := s.Query(ctx, store.QueryLogFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)

	offsetted, err := s.Query(ctx, store.QueryLogFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, offsetted, 1)
	assert.NotEqual(t, limited[0].ID, offsetted[0].ID)
}

func TestQueryLogStore_AppendAssignsIDAndTimestamp(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	entry := &store.QueryLogEntry{Source: store.SourceCLI, RawQuery: "ASK {}", Outcome: store.OutcomeOK}
	before := time.Now().UTC()
	require.NoError(t, s.Append(ctx, entry))

	_, err := uuid.Parse(entry.ID)
	assert.NoError(t, err, "generated ID must be a UUID")
	assert.False(t, entry.Timestamp.Before(before.Add(-time.Second)))

	got, err := s.Query(ctx, store.QueryLogFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, entry.ID, got[0].ID)
}

func TestQueryLogStore_AppendRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	tests := []struct {
		name  string
		entry store.QueryLogEntry
	}{
		{name: "unknown source", entry: store.QueryLogEntry{Source: "web", Outcome: store.OutcomeOK}},
		{name: "missing outcome", entry: store.QueryLogEntry{Source: store.SourceAPI}},
		{name: "negative duration", entry: store.QueryLogEntry{Source: store.SourceAPI, Outcome: store.OutcomeOK, Duration: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Append(ctx, &tt.entry)
			require.Error(t, err)
			assert.True(t, sigilerr.IsInvalidInput(err), "err = %v", err)
		})
	}
}

func TestQueryLogStore_DuplicateID(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	e := &store.QueryLogEntry{ID: "dup", Source: store.SourceAPI, Outcome: store.OutcomeOK}
	require.NoError(t, s.Append(ctx, e))
	err := s.Append(ctx, &store.QueryLogEntry{ID: "dup", Source: store.SourceAPI, Outcome: store.OutcomeOK})
	require.Error(t, err)
	assert.True(t, sigilerr.HasCode(err, sigilerr.CodeStoreDatabaseFailure))
}

func TestQueryLogStore_ReopenKeepsEntries(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "querylog.db")

	s, err := sqlite.NewQueryLogStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Append(ctx, &store.QueryLogEntry{Source: store.SourceAPI, Outcome: store.OutcomeOK}))
	require.NoError(t, s.Close())

	s, err = sqlite.NewQueryLogStore(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	got, err := s.Query(ctx, store.QueryLogFilter{})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
