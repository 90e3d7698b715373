// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigil-dev/sparqlgate/internal/store"
	"github.com/sigil-dev/sparqlgate/internal/store/sqlite"
)

func TestBackendRegistered(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")

	s, err := store.NewQueryLogStore(&store.StorageConfig{DataDir: dir})
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	_, ok := s.(*sqlite.QueryLogStore)
	assert.True(t, ok, "empty backend resolves to sqlite, got %T", s)
	assert.FileExists(t, filepath.Join(dir, sqlite.DatabaseFile))

	require.NoError(t, s.Append(context.Background(), &store.QueryLogEntry{Source: store.SourceAPI, Outcome: store.OutcomeOK}))
}
