// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package sqlite_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sigil-dev/sparqlgate/internal/store/sqlite"
)

// openStore returns a query log in a fresh temp directory.
func openStore(t *testing.T) *sqlite.QueryLogStore {
	t.Helper()
	s, err := sqlite.NewQueryLogStore(filepath.Join(t.TempDir(), "querylog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}
