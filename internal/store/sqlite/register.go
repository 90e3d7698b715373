// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package sqlite

import (
	"os"
	"path/filepath"

	"github.com/sigil-dev/sparqlgate/internal/store"
	sigilerr "github.com/sigil-dev/sparqlgate/pkg/errors"
)

// DatabaseFile is the query log file name inside the data directory.
const DatabaseFile = "querylog.db"

func init() {
	store.RegisterBackend("sqlite", newQueryLogStore)
}

func newQueryLogStore(dataDir string) (store.QueryLogStore, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, sigilerr.Wrap(err, sigilerr.CodeStoreDatabaseFailure, "creating data dir "+dataDir)
	}
	return NewQueryLogStore(filepath.Join(dataDir, DatabaseFile))
}
