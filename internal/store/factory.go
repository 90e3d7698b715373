// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package store

import (
	"sync"

	sigilerr "github.com/sigil-dev/sparqlgate/pkg/errors"
)

// QueryLogFactory opens a query log store rooted at dataDir.
type QueryLogFactory func(dataDir string) (QueryLogStore, error)

var (
	factories   = map[string]QueryLogFactory{"memory": func(string) (QueryLogStore, error) { return NewMemoryQueryLog(), nil }}
	factoriesMu sync.RWMutex
)

// RegisterBackend registers a factory for a named storage backend.
// Backend packages call this from init(). This function is goroutine-safe.
func RegisterBackend(name string, factory QueryLogFactory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = factory
}

func resolveBackend(cfg *StorageConfig) string {
	if cfg.Backend == "" {
		return "sqlite"
	}
	return cfg.Backend
}

// NewQueryLogStore opens the query log for the configured backend.
func NewQueryLogStore(cfg *StorageConfig) (QueryLogStore, error) {
	backend := resolveBackend(cfg)

	factoriesMu.RLock()
	factory, ok := factories[backend]
	factoriesMu.RUnlock()
	if !ok {
		return nil, sigilerr.New(sigilerr.CodeStoreBackendUnsupported, "unsupported storage backend: "+backend,
			sigilerr.Field("backend", backend))
	}

	return factory(cfg.DataDir)
}
