// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/zalando/go-keyring"

	"github.com/sigil-dev/sparqlgate/internal/graphdb/graphdbtest"
	"github.com/sigil-dev/sparqlgate/internal/secrets"
	sigilerr "github.com/sigil-dev/sparqlgate/pkg/errors"
)

func init() {
	keyring.MockInit()
}

// testEnv points the configuration at a fake GraphDB through SPARQLGATE_*
// variables and isolates HOME so no user config is picked up.
type testEnv struct {
	fake    *graphdbtest.Server
	dataDir string
}

func newTestEnv(t *testing.T, opts ...graphdbtest.Option) *testEnv {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	fake := graphdbtest.New(t, opts...)
	dataDir := t.TempDir()
	t.Setenv("SPARQLGATE_GRAPHDB_BASE_URL", fake.URL)
	t.Setenv("SPARQLGATE_GRAPHDB_REPOSITORY_ID", graphdbtest.Repository)
	t.Setenv("SPARQLGATE_STORAGE_DATA_DIR", dataDir)
	t.Setenv("SPARQLGATE_LOGGING_LEVEL", "warn")

	return &testEnv{fake: fake, dataDir: dataDir}
}

// execute runs the root command with args and stdin and returns stdout and
// stderr.
func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	return executeContext(context.Background(), t, stdin, args...)
}

func executeContext(ctx context.Context, t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	root := NewRootCmd()
	out, errOut := new(bytes.Buffer), new(bytes.Buffer)
	root.SetOut(out)
	root.SetErr(errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	return out.String(), errOut.String(), err
}

// useSecretStore swaps secretStoreFactory for the duration of the test.
func useSecretStore(t *testing.T, s secrets.Store) {
	t.Helper()
	old := secretStoreFactory
	secretStoreFactory = func() secrets.Store { return s }
	t.Cleanup(func() { secretStoreFactory = old })
}

// mockSecretStore is an in-memory secrets.Store for testing.
type mockSecretStore struct {
	mu   sync.Mutex
	data map[string]string // service/key -> value
}

func newMockSecretStore() *mockSecretStore {
	return &mockSecretStore{data: make(map[string]string)}
}

func (m *mockSecretStore) Store(service, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[service+"/"+key] = value
	return nil
}

func (m *mockSecretStore) Retrieve(service, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[service+"/"+key]
	if !ok {
		return "", sigilerr.Errorf(sigilerr.CodeSecretNotFound, "not found")
	}
	return v, nil
}

func (m *mockSecretStore) Delete(service, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[service+"/"+key]; !ok {
		return sigilerr.Errorf(sigilerr.CodeSecretNotFound, "not found")
	}
	delete(m.data, service+"/"+key)
	return nil
}

func (m *mockSecretStore) List(service string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for k := range m.data {
		if name, ok := strings.CutPrefix(k, service+"/"); ok {
			keys = append(keys, name)
		}
	}
	return keys, nil
}

// syncBuffer is a bytes.Buffer safe for a writer and a polling reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
