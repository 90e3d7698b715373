// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package tools_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sigil-dev/sparqlgate/internal/graphdb"
	"github.com/sigil-dev/sparqlgate/internal/graphdb/graphdbtest"
	"github.com/sigil-dev/sparqlgate/internal/provider"
)

func newClient(t *testing.T, fake *graphdbtest.Server) *graphdb.Client {
	t.Helper()
	c, err := graphdb.New(context.Background(), graphdb.Config{BaseURL: fake.URL, Repository: graphdbtest.Repository})
	require.NoError(t, err)
	return c
}

// stubTool answers with a fixed output or error, or blocks until its
// context ends.
type stubTool struct {
	name  string
	out   string
	err   error
	block bool
}

func (s *stubTool) Definition() provider.ToolDefinition {
	return provider.ToolDefinition{
		Name:        s.name,
		Description: "stub",
		InputSchema: map[string]any{"type": "object"},
	}
}

func (s *stubTool) Call(ctx context.Context, _ json.RawMessage) (string, error) {
	if s.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return s.out, s.err
}

func args(t *testing.T, v map[string]any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

// bindingValues extracts every value bound to variable from a JSON result.
func bindingValues(t *testing.T, raw []byte, variable string) []string {
	t.Helper()
	var sol graphdb.Solutions
	require.NoError(t, json.Unmarshal(raw, &sol))
	values := make([]string, 0, len(sol.Results.Bindings))
	for _, row := range sol.Results.Bindings {
		values = append(values, row[variable].Value)
	}
	return values
}
