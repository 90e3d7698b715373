// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package tools

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sigil-dev/sparqlgate/internal/provider"
)

// NowLayout is the yyyy-mm-ddTHH:MM:SS format returned by the now tool.
const NowLayout = "2006-01-02T15:04:05"

// Now returns the current UTC date and time.
type Now struct {
	clock func() time.Time
}

func NewNow() *Now { return &Now{clock: time.Now} }

// SetClock replaces the time source.
func (n *Now) SetClock(clock func() time.Time) { n.clock = clock }

func (n *Now) Definition() provider.ToolDefinition {
	return provider.ToolDefinition{
		Name:        "now",
		Description: "Returns the current UTC date time in yyyy-mm-ddTHH:MM:SS format. Do not reuse responses.",
		InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
	}
}

func (n *Now) Call(context.Context, json.RawMessage) (string, error) {
	return n.clock().UTC().Format(NowLayout), nil
}
