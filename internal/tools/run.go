// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package tools

import (
	"context"
	"encoding/json"
	"log/slog"
	"slices"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/sigil-dev/sparqlgate/internal/provider"
	sigilerr "github.com/sigil-dev/sparqlgate/pkg/errors"
)

const (
	// DefaultMaxTotalOutput is the character budget for all outputs of one Run.
	DefaultMaxTotalOutput = 256000
	// DefaultMinSingleOutput is the length below which an output is never shortened.
	DefaultMinSingleOutput = 10000
)

// maxParallelCalls limits concurrent tool calls within one Run.
const maxParallelCalls = 8

// Run answers a batch of tool calls concurrently. A failing call becomes an
// error result carrying the error message; Run itself fails only if the
// combined outputs cannot be shortened to fit the output budget.
func (k *Toolkit) Run(ctx context.Context, calls []provider.ToolCall) ([]provider.ToolResult, error) {
	results := make([]provider.ToolResult, len(calls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelCalls)
	for i, call := range calls {
		g.Go(func() error {
			out, err := k.Call(gctx, call.Name, json.RawMessage(call.Arguments))
			res := provider.ToolResult{CallID: call.ID, Name: call.Name, Content: out}
			if err != nil {
				res.Content = "Error: " + err.Error()
				res.IsError = true
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	outputs := make([]string, len(results))
	for i, r := range results {
		outputs[i] = r.Content
	}
	shortened, err := ShortenOutputs(outputs, k.maxTotal, k.minSingle)
	if err != nil {
		return nil, err
	}
	for i := range results {
		results[i].Content = shortened[i]
	}
	return results, nil
}

// ShortenOutputs fits a batch of tool outputs into maxTotal characters.
// While over budget it visits the outputs from longest to shortest (by their
// original length) and drops the last line of each, skipping outputs of at
// most minSingle characters. An output longer than maxTotal is first cut to
// maxTotal characters. The input slice is not modified.
func ShortenOutputs(outputs []string, maxTotal, minSingle int) ([]string, error) {
	out := slices.Clone(outputs)
	total := 0
	for _, o := range out {
		total += utf8.RuneCountInString(o)
	}
	if total <= maxTotal {
		return out, nil
	}
	slog.Warn("tool outputs exceed the maximum size", "total", total, "max", maxTotal)

	order := make([]int, len(out))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return utf8.RuneCountInString(out[b]) - utf8.RuneCountInString(out[a])
	})

	for total > maxTotal {
		previous := total
		for _, idx := range order {
			current := utf8.RuneCountInString(out[idx])
			if current <= minSingle {
				continue
			}
			out[idx] = dropLastLine(out[idx], maxTotal)
			total += utf8.RuneCountInString(out[idx]) - current
			if total <= maxTotal {
				break
			}
		}
		if total == previous {
			return nil, sigilerr.New(sigilerr.CodeToolOutputInvalid, "Unable to shorten tool outputs to fit into limit",
				sigilerr.Field("total", total),
				sigilerr.Field("max_total", maxTotal),
			)
		}
	}
	slog.Info("truncated tool outputs", "total", total)
	return out, nil
}

// dropLastLine cuts s to limit characters and removes its last line.
func dropLastLine(s string, limit int) string {
	if utf8.RuneCountInString(s) > limit {
		s = string([]rune(s)[:limit])
	}
	lines := strings.Split(s, "\n")
	return strings.Join(lines[:len(lines)-1], "\n")
}
