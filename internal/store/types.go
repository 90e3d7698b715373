// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package store

import (
	"time"

	"github.com/google/uuid"

	sigilerr "github.com/sigil-dev/sparqlgate/pkg/errors"
)

// Source identifies the surface a query arrived through.
type Source string

const (
	SourceAPI  Source = "api"
	SourceMCP  Source = "mcp"
	SourceCLI  Source = "cli"
	SourceTool Source = "tool"
)

// Valid reports whether s is a known source.
func (s Source) Valid() bool {
	switch s {
	case SourceAPI, SourceMCP, SourceCLI, SourceTool:
		return true
	default:
		return false
	}
}

// OutcomeOK is recorded for queries that completed without error. Failed
// queries record their error code.
const OutcomeOK = "ok"

// QueryLogEntry is one audited query.
type QueryLogEntry struct {
	ID         string        `json:"id"`
	Timestamp  time.Time     `json:"timestamp"`
	Source     Source        `json:"source"`
	Tool       string        `json:"tool,omitempty"`
	RawQuery   string        `json:"raw_query"`
	FinalQuery string        `json:"final_query,omitempty"`
	Outcome    string        `json:"outcome"`
	Duration   time.Duration `json:"duration"`
}

// QueryLogFilter specifies criteria for querying the log. Zero values match
// everything.
type QueryLogFilter struct {
	Source  Source
	Tool    string
	Outcome string
	From    time.Time
	To      time.Time
	Limit   int
	Offset  int
}

// DefaultQueryLimit caps Query results when the filter sets no limit.
const DefaultQueryLimit = 1000

// Prepare fills in the ID and timestamp if unset and validates the entry.
func (e *QueryLogEntry) Prepare(now time.Time) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = now
	}
	return e.Validate()
}

// Validate checks that the entry has all required fields set correctly.
func (e QueryLogEntry) Validate() error {
	if e.ID == "" {
		return sigilerr.New(sigilerr.CodeStoreInvalidInput, "query log: ID is required")
	}
	if !e.Source.Valid() {
		return sigilerr.Errorf(sigilerr.CodeStoreInvalidInput, "query log: invalid source %q", e.Source)
	}
	if e.Outcome == "" {
		return sigilerr.New(sigilerr.CodeStoreInvalidInput, "query log: Outcome is required")
	}
	if e.Duration < 0 {
		return sigilerr.New(sigilerr.CodeStoreInvalidInput, "query log: Duration must not be negative")
	}
	return nil
}

// OutcomeOf returns OutcomeOK for a nil error and the error code otherwise.
func OutcomeOf(err error) string {
	if err == nil {
		return OutcomeOK
	}
	if code := sigilerr.CodeOf(err); code != "" {
		return string(code)
	}
	return string(sigilerr.CodeServerInternalFailure)
}
