// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package health holds the serializable health snapshot shared by the
// GraphDB client, the HTTP status endpoint and the doctor command.
package health

import "time"

// Metrics is a point-in-time view of an upstream's failure state.
type Metrics struct {
	FailureCount  int64      `json:"failure_count" yaml:"failure_count"`
	LastFailureAt *time.Time `json:"last_failure_at,omitempty" yaml:"last_failure_at,omitempty"`
	LastError     string     `json:"last_error,omitempty" yaml:"last_error,omitempty"`
	CooldownUntil *time.Time `json:"cooldown_until,omitempty" yaml:"cooldown_until,omitempty"`
	Available     bool       `json:"available" yaml:"available"`
}

// Status summarizes Metrics as one word for terminal and JSON output.
func (m Metrics) Status() string {
	switch {
	case !m.Available:
		return "unavailable"
	case m.FailureCount > 0 && m.CooldownUntil != nil:
		return "recovering"
	default:
		return "ok"
	}
}
