// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package store persists the query audit log.
package store

import "context"

// QueryLogStore records every query that passed through the gateway.
type QueryLogStore interface {
	// Append stores entry, assigning an ID and timestamp when they are unset.
	Append(ctx context.Context, entry *QueryLogEntry) error
	// Query returns matching entries, newest first.
	Query(ctx context.Context, filter QueryLogFilter) ([]*QueryLogEntry, error)
	Close() error
}
