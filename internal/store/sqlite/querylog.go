// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package sqlite implements the query log on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/sigil-dev/sparqlgate/internal/store"
	sigilerr "github.com/sigil-dev/sparqlgate/pkg/errors"
)

var _ store.QueryLogStore = (*QueryLogStore)(nil)

// timeLayout is fixed width so that timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// QueryLogStore implements store.QueryLogStore backed by a single SQLite
// database in WAL mode.
type QueryLogStore struct {
	db *sql.DB
}

// NewQueryLogStore opens (or creates) a SQLite database at dbPath and
// initialises the query_log table.
func NewQueryLogStore(dbPath string) (*QueryLogStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, sigilerr.Wrap(err, sigilerr.CodeStoreDatabaseFailure, "opening query log db")
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, sigilerr.Wrap(err, sigilerr.CodeStoreDatabaseFailure, "pinging query log db")
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, sigilerr.Wrap(err, sigilerr.CodeStoreDatabaseFailure, "migrating query log db")
	}

	return &QueryLogStore{db: db}, nil
}

func migrate(db *sql.DB) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS query_log (
	id          TEXT PRIMARY KEY,
	timestamp   TEXT NOT NULL,
	source      TEXT NOT NULL,
	tool        TEXT NOT NULL DEFAULT '',
	raw_query   TEXT NOT NULL DEFAULT '',
	final_query TEXT NOT NULL DEFAULT '',
	outcome     TEXT NOT NULL,
	duration_ns INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_query_log_timestamp ON query_log(timestamp);
CREATE INDEX IF NOT EXISTS idx_query_log_outcome   ON query_log(outcome);
CREATE INDEX IF NOT EXISTS idx_query_log_tool      ON query_log(tool);
`
	_, err := db.Exec(ddl)
	return err
}

func (s *QueryLogStore) Append(ctx context.Context, entry *store.QueryLogEntry) error {
	if err := entry.Prepare(time.Now().UTC()); err != nil {
		return err
	}

	const q = `INSERT INTO query_log (id, timestamp, source, tool, raw_query, final_query, outcome, duration_ns)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, q,
		entry.ID, formatTime(entry.Timestamp), string(entry.Source), entry.Tool,
		entry.RawQuery, entry.FinalQuery, entry.Outcome, int64(entry.Duration),
	)
	if err != nil {
		return sigilerr.Wrap(err, sigilerr.CodeStoreDatabaseFailure, "appending query log entry "+entry.ID)
	}
	return nil
}

func (s *QueryLogStore) Query(ctx context.Context, filter store.QueryLogFilter) ([]*store.QueryLogEntry, error) {
	var qb strings.Builder
	qb.WriteString(`SELECT id, timestamp, source, tool, raw_query, final_query, outcome, duration_ns FROM query_log`)

	var conditions []string
	var args []any

	if filter.Source != "" {
		conditions = append(conditions, "source = ?")
		args = append(args, string(filter.Source))
	}
	if filter.Tool != "" {
		conditions = append(conditions, "tool = ?")
		args = append(args, filter.Tool)
	}
	if filter.Outcome != "" {
		conditions = append(conditions, "outcome = ?")
		args = append(args, filter.Outcome)
	}
	if !filter.From.IsZero() {
		conditions = append(conditions, "timestamp >= ?")
		args = append(args, formatTime(filter.From))
	}
	if !filter.To.IsZero() {
		conditions = append(conditions, "timestamp < ?")
		args = append(args, formatTime(filter.To))
	}

	if len(conditions) > 0 {
		qb.WriteString(" WHERE ")
		qb.WriteString(strings.Join(conditions, " AND "))
	}

	qb.WriteString(" ORDER BY timestamp DESC, rowid DESC")

	limit := filter.Limit
	if limit <= 0 {
		limit = store.DefaultQueryLimit
	}
	qb.WriteString(" LIMIT ? OFFSET ?")
	args = append(args, limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, sigilerr.Wrap(err, sigilerr.CodeStoreDatabaseFailure, "querying query log")
	}
	defer rows.Close() //nolint:errcheck // error on read-path close is not actionable

	var entries []*store.QueryLogEntry
	for rows.Next() {
		var (
			e      store.QueryLogEntry
			ts     string
			source string
			dur    int64
		)
		if err := rows.Scan(&e.ID, &ts, &source, &e.Tool, &e.RawQuery, &e.FinalQuery, &e.Outcome, &dur); err != nil {
			return nil, sigilerr.Wrap(err, sigilerr.CodeStoreDatabaseFailure, "scanning query log row")
		}
		e.Timestamp, err = time.Parse(timeLayout, ts)
		if err != nil {
			return nil, sigilerr.Wrap(err, sigilerr.CodeStoreDatabaseFailure, "parsing query log entry "+e.ID+" timestamp")
		}
		e.Source = store.Source(source)
		e.Duration = time.Duration(dur)
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, sigilerr.Wrap(err, sigilerr.CodeStoreDatabaseFailure, "iterating query log entries")
	}
	return entries, nil
}

// Close closes the underlying database connection.
func (s *QueryLogStore) Close() error { return s.db.Close() }

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
