// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package store

import (
	"context"
	"slices"
	"sync"
	"time"
)

// MemoryQueryLog is a process-local QueryLogStore.
type MemoryQueryLog struct {
	mu      sync.Mutex
	entries []*QueryLogEntry
}

var _ QueryLogStore = (*MemoryQueryLog)(nil)

func NewMemoryQueryLog() *MemoryQueryLog {
	return &MemoryQueryLog{}
}

func (m *MemoryQueryLog) Append(_ context.Context, entry *QueryLogEntry) error {
	if err := entry.Prepare(time.Now().UTC()); err != nil {
		return err
	}
	cp := *entry
	m.mu.Lock()
	m.entries = append(m.entries, &cp)
	m.mu.Unlock()
	return nil
}

func (m *MemoryQueryLog) Query(_ context.Context, filter QueryLogFilter) ([]*QueryLogEntry, error) {
	m.mu.Lock()
	matched := make([]*QueryLogEntry, 0, len(m.entries))
	// Newest first, so that entries with equal timestamps keep that order.
	for _, e := range slices.Backward(m.entries) {
		if filter.matches(e) {
			cp := *e
			matched = append(matched, &cp)
		}
	}
	m.mu.Unlock()

	slices.SortStableFunc(matched, func(a, b *QueryLogEntry) int {
		return b.Timestamp.Compare(a.Timestamp)
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultQueryLimit
	}
	if filter.Offset >= len(matched) {
		return nil, nil
	}
	matched = matched[filter.Offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (m *MemoryQueryLog) Close() error { return nil }

func (f QueryLogFilter) matches(e *QueryLogEntry) bool {
	switch {
	case f.Source != "" && e.Source != f.Source:
		return false
	case f.Tool != "" && e.Tool != f.Tool:
		return false
	case f.Outcome != "" && e.Outcome != f.Outcome:
		return false
	case !f.From.IsZero() && e.Timestamp.Before(f.From):
		return false
	case !f.To.IsZero() && !e.Timestamp.Before(f.To):
		return false
	}
	return true
}
