package fetch

import (
	"context"
	"fmt"
	"sync"
)

// MemoryFetcher serves seeded rows keyed by connection and query. Used in
// tests and for projects that declare their option rows inline.
type MemoryFetcher struct {
	mu   sync.RWMutex
	data map[string]map[string][]Row
}

// NewMemoryFetcher constructs an empty in-memory fetcher.
func NewMemoryFetcher() *MemoryFetcher {
	return &MemoryFetcher{data: make(map[string]map[string][]Row)}
}

// Seed registers the rows returned for the given connection and query,
// replacing any prior seed for the same pair.
func (m *MemoryFetcher) Seed(connection, query string, rows []Row) {
	m.mu.Lock()
	defer m.mu.Unlock()
	queries := m.data[connection]
	if queries == nil {
		queries = make(map[string][]Row)
		m.data[connection] = queries
	}
	copied := make([]Row, len(rows))
	copy(copied, rows)
	queries[query] = copied
}

// Fetch implements Fetcher.
func (m *MemoryFetcher) Fetch(ctx context.Context, connection, query string) ([]Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	queries, ok := m.data[connection]
	if !ok {
		return nil, fmt.Errorf("unknown connection %q", connection)
	}
	rows, ok := queries[query]
	if !ok {
		return nil, fmt.Errorf("no seeded rows for query %q on connection %q", query, connection)
	}
	out := make([]Row, len(rows))
	copy(out, rows)
	return out, nil
}
