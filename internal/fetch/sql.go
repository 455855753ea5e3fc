package fetch

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
)

// SQLFetcher runs queries against a registry of named database/sql handles.
// *sql.DB is already a concurrency-safe pool, so a read lock around the
// lookup is all the synchronization Fetch needs.
type SQLFetcher struct {
	mu  sync.RWMutex
	dbs map[string]*sql.DB
}

// NewSQLFetcher constructs an empty connection registry.
func NewSQLFetcher() *SQLFetcher {
	return &SQLFetcher{dbs: make(map[string]*sql.DB)}
}

// AddConnection registers db under name, replacing any prior handle. The
// fetcher takes ownership for Close.
func (f *SQLFetcher) AddConnection(name string, db *sql.DB) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dbs[name] = db
}

// Fetch implements Fetcher by running query against the named connection and
// materializing every row as a column-name keyed map.
func (f *SQLFetcher) Fetch(ctx context.Context, connection, query string) ([]Row, error) {
	f.mu.RLock()
	db, ok := f.dbs[connection]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown connection %q", connection)
	}
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", connection, err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}
	var out []Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		row := make(Row, len(cols))
		for i, col := range cols {
			v := values[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row[col] = v
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

// Close closes every registered handle and reports the first error.
func (f *SQLFetcher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var errs []error
	for name, db := range f.dbs {
		if err := db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
	}
	f.dbs = make(map[string]*sql.DB)
	return errors.Join(errs...)
}
