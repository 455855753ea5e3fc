// Package fetch provides the row-fetching collaborator consumed during
// data-source resolution: named connections yielding ordered rows for a query.
package fetch

import "context"

// Row is one fetched record, mapping column name to scalar value. Scalars are
// the usual database/sql set (string, int64, float64, bool, time.Time) plus
// whatever an in-memory fetcher was seeded with.
type Row map[string]any

// Fetcher executes a query against a named connection and returns its rows in
// result order. Implementations must be safe for concurrent calls with
// distinct (connection, query) pairs.
type Fetcher interface {
	Fetch(ctx context.Context, connection, query string) ([]Row, error)
}
