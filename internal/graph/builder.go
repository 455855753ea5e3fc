package graph

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"paramcore/internal/fetch"
	"paramcore/pkg/params"
)

// fetchWorkers bounds the data-source fan-out during a graph build.
const fetchWorkers = 8

// Provider contributes parameter declarations to a Builder. Projects register
// one provider per logical group of parameters; the service loads them in
// order at startup.
type Provider interface {
	// Name identifies the provider in build errors.
	Name() string
	// Version reports the provider's declaration version for diagnostics.
	Version() string
	// Register adds the provider's configs and data sources to the builder.
	Register(b *Builder) error
}

type buildEntry struct {
	cfg *params.Config
	ds  *DataSource
}

// Builder accumulates literal configs and deferred data sources in
// declaration order, then Build resolves and registers them into a validated
// Graph. Builders are single-goroutine; the resulting Graph is what gets
// shared.
type Builder struct {
	entries []buildEntry
}

// NewBuilder constructs an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// AddConfig appends a literal config declaration.
func (b *Builder) AddConfig(cfg params.Config) {
	stored := cfg
	b.entries = append(b.entries, buildEntry{cfg: &stored})
}

// AddDataSource appends a deferred declaration resolved at Build time.
func (b *Builder) AddDataSource(ds DataSource) {
	stored := ds
	b.entries = append(b.entries, buildEntry{ds: &stored})
}

// Len returns the number of accumulated declarations.
func (b *Builder) Len() int {
	return len(b.entries)
}

// Build fetches every data source concurrently, then converts and registers
// all declarations sequentially in declaration order so each parent config
// exists before its children resolve. Any fetch or conversion failure aborts
// the build; no partial graph is ever returned.
func (b *Builder) Build(ctx context.Context, fetcher fetch.Fetcher) (*Graph, error) {
	rows := make([][]fetch.Row, len(b.entries))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(fetchWorkers)
	for i, e := range b.entries {
		if e.ds == nil {
			continue
		}
		if fetcher == nil {
			return nil, fmt.Errorf("data source %q declared but no fetcher provided", e.ds.Config.Name)
		}
		i, ds := i, e.ds
		eg.Go(func() error {
			fetched, err := fetcher.Fetch(ctx, ds.Connection, ds.Query)
			if err != nil {
				return fmt.Errorf("fetch rows for %q: %w", ds.Config.Name, err)
			}
			rows[i] = fetched
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	g := New()
	for i, e := range b.entries {
		cfg := e.cfg
		if e.ds != nil {
			resolved, err := e.ds.Resolve(rows[i])
			if err != nil {
				return nil, err
			}
			cfg = &resolved
		}
		if err := g.Register(*cfg); err != nil {
			return nil, err
		}
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// Load runs every provider against a fresh builder and builds the graph.
func Load(ctx context.Context, fetcher fetch.Fetcher, providers ...Provider) (*Graph, error) {
	b := NewBuilder()
	for _, p := range providers {
		if err := p.Register(b); err != nil {
			return nil, fmt.Errorf("provider %s: %w", p.Name(), err)
		}
	}
	return b.Build(ctx, fetcher)
}
