// Package service wires the parameter graph into an application-facing API:
// project load, per-request instantiate/apply/serialize, and observability
// around every operation.
package service

import (
	"context"
	"time"

	"paramcore/internal/fetch"
	"paramcore/internal/graph"
	"paramcore/pkg/params"
)

// Service exposes the per-request parameter operations over a loaded graph.
// The graph is immutable after Load, so a single Service is shared across
// concurrent requests.
type Service struct {
	graph   *graph.Graph
	logger  Logger
	metrics MetricsRecorder
	tracer  Tracer
}

// Option customises a Service.
type Option func(*Service)

// WithLogger installs a structured logger.
func WithLogger(l Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics installs a metrics recorder.
func WithMetrics(m MetricsRecorder) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithTracer installs a tracer.
func WithTracer(t Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// New wraps an already-built graph.
func New(g *graph.Graph, opts ...Option) *Service {
	s := &Service{
		graph:   g,
		logger:  noopLogger{},
		metrics: noopMetrics{},
		tracer:  noopTracer{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load registers every provider, resolves data sources through fetcher, and
// returns a Service over the validated graph.
func Load(ctx context.Context, fetcher fetch.Fetcher, providers []graph.Provider, opts ...Option) (*Service, error) {
	var s *Service
	err := instrumentOnce(ctx, opts, "load_graph", func(ctx context.Context) error {
		g, err := graph.Load(ctx, fetcher, providers...)
		if err != nil {
			return err
		}
		s = New(g, opts...)
		s.logger.Info("parameter graph loaded", "parameters", len(g.Names()))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// instrumentOnce instruments an operation before a Service exists by building
// a throwaway instance from the same options.
func instrumentOnce(ctx context.Context, opts []Option, op string, fn func(context.Context) error) error {
	probe := New(nil, opts...)
	return probe.instrument(ctx, op, fn)
}

// Graph returns the underlying registry.
func (s *Service) Graph() *graph.Graph {
	return s.graph
}

// Instantiate builds the live parameter set for a user with every parameter
// at its default selection.
func (s *Service) Instantiate(ctx context.Context, user graph.User) (params.Set, error) {
	var set params.Set
	err := s.instrument(ctx, "instantiate", func(context.Context) error {
		var err error
		set, err = s.graph.Instantiate(user)
		return err
	})
	if err != nil {
		return params.Set{}, err
	}
	return set, nil
}

// Apply folds the caller's selections into set, cascading each change.
func (s *Service) Apply(ctx context.Context, set params.Set, selections map[string]string) (params.Set, error) {
	var out params.Set
	err := s.instrument(ctx, "apply_selections", func(context.Context) error {
		var err error
		out, err = s.graph.Apply(set, selections)
		return err
	})
	if err != nil {
		return params.Set{}, err
	}
	return out, nil
}

// Respond runs the full request cycle: instantiate for the user, apply the
// selections, serialize.
func (s *Service) Respond(ctx context.Context, user graph.User, selections map[string]string, debug bool) (params.Response, error) {
	var resp params.Response
	err := s.instrument(ctx, "respond", func(context.Context) error {
		set, err := s.graph.Instantiate(user)
		if err != nil {
			return err
		}
		set, err = s.graph.Apply(set, selections)
		if err != nil {
			return err
		}
		resp = set.ToResponse(debug)
		return nil
	})
	if err != nil {
		return params.Response{}, err
	}
	return resp, nil
}

func (s *Service) instrument(ctx context.Context, op string, fn func(context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, op)
	start := time.Now()
	err := fn(ctx)
	s.metrics.Observe(ctx, op, err == nil, time.Since(start))
	span.End(err)
	if err != nil {
		s.logger.Error("operation failed", "operation", op, "error", err)
	} else {
		s.logger.Debug("operation completed", "operation", op)
	}
	return err
}
