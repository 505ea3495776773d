// Package engine resolves category levels and folds flag data into
// veto sets. Each level recomputes from the full snapshot, so levels
// never depend on each other and can run in parallel.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/dqstack/veto-engine/internal/dqflags"
	"github.com/dqstack/veto-engine/internal/models"
	"github.com/dqstack/veto-engine/pkg/segments"
)

// Engine fans veto set construction out across category levels.
type Engine struct {
	logger  *slog.Logger
	builder *Builder
	workers int
}

// NewEngine constructs an Engine running at most workers builds
// concurrently.
func NewEngine(logger *slog.Logger, builder *Builder, workers int) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if builder == nil {
		builder = NewBuilder(logger)
	}
	if workers <= 0 {
		workers = 4
	}
	return &Engine{logger: logger, builder: builder, workers: workers}
}

// Run builds one veto set per requested category, preserving request
// order in the results. The first failing level cancels the rest and
// no partial results are returned.
func (e *Engine) Run(ctx context.Context, snap *dqflags.Snapshot, categories []int, span segments.Segment) ([]models.VetoSet, error) {
	if len(categories) == 0 {
		return nil, nil
	}
	for _, c := range categories {
		if c < 1 {
			return nil, fmt.Errorf("requested category %d: %w", c, dqflags.ErrBadCategory)
		}
	}

	results := make([]models.VetoSet, len(categories))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, category := range categories {
		g.Go(func() error {
			set, err := e.builder.Build(gctx, snap, category, span)
			if err != nil {
				return fmt.Errorf("category %d: %w", category, err)
			}
			results[i] = set
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
