package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/dqstack/veto-engine/internal/dqflags"
	"github.com/dqstack/veto-engine/internal/models"
	"github.com/dqstack/veto-engine/pkg/segments"
)

// Builder folds flag segment data into cumulative veto sets.
type Builder struct {
	logger *slog.Logger
}

// NewBuilder constructs a Builder.
func NewBuilder(logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{logger: logger}
}

// Build computes the veto set for one cumulative category level: the
// union of the effective time of every flag at or below the level. The
// zero span leaves the result unclipped; any other span, including an
// empty one, restricts it.
func (b *Builder) Build(ctx context.Context, snap *dqflags.Snapshot, category int, span segments.Segment) (models.VetoSet, error) {
	flags, err := Resolve(snap, category)
	if err != nil {
		return models.VetoSet{}, err
	}

	started := time.Now()
	total := segments.List{}
	names := make([]string, 0, len(flags))
	for _, f := range flags {
		if err := ctx.Err(); err != nil {
			return models.VetoSet{}, err
		}
		total = total.Union(f.Effective())
		names = append(names, f.Name)
	}
	if span != (segments.Segment{}) {
		total = total.Clip(span)
	}

	b.logger.Debug("veto set built",
		"instrument", snap.Instrument(),
		"category", category,
		"flags", len(names),
		"vetoed_seconds", total.Duration(),
		"elapsed", time.Since(started))

	return models.VetoSet{
		Instrument: snap.Instrument(),
		Category:   category,
		Segments:   total,
		Flags:      names,
	}, nil
}
