// Package store archives compute runs. The badger implementation is
// the durable archive; the memory implementation backs tests and
// ephemeral deployments.
package store

import (
	"context"
	"errors"

	"github.com/dqstack/veto-engine/internal/models"
	"github.com/dqstack/veto-engine/internal/project"
)

// ErrRunNotFound reports a lookup for a run id the archive has never
// seen.
var ErrRunNotFound = errors.New("run not found")

// Store archives run records and lists them newest first.
type Store interface {
	PutRun(ctx context.Context, rec project.RunRecord) error
	GetRun(ctx context.Context, id string) (project.RunRecord, error)
	ListRuns(ctx context.Context, req models.ListRunsRequest) ([]project.RunRecord, error)
	Close() error
}

func recordCoversInstrument(rec project.RunRecord, instrument string) bool {
	for _, in := range rec.Instruments {
		if in == instrument {
			return true
		}
	}
	return false
}
