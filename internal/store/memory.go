package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dqstack/veto-engine/internal/models"
	"github.com/dqstack/veto-engine/internal/project"
	"github.com/dqstack/veto-engine/internal/utils"
)

// MemoryStore keeps run records in a map. It satisfies Store for
// tests and for deployments that do not need a durable archive.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[string]project.RunRecord
}

// NewMemoryStore returns an empty in-memory archive.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string]project.RunRecord)}
}

// PutRun stores or replaces the record.
func (s *MemoryStore) PutRun(ctx context.Context, rec project.RunRecord) error {
	if rec.RunID == "" {
		return utils.NewAppError("store.PutRun", "run record missing id", nil)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[rec.RunID] = rec
	return nil
}

// GetRun fetches one record by id. Unknown ids wrap ErrRunNotFound.
func (s *MemoryStore) GetRun(ctx context.Context, id string) (project.RunRecord, error) {
	if err := ctx.Err(); err != nil {
		return project.RunRecord{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.runs[id]
	if !ok {
		return project.RunRecord{}, fmt.Errorf("run %s: %w", id, ErrRunNotFound)
	}
	return rec, nil
}

// ListRuns returns records newest first, optionally filtered by
// instrument. Limit <= 0 means the default page size.
func (s *MemoryStore) ListRuns(ctx context.Context, req models.ListRunsRequest) ([]project.RunRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	s.mu.RLock()
	all := make([]project.RunRecord, 0, len(s.runs))
	for _, rec := range s.runs {
		if req.Instrument != "" && !recordCoversInstrument(rec, req.Instrument) {
			continue
		}
		all = append(all, rec)
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].RunID < all[j].RunID
	})
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// Close is a no-op for the in-memory archive.
func (s *MemoryStore) Close() error {
	return nil
}
