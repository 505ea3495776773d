package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dqstack/veto-engine/internal/engine"
	"github.com/dqstack/veto-engine/internal/metrics"
	"github.com/dqstack/veto-engine/internal/models"
	"github.com/dqstack/veto-engine/internal/project"
	"github.com/dqstack/veto-engine/internal/sources"
	"github.com/dqstack/veto-engine/internal/store"
	"github.com/dqstack/veto-engine/internal/utils"
	"github.com/dqstack/veto-engine/pkg/segments"
)

// ErrUnknownInstrument reports a request for an instrument the loaded
// corpus has no segment data for.
var ErrUnknownInstrument = errors.New("unknown instrument")

// ErrCorpusNotReady reports that no corpus has been installed yet.
var ErrCorpusNotReady = errors.New("corpus not loaded")

// VetoService coordinates corpus snapshots, the compute engine and the
// run archive. The corpus swaps atomically on reload; every request
// computes against the corpus it started with.
type VetoService struct {
	logger            *slog.Logger
	engine            *engine.Engine
	archive           store.Store
	latencies         *utils.LatencyTracker
	defaultCategories []int

	mu     sync.RWMutex
	corpus *sources.Corpus
}

// NewVetoService constructs the veto service facade. The archive may
// be nil, in which case persistence and history lookups are disabled.
func NewVetoService(logger *slog.Logger, eng *engine.Engine, archive store.Store, defaultCategories []int) *VetoService {
	if logger == nil {
		logger = slog.Default()
	}
	return &VetoService{
		logger:            logger,
		engine:            eng,
		archive:           archive,
		latencies:         utils.NewLatencyTracker(1024),
		defaultCategories: defaultCategories,
	}
}

// Swap installs a freshly loaded corpus and republishes the flag
// gauges from it.
func (s *VetoService) Swap(c *sources.Corpus) {
	s.mu.Lock()
	s.corpus = c
	s.mu.Unlock()
	if c == nil {
		return
	}
	instruments := c.Instruments()
	metrics.ResetFlagsLoaded()
	for _, instrument := range instruments {
		metrics.SetFlagsLoaded(instrument, c.FlagCount(instrument))
	}
	s.logger.Debug("corpus installed",
		slog.Int("instruments", len(instruments)),
		slog.Time("loaded_at", c.LoadedAt()))
}

// Corpus returns the currently installed corpus, possibly nil.
func (s *VetoService) Corpus() *sources.Corpus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.corpus
}

// Compute resolves the requested veto sets and assembles them into a
// run record. When the request asks for persistence the record is
// archived before it is returned.
func (s *VetoService) Compute(ctx context.Context, req models.ComputeRequest) (project.RunRecord, error) {
	if len(req.Instruments) == 0 {
		return project.RunRecord{}, utils.NewAppError("services.Compute", "at least one instrument required", nil)
	}
	if s.engine == nil {
		return project.RunRecord{}, utils.NewAppError("services.Compute", "engine not configured", nil)
	}
	corpus := s.Corpus()
	if corpus == nil {
		return project.RunRecord{}, ErrCorpusNotReady
	}
	categories := normalizeCategories(req.Categories, s.defaultCategories)

	s.logger.Debug("Compute called",
		slog.Any("instruments", req.Instruments),
		slog.Any("categories", categories))

	start := time.Now()
	rec, err := s.compute(ctx, corpus, req, categories)
	if err == nil && req.Persist {
		if s.archive == nil {
			err = utils.NewAppError("services.Compute", "persistence requested but no archive configured", nil)
		} else if perr := s.archive.PutRun(ctx, rec); perr != nil {
			err = fmt.Errorf("archive run %s: %w", rec.RunID, perr)
		}
	}
	duration := time.Since(start)
	if err != nil {
		metrics.ObserveCompute(duration, metrics.OutcomeError)
		s.logger.Error("veto computation failed", slog.Any("error", err))
		return project.RunRecord{}, err
	}
	s.latencies.Observe(duration)
	metrics.ObserveCompute(duration, metrics.OutcomeSuccess)
	if count := s.latencies.Count(); count >= 20 && count%20 == 0 {
		p95 := s.latencies.Percentile(95)
		s.logger.Info("compute latency", slog.Duration("p95", p95), slog.Int("samples", count))
	}
	return rec, nil
}

func (s *VetoService) compute(ctx context.Context, corpus *sources.Corpus, req models.ComputeRequest, categories []int) (project.RunRecord, error) {
	results := make([][]project.Record, len(req.Instruments))

	g, gctx := errgroup.WithContext(ctx)
	for i, instrument := range req.Instruments {
		g.Go(func() error {
			if !corpus.HasInstrument(instrument) {
				return fmt.Errorf("%s: %w", instrument, ErrUnknownInstrument)
			}
			snap, err := corpus.BuildSnapshot(instrument)
			if err != nil {
				return err
			}
			sets, err := s.engine.Run(gctx, snap, categories, req.Span)
			if err != nil {
				return fmt.Errorf("%s: %w", instrument, err)
			}
			recs := make([]project.Record, 0, len(sets))
			for _, set := range sets {
				rec, err := project.Project(set, req.Span)
				if err != nil {
					return err
				}
				recs = append(recs, rec)
			}
			results[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return project.RunRecord{}, err
	}

	records := make([]project.Record, 0, len(req.Instruments)*len(categories))
	for _, recs := range results {
		records = append(records, recs...)
	}
	rec := project.RunRecord{
		RunID:         uuid.NewString(),
		Instruments:   append([]string(nil), req.Instruments...),
		Categories:    categories,
		DefinerDigest: corpus.Definer().Digest(),
		Records:       records,
		CreatedAt:     time.Now().UTC(),
	}
	if req.Span != (segments.Segment{}) {
		span := req.Span
		rec.Span = &span
	}
	return rec, nil
}

// GetRun fetches one archived run by id.
func (s *VetoService) GetRun(ctx context.Context, id string) (project.RunRecord, error) {
	if s.archive == nil {
		return project.RunRecord{}, utils.NewAppError("services.GetRun", "archive not configured", nil)
	}
	return s.archive.GetRun(ctx, id)
}

// ListRuns returns archived runs newest first.
func (s *VetoService) ListRuns(ctx context.Context, req models.ListRunsRequest) ([]project.RunRecord, error) {
	if s.archive == nil {
		return nil, utils.NewAppError("services.ListRuns", "archive not configured", nil)
	}
	return s.archive.ListRuns(ctx, req)
}

// Instruments lists the instruments the current corpus has data for.
func (s *VetoService) Instruments() []string {
	corpus := s.Corpus()
	if corpus == nil {
		return nil
	}
	return corpus.Instruments()
}

// Flags lists the categorised flags for one instrument, in category
// then name order.
func (s *VetoService) Flags(instrument string) ([]models.FlagInfo, error) {
	corpus := s.Corpus()
	if corpus == nil {
		return nil, ErrCorpusNotReady
	}
	if !corpus.HasInstrument(instrument) {
		return nil, fmt.Errorf("%s: %w", instrument, ErrUnknownInstrument)
	}
	snap, err := corpus.BuildSnapshot(instrument)
	if err != nil {
		return nil, err
	}
	infos := make([]models.FlagInfo, 0, snap.Len())
	for _, f := range snap.Flags() {
		infos = append(infos, models.FlagInfo{
			Name:            f.Name,
			Category:        f.Category,
			PadStart:        f.PadStart,
			PadEnd:          f.PadEnd,
			ActiveSeconds:   f.Active.Duration(),
			CoverageSeconds: f.Coverage.Duration(),
		})
	}
	return infos, nil
}

// DefinerInfo describes the currently loaded definer. Without a
// definer the info carries only the corpus load time.
func (s *VetoService) DefinerInfo() (models.DefinerInfo, error) {
	corpus := s.Corpus()
	if corpus == nil {
		return models.DefinerInfo{}, ErrCorpusNotReady
	}
	d := corpus.Definer()
	return models.DefinerInfo{
		Path:       d.Path(),
		Digest:     d.Digest(),
		Rows:       len(d.Rows()),
		Categories: d.Categories(),
		LoadedAt:   corpus.LoadedAt(),
	}, nil
}

// LatencyP95 returns the current p95 computation latency.
func (s *VetoService) LatencyP95() time.Duration {
	if s.latencies == nil {
		return 0
	}
	return s.latencies.Percentile(95)
}

// normalizeCategories falls back to the configured defaults, then
// dedupes and sorts ascending so run records list levels in ladder
// order.
func normalizeCategories(given, fallback []int) []int {
	src := given
	if len(src) == 0 {
		src = fallback
	}
	if len(src) == 0 {
		src = []int{1, 2, 3, 4}
	}
	seen := make(map[int]struct{}, len(src))
	out := make([]int, 0, len(src))
	for _, c := range src {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	sort.Ints(out)
	return out
}
