package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/dqstack/veto-engine/internal/models"
	"github.com/dqstack/veto-engine/internal/project"
	"github.com/dqstack/veto-engine/internal/utils"
)

const (
	runKeyPrefix = "run/"
	idxKeyPrefix = "idx/"

	defaultListLimit = 50
	gcDiscardRatio   = 0.5
)

// BadgerOptions configures the embedded archive database.
type BadgerOptions struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string
	// InMemory keeps all data in RAM. Nothing survives Close.
	InMemory bool
	// SyncWrites fsyncs every write. Slower, safer.
	SyncWrites bool
	// GCInterval is how often the value log garbage collector runs.
	// Zero disables collection; in-memory stores never collect.
	GCInterval time.Duration
}

// BadgerStore archives run records in an embedded Badger database.
// Records live under run/<id>; a second key space idx/<inverted
// timestamp>/<id> makes ascending iteration yield newest first.
type BadgerStore struct {
	db     *badger.DB
	logger *slog.Logger
	gcStop chan struct{}
	gcDone chan struct{}
}

// badgerLogger routes badger's internal logging through slog.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// NewBadgerStore opens the archive, creating the directory when
// needed. Pass nil logger to use slog.Default().
func NewBadgerStore(opts BadgerOptions, logger *slog.Logger) (*BadgerStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var bopts badger.Options
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if opts.Path == "" {
			return nil, utils.NewAppError("store.NewBadgerStore", "path required for persistent archive", nil)
		}
		if err := os.MkdirAll(opts.Path, 0o750); err != nil {
			return nil, utils.NewAppError("store.NewBadgerStore", "create archive directory "+opts.Path, err)
		}
		bopts = badger.DefaultOptions(opts.Path)
	}
	bopts = bopts.
		WithSyncWrites(opts.SyncWrites).
		WithNumVersionsToKeep(1).
		WithLogger(&badgerLogger{logger: logger.With("component", "badger")})

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, utils.NewAppError("store.NewBadgerStore", "open archive", err)
	}
	s := &BadgerStore{db: db, logger: logger}
	if opts.GCInterval > 0 && !opts.InMemory {
		s.gcStop = make(chan struct{})
		s.gcDone = make(chan struct{})
		go s.runGC(opts.GCInterval)
	}
	return s, nil
}

// PutRun writes the record and its listing index entry in one
// transaction. An existing record with the same id is replaced.
func (s *BadgerStore) PutRun(ctx context.Context, rec project.RunRecord) error {
	if rec.RunID == "" {
		return utils.NewAppError("store.PutRun", "run record missing id", nil)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode run %s: %w", rec.RunID, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		// Replacing a record moves its index entry, so drop the old one.
		if item, err := txn.Get(runKey(rec.RunID)); err == nil {
			var prev project.RunRecord
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &prev)
			}); err == nil && !prev.CreatedAt.Equal(rec.CreatedAt) {
				if err := txn.Delete(indexKey(prev.CreatedAt, rec.RunID)); err != nil {
					return err
				}
			}
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Set(runKey(rec.RunID), payload); err != nil {
			return err
		}
		return txn.Set(indexKey(rec.CreatedAt, rec.RunID), nil)
	})
	if err != nil {
		return fmt.Errorf("store run %s: %w", rec.RunID, err)
	}
	return nil
}

// GetRun fetches one record by id. Unknown ids wrap ErrRunNotFound.
func (s *BadgerStore) GetRun(ctx context.Context, id string) (project.RunRecord, error) {
	var rec project.RunRecord
	if err := ctx.Err(); err != nil {
		return rec, err
	}
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(runKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return project.RunRecord{}, fmt.Errorf("run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return project.RunRecord{}, fmt.Errorf("load run %s: %w", id, err)
	}
	return rec, nil
}

// ListRuns walks the index newest first, optionally filtering by
// instrument. Limit <= 0 means the default page size.
func (s *BadgerStore) ListRuns(ctx context.Context, req models.ListRunsRequest) ([]project.RunRecord, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	out := make([]project.RunRecord, 0, limit)
	err := s.db.View(func(txn *badger.Txn) error {
		iopts := badger.DefaultIteratorOptions
		iopts.Prefix = []byte(idxKeyPrefix)
		iopts.PrefetchValues = false
		it := txn.NewIterator(iopts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			key := string(it.Item().Key())
			id := key[strings.LastIndexByte(key, '/')+1:]
			item, err := txn.Get(runKey(id))
			if err != nil {
				if errors.Is(err, badger.ErrKeyNotFound) {
					// Stale index entry; skip rather than fail the page.
					continue
				}
				return err
			}
			var rec project.RunRecord
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return err
			}
			if req.Instrument != "" && !recordCoversInstrument(rec, req.Instrument) {
				continue
			}
			out = append(out, rec)
			if len(out) >= limit {
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return out, nil
}

// Close stops the collector and closes the database.
func (s *BadgerStore) Close() error {
	if s.gcStop != nil {
		close(s.gcStop)
		<-s.gcDone
	}
	return s.db.Close()
}

func (s *BadgerStore) runGC(interval time.Duration) {
	defer close(s.gcDone)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.gcStop:
			return
		case <-ticker.C:
			// One pass per tick; ErrNoRewrite just means nothing to do.
			if err := s.db.RunValueLogGC(gcDiscardRatio); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				s.logger.Warn("value log gc failed", "error", err)
			}
		}
	}
}

func runKey(id string) []byte {
	return []byte(runKeyPrefix + id)
}

// indexKey inverts the creation timestamp so that badger's ascending
// key order lists the newest run first.
func indexKey(createdAt time.Time, id string) []byte {
	inverted := math.MaxInt64 - createdAt.UnixNano()
	return []byte(fmt.Sprintf("%s%020d/%s", idxKeyPrefix, inverted, id))
}
