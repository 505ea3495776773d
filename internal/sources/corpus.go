package sources

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"github.com/dqstack/veto-engine/internal/dqflags"
)

// Corpus is one consistent load of a definer plus segment data. A
// corpus never changes after construction; reloads build a fresh one
// and swap it in.
type Corpus struct {
	definer  *Definer
	flags    map[string][]FlagData
	paths    []string
	loadedAt time.Time
}

// NewCorpus assembles a corpus from already parsed pieces. Loader is
// the usual entry point; this constructor serves tests and embedders
// holding data in memory.
func NewCorpus(definer *Definer, data []FlagData) *Corpus {
	c := &Corpus{
		definer:  definer,
		flags:    make(map[string][]FlagData),
		loadedAt: time.Now().UTC(),
	}
	for _, fd := range data {
		c.flags[fd.Instrument] = append(c.flags[fd.Instrument], fd)
	}
	return c
}

// Definer returns the loaded definer, possibly nil.
func (c *Corpus) Definer() *Definer {
	return c.definer
}

// LoadedAt returns when this corpus was assembled.
func (c *Corpus) LoadedAt() time.Time {
	return c.loadedAt
}

// Paths returns the segment files this corpus was read from.
func (c *Corpus) Paths() []string {
	return c.paths
}

// Instruments returns every instrument with segment data, sorted.
func (c *Corpus) Instruments() []string {
	out := make([]string, 0, len(c.flags))
	for name := range c.flags {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// HasInstrument reports whether any segment data arrived for the
// instrument.
func (c *Corpus) HasInstrument(name string) bool {
	_, ok := c.flags[name]
	return ok
}

// FlagCount returns the number of distinct flags registered for the
// instrument.
func (c *Corpus) FlagCount(name string) int {
	seen := make(map[string]struct{})
	for _, fd := range c.flags[name] {
		seen[fd.Flag] = struct{}{}
	}
	return len(seen)
}

// BuildSnapshot assembles and finalizes the registry for one
// instrument: all segment data registered, then the definer applied in
// file order.
func (c *Corpus) BuildSnapshot(instrument string) (*dqflags.Snapshot, error) {
	reg := dqflags.NewRegistry(instrument)
	for _, fd := range c.flags[instrument] {
		reg.Register(fd.Flag, fd.Active, fd.Coverage)
	}
	if err := c.definer.Apply(reg); err != nil {
		return nil, err
	}
	return reg.Finalize()
}

// Loader assembles corpora from the configured inputs: a definer, any
// number of segment file globs, and optionally a remote segment
// source.
type Loader struct {
	logger            *slog.Logger
	definerPath       string
	segmentGlobs      []string
	remote            *RemoteClient
	remoteInstruments []string
}

// NewLoader constructs a Loader. definerPath may be empty, in which
// case corpora load without category assignments and only finalize
// cleanly when no segment data arrives either.
func NewLoader(logger *slog.Logger, definerPath string, segmentGlobs []string, remote *RemoteClient, remoteInstruments []string) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		logger:            logger,
		definerPath:       definerPath,
		segmentGlobs:      segmentGlobs,
		remote:            remote,
		remoteInstruments: remoteInstruments,
	}
}

// Load reads every configured input and returns a fresh corpus. All
// reading finishes before the corpus is returned, so a corpus is
// always a consistent view of its sources.
func (l *Loader) Load(ctx context.Context) (*Corpus, error) {
	var definer *Definer
	if l.definerPath != "" {
		d, err := LoadDefiner(l.definerPath)
		if err != nil {
			return nil, err
		}
		definer = d
	} else {
		l.logger.Warn("no veto definer configured")
	}

	paths, err := expandGlobs(l.segmentGlobs)
	if err != nil {
		return nil, err
	}
	var all []FlagData
	for _, p := range paths {
		data, err := LoadSegmentFile(p)
		if err != nil {
			return nil, err
		}
		all = append(all, data...)
	}

	if l.remote != nil {
		for _, instrument := range l.remoteInstruments {
			data, err := l.remote.FetchInstrument(ctx, instrument)
			if err != nil {
				return nil, err
			}
			all = append(all, data...)
		}
	}

	corpus := NewCorpus(definer, all)
	corpus.paths = paths
	l.logger.Info("corpus loaded",
		"definer", l.definerPath,
		"segment_files", len(paths),
		"instruments", len(corpus.Instruments()))
	return corpus, nil
}

// WatchTargets returns the filesystem paths a watcher should observe:
// the definer file plus the parent directory of every segment glob.
func (l *Loader) WatchTargets() []string {
	seen := make(map[string]struct{})
	var targets []string
	add := func(p string) {
		if p == "" {
			return
		}
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		targets = append(targets, p)
	}
	add(l.definerPath)
	for _, glob := range l.segmentGlobs {
		add(filepath.Dir(glob))
	}
	return targets
}

func expandGlobs(globs []string) ([]string, error) {
	seen := make(map[string]struct{})
	var paths []string
	for _, glob := range globs {
		matches, err := filepath.Glob(glob)
		if err != nil {
			return nil, fmt.Errorf("segment glob %q: %w", glob, err)
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			paths = append(paths, m)
		}
	}
	sort.Strings(paths)
	return paths, nil
}
