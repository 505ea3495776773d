package dqflags

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dqstack/veto-engine/pkg/segments"
)

var (
	// ErrUncategorized reports flags carrying segment data without any
	// category assignment.
	ErrUncategorized = errors.New("flag missing category assignment")

	// ErrBadCategory reports a category outside the positive ladder.
	ErrBadCategory = errors.New("category must be a positive integer")
)

// Registry accumulates flag segment data and definer assignments for a
// single instrument. A registry is not safe for concurrent use: build
// it, finalize it, then share the immutable Snapshot.
type Registry struct {
	instrument string
	flags      map[string]*flagState
}

type flagState struct {
	active   segments.List
	coverage segments.List
	assigned bool
	category int
	padStart int64
	padEnd   int64
}

// NewRegistry creates an empty registry for the given instrument.
func NewRegistry(instrument string) *Registry {
	return &Registry{instrument: instrument, flags: make(map[string]*flagState)}
}

// Instrument returns the instrument this registry belongs to.
func (r *Registry) Instrument() string {
	return r.instrument
}

// Register merges segment data for a named flag. Calling it again for
// the same flag unions active and coverage, so data for one flag may
// arrive split across several source files.
func (r *Registry) Register(name string, active, coverage segments.List) {
	st := r.flags[name]
	if st == nil {
		st = &flagState{}
		r.flags[name] = st
	}
	st.active = st.active.Union(active)
	st.coverage = st.coverage.Union(coverage)
}

// AssignCategory records the definer entry for a flag. Later
// assignments overwrite earlier ones, so definer order decides
// conflicts.
func (r *Registry) AssignCategory(name string, category int, padStart, padEnd int64) error {
	if category < 1 {
		return fmt.Errorf("flag %s: category %d: %w", name, category, ErrBadCategory)
	}
	st := r.flags[name]
	if st == nil {
		st = &flagState{}
		r.flags[name] = st
	}
	st.assigned = true
	st.category = category
	st.padStart = padStart
	st.padEnd = padEnd
	return nil
}

// Finalize validates the registry and freezes it into a Snapshot.
// Every flag carrying segment data must have a category; the error
// lists all offenders so one pass over the definer can fix them.
func (r *Registry) Finalize() (*Snapshot, error) {
	var missing []string
	for name, st := range r.flags {
		if !st.assigned {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("%s: %s: %w", r.instrument, strings.Join(missing, ", "), ErrUncategorized)
	}

	flags := make([]Flag, 0, len(r.flags))
	for name, st := range r.flags {
		flags = append(flags, Flag{
			Name:     name,
			Category: st.category,
			PadStart: st.padStart,
			PadEnd:   st.padEnd,
			Active:   st.active,
			Coverage: st.coverage,
		})
	}
	sort.Slice(flags, func(i, j int) bool {
		if flags[i].Category != flags[j].Category {
			return flags[i].Category < flags[j].Category
		}
		return flags[i].Name < flags[j].Name
	})

	byName := make(map[string]int, len(flags))
	maxCategory := 0
	for i, f := range flags {
		byName[f.Name] = i
		if f.Category > maxCategory {
			maxCategory = f.Category
		}
	}
	return &Snapshot{
		instrument:  r.instrument,
		flags:       flags,
		byName:      byName,
		maxCategory: maxCategory,
	}, nil
}

// Snapshot is the immutable, ordered view of a finalized registry.
// Flags sort by category then name, which fixes provenance order for
// every consumer and makes cumulative selection a prefix scan.
type Snapshot struct {
	instrument  string
	flags       []Flag
	byName      map[string]int
	maxCategory int
}

// Instrument returns the instrument this snapshot belongs to.
func (s *Snapshot) Instrument() string {
	return s.instrument
}

// Len returns the number of flags in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.flags)
}

// MaxCategory returns the highest category present, or zero when the
// snapshot is empty.
func (s *Snapshot) MaxCategory() int {
	return s.maxCategory
}

// Flags returns every flag in category, name order. Callers must not
// modify the returned slice.
func (s *Snapshot) Flags() []Flag {
	return s.flags
}

// Flag looks up a single flag by name.
func (s *Snapshot) Flag(name string) (Flag, bool) {
	i, ok := s.byName[name]
	if !ok {
		return Flag{}, false
	}
	return s.flags[i], true
}

// FlagsAtOrBelow returns the flags contributing at the given cumulative
// category level, preserving snapshot order.
func (s *Snapshot) FlagsAtOrBelow(category int) []Flag {
	n := sort.Search(len(s.flags), func(i int) bool { return s.flags[i].Category > category })
	return s.flags[:n]
}
