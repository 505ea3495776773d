// Package segments implements interval algebra over half-open spans of
// integer GPS time. Lists of segments are kept in a coalesced normal
// form so that set operations stay linear and results are directly
// comparable.
package segments

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrReversed reports an interval whose start lies after its end.
var ErrReversed = errors.New("segment start after end")

// Segment is a half-open interval [Start, End) on the GPS time axis.
// A segment whose endpoints coincide is empty and covers no time.
type Segment struct {
	Start int64
	End   int64
}

// New builds a segment from two GPS endpoints. Reversed endpoints are
// rejected, never silently swapped.
func New(start, end int64) (Segment, error) {
	if start > end {
		return Segment{}, fmt.Errorf("segment [%d, %d): %w", start, end, ErrReversed)
	}
	return Segment{Start: start, End: end}, nil
}

// Empty reports whether the segment covers no time.
func (s Segment) Empty() bool {
	return s.Start >= s.End
}

// Duration returns the covered time in seconds.
func (s Segment) Duration() int64 {
	if s.Empty() {
		return 0
	}
	return s.End - s.Start
}

// Contains reports whether the instant t falls inside the segment. The
// end point is excluded, matching the half-open convention.
func (s Segment) Contains(t int64) bool {
	return t >= s.Start && t < s.End
}

// Intersects reports whether the two segments share at least one instant.
func (s Segment) Intersects(o Segment) bool {
	return s.Start < o.End && o.Start < s.End
}

func (s Segment) String() string {
	return fmt.Sprintf("[%d, %d)", s.Start, s.End)
}

// MarshalJSON encodes the segment as a two-element array [start, end].
func (s Segment) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int64{s.Start, s.End})
}

// UnmarshalJSON decodes a [start, end] pair and rejects reversed endpoints.
func (s *Segment) UnmarshalJSON(data []byte) error {
	var pair []int64
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("segment: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("segment: want [start, end], got %d elements", len(pair))
	}
	seg, err := New(pair[0], pair[1])
	if err != nil {
		return err
	}
	*s = seg
	return nil
}
