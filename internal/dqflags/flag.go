// Package dqflags maintains the per-instrument registry of data
// quality flags, their segment data and their category assignments.
package dqflags

import "github.com/dqstack/veto-engine/pkg/segments"

// Flag is one named data quality condition with its accumulated
// segment data and resolved category assignment.
type Flag struct {
	Name     string
	Category int
	PadStart int64
	PadEnd   int64
	Active   segments.List
	Coverage segments.List
}

// Effective returns the instants this flag actually vetoes: the padded
// active time gated by the coverage its sources reported. Active time
// outside coverage carries no information and is dropped.
func (f Flag) Effective() segments.List {
	active := f.Active
	if f.PadStart != 0 || f.PadEnd != 0 {
		active = active.Pad(f.PadStart, f.PadEnd)
	}
	return active.Intersect(f.Coverage)
}
