package models

import (
	"fmt"

	"github.com/dqstack/veto-engine/pkg/segments"
)

// VetoSet is the resolved veto time for one instrument at one
// cumulative category level.
type VetoSet struct {
	Instrument string
	Category   int
	Segments   segments.List
	Flags      []string
}

// Label renders the conventional category name, e.g. "CAT2".
func (v VetoSet) Label() string {
	return fmt.Sprintf("CAT%d", v.Category)
}

// Duration returns the total vetoed time in seconds.
func (v VetoSet) Duration() int64 {
	return v.Segments.Duration()
}

// FlagInfo summarises one registered flag for listings.
type FlagInfo struct {
	Name            string
	Category        int
	PadStart        int64
	PadEnd          int64
	ActiveSeconds   int64
	CoverageSeconds int64
}
