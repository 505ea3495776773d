package engine

import (
	"fmt"

	"github.com/dqstack/veto-engine/internal/dqflags"
)

// Resolve selects the flags contributing to a cumulative category
// level. Categories are cumulative: a level n veto set carries every
// flag assigned to category n or below.
func Resolve(snap *dqflags.Snapshot, category int) ([]dqflags.Flag, error) {
	if category < 1 {
		return nil, fmt.Errorf("requested category %d: %w", category, dqflags.ErrBadCategory)
	}
	return snap.FlagsAtOrBelow(category), nil
}
