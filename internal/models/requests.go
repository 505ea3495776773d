package models

import (
	"time"

	"github.com/dqstack/veto-engine/pkg/segments"
)

// ComputeRequest asks for veto sets across instruments and category
// levels. A zero Span leaves the results unclipped.
type ComputeRequest struct {
	Instruments []string
	Categories  []int
	Span        segments.Segment
	Persist     bool
}

// ListRunsRequest captures filters for the archived run history.
type ListRunsRequest struct {
	Instrument string
	Limit      int
}

// DefinerInfo describes the veto definer currently loaded.
type DefinerInfo struct {
	Path       string
	Digest     string
	Rows       int
	Categories []int
	LoadedAt   time.Time
}
