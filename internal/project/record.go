// Package project shapes resolved veto sets into the documents the
// service archives and serves.
package project

import (
	"errors"
	"fmt"
	"time"

	"github.com/dqstack/veto-engine/internal/models"
	"github.com/dqstack/veto-engine/internal/utils"
	"github.com/dqstack/veto-engine/pkg/segments"
)

// IntervalRow is one vetoed interval in output order.
type IntervalRow struct {
	Start    int64 `json:"start"`
	End      int64 `json:"end"`
	Duration int64 `json:"duration"`
}

// Record is the projection of one veto set, self-describing enough to
// be archived or compared on its own. The digest covers every other
// field in canonical JSON form.
type Record struct {
	Instrument    string            `json:"instrument"`
	Category      int               `json:"category"`
	Label         string            `json:"label"`
	Span          *segments.Segment `json:"span,omitempty"`
	Intervals     []IntervalRow     `json:"intervals"`
	Flags         []string          `json:"flags"`
	VetoedSeconds int64             `json:"vetoed_seconds"`
	Digest        string            `json:"digest,omitempty"`
}

// RunRecord archives one compute run: the request shape that produced
// it plus every projected record.
type RunRecord struct {
	RunID         string            `json:"run_id"`
	Instruments   []string          `json:"instruments"`
	Categories    []int             `json:"categories"`
	Span          *segments.Segment `json:"span,omitempty"`
	DefinerDigest string            `json:"definer_digest,omitempty"`
	Records       []Record          `json:"records"`
	CreatedAt     time.Time         `json:"created_at"`
}

// Project flattens a veto set into a Record. Equal veto sets always
// project to byte-equal records, digest included.
func Project(set models.VetoSet, span segments.Segment) (Record, error) {
	rows := make([]IntervalRow, 0, len(set.Segments))
	for _, s := range set.Segments {
		rows = append(rows, IntervalRow{Start: s.Start, End: s.End, Duration: s.Duration()})
	}
	flags := make([]string, 0, len(set.Flags))
	flags = append(flags, set.Flags...)

	rec := Record{
		Instrument:    set.Instrument,
		Category:      set.Category,
		Label:         set.Label(),
		Intervals:     rows,
		Flags:         flags,
		VetoedSeconds: set.Duration(),
	}
	if span != (segments.Segment{}) {
		spanCopy := span
		rec.Span = &spanCopy
	}

	digest, err := utils.CanonicalDigest(rec)
	if err != nil {
		return Record{}, fmt.Errorf("project %s %s: %w", set.Instrument, set.Label(), err)
	}
	rec.Digest = digest
	return rec, nil
}

// VerifyDigest recomputes the record digest and reports whether it
// matches the stored one.
func (r Record) VerifyDigest() (bool, error) {
	want := r.Digest
	r.Digest = ""
	got, err := utils.CanonicalDigest(r)
	if err != nil {
		return false, err
	}
	return got == want, nil
}

// FileName renders the conventional artefact name for a record, e.g.
// "H1-VETOTIME_CAT2-1238166018-3600". Records without a span carry no
// start and duration fields in the name.
func FileName(rec Record) string {
	if rec.Span == nil {
		return fmt.Sprintf("%s-VETOTIME_%s", rec.Instrument, rec.Label)
	}
	return fmt.Sprintf("%s-VETOTIME_%s-%d-%d", rec.Instrument, rec.Label, rec.Span.Start, rec.Span.Duration())
}

// LiveIntervals returns the unvetoed remainder of the record's span.
func LiveIntervals(rec Record) ([]IntervalRow, error) {
	if rec.Span == nil {
		return nil, errors.New("record has no span to complement")
	}
	vetoed := make([]segments.Segment, 0, len(rec.Intervals))
	for _, row := range rec.Intervals {
		seg, err := segments.New(row.Start, row.End)
		if err != nil {
			return nil, fmt.Errorf("interval %d: %w", row.Start, err)
		}
		vetoed = append(vetoed, seg)
	}
	live := segments.NewList(*rec.Span).Sub(segments.NewList(vetoed...))
	rows := make([]IntervalRow, 0, len(live))
	for _, s := range live {
		rows = append(rows, IntervalRow{Start: s.Start, End: s.End, Duration: s.Duration()})
	}
	return rows, nil
}
