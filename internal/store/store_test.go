package store

import (
	"io"
	"log/slog"
	"time"

	"github.com/dqstack/veto-engine/internal/project"
	"github.com/dqstack/veto-engine/pkg/segments"
)

var testBase = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRecord(id, instrument string, created time.Time) project.RunRecord {
	span := segments.Segment{Start: 100, End: 200}
	return project.RunRecord{
		RunID:         id,
		Instruments:   []string{instrument},
		Categories:    []int{1},
		Span:          &span,
		DefinerDigest: "feedbeef",
		Records: []project.Record{{
			Instrument:    instrument,
			Category:      1,
			Label:         "CAT1",
			Span:          &span,
			Intervals:     []project.IntervalRow{{Start: 100, End: 150, Duration: 50}},
			Flags:         []string{instrument + ":TEST-FLAG:1"},
			VetoedSeconds: 50,
		}},
		CreatedAt: created,
	}
}
