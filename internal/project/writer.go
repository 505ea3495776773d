package project

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dqstack/veto-engine/internal/utils"
)

// WriteJSON writes the record as indented JSON.
func WriteJSON(w io.Writer, rec Record) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rec)
}

// WriteText writes the record in the four-column segwizard layout:
// index, start, end, duration, preceded by comment headers describing
// the provenance of the rows.
func WriteText(w io.Writer, rec Record) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# instrument: %s\n", rec.Instrument)
	fmt.Fprintf(bw, "# label: %s\n", rec.Label)
	if rec.Span != nil {
		fmt.Fprintf(bw, "# span: %d %d (%s .. %s)\n",
			rec.Span.Start, rec.Span.End,
			utils.GPSToTime(rec.Span.Start).Format(time.RFC3339),
			utils.GPSToTime(rec.Span.End).Format(time.RFC3339))
	}
	for _, name := range rec.Flags {
		fmt.Fprintf(bw, "# flag: %s\n", name)
	}
	if rec.Digest != "" {
		fmt.Fprintf(bw, "# digest: %s\n", rec.Digest)
	}
	fmt.Fprintf(bw, "# vetoed: %d s\n", rec.VetoedSeconds)
	for i, row := range rec.Intervals {
		fmt.Fprintf(bw, "%d\t%d\t%d\t%d\n", i, row.Start, row.End, row.Duration)
	}
	return bw.Flush()
}
