package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dqstack/veto-engine/internal/engine"
	"github.com/dqstack/veto-engine/internal/models"
	"github.com/dqstack/veto-engine/internal/project"
	"github.com/dqstack/veto-engine/internal/services"
	"github.com/dqstack/veto-engine/pkg/segments"
)

var (
	computeCategories []int
	computeSpan       []int64
	computeOutDir     string
	computeJSON       bool
)

var computeCmd = &cobra.Command{
	Use:   "compute INSTRUMENT [INSTRUMENT...]",
	Short: "Compute cumulative veto segments for one or more instruments",
	Long: `Compute resolves every requested category level into a veto segment
list per instrument. Without --out the artefacts go to stdout; with
--out each one lands in its own conventionally named file, e.g.
H1-VETOTIME_CAT2-1238166018-3600.txt.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCompute,
}

func init() {
	computeCmd.Flags().IntSliceVar(&computeCategories, "category", nil, "category levels to compute (default 1,2,3,4)")
	computeCmd.Flags().Int64SliceVar(&computeSpan, "span", nil, "GPS span start,end to clip results to")
	computeCmd.Flags().StringVarP(&computeOutDir, "out", "o", "", "directory to write artefacts into")
	computeCmd.Flags().BoolVar(&computeJSON, "json", false, "write JSON instead of text artefacts")
	rootCmd.AddCommand(computeCmd)
}

func runCompute(cmd *cobra.Command, args []string) error {
	logger := cliLogger()

	var span segments.Segment
	if len(computeSpan) > 0 {
		if len(computeSpan) != 2 {
			return fmt.Errorf("--span wants exactly start,end; got %d values", len(computeSpan))
		}
		s, err := segments.New(computeSpan[0], computeSpan[1])
		if err != nil {
			return fmt.Errorf("--span: %w", err)
		}
		span = s
	}

	corpus, err := loadCorpus(cmd.Context(), logger, args)
	if err != nil {
		return err
	}

	svc := services.NewVetoService(logger, engine.NewEngine(logger, nil, 0), nil, computeCategories)
	svc.Swap(corpus)

	rec, err := svc.Compute(cmd.Context(), models.ComputeRequest{
		Instruments: args,
		Categories:  computeCategories,
		Span:        span,
	})
	if err != nil {
		return err
	}

	for _, r := range rec.Records {
		if err := writeRecord(r); err != nil {
			return err
		}
	}
	return nil
}

func writeRecord(rec project.Record) error {
	if computeOutDir == "" {
		if computeJSON {
			return project.WriteJSON(os.Stdout, rec)
		}
		return project.WriteText(os.Stdout, rec)
	}

	if err := os.MkdirAll(computeOutDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	ext := ".txt"
	if computeJSON {
		ext = ".json"
	}
	path := filepath.Join(computeOutDir, project.FileName(rec)+ext)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if computeJSON {
		err = project.WriteJSON(f, rec)
	} else {
		err = project.WriteText(f, rec)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintln(os.Stderr, "wrote", path)
	return nil
}
