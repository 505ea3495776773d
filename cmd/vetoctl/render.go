package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dqstack/veto-engine/internal/project"
)

var renderLive bool

var renderCmd = &cobra.Command{
	Use:   "render RECORD_FILE",
	Short: "Render an archived veto record as text",
	Long: `Render reads a JSON veto record written by compute --json, verifies
its digest, and prints it in the text artefact format. With --live the
output is inverted: the intervals NOT vetoed within the record's span.`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	renderCmd.Flags().BoolVar(&renderLive, "live", false, "print the unvetoed remainder of the span instead")
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	var rec project.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return fmt.Errorf("parse %s: %w", args[0], err)
	}

	if rec.Digest != "" {
		ok, err := rec.VerifyDigest()
		if err != nil {
			return fmt.Errorf("verify digest: %w", err)
		}
		if !ok {
			return fmt.Errorf("%s: digest mismatch, record was modified", args[0])
		}
	}

	if renderLive {
		rows, err := project.LiveIntervals(rec)
		if err != nil {
			return err
		}
		for _, row := range rows {
			fmt.Printf("%d\t%d\t%d\n", row.Start, row.End, row.Duration)
		}
		return nil
	}
	return project.WriteText(os.Stdout, rec)
}
