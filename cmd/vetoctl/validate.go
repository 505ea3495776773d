package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load and check the definer and segment inputs without computing",
	Long: `Validate reads every configured input the same way compute does and
reports what it finds: definer rows and digest, instruments, flags and
their categories. A missing category assignment fails validation.`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	logger := cliLogger()

	corpus, err := loadCorpus(cmd.Context(), logger, nil)
	if err != nil {
		return err
	}

	if d := corpus.Definer(); d != nil {
		fmt.Printf("definer: %s\n", d.Path())
		fmt.Printf("  rows: %d\n", len(d.Rows()))
		fmt.Printf("  categories: %v\n", d.Categories())
		fmt.Printf("  digest: %s\n", d.Digest())
	} else {
		fmt.Println("definer: none")
	}

	instruments := corpus.Instruments()
	if len(instruments) == 0 {
		fmt.Println("no segment data loaded")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "INSTRUMENT\tFLAG\tCATEGORY\tACTIVE s\tCOVERAGE s")
	for _, instrument := range instruments {
		snap, err := corpus.BuildSnapshot(instrument)
		if err != nil {
			w.Flush()
			return fmt.Errorf("%s: %w", instrument, err)
		}
		for _, f := range snap.Flags() {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\n",
				instrument, f.Name, f.Category, f.Active.Duration(), f.Coverage.Duration())
		}
	}
	return w.Flush()
}
