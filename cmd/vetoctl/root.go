package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dqstack/veto-engine/internal/sources"
	"github.com/dqstack/veto-engine/internal/utils"
)

var (
	flagDefiner   string
	flagSegments  []string
	flagRemoteURL string
	flagVerbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "vetoctl",
	Short: "Compute and inspect data-quality veto segments",
	Long: `vetoctl resolves data-quality flags into cumulative veto segment
lists. Flag data comes from local segment files, a remote segment
source, or both; the veto definer assigns each flag its category.`,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDefiner, "definer", "", "path to the veto definer file")
	rootCmd.PersistentFlags().StringSliceVar(&flagSegments, "segments", nil, "segment file glob, repeatable")
	rootCmd.PersistentFlags().StringVar(&flagRemoteURL, "segments-url", "", "base URL of a remote segment source")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
}

// cliLogger logs to stderr so command output stays pipeable.
func cliLogger() *slog.Logger {
	level := "warn"
	if flagVerbose {
		level = "debug"
	}
	return utils.NewLogger(os.Stderr, level, false)
}

// loadCorpus reads the configured inputs. Remote fetches are limited
// to the instruments the command actually needs.
func loadCorpus(ctx context.Context, logger *slog.Logger, instruments []string) (*sources.Corpus, error) {
	var remote *sources.RemoteClient
	if flagRemoteURL != "" {
		remote = sources.NewRemoteClient(flagRemoteURL, 15*time.Second, logger)
	}
	loader := sources.NewLoader(logger, flagDefiner, flagSegments, remote, instruments)
	return loader.Load(ctx)
}
