package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/dqstack/veto-engine/internal/utils"
)

var gpsCmd = &cobra.Command{
	Use:   "gps [TIME]",
	Short: "Convert between GPS seconds and UTC",
	Long: `Without an argument, gps prints the current GPS time. A numeric
argument converts GPS seconds to UTC; an RFC 3339 timestamp converts
the other way.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runGPS,
}

func init() {
	rootCmd.AddCommand(gpsCmd)
}

func runGPS(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		now := time.Now().UTC()
		fmt.Printf("%d\t%s\n", utils.TimeToGPS(now), now.Format(time.RFC3339))
		return nil
	}

	arg := args[0]
	if gps, err := strconv.ParseInt(arg, 10, 64); err == nil {
		fmt.Printf("%d\t%s\n", gps, utils.GPSToTime(gps).Format(time.RFC3339))
		return nil
	}
	ts, err := time.Parse(time.RFC3339, arg)
	if err != nil {
		return fmt.Errorf("%q is neither GPS seconds nor an RFC 3339 timestamp", arg)
	}
	fmt.Printf("%d\t%s\n", utils.TimeToGPS(ts), ts.UTC().Format(time.RFC3339))
	return nil
}
