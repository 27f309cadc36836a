package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/loghound/dbtail/internal/seed"
)

var seedCmd = &cobra.Command{
	Use:   "seed <store.db>",
	Short: "Populate a log database with generated records",
	Long: `Create or extend a log database with realistic generated records:
multiple threads and loggers, severities weighted toward INFO, and
monotonically increasing timestamps.

Useful for demos and for exercising the watch engine against a store
that keeps growing:

  dbtail seed demo.db --records 1000
  dbtail watch demo.db --dashboard &
  dbtail seed demo.db --records 1000   # watch the delta sync`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := args[0]
		records, _ := cmd.Flags().GetInt("records")
		threads, _ := cmd.Flags().GetInt("threads")
		loggers, _ := cmd.Flags().GetInt("loggers")
		step, _ := cmd.Flags().GetDuration("step")

		render.Status("Seeding %s with %d records...", path, records)

		result, err := seed.Populate(context.Background(), path, seed.Options{
			Records: records,
			Threads: threads,
			Loggers: loggers,
			Step:    step,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		render.Success("Wrote %d records in %s (%.0f records/sec)",
			result.Records, result.Duration.Round(time.Millisecond), result.PerSec)
	},
}

func init() {
	seedCmd.Flags().Int("records", 1000, "Number of records to generate")
	seedCmd.Flags().Int("threads", 4, "Distinct thread names")
	seedCmd.Flags().Int("loggers", 6, "Distinct logger names")
	seedCmd.Flags().Duration("step", 250*time.Millisecond, "Timestamp gap between records")

	rootCmd.AddCommand(seedCmd)
}
