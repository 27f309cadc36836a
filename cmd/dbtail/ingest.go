package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/loghound/dbtail/internal/ingest"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <input.jsonl> <store.db>",
	Short: "Import a JSON-lines log file into a log database",
	Long: `Convert a JSON-lines log file into log database records.

Each input line is a JSON object:

  {"timestamp":"2026-08-30T10:15:00Z","thread":"main","level":"INFO",
   "logger":"app.core","message":"started"}

A "ticks" field (nanoseconds since the Unix epoch) may replace
"timestamp". Malformed lines are reported and skipped up to the point the
stream desynchronizes.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		result, err := ingest.Run(context.Background(), ingest.Options{
			FromJSONL: args[0],
			ToStore:   args[1],
			DryRun:    dryRun,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		for _, msg := range result.Errors {
			render.Error("Warning: %s", msg)
		}
		if dryRun {
			render.Success("Dry run: %d events would be written", result.RecordsWritten)
			return
		}
		render.Success("Ingested %d events (%d written)", result.EventsRead, result.RecordsWritten)
	},
}

func init() {
	ingestCmd.Flags().Bool("dry-run", false, "Parse and count without writing")

	rootCmd.AddCommand(ingestCmd)
}
