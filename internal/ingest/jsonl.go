// Package ingest converts existing log material into log store records.
//
// The only format supported today is JSON lines: one JSON object per line
// with timestamp, thread, level, logger, and message fields. Individual
// malformed lines are collected as errors without stopping the run, the
// same resilience rule the watch engine applies to ticks.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/loghound/dbtail/internal/logdb"
)

// Event is the JSONL wire format for one log event.
//
// Timestamp accepts RFC 3339. Ticks, when non-zero, takes precedence and
// is interpreted as nanoseconds since the Unix epoch.
type Event struct {
	Timestamp time.Time `json:"timestamp,omitempty"`
	Ticks     int64     `json:"ticks,omitempty"`
	Thread    string    `json:"thread,omitempty"`
	Level     string    `json:"level,omitempty"`
	Logger    string    `json:"logger,omitempty"`
	Message   string    `json:"message"`
}

// Options contains configuration for an ingest run.
type Options struct {
	// FromJSONL is the input JSONL file path.
	FromJSONL string

	// ToStore is the destination log store path.
	ToStore string

	// DryRun parses and counts without writing.
	DryRun bool

	// BatchSize is how many records go into one transaction
	// (default: 500).
	BatchSize int
}

// Result contains statistics about an ingest run.
type Result struct {
	EventsRead     int
	RecordsWritten int
	Errors         []string
}

// Run reads the JSONL input and appends its events to the store.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.FromJSONL == "" {
		return nil, fmt.Errorf("input path cannot be empty")
	}
	if opts.ToStore == "" && !opts.DryRun {
		return nil, fmt.Errorf("store path cannot be empty")
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 500
	}

	file, err := os.Open(opts.FromJSONL)
	if err != nil {
		return nil, fmt.Errorf("failed to open JSONL file: %w", err)
	}
	defer file.Close()

	var store *logdb.Store
	if !opts.DryRun {
		store, err = logdb.Open(opts.ToStore)
		if err != nil {
			return nil, fmt.Errorf("failed to open store: %w", err)
		}
		defer store.Close()

		if err := store.InitSchema(ctx); err != nil {
			return nil, err
		}
	}

	result := &Result{}
	decoder := json.NewDecoder(file)
	batch := make([]logdb.Record, 0, opts.BatchSize)
	lineNum := 0

	for {
		lineNum++
		var ev Event
		if err := decoder.Decode(&ev); err != nil {
			if err == io.EOF {
				break
			}
			result.Errors = append(result.Errors,
				fmt.Sprintf("line %d: %v", lineNum, err))
			// A decode error desynchronizes the stream; stop rather than
			// misattribute every following line.
			break
		}

		result.EventsRead++
		batch = append(batch, toRecord(ev))

		if len(batch) == opts.BatchSize {
			if err := flush(ctx, store, batch, opts.DryRun, result); err != nil {
				return result, err
			}
			batch = batch[:0]
		}
	}

	if err := flush(ctx, store, batch, opts.DryRun, result); err != nil {
		return result, err
	}
	return result, nil
}

func flush(ctx context.Context, store *logdb.Store, batch []logdb.Record, dryRun bool, result *Result) error {
	if len(batch) == 0 {
		return nil
	}
	if dryRun {
		result.RecordsWritten += len(batch)
		return nil
	}
	if err := store.Append(ctx, batch); err != nil {
		return fmt.Errorf("failed to append batch: %w", err)
	}
	result.RecordsWritten += len(batch)
	return nil
}

// toRecord maps a wire event to a store record.
func toRecord(ev Event) logdb.Record {
	ticks := ev.Ticks
	if ticks == 0 && !ev.Timestamp.IsZero() {
		ticks = ev.Timestamp.UnixNano()
	}
	return logdb.Record{
		Ticks:   ticks,
		Thread:  ev.Thread,
		Level:   ev.Level,
		Logger:  ev.Logger,
		Message: ev.Message,
	}
}
