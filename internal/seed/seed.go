// Package seed populates log stores with generated records.
//
// Used by the `dbtail seed` command for demos and by tests that need a
// store with realistic shape: multiple threads and loggers, severities
// weighted toward INFO, and monotonically increasing timestamps.
package seed

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/loghound/dbtail/internal/logdb"
)

// Options controls record generation.
type Options struct {
	// Records is the number of records to generate.
	Records int

	// Threads is how many distinct thread names to spread records over
	// (default: 4).
	Threads int

	// Loggers is how many distinct logger names to use (default: 6).
	Loggers int

	// Start is the timestamp of the first record (default: one hour ago).
	Start time.Time

	// Step is the gap between consecutive record timestamps
	// (default: 250ms).
	Step time.Duration

	// Seed seeds the random generator; 0 uses the current time.
	Seed int64

	// BatchSize is how many records go into one transaction
	// (default: 500).
	BatchSize int
}

// Result reports what a seeding run did.
type Result struct {
	Records  int
	Duration time.Duration
	PerSec   float64
}

// severities weighted the way production logs actually skew; the odd
// casing and the unknown level exercise the formatter's tolerant parse.
var severities = []struct {
	level  string
	weight int
}{
	{"INFO", 55},
	{"DEBUG", 25},
	{"WARN", 10},
	{"error", 5},
	{"FATAL", 1},
	{"NOTICE", 4}, // not in the fixed vocabulary; classifies as None
}

var messages = []string{
	"request completed",
	"connection established",
	"cache miss for key %d",
	"retrying operation, attempt %d",
	"slow query took %dms",
	"worker pool size adjusted to %d",
	"session expired",
	"payload validation failed for field %d",
}

// Populate creates (if necessary) the store at path and appends the
// requested records.
func Populate(ctx context.Context, path string, opts Options) (*Result, error) {
	if opts.Records <= 0 {
		return nil, fmt.Errorf("records must be positive, got %d", opts.Records)
	}
	if opts.Threads <= 0 {
		opts.Threads = 4
	}
	if opts.Loggers <= 0 {
		opts.Loggers = 6
	}
	if opts.Start.IsZero() {
		opts.Start = time.Now().Add(-time.Hour)
	}
	if opts.Step <= 0 {
		opts.Step = 250 * time.Millisecond
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 500
	}
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}

	store, err := logdb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	if err := store.InitSchema(ctx); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	start := time.Now()

	batch := make([]logdb.Record, 0, opts.BatchSize)
	ts := opts.Start
	for i := 0; i < opts.Records; i++ {
		batch = append(batch, generate(rng, ts, opts))
		ts = ts.Add(opts.Step)

		if len(batch) == opts.BatchSize {
			if err := store.Append(ctx, batch); err != nil {
				return nil, fmt.Errorf("failed to append batch: %w", err)
			}
			batch = batch[:0]
		}
	}
	if err := store.Append(ctx, batch); err != nil {
		return nil, fmt.Errorf("failed to append batch: %w", err)
	}

	elapsed := time.Since(start)
	return &Result{
		Records:  opts.Records,
		Duration: elapsed,
		PerSec:   float64(opts.Records) / elapsed.Seconds(),
	}, nil
}

// generate produces one record with weighted severity.
func generate(rng *rand.Rand, ts time.Time, opts Options) logdb.Record {
	msg := messages[rng.Intn(len(messages))]
	rendered := msg
	for i := 0; i < len(msg); i++ {
		if msg[i] == '%' {
			rendered = fmt.Sprintf(msg, rng.Intn(5000))
			break
		}
	}

	return logdb.Record{
		Ticks:   ts.UnixNano(),
		Thread:  fmt.Sprintf("worker-%d", rng.Intn(opts.Threads)),
		Level:   pickSeverity(rng),
		Logger:  fmt.Sprintf("app.module%d", rng.Intn(opts.Loggers)),
		Message: rendered,
	}
}

func pickSeverity(rng *rand.Rand) string {
	total := 0
	for _, s := range severities {
		total += s.weight
	}
	n := rng.Intn(total)
	for _, s := range severities {
		if n < s.weight {
			return s.level
		}
		n -= s.weight
	}
	return severities[0].level
}
