package main

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/loghound/dbtail/internal/source"
	"github.com/loghound/dbtail/internal/ui"
	"github.com/loghound/dbtail/internal/watch"
)

var tailCmd = &cobra.Command{
	Use:   "tail <store.db>",
	Short: "Follow a log database in the terminal",
	Long: `Follow a log database, printing formatted lines as records arrive.

Lines are styled by severity when writing to a terminal. If the store is
rewritten (record count decreases), the tail restarts from the new
beginning of the store.

Examples:
  dbtail tail app.db              # last 10 lines, then follow
  dbtail tail app.db -n 50        # last 50 lines, then follow
  dbtail tail app.db -n 0         # everything, then follow`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := args[0]
		initial, _ := cmd.Flags().GetInt("lines")

		follower := &follower{render: render, initial: initial}

		config := watch.DefaultConfig()
		config.Interval = viper.GetDuration("interval")
		config.MaxLines = viper.GetInt("max_lines")

		w, err := source.Open(path, source.Options{
			Notifier: follower,
			Config:   config,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer w.Close()

		follower.watcher = w

		if err := w.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
	},
}

// follower prints lines as the engine announces them. Notifications are
// delivered from the engine's tick, so printing here is naturally
// serialized; the mutex only covers the first-notification handshake with
// the command goroutine setting the watcher.
type follower struct {
	render  *ui.Renderer
	initial int

	mu      sync.Mutex
	watcher *watch.Watcher
	printed int
	primed  bool
}

// Reset implements watch.Notifier.
func (f *follower) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.printed = 0
	f.render.Muted("--- store reset ---")
}

// LinesAvailable implements watch.Notifier.
func (f *follower) LinesAvailable(total int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.watcher == nil {
		return
	}

	start := f.printed
	if !f.primed {
		f.primed = true
		if f.initial > 0 && total-f.initial > start {
			start = total - f.initial
		}
	}
	if first := f.watcher.FirstOrdinal(); start < first {
		start = first
	}

	for i := start; i < total; i++ {
		line, err := f.watcher.At(i)
		if err != nil {
			// Evicted or shrunk under us; the next notification resyncs.
			break
		}
		f.render.Line(line)
	}
	f.printed = total
}

func init() {
	tailCmd.Flags().IntP("lines", "n", 10, "Initial lines to print, 0 for all")

	rootCmd.AddCommand(tailCmd)
}
