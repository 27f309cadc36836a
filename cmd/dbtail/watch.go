package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/loghound/dbtail/internal/dashboard"
	"github.com/loghound/dbtail/internal/source"
	"github.com/loghound/dbtail/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch <store.db>",
	Short: "Run the sync engine against a log database",
	Long: `Run the incremental sync engine for a log database.

The engine polls the store at a fixed interval, keeps an in-memory line
cache aligned with it, and announces changes to the configured sinks.
With --dashboard, announcements are broadcast to WebSocket clients:

  ws://localhost:<port>/ws

Messages:
- reset: the store was rewritten or removed; cached lines are invalid
- lines: new total of readable lines
- stats: cumulative watch statistics

With --wake, a file system watch on the store's directory triggers early
ticks when the database (or its WAL) changes, instead of waiting out the
poll interval. Polling remains active either way.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := args[0]
		useDashboard, _ := cmd.Flags().GetBool("dashboard")
		port := viper.GetInt("dashboard_port")
		wake := viper.GetBool("wake")
		logFile, _ := cmd.Flags().GetString("log-file")

		if !source.Claims(path) {
			fmt.Fprintf(os.Stderr, "Error: no provider claims %s (supported: %v)\n",
				path, source.Extensions())
			os.Exit(1)
		}

		var logOut io.Writer = os.Stderr
		if logFile != "" {
			logOut = &lumberjack.Logger{
				Filename:   logFile,
				MaxSize:    10, // megabytes
				MaxBackups: 3,
			}
		}
		logger := log.New(logOut, "[watch] ", log.LstdFlags)

		var notifier watch.Notifier
		var server *dashboard.Server
		if useDashboard {
			server = dashboard.NewServer(&dashboard.Config{
				Port:   port,
				Logger: log.New(logOut, "[dashboard] ", log.LstdFlags),
			})
			if err := server.Start(); err != nil {
				fmt.Fprintf(os.Stderr, "Error: failed to start dashboard: %v\n", err)
				os.Exit(1)
			}
			defer server.Stop()
			notifier = dashboard.NewHandler(server, path, logger)
			render.Status("Dashboard on ws://localhost:%d/ws", port)
		}

		config := watch.DefaultConfig()
		config.Interval = viper.GetDuration("interval")
		config.MaxLines = viper.GetInt("max_lines")
		config.Logger = logger

		w, err := source.Open(path, source.Options{
			Notifier: notifier,
			Config:   config,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer w.Close()

		if err := w.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if wake {
			monitor, err := watch.NewMonitor(w, 0)
			if err != nil {
				logger.Printf("file monitor unavailable, polling only: %v", err)
			} else if err := monitor.Start(); err != nil {
				logger.Printf("file monitor unavailable, polling only: %v", err)
			} else {
				defer monitor.Stop()
			}
		}

		render.Status("Watching %s (interval %s). Press Ctrl+C to stop.", path, config.Interval)

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig

		render.Status("Stopping...")
	},
}

func init() {
	watchCmd.Flags().Bool("dashboard", false, "Broadcast changes to WebSocket clients")
	watchCmd.Flags().Int("port", 8080, "Dashboard port")
	watchCmd.Flags().Bool("wake", false, "Trigger early ticks on file system events")
	watchCmd.Flags().String("log-file", "", "Write engine logs to a rotated file instead of stderr")

	_ = viper.BindPFlag("dashboard_port", watchCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("wake", watchCmd.Flags().Lookup("wake"))

	rootCmd.AddCommand(watchCmd)
}
