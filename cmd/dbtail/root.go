package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/loghound/dbtail/internal/ui"
)

var (
	cfgFile string
	noColor bool

	// render is the global renderer for all command output
	render *ui.Renderer
)

var rootCmd = &cobra.Command{
	Use:   "dbtail",
	Short: "Follow log databases like files",
	Long: `dbtail adapts SQLite log databases into line-oriented log sources.

It watches a .db file of structured log records, incrementally converts
newly appended records into formatted text lines, and serves them through
a thread-safe, randomly-indexable view - to a terminal, to WebSocket
clients, or to an embedding host application.

Configuration:
  Create ~/.dbtail/config.yaml to set defaults:

    interval: 500ms       # poll interval
    max_lines: 0          # line retention cap, 0 = keep everything
    dashboard_port: 8080
    wake: true            # fsnotify-triggered early ticks

Examples:
  # Follow a log database in the terminal
  dbtail tail app.db

  # Run the sync engine with a WebSocket dashboard
  dbtail watch app.db --dashboard

  # One-shot store summary
  dbtail stat app.db -o yaml

  # Create a demo store
  dbtail seed demo.db --records 5000`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initRenderer)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.dbtail/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().Duration("interval", 0, "Poll interval between sync ticks (default 500ms)")
	rootCmd.PersistentFlags().Int("max-lines", 0, "Line retention cap, 0 keeps everything")

	_ = viper.BindPFlag("interval", rootCmd.PersistentFlags().Lookup("interval"))
	_ = viper.BindPFlag("max_lines", rootCmd.PersistentFlags().Lookup("max-lines"))
}

// initConfig reads the config file and environment variables.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".dbtail"))
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	viper.SetEnvPrefix("DBTAIL")
	viper.AutomaticEnv()

	// Missing config file is fine; flags and defaults cover everything.
	_ = viper.ReadInConfig()
}

// initRenderer builds the global renderer, disabling color when output is
// not a terminal or the user asked for plain text.
func initRenderer() {
	color := !noColor &&
		os.Getenv("NO_COLOR") == "" &&
		term.IsTerminal(int(os.Stdout.Fd()))
	render = ui.NewRenderer(os.Stdout, color)
}
