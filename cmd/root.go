package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/icco/videoseq/internal/config"
	"github.com/icco/videoseq/internal/logging"
)

var (
	configPath string
	logLevel   string

	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:   "videoseq",
	Short: "A terminal video sequencer",
	Long: `videoseq arranges video clips on a beat timeline and a grid of instruments.

It provides a terminal editor for projects, a small server that lists and serves
clip files, and tools to inspect, export and plan the rendering of saved projects.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") {
			loaded.LogLevel = logLevel
		}
		cfg = loaded
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", fmt.Sprintf("config file (default %s)", config.DefaultPath()))
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn or error")
}

// newLogger writes JSON logs for component to w.
func newLogger(w io.Writer, component string) *slog.Logger {
	return logging.New(logging.Options{Level: cfg.LogLevel, Writer: w, Component: component})
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
