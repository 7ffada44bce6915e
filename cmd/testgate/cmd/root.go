// Package cmd implements the testgate command-line entrypoint: a cobra
// command tree wiring internal/config, the ten audits, and
// internal/aggregator into a runnable build gate.
package cmd

import (
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags; "dev" otherwise.
var Version = "dev"

// configPath is the persistent --config flag, shared by run and validate.
var configPath string

// logger is initialized in PersistentPreRunE and used by every subcommand.
var logger *slog.Logger

var rootCmd = &cobra.Command{
	Use:   "testgate",
	Short: "Run the build-gating audit pipeline over one or more modules",
	Long: `testgate runs a fixed catalog of independent audits over a module's tool
reports and source tree, aggregates their verdicts into one JSON report,
and fails the build when any audit fails.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = newLogger()
		return nil
	},
}

// newLogger picks a JSON handler for non-interactive (CI) runs and a text
// handler for an interactive terminal, based on isatty detection.
func newLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if isatty.IsTerminal(os.Stderr.Fd()) {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "testgate.yml", "path to the testgate config file")
}
