package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tokensmith",
	Short: "Evidence-backed design tokens from live pages",
	Long: `Collect computed styles, interaction states and fonts from rendered pages,
then cluster the evidence into primitive, semantic and component tokens.
Every token names the samples behind it; every gap is reported as a limit.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Global persistent flags (inherited by all subcommands)
	pf := rootCmd.PersistentFlags()
	pf.BoolP("verbose", "v", false, "Enable verbose logging")
	pf.Bool("quiet", false, "Suppress all output (exit code only)")
	pf.Bool("color", false, "Force color output")
	pf.String("config", defaultConfigPath, "Config file path")

	rootCmd.AddCommand(collectCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(completionCmd)
	rootCmd.AddCommand(versionCmd)
}

// newLogger builds the process logger from --verbose/--quiet and installs it as default
func newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	switch {
	case getBoolWithFallback("quiet", "quiet", false):
		level = slog.LevelError
	case getBoolWithFallback("verbose", "verbose", false):
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

func stderrLogger() *slog.Logger {
	return newLogger(os.Stderr)
}
