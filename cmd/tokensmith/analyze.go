package main

import (
	"github.com/spf13/cobra"

	"github.com/yacobolo/tokensmith"
)

var analyzeCmd = &cobra.Command{
	Use:     "analyze [PATTERN...]",
	Aliases: []string{"replay"},
	Short:   "Build tokens from previously captured evidence",
	Long: `Replay captured page evidence (JSON files matched by glob patterns) through
the pipeline without a browser. Recorded interaction states stand in for live
ones. Files listed in .gitignore or .tokensmithignore are skipped.`,
	Example: `  tokensmith analyze 'captures/**/*.json'`,
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		return loadConfig(cmd)
	},
	RunE: runAnalyze,
}

func init() {
	addRunFlags(analyzeCmd.Flags())
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	logger := stderrLogger()

	cfg, err := buildRunConfig(logger)
	if err != nil {
		return err
	}

	patterns := args
	if len(patterns) == 0 {
		patterns = getStringsWithFallback("captures", "analyze.captures", []string{"captures/**/*.json"})
	}
	fc, err := tokensmith.NewFileCollector(patterns, logger)
	if err != nil {
		return err
	}
	cfg.Pages, cfg.Breakpoints, cfg.Themes = fc.Axes()

	return execute(cmd.Context(), cfg, fc, logger)
}
