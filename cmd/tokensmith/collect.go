package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yacobolo/tokensmith"
	"github.com/yacobolo/tokensmith/internal/collector"
)

var collectCmd = &cobra.Command{
	Use:   "collect [name=]URL...",
	Short: "Collect evidence from live pages and build tokens",
	Long: `Load every page at every breakpoint and theme in a headless browser,
extract candidate elements with their computed styles, induce hover,
focus-visible and active states, and analyze the evidence into tokens.`,
	Example: `  tokensmith collect https://example.com
  tokensmith collect home=https://example.com pricing=https://example.com/pricing \
    --breakpoint mobile --breakpoint desktop=1440x900 --theme light --theme dark`,
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		return loadConfig(cmd)
	},
	RunE: runCollect,
}

func init() {
	f := collectCmd.Flags()
	f.StringSlice("breakpoint", nil, "Breakpoints as name=WxH or mobile|tablet|desktop (default all three)")
	f.StringSlice("theme", nil, "Themes to emulate (default light)")
	f.String("remote-url", "", "WebSocket URL of a running browser (default: launch one)")
	f.String("browser-bin", "", "Browser binary to launch")
	f.Bool("headful", false, "Show the browser window")
	f.Float64("loads-per-second", 2, "Page loads per second per host (0 = unlimited)")
	f.Duration("stylesheet-ttl", 0, "How long fetched stylesheets are reused (default 10m)")
	f.Duration("idle-wait", 0, "Network quiet period awaited after load (default 1s)")
	addRunFlags(f)
}

func runCollect(cmd *cobra.Command, args []string) error {
	logger := stderrLogger()

	cfg, err := buildRunConfig(logger)
	if err != nil {
		return err
	}

	pageSpecs := args
	if len(pageSpecs) == 0 {
		pageSpecs = k.Strings("collect.pages")
	}
	if len(pageSpecs) == 0 {
		return fmt.Errorf("no pages to collect: pass URLs or set collect.pages in %s", defaultConfigPath)
	}
	bpSpecs := getStringsWithFallback("breakpoint", "collect.breakpoints", nil)
	cfg.Pages, cfg.Breakpoints, err = parseAxes(pageSpecs, bpSpecs)
	if err != nil {
		return err
	}
	cfg.Themes = getStringsWithFallback("theme", "collect.themes", []string{tokensmith.DefaultTheme})

	rod, err := collector.New(buildBrowserConfig(logger))
	if err != nil {
		return err
	}
	defer rod.Close()

	return execute(cmd.Context(), cfg, rod, logger)
}
