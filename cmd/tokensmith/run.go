package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/yacobolo/tokensmith"
	"github.com/yacobolo/tokensmith/internal/ledger"
)

// addRunFlags registers the pipeline and output flags shared by collect and analyze
func addRunFlags(f *pflag.FlagSet) {
	// pipeline
	f.Int("parallelism", 2, "Breakpoints collected concurrently")
	f.Duration("page-timeout", 0, "Page load budget per target (default 30s)")
	f.Bool("broad-capture", false, "Keep every candidate: no per-type caps, no dedupe")
	f.StringSlice("selected", nil, "Curated selectors, or a file with one selector per line")
	f.Bool("allow-unsafe-states", false, "Induce active on links (may navigate)")
	f.Float64("min-bbox", 24, "Minimum sample width and height in CSS px")
	f.Int("max-per-group", 6, "Samples kept per component type when curating")
	f.Int("min-role-evidence", 2, "Distinct samples required to assign a semantic role")
	f.Int("max-var-depth", 8, "var() chain depth ceiling")
	f.String("styling", "", "Detected styling system (tailwind, unocss, css-modules, ...)")
	f.String("styling-confidence", "", "Styling system confidence: confirmed|likely|possible|unknown")
	f.String("run-id", "", "Run identifier (default: generated)")

	// output
	f.StringP("output-dir", "o", "", "Directory for samples.json, results.json and token artifacts")
	f.String("output-format", "", "Output format: summary|json|yaml|markdown (default summary)")
	f.String("template", "", "Report template whose {{placeholders}} are filled from the run")
	f.String("report", "", "Where the rendered template is written (default stdout)")
	f.String("ledger", "", "SQLite ledger recording evidence, trace and limits of every run")
}

// execute runs the pipeline and writes every configured output. The partial
// result of a failed or cancelled run is still written before the error is returned.
func execute(ctx context.Context, cfg tokensmith.Config, c tokensmith.Collector, logger *slog.Logger) error {
	if path := getStringWithFallback("ledger", "run.ledger", ""); path != "" {
		store, err := ledger.Open(path, ledger.WithLogger(logger))
		if err != nil {
			return err
		}
		defer store.Close()
		cfg.Ledger = store
	}

	res, runErr := tokensmith.Run(ctx, cfg, c)
	if res == nil {
		return runErr
	}

	var written []string
	if dir := getStringWithFallback("output-dir", "output.dir", ""); dir != "" {
		var err error
		written, err = tokensmith.WriteArtifacts(dir, res)
		if err != nil {
			return fmt.Errorf("writing artifacts: %w", err)
		}
	}

	quiet := getBoolWithFallback("quiet", "quiet", false)
	if !quiet {
		format := tokensmith.DetermineOutputFormat(getStringWithFallback("output-format", "output.format", ""))
		opts := tokensmith.OutputOptions{
			Verbose:    getBoolWithFallback("verbose", "verbose", false),
			ForceColor: getBoolWithFallback("color", "color", false),
			Artifacts:  written,
		}
		if err := tokensmith.WriteOutput(os.Stdout, res, format, opts); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
	}

	if tmpl := getStringWithFallback("template", "output.template", ""); tmpl != "" {
		if err := renderReport(res, tmpl, getStringWithFallback("report", "output.report", "")); err != nil {
			return err
		}
	}

	return runErr
}

func renderReport(res *tokensmith.Result, tmplPath, outPath string) error {
	data, err := os.ReadFile(tmplPath)
	if err != nil {
		return fmt.Errorf("reading template: %w", err)
	}
	rendered := tokensmith.RenderTemplate(string(data), tokensmith.Placeholders(res))

	if outPath == "" {
		_, err = fmt.Fprint(os.Stdout, rendered)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	if err := os.WriteFile(outPath, []byte(rendered), 0o644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}
