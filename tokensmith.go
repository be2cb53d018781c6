// Package tokensmith turns visual evidence collected from a live page into a
// small, explainable design-token system.
//
// The pipeline validates sampled elements, resolves their computed values back
// to stylesheet rules and var() chains, captures interaction states, clusters
// style values into bounded scales, maps semantic roles and emits tokens. Every
// token carries a confidence label and the evidence ids it came from; every
// decision is recorded in a trace, and every gap in a limits list.
//
// # Collecting
//
//	cfg := tokensmith.Config{
//		Pages:       []tokensmith.Page{{Name: "home", URL: "https://example.com"}},
//		Breakpoints: tokensmith.DefaultBreakpoints,
//	}
//	res, err := tokensmith.Run(ctx, cfg, browserCollector)
//
// # Replaying
//
// Captured page evidence can be analyzed again without a browser:
//
//	fc, err := tokensmith.NewFileCollector([]string{"captures/**/*.json"}, nil)
//	pages, bps, themes := fc.Axes()
//	res, err := tokensmith.Run(ctx, tokensmith.Config{Pages: pages, Breakpoints: bps, Themes: themes}, fc)
//
// # CLI Tool
//
//	go install github.com/yacobolo/tokensmith/cmd/tokensmith@latest
package tokensmith

// Public API:
// - Run(ctx, Config, Collector) (*Result, error)
// - Analyze(Config, Evidence, *tokens.Journal) Analysis
// - WriteOutput(w, *Result, OutputFormat, OutputOptions) error
// - WriteArtifacts(dir, *Result) ([]string, error)
// - Placeholders(*Result) map[string]string / RenderTemplate
