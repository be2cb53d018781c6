package tokensmith

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/yacobolo/tokensmith/internal/tokens"
)

// OutputFormat selects how a run is reported on stdout
type OutputFormat string

const (
	OutputSummary  OutputFormat = "summary"
	OutputJSON     OutputFormat = "json"
	OutputYAML     OutputFormat = "yaml"
	OutputMarkdown OutputFormat = "markdown"
)

// DetermineOutputFormat selects the output format from the flag value.
// Unknown values fall back to the summary.
func DetermineOutputFormat(formatFlag string) OutputFormat {
	switch strings.ToLower(strings.TrimSpace(formatFlag)) {
	case "json":
		return OutputJSON
	case "yaml", "yml":
		return OutputYAML
	case "markdown", "md":
		return OutputMarkdown
	default:
		return OutputSummary
	}
}

// OutputOptions tune the summary format
type OutputOptions struct {
	Verbose    bool
	ForceColor bool
	Artifacts  []string // paths written by WriteArtifacts
}

// WriteOutput writes the run result in the specified format
func WriteOutput(w io.Writer, res *Result, format OutputFormat, opts OutputOptions) error {
	switch format {
	case OutputJSON:
		return WriteResultsJSON(w, res)
	case OutputYAML:
		return WriteYAML(w, res)
	case OutputMarkdown:
		return WriteMarkdown(w, res)
	default:
		r := tokens.NewReporter(w, opts.ForceColor, opts.Verbose)
		r.PrintSummary(tokens.Report{
			RunID:     res.RunID,
			Strategy:  res.Emission.Strategy,
			Targets:   res.Targets,
			Collected: res.Collected,
			Samples:   len(res.Samples),
			Tokens:    res.Tokens,
			Fonts:     res.Fonts,
			Journal:   res.Journal,
			Artifacts: opts.Artifacts,
		})
		return nil
	}
}

// WriteArtifacts writes samples.json, results.json and the emitted token
// files into dir and returns the written paths. samples.json is written even
// when analysis did not run so partial evidence survives.
func WriteArtifacts(dir string, res *Result) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	var written []string
	write := func(name string, fn func(io.Writer) error) error {
		path := filepath.Join(dir, name)
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating %s: %w", name, err)
		}
		if err := fn(f); err != nil {
			f.Close()
			return fmt.Errorf("writing %s: %w", name, err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("closing %s: %w", name, err)
		}
		written = append(written, path)
		return nil
	}

	if err := write(SamplesFile, func(w io.Writer) error { return WriteSamplesJSON(w, res) }); err != nil {
		return written, err
	}
	if err := write(ResultsFile, func(w io.Writer) error { return WriteResultsJSON(w, res) }); err != nil {
		return written, err
	}
	for _, a := range res.Emission.Artifacts {
		content := a.Content
		if err := write(a.Path, func(w io.Writer) error {
			_, err := io.WriteString(w, content)
			return err
		}); err != nil {
			return written, err
		}
	}
	return written, nil
}

// WriteMarkdown writes a Markdown report of tokens, decisions and limits
func WriteMarkdown(w io.Writer, res *Result) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# Design tokens: run %s\n\n", res.RunID)
	fmt.Fprintf(&b, "- Targets collected: %d of %d\n", res.Collected, res.Targets)
	fmt.Fprintf(&b, "- Samples: %d\n", len(res.Samples))
	fmt.Fprintf(&b, "- Strategy: %s\n\n", res.Emission.Strategy)

	for _, tier := range []struct {
		title string
		list  []tokens.Token
	}{
		{"Primitive tokens", res.Tokens.Primitive},
		{"Semantic tokens", res.Tokens.Semantic},
		{"Component tokens", res.Tokens.Component},
	} {
		if len(tier.list) == 0 {
			continue
		}
		fmt.Fprintf(&b, "## %s\n\n", tier.title)
		b.WriteString("| Token | Value | Ref | Confidence | Notes |\n")
		b.WriteString("|-------|-------|-----|------------|-------|\n")
		for _, t := range tier.list {
			notes := t.Reason
			if t.WouldConfirm != "" {
				notes += " (would confirm: " + t.WouldConfirm + ")"
			}
			fmt.Fprintf(&b, "| `%s` | `%s` | %s | %s | %s |\n",
				t.ID, mdEscape(t.Value), mdEscape(t.ValueRef), t.Confidence, mdEscape(notes))
		}
		b.WriteString("\n")
	}

	if len(res.Fonts) > 0 {
		b.WriteString("## Fonts\n\n")
		for _, f := range res.Fonts {
			line := fmt.Sprintf("- **%s**: %s", f.Family, f.Label)
			if f.Reason != "" {
				line += " (" + f.Reason + ")"
			}
			b.WriteString(line + "\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("## Decision trace\n\n")
	for _, cat := range tokens.TraceCategories {
		entries := res.Journal.TraceFor(cat)
		if len(entries) == 0 {
			continue
		}
		fmt.Fprintf(&b, "### %s\n\n", cat)
		for _, e := range entries {
			fmt.Fprintf(&b, "%d. %s\n", e.Seq, e.Conclusion)
			if len(e.EvidencePaths) > 0 {
				fmt.Fprintf(&b, "   - evidence: %s\n", strings.Join(e.EvidencePaths, ", "))
			}
			fmt.Fprintf(&b, "   - rejected: %s\n", e.RejectedAlternatives)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Limits\n\n")
	kinds, groups := res.Journal.LimitsByKind()
	for _, kind := range kinds {
		fmt.Fprintf(&b, "### %s\n\n", kind)
		for _, l := range groups[kind] {
			fmt.Fprintf(&b, "- %s: %s\n", l.Subject, l.Reason)
		}
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func mdEscape(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "|", `\|`), "\n", " ")
}
