package tokens

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Report is the reporter's view of one run
type Report struct {
	RunID     string
	Strategy  Strategy
	Targets   int
	Collected int
	Samples   int
	Tokens    TokenSet
	Fonts     []FontVerdict
	Journal   Snapshot
	Artifacts []string
}

// Reporter prints run summaries for terminals
type Reporter struct {
	w         io.Writer
	useColors bool
	verbose   bool
}

// NewReporter creates a reporter; forceColor behaves like --color
func NewReporter(w io.Writer, forceColor, verbose bool) *Reporter {
	return &Reporter{
		w:         w,
		useColors: shouldUseColors(forceColor),
		verbose:   verbose,
	}
}

// shouldUseColors determines if colors should be enabled
func shouldUseColors(force bool) bool {
	// Explicit flag wins
	if force {
		return true
	}

	if os.Getenv("FORCE_COLOR") != "" {
		return true
	}

	if os.Getenv("GITHUB_ACTIONS") == "true" {
		return true
	}

	// Auto-detect TTY
	if fileInfo, err := os.Stdout.Stat(); err == nil && (fileInfo.Mode()&os.ModeCharDevice) != 0 {
		return true
	}

	return false
}

// UseColors returns whether colors are enabled
func (r *Reporter) UseColors() bool {
	return r.useColors
}

// PrintSummary outputs token counts, confidence breakdown, fonts and limits
func (r *Reporter) PrintSummary(rep Report) {
	fmt.Fprintln(r.w, RenderStyle(StyleCyan, "tokensmith run "+rep.RunID, r.useColors))
	fmt.Fprintf(r.w, "Targets collected: %d of %d\n", rep.Collected, rep.Targets)
	fmt.Fprintf(r.w, "Samples:           %d\n", rep.Samples)
	fmt.Fprintf(r.w, "Strategy:          %s\n", rep.Strategy)
	fmt.Fprintf(r.w, "Tokens:            %d primitive, %d semantic, %d component\n",
		len(rep.Tokens.Primitive), len(rep.Tokens.Semantic), len(rep.Tokens.Component))

	counts := make(map[Confidence]int)
	for _, t := range rep.Tokens.All() {
		counts[t.Confidence]++
	}
	fmt.Fprintln(r.w, "")
	fmt.Fprintln(r.w, RenderStyle(StyleCyan, "Confidence", r.useColors))
	fmt.Fprintln(r.w, "----------")
	for _, c := range []Confidence{Verified, Assumption, Unverified} {
		fmt.Fprintf(r.w, "%s %d\n", RenderStyle(confidenceStyle(c), fmt.Sprintf("%-11s", c), r.useColors), counts[c])
	}
	if total := rep.Tokens.Len(); total > 0 {
		printProgressBar(r.w, float64(counts[Verified])/float64(total)*100)
	}

	if len(rep.Fonts) > 0 {
		fmt.Fprintln(r.w, "")
		fmt.Fprintln(r.w, RenderStyle(StyleCyan, "Fonts", r.useColors))
		fmt.Fprintln(r.w, "-----")
		for _, f := range rep.Fonts {
			line := fmt.Sprintf("%s %s", RenderStyle(confidenceStyle(f.Confidence), f.Label, r.useColors), f.Family)
			if f.Reason != "" {
				line += RenderStyle(StyleGray, " ("+f.Reason+")", r.useColors)
			}
			fmt.Fprintln(r.w, line)
		}
	}

	if r.verbose {
		r.printTokens(rep.Tokens)
	}
	r.printLimits(rep.Journal.Limits)

	if len(rep.Artifacts) > 0 {
		fmt.Fprintln(r.w, "")
		fmt.Fprintln(r.w, RenderStyle(StyleGreen, "Wrote "+strings.Join(rep.Artifacts, ", "), r.useColors))
	}
}

func (r *Reporter) printTokens(set TokenSet) {
	for _, group := range []struct {
		title  string
		tokens []Token
	}{
		{"Primitive tokens", set.Primitive},
		{"Semantic tokens", set.Semantic},
		{"Component tokens", set.Component},
	} {
		if len(group.tokens) == 0 {
			continue
		}
		fmt.Fprintln(r.w, "")
		fmt.Fprintln(r.w, RenderStyle(StyleCyan, group.title, r.useColors))
		fmt.Fprintln(r.w, strings.Repeat("-", len(group.title)))
		for _, t := range group.tokens {
			ref := ""
			if t.ValueRef != "" && t.ValueRef != t.ID {
				ref = " -> " + t.ValueRef
			}
			fmt.Fprintf(r.w, "%-28s %-24s %s%s\n", t.ID, t.Value,
				RenderStyle(confidenceStyle(t.Confidence), string(t.Confidence), r.useColors),
				RenderStyle(StyleGray, ref, r.useColors))
			if t.Confidence != Verified {
				fmt.Fprintf(r.w, "    %s\n", RenderStyle(StyleGray, "would confirm: "+t.WouldConfirm, r.useColors))
			}
		}
	}
}

func (r *Reporter) printLimits(limits []Limit) {
	fmt.Fprintln(r.w, "")
	fmt.Fprintln(r.w, RenderStyle(StyleYellow, "Limits", r.useColors))
	fmt.Fprintln(r.w, "------")
	if len(limits) == 0 {
		fmt.Fprintln(r.w, "• none recorded")
		return
	}

	byKind := make(map[LimitKind][]Limit)
	var kinds []LimitKind
	for _, l := range limits {
		if _, ok := byKind[l.Kind]; !ok {
			kinds = append(kinds, l.Kind)
		}
		byKind[l.Kind] = append(byKind[l.Kind], l)
	}
	for _, k := range kinds {
		entries := byKind[k]
		if !r.verbose && len(entries) > 3 && k == LimitRejectedSample {
			fmt.Fprintf(r.w, "• %s: %s (use --verbose to list)\n", k, pluralizeCount(len(entries), "candidate", "candidates"))
			continue
		}
		for _, l := range entries {
			fmt.Fprintf(r.w, "• %s %s: %s\n", RenderStyle(StyleGray, string(l.Kind), r.useColors), l.Subject, l.Reason)
		}
	}
}

// printProgressBar shows the verified share of all tokens
func printProgressBar(w io.Writer, percentage float64) {
	barWidth := 20
	filled := int(percentage / 100 * float64(barWidth))

	fmt.Fprint(w, "[")
	for i := 0; i < barWidth; i++ {
		if i < filled {
			fmt.Fprint(w, "█")
		} else {
			fmt.Fprint(w, "░")
		}
	}
	fmt.Fprintf(w, "] %.1f%% verified\n", percentage)
}

// pluralizeCount returns a formatted string with count and singular/plural form
func pluralizeCount(count int, singular, plural string) string {
	if count == 1 {
		return fmt.Sprintf("%d %s", count, singular)
	}
	return fmt.Sprintf("%d %s", count, plural)
}
