package tokensmith

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/yacobolo/tokensmith/internal/tokens"
)

// Collector gathers the raw evidence of one target. Implementations must
// honor ctx; the pipeline uses its deadline as the page-load timeout.
type Collector interface {
	Collect(ctx context.Context, t Target) (*tokens.PageEvidence, error)
}

// Page is a named URL to collect
type Page struct {
	Name string `koanf:"name" json:"name"`
	URL  string `koanf:"url" json:"url"`
}

// Breakpoint is a named viewport
type Breakpoint struct {
	Name   string `koanf:"name" json:"name"`
	Width  int    `koanf:"width" json:"width"`
	Height int    `koanf:"height" json:"height"`
}

func (b Breakpoint) String() string {
	return fmt.Sprintf("%s=%dx%d", b.Name, b.Width, b.Height)
}

// Target is one (page, breakpoint, theme) combination
type Target struct {
	Page       string
	URL        string
	Breakpoint Breakpoint
	Theme      string
}

// Scope returns the validator scope of the target
func (t Target) Scope() tokens.Scope {
	return tokens.Scope{Page: t.Page, Breakpoint: t.Breakpoint.Name, Theme: t.Theme}
}

// Key returns "{page}_{breakpoint}_{theme}"
func (t Target) Key() string {
	return t.Scope().Key()
}

// DefaultBreakpoints are used when none are configured
var DefaultBreakpoints = []Breakpoint{
	{Name: "mobile", Width: 390, Height: 844},
	{Name: "tablet", Width: 768, Height: 1024},
	{Name: "desktop", Width: 1440, Height: 900},
}

// ParseBreakpoint parses "name=WIDTHxHEIGHT" ("mobile=390x844").
// A bare name resolves against DefaultBreakpoints.
func ParseBreakpoint(s string) (Breakpoint, error) {
	s = strings.TrimSpace(s)
	name, dims, ok := strings.Cut(s, "=")
	if !ok {
		for _, b := range DefaultBreakpoints {
			if b.Name == s {
				return b, nil
			}
		}
		return Breakpoint{}, fmt.Errorf("unknown breakpoint %q (use name=WIDTHxHEIGHT)", s)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Breakpoint{}, fmt.Errorf("breakpoint %q has no name", s)
	}
	w, h, ok := strings.Cut(strings.ToLower(dims), "x")
	if !ok {
		return Breakpoint{}, fmt.Errorf("breakpoint %q: dimensions must be WIDTHxHEIGHT", s)
	}
	width, err := strconv.Atoi(strings.TrimSpace(w))
	if err != nil || width <= 0 {
		return Breakpoint{}, fmt.Errorf("breakpoint %q: invalid width %q", s, w)
	}
	height, err := strconv.Atoi(strings.TrimSpace(h))
	if err != nil || height <= 0 {
		return Breakpoint{}, fmt.Errorf("breakpoint %q: invalid height %q", s, h)
	}
	return Breakpoint{Name: name, Width: width, Height: height}, nil
}

// ParsePage parses "name=url". A bare URL is named after its last path segment.
func ParsePage(s string) (Page, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Page{}, fmt.Errorf("empty page")
	}
	if name, url, ok := strings.Cut(s, "="); ok && !strings.Contains(name, "://") {
		name, url = strings.TrimSpace(name), strings.TrimSpace(url)
		if name == "" || url == "" {
			return Page{}, fmt.Errorf("page %q: expected name=url", s)
		}
		return Page{Name: name, URL: url}, nil
	}
	return Page{Name: pageName(s), URL: s}, nil
}

func pageName(url string) string {
	rest := url
	if _, after, ok := strings.Cut(url, "://"); ok {
		rest = after
	}
	rest, _, _ = strings.Cut(rest, "?")
	rest, _, _ = strings.Cut(rest, "#")
	rest = strings.TrimRight(rest, "/")
	if i := strings.LastIndex(rest, "/"); i >= 0 {
		return rest[i+1:]
	}
	return "home"
}

// Targets expands pages × breakpoints × themes. Pages vary slowest so that
// the targets of one breakpoint keep page order.
func Targets(pages []Page, breakpoints []Breakpoint, themes []string) []Target {
	if len(themes) == 0 {
		themes = []string{DefaultTheme}
	}
	var out []Target
	for _, p := range pages {
		for _, b := range breakpoints {
			for _, th := range themes {
				out = append(out, Target{Page: p.Name, URL: p.URL, Breakpoint: b, Theme: th})
			}
		}
	}
	return out
}
