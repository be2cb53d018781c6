package tokensmith

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/yacobolo/tokensmith/internal/tokens"
)

// FileCollector replays captured page evidence without a browser. Each
// capture file holds one PageEvidence document; recorded state snapshots on
// the candidates stand in for live element handles.
type FileCollector struct {
	captures map[string]*tokens.PageEvidence
	files    map[string]string
	logger   *slog.Logger
}

// NewFileCollector loads every capture file matched by patterns
func NewFileCollector(patterns []string, logger *slog.Logger) (*FileCollector, error) {
	if logger == nil {
		logger = slog.Default()
	}
	paths, stats, err := DiscoverCaptures(patterns)
	if err != nil {
		return nil, fmt.Errorf("discovering captures: %w", err)
	}
	logger.Debug("replay: discovered captures", "scanned", stats.FilesScanned, "skipped", stats.FilesSkipped)

	fc := &FileCollector{
		captures: make(map[string]*tokens.PageEvidence),
		files:    make(map[string]string),
		logger:   logger,
	}
	for _, path := range paths {
		if err := fc.load(path); err != nil {
			return nil, err
		}
	}
	if len(fc.captures) == 0 {
		return nil, fmt.Errorf("no capture files matched %v", patterns)
	}
	return fc, nil
}

func (fc *FileCollector) load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading capture: %w", err)
	}
	var ev tokens.PageEvidence
	if err := json.Unmarshal(data, &ev); err != nil {
		return fmt.Errorf("parsing capture %s: %w", path, err)
	}
	if ev.Page == "" || ev.Breakpoint == "" {
		return fmt.Errorf("capture %s: page and breakpoint are required", path)
	}
	if ev.Theme == "" {
		ev.Theme = DefaultTheme
	}
	key := tokens.Scope{Page: ev.Page, Breakpoint: ev.Breakpoint, Theme: ev.Theme}.Key()
	if prev, ok := fc.files[key]; ok {
		return fmt.Errorf("duplicate capture for %s in %s and %s", key, prev, path)
	}
	fc.captures[key] = &ev
	fc.files[key] = path
	fc.logger.Debug("replay: loaded capture", "target", key, "file", path, "candidates", len(ev.Candidates))
	return nil
}

// Axes returns the pages, breakpoints and themes covered by the captures,
// sorted by name
func (fc *FileCollector) Axes() ([]Page, []Breakpoint, []string) {
	pages := make(map[string]string)
	bps := make(map[string]bool)
	themes := make(map[string]bool)
	for _, ev := range fc.captures {
		if _, ok := pages[ev.Page]; !ok || ev.URL < pages[ev.Page] {
			pages[ev.Page] = ev.URL
		}
		bps[ev.Breakpoint] = true
		themes[ev.Theme] = true
	}

	var outPages []Page
	for name, url := range pages {
		outPages = append(outPages, Page{Name: name, URL: url})
	}
	sort.Slice(outPages, func(i, j int) bool { return outPages[i].Name < outPages[j].Name })

	var outBps []Breakpoint
	for name := range bps {
		bp := Breakpoint{Name: name}
		for _, d := range DefaultBreakpoints {
			if d.Name == name {
				bp = d
			}
		}
		outBps = append(outBps, bp)
	}
	sort.Slice(outBps, func(i, j int) bool { return outBps[i].Name < outBps[j].Name })

	var outThemes []string
	for th := range themes {
		outThemes = append(outThemes, th)
	}
	sort.Strings(outThemes)
	return outPages, outBps, outThemes
}

// Collect returns a copy of the capture recorded for t
func (fc *FileCollector) Collect(ctx context.Context, t Target) (*tokens.PageEvidence, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	theme := t.Theme
	if theme == "" {
		theme = DefaultTheme
	}
	key := tokens.Scope{Page: t.Page, Breakpoint: t.Breakpoint.Name, Theme: theme}.Key()
	src, ok := fc.captures[key]
	if !ok {
		return nil, fmt.Errorf("no capture recorded for %s", key)
	}

	ev := *src
	ev.Candidates = append([]tokens.Candidate(nil), src.Candidates...)
	ev.Handles = make(map[string]tokens.ElementHandle)
	for _, c := range ev.Candidates {
		if len(c.RecordedStates) > 0 {
			ev.Handles[c.SelectorPath] = newRecordedHandle(c)
		}
	}
	return &ev, nil
}

// recordedHandle serves state styles from a capture instead of a live page
type recordedHandle struct {
	candidate tokens.Candidate
	current   tokens.StateName
}

func newRecordedHandle(c tokens.Candidate) *recordedHandle {
	return &recordedHandle{candidate: c, current: tokens.StateDefault}
}

func (h *recordedHandle) stylesFor(state tokens.StateName) (map[string]string, bool) {
	if s, ok := h.candidate.RecordedStates[string(state)]; ok {
		return s, true
	}
	if state == tokens.StateDefault {
		return h.candidate.Styles, true
	}
	return nil, false
}

func (h *recordedHandle) Styles(ctx context.Context, properties []string) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	styles, _ := h.stylesFor(h.current)
	out := make(map[string]string, len(properties))
	for _, p := range properties {
		if v, ok := styles[p]; ok {
			out[p] = v
		}
	}
	return out, nil
}

func (h *recordedHandle) Induce(ctx context.Context, state tokens.StateName) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := h.stylesFor(state); !ok {
		return fmt.Errorf("state %s not recorded", state)
	}
	h.current = state
	return nil
}

func (h *recordedHandle) Reset(ctx context.Context) error {
	h.current = tokens.StateDefault
	return ctx.Err()
}

func (h *recordedHandle) Navigational() bool {
	return h.candidate.Navigational()
}

func (h *recordedHandle) ObservedExtras(ctx context.Context) ([]tokens.StateName, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []tokens.StateName
	for name := range h.candidate.RecordedStates {
		if st := tokens.StateName(name); st.IsExtra() {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}
