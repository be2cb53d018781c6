package tokens

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// MinTargetSize is the minimum comfortable interactive target in CSS px
const MinTargetSize = 44

// Stats summarizes a set of measurements
type Stats struct {
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	P25    float64 `json:"p25"`
	Median float64 `json:"median"`
	P75    float64 `json:"p75"`
	Max    float64 `json:"max"`
}

// NewStats computes stats over values; the input is not modified
func NewStats(values []float64) Stats {
	if len(values) == 0 {
		return Stats{}
	}
	v := append([]float64(nil), values...)
	sort.Float64s(v)
	return Stats{
		Count:  len(v),
		Min:    v[0],
		P25:    percentile(v, 0.25),
		Median: percentile(v, 0.5),
		P75:    percentile(v, 0.75),
		Max:    v[len(v)-1],
	}
}

// percentile uses linear interpolation over sorted values
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := p * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	return math.Round((sorted[lo]+(sorted[hi]-sorted[lo])*frac)*100) / 100
}

// DensityRules describes control sizing and spacing rhythm
type DensityRules struct {
	ControlHeight Stats    `json:"control_height"`
	Spacing       Stats    `json:"spacing"`
	BaseUnit      float64  `json:"base_unit,omitempty"`
	Class         string   `json:"class"` // compact | comfortable | spacious | unknown
	Evidence      []string `json:"evidence"`
}

// LayoutRules describes container and grid behavior per breakpoint
type LayoutRules struct {
	ContainerMaxWidths []string          `json:"container_max_widths"`
	Gutters            map[string]string `json:"gutters"` // breakpoint -> padding-left
	GridColumns        []string          `json:"grid_columns"`
	MinCardWidth       float64           `json:"min_card_width,omitempty"`
	Evidence           []string          `json:"evidence"`
}

// ContrastSample is one foreground/background pair
type ContrastSample struct {
	SampleID   string  `json:"sample_id"`
	Foreground string  `json:"foreground"`
	Background string  `json:"background"`
	Ratio      float64 `json:"ratio"`
	PassesAA   bool    `json:"passes_aa"`
}

// AccessibilityRules summarizes target sizes, focus visibility, contrast and motion
type AccessibilityRules struct {
	SmallTargets  []string         `json:"small_targets"`
	FocusRings    []string         `json:"focus_rings"`
	NoFocusRing   []string         `json:"no_focus_ring"`
	Contrast      []ContrastSample `json:"contrast"`
	MotionSamples []string         `json:"motion_samples"`
	ReducedMotion string           `json:"reduced_motion"`
	MotionQueries []string         `json:"reduced_motion_sources"` // sheets with a prefers-reduced-motion query
	Interactive   int              `json:"interactive_count"`
}

// Rules groups the derived rule summaries
type Rules struct {
	Density       DensityRules       `json:"density"`
	Layout        LayoutRules        `json:"layout"`
	Accessibility AccessibilityRules `json:"accessibility"`
}

// BuildRules derives density, layout and accessibility summaries.
// motionQueries names the stylesheets that declare a prefers-reduced-motion query.
func BuildRules(samples []Sample, diffs []StateDiff, missing []MissingState, clusters []Cluster, motionQueries []string) Rules {
	ordered := append([]Sample(nil), samples...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	return Rules{
		Density:       buildDensity(ordered, clusters),
		Layout:        buildLayout(ordered),
		Accessibility: buildAccessibility(ordered, diffs, missing, motionQueries),
	}
}

func buildDensity(samples []Sample, clusters []Cluster) DensityRules {
	var heights []float64
	var evidence []string
	for _, s := range samples {
		if s.ComponentType == "button" || s.ComponentType == "input" || s.ComponentType == "chip" {
			heights = append(heights, s.BBox.H)
			evidence = append(evidence, s.ID)
		}
	}

	var spacing []float64
	for _, c := range clusters {
		if c.Category != CategorySpacing {
			continue
		}
		for _, center := range c.Centers {
			if v, ok := ParseLength(center.Value); ok {
				spacing = append(spacing, v)
			}
		}
	}

	d := DensityRules{
		ControlHeight: NewStats(heights),
		Spacing:       NewStats(spacing),
		BaseUnit:      baseUnit(spacing),
		Evidence:      evidence,
	}
	switch {
	case d.ControlHeight.Count == 0:
		d.Class = "unknown"
	case d.ControlHeight.Median < 32:
		d.Class = "compact"
	case d.ControlHeight.Median <= 44:
		d.Class = "comfortable"
	default:
		d.Class = "spacious"
	}
	return d
}

// baseUnit returns the largest of 8, 4 or 2 that divides most spacing steps
func baseUnit(steps []float64) float64 {
	if len(steps) == 0 {
		return 0
	}
	for _, unit := range []float64{8, 4, 2} {
		hits := 0
		for _, s := range steps {
			if math.Mod(s, unit) == 0 {
				hits++
			}
		}
		if hits*3 >= len(steps)*2 {
			return unit
		}
	}
	return 0
}

func buildLayout(samples []Sample) LayoutRules {
	l := LayoutRules{Gutters: make(map[string]string)}
	widths := make(map[string]bool)
	grids := make(map[string]bool)
	gutterSeen := make(map[string]bool)

	for _, s := range samples {
		switch s.ComponentType {
		case "container", "navbar":
			if mw := s.ComputedStyles["max-width"]; mw != "" && mw != "none" {
				if !widths[mw] {
					widths[mw] = true
					l.ContainerMaxWidths = append(l.ContainerMaxWidths, mw)
				}
				l.Evidence = append(l.Evidence, s.ID)
			}
			if pl := s.ComputedStyles["padding-left"]; pl != "" && !gutterSeen[s.Breakpoint] {
				gutterSeen[s.Breakpoint] = true
				l.Gutters[s.Breakpoint] = pl
			}
		case "card":
			if l.MinCardWidth == 0 || s.BBox.W < l.MinCardWidth {
				l.MinCardWidth = s.BBox.W
			}
		}
		if cols := s.ComputedStyles["grid-template-columns"]; cols != "" && cols != "none" && strings.Contains(strings.ToLower(s.ComputedStyles["display"]), "grid") {
			rule := fmt.Sprintf("%s: %d columns", s.Breakpoint, len(strings.Fields(cols)))
			if !grids[rule] {
				grids[rule] = true
				l.GridColumns = append(l.GridColumns, rule)
			}
		}
	}
	sort.Slice(l.ContainerMaxWidths, func(i, j int) bool {
		a, _ := ParseLength(l.ContainerMaxWidths[i])
		b, _ := ParseLength(l.ContainerMaxWidths[j])
		return a < b
	})
	sort.Strings(l.GridColumns)
	return l
}

func buildAccessibility(samples []Sample, diffs []StateDiff, missing []MissingState, motionQueries []string) AccessibilityRules {
	var a AccessibilityRules
	a.MotionQueries = uniqueStrings(motionQueries)
	focused := make(map[string]bool)
	for _, d := range diffs {
		if d.State != StateFocusVisible {
			continue
		}
		for prop := range d.Changed {
			if strings.HasPrefix(prop, "outline") || prop == "box-shadow" {
				focused[d.SampleID] = true
			}
		}
	}
	focusMissing := make(map[string]bool)
	for _, m := range missing {
		if m.State == StateFocusVisible {
			focusMissing[m.SampleID] = true
		}
	}

	anyMotion := false
	for _, s := range samples {
		interactive := IsInteractiveType(s.ComponentType)
		if interactive {
			a.Interactive++
			if s.BBox.H < MinTargetSize || s.BBox.W < MinTargetSize {
				a.SmallTargets = append(a.SmallTargets, s.ID)
			}
			switch {
			case focused[s.ID]:
				a.FocusRings = append(a.FocusRings, s.ID)
			case !focusMissing[s.ID] && s.ComponentType != "card":
				a.NoFocusRing = append(a.NoFocusRing, s.ID)
			}
		}

		if hasMotion(s.ComputedStyles) {
			anyMotion = true
			a.MotionSamples = append(a.MotionSamples, s.ID)
		}

		fg, okF := ParseColor(s.ComputedStyles["color"])
		bg, okB := ParseColor(s.ComputedStyles["background-color"])
		if okF && okB && fg.Alpha == 1 && bg.Alpha == 1 && strings.TrimSpace(s.TextSnippet) != "" {
			ratio := math.Round(ContrastRatio(fg, bg)*100) / 100
			a.Contrast = append(a.Contrast, ContrastSample{
				SampleID:   s.ID,
				Foreground: fg.Hex(),
				Background: bg.Hex(),
				Ratio:      ratio,
				PassesAA:   ratio >= 4.5,
			})
		}
	}

	queried := len(a.MotionQueries) > 0
	switch {
	case anyMotion && queried:
		a.ReducedMotion = "prefers-reduced-motion detected in " + strings.Join(a.MotionQueries, ", ")
	case anyMotion:
		a.ReducedMotion = "motion present; prefers-reduced-motion not detected in any stylesheet"
	case queried:
		a.ReducedMotion = "no transitions or animations observed; prefers-reduced-motion detected in " + strings.Join(a.MotionQueries, ", ")
	default:
		a.ReducedMotion = "no transitions or animations observed"
	}
	return a
}

func uniqueStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := append([]string(nil), in...)
	sort.Strings(out)
	n := 1
	for i := 1; i < len(out); i++ {
		if out[i] != out[n-1] {
			out[n] = out[i]
			n++
		}
	}
	return out[:n]
}
