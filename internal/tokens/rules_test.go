package tokens

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ruleSamples() []Sample {
	return []Sample{
		{
			ID: "home_desktop#001", Breakpoint: "desktop", ComponentType: "button", TextSnippet: "Save",
			BBox: BBox{W: 120, H: 36},
			ComputedStyles: map[string]string{
				"color": "rgb(255, 255, 255)", "background-color": "rgb(0, 0, 0)", "transition-duration": "0.2s",
			},
		},
		{
			ID: "home_desktop#002", Breakpoint: "desktop", ComponentType: "input",
			BBox:           BBox{W: 240, H: 48},
			ComputedStyles: map[string]string{"transition-duration": "0s"},
		},
		{
			ID: "home_desktop#003", Breakpoint: "desktop", ComponentType: "button", TextSnippet: "Cancel",
			BBox:           BBox{W: 100, H: 40},
			ComputedStyles: map[string]string{},
		},
		{
			ID: "home_desktop#004", Breakpoint: "desktop", ComponentType: "container",
			BBox:           BBox{W: 1200, H: 800},
			ComputedStyles: map[string]string{"max-width": "1200px", "padding-left": "24px"},
		},
		{
			ID: "home_mobile#001", Breakpoint: "mobile", ComponentType: "container",
			BBox: BBox{W: 390, H: 800},
			ComputedStyles: map[string]string{
				"max-width": "960px", "padding-left": "16px",
				"display": "grid", "grid-template-columns": "1fr 1fr 1fr",
			},
		},
		{
			ID: "home_mobile#002", Breakpoint: "mobile", ComponentType: "card",
			BBox:           BBox{W: 280, H: 200},
			ComputedStyles: map[string]string{},
		},
	}
}

func TestBuildRules_Density(t *testing.T) {
	clusters := []Cluster{{
		Category: CategorySpacing,
		Centers:  []Center{{Value: "4px"}, {Value: "8px"}, {Value: "16px"}, {Value: "24px"}},
	}}
	d := BuildRules(ruleSamples(), nil, nil, clusters, nil).Density

	assert.Equal(t, 3, d.ControlHeight.Count)
	assert.InDelta(t, 40, d.ControlHeight.Median, 0.001)
	assert.Equal(t, "comfortable", d.Class)
	assert.InDelta(t, 8, d.BaseUnit, 0.001)
	assert.Equal(t, []string{"home_desktop#001", "home_desktop#002", "home_desktop#003"}, d.Evidence)
}

func TestBuildRules_Layout(t *testing.T) {
	l := BuildRules(ruleSamples(), nil, nil, nil, nil).Layout

	assert.Equal(t, []string{"960px", "1200px"}, l.ContainerMaxWidths)
	assert.Equal(t, map[string]string{"desktop": "24px", "mobile": "16px"}, l.Gutters)
	assert.Equal(t, []string{"mobile: 3 columns"}, l.GridColumns)
	assert.InDelta(t, 280, l.MinCardWidth, 0.001)
}

func TestBuildRules_Accessibility(t *testing.T) {
	diffs := []StateDiff{{
		SampleID: "home_desktop#001",
		State:    StateFocusVisible,
		Changed:  map[string]ValuePair{"outline-width": {"0px", "2px"}},
	}}
	missing := []MissingState{{SampleID: "home_desktop#003", State: StateFocusVisible, Reason: "not focusable"}}

	a := BuildRules(ruleSamples(), diffs, missing, nil, nil).Accessibility

	assert.Equal(t, 4, a.Interactive, "cards count as interactive")
	assert.Equal(t, []string{"home_desktop#001", "home_desktop#003"}, a.SmallTargets)
	assert.Equal(t, []string{"home_desktop#001"}, a.FocusRings)
	assert.Equal(t, []string{"home_desktop#002"}, a.NoFocusRing)
	assert.Equal(t, []string{"home_desktop#001"}, a.MotionSamples)
	assert.Equal(t, "motion present; prefers-reduced-motion not detected in any stylesheet", a.ReducedMotion)

	require.Len(t, a.Contrast, 1)
	assert.InDelta(t, 21, a.Contrast[0].Ratio, 0.01)
	assert.True(t, a.Contrast[0].PassesAA)
}

func TestBuildRules_ReducedMotion(t *testing.T) {
	sheets := []Stylesheet{
		{URL: "https://example.test/app.css", Text: `.btn { transition-duration: .2s; }
@media (prefers-reduced-motion: reduce) { .btn { transition: none; } }`},
		{URL: "https://example.test/print.css", Text: `@media print { .btn { color: #000; } }`},
	}
	index := BuildStyleIndex(sheets)
	require.Equal(t, []string{"https://example.test/app.css"}, index.ReducedMotion)

	tests := []struct {
		name    string
		samples []Sample
		queries []string
		want    string
	}{
		{
			name:    "motion with query",
			samples: ruleSamples(),
			queries: index.ReducedMotion,
			want:    "prefers-reduced-motion detected in https://example.test/app.css",
		},
		{
			name:    "motion without query",
			samples: ruleSamples(),
			want:    "motion present; prefers-reduced-motion not detected in any stylesheet",
		},
		{
			name:    "query without motion",
			queries: []string{"inline#1", "inline#1"},
			want:    "no transitions or animations observed; prefers-reduced-motion detected in inline#1",
		},
		{
			name: "neither",
			want: "no transitions or animations observed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := BuildRules(tt.samples, nil, nil, nil, tt.queries).Accessibility
			assert.Equal(t, tt.want, a.ReducedMotion)
		})
	}
}

func TestBuildStyleIndex_ReducedMotionImport(t *testing.T) {
	index := BuildStyleIndex([]Stylesheet{{Text: `@import url("calm.css") (prefers-reduced-motion: reduce);`}})
	assert.Equal(t, []string{"inline#1"}, index.ReducedMotion)
}

func TestNewStats(t *testing.T) {
	assert.Equal(t, Stats{}, NewStats(nil))

	in := []float64{40, 10, 30, 20}
	s := NewStats(in)
	assert.Equal(t, Stats{Count: 4, Min: 10, P25: 17.5, Median: 25, P75: 32.5, Max: 40}, s)
	assert.Equal(t, []float64{40, 10, 30, 20}, in, "input is not reordered")
}
