package tokens

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const appCSS = `
:root {
  --brand: #1a73e8;
  --primary: var(--brand);
  --a: var(--b);
  --b: var(--a);
  --radius: 8px;
}

.btn-primary {
  background-color: var(--primary);
  color: var(--missing);
}

.card { border-radius: var(--radius); box-shadow: 0 1px 2px rgba(0, 0, 0, 0.1) !important; }

@media (min-width: 768px) {
  .card { border-radius: 12px; }
}

@font-face {
  font-family: "Inter";
  src: url("/fonts/inter-var.woff2") format("woff2"), url(/fonts/inter.woff) format("woff");
  font-weight: 100 900;
}

@keyframes spin { from { transform: rotate(0deg); } to { transform: rotate(360deg); } }
`

func testIndex(t *testing.T, extra ...string) *StyleIndex {
	t.Helper()
	sheets := []Stylesheet{{URL: "https://example.test/app.css", Text: appCSS}}
	for _, e := range extra {
		sheets = append(sheets, Stylesheet{Text: e})
	}
	return BuildStyleIndex(sheets)
}

func TestBuildStyleIndex(t *testing.T) {
	ix := testIndex(t, ".chip { padding: 4px 8px; }")

	var selectors []string
	for _, r := range ix.Rules {
		selectors = append(selectors, r.Selector)
	}
	assert.Equal(t, []string{":root", ".btn-primary", ".card", ".card", ".chip"}, selectors)

	card := ix.Rules[2]
	assert.Equal(t, "var(--radius)", card.Declarations["border-radius"])
	assert.Equal(t, "https://example.test/app.css", card.Source)
	assert.NotContains(t, card.Declarations["box-shadow"], "!important")
	assert.NotEmpty(t, ix.Rules[3].Media)
	assert.Equal(t, "inline#2", ix.Rules[4].Source)

	require.Len(t, ix.Vars["--brand"], 1)
	assert.Equal(t, "#1a73e8", ix.Vars["--brand"][0].Value)

	require.Len(t, ix.FontFaces, 1)
	face := ix.FontFaces[0]
	assert.Equal(t, "Inter", face.Family)
	assert.Equal(t, []string{"/fonts/inter-var.woff2", "/fonts/inter.woff"}, face.Src)
	assert.Len(t, ix.FacesFor("inter"), 1)
}

func TestResolveVar(t *testing.T) {
	r := NewResolver(testIndex(t), 0)

	t.Run("chain", func(t *testing.T) {
		res, ok := r.ResolveVar("--primary").(Resolved)
		require.True(t, ok)
		assert.Equal(t, "#1a73e8", res.Value)
		require.Len(t, res.Chain, 2)
		assert.Equal(t, "--primary", res.Chain[0].VarName)
		assert.Equal(t, "--brand", res.Chain[1].VarName)
		assert.Equal(t, "#1a73e8", res.Chain[1].ResolvedValue)
		assert.Equal(t, ":root @ https://example.test/app.css", res.Chain[1].SourceRule)
	})

	t.Run("cycle", func(t *testing.T) {
		res, ok := r.ResolveVar("--a").(Unresolved)
		require.True(t, ok)
		assert.Equal(t, "cycle: --a -> --b -> --a", res.Reason)
	})

	t.Run("undefined", func(t *testing.T) {
		res, ok := r.ResolveValue("var(--nope)").(Unresolved)
		require.True(t, ok)
		assert.Equal(t, "undefined variable --nope", res.Reason)
	})

	t.Run("fallback", func(t *testing.T) {
		res, ok := r.ResolveValue("var(--nope, 12px)").(Resolved)
		require.True(t, ok)
		assert.Equal(t, "12px", res.Value)
		assert.Empty(t, res.Chain)
	})

	t.Run("nested fallback", func(t *testing.T) {
		res, ok := r.ResolveValue("0 0 0 2px var(--nope, var(--brand))").(Resolved)
		require.True(t, ok)
		assert.Equal(t, "0 0 0 2px #1a73e8", res.Value)
	})

	t.Run("malformed", func(t *testing.T) {
		res, ok := r.ResolveValue("var(--brand").(Unresolved)
		require.True(t, ok)
		assert.Contains(t, res.Reason, "malformed")
	})
}

func TestResolveVar_CycleIgnoresFallback(t *testing.T) {
	idx := BuildStyleIndex([]Stylesheet{{Text: `:root { --a: var(--b, red); --b: var(--a, blue); } .btn { color: var(--a, green); }`}})
	r := NewResolver(idx, 0)

	res, ok := r.ResolveVar("--a").(Unresolved)
	require.True(t, ok, "a fallback must not hide a cycle")
	assert.Equal(t, "cycle: --a -> --b -> --a", res.Reason)

	s := Sample{
		ID:             "home_desktop#002",
		Tag:            "button",
		Classes:        []string{"btn"},
		ComputedStyles: map[string]string{"color": "rgb(255, 0, 0)"},
	}
	resolution := r.Resolve(s)
	assert.Equal(t, "cycle: --a -> --b -> --a", resolution.Unverified["color"])
	require.Len(t, resolution.Issues, 1)
	var unresolved *UnresolvedStyleReference
	require.True(t, errors.As(resolution.Issues[0], &unresolved))
	assert.Equal(t, "color", unresolved.Property)
	assert.Empty(t, resolution.VarChain)
}

func TestResolveVar_DepthCeiling(t *testing.T) {
	var sb strings.Builder
	sb.WriteString(":root {")
	for i := 0; i < 12; i++ {
		fmt.Fprintf(&sb, " --d%d: var(--d%d);", i, i+1)
	}
	sb.WriteString(" --d12: #fff; }")

	r := NewResolver(BuildStyleIndex([]Stylesheet{{Text: sb.String()}}), 8)
	res, ok := r.ResolveVar("--d0").(Unresolved)
	require.True(t, ok)
	assert.Contains(t, res.Reason, "depth ceiling 8 exceeded")

	deep := NewResolver(BuildStyleIndex([]Stylesheet{{Text: sb.String()}}), 20)
	resolved, ok := deep.ResolveVar("--d0").(Resolved)
	require.True(t, ok)
	assert.Equal(t, "#fff", resolved.Value)
	assert.Len(t, resolved.Chain, 13)
}

func TestResolve_Sample(t *testing.T) {
	r := NewResolver(testIndex(t), 0)
	s := Sample{
		ID:      "home_desktop#001",
		Tag:     "button",
		Classes: []string{"btn-primary"},
		ComputedStyles: map[string]string{
			"background-color": "rgb(26, 115, 232)",
			"color":            "rgb(255, 255, 255)",
			"border-radius":    "6px",
			"display":          "inline-flex",
		},
	}

	res := r.Resolve(s)

	attr := make(map[string]Attribution)
	for _, a := range res.Attribution {
		attr[a.Property] = a
	}
	require.Contains(t, attr, "background-color")
	assert.Equal(t, AttributionRule, attr["background-color"].Method)
	assert.Equal(t, ".btn-primary", attr["background-color"].Selector)
	assert.Equal(t, "var(--primary)", attr["background-color"].Authored)
	assert.Equal(t, AttributionNone, attr["border-radius"].Method)
	assert.NotContains(t, attr, "display")

	var names []string
	for _, l := range res.VarChain {
		names = append(names, l.VarName)
	}
	assert.Equal(t, []string{"--primary", "--brand"}, names)

	assert.Equal(t, "undefined variable --missing", res.Unverified["color"])
	require.Len(t, res.Issues, 1)
	var unresolved *UnresolvedStyleReference
	require.True(t, errors.As(res.Issues[0], &unresolved))
	assert.Equal(t, "color", unresolved.Property)

	applied := res.Apply(s)
	assert.Equal(t, res.VarChain, applied.VarChain)
	assert.Contains(t, applied.Unverified, "color")
}

func TestResolve_PrefersUnconditionalRule(t *testing.T) {
	r := NewResolver(testIndex(t), 0)
	s := Sample{
		ID:             "s1",
		Tag:            "article",
		Classes:        []string{"card", "shadow-sm"},
		ComputedStyles: map[string]string{"border-radius": "8px", "box-shadow": "0 1px 2px rgba(0, 0, 0, 0.1)"},
	}

	res := r.Resolve(s)
	for _, a := range res.Attribution {
		if a.Property == "border-radius" {
			assert.Equal(t, "var(--radius)", a.Authored)
		}
	}
	require.Len(t, res.VarChain, 1)
	assert.Equal(t, "8px", res.VarChain[0].ResolvedValue)
}

func TestResolve_Heuristics(t *testing.T) {
	r := NewResolver(testIndex(t), 0)
	s := Sample{
		ID:      "s1",
		Tag:     "p",
		Classes: []string{"text-muted", "rounded-lg"},
		ComputedStyles: map[string]string{
			"color":         "rgb(100, 100, 100)",
			"border-radius": "12px",
			"font-family":   "Inter, sans-serif",
		},
	}

	byProp := make(map[string]Attribution)
	for _, a := range r.Resolve(s).Attribution {
		byProp[a.Property] = a
	}
	assert.Equal(t, AttributionClassHeuristic, byProp["color"].Method)
	assert.Equal(t, ".text-muted", byProp["color"].Selector)
	assert.Equal(t, ".rounded-lg", byProp["border-radius"].Selector)
	assert.Equal(t, AttributionAssetHeuristic, byProp["font-family"].Method)
	assert.Equal(t, "/fonts/inter-var.woff2", byProp["font-family"].Source)
}

func TestSelectorMatches(t *testing.T) {
	s := Sample{Tag: "button", Classes: []string{"btn", "btn-primary"}}
	tests := []struct {
		selector string
		want     bool
	}{
		{".btn", true},
		{"button.btn-primary", true},
		{".nav .btn", true},
		{".card > .btn", true},
		{"a.btn", false},
		{".btn:hover", false},
		{"#cta", false},
		{"*", false},
		{".other, .btn-primary", true},
		{"[data-x]", false},
	}
	for _, tt := range tests {
		t.Run(tt.selector, func(t *testing.T) {
			assert.Equal(t, tt.want, selectorMatches(tt.selector, s))
		})
	}
}
