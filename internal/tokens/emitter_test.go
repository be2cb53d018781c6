package tokens

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChooseStrategy(t *testing.T) {
	tests := []struct {
		styling StylingSystem
		want    Strategy
	}{
		{StylingSystem{Name: "tailwind", Confidence: "confirmed"}, StrategyConfigScale},
		{StylingSystem{Name: "Tailwind", Confidence: "likely"}, StrategyConfigScale},
		{StylingSystem{Name: "unocss", Confidence: "likely"}, StrategyConfigScale},
		{StylingSystem{Name: "tailwind", Confidence: "possible"}, StrategyVariables},
		{StylingSystem{Name: "css-modules", Confidence: "confirmed"}, StrategyVariables},
		{StylingSystem{}, StrategyVariables},
	}
	for _, tt := range tests {
		t.Run(tt.styling.Name+"/"+tt.styling.Confidence, func(t *testing.T) {
			assert.Equal(t, tt.want, ChooseStrategy(tt.styling))
		})
	}
}

func sampleSet() TokenSet {
	return TokenSet{
		Primitive: []Token{
			{Tier: TierPrimitive, ID: "color.neutral.1", Category: CategoryColor, ValueRef: "color.neutral.1", Value: "#FFFFFF", Confidence: Verified},
			{Tier: TierPrimitive, ID: "color.accent.1", Category: CategoryColor, ValueRef: "color.accent.1", Value: "#1A73E8", Confidence: Verified},
			{Tier: TierPrimitive, ID: "spacing.1", Category: CategorySpacing, ValueRef: "spacing.1", Value: "TBD", Confidence: Verified},
			{Tier: TierPrimitive, ID: "font-family.1", Category: CategoryFontFamily, ValueRef: "font-family.1", Value: "Inter", Confidence: Unverified,
				Reason: "UNVERIFIED FONT: no network font request matched \"Inter\"", WouldConfirm: "a font response for Inter"},
		},
		Semantic: []Token{
			{Tier: TierSemantic, ID: "bg.page", Category: CategoryColor, ValueRef: "color.neutral.1", Value: "#FFFFFF", Confidence: Verified},
			{Tier: TierSemantic, ID: "interactive.primary", Category: CategoryColor, ValueRef: "color.accent.1", Value: "#1A73E8", Confidence: Assumption,
				Reason: "only 1 sample", WouldConfirm: "more buttons"},
		},
		Component: []Token{
			{Tier: TierComponent, ID: "button.padding-x", Category: CategorySpacing, ValueRef: "spacing.1", Value: "btn-padding", Confidence: Verified},
			{Tier: TierComponent, ID: "button.background", Category: CategoryColor, ValueRef: "interactive.primary", Value: "#1A73E8", Confidence: Assumption,
				Reason: "references interactive.primary which is ASSUMPTION", WouldConfirm: "more buttons"},
		},
	}
}

func TestEmit_Variables(t *testing.T) {
	j := NewJournal("run-7")
	em := Emit(sampleSet(), StylingSystem{Name: "css-modules", Confidence: "confirmed"}, j)

	assert.Equal(t, StrategyVariables, em.Strategy)
	require.Len(t, em.Artifacts, 2)
	assert.Equal(t, "tokens.css", em.Artifacts[0].Path)
	assert.Equal(t, "tokens.ts", em.Artifacts[1].Path)
	assert.Equal(t, 6, em.Emitted)

	css := em.Artifacts[0].Content
	assert.Contains(t, css, "--color-neutral-1: #FFFFFF;")
	assert.Contains(t, css, "--bg-page: var(--color-neutral-1);")
	assert.Contains(t, css, "--button-background: var(--interactive-primary); /* ASSUMPTION: references interactive.primary which is ASSUMPTION */")
	assert.Contains(t, css, "/* UNVERIFIED: UNVERIFIED FONT: no network font request matched \"Inter\" */")
	assert.Contains(t, css, "run-7")

	ts := em.Artifacts[1].Content
	assert.Contains(t, ts, `"bg.page": { value: "#FFFFFF", cssVar: "--bg-page", confidence: "VERIFIED" },`)
	assert.Contains(t, ts, "// ASSUMPTION: only 1 sample")
}

func TestEmit_RefusesPlaceholders(t *testing.T) {
	j := NewJournal("run-7")
	em := Emit(sampleSet(), StylingSystem{}, j)

	require.Len(t, em.Refused, 2)
	for _, a := range em.Artifacts {
		assert.NotContains(t, a.Content, "TBD")
		assert.NotContains(t, a.Content, "btn-padding")
		assert.NotContains(t, a.Content, "--spacing-1")
	}

	_, groups := j.Snapshot().LimitsByKind()
	require.Len(t, groups[LimitPlaceholder], 2)
	assert.Equal(t, "spacing.1", groups[LimitPlaceholder][0].Subject)
	assert.Equal(t, "button.padding-x", groups[LimitPlaceholder][1].Subject)
}

func TestEmit_ConfigScale(t *testing.T) {
	em := Emit(sampleSet(), StylingSystem{Name: "tailwind", Confidence: "likely"}, NewJournal("r"))

	require.Len(t, em.Artifacts, 1)
	assert.Equal(t, "tailwind.tokens.js", em.Artifacts[0].Path)
	js := em.Artifacts[0].Content
	assert.Contains(t, js, "module.exports")
	assert.Contains(t, js, `"neutral-1": "#FFFFFF",`)
	assert.Contains(t, js, `"bg-page": "#FFFFFF",`)
	assert.Contains(t, js, `"1": ["Inter"],`)
	assert.Contains(t, js, "// ASSUMPTION: only 1 sample")
	assert.Less(t, strings.Index(js, "colors:"), strings.Index(js, "fontFamily:"))
}

func TestEmit_InvalidTokenIsRefused(t *testing.T) {
	set := TokenSet{Primitive: []Token{{Tier: TierPrimitive, ID: "radius.1", Category: CategoryRadius, Value: "4px", Confidence: Assumption}}}
	em := Emit(set, StylingSystem{}, nil)
	assert.Zero(t, em.Emitted)
	require.Len(t, em.Refused, 1)
	assert.Contains(t, em.Refused[0].Reason, "without a reason")
}

func TestIsPlaceholder(t *testing.T) {
	tests := []struct {
		category Category
		value    string
		want     bool
	}{
		{CategoryColor, "#1A73E8", false},
		{CategoryColor, "", true},
		{CategoryColor, "  ", true},
		{CategorySpacing, "TODO", true},
		{CategorySpacing, "<spacing>", true},
		{CategorySpacing, "{{gap}}", true},
		{CategorySpacing, "space-lg", true},
		{CategorySpacing, "16px", false},
		{CategoryEasing, "ease-in-out", false},
		{CategoryFontFamily, "source-sans", false},
		{CategoryShadow, "0 1px 2px rgba(0,0,0,.1)", false},
		{CategoryColor, "currentcolor", false},
	}
	for _, tt := range tests {
		t.Run(string(tt.category)+"/"+tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPlaceholder(tt.category, tt.value))
		})
	}
}
