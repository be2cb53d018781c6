package tokens

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseColor(t *testing.T) {
	tests := []struct {
		in    string
		hex   string
		alpha float64
		ok    bool
	}{
		{in: "rgb(26, 115, 232)", hex: "#1A73E8", alpha: 1, ok: true},
		{in: "rgba(0, 0, 0, 0.5)", hex: "#00000080", alpha: 0.5, ok: true},
		{in: "rgb(255 255 255 / 50%)", hex: "#FFFFFF80", alpha: 0.5, ok: true},
		{in: "#fff", hex: "#FFFFFF", alpha: 1, ok: true},
		{in: "#1A73E8", hex: "#1A73E8", alpha: 1, ok: true},
		{in: " White ", hex: "#FFFFFF", alpha: 1, ok: true},
		{in: "transparent", alpha: 0, ok: true},
		{in: "", ok: false},
		{in: "var(--brand)", ok: false},
		{in: "#12", ok: false},
		{in: "rgb(1, 2)", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			c, ok := ParseColor(tt.in)
			require.Equal(t, tt.ok, ok)
			if !ok {
				return
			}
			assert.InDelta(t, tt.alpha, c.Alpha, 0.01)
			if tt.hex != "" {
				assert.Equal(t, tt.hex, c.Hex())
			}
		})
	}
}

func TestColorDistance(t *testing.T) {
	a, _ := ParseColor("#1A73E8")
	b, _ := ParseColor("#1A74E9")
	red, _ := ParseColor("#FF0000")
	faded, _ := ParseColor("rgba(26, 115, 232, 0.5)")

	assert.Less(t, a.Distance(b), 2.0)
	assert.Greater(t, a.Distance(red), 2.0)
	assert.True(t, a.Distance(faded) > 1e9, "alpha mismatch is never close")
}

func TestContrastRatio(t *testing.T) {
	black, _ := ParseColor("#000")
	white, _ := ParseColor("#fff")
	assert.InDelta(t, 21, ContrastRatio(black, white), 0.01)
	assert.InDelta(t, 21, ContrastRatio(white, black), 0.01)
	assert.InDelta(t, 1, ContrastRatio(white, white), 0.01)
}

func TestParseLengthAndDuration(t *testing.T) {
	lengths := map[string]float64{"16px": 16, "1.5rem": 24, "2em": 32, "0": 0, " 8PX ": 8}
	for in, want := range lengths {
		got, ok := ParseLength(in)
		require.True(t, ok, in)
		assert.InDelta(t, want, got, 0.001, in)
	}
	for _, bad := range []string{"", "auto", "50%", "pxpx"} {
		_, ok := ParseLength(bad)
		assert.False(t, ok, bad)
	}

	durations := map[string]float64{"200ms": 200, "0.3s": 300, "1s": 1000}
	for in, want := range durations {
		got, ok := ParseDuration(in)
		require.True(t, ok, in)
		assert.InDelta(t, want, got, 0.001, in)
	}
	_, ok := ParseDuration("fast")
	assert.False(t, ok)
}

func TestNormalizeValue(t *testing.T) {
	tests := []struct {
		kind ValueKind
		raw  string
		want string
	}{
		{KindColor, "rgb(255, 0, 0)", "#FF0000"},
		{KindLength, "1rem", "16px"},
		{KindLength, "12.346px", "12.35px"},
		{KindNumber, "600", "600"},
		{KindDuration, "0.15s", "150ms"},
		{KindCategorical, "  ease-in   out ", "ease-in out"},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind)+"/"+tt.raw, func(t *testing.T) {
			got, _, ok := NormalizeValue(tt.kind, tt.raw)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, _, ok := NormalizeValue(KindLength, "auto")
	assert.False(t, ok)
}

func TestFirstFamilyAndSplit(t *testing.T) {
	assert.Equal(t, "Inter", FirstFamily(`"Inter", system-ui, sans-serif`))
	assert.Equal(t, "Roboto Mono", FirstFamily(`'Roboto Mono'`))
	assert.Equal(t,
		[]string{"0 1px 2px rgba(0, 0, 0, 0.1)", "0 4px 12px rgba(0, 0, 0, 0.12)"},
		splitTopLevel("0 1px 2px rgba(0, 0, 0, 0.1), 0 4px 12px rgba(0, 0, 0, 0.12)"))
}
