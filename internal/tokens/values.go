package tokens

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Color is a parsed CSS color with alpha
type Color struct {
	C     colorful.Color
	Alpha float64
}

var (
	colorFuncRe = regexp.MustCompile(`^rgba?\(\s*([^)]*)\)$`)
	numberRe    = regexp.MustCompile(`-?\d*\.?\d+(?:e-?\d+)?`)
	embedColor  = regexp.MustCompile(`rgba?\([^)]*\)|#[0-9a-fA-F]{3,8}\b`)
	spaceRe     = regexp.MustCompile(`\s+`)
)

var namedColors = map[string]string{
	"black": "#000000",
	"white": "#ffffff",
	"red":   "#ff0000",
	"blue":  "#0000ff",
	"green": "#008000",
	"gray":  "#808080",
	"grey":  "#808080",
}

// ParseColor parses rgb()/rgba(), hex (3, 4, 6, 8 digits) and a few names
func ParseColor(s string) (Color, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Color{}, false
	}
	if s == "transparent" {
		return Color{Alpha: 0}, true
	}
	if hex, ok := namedColors[s]; ok {
		s = hex
	}

	if strings.HasPrefix(s, "#") {
		return parseHexColor(s)
	}

	m := colorFuncRe.FindStringSubmatch(s)
	if m == nil {
		return Color{}, false
	}
	parts := strings.FieldsFunc(m[1], func(r rune) bool {
		return r == ',' || r == ' ' || r == '/'
	})
	if len(parts) < 3 {
		return Color{}, false
	}

	var rgb [3]float64
	for i := 0; i < 3; i++ {
		v, ok := parseChannel(parts[i], 255)
		if !ok {
			return Color{}, false
		}
		rgb[i] = clamp01(v / 255)
	}

	alpha := 1.0
	if len(parts) >= 4 {
		v, ok := parseChannel(parts[3], 1)
		if !ok {
			return Color{}, false
		}
		alpha = clamp01(v)
	}

	return Color{C: colorful.Color{R: rgb[0], G: rgb[1], B: rgb[2]}, Alpha: alpha}, true
}

func parseHexColor(s string) (Color, bool) {
	digits := strings.TrimPrefix(s, "#")
	alpha := 1.0

	switch len(digits) {
	case 4:
		a, err := strconv.ParseUint(digits[3:]+digits[3:], 16, 8)
		if err != nil {
			return Color{}, false
		}
		alpha = float64(a) / 255
		digits = digits[:3]
	case 8:
		a, err := strconv.ParseUint(digits[6:], 16, 8)
		if err != nil {
			return Color{}, false
		}
		alpha = float64(a) / 255
		digits = digits[:6]
	case 3, 6:
	default:
		return Color{}, false
	}

	c, err := colorful.Hex("#" + digits)
	if err != nil {
		return Color{}, false
	}
	return Color{C: c, Alpha: alpha}, true
}

func parseChannel(s string, scale float64) (float64, bool) {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "%") {
		v, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
		if err != nil {
			return 0, false
		}
		return v / 100 * scale, true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// Hex returns the uppercase hex form; alpha is appended when not opaque
func (c Color) Hex() string {
	hex := strings.ToUpper(c.C.Clamped().Hex())
	if c.Alpha < 1 {
		hex += fmt.Sprintf("%02X", int(math.Round(c.Alpha*255)))
	}
	return hex
}

// Distance returns the CIEDE2000 difference in standard ΔE units.
// Colors whose alpha differs noticeably are never considered close.
func (c Color) Distance(o Color) float64 {
	if math.Abs(c.Alpha-o.Alpha) > 0.05 {
		return math.Inf(1)
	}
	return c.C.DistanceCIEDE2000(o.C) * 100
}

// IsNeutral reports grays and near-black/near-white colors
func (c Color) IsNeutral() bool {
	_, s, l := c.C.Hsl()
	return s < 0.18 || l < 0.08 || l > 0.96
}

// Luminance returns WCAG relative luminance
func (c Color) Luminance() float64 {
	r, g, b := c.C.LinearRgb()
	return 0.2126*r + 0.7152*g + 0.0722*b
}

// ContrastRatio returns the WCAG contrast ratio between two opaque colors
func ContrastRatio(a, b Color) float64 {
	la, lb := a.Luminance(), b.Luminance()
	if la < lb {
		la, lb = lb, la
	}
	return (la + 0.05) / (lb + 0.05)
}

// ParseLength converts px/rem/em values to pixels
func ParseLength(s string) (float64, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0, false
	}
	if s == "0" {
		return 0, true
	}

	factor := 0.0
	num := s
	switch {
	case strings.HasSuffix(s, "px"):
		factor, num = 1, strings.TrimSuffix(s, "px")
	case strings.HasSuffix(s, "rem"):
		factor, num = 16, strings.TrimSuffix(s, "rem")
	case strings.HasSuffix(s, "em"):
		factor, num = 16, strings.TrimSuffix(s, "em")
	default:
		return 0, false
	}

	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, false
	}
	return v * factor, true
}

// ParseDuration converts s/ms values to milliseconds
func ParseDuration(s string) (float64, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case strings.HasSuffix(s, "ms"):
		v, err := strconv.ParseFloat(strings.TrimSuffix(s, "ms"), 64)
		return v, err == nil
	case strings.HasSuffix(s, "s"):
		v, err := strconv.ParseFloat(strings.TrimSuffix(s, "s"), 64)
		return v * 1000, err == nil
	}
	return 0, false
}

// ParseNumber parses a unitless number
func ParseNumber(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return v, err == nil
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(math.Round(f*100)/100, 'f', -1, 64)
}

// collapseSpace trims and collapses runs of whitespace
func collapseSpace(s string) string {
	return spaceRe.ReplaceAllString(strings.TrimSpace(s), " ")
}

// NormalizeValue returns the canonical string and numeric value of raw
// under kind. Colors compare via Distance, so their numeric value is 0.
func NormalizeValue(kind ValueKind, raw string) (string, float64, bool) {
	switch kind {
	case KindColor:
		c, ok := ParseColor(raw)
		if !ok {
			return "", 0, false
		}
		return c.Hex(), 0, true
	case KindLength:
		v, ok := ParseLength(raw)
		if !ok {
			return "", 0, false
		}
		return formatNumber(v) + "px", v, true
	case KindNumber:
		v, ok := ParseNumber(raw)
		if !ok {
			return "", 0, false
		}
		return formatNumber(v), v, true
	case KindDuration:
		v, ok := ParseDuration(raw)
		if !ok {
			return "", 0, false
		}
		return formatNumber(v) + "ms", v, true
	default:
		v := collapseSpace(raw)
		return v, 0, v != ""
	}
}

// FirstFamily returns the first family of a font-family stack, unquoted
func FirstFamily(stack string) string {
	first := stack
	if i := strings.Index(stack, ","); i >= 0 {
		first = stack[:i]
	}
	return strings.Trim(strings.TrimSpace(first), `"'`)
}

// splitTopLevel splits on commas outside parentheses
func splitTopLevel(s string) []string {
	var out []string
	depth, start := 0, 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				out = append(out, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	return append(out, strings.TrimSpace(s[start:]))
}
