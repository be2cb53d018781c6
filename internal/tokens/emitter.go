package tokens

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Strategy is the emission strategy of a run
type Strategy string

const (
	StrategyConfigScale Strategy = "config-scale"
	StrategyVariables   Strategy = "variables"
)

// StylingSystem is the detected styling approach of the target site
type StylingSystem struct {
	Name       string `json:"name" koanf:"name"`             // tailwind, unocss, windi, css-modules, ...
	Confidence string `json:"confidence" koanf:"confidence"` // confirmed | likely | possible | unknown
}

var utilityFrameworks = map[string]bool{
	"tailwind":    true,
	"tailwindcss": true,
	"unocss":      true,
	"windi":       true,
	"windicss":    true,
}

// ChooseStrategy picks exactly one strategy: config-scale for a utility
// framework detected with confirmed or likely confidence, variables otherwise.
func ChooseStrategy(s StylingSystem) Strategy {
	conf := strings.ToLower(strings.TrimSpace(s.Confidence))
	if utilityFrameworks[strings.ToLower(strings.TrimSpace(s.Name))] && (conf == "confirmed" || conf == "likely") {
		return StrategyConfigScale
	}
	return StrategyVariables
}

// Artifact is one emitted file
type Artifact struct {
	Path    string `json:"path"`
	Content string `json:"-"`
}

// Emission is the emitter output
type Emission struct {
	Strategy  Strategy   `json:"strategy"`
	Artifacts []Artifact `json:"artifacts"`
	Emitted   int        `json:"emitted"`
	Refused   []Limit    `json:"refused,omitempty"`
}

var (
	placeholderWords = map[string]bool{
		"tbd": true, "todo": true, "placeholder": true, "xxx": true, "fixme": true,
		"n/a": true, "null": true, "undefined": true, "unknown": true, "?": true,
	}
	classShapeRe = regexp.MustCompile(`^[a-z][a-z0-9]*(?:[-_][a-z0-9]+)+$`)
)

// IsPlaceholder reports values that must never be emitted as a token value
func IsPlaceholder(category Category, value string) bool {
	v := strings.TrimSpace(value)
	if v == "" {
		return true
	}
	lower := strings.ToLower(v)
	if placeholderWords[lower] || strings.Contains(lower, "{{") {
		return true
	}
	if strings.HasPrefix(v, "<") && strings.HasSuffix(v, ">") {
		return true
	}
	if KindOf(category) != KindCategorical && classShapeRe.MatchString(lower) {
		return true
	}
	return false
}

// Emit renders the token set with the strategy chosen for styling. Tokens
// whose value looks like a placeholder are refused and recorded in the
// journal; references to a refused token fall back to the literal value.
func Emit(set TokenSet, styling StylingSystem, j *Journal) Emission {
	em := Emission{Strategy: ChooseStrategy(styling)}

	var kept []Token
	ids := make(map[string]bool)
	for _, t := range set.All() {
		if IsPlaceholder(t.Category, t.Value) {
			l := Limit{Kind: LimitPlaceholder, Subject: t.ID, Reason: fmt.Sprintf("refused placeholder value %q", t.Value)}
			em.Refused = append(em.Refused, l)
			if j != nil {
				j.AddLimit(l)
			}
			continue
		}
		if err := t.Validate(); err != nil {
			l := Limit{Kind: LimitPlaceholder, Subject: t.ID, Reason: err.Error()}
			em.Refused = append(em.Refused, l)
			if j != nil {
				j.AddLimit(l)
			}
			continue
		}
		kept = append(kept, t)
		ids[t.ID] = true
	}
	em.Emitted = len(kept)

	runID := ""
	if j != nil {
		runID = j.RunID()
	}

	switch em.Strategy {
	case StrategyConfigScale:
		em.Artifacts = []Artifact{{Path: "tailwind.tokens.js", Content: renderTailwind(kept, runID)}}
	default:
		em.Artifacts = []Artifact{
			{Path: "tokens.css", Content: renderCSS(kept, ids, runID)},
			{Path: "tokens.ts", Content: renderTS(kept, runID)},
		}
	}
	return em
}

// CSSVar returns the custom-property name of a token id
func CSSVar(id string) string {
	return "--" + strings.NewReplacer(".", "-", " ", "-").Replace(id)
}

func labelComment(t Token) string {
	if t.Confidence == Verified {
		return ""
	}
	return string(t.Confidence) + ": " + oneLine(t.Reason)
}

func oneLine(s string) string {
	return collapseSpace(strings.NewReplacer("\n", " ", "*/", "* /").Replace(s))
}

func renderCSS(tokens []Token, ids map[string]bool, runID string) string {
	var sb strings.Builder
	sb.WriteString("/* Generated by tokensmith")
	if runID != "" {
		sb.WriteString(" (run " + runID + ")")
	}
	sb.WriteString(". Do not edit. */\n:root {\n")

	tier := Tier("")
	for _, t := range tokens {
		if t.Tier != tier {
			tier = t.Tier
			sb.WriteString("  /* " + string(tier) + " */\n")
		}
		value := t.Value
		if t.Tier != TierPrimitive && t.ValueRef != "" && t.ValueRef != t.ID && ids[t.ValueRef] {
			value = "var(" + CSSVar(t.ValueRef) + ")"
		}
		sb.WriteString("  " + CSSVar(t.ID) + ": " + value + ";")
		if c := labelComment(t); c != "" {
			sb.WriteString(" /* " + c + " */")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("}\n")
	return sb.String()
}

func renderTS(tokens []Token, runID string) string {
	var sb strings.Builder
	sb.WriteString("// Generated by tokensmith")
	if runID != "" {
		sb.WriteString(" (run " + runID + ")")
	}
	sb.WriteString(". Do not edit.\n\n")

	sb.WriteString("export type Confidence = \"VERIFIED\" | \"ASSUMPTION\" | \"UNVERIFIED\";\n\n")
	sb.WriteString("export interface Token {\n  value: string;\n  cssVar: string;\n  confidence: Confidence;\n}\n\n")
	sb.WriteString("export const tokens = {\n")
	for _, t := range tokens {
		if c := labelComment(t); c != "" {
			sb.WriteString("  // " + c + "\n")
		}
		fmt.Fprintf(&sb, "  %s: { value: %s, cssVar: %s, confidence: %s },\n",
			strconv.Quote(t.ID), strconv.Quote(t.Value), strconv.Quote(CSSVar(t.ID)), strconv.Quote(string(t.Confidence)))
	}
	sb.WriteString("} as const satisfies Record<string, Token>;\n\n")
	sb.WriteString("export type TokenId = keyof typeof tokens;\n")
	return sb.String()
}

// tailwindKeys maps categories to theme.extend sections
var tailwindKeys = map[Category]string{
	CategoryColor:         "colors",
	CategoryFontFamily:    "fontFamily",
	CategoryFontSize:      "fontSize",
	CategoryFontWeight:    "fontWeight",
	CategoryLineHeight:    "lineHeight",
	CategoryLetterSpacing: "letterSpacing",
	CategorySpacing:       "spacing",
	CategoryRadius:        "borderRadius",
	CategoryBorderWidth:   "borderWidth",
	CategoryShadow:        "boxShadow",
	CategoryOpacity:       "opacity",
	CategoryDuration:      "transitionDuration",
	CategoryEasing:        "transitionTimingFunction",
	CategoryZIndex:        "zIndex",
}

// tailwindName drops the category prefix of primitive ids
func tailwindName(t Token) string {
	id := t.ID
	if t.Tier == TierPrimitive {
		id = strings.TrimPrefix(id, string(t.Category)+".")
		if t.Category == CategoryColor {
			id = strings.TrimPrefix(id, "color.")
		}
	}
	return strings.ReplaceAll(id, ".", "-")
}

func renderTailwind(tokens []Token, runID string) string {
	sections := make(map[string][]Token)
	for _, t := range tokens {
		key, ok := tailwindKeys[t.Category]
		if !ok {
			continue
		}
		sections[key] = append(sections[key], t)
	}

	var sb strings.Builder
	sb.WriteString("// Generated by tokensmith")
	if runID != "" {
		sb.WriteString(" (run " + runID + ")")
	}
	sb.WriteString(". Do not edit.\n")
	sb.WriteString("/** @type {import('tailwindcss').Config} */\nmodule.exports = {\n  theme: {\n    extend: {\n")
	for _, c := range Categories {
		key := tailwindKeys[c]
		entries := sections[key]
		if len(entries) == 0 {
			continue
		}
		sb.WriteString("      " + key + ": {\n")
		for _, t := range entries {
			if lc := labelComment(t); lc != "" {
				sb.WriteString("        // " + lc + "\n")
			}
			value := strconv.Quote(t.Value)
			if c == CategoryFontFamily {
				value = "[" + value + "]"
			}
			sb.WriteString("        " + strconv.Quote(tailwindName(t)) + ": " + value + ",\n")
		}
		sb.WriteString("      },\n")
	}
	sb.WriteString("    },\n  },\n};\n")
	return sb.String()
}
