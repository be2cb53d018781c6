package tokens

import (
	"fmt"
	"math"
	"strings"
)

// ValidatorConfig controls candidate acceptance
type ValidatorConfig struct {
	MinBBox      float64  // minimum width and height in CSS px (default 24)
	BroadCapture bool     // skip curation: no per-type caps, no dedupe
	Selected     []string // curated selector list; empty means no restriction
	MaxPerGroup  int      // per component type cap when curating (default 6)
}

func (c *ValidatorConfig) defaults() {
	if c.MinBBox <= 0 {
		c.MinBBox = 24
	}
	if c.MaxPerGroup <= 0 {
		c.MaxPerGroup = 6
	}
}

// Scope identifies the target a validator runs for
type Scope struct {
	Page       string
	Breakpoint string
	Theme      string
}

// Key returns "{page}_{breakpoint}_{theme}"
func (s Scope) Key() string {
	key := s.Page + "_" + s.Breakpoint
	if s.Theme != "" {
		key += "_" + s.Theme
	}
	return key
}

// Validator turns candidates of one target into Samples. It holds per-target
// curation state, so create one per (page, breakpoint, theme).
type Validator struct {
	cfg      ValidatorConfig
	scope    Scope
	selected map[string]bool
	perGroup map[string]int
	seen     map[string]bool
	next     int
}

// NewValidator creates a validator for one target
func NewValidator(cfg ValidatorConfig, scope Scope) *Validator {
	cfg.defaults()
	v := &Validator{
		cfg:      cfg,
		scope:    scope,
		perGroup: make(map[string]int),
		seen:     make(map[string]bool),
	}
	if len(cfg.Selected) > 0 {
		v.selected = make(map[string]bool, len(cfg.Selected))
		for _, s := range cfg.Selected {
			v.selected[strings.TrimSpace(s)] = true
		}
	}
	return v
}

// Validate returns a Sample or a *RejectedSample error. Rejection is
// deterministic given the same candidate sequence.
func (v *Validator) Validate(c Candidate) (Sample, error) {
	if reason := v.rejectReason(c); reason != "" {
		return Sample{}, &RejectedSample{
			Page:       v.scope.Page,
			Breakpoint: v.scope.Breakpoint,
			Selector:   c.SelectorPath,
			Reason:     reason,
		}
	}

	componentType := c.ComponentType
	if componentType == "" {
		componentType = InferComponentType(c)
	}

	if !v.cfg.BroadCapture {
		key := fmt.Sprintf("%s|%s|%.0f|%.0f", componentType, strings.TrimSpace(c.Text), math.Round(c.BBox.W), math.Round(c.BBox.H))
		if v.seen[key] {
			return Sample{}, v.reject(c, "duplicate of an accepted "+componentType+" sample")
		}
		if v.perGroup[componentType] >= v.cfg.MaxPerGroup {
			return Sample{}, v.reject(c, fmt.Sprintf("%s group already holds %d samples", componentType, v.cfg.MaxPerGroup))
		}
		v.seen[key] = true
		v.perGroup[componentType]++
	}

	v.next++
	styles := make(map[string]string, len(c.Styles))
	for k, val := range c.Styles {
		styles[k] = val
	}

	return Sample{
		ID:             fmt.Sprintf("%s#%03d", v.scope.Key(), v.next),
		Page:           v.scope.Page,
		Breakpoint:     v.scope.Breakpoint,
		Theme:          v.scope.Theme,
		SelectorPath:   c.SelectorPath,
		Tag:            strings.ToLower(c.Tag),
		ComponentType:  componentType,
		Role:           c.Role,
		AriaLabel:      c.AriaLabel,
		TextSnippet:    snippet(c.Text, 80),
		Classes:        append([]string(nil), c.Classes...),
		Navigational:   c.Navigational(),
		BBox:           c.BBox,
		Visible:        true,
		ComputedStyles: styles,
		CropRef:        c.CropRef,
	}, nil
}

func (v *Validator) reject(c Candidate, reason string) error {
	return &RejectedSample{Page: v.scope.Page, Breakpoint: v.scope.Breakpoint, Selector: c.SelectorPath, Reason: reason}
}

func (v *Validator) rejectReason(c Candidate) string {
	if v.selected != nil && !v.selected[c.SelectorPath] {
		return "not in curated selection"
	}
	if !c.Visible {
		return "not visible"
	}
	if strings.EqualFold(c.Styles["display"], "none") {
		return "display: none"
	}
	if strings.EqualFold(c.Styles["visibility"], "hidden") {
		return "visibility: hidden"
	}
	if op, ok := ParseNumber(c.Styles["opacity"]); ok && op <= 0 {
		return "opacity: 0"
	}
	if c.BBox.W < v.cfg.MinBBox || c.BBox.H < v.cfg.MinBBox {
		return fmt.Sprintf("bbox %.0fx%.0f below minimum %.0fx%.0f", c.BBox.W, c.BBox.H, v.cfg.MinBBox, v.cfg.MinBBox)
	}
	if c.Role == "" && c.AriaLabel == "" && strings.TrimSpace(c.Text) == "" {
		return "no role, accessible name, or text"
	}
	return ""
}

// InferComponentType derives a component type when the collector gave none.
// Tag and role decide first; class words (card, chip, badge, tag, pill, btn)
// refine links and generic elements.
func InferComponentType(c Candidate) string {
	tag := strings.ToLower(c.Tag)
	role := strings.ToLower(c.Role)
	byClass := classComponentType(c.Classes)

	switch {
	case tag == "button" || role == "button":
		if IsChipLike(c) || byClass == "chip" {
			return "chip"
		}
		return "button"
	case tag == "input" || tag == "select" || tag == "textarea" || role == "textbox" || role == "combobox":
		return "input"
	case tag == "nav" || role == "navigation":
		return "navbar"
	case tag == "a" || role == "link":
		if IsChipLike(c) || byClass == "chip" {
			return "chip"
		}
		if byClass == "card" {
			return "card"
		}
		return "nav_link"
	case byClass != "":
		return byClass
	case tag == "main" || tag == "section" || tag == "header" || tag == "footer" || role == "main":
		return "container"
	case tag == "article":
		return "card"
	case IsChipLike(c):
		return "chip"
	}
	return "typography"
}

// classWords maps words found in class names to component types
var classWords = map[string]string{
	"card":   "card",
	"chip":   "chip",
	"badge":  "chip",
	"tag":    "chip",
	"pill":   "chip",
	"btn":    "button",
	"button": "button",
}

// classComponentType returns the component type named by the first class
// containing a known word. Words are split on '-' and '_', so "product-card"
// and "card__body" match but "cardinal" does not.
func classComponentType(classes []string) string {
	for _, class := range classes {
		words := strings.FieldsFunc(strings.ToLower(class), func(r rune) bool {
			return r == '-' || r == '_'
		})
		for _, w := range words {
			if t, ok := classWords[w]; ok {
				return t
			}
		}
	}
	return ""
}

// IsChipLike reports compact pill-shaped inline elements
func IsChipLike(c Candidate) bool {
	h := c.BBox.H
	if h <= 0 || h > 40 {
		return false
	}
	radius, ok := ParseLength(strings.Fields(c.Styles["border-radius"] + " 0")[0])
	if !ok || radius < h/2 {
		return false
	}
	return strings.HasPrefix(strings.ToLower(c.Styles["display"]), "inline")
}

func snippet(text string, max int) string {
	text = collapseSpace(text)
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max])
}
