package tokens

import (
	"fmt"
	"sort"
	"strings"
)

// Semantic roles
const (
	RoleBgPage             = "bg.page"
	RoleBgSurface          = "bg.surface"
	RoleTextPrimary        = "text.primary"
	RoleTextSecondary      = "text.secondary"
	RoleBorderDefault      = "border.default"
	RoleBorderSubtle       = "border.subtle"
	RoleInteractivePrimary = "interactive.primary"
	RoleInteractiveHover   = "interactive.hover"
	RoleFocusRing          = "focus.ring"
)

// RoleResult is either Assigned or Uncertain. Callers must switch on the
// concrete type; an Uncertain result never becomes a VERIFIED token.
type RoleResult interface {
	RoleName() string
	isRoleResult()
}

// Assigned is a role backed by a rule above the evidence threshold
type Assigned struct {
	Role     string   `json:"role"`
	Category Category `json:"category"`
	Center   Center   `json:"center"`
	Support  []string `json:"support"` // sample ids satisfying the rule
	Rule     string   `json:"rule"`
}

// Uncertain is a role without enough evidence. Candidate is nil when no
// value satisfied the rule at all.
type Uncertain struct {
	Role         string   `json:"role"`
	Category     Category `json:"category"`
	Candidate    *Center  `json:"candidate,omitempty"`
	Support      []string `json:"support,omitempty"`
	Rule         string   `json:"rule"`
	Reason       string   `json:"reason"`
	WouldConfirm string   `json:"would_confirm"`
}

func (a Assigned) RoleName() string  { return a.Role }
func (u Uncertain) RoleName() string { return u.Role }
func (Assigned) isRoleResult()       {}
func (Uncertain) isRoleResult()      {}

// MapInput is the immutable snapshot the mapper works on
type MapInput struct {
	Clusters     []Cluster
	Observations map[Category][]Observation
	Samples      []Sample
	MinEvidence  int // distinct samples required for an Assigned role (default 2)
}

type roleRule struct {
	role         string
	rule         string
	filter       func(o Observation, s Sample) bool
	exclude      []string // roles whose center may not be reused
	accept       func(c Center) bool
	none         string
	wouldConfirm string
}

// MapRoles assigns semantic roles to color centers. It is pure: identical
// inputs give identical results in the same order.
func MapRoles(in MapInput) []RoleResult {
	if in.MinEvidence <= 0 {
		in.MinEvidence = 2
	}
	var colors *Cluster
	for i := range in.Clusters {
		if in.Clusters[i].Category == CategoryColor {
			colors = &in.Clusters[i]
		}
	}
	samples := make(map[string]Sample, len(in.Samples))
	for _, s := range in.Samples {
		samples[s.ID] = s
	}
	obs := in.Observations[CategoryColor]

	// centers that appear in any default-state observation
	defaultCenters := make(map[int]bool)
	if colors != nil {
		for _, o := range obs {
			if o.State == StateDefault {
				if idx, ok := colors.CenterFor(o.Value); ok {
					defaultCenters[idx] = true
				}
			}
		}
	}

	rules := []roleRule{
		{
			role: RoleBgPage,
			rule: "most frequent background-color on top-level containers",
			filter: func(o Observation, s Sample) bool {
				return o.State == StateDefault && o.Property == "background-color" && isTopLevel(s)
			},
			none:         "no opaque background observed on top-level containers",
			wouldConfirm: "background-color samples of body/main/section containers on at least two pages or breakpoints",
		},
		{
			role: RoleBgSurface,
			rule: "next background tier on cards, inputs and panels",
			filter: func(o Observation, s Sample) bool {
				return o.State == StateDefault && o.Property == "background-color" &&
					(s.ComponentType == "card" || s.ComponentType == "input" || s.ComponentType == "overlay_panel")
			},
			exclude:      []string{RoleBgPage},
			none:         "no surface background distinct from the page background",
			wouldConfirm: "card or panel samples whose background differs from bg.page",
		},
		{
			role: RoleTextPrimary,
			rule: "most frequent foreground color on typography samples",
			filter: func(o Observation, s Sample) bool {
				return o.State == StateDefault && o.Property == "color" && s.ComponentType == "typography"
			},
			none:         "no text color observed on typography samples",
			wouldConfirm: "heading and paragraph samples sharing one foreground color",
		},
		{
			role: RoleTextSecondary,
			rule: "second foreground tier on typography samples",
			filter: func(o Observation, s Sample) bool {
				return o.State == StateDefault && o.Property == "color" && s.ComponentType == "typography"
			},
			exclude:      []string{RoleTextPrimary},
			none:         "only one foreground tier observed",
			wouldConfirm: "captions or helper text using a lighter foreground color",
		},
		{
			role: RoleBorderDefault,
			rule: "most frequent border-color on elements with a visible border",
			filter: func(o Observation, s Sample) bool {
				return o.State == StateDefault && o.Property == "border-color"
			},
			none:         "no visible borders observed",
			wouldConfirm: "inputs or cards with a solid border",
		},
		{
			role: RoleBorderSubtle,
			rule: "border-color variant that is dashed or translucent",
			filter: func(o Observation, s Sample) bool {
				if o.State != StateDefault || o.Property != "border-color" {
					return false
				}
				style := strings.ToLower(s.ComputedStyles["border-style"])
				c, ok := ParseColor(o.Value)
				return strings.HasPrefix(style, "dashed") || strings.HasPrefix(style, "dotted") || (ok && c.Alpha < 1)
			},
			exclude:      []string{RoleBorderDefault},
			none:         "no dashed or translucent border variant observed",
			wouldConfirm: "dividers or secondary cards with a dashed or low-opacity border",
		},
		{
			role: RoleInteractivePrimary,
			rule: "most frequent saturated background-color on buttons",
			filter: func(o Observation, s Sample) bool {
				return o.State == StateDefault && o.Property == "background-color" && s.ComponentType == "button"
			},
			accept: func(c Center) bool {
				col, ok := ParseColor(c.Value)
				return ok && !col.IsNeutral()
			},
			none:         "no saturated button background observed",
			wouldConfirm: "primary call-to-action buttons sharing an accent background",
		},
		{
			role: RoleInteractiveHover,
			rule: "color appearing only in hover/active diffs of interactive elements",
			filter: func(o Observation, s Sample) bool {
				return (o.State == StateHover || o.State == StateActive) &&
					(o.Property == "background-color" || o.Property == "color") &&
					IsInteractiveType(s.ComponentType)
			},
			none:         "no color change observed in hover or active states",
			wouldConfirm: "hover captures of buttons or links that change background or text color",
		},
		{
			role: RoleFocusRing,
			rule: "outline-color introduced by focus-visible",
			filter: func(o Observation, s Sample) bool {
				return o.State == StateFocusVisible && o.Property == "outline-color"
			},
			none:         "no focus-visible outline observed",
			wouldConfirm: "keyboard focus captures of interactive elements showing an outline",
		},
	}

	assigned := make(map[string]int) // role -> center index
	var results []RoleResult
	for _, r := range rules {
		if colors == nil {
			results = append(results, Uncertain{
				Role: r.role, Category: CategoryColor, Rule: r.rule,
				Reason: "no color evidence collected", WouldConfirm: r.wouldConfirm,
			})
			continue
		}

		support := make(map[int]map[string]struct{})
		for _, o := range obs {
			s, ok := samples[o.SampleID]
			if !ok || !r.filter(o, s) {
				continue
			}
			idx, ok := colors.CenterFor(o.Value)
			if !ok {
				continue
			}
			if r.role == RoleInteractiveHover && defaultCenters[idx] {
				continue
			}
			if support[idx] == nil {
				support[idx] = make(map[string]struct{})
			}
			support[idx][o.SampleID] = struct{}{}
		}

		best, bestCount := -1, 0
		for _, idx := range sortedInts(support) {
			if excluded(assigned, r.exclude, idx) {
				continue
			}
			if r.accept != nil && !r.accept(colors.Centers[idx]) {
				continue
			}
			if n := len(support[idx]); n > bestCount {
				best, bestCount = idx, n
			}
		}

		if best < 0 {
			results = append(results, Uncertain{
				Role: r.role, Category: CategoryColor, Rule: r.rule,
				Reason: r.none, WouldConfirm: r.wouldConfirm,
			})
			continue
		}

		center := colors.Centers[best]
		ids := sortedKeys(support[best])
		assigned[r.role] = best
		if bestCount >= in.MinEvidence {
			results = append(results, Assigned{Role: r.role, Category: CategoryColor, Center: center, Support: ids, Rule: r.rule})
			continue
		}
		c := center
		results = append(results, Uncertain{
			Role:         r.role,
			Category:     CategoryColor,
			Candidate:    &c,
			Support:      ids,
			Rule:         r.rule,
			Reason:       fmt.Sprintf("only %d sample(s) satisfy %q; threshold is %d", bestCount, r.rule, in.MinEvidence),
			WouldConfirm: r.wouldConfirm,
		})
	}

	return results
}

func isTopLevel(s Sample) bool {
	switch s.ComponentType {
	case "container", "navbar":
		return true
	}
	switch s.Tag {
	case "body", "main", "header", "footer", "section":
		return true
	}
	return false
}

func excluded(assigned map[string]int, roles []string, idx int) bool {
	for _, r := range roles {
		if i, ok := assigned[r]; ok && i == idx {
			return true
		}
	}
	return false
}

func sortedInts(m map[int]map[string]struct{}) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}
