package tokensmith

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/yacobolo/tokensmith/internal/tokens"
)

// NotAvailable prefixes every placeholder value that has no evidence
const NotAvailable = "not available — "

var placeholderRe = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_.\-]+)\s*\}\}`)

// Placeholders supplies report template values for a run. Every key it knows
// about is present; missing evidence yields NotAvailable plus the reason.
func Placeholders(res *Result) map[string]string {
	v := map[string]string{
		"run_id":            res.RunID,
		"generated_at":      res.GeneratedAt.Format("2006-01-02 15:04 MST"),
		"targets":           strconv.Itoa(res.Targets),
		"targets_collected": strconv.Itoa(res.Collected),
		"sample_count":      strconv.Itoa(len(res.Samples)),
		"token_count":       strconv.Itoa(res.Tokens.Len()),
		"strategy":          string(res.Emission.Strategy),
	}
	if res.Emission.Strategy == "" {
		v["strategy"] = NotAvailable + "analysis did not run"
	}

	// semantic roles
	for _, r := range res.Roles {
		key := "role." + r.RoleName()
		switch x := r.(type) {
		case tokens.Assigned:
			v[key] = x.Center.Value
		case tokens.Uncertain:
			if x.Candidate != nil {
				v[key] = x.Candidate.Value + " (ASSUMPTION: " + x.Reason + ")"
			} else {
				v[key] = NotAvailable + x.Reason
			}
		}
	}
	for _, role := range []string{
		tokens.RoleBgPage, tokens.RoleBgSurface, tokens.RoleTextPrimary, tokens.RoleTextSecondary,
		tokens.RoleBorderDefault, tokens.RoleBorderSubtle, tokens.RoleInteractivePrimary,
		tokens.RoleInteractiveHover, tokens.RoleFocusRing,
	} {
		if _, ok := v["role."+role]; !ok {
			v["role."+role] = NotAvailable + "semantic mapping did not run"
		}
	}

	// scales
	byCategory := make(map[tokens.Category]tokens.Cluster, len(res.Clusters))
	for _, c := range res.Clusters {
		byCategory[c.Category] = c
	}
	for _, cat := range tokens.Categories {
		key := "scale." + string(cat)
		if c, ok := byCategory[cat]; ok && len(c.Centers) > 0 {
			v[key] = strings.Join(c.CenterValues(), ", ")
		} else {
			v[key] = NotAvailable + "no " + string(cat) + " values observed"
		}
	}

	// fonts
	if len(res.Fonts) == 0 {
		v["fonts"] = NotAvailable + "no font families observed"
	} else {
		parts := make([]string, len(res.Fonts))
		for i, f := range res.Fonts {
			parts[i] = f.Family + " (" + f.Label + ")"
		}
		v["fonts"] = strings.Join(parts, ", ")
	}

	// rule summaries
	d := res.Rules.Density
	if d.ControlHeight.Count == 0 {
		v["density"] = NotAvailable + "no interactive controls sampled"
	} else {
		v["density"] = fmt.Sprintf("%s (control height median %gpx)", d.Class, d.ControlHeight.Median)
	}
	if len(res.Rules.Layout.ContainerMaxWidths) == 0 {
		v["layout.containers"] = NotAvailable + "no container max-width observed"
	} else {
		v["layout.containers"] = strings.Join(res.Rules.Layout.ContainerMaxWidths, ", ")
	}
	a := res.Rules.Accessibility
	if a.Interactive == 0 {
		v["a11y.targets"] = NotAvailable + "no interactive samples"
		v["a11y.focus"] = NotAvailable + "no interactive samples"
	} else {
		v["a11y.targets"] = fmt.Sprintf("%d of %d below %dpx", len(a.SmallTargets), a.Interactive, tokens.MinTargetSize)
		v["a11y.focus"] = fmt.Sprintf("%d with a visible focus ring, %d without", len(a.FocusRings), len(a.NoFocusRing))
	}
	if a.ReducedMotion == "" {
		v["motion"] = NotAvailable + "analysis did not run"
	} else {
		v["motion"] = a.ReducedMotion
	}

	kinds, groups := res.Journal.LimitsByKind()
	if len(kinds) == 0 {
		v["limits"] = NotAvailable + "run did not finish"
	} else {
		parts := make([]string, 0, len(kinds))
		for _, k := range kinds {
			parts = append(parts, fmt.Sprintf("%s: %d", k, len(groups[k])))
		}
		v["limits"] = strings.Join(parts, ", ")
	}
	return v
}

// RenderTemplate substitutes {{key}} slots. Unknown or blank keys render as
// NotAvailable naming the key, so no slot is ever left empty.
func RenderTemplate(tmpl string, values map[string]string) string {
	return placeholderRe.ReplaceAllStringFunc(tmpl, func(m string) string {
		key := placeholderRe.FindStringSubmatch(m)[1]
		if val, ok := values[key]; ok && strings.TrimSpace(val) != "" {
			return val
		}
		return NotAvailable + "no evidence for " + key
	})
}
