package tokens

import (
	"sort"
	"strings"
)

// ExtractObservations turns default computed styles and state-diff values
// into per-category observations. Keyword and no-op values (auto, normal,
// none, zero widths, fully transparent colors) are not scale candidates.
func ExtractObservations(samples []Sample, diffs []StateDiff) map[Category][]Observation {
	out := make(map[Category][]Observation)

	ordered := make([]Sample, len(samples))
	copy(ordered, samples)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	byID := make(map[string]Sample, len(ordered))
	for _, s := range ordered {
		byID[s.ID] = s
		for _, prop := range sortedStyleKeys(s.ComputedStyles) {
			cat, ok := CategoryOf(prop)
			if !ok {
				continue
			}
			for _, v := range observableValues(prop, s.ComputedStyles[prop], s.ComputedStyles) {
				_, unverified := s.Unverified[prop]
				out[cat] = append(out[cat], Observation{
					Category:   cat,
					Property:   prop,
					Value:      v,
					SampleID:   s.ID,
					State:      StateDefault,
					Unverified: unverified,
				})
			}
		}
	}

	orderedDiffs := make([]StateDiff, len(diffs))
	copy(orderedDiffs, diffs)
	sort.SliceStable(orderedDiffs, func(i, j int) bool {
		if orderedDiffs[i].SampleID != orderedDiffs[j].SampleID {
			return orderedDiffs[i].SampleID < orderedDiffs[j].SampleID
		}
		return stateIndex(orderedDiffs[i].State) < stateIndex(orderedDiffs[j].State)
	})

	for _, d := range orderedDiffs {
		sample := byID[d.SampleID]
		props := make([]string, 0, len(d.Changed))
		for p := range d.Changed {
			props = append(props, p)
		}
		sort.Strings(props)
		for _, prop := range props {
			cat, ok := CategoryOf(prop)
			if !ok {
				continue
			}
			for _, v := range observableValues(prop, d.Changed[prop][1], sample.ComputedStyles) {
				out[cat] = append(out[cat], Observation{
					Category: cat,
					Property: prop,
					Value:    v,
					SampleID: d.SampleID,
					State:    d.State,
				})
			}
		}
	}

	return out
}

// observableValues returns the scale-relevant values of one property.
// context is the sample's full computed style, used to drop values that do not render.
func observableValues(prop, raw string, context map[string]string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	lower := strings.ToLower(raw)

	switch prop {
	case "color", "background-color", "border-color", "outline-color":
		if prop == "border-color" && !hasVisibleBorder(context) {
			return nil
		}
		if prop == "outline-color" && strings.EqualFold(context["outline-style"], "none") {
			return nil
		}
		c, ok := ParseColor(raw)
		if !ok || c.Alpha == 0 {
			return nil
		}
		return []string{raw}

	case "font-family":
		if f := FirstFamily(raw); f != "" {
			return []string{f}
		}
		return nil

	case "line-height", "letter-spacing":
		if lower == "normal" {
			return nil
		}
		if v, ok := ParseLength(raw); !ok || v == 0 {
			return nil
		}
		return []string{raw}

	case "opacity":
		if v, ok := ParseNumber(raw); !ok || v >= 1 {
			return nil
		}
		return []string{raw}

	case "z-index":
		if lower == "auto" {
			return nil
		}
		return []string{raw}

	case "box-shadow":
		if lower == "none" {
			return nil
		}
		return []string{raw}

	case "outline-width":
		if strings.EqualFold(context["outline-style"], "none") {
			return nil
		}
		return positiveLengths(raw)

	case "transition-duration", "animation-duration":
		var out []string
		for _, part := range splitTopLevel(raw) {
			if ms, ok := ParseDuration(part); ok && ms > 0 {
				out = append(out, part)
			}
		}
		return out

	case "transition-timing-function":
		if !hasMotion(context) {
			return nil
		}
		return splitTopLevel(raw)
	}

	if cat, ok := CategoryOf(prop); ok && KindOf(cat) == KindLength {
		return positiveLengths(raw)
	}
	return []string{raw}
}

func positiveLengths(raw string) []string {
	if v, ok := ParseLength(raw); ok && v > 0 {
		return []string{raw}
	}
	return nil
}

func hasVisibleBorder(styles map[string]string) bool {
	style := strings.ToLower(styles["border-style"])
	if style == "" || strings.HasPrefix(style, "none") || strings.HasPrefix(style, "hidden") {
		return false
	}
	w, ok := ParseLength(strings.Fields(styles["border-width"] + " 0")[0])
	return ok && w > 0
}

func hasMotion(styles map[string]string) bool {
	for _, part := range splitTopLevel(styles["transition-duration"]) {
		if ms, ok := ParseDuration(part); ok && ms > 0 {
			return true
		}
	}
	return false
}

func sortedStyleKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
