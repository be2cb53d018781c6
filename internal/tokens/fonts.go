package tokens

import (
	"path"
	"sort"
	"strings"
)

// Font verdict labels
const (
	FontLabelVerified   = "VERIFIED"
	FontLabelUnverified = "UNVERIFIED FONT"
	FontLabelSystem     = "SYSTEM FONT"
)

// systemFonts never produce network requests
var systemFonts = map[string]bool{
	"-apple-system":      true,
	"blinkmacsystemfont": true,
	"segoe ui":           true,
	"roboto":             true,
	"helvetica":          true,
	"helvetica neue":     true,
	"arial":              true,
	"noto sans":          true,
	"sans-serif":         true,
	"serif":              true,
	"monospace":          true,
	"ui-sans-serif":      true,
	"ui-serif":           true,
	"ui-monospace":       true,
	"system-ui":          true,
}

// IsSystemFont reports families resolved locally by the browser
func IsSystemFont(family string) bool {
	return systemFonts[strings.ToLower(strings.TrimSpace(family))]
}

// FontEvidence is the font-related evidence of a run
type FontEvidence struct {
	Faces     []FontFace
	Responses []FontResponse
	Probes    []string // computed font-family stacks of sampled elements
}

// FontVerdict is the verification outcome for one family
type FontVerdict struct {
	Family       string     `json:"family"`
	Label        string     `json:"label"`
	Confidence   Confidence `json:"confidence"`
	Face         bool       `json:"font_face"`
	Network      []string   `json:"network,omitempty"` // matching font response URLs
	Probed       bool       `json:"probed"`
	Reason       string     `json:"reason,omitempty"`
	WouldConfirm string     `json:"would_confirm,omitempty"`
}

// Err returns a *FontUnverified for verdicts that are not verified
func (v FontVerdict) Err() error {
	if v.Label != FontLabelUnverified {
		return nil
	}
	return &FontUnverified{Family: v.Family, Reason: v.Reason}
}

// VerifyFonts checks every family seen in @font-face blocks or computed
// probes. A family is verified only when a network response, an @font-face
// declaration and a computed probe all agree.
func VerifyFonts(ev FontEvidence) []FontVerdict {
	families := make(map[string]string) // lower -> display name
	probed := make(map[string]bool)
	for _, stack := range ev.Probes {
		first := FirstFamily(stack)
		if first == "" {
			continue
		}
		key := strings.ToLower(first)
		probed[key] = true
		if _, ok := families[key]; !ok {
			families[key] = first
		}
	}
	faces := make(map[string][]FontFace)
	for _, f := range ev.Faces {
		key := strings.ToLower(f.Family)
		faces[key] = append(faces[key], f)
		if _, ok := families[key]; !ok {
			families[key] = f.Family
		}
	}

	keys := make([]string, 0, len(families))
	for k := range families {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []FontVerdict
	for _, key := range keys {
		name := families[key]
		if IsSystemFont(name) {
			out = append(out, FontVerdict{
				Family:       name,
				Label:        FontLabelSystem,
				Confidence:   Assumption,
				Probed:       probed[key],
				Reason:       "system font stack; rendered glyphs depend on the visitor's platform",
				WouldConfirm: "per-platform screenshots of text rendered with " + name,
			})
			continue
		}

		v := FontVerdict{Family: name, Face: len(faces[key]) > 0, Probed: probed[key]}
		v.Network = matchFontResponses(name, faces[key], ev.Responses)

		var missing []string
		if len(v.Network) == 0 {
			missing = append(missing, "no network font request matched \""+name+"\"")
		}
		if !v.Face {
			missing = append(missing, "no @font-face declares \""+name+"\"")
		}
		if !v.Probed {
			missing = append(missing, "no sampled element renders with \""+name+"\" first")
		}

		if len(missing) == 0 {
			v.Label = FontLabelVerified
			v.Confidence = Verified
		} else {
			v.Label = FontLabelUnverified
			v.Confidence = Unverified
			v.Reason = strings.Join(missing, "; ")
			v.WouldConfirm = "a font response for " + name + " alongside its @font-face src and a computed probe"
		}
		out = append(out, v)
	}
	return out
}

// matchFontResponses matches successful font responses by @font-face src
// basename or by the family slug appearing in the URL
func matchFontResponses(family string, faces []FontFace, responses []FontResponse) []string {
	basenames := make(map[string]bool)
	for _, f := range faces {
		for _, src := range f.Src {
			basenames[strings.ToLower(basename(src))] = true
		}
	}
	slug := strings.ToLower(strings.ReplaceAll(family, " ", ""))
	dashed := strings.ToLower(strings.ReplaceAll(family, " ", "-"))
	plus := strings.ToLower(strings.ReplaceAll(family, " ", "+"))

	seen := make(map[string]bool)
	var out []string
	for _, r := range responses {
		if r.Status >= 400 {
			continue
		}
		u := strings.ToLower(r.URL)
		match := basenames[basename(u)] ||
			strings.Contains(u, slug) || strings.Contains(u, dashed) || strings.Contains(u, plus)
		if match && !seen[r.URL] {
			seen[r.URL] = true
			out = append(out, r.URL)
		}
	}
	sort.Strings(out)
	return out
}

func basename(u string) string {
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	return path.Base(u)
}
