package tokens

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

// Rule is one style rule with its declarations
type Rule struct {
	Selector     string
	Source       string
	Media        string
	Declarations map[string]string
	Order        int
}

// VarDef is one custom-property definition
type VarDef struct {
	Name     string
	Value    string
	Selector string
	Source   string
	Order    int
}

// FontFace is a parsed @font-face block
type FontFace struct {
	Family string   `json:"family"`
	Src    []string `json:"src"` // url() targets in declaration order
	Weight string   `json:"weight,omitempty"`
	Style  string   `json:"style,omitempty"`
	Source string   `json:"source,omitempty"`
}

// StyleIndex is the parsed view of every stylesheet on a page
type StyleIndex struct {
	Rules     []Rule
	Vars      map[string][]VarDef
	FontFaces []FontFace
	Warnings  []string

	// ReducedMotion lists the sheets that query prefers-reduced-motion
	ReducedMotion []string
}

// parserState maintains context while parsing one stylesheet
type parserState struct {
	source  string
	atRules []string
	media   []string
	rule    *Rule
	face    *FontFace
	order   int
}

var urlRe = regexp.MustCompile(`url\(\s*['"]?([^'")]+)['"]?\s*\)`)

// BuildStyleIndex parses every stylesheet in document order
func BuildStyleIndex(sheets []Stylesheet) *StyleIndex {
	index := &StyleIndex{Vars: make(map[string][]VarDef)}
	order := 0
	for i, sheet := range sheets {
		source := sheet.URL
		if source == "" {
			source = "inline#" + strconv.Itoa(i+1)
		}
		order = index.parse(source, sheet.Text, order)
		// queries the grammar walk cannot see, e.g. @import ... (prefers-reduced-motion)
		if strings.Contains(sheet.Text, reducedMotionQuery) {
			index.noteReducedMotion(source)
		}
	}

	for name := range index.Vars {
		defs := index.Vars[name]
		sort.SliceStable(defs, func(i, j int) bool {
			ri, rj := rootRank(defs[i].Selector), rootRank(defs[j].Selector)
			if ri != rj {
				return ri < rj
			}
			return defs[i].Order < defs[j].Order
		})
	}
	return index
}

// parse walks one stylesheet with the tdewolff grammar parser
func (ix *StyleIndex) parse(source, content string, order int) int {
	state := &parserState{source: source, order: order}
	p := css.NewParser(parse.NewInputString(content), false)

	for {
		gt, _, data := p.Next()
		switch gt {
		case css.ErrorGrammar:
			if !p.HasParseError() {
				// EOF or read error
				return state.order
			}
			ix.Warnings = append(ix.Warnings, source+": "+p.Err().Error())

		case css.BeginAtRuleGrammar:
			name := string(data)
			state.atRules = append(state.atRules, name)
			if name == "@media" {
				query := tokensString(p.Values())
				state.media = append(state.media, query)
				if strings.Contains(query, reducedMotionQuery) {
					ix.noteReducedMotion(source)
				}
			}
			if name == "@font-face" {
				state.face = &FontFace{Source: source}
			}

		case css.EndAtRuleGrammar:
			if n := len(state.atRules); n > 0 {
				name := state.atRules[n-1]
				state.atRules = state.atRules[:n-1]
				if name == "@media" && len(state.media) > 0 {
					state.media = state.media[:len(state.media)-1]
				}
				if name == "@font-face" && state.face != nil {
					if state.face.Family != "" {
						ix.FontFaces = append(ix.FontFaces, *state.face)
					}
					state.face = nil
				}
			}

		case css.BeginRulesetGrammar:
			if state.inKeyframes() {
				continue
			}
			state.order++
			state.rule = &Rule{
				Selector:     collapseSpace(tokensString(p.Values())),
				Source:       source,
				Media:        strings.Join(state.media, " and "),
				Declarations: make(map[string]string),
				Order:        state.order,
			}

		case css.EndRulesetGrammar:
			if state.rule != nil {
				ix.Rules = append(ix.Rules, *state.rule)
				state.rule = nil
			}

		case css.DeclarationGrammar:
			prop := strings.ToLower(string(data))
			value := cleanValue(tokensString(p.Values()))
			switch {
			case state.face != nil && state.rule == nil:
				state.face.set(prop, value)
			case state.rule != nil:
				state.rule.Declarations[prop] = value
			}

		case css.CustomPropertyGrammar:
			if state.rule == nil {
				continue
			}
			name := string(data)
			value := cleanValue(tokensString(p.Values()))
			state.rule.Declarations[name] = value
			ix.Vars[name] = append(ix.Vars[name], VarDef{
				Name:     name,
				Value:    value,
				Selector: state.rule.Selector,
				Source:   source,
				Order:    state.rule.Order,
			})
		}
	}
}

const reducedMotionQuery = "prefers-reduced-motion"

func (ix *StyleIndex) noteReducedMotion(source string) {
	for _, s := range ix.ReducedMotion {
		if s == source {
			return
		}
	}
	ix.ReducedMotion = append(ix.ReducedMotion, source)
}

func (s *parserState) inKeyframes() bool {
	for _, at := range s.atRules {
		if strings.HasSuffix(at, "keyframes") {
			return true
		}
	}
	return false
}

func (f *FontFace) set(prop, value string) {
	switch prop {
	case "font-family":
		f.Family = strings.Trim(value, `"' `)
	case "src":
		for _, m := range urlRe.FindAllStringSubmatch(value, -1) {
			f.Src = append(f.Src, m[1])
		}
	case "font-weight":
		f.Weight = value
	case "font-style":
		f.Style = value
	}
}

// tokensString concatenates token data, preserving whitespace tokens
func tokensString(tokens []css.Token) string {
	var sb strings.Builder
	for _, t := range tokens {
		sb.Write(t.Data)
	}
	return sb.String()
}

func cleanValue(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimSuffix(v, "!important")
	return strings.TrimSpace(v)
}

// rootRank prefers document-level definitions when resolving variables
func rootRank(selector string) int {
	for _, part := range strings.Split(selector, ",") {
		switch strings.TrimSpace(part) {
		case ":root", "html", ":host":
			return 0
		}
	}
	return 1
}

// FacesFor returns the @font-face blocks declaring family (case-insensitive)
func (ix *StyleIndex) FacesFor(family string) []FontFace {
	var out []FontFace
	for _, f := range ix.FontFaces {
		if strings.EqualFold(f.Family, family) {
			out = append(out, f)
		}
	}
	return out
}
