package tokens

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// DefaultMaxVarDepth bounds custom-property chain traversal
const DefaultMaxVarDepth = 8

// VarResult is either Resolved or Unresolved
type VarResult interface {
	isVarResult()
}

// Resolved is a fully substituted value with the chain that produced it
type Resolved struct {
	Value string
	Chain []VarLink
}

// Unresolved carries the reason a chain could not be followed
type Unresolved struct {
	Reason string
	Chain  []VarLink
}

func (Resolved) isVarResult()   {}
func (Unresolved) isVarResult() {}

// Resolution is everything the resolver attaches to a sample
type Resolution struct {
	VarChain    []VarLink
	Attribution []Attribution
	Unverified  map[string]string
	Issues      []error
}

// Apply returns a copy of s carrying the resolution
func (r Resolution) Apply(s Sample) Sample {
	s.VarChain = r.VarChain
	s.Attribution = r.Attribution
	if len(r.Unverified) > 0 {
		s.Unverified = r.Unverified
	}
	return s
}

// Resolver resolves variable chains and attributes values to rules
type Resolver struct {
	index    *StyleIndex
	maxDepth int
}

// NewResolver creates a resolver over index; maxDepth <= 0 selects the default
func NewResolver(index *StyleIndex, maxDepth int) *Resolver {
	if index == nil {
		index = &StyleIndex{Vars: map[string][]VarDef{}}
	}
	if maxDepth <= 0 {
		maxDepth = DefaultMaxVarDepth
	}
	return &Resolver{index: index, maxDepth: maxDepth}
}

// ResolveVar resolves var(--name)
func (r *Resolver) ResolveVar(name string) VarResult {
	return r.ResolveValue("var(" + name + ")")
}

// ResolveValue substitutes every var() in value. Traversal depth is bounded
// by the resolver's ceiling; cycles and undefined names yield Unresolved.
func (r *Resolver) ResolveValue(value string) VarResult {
	v, chain, reason := r.substitute(value, 0, nil)
	if reason != "" {
		return Unresolved{Reason: reason, Chain: chain}
	}
	return Resolved{Value: collapseSpace(v), Chain: chain}
}

func (r *Resolver) substitute(value string, depth int, path []string) (string, []VarLink, string) {
	var chain []VarLink
	for {
		start := strings.Index(value, "var(")
		if start < 0 {
			return value, chain, ""
		}
		end := matchParen(value, start+3)
		if end < 0 {
			return "", chain, "malformed var() in " + value
		}

		name, fallback, hasFallback := splitVarArgs(value[start+4 : end])
		resolved, links, reason := r.lookup(name, fallback, hasFallback, depth, path)
		chain = append(chain, links...)
		if reason != "" {
			return "", chain, reason
		}
		value = value[:start] + resolved + value[end+1:]
	}
}

const cycleReason = "cycle: "

func (r *Resolver) lookup(name, fallback string, hasFallback bool, depth int, path []string) (string, []VarLink, string) {
	for _, p := range path {
		if p == name {
			return "", nil, cycleReason + strings.Join(append(append([]string(nil), path...), name), " -> ")
		}
	}
	if depth >= r.maxDepth {
		return "", nil, fmt.Sprintf("depth ceiling %d exceeded at %s", r.maxDepth, name)
	}

	defs := r.index.Vars[name]
	if len(defs) == 0 {
		if hasFallback {
			return r.substitute(fallback, depth+1, path)
		}
		return "", nil, "undefined variable " + name
	}

	def := defs[0]
	next := append(append([]string(nil), path...), name)
	v, links, reason := r.substitute(def.Value, depth+1, next)
	if reason != "" {
		// cycles and the depth ceiling are never masked by a fallback
		if hasFallback && !isStructural(reason) {
			return r.substitute(fallback, depth+1, path)
		}
		return "", links, reason
	}

	link := VarLink{
		VarName:       name,
		ResolvedValue: collapseSpace(v),
		SourceRule:    def.Selector + " @ " + def.Source,
	}
	return v, append([]VarLink{link}, links...), ""
}

func isStructural(reason string) bool {
	return strings.HasPrefix(reason, cycleReason) || strings.HasPrefix(reason, "depth ceiling")
}

// matchParen returns the index of the parenthesis closing the one at open
func matchParen(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func splitVarArgs(args string) (name, fallback string, hasFallback bool) {
	depth := 0
	for i, ch := range args {
		switch ch {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				return strings.TrimSpace(args[:i]), strings.TrimSpace(args[i+1:]), true
			}
		}
	}
	return strings.TrimSpace(args), "", false
}

// Resolve attributes every clustered property of s and follows var() chains
// found in the attributed declarations.
func (r *Resolver) Resolve(s Sample) Resolution {
	res := Resolution{}
	seenVar := make(map[string]bool)

	for _, prop := range sortedStyleKeys(s.ComputedStyles) {
		if _, ok := CategoryOf(prop); !ok {
			continue
		}

		rule, authored := r.matchRule(s, prop)
		if rule == nil {
			res.Attribution = append(res.Attribution, r.heuristic(s, prop))
			continue
		}

		res.Attribution = append(res.Attribution, Attribution{
			Property: prop,
			Method:   AttributionRule,
			Selector: rule.Selector,
			Source:   rule.Source,
			Authored: authored,
		})
		if !strings.Contains(authored, "var(") {
			continue
		}

		switch v := r.ResolveValue(authored).(type) {
		case Resolved:
			for _, link := range v.Chain {
				if !seenVar[link.VarName] {
					seenVar[link.VarName] = true
					res.VarChain = append(res.VarChain, link)
				}
			}
		case Unresolved:
			if res.Unverified == nil {
				res.Unverified = make(map[string]string)
			}
			res.Unverified[prop] = v.Reason
			res.Issues = append(res.Issues, &UnresolvedStyleReference{SampleID: s.ID, Property: prop, Reason: v.Reason})
		}
	}

	return res
}

// matchRule returns the last rule in cascade order whose selector matches s
// and declares prop (or a shorthand of it). Unconditional rules win over
// @media rules since the viewport query is not evaluated here.
func (r *Resolver) matchRule(s Sample, prop string) (*Rule, string) {
	names := append([]string{prop}, propertyShorthands[prop]...)

	var conditional, plain *Rule
	var conditionalVal, plainVal string
	for i := range r.index.Rules {
		rule := &r.index.Rules[i]
		val, ok := "", false
		for _, n := range names {
			if v, has := rule.Declarations[n]; has {
				val, ok = v, true
				break
			}
		}
		if !ok || !selectorMatches(rule.Selector, s) {
			continue
		}
		if rule.Media == "" {
			plain, plainVal = rule, val
		} else {
			conditional, conditionalVal = rule, val
		}
	}
	if plain != nil {
		return plain, plainVal
	}
	return conditional, conditionalVal
}

var (
	combinatorRe = regexp.MustCompile(`\s*[>+~]\s*|\s+`)
	compoundRe   = regexp.MustCompile(`^([a-zA-Z][\w-]*|\*)?((?:\.[\w-]+)*)$`)
)

// selectorMatches is a conservative matcher: only the rightmost compound is
// checked, and compounds with ids, attributes or pseudo-classes never match.
func selectorMatches(selectorList string, s Sample) bool {
	classes := make(map[string]bool, len(s.Classes))
	for _, c := range s.Classes {
		classes[c] = true
	}

	for _, sel := range strings.Split(selectorList, ",") {
		parts := combinatorRe.Split(strings.TrimSpace(sel), -1)
		compound := parts[len(parts)-1]
		m := compoundRe.FindStringSubmatch(compound)
		if m == nil {
			continue
		}
		tag, classPart := m[1], m[2]
		if tag == "" && classPart == "" || tag == "*" && classPart == "" {
			continue
		}
		if tag != "" && tag != "*" && !strings.EqualFold(tag, s.Tag) {
			continue
		}
		matched := true
		for _, c := range strings.Split(strings.TrimPrefix(classPart, "."), ".") {
			if c != "" && !classes[c] {
				matched = false
				break
			}
		}
		if matched {
			return true
		}
	}
	return false
}

// propertyHints are class-name fragments that suggest which class sets a property
var propertyHints = map[string][]string{
	"color":            {"text-", "fg-", "color"},
	"background-color": {"bg-", "background", "surface"},
	"border-color":     {"border"},
	"outline-color":    {"outline", "ring"},
	"border-radius":    {"rounded", "radius"},
	"box-shadow":       {"shadow", "elevation"},
	"font-size":        {"text-", "size", "heading", "title"},
	"font-weight":      {"font-", "bold", "semibold", "medium"},
	"font-family":      {"font-"},
	"line-height":      {"leading", "line"},
	"letter-spacing":   {"tracking"},
	"opacity":          {"opacity"},
	"z-index":          {"z-"},
}

var categoryHints = map[Category][]string{
	CategorySpacing:     {"p-", "px-", "py-", "pt-", "pb-", "pl-", "pr-", "m-", "mt-", "mb-", "gap", "space-"},
	CategoryBorderWidth: {"border"},
	CategoryDuration:    {"duration", "transition", "animate"},
	CategoryEasing:      {"ease", "transition"},
}

func (r *Resolver) heuristic(s Sample, prop string) Attribution {
	hints := propertyHints[prop]
	if hints == nil {
		if cat, ok := CategoryOf(prop); ok {
			hints = categoryHints[cat]
		}
	}

	classes := append([]string(nil), s.Classes...)
	sort.Strings(classes)
	for _, class := range classes {
		lower := strings.ToLower(class)
		for _, h := range hints {
			if strings.Contains(lower, h) {
				return Attribution{Property: prop, Method: AttributionClassHeuristic, Selector: "." + class}
			}
		}
	}

	if prop == "font-family" {
		if faces := r.index.FacesFor(FirstFamily(s.ComputedStyles[prop])); len(faces) > 0 && len(faces[0].Src) > 0 {
			return Attribution{Property: prop, Method: AttributionAssetHeuristic, Source: faces[0].Src[0]}
		}
	}

	return Attribution{Property: prop, Method: AttributionNone}
}
