package tokens

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// TokenInput is the immutable snapshot the token builders read
type TokenInput struct {
	Clusters     []Cluster
	Observations map[Category][]Observation
	Samples      []Sample
	Roles        []RoleResult
	MinEvidence  int
}

// componentSlot maps a component property slot to the computed property it reads
type componentSlot struct {
	slot     string
	property string
	state    StateName
	roles    []string // semantic role prefixes the slot may reference
}

var componentSlots = []componentSlot{
	{"background", "background-color", StateDefault, []string{"bg.", "interactive."}},
	{"text", "color", StateDefault, []string{"text."}},
	{"border", "border-color", StateDefault, []string{"border."}},
	{"radius", "border-radius", StateDefault, nil},
	{"padding-x", "padding-left", StateDefault, nil},
	{"padding-y", "padding-top", StateDefault, nil},
	{"font-size", "font-size", StateDefault, nil},
	{"font-weight", "font-weight", StateDefault, nil},
	{"hover.background", "background-color", StateHover, []string{"interactive."}},
	{"hover.text", "color", StateHover, []string{"interactive."}},
	{"focus.outline", "outline-color", StateFocusVisible, []string{"focus."}},
}

// ComponentTypes are the component types that receive component tokens, in emission order
var ComponentTypes = []string{"button", "input", "card", "chip", "nav_link", "navbar"}

type centerKey struct {
	category Category
	index    int
}

// tokenBuilder carries the lookups shared by the three tiers
type tokenBuilder struct {
	in         TokenInput
	clusters   map[Category]Cluster
	primitives map[centerKey]Token
	semantics  map[centerKey][]Token
	sampleType map[string]string
}

// BuildTokens builds the three token tiers. Primitives come straight from
// cluster centers; semantic tokens from role results; component tokens from
// the modal slot value of each component type.
func BuildTokens(in TokenInput) TokenSet {
	if in.MinEvidence <= 0 {
		in.MinEvidence = 2
	}
	b := &tokenBuilder{
		in:         in,
		clusters:   make(map[Category]Cluster),
		primitives: make(map[centerKey]Token),
		semantics:  make(map[centerKey][]Token),
		sampleType: make(map[string]string),
	}
	for _, c := range in.Clusters {
		b.clusters[c.Category] = c
	}
	for _, s := range in.Samples {
		b.sampleType[s.ID] = s.ComponentType
	}

	var set TokenSet
	set.Primitive = b.buildPrimitives()
	set.Semantic = b.buildSemantic()
	set.Component = b.buildComponents()
	return set
}

func (b *tokenBuilder) buildPrimitives() []Token {
	var out []Token
	for _, c := range b.in.Clusters {
		neutral, accent := 0, 0
		for i, center := range c.Centers {
			var id string
			if c.Category == CategoryColor {
				if col, ok := ParseColor(center.Value); ok && col.IsNeutral() {
					neutral++
					id = "color.neutral." + strconv.Itoa(neutral)
				} else {
					accent++
					id = "color.accent." + strconv.Itoa(accent)
				}
			} else {
				id = string(c.Category) + "." + strconv.Itoa(i+1)
			}

			t := Token{
				Tier:       TierPrimitive,
				ID:         id,
				Category:   c.Category,
				ValueRef:   id,
				Value:      center.Value,
				Evidence:   append([]string(nil), center.SampleIDs...),
				Confidence: Verified,
			}
			if center.Unverified {
				t.Confidence = Unverified
				t.Reason = "every contributing value comes from an unresolved var() chain"
				t.WouldConfirm = "the stylesheet defining the referenced custom properties"
			}
			b.primitives[centerKey{c.Category, i}] = t
			out = append(out, t)
		}
	}
	return out
}

func (b *tokenBuilder) buildSemantic() []Token {
	var out []Token
	for _, r := range b.in.Roles {
		switch v := r.(type) {
		case Assigned:
			idx, ok := b.clusters[v.Category].CenterFor(v.Center.Value)
			if !ok {
				continue
			}
			prim := b.primitives[centerKey{v.Category, idx}]
			t := Token{
				Tier:       TierSemantic,
				ID:         v.Role,
				Category:   v.Category,
				ValueRef:   prim.ID,
				Value:      prim.Value,
				Evidence:   append([]string(nil), v.Support...),
				Confidence: Verified,
			}
			if prim.Confidence != Verified {
				t.Confidence = prim.Confidence
				t.Reason = "backing primitive " + prim.ID + " is " + string(prim.Confidence) + ": " + prim.Reason
				t.WouldConfirm = prim.WouldConfirm
			}
			key := centerKey{v.Category, idx}
			b.semantics[key] = append(b.semantics[key], t)
			out = append(out, t)

		case Uncertain:
			if v.Candidate == nil {
				continue
			}
			idx, ok := b.clusters[v.Category].CenterFor(v.Candidate.Value)
			if !ok {
				continue
			}
			key := centerKey{v.Category, idx}
			prim := b.primitives[key]
			t := Token{
				Tier:         TierSemantic,
				ID:           v.Role,
				Category:     v.Category,
				ValueRef:     prim.ID,
				Value:        prim.Value,
				Evidence:     append([]string(nil), v.Support...),
				Confidence:   Assumption,
				Reason:       v.Reason,
				WouldConfirm: v.WouldConfirm,
			}
			b.semantics[key] = append(b.semantics[key], t)
			out = append(out, t)
		}
	}
	return out
}

func (b *tokenBuilder) buildComponents() []Token {
	var out []Token
	for _, ct := range ComponentTypes {
		for _, slot := range componentSlots {
			if t, ok := b.componentToken(ct, slot); ok {
				out = append(out, t)
			}
		}
	}
	return out
}

func (b *tokenBuilder) componentToken(componentType string, slot componentSlot) (Token, bool) {
	cat, ok := CategoryOf(slot.property)
	if !ok {
		return Token{}, false
	}
	cluster, ok := b.clusters[cat]
	if !ok {
		return Token{}, false
	}

	// modal value across samples of this component type
	counts := make(map[string]map[string]struct{})
	for _, o := range b.in.Observations[cat] {
		if o.Property != slot.property || o.State != slot.state || b.sampleType[o.SampleID] != componentType {
			continue
		}
		norm, _, ok := NormalizeValue(cluster.Policy.Kind, o.Value)
		if !ok {
			norm = collapseSpace(o.Value)
		}
		if counts[norm] == nil {
			counts[norm] = make(map[string]struct{})
		}
		counts[norm][o.SampleID] = struct{}{}
	}
	if len(counts) == 0 {
		return Token{}, false
	}
	values := make([]string, 0, len(counts))
	for v := range counts {
		values = append(values, v)
	}
	sort.Slice(values, func(i, j int) bool {
		if len(counts[values[i]]) != len(counts[values[j]]) {
			return len(counts[values[i]]) > len(counts[values[j]])
		}
		return values[i] < values[j]
	})
	value := values[0]
	support := sortedKeys(counts[value])

	t := Token{
		Tier:       TierComponent,
		ID:         componentType + "." + slot.slot,
		Category:   cat,
		Value:      value,
		Evidence:   support,
		Confidence: Verified,
	}

	idx, inScale := cluster.CenterFor(value)
	if !inScale {
		t.Confidence = Assumption
		t.Reason = fmt.Sprintf("%s is an outlier of the %s scale", value, cat)
		t.WouldConfirm = fmt.Sprintf("more %s samples using %s, or a stylesheet rule declaring it", componentType, value)
		return t, true
	}

	key := centerKey{cat, idx}
	ref := b.primitives[key]
	if sem, ok := b.semanticFor(key, slot.roles); ok {
		ref = sem
	}
	t.ValueRef = ref.ID
	t.Value = ref.Value

	switch {
	case ref.Confidence != Verified:
		t.Confidence = ref.Confidence
		t.Reason = "references " + ref.ID + " which is " + string(ref.Confidence)
		t.WouldConfirm = ref.WouldConfirm
	case len(support) < b.in.MinEvidence:
		t.Confidence = Assumption
		t.Reason = fmt.Sprintf("only %d %s sample(s) show %s", len(support), componentType, slot.slot)
		t.WouldConfirm = fmt.Sprintf("at least %d %s samples sharing %s %s", b.in.MinEvidence, componentType, slot.property, value)
	}
	return t, true
}

// semanticFor returns the first role token on key matching one of prefixes
func (b *tokenBuilder) semanticFor(key centerKey, prefixes []string) (Token, bool) {
	for _, t := range b.semantics[key] {
		for _, p := range prefixes {
			if strings.HasPrefix(t.ID, p) {
				return t, true
			}
		}
	}
	return Token{}, false
}

// ApplyFontVerdicts downgrades font-family primitives whose family failed
// verification. The token is kept; only its label changes.
func ApplyFontVerdicts(set TokenSet, verdicts []FontVerdict) TokenSet {
	byFamily := make(map[string]FontVerdict, len(verdicts))
	for _, v := range verdicts {
		byFamily[strings.ToLower(v.Family)] = v
	}

	apply := func(tokens []Token) []Token {
		out := make([]Token, len(tokens))
		for i, t := range tokens {
			out[i] = t
			if t.Category != CategoryFontFamily || t.Confidence != Verified {
				continue
			}
			v, ok := byFamily[strings.ToLower(t.Value)]
			if !ok || v.Confidence == Verified {
				continue
			}
			out[i].Confidence = v.Confidence
			out[i].Reason = v.Label + ": " + v.Reason
			out[i].WouldConfirm = v.WouldConfirm
		}
		return out
	}

	return TokenSet{
		Primitive: apply(set.Primitive),
		Semantic:  apply(set.Semantic),
		Component: apply(set.Component),
	}
}

// Validate checks the labeling invariant of one token
func (t Token) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("token has no id")
	}
	switch t.Confidence {
	case Verified:
	case Assumption, Unverified:
		if strings.TrimSpace(t.Reason) == "" {
			return fmt.Errorf("token %s is %s without a reason", t.ID, t.Confidence)
		}
		if strings.TrimSpace(t.WouldConfirm) == "" {
			return fmt.Errorf("token %s is %s without would-confirm evidence", t.ID, t.Confidence)
		}
	default:
		return fmt.Errorf("token %s has unknown confidence %q", t.ID, t.Confidence)
	}
	return nil
}
