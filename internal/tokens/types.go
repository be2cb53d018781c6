package tokens

import (
	"context"
	"strings"
)

// BBox is an element bounding box in CSS pixels
type BBox struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// VarLink is one hop of a resolved custom-property chain
type VarLink struct {
	VarName       string `json:"var_name"`
	ResolvedValue string `json:"resolved_value"`
	SourceRule    string `json:"source_rule"`
}

// Attribution methods
const (
	AttributionRule           = "rule"
	AttributionClassHeuristic = "class-heuristic"
	AttributionAssetHeuristic = "asset-heuristic"
	AttributionNone           = "unattributed"
)

// Attribution records which stylesheet rule or class produced a computed value
type Attribution struct {
	Property string `json:"property"`
	Method   string `json:"method"`             // rule | class-heuristic | asset-heuristic | unattributed
	Selector string `json:"selector,omitempty"` // ".btn-primary"
	Source   string `json:"source,omitempty"`   // stylesheet URL or font asset
	Authored string `json:"authored,omitempty"` // declared value before var() substitution
}

// Candidate is a raw element reported by the evidence collector
type Candidate struct {
	SelectorPath   string                       `json:"selector_path"`
	Tag            string                       `json:"tag,omitempty"`
	Role           string                       `json:"role,omitempty"`
	AriaLabel      string                       `json:"aria_label,omitempty"`
	Text           string                       `json:"text,omitempty"`
	Href           string                       `json:"href,omitempty"`
	InAnchor       bool                         `json:"in_anchor,omitempty"` // element sits inside an <a>
	Classes        []string                     `json:"classes,omitempty"`
	ComponentType  string                       `json:"component_type,omitempty"`
	BBox           BBox                         `json:"bbox"`
	Visible        bool                         `json:"visible"`
	Styles         map[string]string            `json:"styles"`
	CropRef        string                       `json:"crop_ref,omitempty"`
	RecordedStates map[string]map[string]string `json:"recorded_states,omitempty"` // state -> styles, for replay
}

// Navigational reports whether activating the element would follow a link
func (c Candidate) Navigational() bool {
	return strings.EqualFold(c.Tag, "a") ||
		strings.EqualFold(c.Role, "link") ||
		c.InAnchor ||
		c.Href != ""
}

// Sample is a validated, immutable element observation
type Sample struct {
	ID             string            `json:"id"`
	Page           string            `json:"page"`
	Breakpoint     string            `json:"breakpoint"`
	Theme          string            `json:"theme,omitempty"`
	SelectorPath   string            `json:"selector_path"`
	Tag            string            `json:"tag,omitempty"`
	ComponentType  string            `json:"component_type"`
	Role           string            `json:"role,omitempty"`
	AriaLabel      string            `json:"aria_label,omitempty"`
	TextSnippet    string            `json:"text_snippet,omitempty"`
	Classes        []string          `json:"classes,omitempty"`
	Navigational   bool              `json:"navigational,omitempty"`
	BBox           BBox              `json:"bbox"`
	Visible        bool              `json:"visible"`
	ComputedStyles map[string]string `json:"computed_styles"`
	VarChain       []VarLink         `json:"var_chain,omitempty"`
	Attribution    []Attribution     `json:"rule_attribution,omitempty"`
	Unverified     map[string]string `json:"unverified,omitempty"` // property -> reason
	CropRef        string            `json:"crop_ref,omitempty"`
}

// HasRole reports whether the sample carries a semantic role or accessible name
func (s Sample) HasRole() bool {
	return s.Role != "" || s.AriaLabel != ""
}

// StateName is an interaction state in canonical capture order
type StateName string

// Interaction states
const (
	StateDefault      StateName = "default"
	StateHover        StateName = "hover"
	StateFocusVisible StateName = "focus-visible"
	StateActive       StateName = "active"
	StateDisabled     StateName = "disabled"
	StateSelected     StateName = "selected"
	StatePressed      StateName = "pressed"
	StateVisited      StateName = "visited"
	StateLoading      StateName = "loading"
)

// StateCapture is the style snapshot of one sample in one state
type StateCapture struct {
	SampleID string            `json:"sample_id"`
	State    StateName         `json:"state"`
	Styles   map[string]string `json:"styles"`
}

// ValuePair holds (default_value, state_value)
type ValuePair [2]string

// StateDiff lists the properties that changed between default and State
type StateDiff struct {
	SampleID string               `json:"sample_id"`
	State    StateName            `json:"state"`
	Changed  map[string]ValuePair `json:"changed"`
}

// Stylesheet is a raw stylesheet body
type Stylesheet struct {
	URL  string `json:"url"` // empty for inline <style>
	Text string `json:"text"`
}

// FontResponse is a network response for a font resource
type FontResponse struct {
	URL      string `json:"url"`
	Status   int    `json:"status,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
}

// ElementHandle lets the state engine drive one live element.
// Implementations must be safe to call sequentially; the engine never calls
// them concurrently for the same sample.
type ElementHandle interface {
	Styles(ctx context.Context, properties []string) (map[string]string, error)
	// Induce enters state. For extras reported by ObservedExtras the element
	// is already in that state and Induce only has to make it readable.
	Induce(ctx context.Context, state StateName) error
	Reset(ctx context.Context) error
	Navigational() bool
	ObservedExtras(ctx context.Context) ([]StateName, error)
}

// PageEvidence is everything the collector gathered for one target
type PageEvidence struct {
	Page          string                   `json:"page"`
	Breakpoint    string                   `json:"breakpoint"`
	Theme         string                   `json:"theme,omitempty"`
	URL           string                   `json:"url"`
	Candidates    []Candidate              `json:"candidates"`
	Stylesheets   []Stylesheet             `json:"stylesheets,omitempty"`
	FontResponses []FontResponse           `json:"font_responses,omitempty"`
	Handles       map[string]ElementHandle `json:"-"` // keyed by selector path
	Closer        func() error             `json:"-"`
}

// Release closes the underlying page, if any
func (p *PageEvidence) Release() error {
	if p == nil || p.Closer == nil {
		return nil
	}
	err := p.Closer()
	p.Closer = nil
	return err
}

// Confidence labels
type Confidence string

const (
	Verified   Confidence = "VERIFIED"
	Assumption Confidence = "ASSUMPTION"
	Unverified Confidence = "UNVERIFIED"
)

// Tier is a token tier
type Tier string

const (
	TierPrimitive Tier = "primitive"
	TierSemantic  Tier = "semantic"
	TierComponent Tier = "component"
)

// Token is a named, evidence-backed design value
type Token struct {
	Tier         Tier       `json:"tier"`
	ID           string     `json:"id"`
	Category     Category   `json:"category"`
	ValueRef     string     `json:"value_ref"`
	Value        string     `json:"value"`
	Evidence     []string   `json:"evidence"`
	Confidence   Confidence `json:"confidence"`
	Reason       string     `json:"reason,omitempty"`
	WouldConfirm string     `json:"would_confirm,omitempty"`
}

// TokenSet groups tokens by tier
type TokenSet struct {
	Primitive []Token `json:"primitive"`
	Semantic  []Token `json:"semantic"`
	Component []Token `json:"component"`
}

// All returns every token, primitives first
func (s TokenSet) All() []Token {
	all := make([]Token, 0, len(s.Primitive)+len(s.Semantic)+len(s.Component))
	all = append(all, s.Primitive...)
	all = append(all, s.Semantic...)
	all = append(all, s.Component...)
	return all
}

// Len returns the total number of tokens
func (s TokenSet) Len() int {
	return len(s.Primitive) + len(s.Semantic) + len(s.Component)
}
