package tokensmith

import (
	"encoding/json"
	"io"
	"time"

	"github.com/yacobolo/tokensmith/internal/tokens"
)

// Artifact file names written next to the emitted token files
const (
	SamplesFile = "samples.json"
	ResultsFile = "results.json"
)

// SamplesOutput is the samples.json schema
type SamplesOutput struct {
	RunID         string                 `json:"run_id"`
	GeneratedAt   string                 `json:"generated_at"`
	Samples       []tokens.Sample        `json:"samples"`
	Captures      []tokens.StateCapture  `json:"captures"`
	Diffs         []tokens.StateDiff     `json:"diffs"`
	MissingStates []tokens.MissingState  `json:"missing_states"`
	Evidence      []tokens.EvidenceEntry `json:"evidence"`
}

// ResultsOutput is the results.json schema
type ResultsOutput struct {
	RunID       string               `json:"run_id"`
	GeneratedAt string               `json:"generated_at"`
	Strategy    tokens.Strategy      `json:"strategy"`
	Targets     int                  `json:"targets"`
	Collected   int                  `json:"collected"`
	Clusters    []tokens.Cluster     `json:"clusters"`
	Roles       []JSONRole           `json:"roles"`
	Tokens      tokens.TokenSet      `json:"tokens"`
	Fonts       []tokens.FontVerdict `json:"fonts"`
	Rules       tokens.Rules         `json:"rules"`
	Artifacts   []tokens.Artifact    `json:"artifacts"`
	Trace       []tokens.TraceEntry  `json:"trace"`
	Limits      []tokens.Limit       `json:"limits"`
}

// JSONRole flattens an Assigned or Uncertain role result
type JSONRole struct {
	Role         string   `json:"role"`
	Status       string   `json:"status"` // assigned | uncertain
	Value        string   `json:"value,omitempty"`
	Rule         string   `json:"rule"`
	Support      []string `json:"support,omitempty"`
	Reason       string   `json:"reason,omitempty"`
	WouldConfirm string   `json:"would_confirm,omitempty"`
}

// WriteSamplesJSON writes samples.json
func WriteSamplesJSON(w io.Writer, res *Result) error {
	return encodeJSON(w, buildSamplesOutput(res))
}

// WriteResultsJSON writes results.json
func WriteResultsJSON(w io.Writer, res *Result) error {
	return encodeJSON(w, buildResultsOutput(res))
}

func encodeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func buildSamplesOutput(res *Result) SamplesOutput {
	return SamplesOutput{
		RunID:         res.RunID,
		GeneratedAt:   res.GeneratedAt.Format(time.RFC3339),
		Samples:       nonNil(res.Samples),
		Captures:      nonNil(res.Captures),
		Diffs:         nonNil(res.Diffs),
		MissingStates: nonNil(res.Missing),
		Evidence:      nonNil(res.Journal.Evidence),
	}
}

func buildResultsOutput(res *Result) ResultsOutput {
	return ResultsOutput{
		RunID:       res.RunID,
		GeneratedAt: res.GeneratedAt.Format(time.RFC3339),
		Strategy:    res.Emission.Strategy,
		Targets:     res.Targets,
		Collected:   res.Collected,
		Clusters:    nonNil(res.Clusters),
		Roles:       jsonRoles(res.Roles),
		Tokens: tokens.TokenSet{
			Primitive: nonNil(res.Tokens.Primitive),
			Semantic:  nonNil(res.Tokens.Semantic),
			Component: nonNil(res.Tokens.Component),
		},
		Fonts:     nonNil(res.Fonts),
		Rules:     res.Rules,
		Artifacts: nonNil(res.Emission.Artifacts),
		Trace:     nonNil(res.Journal.Trace),
		Limits:    nonNil(res.Journal.Limits),
	}
}

func jsonRoles(roles []tokens.RoleResult) []JSONRole {
	out := make([]JSONRole, 0, len(roles))
	for _, r := range roles {
		switch v := r.(type) {
		case tokens.Assigned:
			out = append(out, JSONRole{Role: v.Role, Status: "assigned", Value: v.Center.Value, Rule: v.Rule, Support: v.Support})
		case tokens.Uncertain:
			jr := JSONRole{Role: v.Role, Status: "uncertain", Rule: v.Rule, Support: v.Support, Reason: v.Reason, WouldConfirm: v.WouldConfirm}
			if v.Candidate != nil {
				jr.Value = v.Candidate.Value
			}
			out = append(out, jr)
		}
	}
	return out
}

// nonNil keeps empty lists as [] rather than null
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
