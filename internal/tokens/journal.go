package tokens

import (
	"fmt"
	"sort"
	"sync"
)

// EvidenceIndex is an append-only mapping from evidence id to artifact path
type EvidenceIndex struct {
	order []string
	paths map[string]string
}

// NewEvidenceIndex creates an empty index
func NewEvidenceIndex() *EvidenceIndex {
	return &EvidenceIndex{paths: make(map[string]string)}
}

// Add registers id -> path. Re-adding the same pair is a no-op;
// rebinding an id to a different path is an error.
func (ix *EvidenceIndex) Add(id, path string) error {
	if id == "" {
		return fmt.Errorf("evidence id is empty")
	}
	if existing, ok := ix.paths[id]; ok {
		if existing == path {
			return nil
		}
		return fmt.Errorf("evidence %q already bound to %q", id, existing)
	}
	ix.paths[id] = path
	ix.order = append(ix.order, id)
	return nil
}

// Path returns the artifact path for id
func (ix *EvidenceIndex) Path(id string) (string, bool) {
	p, ok := ix.paths[id]
	return p, ok
}

// Len returns the number of entries
func (ix *EvidenceIndex) Len() int {
	return len(ix.order)
}

// EvidenceEntry is one index record
type EvidenceEntry struct {
	ID   string `json:"id"`
	Path string `json:"path"`
}

// Entries returns a copy in insertion order
func (ix *EvidenceIndex) Entries() []EvidenceEntry {
	out := make([]EvidenceEntry, len(ix.order))
	for i, id := range ix.order {
		out[i] = EvidenceEntry{ID: id, Path: ix.paths[id]}
	}
	return out
}

// TraceCategory is a decision category
type TraceCategory string

const (
	TraceTypography  TraceCategory = "typography"
	TraceColor       TraceCategory = "color"
	TraceInteraction TraceCategory = "interaction"
	TraceDensity     TraceCategory = "density"
	TraceLayout      TraceCategory = "layout"
	TraceSurface     TraceCategory = "surface"
	TraceMotion      TraceCategory = "motion"
	TraceA11y        TraceCategory = "a11y"
	TraceFont        TraceCategory = "font"
)

// TraceCategories lists decision categories in report order
var TraceCategories = []TraceCategory{
	TraceTypography, TraceColor, TraceInteraction, TraceDensity,
	TraceLayout, TraceSurface, TraceMotion, TraceA11y, TraceFont,
}

// TraceEntry is one decision record
type TraceEntry struct {
	Seq                  int           `json:"seq"`
	Category             TraceCategory `json:"category"`
	Conclusion           string        `json:"conclusion"`
	EvidencePaths        []string      `json:"evidence_paths"`
	RejectedAlternatives string        `json:"rejected_alternatives"`
}

// Snapshot is a point-in-time copy of a journal
type Snapshot struct {
	RunID    string          `json:"run_id"`
	Evidence []EvidenceEntry `json:"evidence"`
	Trace    []TraceEntry    `json:"trace"`
	Limits   []Limit         `json:"limits"`
}

// Journal is the per-run context shared by every pipeline stage.
// It only exposes append operations; nothing recorded is ever removed.
type Journal struct {
	mu       sync.Mutex
	runID    string
	evidence *EvidenceIndex
	trace    []TraceEntry
	limits   []Limit
	seen     map[Limit]bool
}

// NewJournal creates the journal for one run
func NewJournal(runID string) *Journal {
	return &Journal{
		runID:    runID,
		evidence: NewEvidenceIndex(),
		seen:     make(map[Limit]bool),
	}
}

// RunID returns the run identifier
func (j *Journal) RunID() string {
	return j.runID
}

// AddEvidence extends the evidence index
func (j *Journal) AddEvidence(id, path string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.evidence.Add(id, path)
}

// Record appends a decision trace entry
func (j *Journal) Record(category TraceCategory, conclusion string, evidencePaths []string, rejected string) {
	j.mu.Lock()
	defer j.mu.Unlock()

	paths := append([]string(nil), evidencePaths...)
	if rejected == "" {
		rejected = "none considered"
	}
	j.trace = append(j.trace, TraceEntry{
		Seq:                  len(j.trace) + 1,
		Category:             category,
		Conclusion:           conclusion,
		EvidencePaths:        paths,
		RejectedAlternatives: rejected,
	})
}

// AddLimit appends a limits entry; exact duplicates are collapsed
func (j *Journal) AddLimit(l Limit) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.seen[l] {
		return
	}
	j.seen[l] = true
	j.limits = append(j.limits, l)
}

// Note converts a taxonomy error into a limits entry
func (j *Journal) Note(err error) {
	if err == nil {
		return
	}
	j.AddLimit(LimitFromError(err))
}

// Finalize appends the coverage entry. Limits are never left empty.
func (j *Journal) Finalize(attempted, collected int) {
	j.AddLimit(Limit{
		Kind:    LimitCoverage,
		Subject: "run",
		Reason: fmt.Sprintf("%d of %d targets collected; tokens approximate rendered styles and do not guarantee pixel-perfect reproduction",
			collected, attempted),
	})
}

// Snapshot copies the journal state
func (j *Journal) Snapshot() Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()

	trace := make([]TraceEntry, len(j.trace))
	copy(trace, j.trace)
	limits := make([]Limit, len(j.limits))
	copy(limits, j.limits)

	return Snapshot{
		RunID:    j.runID,
		Evidence: j.evidence.Entries(),
		Trace:    trace,
		Limits:   limits,
	}
}

// TraceFor returns the entries of one category in append order
func (s Snapshot) TraceFor(category TraceCategory) []TraceEntry {
	var out []TraceEntry
	for _, e := range s.Trace {
		if e.Category == category {
			out = append(out, e)
		}
	}
	return out
}

// LimitsByKind groups limits by kind with sorted keys
func (s Snapshot) LimitsByKind() ([]LimitKind, map[LimitKind][]Limit) {
	groups := make(map[LimitKind][]Limit)
	for _, l := range s.Limits {
		groups[l.Kind] = append(groups[l.Kind], l)
	}
	kinds := make([]LimitKind, 0, len(groups))
	for k := range groups {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds, groups
}
