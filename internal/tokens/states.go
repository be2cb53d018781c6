package tokens

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"
)

// ReasonUnsafeActive is recorded when active is not induced on a link
const ReasonUnsafeActive = "unsafe to induce active on non-interactive anchor"

// stateOrder is the canonical capture order
var stateOrder = []StateName{
	StateDefault, StateHover, StateFocusVisible, StateActive,
	StateDisabled, StateSelected, StatePressed, StateVisited, StateLoading,
}

func stateIndex(s StateName) int {
	for i, st := range stateOrder {
		if st == s {
			return i
		}
	}
	return len(stateOrder)
}

// IsExtra reports terminal states that are observed rather than induced
func (s StateName) IsExtra() bool {
	return stateIndex(s) > stateIndex(StateActive) && stateIndex(s) < len(stateOrder)
}

// Valid reports whether s is a known state
func (s StateName) Valid() bool {
	return stateIndex(s) < len(stateOrder)
}

// StateMachine enforces Default -> Hover -> FocusVisible -> Active -> [TerminalExtra]
// for one sample. States may be skipped but never revisited or reordered.
type StateMachine struct {
	sampleID string
	current  StateName
	started  bool
	visited  []StateName
}

// NewStateMachine creates a machine for one sample
func NewStateMachine(sampleID string) *StateMachine {
	return &StateMachine{sampleID: sampleID}
}

// Advance moves to next if the transition is legal
func (m *StateMachine) Advance(next StateName) error {
	if !next.Valid() {
		return fmt.Errorf("%w: %s: unknown state %q", ErrIllegalTransition, m.sampleID, next)
	}
	if !m.started {
		if next != StateDefault {
			return fmt.Errorf("%w: %s: %s before default", ErrIllegalTransition, m.sampleID, next)
		}
	} else if stateIndex(next) <= stateIndex(m.current) {
		return fmt.Errorf("%w: %s: %s after %s", ErrIllegalTransition, m.sampleID, next, m.current)
	}
	m.started = true
	m.current = next
	m.visited = append(m.visited, next)
	return nil
}

// Current returns the state most recently entered
func (m *StateMachine) Current() StateName {
	return m.current
}

// Visited returns the entered states in order
func (m *StateMachine) Visited() []StateName {
	return append([]StateName(nil), m.visited...)
}

// NoiseThresholds absorb sub-pixel and anti-aliasing jitter when diffing
type NoiseThresholds struct {
	Length   float64 `koanf:"length"`   // px
	Color    float64 `koanf:"color"`    // ΔE
	Opacity  float64 `koanf:"opacity"`  // unitless
	Duration float64 `koanf:"duration"` // ms
}

// DefaultNoise returns the default diff thresholds
func DefaultNoise() NoiseThresholds {
	return NoiseThresholds{Length: 0.5, Color: 1.0, Opacity: 0.01, Duration: 1}
}

// StateConfig configures the capture engine
type StateConfig struct {
	AllowUnsafe       bool          // induce active on links
	StabilizeAttempts int           // re-reads until two consecutive reads match (default 3)
	Settle            time.Duration // wait between reads (default 50ms)
	Properties        []string      // properties read per state (default StateDiffProperties)
	Noise             NoiseThresholds
}

// StateEngine captures interaction states for samples
type StateEngine struct {
	cfg    StateConfig
	logger *slog.Logger
}

// NewStateEngine creates an engine; a nil logger uses slog.Default
func NewStateEngine(cfg StateConfig, logger *slog.Logger) *StateEngine {
	if cfg.StabilizeAttempts <= 0 {
		cfg.StabilizeAttempts = 3
	}
	if cfg.Settle <= 0 {
		cfg.Settle = 50 * time.Millisecond
	}
	if len(cfg.Properties) == 0 {
		cfg.Properties = StateDiffProperties
	}
	if cfg.Noise == (NoiseThresholds{}) {
		cfg.Noise = DefaultNoise()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StateEngine{cfg: cfg, logger: logger}
}

// CaptureResult is the outcome of capturing one sample
type CaptureResult struct {
	Captures []StateCapture
	Diffs    []StateDiff
	Missing  []MissingState
	Unstable []StateName
}

// DefaultCapture is the default state of a sample that is not driven, read
// from the collector's snapshot.
func (e *StateEngine) DefaultCapture(s Sample) StateCapture {
	return StateCapture{SampleID: s.ID, State: StateDefault, Styles: pick(s.ComputedStyles, e.cfg.Properties)}
}

// Capture walks the state machine for one sample. Default is read before any
// interaction; each later state starts from a reset element. On cancellation
// the captures taken so far are returned with ctx.Err().
func (e *StateEngine) Capture(ctx context.Context, s Sample, h ElementHandle) (CaptureResult, error) {
	var res CaptureResult
	m := NewStateMachine(s.ID)

	if err := h.Reset(ctx); err != nil {
		e.logger.Debug("states: reset before default failed", "sample", s.ID, "error", err)
	}

	base, stable, err := e.read(ctx, h)
	if err != nil {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		// the collector's snapshot was taken before any interaction
		base = pick(s.ComputedStyles, e.cfg.Properties)
		stable = true
	}
	if err := m.Advance(StateDefault); err != nil {
		return res, err
	}
	res.Captures = append(res.Captures, StateCapture{SampleID: s.ID, State: StateDefault, Styles: base})
	if !stable {
		res.Unstable = append(res.Unstable, StateDefault)
	}

	for _, state := range []StateName{StateHover, StateFocusVisible, StateActive} {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if state == StateActive && h.Navigational() && !e.cfg.AllowUnsafe {
			res.Missing = append(res.Missing, MissingState{SampleID: s.ID, State: state, Reason: ReasonUnsafeActive})
			continue
		}
		if err := m.Advance(state); err != nil {
			return res, err
		}

		styles, stable, err := e.induce(ctx, h, state)
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			res.Missing = append(res.Missing, MissingState{SampleID: s.ID, State: state, Reason: "could not induce: " + err.Error()})
			continue
		}
		res.Captures = append(res.Captures, StateCapture{SampleID: s.ID, State: state, Styles: styles})
		if !stable {
			res.Unstable = append(res.Unstable, state)
		}
	}

	extras, err := h.ObservedExtras(ctx)
	if err != nil && ctx.Err() != nil {
		return res, ctx.Err()
	}
	for _, state := range orderExtras(extras) {
		if err := m.Advance(state); err != nil {
			return res, err
		}
		styles, stable, err := e.induce(ctx, h, state)
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			res.Missing = append(res.Missing, MissingState{SampleID: s.ID, State: state, Reason: "could not read observed state: " + err.Error()})
			continue
		}
		res.Captures = append(res.Captures, StateCapture{SampleID: s.ID, State: state, Styles: styles})
		if !stable {
			res.Unstable = append(res.Unstable, state)
		}
	}

	if err := h.Reset(ctx); err != nil {
		e.logger.Debug("states: final reset failed", "sample", s.ID, "error", err)
	}

	for _, c := range res.Captures[1:] {
		changed := DiffStyles(base, c.Styles, e.cfg.Noise)
		if len(changed) == 0 {
			continue
		}
		res.Diffs = append(res.Diffs, StateDiff{SampleID: s.ID, State: c.State, Changed: changed})
	}

	e.logger.Debug("states: captured", "sample", s.ID, "captures", len(res.Captures), "diffs", len(res.Diffs), "missing", len(res.Missing))
	return res, nil
}

// induce resets the element, enters state and reads stabilized styles
func (e *StateEngine) induce(ctx context.Context, h ElementHandle, state StateName) (map[string]string, bool, error) {
	if err := h.Reset(ctx); err != nil {
		return nil, false, fmt.Errorf("reset: %w", err)
	}
	if err := h.Induce(ctx, state); err != nil {
		return nil, false, err
	}
	return e.read(ctx, h)
}

// read polls styles until two consecutive reads agree
func (e *StateEngine) read(ctx context.Context, h ElementHandle) (map[string]string, bool, error) {
	prev, err := h.Styles(ctx, e.cfg.Properties)
	if err != nil {
		return nil, false, err
	}
	for i := 0; i < e.cfg.StabilizeAttempts; i++ {
		timer := time.NewTimer(e.cfg.Settle)
		select {
		case <-ctx.Done():
			timer.Stop()
			return prev, false, ctx.Err()
		case <-timer.C:
		}

		next, err := h.Styles(ctx, e.cfg.Properties)
		if err != nil {
			return nil, false, err
		}
		if sameStyles(prev, next) {
			return next, true, nil
		}
		prev = next
	}
	return prev, false, nil
}

func orderExtras(extras []StateName) []StateName {
	seen := make(map[StateName]bool)
	var out []StateName
	for _, st := range stateOrder {
		for _, x := range extras {
			if x == st && st.IsExtra() && !seen[st] {
				seen[st] = true
				out = append(out, st)
			}
		}
	}
	return out
}

func pick(styles map[string]string, props []string) map[string]string {
	out := make(map[string]string, len(props))
	for _, p := range props {
		if v, ok := styles[p]; ok {
			out[p] = v
		}
	}
	return out
}

func sameStyles(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

// DiffStyles returns the properties present in both snapshots whose values
// differ by more than the noise threshold for the property's kind.
func DiffStyles(base, state map[string]string, noise NoiseThresholds) map[string]ValuePair {
	changed := make(map[string]ValuePair)
	for prop, before := range base {
		after, ok := state[prop]
		if !ok {
			continue
		}
		if valuesDiffer(prop, before, after, noise) {
			changed[prop] = ValuePair{before, after}
		}
	}
	return changed
}

func valuesDiffer(prop, a, b string, noise NoiseThresholds) bool {
	a, b = collapseSpace(a), collapseSpace(b)
	if strings.EqualFold(a, b) {
		return false
	}

	cat, _ := CategoryOf(prop)
	switch KindOf(cat) {
	case KindColor:
		ca, okA := ParseColor(a)
		cb, okB := ParseColor(b)
		if okA && okB {
			if ca.Alpha == 0 && cb.Alpha == 0 {
				return false
			}
			return ca.Distance(cb) > noise.Color
		}
	case KindDuration:
		da, okA := ParseDuration(a)
		db, okB := ParseDuration(b)
		if okA && okB {
			return math.Abs(da-db) > noise.Duration
		}
	}
	if cat == CategoryOpacity {
		oa, okA := ParseNumber(a)
		ob, okB := ParseNumber(b)
		if okA && okB {
			return math.Abs(oa-ob) > noise.Opacity
		}
	}

	return compoundDiffer(a, b, noise)
}

// compoundDiffer compares values such as shadows and transforms: embedded
// colors by ΔE, then the numeric skeleton token by token.
func compoundDiffer(a, b string, noise NoiseThresholds) bool {
	colorsA := embedColor.FindAllString(a, -1)
	colorsB := embedColor.FindAllString(b, -1)
	if len(colorsA) != len(colorsB) {
		return true
	}
	for i := range colorsA {
		ca, okA := ParseColor(colorsA[i])
		cb, okB := ParseColor(colorsB[i])
		if !okA || !okB {
			if !strings.EqualFold(colorsA[i], colorsB[i]) {
				return true
			}
			continue
		}
		if ca.Distance(cb) > noise.Color {
			return true
		}
	}

	restA := embedColor.ReplaceAllString(a, "#")
	restB := embedColor.ReplaceAllString(b, "#")
	if numberRe.ReplaceAllString(restA, "0") != numberRe.ReplaceAllString(restB, "0") {
		return true
	}

	numsA := numberRe.FindAllString(restA, -1)
	numsB := numberRe.FindAllString(restB, -1)
	for i := range numsA {
		x, _ := ParseNumber(numsA[i])
		y, _ := ParseNumber(numsB[i])
		if math.Abs(x-y) > noise.Length {
			return true
		}
	}
	return false
}
