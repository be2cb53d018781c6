package tokensmith

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yacobolo/tokensmith/internal/tokens"
)

// DefaultTheme is used when no theme axis is configured
const DefaultTheme = "light"

// Ledger persists the run journal. Flush is called once at the end of every
// run, cancelled runs included.
type Ledger interface {
	Flush(ctx context.Context, runID string, snap tokens.Snapshot) error
}

// Config holds pipeline configuration
type Config struct {
	Pages           []Page
	Breakpoints     []Breakpoint
	Themes          []string               // default ["light"]
	Parallelism     int                    // breakpoints collected concurrently (default 2)
	PageTimeout     time.Duration          // per-target page load budget (default 30s)
	Validator       tokens.ValidatorConfig // broad capture, curated selection, bbox minimum
	States          tokens.StateConfig     // unsafe states, stabilization, noise thresholds
	Policies        tokens.Policies        // per-category clustering overrides
	MinRoleEvidence int                    // distinct samples per semantic role (default 2)
	MaxVarDepth     int                    // var() chain ceiling (default 8)
	Styling         tokens.StylingSystem   // detected styling system, drives the emission strategy
	RunID           string                 // generated (uuid v7) when empty
	Logger          *slog.Logger           // default slog.Default()
	Ledger          Ledger                 // optional
}

func (c *Config) defaults() {
	if len(c.Breakpoints) == 0 {
		c.Breakpoints = DefaultBreakpoints
	}
	if len(c.Themes) == 0 {
		c.Themes = []string{DefaultTheme}
	}
	if c.Parallelism <= 0 {
		c.Parallelism = 2
	}
	if c.PageTimeout <= 0 {
		c.PageTimeout = 30 * time.Second
	}
	if c.MinRoleEvidence <= 0 {
		c.MinRoleEvidence = 2
	}
	if c.MaxVarDepth <= 0 {
		c.MaxVarDepth = tokens.DefaultMaxVarDepth
	}
	if c.Policies == nil {
		c.Policies = tokens.DefaultPolicies()
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Evidence is everything collected across targets, in target order
type Evidence struct {
	Samples       []tokens.Sample
	Captures      []tokens.StateCapture
	Diffs         []tokens.StateDiff
	Missing       []tokens.MissingState
	FontFaces     []tokens.FontFace
	FontResponses []tokens.FontResponse
	MotionQueries []string // stylesheets declaring a prefers-reduced-motion query
}

// Analysis is the output of the clustering, mapping and emission stages
type Analysis struct {
	Clusters []tokens.Cluster
	Roles    []tokens.RoleResult
	Tokens   tokens.TokenSet
	Fonts    []tokens.FontVerdict
	Rules    tokens.Rules
	Emission tokens.Emission
}

// Result is the outcome of one run
type Result struct {
	RunID       string
	GeneratedAt time.Time
	Targets     int // attempted
	Collected   int // targets whose evidence was collected
	Evidence
	Analysis
	Journal tokens.Snapshot
}

// Run collects every target, validates and resolves samples, captures
// interaction states, then analyzes the evidence into tokens.
//
// Per-target failures become limits and the run continues. Run fails only
// when no valid sample was collected (ErrNoValidSamples) or ctx is cancelled;
// in both cases the partial Result is returned alongside the error.
func Run(ctx context.Context, cfg Config, collector Collector) (*Result, error) {
	cfg.defaults()
	logger := cfg.Logger

	runID := cfg.RunID
	if runID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("generating run id: %w", err)
		}
		runID = id.String()
	}
	j := tokens.NewJournal(runID)
	res := &Result{RunID: runID, GeneratedAt: time.Now().UTC()}

	// Step 1: expand targets and group them by breakpoint
	targets := Targets(cfg.Pages, cfg.Breakpoints, cfg.Themes)
	res.Targets = len(targets)
	logger.Info("pipeline: run started", "run", runID, "targets", len(targets), "parallelism", cfg.Parallelism)

	groups := make(map[string][]int)
	var order []string
	for i, t := range targets {
		if _, ok := groups[t.Breakpoint.Name]; !ok {
			order = append(order, t.Breakpoint.Name)
		}
		groups[t.Breakpoint.Name] = append(groups[t.Breakpoint.Name], i)
	}

	// Step 2: collect breakpoints in parallel, pages within a breakpoint sequentially
	p := &pipeline{cfg: cfg, collector: collector, journal: j, logger: logger}
	results := make([]*targetResult, len(targets))

	var g errgroup.Group
	g.SetLimit(cfg.Parallelism)
	for _, bp := range order {
		indexes := groups[bp]
		g.Go(func() error {
			for _, i := range indexes {
				tr, err := p.collectTarget(ctx, targets[i])
				results[i] = tr
				if err != nil {
					return err
				}
			}
			return nil
		})
	}
	runErr := g.Wait()

	// Step 3: merge in target order
	seenFaces := make(map[string]bool)
	for _, tr := range results {
		if tr == nil {
			continue
		}
		if tr.complete {
			res.Collected++
		}
		res.Samples = append(res.Samples, tr.samples...)
		res.Captures = append(res.Captures, tr.captures...)
		res.Diffs = append(res.Diffs, tr.diffs...)
		res.Missing = append(res.Missing, tr.missing...)
		res.FontResponses = append(res.FontResponses, tr.responses...)
		res.MotionQueries = append(res.MotionQueries, tr.motion...)
		for _, f := range tr.faces {
			key := strings.ToLower(f.Family) + "|" + strings.Join(f.Src, ",")
			if !seenFaces[key] {
				seenFaces[key] = true
				res.FontFaces = append(res.FontFaces, f)
			}
		}
	}

	finish := func(err error) (*Result, error) {
		j.Finalize(res.Targets, res.Collected)
		res.Journal = j.Snapshot()
		if cfg.Ledger != nil {
			// the ledger must see cancelled runs too
			if ferr := cfg.Ledger.Flush(context.WithoutCancel(ctx), runID, res.Journal); ferr != nil {
				logger.Error("pipeline: ledger flush failed", "run", runID, "error", ferr)
				if err == nil {
					err = fmt.Errorf("flushing ledger: %w", ferr)
				}
			}
		}
		logger.Info("pipeline: run finished", "run", runID,
			"collected", res.Collected, "samples", len(res.Samples), "tokens", res.Tokens.Len(), "limits", len(res.Journal.Limits))
		return res, err
	}

	if ctxErr := ctx.Err(); ctxErr != nil || runErr != nil {
		if ctxErr == nil {
			ctxErr = runErr
		}
		j.AddLimit(tokens.Limit{
			Kind:    tokens.LimitCancelled,
			Subject: "run",
			Reason:  fmt.Sprintf("run cancelled after %d of %d targets: %v", res.Collected, res.Targets, ctxErr),
		})
		return finish(ctxErr)
	}

	if len(res.Samples) == 0 {
		return finish(fmt.Errorf("run %s: %d targets attempted: %w", runID, res.Targets, tokens.ErrNoValidSamples))
	}

	// Step 4: analyze the immutable evidence snapshot
	res.Analysis = Analyze(cfg, res.Evidence, j)
	return finish(nil)
}

type pipeline struct {
	cfg       Config
	collector Collector
	journal   *tokens.Journal
	logger    *slog.Logger
}

type targetResult struct {
	complete  bool
	samples   []tokens.Sample
	captures  []tokens.StateCapture
	diffs     []tokens.StateDiff
	missing   []tokens.MissingState
	faces     []tokens.FontFace
	responses []tokens.FontResponse
	motion    []string
}

// collectTarget returns a nil result for targets that failed to load. The
// error is non-nil only when ctx was cancelled; the partial result is kept.
func (p *pipeline) collectTarget(ctx context.Context, t Target) (*targetResult, error) {
	key := t.Key()
	loadCtx, cancel := context.WithTimeout(ctx, p.cfg.PageTimeout)
	defer cancel()

	p.logger.Debug("pipeline: collecting target", "target", key, "url", t.URL)
	ev, err := p.collector.Collect(loadCtx, t)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var timeout *tokens.PageLoadTimeout
		switch {
		case errors.As(err, &timeout):
			p.journal.Note(err)
		case errors.Is(err, context.DeadlineExceeded) || errors.Is(loadCtx.Err(), context.DeadlineExceeded):
			p.journal.Note(&tokens.PageLoadTimeout{
				Page:       t.Page,
				Breakpoint: t.Breakpoint.Name,
				Theme:      t.Theme,
				Timeout:    p.cfg.PageTimeout,
			})
		default:
			p.journal.AddLimit(tokens.Limit{
				Kind:    tokens.LimitCollectionFailure,
				Subject: key,
				Reason:  fmt.Sprintf("Failed to collect %s: %v", key, err),
			})
		}
		p.logger.Warn("pipeline: target skipped", "target", key, "error", err)
		return nil, nil
	}
	defer func() {
		if err := ev.Release(); err != nil {
			p.logger.Debug("pipeline: release failed", "target", key, "error", err)
		}
	}()

	index := tokens.BuildStyleIndex(ev.Stylesheets)
	for _, w := range index.Warnings {
		p.logger.Debug("pipeline: stylesheet warning", "target", key, "warning", w)
	}
	resolver := tokens.NewResolver(index, p.cfg.MaxVarDepth)
	validator := tokens.NewValidator(p.cfg.Validator, t.Scope())
	engine := tokens.NewStateEngine(p.cfg.States, p.logger)

	tr := &targetResult{faces: index.FontFaces, responses: ev.FontResponses, motion: index.ReducedMotion}
	for _, c := range ev.Candidates {
		if err := ctx.Err(); err != nil {
			return tr, err
		}

		s, err := validator.Validate(c)
		if err != nil {
			p.journal.Note(err)
			continue
		}
		resolution := resolver.Resolve(s)
		s = resolution.Apply(s)
		for _, issue := range resolution.Issues {
			p.journal.Note(issue)
		}
		if err := p.journal.AddEvidence(s.ID, evidencePath(s)); err != nil {
			p.logger.Warn("pipeline: evidence not indexed", "sample", s.ID, "error", err)
		}
		tr.samples = append(tr.samples, s)

		// every sample carries exactly one default capture
		h, ok := ev.Handles[c.SelectorPath]
		if !ok || !tokens.IsInteractiveType(s.ComponentType) {
			tr.captures = append(tr.captures, engine.DefaultCapture(s))
			continue
		}
		cr, err := engine.Capture(ctx, s, h)
		if len(cr.Captures) == 0 {
			tr.captures = append(tr.captures, engine.DefaultCapture(s))
		}
		tr.captures = append(tr.captures, cr.Captures...)
		tr.diffs = append(tr.diffs, cr.Diffs...)
		tr.missing = append(tr.missing, cr.Missing...)
		for i := range cr.Missing {
			p.journal.Note(&cr.Missing[i])
		}
		for _, st := range cr.Unstable {
			p.journal.AddLimit(tokens.Limit{
				Kind:    tokens.LimitUnstableState,
				Subject: fmt.Sprintf("%s %s", s.ID, st),
				Reason:  "styles did not settle between consecutive reads; captured values may be mid-transition",
			})
		}
		if err != nil {
			if ctx.Err() != nil {
				return tr, ctx.Err()
			}
			p.logger.Warn("pipeline: state capture failed", "sample", s.ID, "error", err)
		}
	}

	tr.complete = true
	p.logger.Info("pipeline: target collected", "target", key,
		"candidates", len(ev.Candidates), "samples", len(tr.samples), "diffs", len(tr.diffs))
	return tr, nil
}

// evidencePath is the artifact a sample id points at
func evidencePath(s tokens.Sample) string {
	if s.CropRef != "" {
		return s.CropRef
	}
	return SamplesFile + "#" + s.ID
}

// Analyze clusters the evidence, maps semantic roles, builds and labels
// tokens, derives rule summaries and emits artifacts. Every decision is
// recorded in j.
func Analyze(cfg Config, ev Evidence, j *tokens.Journal) Analysis {
	cfg.defaults()
	var a Analysis

	paths := make(map[string]string, len(ev.Samples))
	for _, s := range ev.Samples {
		paths[s.ID] = evidencePath(s)
	}
	pathsFor := func(ids []string) []string {
		out := make([]string, 0, len(ids))
		for _, id := range ids {
			if p, ok := paths[id]; ok {
				out = append(out, p)
			}
		}
		return out
	}

	// Step 1: cluster
	obs := tokens.ExtractObservations(ev.Samples, ev.Diffs)
	a.Clusters = tokens.ClusterAll(obs, cfg.Policies)
	for _, c := range a.Clusters {
		var ids []string
		for _, center := range c.Centers {
			ids = append(ids, center.SampleIDs...)
		}
		var rejected string
		if len(c.Outliers) > 0 {
			parts := make([]string, len(c.Outliers))
			for i, o := range c.Outliers {
				parts[i] = fmt.Sprintf("%s (%d)", o.Value, o.Frequency)
			}
			rejected = "outliers: " + strings.Join(parts, ", ")
		}
		j.Record(traceCategory(c.Category),
			fmt.Sprintf("%s scale of %d step(s): %s", c.Category, len(c.Centers), strings.Join(c.CenterValues(), ", ")),
			pathsFor(uniqueSorted(ids)), rejected)
	}

	// Step 2: semantic roles
	a.Roles = tokens.MapRoles(tokens.MapInput{
		Clusters:     a.Clusters,
		Observations: obs,
		Samples:      ev.Samples,
		MinEvidence:  cfg.MinRoleEvidence,
	})
	for _, r := range a.Roles {
		switch v := r.(type) {
		case tokens.Assigned:
			j.Record(roleTrace(v.Role), fmt.Sprintf("%s = %s (%s)", v.Role, v.Center.Value, v.Rule), pathsFor(v.Support), "")
		case tokens.Uncertain:
			j.AddLimit(tokens.Limit{Kind: tokens.LimitUncertainRole, Subject: v.Role, Reason: v.Reason})
			conclusion := fmt.Sprintf("%s uncertain: %s", v.Role, v.Reason)
			var rejected string
			if v.Candidate != nil {
				rejected = fmt.Sprintf("%s held back as ASSUMPTION; would confirm: %s", v.Candidate.Value, v.WouldConfirm)
			}
			j.Record(roleTrace(v.Role), conclusion, pathsFor(v.Support), rejected)
		}
	}

	// Step 3: tokens, then font verification downgrades
	set := tokens.BuildTokens(tokens.TokenInput{
		Clusters:     a.Clusters,
		Observations: obs,
		Samples:      ev.Samples,
		Roles:        a.Roles,
		MinEvidence:  cfg.MinRoleEvidence,
	})

	probes := make([]string, 0, len(ev.Samples))
	for _, s := range ev.Samples {
		if ff := s.ComputedStyles["font-family"]; ff != "" {
			probes = append(probes, ff)
		}
	}
	a.Fonts = tokens.VerifyFonts(tokens.FontEvidence{Faces: ev.FontFaces, Responses: ev.FontResponses, Probes: probes})
	for _, v := range a.Fonts {
		j.Note(v.Err())
		j.Record(tokens.TraceFont, fmt.Sprintf("%s: %s", v.Family, v.Label), v.Network, v.Reason)
	}
	a.Tokens = tokens.ApplyFontVerdicts(set, a.Fonts)

	// Step 4: rule summaries
	a.Rules = tokens.BuildRules(ev.Samples, ev.Diffs, ev.Missing, a.Clusters, ev.MotionQueries)
	recordRules(j, a.Rules, ev, pathsFor)

	// Step 5: emit
	a.Emission = tokens.Emit(a.Tokens, cfg.Styling, j)
	return a
}

func recordRules(j *tokens.Journal, r tokens.Rules, ev Evidence, pathsFor func([]string) []string) {
	d := r.Density
	j.Record(tokens.TraceDensity,
		fmt.Sprintf("density %s: control height median %gpx over %d control(s), spacing base unit %gpx",
			d.Class, d.ControlHeight.Median, d.ControlHeight.Count, d.BaseUnit),
		pathsFor(d.Evidence), "")

	l := r.Layout
	gutters := make([]string, 0, len(l.Gutters))
	for bp, g := range l.Gutters {
		gutters = append(gutters, bp+"="+g)
	}
	sort.Strings(gutters)
	j.Record(tokens.TraceLayout,
		fmt.Sprintf("container max-widths [%s], gutters [%s], grids [%s]",
			strings.Join(l.ContainerMaxWidths, ", "), strings.Join(gutters, ", "), strings.Join(l.GridColumns, "; ")),
		pathsFor(l.Evidence), "")

	acc := r.Accessibility
	j.Record(tokens.TraceA11y,
		fmt.Sprintf("%d of %d interactive sample(s) below %dpx; %d with a visible focus ring, %d without",
			len(acc.SmallTargets), acc.Interactive, tokens.MinTargetSize, len(acc.FocusRings), len(acc.NoFocusRing)),
		pathsFor(append(append([]string(nil), acc.FocusRings...), acc.NoFocusRing...)), "")
	j.Record(tokens.TraceMotion, acc.ReducedMotion, pathsFor(acc.MotionSamples), "")

	var ids []string
	for _, d := range ev.Diffs {
		ids = append(ids, d.SampleID)
	}
	j.Record(tokens.TraceInteraction,
		fmt.Sprintf("%d state diff(s) across %d sample(s); %d state(s) not induced", len(ev.Diffs), len(uniqueSorted(ids)), len(ev.Missing)),
		pathsFor(uniqueSorted(ids)), "")
}

func traceCategory(c tokens.Category) tokens.TraceCategory {
	switch c {
	case tokens.CategoryColor:
		return tokens.TraceColor
	case tokens.CategoryFontFamily, tokens.CategoryFontSize, tokens.CategoryFontWeight,
		tokens.CategoryLineHeight, tokens.CategoryLetterSpacing:
		return tokens.TraceTypography
	case tokens.CategorySpacing:
		return tokens.TraceDensity
	case tokens.CategoryDuration, tokens.CategoryEasing:
		return tokens.TraceMotion
	default:
		return tokens.TraceSurface
	}
}

func roleTrace(role string) tokens.TraceCategory {
	switch {
	case strings.HasPrefix(role, "interactive."):
		return tokens.TraceInteraction
	case strings.HasPrefix(role, "focus."):
		return tokens.TraceA11y
	case strings.HasPrefix(role, "text."):
		return tokens.TraceColor
	default:
		return tokens.TraceSurface
	}
}

func uniqueSorted(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}
