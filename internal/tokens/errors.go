package tokens

import (
	"errors"
	"fmt"
	"time"
)

// ErrNoValidSamples is the only fatal pipeline condition: every target was
// exhausted without producing a single valid sample.
var ErrNoValidSamples = errors.New("no valid samples collected")

// ErrIllegalTransition is returned by StateMachine.Advance
var ErrIllegalTransition = errors.New("illegal state transition")

// RejectedSample is returned by the validator for a candidate that cannot become a Sample
type RejectedSample struct {
	Page       string
	Breakpoint string
	Selector   string
	Reason     string
}

func (e *RejectedSample) Error() string {
	return fmt.Sprintf("rejected %s (%s/%s): %s", e.Selector, e.Page, e.Breakpoint, e.Reason)
}

// UnresolvedStyleReference marks a property whose var() chain could not be followed
type UnresolvedStyleReference struct {
	SampleID string
	Property string
	Reason   string
}

func (e *UnresolvedStyleReference) Error() string {
	return fmt.Sprintf("%s: %s unresolved: %s", e.SampleID, e.Property, e.Reason)
}

// MissingState records a state that was not induced
type MissingState struct {
	SampleID string    `json:"sample_id"`
	State    StateName `json:"state"`
	Reason   string    `json:"reason"`
}

func (e *MissingState) Error() string {
	return fmt.Sprintf("%s: missing state %s: %s", e.SampleID, e.State, e.Reason)
}

// FontUnverified flags a font family without full corroboration
type FontUnverified struct {
	Family string
	Reason string
}

func (e *FontUnverified) Error() string {
	return fmt.Sprintf("font %q unverified: %s", e.Family, e.Reason)
}

// PageLoadTimeout marks a target whose page did not load in time
type PageLoadTimeout struct {
	Page       string
	Breakpoint string
	Theme      string
	Timeout    time.Duration
}

func (e *PageLoadTimeout) Error() string {
	return fmt.Sprintf("page %s at breakpoint %s timed out after %s", e.Page, e.Breakpoint, e.Timeout)
}

// LimitKind classifies a limits entry
type LimitKind string

const (
	LimitRejectedSample    LimitKind = "rejected-sample"
	LimitUnresolvedStyle   LimitKind = "unresolved-style-reference"
	LimitMissingState      LimitKind = "missing-state"
	LimitUnstableState     LimitKind = "unstable-state"
	LimitFontUnverified    LimitKind = "font-unverified"
	LimitPageLoadTimeout   LimitKind = "page-load-timeout"
	LimitCollectionFailure LimitKind = "collection-failure"
	LimitUncertainRole     LimitKind = "uncertain-role"
	LimitPlaceholder       LimitKind = "placeholder-refused"
	LimitCancelled         LimitKind = "run-cancelled"
	LimitCoverage          LimitKind = "coverage"
)

// Limit is one non-fatal condition reported alongside the results
type Limit struct {
	Kind    LimitKind `json:"kind"`
	Subject string    `json:"subject"`
	Reason  string    `json:"reason"`
}

// LimitFromError converts a taxonomy error into a limits entry.
// Unknown errors become collection failures.
func LimitFromError(err error) Limit {
	var (
		rejected   *RejectedSample
		unresolved *UnresolvedStyleReference
		missing    *MissingState
		font       *FontUnverified
		timeout    *PageLoadTimeout
	)

	switch {
	case errors.As(err, &rejected):
		return Limit{
			Kind:    LimitRejectedSample,
			Subject: fmt.Sprintf("%s_%s %s", rejected.Page, rejected.Breakpoint, rejected.Selector),
			Reason:  rejected.Reason,
		}
	case errors.As(err, &unresolved):
		return Limit{
			Kind:    LimitUnresolvedStyle,
			Subject: unresolved.SampleID + " " + unresolved.Property,
			Reason:  unresolved.Reason,
		}
	case errors.As(err, &missing):
		return Limit{
			Kind:    LimitMissingState,
			Subject: fmt.Sprintf("%s %s", missing.SampleID, missing.State),
			Reason:  missing.Reason,
		}
	case errors.As(err, &font):
		return Limit{Kind: LimitFontUnverified, Subject: font.Family, Reason: font.Reason}
	case errors.As(err, &timeout):
		subject := timeout.Page + "_" + timeout.Breakpoint
		if timeout.Theme != "" {
			subject += "_" + timeout.Theme
		}
		return Limit{
			Kind:    LimitPageLoadTimeout,
			Subject: subject,
			Reason:  fmt.Sprintf("page load exceeded %s; page %s at breakpoint %s is incomplete", timeout.Timeout, timeout.Page, timeout.Breakpoint),
		}
	default:
		return Limit{Kind: LimitCollectionFailure, Subject: "run", Reason: err.Error()}
	}
}
