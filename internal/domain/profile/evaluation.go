package profile

import (
	"fmt"
	"math"
	"strings"
)

// Severity bounds.
const (
	MinEvaluationSeverity = 0
	MaxEvaluationSeverity = 10
	MinSeverity           = 0
	MaxSeverity           = 100

	// severityFloor snaps decayed dust to zero so repeated decay terminates.
	severityFloor = 1e-6
)

// Evaluation is the outcome of one judged decision.
type Evaluation struct {
	Correct bool `json:"correct"`
	// LeakIdentified is "<category>.<leak>"; empty means no leak.
	LeakIdentified string   `json:"leakIdentified,omitempty"`
	Severity       float64  `json:"severity"`
	EVDelta        *float64 `json:"evDelta,omitempty"`
}

// Issue describes a field the tracker degraded instead of rejecting.
type Issue struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// Issue reasons.
const (
	ReasonSeverityClamped = "severity_clamped"
	ReasonMalformedLeak   = "malformed_leak_skipped"
	ReasonNonFinite       = "non_finite_ignored"
)

// Validate rejects values that cannot be degraded into something sensible.
// Out-of-range severities and odd leak ids are not errors; see Inspect.
func (e Evaluation) Validate() error {
	if math.IsNaN(e.Severity) || math.IsInf(e.Severity, 0) {
		return fmt.Errorf("%w: severity must be a finite number", ErrInvalidEvaluation)
	}
	if e.EVDelta != nil && (math.IsNaN(*e.EVDelta) || math.IsInf(*e.EVDelta, 0)) {
		return fmt.Errorf("%w: evDelta must be a finite number", ErrInvalidEvaluation)
	}
	return nil
}

// Inspect lists the degradations RecordEvaluation will apply to e.
func Inspect(e Evaluation) []Issue {
	var issues []Issue
	switch {
	case !finite(e.Severity):
		issues = append(issues, Issue{Field: "severity", Reason: ReasonNonFinite})
	case e.Severity < MinEvaluationSeverity || e.Severity > MaxEvaluationSeverity:
		issues = append(issues, Issue{Field: "severity", Reason: ReasonSeverityClamped})
	}
	if e.EVDelta != nil && !finite(*e.EVDelta) {
		issues = append(issues, Issue{Field: "evDelta", Reason: ReasonNonFinite})
	}
	if strings.TrimSpace(e.LeakIdentified) != "" {
		if _, _, err := ParseLeak(e.LeakIdentified); err != nil {
			issues = append(issues, Issue{Field: "leakIdentified", Reason: ReasonMalformedLeak})
		}
	}
	return issues
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// clamp maps NaN to lo.
func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
