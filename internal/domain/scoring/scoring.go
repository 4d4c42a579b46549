// Package scoring turns an evaluated decision's expected-value loss into a
// mistake severity on the 0-10 scale the weakness tracker consumes.
package scoring

import (
	"context"
	"fmt"
	"math"
	"strings"
)

// Severity steps, lowest to highest.
const (
	SeverityNone        = 0
	SeverityMinor       = 2
	SeverityModerate    = 4
	SeveritySignificant = 6
	SeverityMajor       = 8
	SeverityCritical    = 10
)

// defaultBands are EV loss ratios (|ev difference| / pot) at which severity
// steps up.
var defaultBands = [4]float64{0.05, 0.15, 0.30, 0.50}

// Option applies a configuration option to the EVScorer.
type Option func(*EVScorer)

// WithBands replaces the loss-ratio breakpoints. They must be positive and
// strictly increasing or the option is ignored.
func WithBands(minor, moderate, significant, major float64) Option {
	return func(s *EVScorer) {
		b := [4]float64{minor, moderate, significant, major}
		if b[0] <= 0 {
			return
		}
		for i := 1; i < len(b); i++ {
			if b[i] <= b[i-1] {
				return
			}
		}
		s.bands = b
	}
}

// Input holds what is known about a judged decision.
type Input struct {
	// EVDifference is player EV minus optimal EV; negative means a loss.
	EVDifference float64
	PotSize      float64
	Action       string
	Street       string
}

// Result is the derived severity plus a fallback leak id.
type Result struct {
	Severity int
	Label    string
	// Leak is a coarse "<category>.<leak>" guess used when the coach named none.
	Leak string
}

// Scorer derives a severity from an input.
type Scorer interface {
	Score(ctx context.Context, in Input) (Result, error)
}

// EVScorer implements Scorer with fixed loss-ratio bands.
type EVScorer struct {
	bands [4]float64
}

// NewEVScorer creates a scorer with configuration options.
func NewEVScorer(opts ...Option) *EVScorer {
	s := &EVScorer{bands: defaultBands}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score maps the loss ratio onto {0, 2, 4, 6, 8, 10}. A non-negative
// difference is no mistake.
func (s *EVScorer) Score(ctx context.Context, in Input) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("context cancelled: %w", err)
	}
	if math.IsNaN(in.EVDifference) || math.IsInf(in.EVDifference, 0) {
		return Result{}, fmt.Errorf("%w: ev difference %v", ErrInvalidInput, in.EVDifference)
	}
	if in.EVDifference < 0 && in.PotSize <= 0 {
		return Result{}, fmt.Errorf("%w: pot size must be positive", ErrInvalidInput)
	}

	sev := s.severity(in.EVDifference, in.PotSize)
	res := Result{Severity: sev, Label: Label(sev)}
	if sev > SeverityNone {
		res.Leak = CategorizeLeak(in.Action, in.Street)
	}
	return res, nil
}

func (s *EVScorer) severity(diff, pot float64) int {
	if diff >= 0 {
		return SeverityNone
	}
	ratio := math.Abs(diff) / pot
	switch {
	case ratio < s.bands[0]:
		return SeverityMinor
	case ratio < s.bands[1]:
		return SeverityModerate
	case ratio < s.bands[2]:
		return SeveritySignificant
	case ratio < s.bands[3]:
		return SeverityMajor
	default:
		return SeverityCritical
	}
}

// Label names a severity for feedback text.
func Label(severity int) string {
	switch {
	case severity <= SeverityNone:
		return "none"
	case severity <= SeverityMinor:
		return "low"
	case severity <= SeverityModerate:
		return "medium"
	case severity <= SeverityMajor:
		return "high"
	default:
		return "critical"
	}
}

// CategorizeLeak guesses a leak id from the action taken and the street.
func CategorizeLeak(action, street string) string {
	action = strings.ToLower(strings.TrimSpace(action))
	switch strings.ToLower(strings.TrimSpace(street)) {
	case "", "preflop":
		switch action {
		case "fold", "call", "raise":
			return "preflop.rangeSelection"
		}
		return "preflop.general"
	case "flop", "turn", "river":
		switch {
		case strings.Contains(action, "bet"), strings.Contains(action, "raise"):
			return "postflop.aggression"
		case strings.Contains(action, "fold"):
			return "postflop.defense"
		}
		return "postflop.general"
	}
	return "technical.general"
}
