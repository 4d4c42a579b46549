package coach

import (
	"context"
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/okian/coach/internal/domain/profile"
	"github.com/okian/coach/internal/domain/scoring"
)

// Feedback is the coaching side of an evaluated decision.
type Feedback struct {
	ScenarioID    string   `json:"scenarioId,omitempty"`
	PlayerAction  string   `json:"playerAction"`
	Correct       bool     `json:"correct"`
	OptimalAction *Action  `json:"optimalAction,omitempty"`
	EVDifference  *float64 `json:"evDifference,omitempty"`
	EVExplanation string   `json:"evExplanation,omitempty"`
	Leak          string   `json:"leak,omitempty"`
	Severity      float64  `json:"severity"`
	SeverityLabel string   `json:"severityLabel"`
	// SeveritySource is "model", "ev" or "none".
	SeveritySource     string   `json:"severitySource"`
	MistakeDescription string   `json:"mistakeDescription,omitempty"`
	ImmediateFeedback  string   `json:"immediateFeedback,omitempty"`
	ConceptExplanation string   `json:"conceptExplanation,omitempty"`
	ImprovementTip     string   `json:"improvementTip,omitempty"`
	PracticeSuggestion string   `json:"practiceSuggestion,omitempty"`
	KeyConcepts        []string `json:"keyConcepts,omitempty"`
	FollowUpScenarios  []string `json:"followUpScenarios,omitempty"`
	HandDescription    string   `json:"handDescription,omitempty"`
}

type rawEvaluation struct {
	Correct       *bool   `json:"correct"`
	OptimalAction *Action `json:"optimal_action"`
	EVAnalysis    *struct {
		EVDifference *float64 `json:"ev_difference"`
		Explanation  string   `json:"ev_explanation"`
	} `json:"ev_analysis"`
	MistakeAnalysis *struct {
		LeakType    string   `json:"leak_type"`
		Severity    *float64 `json:"severity"`
		Description string   `json:"description"`
	} `json:"mistake_analysis"`
	CoachingFeedback struct {
		Immediate string `json:"immediate_feedback"`
		Concept   string `json:"concept_explanation"`
		Tip       string `json:"improvement_tip"`
		Practice  string `json:"practice_suggestion"`
	} `json:"coaching_feedback"`
	KeyConcepts []string `json:"key_concepts"`
	FollowUp    []string `json:"follow_up_scenarios"`
}

// ParseEvaluation checks the model's verdict on a decision and turns it
// into feedback plus the tracker input.
//
// "correct" is required. When the model gives no severity but reports an EV
// difference, severity is derived from the EV loss relative to the pot; the
// scorer's street/action guess stands in for a missing leak.
func ParseEvaluation(ctx context.Context, text string, scorer scoring.Scorer, sc Scenario, action string) (Feedback, profile.Evaluation, error) {
	var raw rawEvaluation
	if err := decodeObject(text, &raw); err != nil {
		return Feedback{}, profile.Evaluation{}, err
	}
	if raw.Correct == nil {
		return Feedback{}, profile.Evaluation{}, fmt.Errorf("%w: missing boolean \"correct\"", ErrInvalidResponse)
	}

	fb := Feedback{
		ScenarioID:         sc.ScenarioID,
		PlayerAction:       action,
		Correct:            *raw.Correct,
		OptimalAction:      raw.OptimalAction,
		ImmediateFeedback:  raw.CoachingFeedback.Immediate,
		ConceptExplanation: raw.CoachingFeedback.Concept,
		ImprovementTip:     raw.CoachingFeedback.Tip,
		PracticeSuggestion: raw.CoachingFeedback.Practice,
		KeyConcepts:        raw.KeyConcepts,
		FollowUpScenarios:  raw.FollowUp,
		HandDescription:    sc.HandDescription(),
		SeveritySource:     "none",
	}
	if raw.EVAnalysis != nil {
		fb.EVDifference = raw.EVAnalysis.EVDifference
		fb.EVExplanation = raw.EVAnalysis.Explanation
	}

	var modelSeverity *float64
	if m := raw.MistakeAnalysis; m != nil {
		fb.Leak = NormalizeLeak(m.LeakType)
		fb.MistakeDescription = m.Description
		modelSeverity = m.Severity
	}

	switch {
	case modelSeverity != nil:
		fb.Severity = *modelSeverity
		fb.SeveritySource = "model"
	case fb.EVDifference != nil && scorer != nil:
		res, err := scorer.Score(ctx, scoring.Input{
			EVDifference: *fb.EVDifference,
			PotSize:      sc.PotSize,
			Action:       ActionVerb(action),
			Street:       sc.CurrentStreet,
		})
		if err == nil {
			fb.Severity = float64(res.Severity)
			fb.SeveritySource = "ev"
			if fb.Leak == "" && !fb.Correct {
				fb.Leak = res.Leak
			}
		}
	}
	if fb.Correct && modelSeverity == nil {
		fb.Severity = 0
	}
	if math.IsNaN(fb.Severity) || math.IsInf(fb.Severity, 0) {
		return Feedback{}, profile.Evaluation{}, fmt.Errorf("%w: severity is not finite", ErrInvalidResponse)
	}
	fb.SeverityLabel = scoring.Label(int(math.Round(fb.Severity)))

	ev := profile.Evaluation{
		Correct:        fb.Correct,
		LeakIdentified: fb.Leak,
		Severity:       fb.Severity,
	}
	if fb.EVDifference != nil {
		d := *fb.EVDifference
		ev.EVDelta = &d
	}
	return fb, ev, nil
}

// NormalizeLeak rewrites "Postflop.bet_sizing" or "postflop.Bet Sizing" as
// "postflop.betSizing". Ids without a dot are returned trimmed so the
// tracker can report them as malformed.
func NormalizeLeak(id string) string {
	id = strings.TrimSpace(id)
	cat, leak, ok := strings.Cut(id, ".")
	if !ok {
		return id
	}
	return camel(cat, false) + "." + camel(leak, true)
}

// camel joins words split by space, '_' or '-'. The first word keeps its
// inner case so already-camel names survive.
func camel(s string, keepInner bool) string {
	words := strings.FieldsFunc(s, func(r rune) bool {
		return r == '_' || r == '-' || unicode.IsSpace(r)
	})
	var b strings.Builder
	for i, w := range words {
		if i == 0 {
			if keepInner {
				rs := []rune(w)
				rs[0] = unicode.ToLower(rs[0])
				b.WriteString(string(rs))
			} else {
				b.WriteString(strings.ToLower(w))
			}
			continue
		}
		rs := []rune(strings.ToLower(w))
		rs[0] = unicode.ToUpper(rs[0])
		b.WriteString(string(rs))
	}
	return b.String()
}
