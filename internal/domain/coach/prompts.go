package coach

import (
	"fmt"
	"strings"
	"time"

	"github.com/okian/coach/internal/domain/profile"
)

// SystemPrompt frames every request.
const SystemPrompt = `You are an expert MTT poker coach with deep knowledge of game theory
optimal play, ICM, tournament dynamics, player tendencies and risk assessment.
You generate realistic, educational spots and judge decisions with clear,
constructive reasoning. You always answer with a single JSON object.`

// ScenarioRequest parameterises a generated spot. Zero values are filled in
// by the coach from the player's profile.
type ScenarioRequest struct {
	Stage         string `json:"stage,omitempty"`
	StackDepth    int    `json:"stackDepth,omitempty"`
	FocusWeakness string `json:"focusWeakness,omitempty"`
	Difficulty    string `json:"difficulty,omitempty"`
	Format        string `json:"format,omitempty"`
}

// Validate checks stage and stack depth.
func (r ScenarioRequest) Validate() error {
	if r.Stage != "" {
		ok := false
		for _, s := range stages {
			if s == r.Stage {
				ok = true
				break
			}
		}
		if !ok {
			return fmt.Errorf("%w: stage %q not one of %s", ErrInvalidRequest, r.Stage, strings.Join(stages, ", "))
		}
	}
	if r.StackDepth < 0 || r.StackDepth > 500 {
		return fmt.Errorf("%w: stack depth %d out of range", ErrInvalidRequest, r.StackDepth)
	}
	if r.Difficulty != "" {
		if _, err := profile.ParseSkillLevel(r.Difficulty); err != nil {
			return fmt.Errorf("%w: difficulty %q", ErrInvalidRequest, r.Difficulty)
		}
	}
	return nil
}

// BuildScenarioPrompt asks for one spot in the JSON shape Scenario decodes.
func BuildScenarioPrompt(r ScenarioRequest) string {
	var b strings.Builder
	b.WriteString("Generate a specific poker training scenario with these parameters:\n")
	fmt.Fprintf(&b, "- Tournament Stage: %s\n", r.Stage)
	fmt.Fprintf(&b, "- Stack Depth: %d BB\n", r.StackDepth)
	fmt.Fprintf(&b, "- Difficulty Level: %s\n", r.Difficulty)
	fmt.Fprintf(&b, "- Game Format: %s\n", r.Format)
	if r.FocusWeakness != "" {
		fmt.Fprintf(&b, "\nFOCUS AREA: the scenario must specifically test %q and expose that weakness.\n", r.FocusWeakness)
	}
	b.WriteString(`
TOURNAMENT STAGE GUIDELINES:
- early: deep stacks (50+ BB), postflop play, building pots
- middle: 20-50 BB, antes in play, stealing matters
- bubble: high ICM pressure, survival
- itm: pay jumps, risk against reward
- final_table: maximum ICM pressure, stack dynamics

STACK DEPTH CONSIDERATIONS:
- 50+ BB: complex postflop decisions, implied odds, set mining
- 20-50 BB: standard play, position matters
- 10-20 BB: push/fold thresholds
- under 10 BB: pure push/fold

Cards use rank then suit, e.g. "As", "Td", "9c". The board holds 0, 3, 4 or 5
cards and no card may appear twice.

Return ONLY a JSON object with this structure:
`)
	fmt.Fprintf(&b, `{
  "scenario_id": "unique id",
  "tournament_stage": %q,
  "hero_position": "BTN|CO|MP|EP|SB|BB|UTG",
  "hero_stack": %d,
  "hero_cards": ["As", "Kh"],
  "villain_positions": [{"position": "CO", "stack": 2000, "player_type": "tight_aggressive"}],
  "blinds": {"small": 50, "big": 100},
  "ante": 10,
  "action_history": ["UTG folds", "MP raises to 250"],
  "current_street": "preflop",
  "board": [],
  "pot_size": 425,
  "to_call": 150,
  "min_raise": 250,
  "max_raise": %d,
  "valid_actions": ["fold", "call", "raise"],
  "scenario_description": "the situation in two or three sentences",
  "key_concepts": ["position", "ICM"],
  "optimal_action": {"action": "call", "amount": 150, "reasoning": "why"},
  "alternative_actions": [{"action": "fold", "ev_difference": -1.2, "reasoning": "why not"}],
  "learning_objectives": ["what the player should take away"]
}`, r.Stage, r.StackDepth*100, r.StackDepth*100)
	return b.String()
}

// PlayerContext is what the evaluator is told about the player.
type PlayerContext struct {
	SkillLevel     string
	FocusAreas     []string
	RecentAccuracy float64
	Scenarios      int
}

// ContextFor summarises a profile for prompting.
func ContextFor(t *profile.Tracker, p profile.Profile) PlayerContext {
	acc, _ := t.RecentAccuracy(p)
	return PlayerContext{
		SkillLevel:     string(p.SkillLevel),
		FocusAreas:     t.SelectFocusAreas(p, 0),
		RecentAccuracy: acc,
		Scenarios:      p.Stats.ScenariosPlayed,
	}
}

// BuildEvaluationPrompt asks for a verdict on action in sc. decisionTime is
// omitted when zero.
func BuildEvaluationPrompt(sc Scenario, action string, pc PlayerContext, decisionTime time.Duration) string {
	var b strings.Builder
	b.WriteString("Evaluate this player's decision.\n\nORIGINAL SCENARIO:\n")
	fmt.Fprintf(&b, "Tournament Stage: %s\n", sc.TournamentStage)
	fmt.Fprintf(&b, "Position: %s\n", sc.HeroPosition)
	fmt.Fprintf(&b, "Stack: %.0f chips (%.1f BB)\n", sc.HeroStack, sc.StackBB())
	fmt.Fprintf(&b, "Blinds: %.0f/%.0f", sc.Blinds.Small, sc.Blinds.Big)
	if sc.Ante > 0 {
		fmt.Fprintf(&b, " ante %.0f", sc.Ante)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Hero Cards: %s\n", strings.Join(sc.HeroCards, " "))
	if len(sc.Board) > 0 {
		fmt.Fprintf(&b, "Board: %s\n", strings.Join(sc.Board, " "))
	}
	if d := sc.HandDescription(); d != "" {
		fmt.Fprintf(&b, "Hero holds: %s\n", d)
	}
	if len(sc.ActionHistory) > 0 {
		fmt.Fprintf(&b, "Action: %s\n", strings.Join(sc.ActionHistory, " -> "))
	}
	fmt.Fprintf(&b, "Street: %s, Pot: %.0f, To Call: %.0f\n", sc.CurrentStreet, sc.PotSize, sc.ToCall)
	if sc.Description != "" {
		fmt.Fprintf(&b, "Situation: %s\n", sc.Description)
	}

	fmt.Fprintf(&b, "\nPLAYER ACTION: %s\n", action)

	if pc.SkillLevel != "" {
		b.WriteString("\nPLAYER CONTEXT:\n")
		fmt.Fprintf(&b, "- Skill Level: %s\n", pc.SkillLevel)
		if len(pc.FocusAreas) > 0 {
			fmt.Fprintf(&b, "- Known Weaknesses: %s\n", strings.Join(pc.FocusAreas, ", "))
		}
		if pc.Scenarios > 0 {
			fmt.Fprintf(&b, "- Recent Accuracy: %.0f%% over %d scenarios\n", pc.RecentAccuracy*100, pc.Scenarios)
		}
	}
	if decisionTime > 0 {
		fmt.Fprintf(&b, "\nDECISION TIME: %.1f seconds (under 5s suggests a snap decision, over 30s uncertainty)\n", decisionTime.Seconds())
	}

	b.WriteString(`
Judge mathematical correctness (pot odds, EV, ICM), strategic soundness and
execution. Name the leak as "<category>.<leak>", e.g. "postflop.bet_sizing",
with a severity from 0 (none) to 10 (critical).

Return ONLY a JSON object with this structure:
{
  "correct": true,
  "optimal_action": {"action": "call", "amount": 150, "reasoning": "why"},
  "ev_analysis": {"player_action_ev": 2.45, "optimal_action_ev": 2.87, "ev_difference": -0.42, "ev_explanation": "how"},
  "mistake_analysis": {"leak_type": "postflop.bet_sizing", "severity": 6, "description": "what went wrong"},
  "coaching_feedback": {
    "immediate_feedback": "what happened",
    "concept_explanation": "the underlying concept",
    "improvement_tip": "one actionable tip",
    "practice_suggestion": "how to drill it"
  },
  "key_concepts": ["ICM", "pot_odds"],
  "follow_up_scenarios": ["a related spot to practise"]
}`)
	return b.String()
}
