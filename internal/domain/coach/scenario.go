package coach

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/paulhankin/poker"

	"github.com/okian/coach/internal/adapters/llm"
)

// Tournament stages a scenario can be set in.
var stages = []string{"early", "middle", "bubble", "itm", "final_table"}

var defaultActions = []string{"fold", "call", "raise"}

// Blinds are the forced bets in chips.
type Blinds struct {
	Small float64 `json:"small"`
	Big   float64 `json:"big"`
}

// Villain is one opponent still in the hand.
type Villain struct {
	Position   string  `json:"position"`
	Stack      float64 `json:"stack"`
	PlayerType string  `json:"player_type,omitempty"`
}

// Action is a suggested play with its reasoning.
type Action struct {
	Action       string   `json:"action"`
	Amount       *float64 `json:"amount,omitempty"`
	Reasoning    string   `json:"reasoning,omitempty"`
	EVDifference *float64 `json:"ev_difference,omitempty"`
}

// Scenario is a generated training spot. Field names follow the JSON the
// model is asked to produce so a scenario can be echoed back verbatim when
// the player's decision is evaluated.
type Scenario struct {
	ScenarioID         string    `json:"scenario_id"`
	TournamentStage    string    `json:"tournament_stage"`
	HeroPosition       string    `json:"hero_position"`
	HeroStack          float64   `json:"hero_stack"`
	HeroCards          []string  `json:"hero_cards"`
	Villains           []Villain `json:"villain_positions,omitempty"`
	Blinds             Blinds    `json:"blinds"`
	Ante               float64   `json:"ante,omitempty"`
	ActionHistory      []string  `json:"action_history,omitempty"`
	CurrentStreet      string    `json:"current_street"`
	Board              []string  `json:"board"`
	PotSize            float64   `json:"pot_size"`
	ToCall             float64   `json:"to_call"`
	MinRaise           float64   `json:"min_raise,omitempty"`
	MaxRaise           float64   `json:"max_raise,omitempty"`
	ValidActions       []string  `json:"valid_actions"`
	Description        string    `json:"scenario_description,omitempty"`
	KeyConcepts        []string  `json:"key_concepts,omitempty"`
	OptimalAction      *Action   `json:"optimal_action,omitempty"`
	AlternativeActions []Action  `json:"alternative_actions,omitempty"`
	LearningObjectives []string  `json:"learning_objectives,omitempty"`

	// Set by the coach, not the model.
	FocusWeakness string `json:"focus_weakness,omitempty"`
	Difficulty    string `json:"difficulty,omitempty"`
}

// StackBB is the hero stack in big blinds, 0 when blinds are unknown.
func (s Scenario) StackBB() float64 {
	if s.Blinds.Big <= 0 {
		return 0
	}
	return s.HeroStack / s.Blinds.Big
}

// HandDescription names the hero's best made hand. It is empty preflop.
func (s Scenario) HandDescription() string {
	if len(s.Board) < 3 {
		return ""
	}
	cards, err := parseCards(make(map[poker.Card]string), append(append([]string(nil), s.HeroCards...), s.Board...))
	if err != nil {
		return ""
	}
	d, err := describeBest(cards)
	if err != nil {
		return ""
	}
	return d
}

// decodeObject unmarshals text, retrying on the outermost {...} span when
// the model wrapped its JSON in prose.
func decodeObject(text string, v any) error {
	raw := strings.TrimSpace(text)
	if raw == "" {
		return fmt.Errorf("%w: empty", ErrInvalidResponse)
	}
	err := json.Unmarshal([]byte(raw), v)
	if err == nil {
		return nil
	}
	if cleaned := llm.ExtractJSONObject(raw); cleaned != "" && cleaned != raw {
		if err2 := json.Unmarshal([]byte(cleaned), v); err2 == nil {
			return nil
		}
	}
	return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
}

// ParseScenario decodes and checks a generated scenario: two distinct hero
// cards, a board of 0, 3, 4 or 5 cards, and no card dealt twice.
func ParseScenario(text string) (Scenario, error) {
	var s Scenario
	if err := decodeObject(text, &s); err != nil {
		return Scenario{}, err
	}
	if len(s.HeroCards) != 2 {
		return Scenario{}, fmt.Errorf("%w: hero_cards needs 2 cards, got %d", ErrInvalidResponse, len(s.HeroCards))
	}
	switch len(s.Board) {
	case 0, 3, 4, 5:
	default:
		return Scenario{}, fmt.Errorf("%w: board has %d cards", ErrInvalidResponse, len(s.Board))
	}
	seen := make(map[poker.Card]string, 7)
	if _, err := parseCards(seen, s.HeroCards); err != nil {
		return Scenario{}, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	if _, err := parseCards(seen, s.Board); err != nil {
		return Scenario{}, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	if s.PotSize < 0 || s.ToCall < 0 || s.HeroStack < 0 {
		return Scenario{}, fmt.Errorf("%w: negative chip amount", ErrInvalidResponse)
	}

	if strings.TrimSpace(s.ScenarioID) == "" {
		s.ScenarioID = uuid.NewString()
	}
	if s.Board == nil {
		s.Board = []string{}
	}
	s.CurrentStreet = streetFor(len(s.Board))
	if len(s.ValidActions) == 0 {
		s.ValidActions = append([]string(nil), defaultActions...)
	}
	for i, a := range s.ValidActions {
		s.ValidActions[i] = strings.ToLower(strings.TrimSpace(a))
	}
	return s, nil
}

func streetFor(boardCards int) string {
	switch boardCards {
	case 3:
		return "flop"
	case 4:
		return "turn"
	case 5:
		return "river"
	default:
		return "preflop"
	}
}

// ActionVerb is the first word of a free-form action like "raise to 300".
func ActionVerb(action string) string {
	f := strings.Fields(strings.ToLower(action))
	if len(f) == 0 {
		return ""
	}
	return f[0]
}

// Allows reports whether the action's verb is one of the valid actions.
// Bets count as raises and checks as calls when only those are listed.
func (s Scenario) Allows(action string) bool {
	verb := ActionVerb(action)
	if verb == "" {
		return false
	}
	if len(s.ValidActions) == 0 {
		return true
	}
	alias := map[string]string{"bet": "raise", "check": "call", "all-in": "raise", "shove": "raise", "jam": "raise"}
	for _, a := range s.ValidActions {
		if a == verb || a == alias[verb] {
			return true
		}
	}
	return false
}
