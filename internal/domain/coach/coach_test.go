package coach

import (
	"context"
	"errors"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/coach/internal/adapters/llm"
	"github.com/okian/coach/internal/domain/profile"
	"github.com/okian/coach/internal/domain/scoring"
)

const scenarioJSON = `{
  "scenario_id": "s-1",
  "tournament_stage": "bubble",
  "hero_position": "BTN",
  "hero_stack": 2500,
  "hero_cards": ["As", "Kh"],
  "blinds": {"small": 50, "big": 100},
  "board": [],
  "pot_size": 200,
  "to_call": 100,
  "valid_actions": ["Fold", "call", "raise"]
}`

type scripted struct {
	replies []string
	err     error
	seen    []llm.Request
}

func (s *scripted) Complete(_ context.Context, r llm.Request) (string, error) {
	s.seen = append(s.seen, r)
	if s.err != nil {
		return "", s.err
	}
	out := s.replies[0]
	s.replies = s.replies[1:]
	return out, nil
}

func TestParseCard(t *testing.T) {
	Convey("ParseCard", t, func() {
		for _, ok := range []string{"As", "td", "10h", "Kc", "2S", "9d"} {
			_, err := ParseCard(ok)
			So(err, ShouldBeNil)
		}
		for _, bad := range []string{"", "A", "1s", "Ax", "11h", "Zs"} {
			_, err := ParseCard(bad)
			So(errors.Is(err, ErrInvalidCard), ShouldBeTrue)
		}
		a, _ := ParseCard("Th")
		b, _ := ParseCard("10h")
		So(a, ShouldEqual, b)
	})
}

func TestParseScenario(t *testing.T) {
	Convey("Given a well formed scenario", t, func() {
		sc, err := ParseScenario(scenarioJSON)
		So(err, ShouldBeNil)
		So(sc.ScenarioID, ShouldEqual, "s-1")
		So(sc.CurrentStreet, ShouldEqual, "preflop")
		So(sc.ValidActions, ShouldResemble, []string{"fold", "call", "raise"})
		So(sc.StackBB(), ShouldEqual, 25)
		So(sc.HandDescription(), ShouldEqual, "")
	})

	Convey("Prose around the JSON is tolerated", t, func() {
		sc, err := ParseScenario("Here is your spot:\n```json\n" + scenarioJSON + "\n```")
		So(err, ShouldBeNil)
		So(sc.HeroPosition, ShouldEqual, "BTN")
	})

	Convey("A missing id is generated and the street follows the board", t, func() {
		sc, err := ParseScenario(`{"hero_cards":["7c","7d"],"board":["7h","2s","Kd","Qc"],"pot_size":900}`)
		So(err, ShouldBeNil)
		So(sc.ScenarioID, ShouldNotBeEmpty)
		So(sc.CurrentStreet, ShouldEqual, "turn")
		So(sc.ValidActions, ShouldResemble, defaultActions)
		So(sc.HandDescription(), ShouldNotBeEmpty)
	})

	Convey("Bad card sets are rejected", t, func() {
		cases := []string{
			`{"hero_cards":["As"]}`,
			`{"hero_cards":["As","As"]}`,
			`{"hero_cards":["As","Kd"],"board":["As","2c","3d"]}`,
			`{"hero_cards":["As","Kd"],"board":["2c","3d"]}`,
			`{"hero_cards":["As","Xx"]}`,
			`not json at all`,
		}
		for _, c := range cases {
			_, err := ParseScenario(c)
			So(errors.Is(err, ErrInvalidResponse), ShouldBeTrue)
		}
	})

	Convey("Allows maps bet and check onto raise and call", t, func() {
		sc := Scenario{ValidActions: []string{"fold", "call", "raise"}}
		So(sc.Allows("raise to 300"), ShouldBeTrue)
		So(sc.Allows("bet 200"), ShouldBeTrue)
		So(sc.Allows("check"), ShouldBeTrue)
		So(sc.Allows("limp"), ShouldBeFalse)
		So(sc.Allows(""), ShouldBeFalse)
	})
}

func TestNormalizeLeak(t *testing.T) {
	Convey("NormalizeLeak", t, func() {
		So(NormalizeLeak("postflop.bet_sizing"), ShouldEqual, "postflop.betSizing")
		So(NormalizeLeak(" Preflop.threeBetTooTight "), ShouldEqual, "preflop.threeBetTooTight")
		So(NormalizeLeak("postflop.Bet Sizing"), ShouldEqual, "postflop.betSizing")
		So(NormalizeLeak("tournament.icm-awareness"), ShouldEqual, "tournament.icmAwareness")
		So(NormalizeLeak("nodot"), ShouldEqual, "nodot")
	})
}

func TestParseEvaluation(t *testing.T) {
	Convey("Given a preflop scenario with a 200 chip pot", t, func() {
		ctx := context.Background()
		sc, err := ParseScenario(scenarioJSON)
		So(err, ShouldBeNil)
		scorer := scoring.NewEVScorer()

		Convey("The model's leak and severity are used as given", func() {
			fb, ev, err := ParseEvaluation(ctx, `{
				"correct": false,
				"ev_analysis": {"ev_difference": -0.42},
				"mistake_analysis": {"leak_type": "preflop.three_bet_too_tight", "severity": 7},
				"coaching_feedback": {"improvement_tip": "3-bet more"}
			}`, scorer, sc, "call")
			So(err, ShouldBeNil)
			So(fb.SeveritySource, ShouldEqual, "model")
			So(fb.ImprovementTip, ShouldEqual, "3-bet more")
			So(ev.LeakIdentified, ShouldEqual, "preflop.threeBetTooTight")
			So(ev.Severity, ShouldEqual, 7)
			So(*ev.EVDelta, ShouldEqual, -0.42)
			So(fb.SeverityLabel, ShouldEqual, "high")
		})

		Convey("Severity is derived from EV loss when the model gives none", func() {
			fb, ev, err := ParseEvaluation(ctx, `{"correct": false, "ev_analysis": {"ev_difference": -50}}`, scorer, sc, "call")
			So(err, ShouldBeNil)
			So(fb.SeveritySource, ShouldEqual, "ev")
			So(ev.Severity, ShouldEqual, float64(scoring.SeveritySignificant))
			So(ev.LeakIdentified, ShouldEqual, "preflop.rangeSelection")
		})

		Convey("A correct decision without severity scores zero", func() {
			fb, ev, err := ParseEvaluation(ctx, `{"correct": true, "ev_analysis": {"ev_difference": 0.1}}`, scorer, sc, "raise")
			So(err, ShouldBeNil)
			So(ev.Correct, ShouldBeTrue)
			So(ev.Severity, ShouldEqual, 0)
			So(ev.LeakIdentified, ShouldBeEmpty)
			So(fb.SeverityLabel, ShouldEqual, "none")
		})

		Convey("A verdict without correct is rejected", func() {
			_, _, err := ParseEvaluation(ctx, `{"mistake_analysis": {"severity": 3}}`, scorer, sc, "call")
			So(errors.Is(err, ErrInvalidResponse), ShouldBeTrue)
		})

		Convey("Out of range severities pass through for the tracker to clamp", func() {
			_, ev, err := ParseEvaluation(ctx, `{"correct": false, "mistake_analysis": {"leak_type": "postflop.x", "severity": 14}}`, scorer, sc, "call")
			So(err, ShouldBeNil)
			So(ev.Severity, ShouldEqual, 14)
			So(profile.Inspect(ev), ShouldHaveLength, 1)
		})
	})
}

func TestCoach(t *testing.T) {
	Convey("Given a coach over a scripted model", t, func() {
		ctx := context.Background()
		tr := profile.NewTracker()
		p := tr.NewProfile("p1", profile.Beginner)
		p, _ = tr.RecordEvaluation(p, profile.Evaluation{LeakIdentified: "tournament.bubblePlay", Severity: 9})
		model := &scripted{}
		c := New(model, WithTracker(tr), WithSampling(0.2, 900))

		Convey("GenerateScenario targets the top focus area", func() {
			model.replies = []string{scenarioJSON}
			sc, err := c.GenerateScenario(ctx, p, ScenarioRequest{})
			So(err, ShouldBeNil)
			So(sc.FocusWeakness, ShouldEqual, "tournament.bubblePlay")
			So(sc.Difficulty, ShouldEqual, "beginner")

			req := model.seen[0]
			So(req.JSON, ShouldBeTrue)
			So(req.MaxTokens, ShouldEqual, 900)
			So(*req.Temperature, ShouldEqual, 0.2)
			So(req.System, ShouldEqual, SystemPrompt)
			So(req.Prompt, ShouldContainSubstring, `"tournament.bubblePlay"`)
			So(req.Prompt, ShouldContainSubstring, "Stack Depth: 30 BB")
		})

		Convey("GenerateScenario rejects bad requests before calling the model", func() {
			_, err := c.GenerateScenario(ctx, p, ScenarioRequest{Stage: "satellite"})
			So(errors.Is(err, ErrInvalidRequest), ShouldBeTrue)
			So(model.seen, ShouldBeEmpty)
		})

		Convey("Model failures are wrapped", func() {
			model.err = llm.ErrAllProvidersFailed
			_, err := c.GenerateScenario(ctx, p, ScenarioRequest{})
			So(errors.Is(err, llm.ErrAllProvidersFailed), ShouldBeTrue)
		})

		Convey("EvaluateDecision builds context and parses the verdict", func() {
			sc, _ := ParseScenario(scenarioJSON)
			model.replies = []string{`{"correct": false, "mistake_analysis": {"leak_type": "preflop.open_limping", "severity": 5}}`}
			fb, ev, err := c.EvaluateDecision(ctx, p, sc, "call", 0)
			So(err, ShouldBeNil)
			So(fb.ScenarioID, ShouldEqual, "s-1")
			So(ev.LeakIdentified, ShouldEqual, "preflop.openLimping")
			prompt := model.seen[0].Prompt
			So(prompt, ShouldContainSubstring, "PLAYER ACTION: call")
			So(prompt, ShouldContainSubstring, "Skill Level: beginner")
			So(strings.Contains(prompt, "DECISION TIME"), ShouldBeFalse)
		})

		Convey("EvaluateDecision refuses actions the spot does not allow", func() {
			sc, _ := ParseScenario(scenarioJSON)
			_, _, err := c.EvaluateDecision(ctx, p, sc, "limp", 0)
			So(errors.Is(err, ErrInvalidRequest), ShouldBeTrue)
			So(model.seen, ShouldBeEmpty)
		})
	})
}
