// Package coach builds prompts for the language model and checks what comes
// back: generated training scenarios and verdicts on a player's decisions.
package coach

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/okian/coach/internal/adapters/llm"
	"github.com/okian/coach/internal/domain/profile"
	"github.com/okian/coach/internal/domain/scoring"
	"github.com/okian/coach/pkg/logger"
)

const (
	defaultStage      = "middle"
	defaultStackDepth = 30
	defaultFormat     = "MTT"
)

// Completer is the text-generation capability the coach needs.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (string, error)
}

// Coach turns profiles into prompts and model output into tracker input.
type Coach struct {
	llm         Completer
	tracker     *profile.Tracker
	scorer      scoring.Scorer
	log         logger.Logger
	maxTokens   int
	temperature *float64
}

// New creates a coach backed by c.
func New(c Completer, opts ...Option) *Coach {
	co := &Coach{
		llm:     c,
		tracker: profile.NewTracker(),
		scorer:  scoring.NewEVScorer(),
		log:     logger.Get().Named("coach"),
	}
	for _, opt := range opts {
		opt(co)
	}
	return co
}

func (c *Coach) request(prompt string) llm.Request {
	return llm.Request{
		System:      SystemPrompt,
		Prompt:      prompt,
		JSON:        true,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}
}

// Fill resolves request defaults against the profile: the top focus area and
// the recommended difficulty stand in for blanks.
func (c *Coach) Fill(p profile.Profile, req ScenarioRequest) ScenarioRequest {
	if req.Stage == "" {
		req.Stage = defaultStage
	}
	if req.StackDepth == 0 {
		req.StackDepth = defaultStackDepth
	}
	if req.Format == "" {
		req.Format = defaultFormat
	}
	if req.FocusWeakness == "" {
		if top := c.tracker.SelectFocusAreas(p, 1); len(top) > 0 {
			req.FocusWeakness = top[0]
		}
	}
	if req.Difficulty == "" {
		req.Difficulty = string(c.tracker.RecommendDifficulty(p))
	} else {
		req.Difficulty = strings.ToLower(strings.TrimSpace(req.Difficulty))
	}
	return req
}

// GenerateScenario asks the model for a spot aimed at the player's weakest
// area.
func (c *Coach) GenerateScenario(ctx context.Context, p profile.Profile, req ScenarioRequest) (Scenario, error) {
	if err := req.Validate(); err != nil {
		return Scenario{}, err
	}
	req = c.Fill(p, req)

	text, err := c.llm.Complete(ctx, c.request(BuildScenarioPrompt(req)))
	if err != nil {
		return Scenario{}, fmt.Errorf("generate scenario: %w", err)
	}
	sc, err := ParseScenario(text)
	if err != nil {
		c.log.Warn(ctx, "rejected generated scenario",
			logger.PlayerID(p.PlayerID),
			logger.Error(err))
		return Scenario{}, err
	}
	if sc.TournamentStage == "" {
		sc.TournamentStage = req.Stage
	}
	sc.FocusWeakness = req.FocusWeakness
	sc.Difficulty = req.Difficulty
	return sc, nil
}

// EvaluateDecision asks the model to judge action in sc and returns the
// feedback with the evaluation to record.
func (c *Coach) EvaluateDecision(ctx context.Context, p profile.Profile, sc Scenario, action string, decisionTime time.Duration) (Feedback, profile.Evaluation, error) {
	action = strings.TrimSpace(action)
	if action == "" {
		return Feedback{}, profile.Evaluation{}, fmt.Errorf("%w: action is required", ErrInvalidRequest)
	}
	if len(sc.HeroCards) == 0 {
		return Feedback{}, profile.Evaluation{}, fmt.Errorf("%w: scenario is required", ErrInvalidRequest)
	}
	if !sc.Allows(action) {
		return Feedback{}, profile.Evaluation{}, fmt.Errorf("%w: %q is not one of %v", ErrInvalidRequest, action, sc.ValidActions)
	}

	prompt := BuildEvaluationPrompt(sc, action, ContextFor(c.tracker, p), decisionTime)
	text, err := c.llm.Complete(ctx, c.request(prompt))
	if err != nil {
		return Feedback{}, profile.Evaluation{}, fmt.Errorf("evaluate decision: %w", err)
	}
	fb, ev, err := ParseEvaluation(ctx, text, c.scorer, sc, action)
	if err != nil {
		c.log.Warn(ctx, "rejected evaluation",
			logger.PlayerID(p.PlayerID),
			logger.String("scenario_id", sc.ScenarioID),
			logger.Error(err))
		return Feedback{}, profile.Evaluation{}, err
	}
	return fb, ev, nil
}
