package profile

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"
)

// Tracker defaults.
const (
	DefaultDecayFactor             = 0.98
	DefaultReinforcementMultiplier = 2.0
	DefaultAccuracyWindow          = 20
	DefaultAdvanceThreshold        = 0.80
	DefaultRegressThreshold        = 0.40
	DefaultFocusTopN               = 3
	DefaultTrendLimit              = 100
	DefaultSessionGap              = 30 * time.Minute

	improvementWindow = 10
	maxScenarioTypes  = 5
	maxSessionGoals   = 2
)

// Tracker applies evaluations to profiles and derives training choices.
// A Tracker is immutable after construction and safe for concurrent use.
type Tracker struct {
	decay      float64
	multiplier float64
	window     int
	advanceAt  float64
	regressAt  float64
	topN       int
	trendLimit int
	sessionGap time.Duration
	now        func() time.Time
}

// NewTracker creates a tracker with configuration options.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		decay:      DefaultDecayFactor,
		multiplier: DefaultReinforcementMultiplier,
		window:     DefaultAccuracyWindow,
		advanceAt:  DefaultAdvanceThreshold,
		regressAt:  DefaultRegressThreshold,
		topN:       DefaultFocusTopN,
		trendLimit: DefaultTrendLimit,
		sessionGap: DefaultSessionGap,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.trendLimit < t.window {
		t.trendLimit = t.window
	}
	return t
}

// NewProfile builds the default profile for a first-time player.
// An invalid level falls back to intermediate.
func (t *Tracker) NewProfile(playerID string, level SkillLevel) Profile {
	if !level.Valid() {
		level = Intermediate
	}
	now := t.now().UTC()
	return Profile{
		PlayerID:   playerID,
		SkillLevel: level,
		Weaknesses: DefaultWeaknesses(),
		FocusAreas: []string{},
		Stats: Stats{
			RecentOutcomes: []bool{},
			EVTrend:        []float64{},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// RecordEvaluation decays every severity, reinforces the identified leak and
// updates the counters. The input profile is left untouched.
//
// Out-of-range severities are clamped to [0, 10]. A malformed leak id or a
// non-finite severity skips reinforcement only, and a non-finite EV delta is
// left out of the EV counters; all of these are reported as issues.
func (t *Tracker) RecordEvaluation(p Profile, e Evaluation) (Profile, []Issue) {
	out := p.Clone()
	issues := Inspect(e)

	out.Weaknesses.scale(t.decay)

	reinforced := ""
	if id := strings.TrimSpace(e.LeakIdentified); id != "" && finite(e.Severity) {
		if cat, leak, err := ParseLeak(id); err == nil {
			sev := clamp(e.Severity, MinEvaluationSeverity, MaxEvaluationSeverity)
			cur, _ := out.Weaknesses.Get(cat, leak)
			out.Weaknesses.Set(cat, leak, cur+sev*t.multiplier)
			reinforced = cat + "." + leak
		}
	}

	now := t.now().UTC()
	st := &out.Stats
	switch {
	case st.LastPlayed == nil || now.Sub(*st.LastPlayed) > t.sessionGap:
		st.SessionCount++
		st.Session = &Session{StartedAt: now, Leaks: []string{}}
	case st.Session == nil:
		// Stored before sessions were tracked; the open session began no later than the last decision.
		st.Session = &Session{StartedAt: *st.LastPlayed, Leaks: []string{}}
	}
	sess := st.Session
	st.ScenariosPlayed++
	sess.Played++
	if e.Correct {
		st.CorrectDecisions++
		sess.Correct++
	}
	st.RecentOutcomes = appendTrimmed(st.RecentOutcomes, e.Correct, t.trendLimit)
	if e.EVDelta != nil && finite(*e.EVDelta) {
		st.EVDelta += *e.EVDelta
		sess.EVDelta += *e.EVDelta
		st.EVTrend = appendTrimmed(st.EVTrend, *e.EVDelta, t.trendLimit)
	}
	if reinforced != "" && !slices.Contains(sess.Leaks, reinforced) {
		sess.Leaks = append(sess.Leaks, reinforced)
	}
	st.LastPlayed = &now
	out.UpdatedAt = now

	out.FocusAreas = t.SelectFocusAreas(out, t.topN)
	return out, issues
}

func appendTrimmed[T any](s []T, v T, limit int) []T {
	s = append(s, v)
	if len(s) > limit {
		s = append(s[:0:0], s[len(s)-limit:]...)
	}
	return s
}

// SelectFocusAreas returns up to topN leak ids, highest severity first.
// Ties keep discovery order and zero-severity leaks are never returned.
// topN <= 0 selects the tracker default.
func (t *Tracker) SelectFocusAreas(p Profile, topN int) []string {
	if topN <= 0 {
		topN = t.topN
	}
	all := p.Weaknesses.All()
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Severity > all[j].Severity
	})
	out := make([]string, 0, topN)
	for _, l := range all {
		if len(out) == topN || l.Severity <= 0 {
			break
		}
		out = append(out, l.ID())
	}
	return out
}

// RecentAccuracy returns the accuracy over the last window decisions and the
// number of decisions it was computed from. Profiles that never recorded an
// outcome history (nil, as in older exports) fall back to lifetime counters;
// an empty history after a promotion yields no data.
func (t *Tracker) RecentAccuracy(p Profile) (float64, int) {
	outcomes := p.Stats.RecentOutcomes
	if outcomes == nil {
		return p.Stats.Accuracy(), p.Stats.ScenariosPlayed
	}
	if len(outcomes) == 0 {
		return 0, 0
	}
	if len(outcomes) > t.window {
		outcomes = outcomes[len(outcomes)-t.window:]
	}
	correct := 0
	for _, ok := range outcomes {
		if ok {
			correct++
		}
	}
	return float64(correct) / float64(len(outcomes)), len(outcomes)
}

// RecommendDifficulty moves the stored level one step based on recent
// accuracy. With no decisions played it returns the stored level.
func (t *Tracker) RecommendDifficulty(p Profile) SkillLevel {
	if p.Stats.ScenariosPlayed <= 0 {
		return p.SkillLevel
	}
	acc, n := t.RecentAccuracy(p)
	if n == 0 {
		return p.SkillLevel
	}
	switch {
	case acc >= t.advanceAt:
		return p.SkillLevel.Up()
	case acc <= t.regressAt:
		return p.SkillLevel.Down()
	default:
		return p.SkillLevel
	}
}

// Promote stores the recommended level on the profile. When the level changes
// the outcome window restarts so the next move is judged on fresh play.
func (t *Tracker) Promote(p Profile) (Profile, bool) {
	next := t.RecommendDifficulty(p)
	if next == p.SkillLevel {
		return p, false
	}
	out := p.Clone()
	out.SkillLevel = next
	out.Stats.RecentOutcomes = []bool{}
	out.UpdatedAt = t.now().UTC()
	return out, true
}

// ImprovementRate is the least-squares slope of the last ten outcomes,
// each scored 1 for correct and 0 otherwise.
func (t *Tracker) ImprovementRate(p Profile) float64 {
	outcomes := p.Stats.RecentOutcomes
	if len(outcomes) > improvementWindow {
		outcomes = outcomes[len(outcomes)-improvementWindow:]
	}
	n := len(outcomes)
	if n < 2 {
		return 0
	}
	xMean := float64(n-1) / 2
	yMean := 0.0
	for _, ok := range outcomes {
		if ok {
			yMean++
		}
	}
	yMean /= float64(n)
	var num, den float64
	for i, ok := range outcomes {
		y := 0.0
		if ok {
			y = 1
		}
		dx := float64(i) - xMean
		num += dx * (y - yMean)
		den += dx * dx
	}
	if den == 0 {
		return 0
	}
	return num / den
}

// Recommendation is the plan for the next training scenario.
type Recommendation struct {
	FocusWeakness   string     `json:"focusWeakness,omitempty"`
	DifficultyLevel SkillLevel `json:"difficultyLevel"`
	ScenarioTypes   []string   `json:"scenarioTypes"`
	SessionGoals    []string   `json:"sessionGoals"`
	RecentAccuracy  float64    `json:"recentAccuracy"`
	ImprovementRate float64    `json:"improvementRate"`
}

var levelCurriculum = map[SkillLevel][]string{
	Beginner:     {"preflop.openingRanges", "preflop.positionAwareness", "preflop.blindDefense"},
	Intermediate: {"postflop.betSizing", "tournament.icmAwareness", "postflop.rangeAnalysis"},
	Advanced:     {"tournament.finalTableDynamics", "postflop.foldEquity", "tournament.bubblePlay"},
	Expert:       {"tournament.finalTableDynamics", "postflop.foldEquity", "tournament.bubblePlay"},
}

// Recommend plans the next scenario: the top leak first, then the level's
// curriculum, deduplicated.
func (t *Tracker) Recommend(p Profile) Recommendation {
	focus := t.SelectFocusAreas(p, t.topN)
	level := t.RecommendDifficulty(p)
	acc, _ := t.RecentAccuracy(p)

	kinds := make([]string, 0, maxScenarioTypes)
	seen := make(map[string]bool)
	for _, id := range append(append([]string(nil), focus...), levelCurriculum[level]...) {
		if seen[id] || len(kinds) == maxScenarioTypes {
			continue
		}
		seen[id] = true
		kinds = append(kinds, id)
	}

	rec := Recommendation{
		DifficultyLevel: level,
		ScenarioTypes:   kinds,
		SessionGoals:    focus[:min(len(focus), maxSessionGoals)],
		RecentAccuracy:  acc,
		ImprovementRate: t.ImprovementRate(p),
	}
	if len(focus) > 0 {
		rec.FocusWeakness = focus[0]
	}
	return rec
}

// SessionSummary describes the player's current or most recent session.
type SessionSummary struct {
	Number             int        `json:"sessionNumber"`
	Active             bool       `json:"active"`
	StartedAt          *time.Time `json:"startedAt,omitempty"`
	LastPlayed         *time.Time `json:"lastPlayed,omitempty"`
	DurationSeconds    float64    `json:"durationSeconds"`
	ScenariosCompleted int        `json:"scenariosCompleted"`
	CorrectDecisions   int        `json:"correctDecisions"`
	Accuracy           float64    `json:"accuracy"`
	EVDelta            float64    `json:"evDelta"`
	LeaksIdentified    []string   `json:"leaksIdentified"`
}

// SessionSummary reports the session in progress, or the last one when the
// player has been away longer than the session gap. An active session runs
// until now; a finished one until its last decision.
func (t *Tracker) SessionSummary(p Profile) SessionSummary {
	out := SessionSummary{Number: p.Stats.SessionCount, LeaksIdentified: []string{}}
	sess, last := p.Stats.Session, p.Stats.LastPlayed
	if sess == nil || last == nil {
		return out
	}
	now := t.now().UTC()
	started, lastPlayed := sess.StartedAt, *last
	out.StartedAt, out.LastPlayed = &started, &lastPlayed
	out.Active = now.Sub(lastPlayed) <= t.sessionGap
	end := lastPlayed
	if out.Active {
		end = now
	}
	if d := end.Sub(started); d > 0 {
		out.DurationSeconds = d.Seconds()
	}
	out.ScenariosCompleted = sess.Played
	out.CorrectDecisions = sess.Correct
	if sess.Played > 0 {
		out.Accuracy = float64(sess.Correct) / float64(sess.Played)
	}
	out.EVDelta = sess.EVDelta
	out.LeaksIdentified = append(out.LeaksIdentified, sess.Leaks...)
	return out
}

// Normalize checks a profile that did not come from this tracker, such as an
// import, and brings it to the shape RecordEvaluation produces: histories
// trimmed to the trend limit, missing slices and taxonomy filled in, focus
// areas recomputed. Counters the tracker could never produce are rejected
// with ErrInvalidProfile.
func (t *Tracker) Normalize(p Profile) (Profile, error) {
	out := p.Clone()
	st := &out.Stats
	switch {
	case st.ScenariosPlayed < 0 || st.CorrectDecisions < 0 || st.SessionCount < 0:
		return Profile{}, fmt.Errorf("%w: negative counter", ErrInvalidProfile)
	case st.CorrectDecisions > st.ScenariosPlayed:
		return Profile{}, fmt.Errorf("%w: %d correct of %d played", ErrInvalidProfile, st.CorrectDecisions, st.ScenariosPlayed)
	case !finite(st.EVDelta):
		return Profile{}, fmt.Errorf("%w: evDelta must be a finite number", ErrInvalidProfile)
	}
	for _, v := range st.EVTrend {
		if !finite(v) {
			return Profile{}, fmt.Errorf("%w: evTrend must hold finite numbers", ErrInvalidProfile)
		}
	}
	if s := st.Session; s != nil {
		if s.Played < 0 || s.Correct < 0 || s.Correct > s.Played || s.Played > st.ScenariosPlayed || !finite(s.EVDelta) {
			return Profile{}, fmt.Errorf("%w: inconsistent session", ErrInvalidProfile)
		}
		if s.Leaks == nil {
			s.Leaks = []string{}
		}
	}

	st.RecentOutcomes = lastN(st.RecentOutcomes, t.trendLimit)
	st.EVTrend = lastN(st.EVTrend, t.trendLimit)
	if out.Weaknesses.Len() == 0 {
		out.Weaknesses = DefaultWeaknesses()
	}
	out.FocusAreas = t.SelectFocusAreas(out, t.topN)
	return out, nil
}

// lastN keeps the newest n entries and never returns nil.
func lastN[T any](s []T, n int) []T {
	if len(s) > n {
		s = s[len(s)-n:]
	}
	return append(make([]T, 0, len(s)), s...)
}
