// Package profile holds the per-player weakness profile and the tracker that
// evolves it from evaluated decisions.
//
// Every tracker operation is a pure transformation: it takes a Profile value,
// returns a new one and never touches shared state. Persisting the result and
// serializing concurrent updates for the same player is the caller's job.
package profile

import (
	"strings"
	"time"
)

// SkillLevel is the difficulty ladder a player moves along.
type SkillLevel string

// Skill levels, lowest to highest.
const (
	Beginner     SkillLevel = "beginner"
	Intermediate SkillLevel = "intermediate"
	Advanced     SkillLevel = "advanced"
	Expert       SkillLevel = "expert"
)

var ladder = []SkillLevel{Beginner, Intermediate, Advanced, Expert}

// ParseSkillLevel accepts any casing and surrounding whitespace.
func ParseSkillLevel(s string) (SkillLevel, error) {
	lvl := SkillLevel(strings.ToLower(strings.TrimSpace(s)))
	if lvl.Valid() {
		return lvl, nil
	}
	return "", ErrUnknownSkillLevel
}

// Valid reports whether l is one of the four ladder levels.
func (l SkillLevel) Valid() bool {
	return l.rank() >= 0
}

func (l SkillLevel) rank() int {
	for i, v := range ladder {
		if v == l {
			return i
		}
	}
	return -1
}

// Up returns the next level, capped at Expert.
func (l SkillLevel) Up() SkillLevel {
	r := l.rank()
	if r < 0 {
		return l
	}
	if r+1 >= len(ladder) {
		return Expert
	}
	return ladder[r+1]
}

// Down returns the previous level, floored at Beginner.
func (l SkillLevel) Down() SkillLevel {
	r := l.rank()
	if r < 0 {
		return l
	}
	if r == 0 {
		return Beginner
	}
	return ladder[r-1]
}

// Profile is everything the coach knows about one player.
type Profile struct {
	PlayerID   string     `json:"playerId"`
	SkillLevel SkillLevel `json:"skillLevel"`
	Weaknesses Weaknesses `json:"weaknesses"`
	Stats      Stats      `json:"stats"`
	// FocusAreas is a cached view of the highest-severity leaks.
	FocusAreas []string  `json:"focusAreas"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Stats are the running counters of a player's training history.
type Stats struct {
	ScenariosPlayed  int        `json:"scenariosPlayed"`
	CorrectDecisions int        `json:"correctDecisions"`
	EVDelta          float64    `json:"evDelta"`
	SessionCount     int        `json:"sessionCount"`
	LastPlayed       *time.Time `json:"lastPlayed,omitempty"`

	// RecentOutcomes holds the newest decisions last, trimmed to the trend limit.
	RecentOutcomes []bool    `json:"recentOutcomes"`
	EVTrend        []float64 `json:"evTrend"`

	// Session is the current or most recent session; nil before the first decision.
	Session *Session `json:"session,omitempty"`
}

// Session counts the decisions since play resumed after a gap.
type Session struct {
	StartedAt time.Time `json:"startedAt"`
	Played    int       `json:"played"`
	Correct   int       `json:"correct"`
	EVDelta   float64   `json:"evDelta"`
	// Leaks lists each leak reinforced in the session once, in first-seen order.
	Leaks []string `json:"leaks"`
}

// Accuracy is the lifetime share of correct decisions, 0 when nothing was played.
func (s Stats) Accuracy() float64 {
	if s.ScenariosPlayed <= 0 {
		return 0
	}
	return float64(s.CorrectDecisions) / float64(s.ScenariosPlayed)
}

// Clone returns a deep copy so the tracker never aliases caller state.
func (p Profile) Clone() Profile {
	out := p
	out.Weaknesses = p.Weaknesses.Clone()
	out.FocusAreas = cloneSlice(p.FocusAreas)
	if p.Stats.LastPlayed != nil {
		t := *p.Stats.LastPlayed
		out.Stats.LastPlayed = &t
	}
	out.Stats.RecentOutcomes = cloneSlice(p.Stats.RecentOutcomes)
	out.Stats.EVTrend = cloneSlice(p.Stats.EVTrend)
	if p.Stats.Session != nil {
		sess := *p.Stats.Session
		sess.Leaks = cloneSlice(sess.Leaks)
		out.Stats.Session = &sess
	}
	return out
}

// cloneSlice keeps nil and empty distinct.
func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}

// conventionalLeaks seeds fresh profiles. Anything else a coach reports is
// appended after these, per category.
var conventionalLeaks = []struct {
	category string
	leaks    []string
}{
	{CategoryPreflop, []string{
		"openingRanges", "threeBetFrequency", "blindDefense", "positionAwareness",
		"stackDepthAdjustments", "stealFrequency", "limpingTendencies", "isolationPlay",
	}},
	{CategoryPostflop, []string{
		"cbetFrequency", "betSizing", "bluffFrequency", "valueBetting", "potControl",
		"boardReading", "rangeAnalysis", "foldEquity", "drawPlay", "riverDecisions",
	}},
	{CategoryTournament, []string{
		"icmAwareness", "bubblePlay", "finalTableDynamics", "stackPreservation",
		"aggressionTiming", "payoutStructure", "riskAssessment", "chipAccumulation",
	}},
}

// Conventional categories.
const (
	CategoryPreflop    = "preflop"
	CategoryPostflop   = "postflop"
	CategoryTournament = "tournament"
)

// DefaultWeaknesses returns the conventional taxonomy with every severity at 0.
func DefaultWeaknesses() Weaknesses {
	var w Weaknesses
	for _, c := range conventionalLeaks {
		for _, l := range c.leaks {
			w.Set(c.category, l, 0)
		}
	}
	return w
}
