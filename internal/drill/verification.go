package drill

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/okian/coach/internal/domain/profile"
	"github.com/okian/coach/pkg/logger"
)

// awaitProfiles polls until every player has played as many scenarios as
// the service accepted for them, or cfg.Settle runs out. It returns the
// last profile seen per player.
func awaitProfiles(ctx context.Context, cfg *Config, players []string, stats *Stats) (map[string]profile.Profile, error) {
	client := newHTTPClient(cfg.Timeout)
	deadline := time.Now().Add(cfg.Settle)
	seen := make(map[string]profile.Profile, len(players))
	pending := append([]string(nil), players...)

	for {
		var still []string
		for _, id := range pending {
			p, err := fetchProfile(ctx, client, cfg.BaseURL, id)
			if err != nil {
				return seen, err
			}
			seen[id] = p
			if p.Stats.ScenariosPlayed < stats.AcceptedFor(id) {
				still = append(still, id)
			}
		}
		pending = still
		if len(pending) == 0 || time.Now().After(deadline) {
			if len(pending) > 0 {
				logger.Get().Warn(ctx, "profiles did not settle", logger.Int("pending", len(pending)))
			}
			return seen, nil
		}
		select {
		case <-ctx.Done():
			return seen, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// verifyProfile checks one settled profile.
func verifyProfile(p profile.Profile, expected int) PlayerResult {
	r := PlayerResult{
		PlayerID: p.PlayerID,
		Expected: expected,
		Played:   p.Stats.ScenariosPlayed,
		Correct:  p.Stats.CorrectDecisions,
		Level:    string(p.SkillLevel),
	}
	if len(p.FocusAreas) > 0 {
		r.Focus = p.FocusAreas[0]
	}
	if r.Played != expected {
		r.Problems = append(r.Problems, fmt.Sprintf("played %d, expected %d", r.Played, expected))
	}
	if r.Correct > r.Played {
		r.Problems = append(r.Problems, fmt.Sprintf("correct %d exceeds played %d", r.Correct, r.Played))
	}

	severity := make(map[string]float64)
	for _, l := range p.Weaknesses.All() {
		if l.Severity < profile.MinSeverity || l.Severity > profile.MaxSeverity {
			r.Problems = append(r.Problems, fmt.Sprintf("%s severity %.2f out of range", l.ID(), l.Severity))
		}
		severity[l.ID()] = l.Severity
	}
	for _, id := range p.FocusAreas {
		if severity[id] <= 0 {
			r.Problems = append(r.Problems, "focus area "+id+" has no severity")
		}
	}
	if !sort.SliceIsSorted(p.FocusAreas, func(i, j int) bool {
		return severity[p.FocusAreas[i]] > severity[p.FocusAreas[j]]
	}) {
		r.Problems = append(r.Problems, "focus areas not sorted by severity")
	}
	return r
}

// verifyResults checks every profile and fails when any has a problem.
func verifyResults(ctx context.Context, profiles map[string]profile.Profile, stats *Stats) ([]PlayerResult, error) {
	results := make([]PlayerResult, 0, len(profiles))
	bad := 0
	for id, p := range profiles {
		r := verifyProfile(p, stats.AcceptedFor(id))
		if len(r.Problems) > 0 {
			bad++
			logger.Get().Error(ctx, "profile inconsistent",
				logger.PlayerID(id),
				logger.Any("problems", r.Problems))
		}
		results = append(results, r)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Played != results[j].Played {
			return results[i].Played > results[j].Played
		}
		return results[i].PlayerID < results[j].PlayerID
	})
	if bad > 0 {
		return results, fmt.Errorf("%d of %d profiles inconsistent", bad, len(results))
	}
	logger.Get().Info(ctx, "all profiles consistent", logger.Int("players", len(results)))
	return results, nil
}
