package drill

import (
	"context"
	"crypto/rand"
	"math/big"

	"github.com/google/uuid"

	"github.com/okian/coach/internal/domain/profile"
	"github.com/okian/coach/pkg/logger"
)

const randomFloatDivisor = 1_000_000

// Player archetypes. Each one has a hit rate and a short list of pet leaks
// that most of its mistakes land on.
type archetype struct {
	name     string
	hitRate  float64
	petLeaks int
}

var archetypes = []archetype{
	{name: "nit", hitRate: 0.55, petLeaks: 2},
	{name: "regular", hitRate: 0.7, petLeaks: 3},
	{name: "crusher", hitRate: 0.9, petLeaks: 1},
	{name: "fish", hitRate: 0.35, petLeaks: 5},
}

// getRandomFloat returns a value in [0, 1) from crypto/rand.
func getRandomFloat() float64 {
	n, err := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	if err != nil {
		return 0
	}
	return float64(n.Int64()) / randomFloatDivisor
}

func randomIndex(n int) int {
	if n <= 1 {
		return 0
	}
	return int(getRandomFloat() * float64(n))
}

// leakCatalogue lists every conventional leak id.
func leakCatalogue() []string {
	all := profile.DefaultWeaknesses().All()
	ids := make([]string, 0, len(all))
	for _, l := range all {
		ids = append(ids, l.ID())
	}
	return ids
}

// generateEvaluations builds cfg.PerPlayer evaluations for each of
// cfg.Players fresh players, grouped by player.
func generateEvaluations(ctx context.Context, cfg *Config, stats *Stats) map[string][]Evaluation {
	catalogue := leakCatalogue()
	out := make(map[string][]Evaluation, cfg.Players)
	for i := 0; i < cfg.Players; i++ {
		playerID := uuid.NewString()
		a := archetypes[i%len(archetypes)]
		pets := make([]string, a.petLeaks)
		for j := range pets {
			pets[j] = catalogue[randomIndex(len(catalogue))]
		}
		evs := make([]Evaluation, cfg.PerPlayer)
		for j := range evs {
			evs[j] = generateSingleEvaluation(playerID, a, pets, catalogue)
		}
		out[playerID] = evs
		stats.Generated += len(evs)
	}
	logger.Get().Info(ctx, "evaluations generated",
		logger.Int("players", cfg.Players),
		logger.Int("evaluations", stats.Generated))
	return out
}

func generateSingleEvaluation(playerID string, a archetype, pets, catalogue []string) Evaluation {
	ev := Evaluation{EventID: uuid.NewString(), PlayerID: playerID}
	if getRandomFloat() < a.hitRate {
		ev.Correct = true
		delta := getRandomFloat() * 0.5
		ev.EVDelta = &delta
		return ev
	}
	// Four in five mistakes come from a pet leak.
	if getRandomFloat() < 0.8 {
		ev.LeakIdentified = pets[randomIndex(len(pets))]
	} else {
		ev.LeakIdentified = catalogue[randomIndex(len(catalogue))]
	}
	ev.Severity = float64(1 + randomIndex(profile.MaxEvaluationSeverity))
	delta := -ev.Severity / 4
	ev.EVDelta = &delta
	return ev
}
