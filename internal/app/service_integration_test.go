package service_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/coach/internal/adapters/llm"
	"github.com/okian/coach/internal/adapters/repository"
	service "github.com/okian/coach/internal/app"
	"github.com/okian/coach/internal/domain/coach"
	"github.com/okian/coach/internal/domain/profile"
)

const bubbleSpot = `{
  "scenario_id": "spot-1",
  "tournament_stage": "bubble",
  "hero_position": "CO",
  "hero_stack": 1800,
  "hero_cards": ["Qs", "Qd"],
  "blinds": {"small": 50, "big": 100},
  "board": [],
  "pot_size": 150,
  "to_call": 0,
  "valid_actions": ["fold", "call", "raise"]
}`

// scriptedModel answers completions from a queue.
type scriptedModel struct {
	mu      sync.Mutex
	replies []string
	calls   int
}

func (m *scriptedModel) Complete(_ context.Context, _ llm.Request) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if len(m.replies) == 0 {
		return "", errors.New("no scripted reply")
	}
	out := m.replies[0]
	m.replies = m.replies[1:]
	return out, nil
}

func TestServiceIntegration(t *testing.T) {
	Convey("Given a service backed by sqlite", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		path := filepath.Join(t.TempDir(), "coach.db")
		store, err := repository.Open(ctx, repository.WithDriver(repository.DriverSQLite), repository.WithSQLitePath(path))
		So(err, ShouldBeNil)

		svc := service.New(
			service.WithWorkerCount(4),
			service.WithQueueSize(1000),
			service.WithDedupeSize(500),
			service.WithStore(store),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop(ctx)

		Convey("When many players submit evaluations concurrently", func() {
			const players, perPlayer = 5, 20
			var wg sync.WaitGroup
			errs := make(chan error, players*perPlayer)
			for p := 0; p < players; p++ {
				wg.Add(1)
				go func(p int) {
					defer wg.Done()
					for i := 0; i < perPlayer; i++ {
						_, err := svc.Submit(ctx, fmt.Sprintf("p%d-e%d", p, i), fmt.Sprintf("player-%d", p),
							profile.Evaluation{Correct: i%2 == 0, LeakIdentified: "postflop.betSizing", Severity: 3})
						if err != nil {
							errs <- err
						}
					}
				}(p)
			}
			wg.Wait()
			close(errs)
			So(len(errs), ShouldEqual, 0)

			Convey("Then every evaluation is applied exactly once", func() {
				So(eventually(func() bool {
					for p := 0; p < players; p++ {
						got, err := svc.Profile(ctx, fmt.Sprintf("player-%d", p))
						if err != nil || got.Stats.ScenariosPlayed != perPlayer {
							return false
						}
					}
					return true
				}), ShouldBeTrue)

				got, _ := svc.Profile(ctx, "player-0")
				So(got.Stats.CorrectDecisions, ShouldEqual, perPlayer/2)
				So(got.FocusAreas, ShouldResemble, []string{"postflop.betSizing"})

				d, err := svc.Difficulty(ctx, "player-0")
				So(err, ShouldBeNil)
				So(d.RecentAccuracy, ShouldEqual, 0.5)
				So(d.Recommended, ShouldEqual, profile.Intermediate)

				stats := svc.GetStats()
				So(stats["totalProfiles"], ShouldEqual, players)
				So(stats["storeDriver"], ShouldEqual, repository.DriverSQLite)
			})

			Convey("And replaying the same ids changes nothing", func() {
				for i := 0; i < perPlayer; i++ {
					sub, err := svc.Submit(ctx, fmt.Sprintf("p0-e%d", i), "player-0", profile.Evaluation{Correct: true})
					So(err, ShouldBeNil)
					So(sub.Duplicate, ShouldBeTrue)
				}
			})
		})

		Convey("When the LLM is not configured", func() {
			_, err := svc.NextScenario(ctx, "p1", coach.ScenarioRequest{})
			So(errors.Is(err, service.ErrNoLLM), ShouldBeTrue)
			_, err = svc.EvaluateDecision(ctx, "p1", coach.Scenario{}, "fold", time.Second)
			So(errors.Is(err, service.ErrNoLLM), ShouldBeTrue)
		})
	})
}

func TestServiceCoaching(t *testing.T) {
	Convey("Given a service with a scripted model", t, func() {
		ctx := context.Background()
		model := &scriptedModel{}
		svc := service.New(service.WithWorkerCount(1), service.WithLLM(model))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop(ctx)
		So(svc.GetStats()["llmEnabled"], ShouldEqual, true)

		_, _, err := svc.Record(ctx, "hero", profile.Evaluation{LeakIdentified: "tournament.bubblePlay", Severity: 6})
		So(err, ShouldBeNil)

		Convey("NextScenario targets the top leak", func() {
			model.replies = []string{bubbleSpot}
			sc, err := svc.NextScenario(ctx, "hero", coach.ScenarioRequest{Stage: "bubble"})
			So(err, ShouldBeNil)
			So(sc.ScenarioID, ShouldEqual, "spot-1")
			So(sc.FocusWeakness, ShouldEqual, "tournament.bubblePlay")
			So(sc.Difficulty, ShouldEqual, string(profile.Beginner))

			Convey("And EvaluateDecision records the verdict", func() {
				model.replies = []string{`{"correct": false, "mistake_analysis": {"leak_type": "tournament.bubble_play", "severity": 7}}`}
				res, err := svc.EvaluateDecision(ctx, "hero", sc, "fold", 4*time.Second)
				So(err, ShouldBeNil)
				So(res.Evaluation.LeakIdentified, ShouldEqual, "tournament.bubblePlay")
				So(res.Profile.Stats.ScenariosPlayed, ShouldEqual, 2)

				v, _ := res.Profile.Weaknesses.Get("tournament", "bubblePlay")
				So(v, ShouldAlmostEqual, 12*0.98+14, 1e-9)
			})
		})

		Convey("Invalid model output is surfaced and nothing is recorded", func() {
			model.replies = []string{`{"verdict": "looks fine"}`}
			sc, _ := coach.ParseScenario(bubbleSpot)
			_, err := svc.EvaluateDecision(ctx, "hero", sc, "call", time.Second)
			So(errors.Is(err, coach.ErrInvalidResponse), ShouldBeTrue)

			p, _ := svc.Profile(ctx, "hero")
			So(p.Stats.ScenariosPlayed, ShouldEqual, 1)
		})

		Convey("An action outside the scenario is rejected before calling the model", func() {
			sc, _ := coach.ParseScenario(bubbleSpot)
			_, err := svc.EvaluateDecision(ctx, "hero", sc, "limp", time.Second)
			So(errors.Is(err, coach.ErrInvalidRequest), ShouldBeTrue)
			So(model.calls, ShouldEqual, 0)
		})
	})
}
