package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	service "github.com/okian/coach/internal/app"
	"github.com/okian/coach/internal/config"
	"github.com/okian/coach/internal/domain/profile"
	"github.com/okian/coach/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func startService(ctx context.Context, opts ...service.Option) *service.Service {
	svc := service.New(append([]service.Option{service.WithWorkerCount(2), service.WithQueueSize(64)}, opts...)...)
	So(svc.Start(ctx), ShouldBeNil)
	return svc
}

// eventually polls cond for up to two seconds.
func eventually(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		svc := service.New(service.WithShardCount(2))

		Convey("Stats work before Start", func() {
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, false)
			So(stats["llmEnabled"], ShouldEqual, false)
		})

		Convey("Submit is refused before Start", func() {
			_, err := svc.Submit(ctx, "e1", "p1", profile.Evaluation{})
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})

		Convey("Start then Stop", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.GetStats()["started"], ShouldEqual, true)
			So(svc.GetStats()["storeDriver"], ShouldEqual, "memory")

			So(svc.Stop(ctx), ShouldBeNil)
			So(svc.GetStats()["started"], ShouldEqual, false)
			So(errors.Is(svc.Start(ctx), service.ErrStopped), ShouldBeTrue)

			_, err := svc.Submit(ctx, "e1", "p1", profile.Evaluation{})
			So(errors.Is(err, service.ErrStopped), ShouldBeTrue)
		})
	})
}

func TestService_Record(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := startService(ctx)
		defer svc.Stop(ctx)

		Convey("An unknown player reads as the default profile without being stored", func() {
			p, err := svc.Profile(ctx, "ghost")
			So(err, ShouldBeNil)
			So(p.SkillLevel, ShouldEqual, profile.Intermediate)
			So(p.Stats.ScenariosPlayed, ShouldEqual, 0)
			So(svc.GetStats()["totalProfiles"], ShouldEqual, 0)
		})

		Convey("Record applies decay then reinforcement and persists", func() {
			p, issues, err := svc.Record(ctx, "p1", profile.Evaluation{LeakIdentified: "preflop.threeBetTooTight", Severity: 8})
			So(err, ShouldBeNil)
			So(issues, ShouldBeEmpty)
			v, _ := p.Weaknesses.Get("preflop", "threeBetTooTight")
			So(v, ShouldEqual, 16)

			stored, err := svc.Profile(ctx, "p1")
			So(err, ShouldBeNil)
			So(stored.FocusAreas, ShouldResemble, []string{"preflop.threeBetTooTight"})
			So(svc.GetStats()["totalProfiles"], ShouldEqual, 1)
		})

		Convey("Degradations come back as issues", func() {
			_, issues, err := svc.Record(ctx, "p1", profile.Evaluation{LeakIdentified: "garbage", Severity: 42})
			So(err, ShouldBeNil)
			So(len(issues), ShouldEqual, 2)
			So(svc.GetStats()["degraded"], ShouldEqual, int64(2))
		})

		Convey("Non-finite input and blank ids are rejected", func() {
			bad := -1.0
			_, _, err := svc.Record(ctx, "p1", profile.Evaluation{Severity: nanValue()})
			So(errors.Is(err, profile.ErrInvalidEvaluation), ShouldBeTrue)
			_, _, err = svc.Record(ctx, " ", profile.Evaluation{EVDelta: &bad})
			So(errors.Is(err, service.ErrInvalidPlayerID), ShouldBeTrue)
		})
	})
}

func TestService_Submit(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := startService(ctx)
		defer svc.Stop(ctx)

		Convey("A submitted evaluation is applied by the workers", func() {
			sub, err := svc.Submit(ctx, "e-1", "p1", profile.Evaluation{Correct: true})
			So(err, ShouldBeNil)
			So(sub.Duplicate, ShouldBeFalse)
			So(eventually(func() bool {
				p, _ := svc.Profile(ctx, "p1")
				return p.Stats.ScenariosPlayed == 1
			}), ShouldBeTrue)

			Convey("And resubmitting the same id is a duplicate", func() {
				sub, err := svc.Submit(ctx, "e-1", "p1", profile.Evaluation{Correct: true})
				So(err, ShouldBeNil)
				So(sub.Duplicate, ShouldBeTrue)
			})
		})

		Convey("A blank id is generated", func() {
			sub, err := svc.Submit(ctx, "", "p2", profile.Evaluation{Severity: 11})
			So(err, ShouldBeNil)
			So(sub.EventID, ShouldNotBeEmpty)
			So(sub.Warnings, ShouldResemble, []profile.Issue{{Field: "severity", Reason: profile.ReasonSeverityClamped}})
		})
	})
}

func TestService_SeenAndRecord(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := startService(ctx)
		defer svc.Stop(ctx)

		So(svc.SeenAndRecord(ctx, "event-123"), ShouldBeFalse)
		So(svc.SeenAndRecord(ctx, "event-123"), ShouldBeTrue)
		svc.Unrecord(ctx, "event-123")
		So(svc.SeenAndRecord(ctx, "event-123"), ShouldBeFalse)
	})
}

func TestService_Profiles(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := startService(ctx, service.WithDefaultSkillLevel(profile.Beginner))
		defer svc.Stop(ctx)

		Convey("CreateProfile stores the requested level once", func() {
			p, err := svc.CreateProfile(ctx, "p1", profile.Advanced)
			So(err, ShouldBeNil)
			So(p.SkillLevel, ShouldEqual, profile.Advanced)

			p, err = svc.CreateProfile(ctx, "p1", profile.Beginner)
			So(errors.Is(err, service.ErrProfileExists), ShouldBeTrue)
			So(p.SkillLevel, ShouldEqual, profile.Advanced)
		})

		Convey("The default level applies to new players", func() {
			p, err := svc.Profile(ctx, "new")
			So(err, ShouldBeNil)
			So(p.SkillLevel, ShouldEqual, profile.Beginner)
		})

		Convey("Twenty correct decisions recommend and then promote a level", func() {
			for i := 0; i < 20; i++ {
				_, _, err := svc.Record(ctx, "p2", profile.Evaluation{Correct: true})
				So(err, ShouldBeNil)
			}
			d, err := svc.Difficulty(ctx, "p2")
			So(err, ShouldBeNil)
			So(d.Current, ShouldEqual, profile.Beginner)
			So(d.Recommended, ShouldEqual, profile.Intermediate)
			So(d.RecentAccuracy, ShouldEqual, 1.0)
			So(d.WindowSize, ShouldEqual, 20)

			p, changed, err := svc.PromoteSkill(ctx, "p2")
			So(err, ShouldBeNil)
			So(changed, ShouldBeTrue)
			So(p.SkillLevel, ShouldEqual, profile.Intermediate)

			stored, _ := svc.Profile(ctx, "p2")
			So(stored.SkillLevel, ShouldEqual, profile.Intermediate)
		})

		Convey("Focus areas and recommendations follow the leaks", func() {
			_, _, _ = svc.Record(ctx, "p3", profile.Evaluation{LeakIdentified: "tournament.bubblePlay", Severity: 9})
			_, _, _ = svc.Record(ctx, "p3", profile.Evaluation{LeakIdentified: "postflop.cbetTooOften", Severity: 4})

			focus, err := svc.FocusAreas(ctx, "p3", 1)
			So(err, ShouldBeNil)
			So(focus, ShouldResemble, []string{"tournament.bubblePlay"})

			rec, err := svc.Recommendations(ctx, "p3")
			So(err, ShouldBeNil)
			So(rec.FocusWeakness, ShouldEqual, "tournament.bubblePlay")
			So(rec.ScenarioTypes[0], ShouldEqual, "tournament.bubblePlay")
		})
	})
}

func TestService_ExportImport(t *testing.T) {
	Convey("Given a player with history", t, func() {
		ctx := context.Background()
		svc := startService(ctx)
		defer svc.Stop(ctx)
		_, _, err := svc.Record(ctx, "p1", profile.Evaluation{LeakIdentified: "postflop.missingValue", Severity: 9})
		So(err, ShouldBeNil)

		doc, err := svc.Export(ctx, "p1")
		So(err, ShouldBeNil)
		So(doc.Version, ShouldEqual, service.ExportVersion)

		Convey("Import into a second service restores it", func() {
			other := startService(ctx)
			defer other.Stop(ctx)
			p, err := other.Import(ctx, doc, false)
			So(err, ShouldBeNil)
			So(p.FocusAreas, ShouldResemble, []string{"postflop.missingValue"})

			got, _ := other.Profile(ctx, "p1")
			v, _ := got.Weaknesses.Get("postflop", "missingValue")
			So(v, ShouldEqual, 18)
		})

		Convey("Import refuses to overwrite unless asked", func() {
			_, err := svc.Import(ctx, doc, false)
			So(errors.Is(err, service.ErrProfileExists), ShouldBeTrue)
			_, err = svc.Import(ctx, doc, true)
			So(err, ShouldBeNil)
		})

		Convey("Import rejects unknown versions and levels", func() {
			bad := doc
			bad.Version = 99
			_, err := svc.Import(ctx, bad, true)
			So(errors.Is(err, service.ErrInvalidExport), ShouldBeTrue)

			bad = doc
			bad.Profile.SkillLevel = "godlike"
			_, err = svc.Import(ctx, bad, true)
			So(errors.Is(err, service.ErrInvalidExport), ShouldBeTrue)
		})

		Convey("Import rejects counters the tracker cannot produce", func() {
			bad := doc
			bad.Profile = doc.Profile.Clone()
			bad.Profile.Stats.CorrectDecisions = bad.Profile.Stats.ScenariosPlayed + 1
			_, err := svc.Import(ctx, bad, true)
			So(errors.Is(err, service.ErrInvalidExport), ShouldBeTrue)
			So(errors.Is(err, profile.ErrInvalidProfile), ShouldBeTrue)

			bad.Profile = doc.Profile.Clone()
			bad.Profile.Stats.ScenariosPlayed = -4
			_, err = svc.Import(ctx, bad, true)
			So(errors.Is(err, service.ErrInvalidExport), ShouldBeTrue)
		})

		Convey("Import trims oversized histories", func() {
			big := doc
			big.Profile = doc.Profile.Clone()
			big.Profile.PlayerID = "p2"
			big.Profile.Stats.ScenariosPlayed = 500
			for i := 0; i < 400; i++ {
				big.Profile.Stats.RecentOutcomes = append(big.Profile.Stats.RecentOutcomes, true)
				big.Profile.Stats.EVTrend = append(big.Profile.Stats.EVTrend, 0.1)
			}
			p, err := svc.Import(ctx, big, false)
			So(err, ShouldBeNil)
			So(p.Stats.RecentOutcomes, ShouldHaveLength, profile.DefaultTrendLimit)
			So(p.Stats.EVTrend, ShouldHaveLength, profile.DefaultTrendLimit)
		})
	})
}

func TestService_SessionSummary(t *testing.T) {
	Convey("Given a service", t, func() {
		ctx := context.Background()
		svc := startService(ctx)
		defer svc.Stop(ctx)

		_, _, err := svc.Record(ctx, "p1", profile.Evaluation{LeakIdentified: "tournament.bubblePlay", Severity: 3})
		So(err, ShouldBeNil)
		_, _, err = svc.Record(ctx, "p1", profile.Evaluation{Correct: true})
		So(err, ShouldBeNil)

		sum, err := svc.SessionSummary(ctx, "p1")
		So(err, ShouldBeNil)
		So(sum.Number, ShouldEqual, 1)
		So(sum.Active, ShouldBeTrue)
		So(sum.ScenariosCompleted, ShouldEqual, 2)
		So(sum.Accuracy, ShouldEqual, 0.5)
		So(sum.LeaksIdentified, ShouldResemble, []string{"tournament.bubblePlay"})

		_, err = svc.SessionSummary(ctx, " ")
		So(errors.Is(err, service.ErrInvalidPlayerID), ShouldBeTrue)
	})
}

func TestOptionsFromConfig(t *testing.T) {
	Convey("Given a config with custom tracker tuning and providers", t, func() {
		cfg := config.New()
		cfg.DecayFactor = 0.5
		cfg.DefaultSkillLevel = "expert"
		cfg.LLMProviders = "ollama, openai, nope"
		cfg.OpenAIAPIKey = "k"
		cfg.OllamaBaseURL = "http://127.0.0.1:11434"

		Convey("ProviderConfigs keeps priority order and skips unknown names", func() {
			pcs := service.ProviderConfigs(cfg)
			So(len(pcs), ShouldEqual, 2)
			So(pcs[0].Name, ShouldEqual, "ollama")
			So(pcs[1].Name, ShouldEqual, "openai")
			So(pcs[1].APIKey, ShouldEqual, "k")
		})

		Convey("Options wire the tracker and default level", func() {
			ctx := context.Background()
			svc := service.New(service.Options(cfg)...)
			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop(ctx)

			p, _, err := svc.Record(ctx, "p1", profile.Evaluation{LeakIdentified: "preflop.x", Severity: 5})
			So(err, ShouldBeNil)
			So(p.SkillLevel, ShouldEqual, profile.Expert)
			p, _, _ = svc.Record(ctx, "p1", profile.Evaluation{})
			v, _ := p.Weaknesses.Get("preflop", "x")
			So(v, ShouldEqual, 5)
		})
	})
}

func nanValue() float64 {
	zero := 0.0
	return zero / zero
}
