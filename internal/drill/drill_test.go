package drill

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/coach/internal/adapters/http/api"
	service "github.com/okian/coach/internal/app"
	"github.com/okian/coach/internal/domain/profile"
	"github.com/okian/coach/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func startServer(ctx context.Context) (*httptest.Server, *service.Service) {
	svc := service.New(service.WithWorkerCount(4), service.WithQueueSize(1024))
	if err := svc.Start(ctx); err != nil {
		panic(err)
	}
	return httptest.NewServer(api.NewServer(svc).Handler()), svc
}

func TestGenerator(t *testing.T) {
	Convey("Given a drill config", t, func() {
		cfg := &Config{Players: 8, PerPlayer: 25}
		stats := &Stats{}
		byPlayer := generateEvaluations(context.Background(), cfg, stats)

		Convey("Every player gets its own batch of valid evaluations", func() {
			So(byPlayer, ShouldHaveLength, 8)
			So(stats.Generated, ShouldEqual, 200)

			ids := map[string]bool{}
			for playerID, evs := range byPlayer {
				So(evs, ShouldHaveLength, 25)
				for _, ev := range evs {
					So(ev.PlayerID, ShouldEqual, playerID)
					So(ids[ev.EventID], ShouldBeFalse)
					ids[ev.EventID] = true
					So(ev.EVDelta, ShouldNotBeNil)
					if ev.Correct {
						So(ev.LeakIdentified, ShouldBeEmpty)
						continue
					}
					_, _, err := profile.ParseLeak(ev.LeakIdentified)
					So(err, ShouldBeNil)
					So(ev.Severity, ShouldBeBetweenOrEqual, 1, profile.MaxEvaluationSeverity)
				}
			}
		})
	})

	Convey("Random values stay in [0, 1)", t, func() {
		for i := 0; i < 1000; i++ {
			v := getRandomFloat()
			So(v >= 0 && v < 1, ShouldBeTrue)
		}
		So(randomIndex(0), ShouldEqual, 0)
		So(randomIndex(1), ShouldEqual, 0)
	})
}

func TestVerifyProfile(t *testing.T) {
	Convey("Given a tracked profile", t, func() {
		tr := profile.NewTracker()
		p := tr.NewProfile("p1", profile.Intermediate)
		p, _ = tr.RecordEvaluation(p, profile.Evaluation{LeakIdentified: "preflop.blindDefense", Severity: 6})
		p, _ = tr.RecordEvaluation(p, profile.Evaluation{LeakIdentified: "postflop.betSizing", Severity: 9})
		p, _ = tr.RecordEvaluation(p, profile.Evaluation{Correct: true})

		Convey("A matching count passes", func() {
			r := verifyProfile(p, 3)
			So(r.Problems, ShouldBeEmpty)
			So(r.Focus, ShouldEqual, "postflop.betSizing")
			So(r.Correct, ShouldEqual, 1)
		})

		Convey("A missing evaluation is reported", func() {
			r := verifyProfile(p, 4)
			So(r.Problems, ShouldHaveLength, 1)
			So(r.Problems[0], ShouldContainSubstring, "expected 4")
		})

		Convey("Bad focus order and idle focus areas are reported", func() {
			p.Weaknesses.Set("preflop", "blindDefense", 90)
			p.FocusAreas = []string{"postflop.betSizing", "preflop.blindDefense", "tournament.bubblePlay"}
			r := verifyProfile(p, 3)
			joined := strings.Join(r.Problems, "\n")
			So(joined, ShouldContainSubstring, "not sorted")
			So(joined, ShouldContainSubstring, "tournament.bubblePlay has no severity")
		})
	})
}

func TestRun(t *testing.T) {
	Convey("Given a running coach server", t, func() {
		ctx := context.Background()
		srv, svc := startServer(ctx)
		Reset(func() {
			srv.Close()
			_ = svc.Stop(ctx)
		})

		Convey("A drill submits, settles and verifies every profile", func() {
			out := filepath.Join(t.TempDir(), "evals", "drill.json")
			report, err := Run(ctx, &Config{
				BaseURL:    srv.URL,
				Players:    6,
				PerPlayer:  30,
				Workers:    3,
				Timeout:    5 * time.Second,
				Settle:     10 * time.Second,
				OutputFile: out,
			})
			So(err, ShouldBeNil)
			So(report.Results, ShouldHaveLength, 6)
			So(report.Stats.Accepted.Load(), ShouldEqual, 180)
			So(report.Stats.Failed.Load(), ShouldEqual, 0)
			for _, r := range report.Results {
				So(r.Played, ShouldEqual, 30)
				So(r.Problems, ShouldBeEmpty)
			}

			raw, err := os.ReadFile(out)
			So(err, ShouldBeNil)
			var saved []Evaluation
			So(json.Unmarshal(raw, &saved), ShouldBeNil)
			So(saved, ShouldHaveLength, 180)

			Convey("And the summary renders", func() {
				text, err := report.Render(false)
				So(err, ShouldBeNil)
				So(text, ShouldContainSubstring, "coach drill")
				So(text, ShouldContainSubstring, report.Results[0].PlayerID)
			})
		})
	})

	Convey("Given an unhealthy service", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		report, err := Run(context.Background(), &Config{BaseURL: srv.URL, Players: 1, PerPlayer: 1})
		So(report, ShouldBeNil)
		So(err, ShouldNotBeNil)
		So(err.Error(), ShouldContainSubstring, "health check")
	})
}

func TestSubmitSingle(t *testing.T) {
	Convey("Given a server that throttles once", t, func() {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"duplicate","duplicate":true}`))
		}))
		defer srv.Close()

		stats := &Stats{}
		res := submitSingle(context.Background(), newHTTPClient(time.Second), srv.URL, Evaluation{EventID: "e1", PlayerID: "p"}, stats)
		So(res, ShouldEqual, resultDuplicate)
		So(stats.Throttled.Load(), ShouldEqual, 1)
		So(calls.Load(), ShouldEqual, 2)
	})
}
