package model_test

import (
	"testing"
	"time"

	model "github.com/okian/coach/internal/domain/model"
	"github.com/okian/coach/internal/domain/profile"
	"github.com/smartystreets/goconvey/convey"
)

func TestEvaluationEvent(t *testing.T) {
	convey.Convey("Given an evaluation event", t, func() {
		received := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
		ev := model.EvaluationEvent{
			EventID:    "eval-1",
			PlayerID:   "p1",
			Evaluation: profile.Evaluation{LeakIdentified: "preflop.blindDefense", Severity: 4},
			ReceivedAt: received,
		}

		convey.Convey("Then it is keyed by player", func() {
			convey.So(ev.Key(), convey.ShouldEqual, "p1")
		})

		convey.Convey("Then its age is measured from acceptance", func() {
			convey.So(ev.Age(received.Add(250*time.Millisecond)), convey.ShouldEqual, 250*time.Millisecond)
		})

		convey.Convey("Then an event without a timestamp has no age", func() {
			convey.So(model.EvaluationEvent{}.Age(received), convey.ShouldEqual, time.Duration(0))
		})
	})
}
