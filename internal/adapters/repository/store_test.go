package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/coach/internal/domain/profile"
)

func sampleProfile(t *profile.Tracker, id string) profile.Profile {
	p := t.NewProfile(id, profile.Intermediate)
	p, _ = t.RecordEvaluation(p, profile.Evaluation{LeakIdentified: "postflop.cbetTooOften", Severity: 7})
	p, _ = t.RecordEvaluation(p, profile.Evaluation{Correct: true})
	return p
}

// exerciseStore runs the behaviour every backend must share.
func exerciseStore(ctx context.Context, s Store) {
	tr := profile.NewTracker()

	Convey("Get on an unknown player is ErrNotFound", func() {
		_, err := s.Get(ctx, "nobody")
		So(errors.Is(err, ErrNotFound), ShouldBeTrue)
	})

	Convey("Blank player ids are rejected", func() {
		_, err := s.Get(ctx, "  ")
		So(errors.Is(err, ErrInvalidPlayerID), ShouldBeTrue)
		So(errors.Is(s.Put(ctx, "", profile.Profile{}), ErrInvalidPlayerID), ShouldBeTrue)
	})

	Convey("A stored profile reads back equal", func() {
		p := sampleProfile(tr, "alice")
		So(s.Put(ctx, "alice", p), ShouldBeNil)

		got, err := s.Get(ctx, "alice")
		So(err, ShouldBeNil)
		So(got.PlayerID, ShouldEqual, "alice")
		So(got.SkillLevel, ShouldEqual, profile.Intermediate)
		So(got.Stats.ScenariosPlayed, ShouldEqual, 2)
		So(got.Stats.CorrectDecisions, ShouldEqual, 1)
		So(got.Stats.RecentOutcomes, ShouldResemble, []bool{false, true})

		want, _ := p.Weaknesses.Get("postflop", "cbetTooOften")
		v, ok := got.Weaknesses.Get("postflop", "cbetTooOften")
		So(ok, ShouldBeTrue)
		So(v, ShouldAlmostEqual, want, 1e-9)
		So(got.Weaknesses.Categories(), ShouldResemble, p.Weaknesses.Categories())

		Convey("And a second Put overwrites it", func() {
			p.SkillLevel = profile.Advanced
			So(s.Put(ctx, "alice", p), ShouldBeNil)
			got, err := s.Get(ctx, "alice")
			So(err, ShouldBeNil)
			So(got.SkillLevel, ShouldEqual, profile.Advanced)

			n, err := s.Count(ctx)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 1)
		})

		Convey("And Delete removes it", func() {
			So(s.Delete(ctx, "alice"), ShouldBeNil)
			_, err := s.Get(ctx, "alice")
			So(errors.Is(err, ErrNotFound), ShouldBeTrue)
			So(s.Delete(ctx, "alice"), ShouldBeNil)
		})
	})

	Convey("List pages through ids in order", func() {
		for i := 4; i >= 0; i-- {
			id := fmt.Sprintf("p%d", i)
			So(s.Put(ctx, id, tr.NewProfile(id, profile.Beginner)), ShouldBeNil)
		}
		ids, err := s.List(ctx, 2, 0)
		So(err, ShouldBeNil)
		So(ids, ShouldResemble, []string{"p0", "p1"})

		ids, err = s.List(ctx, 2, 4)
		So(err, ShouldBeNil)
		So(ids, ShouldResemble, []string{"p4"})

		ids, err = s.List(ctx, 10, 50)
		So(err, ShouldBeNil)
		So(ids, ShouldBeEmpty)

		n, err := s.Count(ctx)
		So(err, ShouldBeNil)
		So(n, ShouldEqual, 5)
	})
}

func TestMemoryStore(t *testing.T) {
	Convey("Given a memory store", t, func() {
		ctx := context.Background()
		s := NewMemoryStore()
		So(s.Driver(), ShouldEqual, DriverMemory)

		exerciseStore(ctx, s)

		Convey("Stored profiles are isolated from caller mutation", func() {
			tr := profile.NewTracker()
			p := sampleProfile(tr, "bob")
			So(s.Put(ctx, "bob", p), ShouldBeNil)
			p.Weaknesses.Set("postflop", "cbetTooOften", 99)
			p.Stats.RecentOutcomes[0] = true

			got, _ := s.Get(ctx, "bob")
			v, _ := got.Weaknesses.Get("postflop", "cbetTooOften")
			So(v, ShouldBeLessThan, 99)
			So(got.Stats.RecentOutcomes[0], ShouldBeFalse)
		})

		Convey("A closed store refuses work", func() {
			So(s.Close(), ShouldBeNil)
			_, err := s.Get(ctx, "x")
			So(errors.Is(err, ErrClosed), ShouldBeTrue)
			So(errors.Is(s.Put(ctx, "x", profile.Profile{}), ErrClosed), ShouldBeTrue)
		})
	})
}

func TestSQLiteStore(t *testing.T) {
	Convey("Given an in-memory sqlite store", t, func() {
		ctx := context.Background()
		s, err := NewSQLiteStore(ctx, ":memory:", time.Second)
		So(err, ShouldBeNil)
		Reset(func() { _ = s.Close() })
		So(s.Driver(), ShouldEqual, DriverSQLite)

		exerciseStore(ctx, s)
	})

	Convey("Given a sqlite file in a directory that does not exist yet", t, func() {
		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "nested", "coach.db")
		s, err := Open(ctx, WithDriver(DriverSQLite), WithSQLitePath(path))
		So(err, ShouldBeNil)

		tr := profile.NewTracker()
		So(s.Put(ctx, "carol", sampleProfile(tr, "carol")), ShouldBeNil)
		So(s.Close(), ShouldBeNil)

		Convey("The profile survives a reopen", func() {
			_, statErr := os.Stat(path)
			So(statErr, ShouldBeNil)

			s2, err := Open(ctx, WithDriver(DriverSQLite), WithSQLitePath(path))
			So(err, ShouldBeNil)
			defer s2.Close()
			got, err := s2.Get(ctx, "carol")
			So(err, ShouldBeNil)
			So(got.Stats.ScenariosPlayed, ShouldEqual, 2)
		})
	})
}

func TestPostgresStores(t *testing.T) {
	dsn := os.Getenv("COACH_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("COACH_TEST_POSTGRES_DSN not set")
	}
	for _, driver := range []string{DriverPostgres, DriverPgx} {
		Convey("Given a "+driver+" store", t, func() {
			ctx := context.Background()
			s, err := Open(ctx, WithDriver(driver), WithDSN(dsn))
			So(err, ShouldBeNil)
			Reset(func() {
				ids, _ := s.List(ctx, 1000, 0)
				for _, id := range ids {
					_ = s.Delete(ctx, id)
				}
				_ = s.Close()
			})
			So(s.Driver(), ShouldEqual, driver)

			exerciseStore(ctx, s)
		})
	}
}

func TestOpen(t *testing.T) {
	Convey("Open", t, func() {
		ctx := context.Background()

		Convey("defaults to memory", func() {
			s, err := Open(ctx)
			So(err, ShouldBeNil)
			So(s.Driver(), ShouldEqual, DriverMemory)
		})

		Convey("rejects unknown drivers", func() {
			s, err := Open(ctx, WithDriver("cassandra"))
			So(s, ShouldBeNil)
			So(errors.Is(err, ErrUnknownDriver), ShouldBeTrue)
		})

		Convey("needs a dsn for postgres", func() {
			s, err := Open(ctx, WithDriver(DriverPostgres))
			So(s, ShouldBeNil)
			So(err, ShouldNotBeNil)

			s, err = Open(ctx, WithDriver(DriverPgx))
			So(s, ShouldBeNil)
			So(err, ShouldNotBeNil)
		})
	})
}
