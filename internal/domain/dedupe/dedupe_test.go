package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	dedupe "github.com/okian/coach/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	Convey("Given a new deduper", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper()
		So(d.Size(), ShouldEqual, 0)

		Convey("When an evaluation id is new", func() {
			seen := d.SeenAndRecord(ctx, "eval-1")
			So(seen, ShouldBeFalse)
			So(d.Size(), ShouldEqual, 1)

			Convey("Then the second submission is a duplicate", func() {
				So(d.SeenAndRecord(ctx, "eval-1"), ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})

			Convey("Then an unrecorded id can be submitted again", func() {
				d.Unrecord(ctx, "eval-1")
				So(d.Size(), ShouldEqual, 0)
				So(d.SeenAndRecord(ctx, "eval-1"), ShouldBeFalse)
			})
		})

		Convey("When an unknown id is unrecorded", func() {
			d.SeenAndRecord(ctx, "eval-1")
			d.Unrecord(ctx, "eval-404")
			So(d.Size(), ShouldEqual, 1)
		})
	})

	Convey("Given a bounded deduper at capacity", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))
		for i := 1; i <= 3; i++ {
			d.SeenAndRecord(ctx, fmt.Sprintf("eval-%d", i))
		}

		Convey("When one more id arrives", func() {
			So(d.SeenAndRecord(ctx, "eval-4"), ShouldBeFalse)

			Convey("Then the oldest id is forgotten", func() {
				So(d.Size(), ShouldEqual, 3)
				So(d.SeenAndRecord(ctx, "eval-4"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "eval-3"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "eval-1"), ShouldBeFalse)
			})
		})
	})

	Convey("Given an unbounded deduper", t, func() {
		ctx := context.Background()
		for _, size := range []int{0, -1} {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(size))
			for i := 0; i < 1000; i++ {
				d.SeenAndRecord(ctx, fmt.Sprintf("eval-%d", i))
			}
			So(d.Size(), ShouldEqual, 1000)
			So(d.SeenAndRecord(ctx, "eval-0"), ShouldBeTrue)
		}
	})
}

func TestDedupeConcurrency(t *testing.T) {
	Convey("Given many goroutines racing on the same ids", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(10_000))

		const goroutines, ids = 16, 200
		var (
			wg    sync.WaitGroup
			mu    sync.Mutex
			fresh int
		)
		for g := 0; g < goroutines; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < ids; i++ {
					if !d.SeenAndRecord(ctx, fmt.Sprintf("eval-%d", i)) {
						mu.Lock()
						fresh++
						mu.Unlock()
					}
				}
			}()
		}
		wg.Wait()

		Convey("Then each id is recorded exactly once", func() {
			So(fresh, ShouldEqual, ids)
			So(d.Size(), ShouldEqual, ids)
		})
	})
}
