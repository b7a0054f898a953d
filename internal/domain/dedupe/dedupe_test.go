package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/miraivoice/heed/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDeduper(t *testing.T) {
	Convey("Given an in-memory deduper", t, func() {
		ctx := context.Background()

		Convey("When recording ids", func() {
			d := dedupe.NewInMemoryDeduper()

			So(d.SeenAndRecord(ctx, "a"), ShouldBeFalse)
			So(d.SeenAndRecord(ctx, "a"), ShouldBeTrue)
			So(d.SeenAndRecord(ctx, "b"), ShouldBeFalse)
			So(d.Size(), ShouldEqual, 2)
		})

		Convey("When unrecording an id", func() {
			d := dedupe.NewInMemoryDeduper()
			So(d.SeenAndRecord(ctx, "a"), ShouldBeFalse)

			d.Unrecord(ctx, "a")

			Convey("Then the id can be recorded again", func() {
				So(d.Size(), ShouldEqual, 0)
				So(d.SeenAndRecord(ctx, "a"), ShouldBeFalse)
			})

			Convey("Then unrecording an unknown id is a no-op", func() {
				d.Unrecord(ctx, "never-seen")
				So(d.Size(), ShouldEqual, 0)
			})
		})

		Convey("When the bound is reached", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))
			for i := 0; i < 5; i++ {
				So(d.SeenAndRecord(ctx, fmt.Sprintf("id-%d", i)), ShouldBeFalse)
			}

			Convey("Then the oldest ids were evicted", func() {
				So(d.Size(), ShouldEqual, 3)
				So(d.SeenAndRecord(ctx, "id-0"), ShouldBeFalse)
				So(d.SeenAndRecord(ctx, "id-4"), ShouldBeTrue)
			})
		})

		Convey("When unbounded", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
			for i := 0; i < 1000; i++ {
				So(d.SeenAndRecord(ctx, fmt.Sprintf("id-%d", i)), ShouldBeFalse)
			}

			So(d.Size(), ShouldEqual, 1000)
		})

		Convey("When accessed concurrently", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(10000))
			var wg sync.WaitGroup
			for g := 0; g < 8; g++ {
				wg.Add(1)
				go func(g int) {
					defer wg.Done()
					for i := 0; i < 100; i++ {
						d.SeenAndRecord(ctx, fmt.Sprintf("g%d-%d", g, i))
					}
				}(g)
			}
			wg.Wait()

			So(d.Size(), ShouldEqual, 800)
		})
	})
}
