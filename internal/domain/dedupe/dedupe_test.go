package dedupe_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/BenGiese22/should-i-race-this-sub003/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSeenAndRecord(t *testing.T) {
	ctx := context.Background()

	Convey("Given an empty deduper", t, func() {
		d := dedupe.NewInMemoryDeduper()

		Convey("When a notice ID arrives for the first time", func() {
			seen := d.SeenAndRecord(ctx, "notice-1")

			Convey("Then it is new and now remembered", func() {
				So(seen, ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)
			})

			Convey("And when the same ID is redelivered", func() {
				So(d.SeenAndRecord(ctx, "notice-1"), ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When distinct IDs arrive", func() {
			So(d.SeenAndRecord(ctx, "notice-1"), ShouldBeFalse)
			So(d.SeenAndRecord(ctx, "notice-2"), ShouldBeFalse)
			So(d.SeenAndRecord(ctx, "notice-3"), ShouldBeFalse)
			So(d.Size(), ShouldEqual, 3)
		})
	})
}

func TestUnrecord(t *testing.T) {
	ctx := context.Background()

	Convey("Given a deduper with a recorded ID", t, func() {
		d := dedupe.NewInMemoryDeduper()
		So(d.SeenAndRecord(ctx, "notice-1"), ShouldBeFalse)

		Convey("When the ID is unrecorded", func() {
			d.Unrecord(ctx, "notice-1")

			Convey("Then a redelivery reads as new again", func() {
				So(d.Size(), ShouldEqual, 0)
				So(d.SeenAndRecord(ctx, "notice-1"), ShouldBeFalse)
			})
		})

		Convey("When an unknown ID is unrecorded", func() {
			d.Unrecord(ctx, "notice-404")

			Convey("Then nothing changes", func() {
				So(d.Size(), ShouldEqual, 1)
				So(d.SeenAndRecord(ctx, "notice-1"), ShouldBeTrue)
			})
		})
	})
}

func TestBoundedMemory(t *testing.T) {
	ctx := context.Background()

	Convey("Given a deduper bounded to three IDs", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))
		for i := 1; i <= 3; i++ {
			So(d.SeenAndRecord(ctx, fmt.Sprintf("notice-%d", i)), ShouldBeFalse)
		}

		Convey("When a fourth ID arrives", func() {
			So(d.SeenAndRecord(ctx, "notice-4"), ShouldBeFalse)

			Convey("Then the oldest ID was evicted and the rest remain", func() {
				So(d.Size(), ShouldEqual, 3)
				So(d.SeenAndRecord(ctx, "notice-1"), ShouldBeFalse) // forgotten
				So(d.SeenAndRecord(ctx, "notice-3"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "notice-4"), ShouldBeTrue)
			})
		})

		Convey("When an ID is unrecorded and its slot later reused", func() {
			d.Unrecord(ctx, "notice-1")
			So(d.SeenAndRecord(ctx, "notice-4"), ShouldBeFalse)

			Convey("Then the live IDs are untouched by the reuse", func() {
				So(d.SeenAndRecord(ctx, "notice-2"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "notice-3"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "notice-4"), ShouldBeTrue)
			})
		})
	})
}
