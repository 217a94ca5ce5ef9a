package perfstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/BenGiese22/should-i-race-this-sub003/internal/adapters/perfstore"
	"github.com/BenGiese22/should-i-race-this-sub003/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func raceRow(driver, series, track string, st model.SessionType) model.RaceResult {
	return model.RaceResult{
		SessionID:   driver + "-" + series + "-" + track,
		DriverID:    driver,
		SeriesID:    series,
		TrackID:     track,
		SessionType: st,
		StartTime:   time.Date(2026, 8, 1, 18, 0, 0, 0, time.UTC),
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()

	Convey("Given a populated memory store", t, func() {
		s := perfstore.NewMemoryStore()
		s.AddResults("driver-001",
			raceRow("driver-001", "s-gt3", "t-spa", model.SessionRace),
			raceRow("driver-001", "s-gt3", "t-monza", model.SessionRace),
			raceRow("driver-001", "s-gt3", "t-spa", model.SessionPractice),
		)
		s.AddResults("driver-002",
			raceRow("driver-002", "s-gt3", "t-spa", model.SessionRace),
		)

		Convey("When listing race results with the race-only filter", func() {
			rows, err := s.ListRaceResults(ctx, "driver-001", perfstore.RaceOnly())

			Convey("Then practice rows are excluded", func() {
				So(err, ShouldBeNil)
				So(len(rows), ShouldEqual, 2)
				for _, r := range rows {
					So(r.SessionType, ShouldEqual, model.SessionRace)
				}
			})
		})

		Convey("When listing results for an unknown driver", func() {
			rows, err := s.ListRaceResults(ctx, "driver-999", perfstore.RaceOnly())

			Convey("Then the result is empty, not an error", func() {
				So(err, ShouldBeNil)
				So(rows, ShouldBeEmpty)
			})
		})

		Convey("When listing field results for a series/track pair", func() {
			rows, err := s.ListFieldResults(ctx, "s-gt3", "t-spa")

			Convey("Then race rows from every driver are included", func() {
				So(err, ShouldBeNil)
				So(len(rows), ShouldEqual, 2)
			})
		})

		Convey("When filtering by series and start time", func() {
			f := perfstore.ResultFilter{
				SeriesID: "s-gt3",
				Since:    time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
			}
			rows, err := s.ListRaceResults(ctx, "driver-001", f)

			Convey("Then rows before the cutoff are dropped", func() {
				So(err, ShouldBeNil)
				So(rows, ShouldBeEmpty)
			})
		})

		Convey("When querying the schedule", func() {
			s.SetSchedule([]model.Opportunity{
				{SeriesID: "s-gt3", TrackID: "t-spa", SeasonYear: 2026, SeasonQuarter: 3},
				{SeriesID: "s-mx5", TrackID: "t-okayama", SeasonYear: 2026, SeasonQuarter: 4},
			})
			opps, err := s.ListScheduleEntries(ctx, 2026, 3)

			Convey("Then only the requested season comes back", func() {
				So(err, ShouldBeNil)
				So(len(opps), ShouldEqual, 1)
				So(opps[0].SeriesID, ShouldEqual, "s-gt3")
			})
		})

		Convey("When checking the sync timestamp", func() {
			ts, ok, err := s.LastSyncTimestamp(ctx, "driver-001")
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
			So(ts.IsZero(), ShouldBeFalse)

			_, ok, err = s.LastSyncTimestamp(ctx, "driver-999")
			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)
		})

		Convey("When the store is marked unavailable", func() {
			s.SetUnavailable(true)

			Convey("Then every query returns the unavailable sentinel", func() {
				_, err := s.ListRaceResults(ctx, "driver-001", perfstore.RaceOnly())
				So(err, ShouldEqual, perfstore.ErrUnavailable)

				_, err = s.ListFieldResults(ctx, "s-gt3", "t-spa")
				So(err, ShouldEqual, perfstore.ErrUnavailable)

				_, err = s.ListScheduleEntries(ctx, 2026, 3)
				So(err, ShouldEqual, perfstore.ErrUnavailable)

				_, _, err = s.LastSyncTimestamp(ctx, "driver-001")
				So(err, ShouldEqual, perfstore.ErrUnavailable)
			})

			Convey("And availability can be restored", func() {
				s.SetUnavailable(false)
				_, err := s.ListRaceResults(ctx, "driver-001", perfstore.RaceOnly())
				So(err, ShouldBeNil)
			})
		})
	})
}
