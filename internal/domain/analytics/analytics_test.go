package analytics_test

import (
	"context"
	"testing"
	"time"

	"github.com/BenGiese22/should-i-race-this-sub003/internal/adapters/perfstore"
	"github.com/BenGiese22/should-i-race-this-sub003/internal/domain/analytics"
	"github.com/BenGiese22/should-i-race-this-sub003/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

var testNow = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

func row(i int, series, track string, start, finish, incidents int, cat model.Category) model.RaceResult {
	return model.RaceResult{
		SessionID:     series + "-" + track + "-" + string(rune('a'+i)),
		DriverID:      "driver-001",
		SeriesID:      series,
		TrackID:       track,
		Category:      cat,
		SessionType:   model.SessionRace,
		StartPos:      start,
		FinishPos:     finish,
		Incidents:     incidents,
		SOF:           2000,
		SafetyRating:  3.0,
		RaceLengthMin: 45,
		StartTime:     testNow.Add(time.Duration(i-20) * 24 * time.Hour),
	}
}

func TestBuildProfile(t *testing.T) {
	ctx := context.Background()

	Convey("Given a driver with mixed history", t, func() {
		store := perfstore.NewMemoryStore()
		store.AddResults("driver-001",
			row(0, "s-gt3", "t-spa", 10, 6, 2, model.CategoryRoad),
			row(1, "s-gt3", "t-spa", 8, 6, 0, model.CategoryRoad),
			row(2, "s-gt3", "t-monza", 12, 10, 4, model.CategoryRoad),
			row(3, "s-trucks", "t-charlotte", 5, 9, 6, model.CategoryOval),
		)
		agg := analytics.New(store, analytics.WithClock(func() time.Time { return testNow }))

		Convey("When building the profile", func() {
			p, err := agg.BuildProfile(ctx, "driver-001")
			So(err, ShouldBeNil)

			Convey("Then overall stats cover every race row", func() {
				So(p.Overall.Starts, ShouldEqual, 4)
				// Deltas: +4, +2, +2, -4 -> mean 1.
				So(p.Overall.AvgFinishDelta, ShouldAlmostEqual, 1.0, 1e-9)
				// Incidents: 2, 0, 4, 6 -> mean 3.
				So(p.Overall.IncidentRate, ShouldAlmostEqual, 3.0, 1e-9)
			})

			Convey("Then groupings are keyed by series, track and pair", func() {
				So(p.PerSeries["s-gt3"].Starts, ShouldEqual, 3)
				So(p.PerTrack["t-spa"].Starts, ShouldEqual, 2)
				So(p.PerSeriesTrack[model.SeriesTrackKey("s-gt3", "t-spa")].Starts, ShouldEqual, 2)
			})

			Convey("Then the primary category follows the most starts", func() {
				So(p.PrimaryCategory, ShouldEqual, model.CategoryRoad)
			})

			Convey("Then recent cadence is measured over the trailing window", func() {
				So(p.RacesPerWeek, ShouldBeGreaterThan, 0)
			})
		})

		Convey("When the same history is aggregated twice", func() {
			p1, err1 := agg.BuildProfile(ctx, "driver-001")
			p2, err2 := agg.BuildProfile(ctx, "driver-001")
			So(err1, ShouldBeNil)
			So(err2, ShouldBeNil)

			Convey("Then the profiles agree", func() {
				So(p1.Overall, ShouldResemble, p2.Overall)
				So(p1.TrendSlope, ShouldAlmostEqual, p2.TrendSlope, 1e-12)
			})
		})
	})

	Convey("Given a driver with no history", t, func() {
		store := perfstore.NewMemoryStore()
		agg := analytics.New(store)

		Convey("When building the profile", func() {
			p, err := agg.BuildProfile(ctx, "driver-999")

			Convey("Then an empty profile comes back without error", func() {
				So(err, ShouldBeNil)
				So(p.Overall.Starts, ShouldEqual, 0)
				So(p.PerSeries, ShouldBeEmpty)
				So(p.TrendSlope, ShouldEqual, 0)
			})
		})
	})

	Convey("Given an unreachable store", t, func() {
		store := perfstore.NewMemoryStore()
		store.SetUnavailable(true)
		agg := analytics.New(store)

		Convey("When building the profile", func() {
			_, err := agg.BuildProfile(ctx, "driver-001")

			Convey("Then the error carries the unavailable sentinel", func() {
				So(err, ShouldWrap, perfstore.ErrUnavailable)
			})
		})
	})
}

func TestTrendDirection(t *testing.T) {
	ctx := context.Background()

	Convey("Given a driver whose finishes keep improving", t, func() {
		store := perfstore.NewMemoryStore()
		rows := make([]model.RaceResult, 0, 8)
		for i := 0; i < 8; i++ {
			// Start 10th every time, finish one position better each race.
			rows = append(rows, row(i, "s-gt3", "t-spa", 10, 9-i, 1, model.CategoryRoad))
		}
		store.AddResults("driver-001", rows...)
		agg := analytics.New(store, analytics.WithClock(func() time.Time { return testNow }))

		Convey("Then the trend slope is positive", func() {
			p, err := agg.BuildProfile(ctx, "driver-001")
			So(err, ShouldBeNil)
			So(p.TrendSlope, ShouldBeGreaterThan, 0)
		})
	})
}

func TestBuildGlobalStats(t *testing.T) {
	ctx := context.Background()

	Convey("Given field history for one opportunity", t, func() {
		store := perfstore.NewMemoryStore()
		dnf := row(0, "s-gt3", "t-spa", 10, 24, 8, model.CategoryRoad)
		dnf.DNF = true
		dnf.DriverID = "driver-002"
		dnf.SessionID = "other-1"
		store.AddResults("driver-001",
			row(1, "s-gt3", "t-spa", 8, 6, 2, model.CategoryRoad),
			row(2, "s-gt3", "t-spa", 4, 5, 2, model.CategoryRoad),
		)
		store.AddResults("driver-002", dnf)

		agg := analytics.New(store)
		opp := model.Opportunity{SeriesID: "s-gt3", TrackID: "t-spa", SeasonYear: 2026, SeasonQuarter: 3, RaceWeek: 1}

		Convey("When building global stats", func() {
			globals, err := agg.BuildGlobalStats(ctx, []model.Opportunity{opp})
			So(err, ShouldBeNil)
			g := globals[opp.Key()]

			Convey("Then the baseline reflects the whole field", func() {
				So(g.Races, ShouldEqual, 3)
				So(g.AvgIncidents, ShouldAlmostEqual, 4.0, 1e-9)
				So(g.AttritionRate, ShouldAlmostEqual, 1.0/3.0, 1e-9)
				So(g.FinishPosStdDev, ShouldBeGreaterThan, 0)
			})
		})
	})

	Convey("Given field history spread across many drivers", t, func() {
		store := perfstore.NewMemoryStore()
		for i := 0; i < 40; i++ {
			r := row(i%20, "s-gt3", "t-spa", 10, 3+i%15, i%7, model.CategoryRoad)
			r.DriverID = "driver-" + string(rune('a'+i%26)) + string(rune('a'+i/26))
			r.SessionID = r.DriverID + "-" + r.SessionID
			r.SOF = 1500 + float64(i)*37.7
			store.AddResults(r.DriverID, r)
		}
		agg := analytics.New(store)
		opp := model.Opportunity{SeriesID: "s-gt3", TrackID: "t-spa", SeasonYear: 2026, SeasonQuarter: 3, RaceWeek: 1}

		Convey("When the baseline is built repeatedly", func() {
			first, err := agg.BuildGlobalStats(ctx, []model.Opportunity{opp})
			So(err, ShouldBeNil)

			Convey("Then every rebuild matches bit for bit", func() {
				for i := 0; i < 5; i++ {
					again, err := agg.BuildGlobalStats(ctx, []model.Opportunity{opp})
					So(err, ShouldBeNil)
					So(again, ShouldResemble, first)
				}
			})
		})
	})

	Convey("Given an opportunity with no history", t, func() {
		store := perfstore.NewMemoryStore()
		agg := analytics.New(store)
		opp := model.Opportunity{SeriesID: "s-new", TrackID: "t-new", SeasonYear: 2026, SeasonQuarter: 3, RaceWeek: 1}

		Convey("When building global stats", func() {
			globals, err := agg.BuildGlobalStats(ctx, []model.Opportunity{opp})
			So(err, ShouldBeNil)

			Convey("Then the neutral baseline stands in", func() {
				g := globals[opp.Key()]
				So(g.Races, ShouldEqual, 0)
				So(g, ShouldResemble, model.NeutralGlobalStats(opp.Key()))
			})
		})
	})
}
