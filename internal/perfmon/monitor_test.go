package perfmon_test

import (
	"errors"
	"testing"
	"time"

	"github.com/BenGiese22/should-i-race-this-sub003/internal/perfmon"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRecordAndSummary(t *testing.T) {
	Convey("Given a monitor with a fixed clock", t, func() {
		now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
		m := perfmon.New(perfmon.WithClock(func() time.Time { return now }))

		Convey("When samples land in two categories", func() {
			for _, v := range []float64{10, 20, 30, 40} {
				m.Record("api.request", v, "ms", perfmon.CategoryAPI, nil)
			}
			m.Record("cache.lookup", 2, "ms", perfmon.CategoryCache, nil)

			Convey("Then the summary aggregates per category", func() {
				sum := m.Summary(15 * time.Minute)
				So(sum[perfmon.CategoryAPI].Count, ShouldEqual, 4)
				So(sum[perfmon.CategoryAPI].Avg, ShouldAlmostEqual, 25, 1e-9)
				So(sum[perfmon.CategoryAPI].P95, ShouldEqual, 40)
				So(sum[perfmon.CategoryCache].Count, ShouldEqual, 1)
			})

			Convey("Then an empty category is absent from the summary", func() {
				sum := m.Summary(15 * time.Minute)
				_, ok := sum[perfmon.CategoryDatabase]
				So(ok, ShouldBeFalse)
			})
		})
	})

	Convey("Given samples spread across time", t, func() {
		now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
		m := perfmon.New(perfmon.WithClock(func() time.Time { return now }))

		m.Record("api.request", 100, "ms", perfmon.CategoryAPI, nil)
		now = now.Add(30 * time.Minute)
		m.Record("api.request", 10, "ms", perfmon.CategoryAPI, nil)

		Convey("When summarized over a short window", func() {
			sum := m.Summary(15 * time.Minute)

			Convey("Then only recent samples count", func() {
				So(sum[perfmon.CategoryAPI].Count, ShouldEqual, 1)
				So(sum[perfmon.CategoryAPI].Avg, ShouldAlmostEqual, 10, 1e-9)
			})
		})

		Convey("When summarized over a wide window", func() {
			sum := m.Summary(time.Hour)
			So(sum[perfmon.CategoryAPI].Count, ShouldEqual, 2)
		})
	})

	Convey("Given a bounded sample buffer", t, func() {
		m := perfmon.New(perfmon.WithMaxSamples(3))
		for i := 0; i < 10; i++ {
			m.Record("api.request", float64(i), "ms", perfmon.CategoryAPI, nil)
		}

		Convey("Then only the newest samples survive", func() {
			sum := m.Summary(time.Hour)
			So(sum[perfmon.CategoryAPI].Count, ShouldEqual, 3)
			So(sum[perfmon.CategoryAPI].Avg, ShouldAlmostEqual, 8, 1e-9)
		})
	})

	Convey("Given a short retention", t, func() {
		now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
		m := perfmon.New(
			perfmon.WithRetention(10*time.Minute),
			perfmon.WithClock(func() time.Time { return now }),
		)

		m.Record("api.request", 1, "ms", perfmon.CategoryAPI, nil)
		now = now.Add(20 * time.Minute)
		m.Record("api.request", 2, "ms", perfmon.CategoryAPI, nil)

		Convey("Then aged samples are dropped on the next record", func() {
			sum := m.Summary(time.Hour)
			So(sum[perfmon.CategoryAPI].Count, ShouldEqual, 1)
		})
	})
}

func TestThresholds(t *testing.T) {
	Convey("Given a monitor with a threshold", t, func() {
		m := perfmon.New()
		m.SetThreshold("api.request", 100, 500)

		Convey("When a value stays under the warning limit", func() {
			m.Record("api.request", 50, "ms", perfmon.CategoryAPI, nil)
			So(m.Alerts(), ShouldBeEmpty)
		})

		Convey("When a value crosses the warning limit", func() {
			m.Record("api.request", 150, "ms", perfmon.CategoryAPI, nil)
			alerts := m.Alerts()
			So(len(alerts), ShouldEqual, 1)
			So(alerts[0].Level, ShouldEqual, perfmon.LevelWarning)
			So(alerts[0].Metric, ShouldEqual, "api.request")
			So(alerts[0].Limit, ShouldEqual, 100)
		})

		Convey("When a value crosses the critical limit", func() {
			m.Record("api.request", 900, "ms", perfmon.CategoryAPI, nil)
			alerts := m.Alerts()
			So(len(alerts), ShouldEqual, 1)
			So(alerts[0].Level, ShouldEqual, perfmon.LevelCritical)
			So(alerts[0].Limit, ShouldEqual, 500)
		})

		Convey("When other metric names spike", func() {
			m.Record("cache.lookup", 10000, "ms", perfmon.CategoryCache, nil)
			So(m.Alerts(), ShouldBeEmpty)
		})
	})
}

func TestTiming(t *testing.T) {
	Convey("Given a monitor", t, func() {
		m := perfmon.New()

		Convey("When Time wraps a succeeding call", func() {
			called := false
			err := m.Time("api.request", perfmon.CategoryAPI, func() error {
				called = true
				return nil
			})

			Convey("Then the call ran, no error surfaced and a sample landed", func() {
				So(called, ShouldBeTrue)
				So(err, ShouldBeNil)
				So(m.Summary(time.Hour)[perfmon.CategoryAPI].Count, ShouldEqual, 1)
			})
		})

		Convey("When Time wraps a failing call", func() {
			boom := errors.New("boom")
			err := m.Time("api.request", perfmon.CategoryAPI, func() error { return boom })

			Convey("Then the error passes through untouched", func() {
				So(err, ShouldEqual, boom)
				So(m.Summary(time.Hour)[perfmon.CategoryAPI].Count, ShouldEqual, 1)
			})
		})

		Convey("When TimeValue wraps a call returning a value", func() {
			v, err := perfmon.TimeValue(m, "cache.lookup", perfmon.CategoryCache, func() (int, error) {
				return 42, nil
			})

			Convey("Then the value and sample both land", func() {
				So(err, ShouldBeNil)
				So(v, ShouldEqual, 42)
				So(m.Summary(time.Hour)[perfmon.CategoryCache].Count, ShouldEqual, 1)
			})
		})
	})
}
