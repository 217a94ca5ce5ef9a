package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BenGiese22/should-i-race-this-sub003/internal/adapters/cache"
	"github.com/BenGiese22/should-i-race-this-sub003/internal/adapters/http/api"
	"github.com/BenGiese22/should-i-race-this-sub003/internal/domain/recommend"
	"github.com/BenGiese22/should-i-race-this-sub003/internal/perfmon"
	. "github.com/smartystreets/goconvey/convey"
)

// stubDeps implements api.Dependencies with canned behavior per test.
type stubDeps struct {
	recommendErr  error
	result        recommend.Result
	lastDriver    string
	lastFilters   recommend.Filters
	prefetchErr   error
	invalidated   string
	dropped       int
	clearedAll    bool
	stats         cache.Stats
	syncAccepted  bool
	syncDuplicate bool
	syncNoticeID  string
	syncDriverID  string
}

func (s *stubDeps) Recommendations(_ context.Context, driverID string, filters recommend.Filters) (recommend.Result, error) {
	s.lastDriver = driverID
	s.lastFilters = filters
	if s.recommendErr != nil {
		return recommend.Result{}, s.recommendErr
	}
	return s.result, nil
}

func (s *stubDeps) Prefetch(_ context.Context, driverID string) error {
	s.lastDriver = driverID
	return s.prefetchErr
}

func (s *stubDeps) InvalidateDriver(driverID string) int {
	s.invalidated = driverID
	return s.dropped
}

func (s *stubDeps) InvalidateOpportunity(key string) int {
	s.invalidated = key
	return s.dropped
}

func (s *stubDeps) InvalidateAll() { s.clearedAll = true }

func (s *stubDeps) CacheMetrics() cache.Stats { return s.stats }

func (s *stubDeps) PerformanceSummary(time.Duration) map[perfmon.Category]perfmon.CategorySummary {
	return map[perfmon.Category]perfmon.CategorySummary{
		perfmon.CategoryAPI: {Count: 2, Avg: 12.5, P95: 20},
	}
}

func (s *stubDeps) Alerts() []perfmon.Alert { return nil }

func (s *stubDeps) MaxResultsLimit() int { return 100 }

func (s *stubDeps) SubmitSyncNotice(_ context.Context, noticeID, driverID string) (bool, bool) {
	s.syncNoticeID = noticeID
	s.syncDriverID = driverID
	return s.syncAccepted, s.syncDuplicate
}

type stubStats struct{}

func (stubStats) GetStats() map[string]interface{} {
	return map[string]interface{}{"status": "ok"}
}

func newTestServer(deps *stubDeps) *httptest.Server {
	mux := http.NewServeMux()
	api.NewServer(deps, stubStats{}).Register(context.Background(), mux)
	return httptest.NewServer(mux)
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func TestRecommendationsEndpoint(t *testing.T) {
	Convey("Given the API server", t, func() {
		deps := &stubDeps{
			result: recommend.Result{
				DriverID: "driver-001",
				Metadata: recommend.Metadata{CacheStatus: recommend.StatusMiss, Generation: "gen-1"},
			},
		}
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("When a valid driver is requested", func() {
			resp, body := doJSON(t, http.MethodGet, srv.URL+"/recommendations/driver-001", nil)

			Convey("Then the result is returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(body["driver_id"], ShouldEqual, "driver-001")
				meta := body["metadata"].(map[string]any)
				So(meta["cache_status"], ShouldEqual, "miss")
				So(deps.lastDriver, ShouldEqual, "driver-001")
			})
		})

		Convey("When query filters are supplied", func() {
			resp, _ := doJSON(t, http.MethodGet,
				srv.URL+"/recommendations/driver-001?max_results=5&category=oval", nil)

			Convey("Then they are parsed through to the service", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(deps.lastFilters.MaxResults, ShouldEqual, 5)
				So(string(deps.lastFilters.Category), ShouldEqual, "oval")
			})
		})

		Convey("When the driver segment is missing", func() {
			resp, _ := doJSON(t, http.MethodGet, srv.URL+"/recommendations/", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When max_results is out of range", func() {
			resp, body := doJSON(t, http.MethodGet,
				srv.URL+"/recommendations/driver-001?max_results=500", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			So(body["code"], ShouldEqual, "bad_request")
		})

		Convey("When the category is unknown", func() {
			resp, _ := doJSON(t, http.MethodGet,
				srv.URL+"/recommendations/driver-001?category=karting", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When a date filter is malformed", func() {
			resp, _ := doJSON(t, http.MethodGet,
				srv.URL+"/recommendations/driver-001?start_date=yesterday", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the store is down", func() {
			deps.recommendErr = recommend.ErrDataUnavailable
			resp, body := doJSON(t, http.MethodGet, srv.URL+"/recommendations/driver-001", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusServiceUnavailable)
			So(body["code"], ShouldEqual, "data_unavailable")
		})

		Convey("When the computation times out", func() {
			deps.recommendErr = recommend.ErrComputationTimeout
			resp, body := doJSON(t, http.MethodGet, srv.URL+"/recommendations/driver-001", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusGatewayTimeout)
			So(body["code"], ShouldEqual, "computation_timeout")
		})
	})
}

func TestPrefetchEndpoint(t *testing.T) {
	Convey("Given the API server", t, func() {
		deps := &stubDeps{}
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("When a driver is prefetched", func() {
			resp, body := doJSON(t, http.MethodPost, srv.URL+"/prefetch/driver-001", nil)

			Convey("Then the request is acknowledged as accepted", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusAccepted)
				So(body["status"], ShouldEqual, "warmed")
				So(deps.lastDriver, ShouldEqual, "driver-001")
			})
		})

		Convey("When prefetch is called with GET", func() {
			resp, _ := doJSON(t, http.MethodGet, srv.URL+"/prefetch/driver-001", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})

		Convey("When the prefetch fails downstream", func() {
			deps.prefetchErr = recommend.ErrDataUnavailable
			resp, _ := doJSON(t, http.MethodPost, srv.URL+"/prefetch/driver-001", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusServiceUnavailable)
		})
	})
}

func TestInvalidateEndpoint(t *testing.T) {
	Convey("Given the API server", t, func() {
		deps := &stubDeps{dropped: 3}
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("When a driver scope is posted", func() {
			resp, body := doJSON(t, http.MethodPost, srv.URL+"/invalidate",
				map[string]any{"driver_id": "driver-001"})

			Convey("Then that driver's entries are dropped", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(body["dropped"], ShouldEqual, 3)
				So(deps.invalidated, ShouldEqual, "driver-001")
			})
		})

		Convey("When an opportunity scope is posted", func() {
			resp, _ := doJSON(t, http.MethodPost, srv.URL+"/invalidate",
				map[string]any{"opportunity_key": "s-gt3|t-spa|2026|3|5"})
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(deps.invalidated, ShouldEqual, "s-gt3|t-spa|2026|3|5")
		})

		Convey("When the all scope is posted", func() {
			resp, _ := doJSON(t, http.MethodPost, srv.URL+"/invalidate",
				map[string]any{"all": true})
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(deps.clearedAll, ShouldBeTrue)
		})

		Convey("When no scope is given", func() {
			resp, _ := doJSON(t, http.MethodPost, srv.URL+"/invalidate", map[string]any{})
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When two scopes are given", func() {
			resp, _ := doJSON(t, http.MethodPost, srv.URL+"/invalidate",
				map[string]any{"driver_id": "driver-001", "all": true})
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestSyncEndpoint(t *testing.T) {
	Convey("Given the API server", t, func() {
		deps := &stubDeps{syncAccepted: true}
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("When a fresh notice is posted", func() {
			resp, body := doJSON(t, http.MethodPost, srv.URL+"/sync",
				map[string]any{"notice_id": "n-1", "driver_id": "driver-001"})

			Convey("Then it is queued", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusAccepted)
				So(body["status"], ShouldEqual, "queued")
				So(body["duplicate"], ShouldEqual, false)
				So(deps.syncNoticeID, ShouldEqual, "n-1")
				So(deps.syncDriverID, ShouldEqual, "driver-001")
			})
		})

		Convey("When a known notice is redelivered", func() {
			deps.syncDuplicate = true
			resp, body := doJSON(t, http.MethodPost, srv.URL+"/sync",
				map[string]any{"notice_id": "n-1", "driver_id": "driver-001"})

			Convey("Then it is acknowledged without re-queueing", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(body["duplicate"], ShouldEqual, true)
			})
		})

		Convey("When the queue is full", func() {
			deps.syncAccepted = false
			resp, body := doJSON(t, http.MethodPost, srv.URL+"/sync",
				map[string]any{"notice_id": "n-1", "driver_id": "driver-001"})
			So(resp.StatusCode, ShouldEqual, http.StatusTooManyRequests)
			So(body["code"], ShouldEqual, "queue_full")
		})

		Convey("When the driver id is missing", func() {
			resp, _ := doJSON(t, http.MethodPost, srv.URL+"/sync",
				map[string]any{"notice_id": "n-1"})
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the notice id is missing", func() {
			resp, _ := doJSON(t, http.MethodPost, srv.URL+"/sync",
				map[string]any{"driver_id": "driver-001"})

			Convey("Then one is minted so dedupe still works", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusAccepted)
				So(deps.syncNoticeID, ShouldNotBeEmpty)
			})
		})
	})
}

func TestCacheMetricsEndpoint(t *testing.T) {
	Convey("Given the API server with cache counters", t, func() {
		deps := &stubDeps{stats: cache.Stats{
			Hits: 6, Misses: 2, Evictions: 1, TotalRequests: 8, HitRate: 0.75, Size: 4,
		}}
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("When the metrics are fetched", func() {
			resp, body := doJSON(t, http.MethodGet, srv.URL+"/cache/metrics", nil)

			Convey("Then the snapshot is exposed", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(body["size"], ShouldEqual, 4)
				stats := body["stats"].(map[string]any)
				So(stats["hit_rate"], ShouldAlmostEqual, 0.75, 1e-9)
				So(stats["hits"], ShouldEqual, 6)
			})
		})
	})
}

func TestPerformanceEndpoints(t *testing.T) {
	Convey("Given the API server", t, func() {
		deps := &stubDeps{}
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("When the summary is fetched", func() {
			resp, body := doJSON(t, http.MethodGet, srv.URL+"/performance/summary", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			apiSummary := body["api"].(map[string]any)
			So(apiSummary["count"], ShouldEqual, 2)
		})

		Convey("When the window is invalid", func() {
			resp, _ := doJSON(t, http.MethodGet, srv.URL+"/performance/summary?window_minutes=zero", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When alerts are fetched", func() {
			resp, _ := doJSON(t, http.MethodGet, srv.URL+"/performance/alerts", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
		})
	})
}

func TestStatsEndpoint(t *testing.T) {
	Convey("Given the API server", t, func() {
		srv := newTestServer(&stubDeps{})
		defer srv.Close()

		Convey("When stats are fetched", func() {
			resp, body := doJSON(t, http.MethodGet, srv.URL+"/stats", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(body["status"], ShouldEqual, "ok")
		})
	})
}
