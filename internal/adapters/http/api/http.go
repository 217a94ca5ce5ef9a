// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/BenGiese22/should-i-race-this-sub003/internal/adapters/cache"
	"github.com/BenGiese22/should-i-race-this-sub003/internal/domain/recommend"
	"github.com/BenGiese22/should-i-race-this-sub003/internal/perfmon"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	Recommendations(ctx context.Context, driverID string, filters recommend.Filters) (recommend.Result, error)
	Prefetch(ctx context.Context, driverID string) error
	InvalidateDriver(driverID string) int
	InvalidateOpportunity(opportunityKey string) int
	InvalidateAll()
	CacheMetrics() cache.Stats
	PerformanceSummary(window time.Duration) map[perfmon.Category]perfmon.CategorySummary
	Alerts() []perfmon.Alert
	MaxResultsLimit() int
	SubmitSyncNotice(ctx context.Context, noticeID, driverID string) (accepted, duplicate bool)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler         *HealthHandler
	statsHandler          *StatsHandler
	recommendationHandler *RecommendationHandler
	prefetchHandler       *PrefetchHandler
	invalidateHandler     *InvalidateHandler
	cacheMetricsHandler   *CacheMetricsHandler
	perfSummaryHandler    *PerfSummaryHandler
	syncHandler           *SyncHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:         NewHealthHandler(),
		statsHandler:          NewStatsHandler(statsProvider),
		recommendationHandler: NewRecommendationHandler(deps),
		prefetchHandler:       NewPrefetchHandler(deps),
		invalidateHandler:     NewInvalidateHandler(deps),
		cacheMetricsHandler:   NewCacheMetricsHandler(deps),
		perfSummaryHandler:    NewPerfSummaryHandler(deps),
		syncHandler:           NewSyncHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/recommendations/", MetricsMiddleware(s.recommendationHandler.HandleGetRecommendations, "recommendations"))
	mux.HandleFunc("/prefetch/", MetricsMiddleware(s.prefetchHandler.HandlePrefetch, "prefetch"))
	mux.HandleFunc("/invalidate", MetricsMiddleware(s.invalidateHandler.HandleInvalidate, "invalidate"))
	mux.HandleFunc("/cache/metrics", MetricsMiddleware(s.cacheMetricsHandler.HandleCacheMetrics, "cache_metrics"))
	mux.HandleFunc("/performance/summary", MetricsMiddleware(s.perfSummaryHandler.HandleSummary, "performance_summary"))
	mux.HandleFunc("/performance/alerts", MetricsMiddleware(s.perfSummaryHandler.HandleAlerts, "performance_alerts"))
	mux.HandleFunc("/sync", MetricsMiddleware(s.syncHandler.HandleSync, "sync"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError translates coordinator errors to HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, recommend.ErrMissingDriver):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, recommend.ErrDataUnavailable):
		writeError(w, http.StatusServiceUnavailable, "data_unavailable", err)
	case errors.Is(err, recommend.ErrComputationTimeout):
		writeError(w, http.StatusGatewayTimeout, "computation_timeout", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
