package api

import "net/http"

// CacheMetricsHandler exposes cache counters to external collaborators.
type CacheMetricsHandler struct {
	deps Dependencies
}

// NewCacheMetricsHandler creates a new cache metrics handler.
func NewCacheMetricsHandler(deps Dependencies) *CacheMetricsHandler {
	return &CacheMetricsHandler{deps: deps}
}

type cacheMetricsResponse struct {
	Size  int               `json:"size"`
	Stats cacheMetricsStats `json:"stats"`
}

type cacheMetricsStats struct {
	HitRate       float64 `json:"hit_rate"`
	TotalRequests int64   `json:"total_requests"`
	Hits          int64   `json:"hits"`
	Misses        int64   `json:"misses"`
	Evictions     int64   `json:"evictions"`
}

// HandleCacheMetrics handles GET /cache/metrics requests.
func (h *CacheMetricsHandler) HandleCacheMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	s := h.deps.CacheMetrics()
	writeJSON(w, http.StatusOK, cacheMetricsResponse{
		Size: s.Size,
		Stats: cacheMetricsStats{
			HitRate:       s.HitRate,
			TotalRequests: s.TotalRequests,
			Hits:          s.Hits,
			Misses:        s.Misses,
			Evictions:     s.Evictions,
		},
	})
}
