package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Default summary window when the caller does not specify one.
const defaultWindowMinutes = 15

// PerfSummaryHandler exposes the performance monitor.
type PerfSummaryHandler struct {
	deps Dependencies
}

// NewPerfSummaryHandler creates a new performance summary handler.
func NewPerfSummaryHandler(deps Dependencies) *PerfSummaryHandler {
	return &PerfSummaryHandler{deps: deps}
}

// HandleSummary handles GET /performance/summary?window_minutes=N requests.
func (h *PerfSummaryHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	minutes := defaultWindowMinutes
	if v := r.URL.Query().Get("window_minutes"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: invalid window_minutes", ErrBadRequest))
			return
		}
		minutes = n
	}
	summary := h.deps.PerformanceSummary(time.Duration(minutes) * time.Minute)
	writeJSON(w, http.StatusOK, summary)
}

// HandleAlerts handles GET /performance/alerts requests.
func (h *PerfSummaryHandler) HandleAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Alerts())
}
