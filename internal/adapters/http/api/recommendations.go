// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/BenGiese22/should-i-race-this-sub003/internal/domain/model"
	"github.com/BenGiese22/should-i-race-this-sub003/internal/domain/recommend"
)

// RecommendationHandler handles ranked recommendation requests.
type RecommendationHandler struct {
	deps Dependencies
}

// NewRecommendationHandler creates a new recommendation handler.
func NewRecommendationHandler(deps Dependencies) *RecommendationHandler {
	return &RecommendationHandler{deps: deps}
}

// HandleGetRecommendations handles
// GET /recommendations/{driver_id}?max_results=N&category=road&start_date=...&end_date=...
func (h *RecommendationHandler) HandleGetRecommendations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	driverID := strings.TrimPrefix(r.URL.Path, "/recommendations/")
	if driverID == "" || strings.Contains(driverID, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	filters, err := parseFilters(r, h.deps.MaxResultsLimit())
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	result, err := h.deps.Recommendations(r.Context(), driverID, filters)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func parseFilters(r *http.Request, maxLimit int) (recommend.Filters, error) {
	q := r.URL.Query()
	var f recommend.Filters

	if v := q.Get("max_results"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return f, fmt.Errorf("%w: invalid max_results", ErrBadRequest)
		}
		if n > maxLimit {
			return f, fmt.Errorf("%w: max_results exceeds limit %d", ErrBadRequest, maxLimit)
		}
		f.MaxResults = n
	}
	if v := q.Get("category"); v != "" {
		switch model.Category(v) {
		case model.CategoryOval, model.CategoryRoad, model.CategoryDirtOval, model.CategoryDirtRoad:
			f.Category = model.Category(v)
		default:
			return f, fmt.Errorf("%w: unknown category %q", ErrBadRequest, v)
		}
	}
	if v := q.Get("start_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, fmt.Errorf("%w: start_date must be RFC3339", ErrBadRequest)
		}
		f.StartDate = t
	}
	if v := q.Get("end_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, fmt.Errorf("%w: end_date must be RFC3339", ErrBadRequest)
		}
		f.EndDate = t
	}
	return f, nil
}
