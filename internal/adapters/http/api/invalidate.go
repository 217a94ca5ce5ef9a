package api

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// InvalidateHandler drops cache entries on behalf of the sync collaborator.
type InvalidateHandler struct {
	deps Dependencies
}

// NewInvalidateHandler creates a new invalidate handler.
func NewInvalidateHandler(deps Dependencies) *InvalidateHandler {
	return &InvalidateHandler{deps: deps}
}

// invalidateRequest selects exactly one invalidation scope.
type invalidateRequest struct {
	DriverID       string `json:"driver_id,omitempty"`
	OpportunityKey string `json:"opportunity_key,omitempty"`
	All            bool   `json:"all,omitempty"`
}

func (req invalidateRequest) validate() error {
	set := 0
	if req.DriverID != "" {
		set++
	}
	if req.OpportunityKey != "" {
		set++
	}
	if req.All {
		set++
	}
	if set != 1 {
		return fmt.Errorf("%w: exactly one of driver_id, opportunity_key, all", ErrBadRequest)
	}
	return nil
}

type invalidateResponse struct {
	Dropped int `json:"dropped"`
}

// HandleInvalidate handles POST /invalidate requests.
func (h *InvalidateHandler) HandleInvalidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req invalidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	var dropped int
	switch {
	case req.All:
		h.deps.InvalidateAll()
	case req.DriverID != "":
		dropped = h.deps.InvalidateDriver(req.DriverID)
	default:
		dropped = h.deps.InvalidateOpportunity(req.OpportunityKey)
	}
	writeJSON(w, http.StatusOK, invalidateResponse{Dropped: dropped})
}
