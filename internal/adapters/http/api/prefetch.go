package api

import (
	"net/http"
	"strings"
)

// PrefetchHandler warms the cache for a driver.
type PrefetchHandler struct {
	deps Dependencies
}

// NewPrefetchHandler creates a new prefetch handler.
func NewPrefetchHandler(deps Dependencies) *PrefetchHandler {
	return &PrefetchHandler{deps: deps}
}

type prefetchResponse struct {
	Status string `json:"status"`
}

// HandlePrefetch handles POST /prefetch/{driver_id} requests.
func (h *PrefetchHandler) HandlePrefetch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	driverID := strings.TrimPrefix(r.URL.Path, "/prefetch/")
	if driverID == "" || strings.Contains(driverID, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	if err := h.deps.Prefetch(r.Context(), driverID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, prefetchResponse{Status: "warmed"})
}
