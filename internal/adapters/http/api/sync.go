package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

// syncRequest is the payload the external sync process posts after new
// historical data lands for a driver.
type syncRequest struct {
	NoticeID string `json:"notice_id"`
	DriverID string `json:"driver_id"`
}

type syncResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// SyncHandler handles data-sync notifications.
type SyncHandler struct {
	deps Dependencies
}

// NewSyncHandler creates a new sync notification handler.
func NewSyncHandler(deps Dependencies) *SyncHandler {
	return &SyncHandler{deps: deps}
}

// HandleSync handles POST /sync requests. The notice is queued for
// background invalidation and warm-up; redeliveries of a known notice_id
// are acknowledged without re-queueing.
func (h *SyncHandler) HandleSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: invalid JSON body", ErrBadRequest))
		return
	}
	if req.DriverID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: driver_id is required", ErrBadRequest))
		return
	}
	// Without a notice ID there is nothing to deduplicate against; mint one.
	if req.NoticeID == "" {
		req.NoticeID = uuid.NewString()
	}

	accepted, duplicate := h.deps.SubmitSyncNotice(r.Context(), req.NoticeID, req.DriverID)
	if !accepted {
		writeError(w, http.StatusTooManyRequests, "queue_full", fmt.Errorf("sync queue is full"))
		return
	}
	if duplicate {
		writeJSON(w, http.StatusOK, syncResponse{Status: "ok", Duplicate: true})
		return
	}
	writeJSON(w, http.StatusAccepted, syncResponse{Status: "queued", Duplicate: false})
}
