package api

import "net/http"

// StatsProvider exposes a point-in-time service snapshot for /stats.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// StatsHandler serves runtime service statistics.
type StatsHandler struct {
	provider StatsProvider
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(provider StatsProvider) *StatsHandler {
	return &StatsHandler{provider: provider}
}

// HandleStats handles GET /stats requests.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.provider.GetStats())
}
