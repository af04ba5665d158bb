package api

import (
	"net/http"

	"github.com/okian/solodex/pkg/logger"
)

// StatsHandler handles stats requests.
type StatsHandler struct {
	statsProvider StatsProvider
	log           logger.Logger
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(statsProvider StatsProvider) *StatsHandler {
	return &StatsHandler{statsProvider: statsProvider, log: logger.NamedOrNop("stats")}
}

// HandleStats handles GET /api/stats requests.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.statsProvider.GetStats(r.Context())
	if err != nil {
		h.log.Error(r.Context(), "stats failed", logger.Error(err))
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// HandleOverview handles GET /api/stats/overview requests.
func (h *StatsHandler) HandleOverview(w http.ResponseWriter, r *http.Request) {
	ov, err := h.statsProvider.Overview(r.Context())
	if err != nil {
		h.log.Error(r.Context(), "overview failed", logger.Error(err))
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}
	writeJSON(w, http.StatusOK, ov)
}
