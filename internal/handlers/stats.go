package handlers

import (
	"net/http"

	"archivist-ai/internal/contextutil"
	"archivist-ai/internal/storage"
)

// StatsHandler reports corpus-level counts for diagnostic display.
type StatsHandler struct {
	passageRepo storage.PassageStore
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(passageRepo storage.PassageStore) *StatsHandler {
	return &StatsHandler{passageRepo: passageRepo}
}

// StatsResponse represents the corpus stats response.
type StatsResponse struct {
	Sources          int `json:"sources"`
	Passages         int `json:"passages"`
	EmbeddedPassages int `json:"embeddedPassages"`
}

// ServeHTTP handles GET /api/stats.
func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	stats, err := h.passageRepo.Stats(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "failed to query corpus stats", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to query stats")
		return
	}

	writeJSON(w, http.StatusOK, StatsResponse{
		Sources:          stats.Sources,
		Passages:         stats.Passages,
		EmbeddedPassages: stats.EmbeddedPassages,
	})
}
