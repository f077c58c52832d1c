package api

import (
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/Matt-Aurora-Ventures/Jarvis-sub032/internal/domain/execution"
)

// GetStats handles GET /api/stats
func (h *handlerSet) GetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.monitor.Stats())
}

// GetExecutions handles GET /api/executions?limit=N
func (h *handlerSet) GetExecutions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	if h.journal == nil {
		writeJSON(w, http.StatusOK, []execution.Record{})
		return
	}

	records, err := h.journal.Recent(ctx, limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read execution journal")
		http.Error(w, "Failed to read executions", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []execution.Record{}
	}

	writeJSON(w, http.StatusOK, records)
}
