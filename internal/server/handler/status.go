package handler

import (
	"net/http"

	"github.com/overtop/tradebrain/internal/service"
)

// StatusHandler serves the engine status snapshot.
type StatusHandler struct {
	ingest *service.IngestService
}

// NewStatusHandler creates a StatusHandler.
func NewStatusHandler(ingest *service.IngestService) *StatusHandler {
	return &StatusHandler{ingest: ingest}
}

// GetStatus returns bot totals, window metrics, the full rule set, recent
// audit lines, and a sample of recent trades. The minutes query controls
// the metrics window (default 60).
// GET /api/trading/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	minutes := queryInt(r, "minutes", 60)
	if minutes <= 0 {
		minutes = 60
	}
	writeJSON(w, http.StatusOK, h.ingest.Status(r.Context(), minutes))
}
