package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/overtop/tradebrain/internal/domain"
	"github.com/overtop/tradebrain/internal/service"
)

// IngestHandler accepts bot event reports.
type IngestHandler struct {
	ingest *service.IngestService
	logger *slog.Logger
}

// NewIngestHandler creates an IngestHandler.
func NewIngestHandler(ingest *service.IngestService, logger *slog.Logger) *IngestHandler {
	return &IngestHandler{ingest: ingest, logger: logger}
}

// LogEvent records one bot event (ENTRY, EXIT, MARKET_DATA, BLOCK).
// POST /api/trading/log
func (h *IngestHandler) LogEvent(w http.ResponseWriter, r *http.Request) {
	var ev domain.BotEvent
	if err := decodeJSON(r, &ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	res, err := h.ingest.Ingest(r.Context(), ev)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidEvent) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.ErrorContext(r.Context(), "ingest failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "ingest failed")
		return
	}

	writeJSON(w, http.StatusOK, res)
}
