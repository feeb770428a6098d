package handler

import (
	"log/slog"
	"net/http"
	"time"
)

// HealthHandler serves the health-check endpoint.
type HealthHandler struct {
	logger    *slog.Logger
	startedAt time.Time
	mirrored  func() bool
}

// NewHealthHandler creates a HealthHandler. mirrored reports whether the
// durable mirror is attached; nil means no mirror was configured.
func NewHealthHandler(logger *slog.Logger, mirrored func() bool) *HealthHandler {
	return &HealthHandler{
		logger:    logger,
		startedAt: time.Now().UTC(),
		mirrored:  mirrored,
	}
}

// HealthCheck responds with liveness info and whether the mirror is up.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	db := false
	if h.mirrored != nil {
		db = h.mirrored()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
		"db_connected":   db,
	})
}
