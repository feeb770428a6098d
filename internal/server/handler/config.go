package handler

import (
	"log/slog"
	"net/http"

	"github.com/overtop/tradebrain/internal/service"
)

// ConfigHandler serves the bot poll endpoint: runtime parameters plus the
// enabled rule set, and accepts parameter patches.
type ConfigHandler struct {
	rules  *service.RuleService
	params *service.ParamsService
	logger *slog.Logger
}

// NewConfigHandler creates a ConfigHandler.
func NewConfigHandler(rules *service.RuleService, params *service.ParamsService, logger *slog.Logger) *ConfigHandler {
	return &ConfigHandler{rules: rules, params: params, logger: logger}
}

// GetConfig returns the current trading parameters and every enabled rule.
// GET /api/trading/config
func (h *ConfigHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.rules.ConfigPayload())
}

// UpdateParams patches the runtime trading parameters. Unknown keys are
// ignored; the response lists what actually changed.
// POST /api/trading/config
func (h *ConfigHandler) UpdateParams(w http.ResponseWriter, r *http.Request) {
	var patch map[string]float64
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(patch) == 0 {
		writeError(w, http.StatusBadRequest, "empty parameter patch")
		return
	}

	changes := h.params.Update(patch)
	if len(changes) > 0 {
		h.rules.RefreshCache()
		h.logger.InfoContext(r.Context(), "trading params updated",
			slog.Int("changed", len(changes)),
		)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"updated": changes,
		"params":  h.params.Get(),
	})
}
