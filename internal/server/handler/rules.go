package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/overtop/tradebrain/internal/domain"
	"github.com/overtop/tradebrain/internal/service"
)

// RuleHandler serves rule submission, listing, and disabling.
type RuleHandler struct {
	rules  *service.RuleService
	logger *slog.Logger
}

// NewRuleHandler creates a RuleHandler.
func NewRuleHandler(rules *service.RuleService, logger *slog.Logger) *RuleHandler {
	return &RuleHandler{rules: rules, logger: logger}
}

// SubmitRule applies a version-gated rule upsert. A stale version is a 200
// with status "skipped_stale", not an error.
// POST /api/trading/rules
func (h *RuleHandler) SubmitRule(w http.ResponseWriter, r *http.Request) {
	var rule domain.Rule
	if err := decodeJSON(r, &rule); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	res, err := h.rules.Submit(r.Context(), rule)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRule) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.ErrorContext(r.Context(), "rule submit failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "rule submit failed")
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// ListRules returns every rule, disabled ones included.
// GET /api/trading/rules
func (h *RuleHandler) ListRules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"rules": h.rules.ListAll(),
	})
}

// DisableRule flips the enabled flag; the rule stays listed for audit.
// DELETE /api/trading/rules/{id}
func (h *RuleHandler) DisableRule(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing rule id")
		return
	}

	if err := h.rules.Disable(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "rule not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "rule disable failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "rule disable failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "disabled",
		"rule_id": id,
	})
}
