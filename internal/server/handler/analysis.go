package handler

import (
	"net/http"

	"github.com/overtop/tradebrain/internal/engine"
	"github.com/overtop/tradebrain/internal/service"
)

// AnalysisHandler exposes the manual analysis trigger and the performance
// breakdown report.
type AnalysisHandler struct {
	sched  *engine.Scheduler
	report *service.ReportService
}

// NewAnalysisHandler creates an AnalysisHandler.
func NewAnalysisHandler(sched *engine.Scheduler, report *service.ReportService) *AnalysisHandler {
	return &AnalysisHandler{sched: sched, report: report}
}

// TriggerAnalysis runs one analysis pass synchronously and returns its
// summary. A pass below the minimum sample is reported as skipped, not as
// an error.
// POST /api/trading/analyze
func (h *AnalysisHandler) TriggerAnalysis(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sched.RunOnce(r.Context()))
}

// GetReport returns the win-rate and PnL breakdown per strength band, seed
// band, regime, and mode. The limit query caps how many recent trades feed
// the report.
// GET /api/trading/report
func (h *AnalysisHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 0)
	writeJSON(w, http.StatusOK, h.report.Breakdown(limit))
}
