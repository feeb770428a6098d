package service

import (
	"math"
	"strconv"
	"strings"

	"github.com/overtop/tradebrain/internal/domain"
	"github.com/overtop/tradebrain/internal/engine"
)

// GroupStat summarizes one partition of the snapshot.
type GroupStat struct {
	Label   string  `json:"label"`
	N       int     `json:"n"`
	WinRate float64 `json:"wr"`
	PnL     float64 `json:"pnl"`
}

// BreakdownReport is the read-only per-dimension view of the current trade
// snapshot, the data behind the operator's analysis panel.
type BreakdownReport struct {
	TotalTrades int         `json:"total_trades"`
	GlobalWR    float64     `json:"global_wr"`
	GlobalPnL   float64     `json:"global_pnl"`
	PerStrength []GroupStat `json:"per_strength"`
	PerSeed     []GroupStat `json:"per_seed"`
	PerRegime   []GroupStat `json:"per_regime"`
	PerMode     []GroupStat `json:"per_mode"`
}

// ReportService computes breakdown reports over event-log snapshots using
// the same band edges the miner partitions by.
type ReportService struct {
	log *engine.EventLog
	cfg engine.MinerConfig
}

// NewReportService wires the report service.
func NewReportService(log *engine.EventLog, cfg engine.MinerConfig) *ReportService {
	return &ReportService{log: log, cfg: cfg}
}

// Breakdown aggregates the retained trades along every miner dimension.
// Empty partitions are omitted.
func (s *ReportService) Breakdown(limit int) BreakdownReport {
	trades := s.log.SnapshotTrades(limit)
	wr, pnl := engine.WinRatePnL(trades)

	report := BreakdownReport{
		TotalTrades: len(trades),
		GlobalWR:    round(wr, 3),
		GlobalPnL:   round(pnl, 2),
		PerStrength: bandStats(trades, s.cfg.StrengthEdges, func(t domain.TradeRecord) float64 { return t.Strength }),
		PerSeed:     bandStats(trades, s.cfg.SeedEdges, func(t domain.TradeRecord) float64 { return t.Seed }),
	}

	for _, regime := range domain.KnownRegimes {
		group := groupStat(trades, regime, func(t domain.TradeRecord) bool { return t.Regime == regime })
		if group.N > 0 {
			report.PerRegime = append(report.PerRegime, group)
		}
	}
	for _, mode := range domain.KnownModes {
		group := groupStat(trades, string(mode), func(t domain.TradeRecord) bool { return t.Mode == mode })
		if group.N > 0 {
			report.PerMode = append(report.PerMode, group)
		}
	}
	return report
}

func bandStats(trades []domain.TradeRecord, edges []float64, score func(domain.TradeRecord) float64) []GroupStat {
	var out []GroupStat
	for i := 0; i+1 < len(edges); i++ {
		lower, upper := edges[i], edges[i+1]
		first, last := i == 0, i+2 == len(edges)
		label := strings.ToLower(bandName(lower, upper, first, last))

		var group []domain.TradeRecord
		for _, t := range trades {
			v := score(t)
			switch {
			case first && v < upper,
				last && v >= lower,
				!first && !last && v >= lower && v < upper:
				group = append(group, t)
			}
		}
		if len(group) == 0 {
			continue
		}
		wr, pnl := engine.WinRatePnL(group)
		out = append(out, GroupStat{Label: label, N: len(group), WinRate: round(wr, 3), PnL: round(pnl, 2)})
	}
	return out
}

func bandName(lower, upper float64, first, last bool) string {
	switch {
	case first:
		return "under_" + pctLabel(upper)
	case last:
		return "over_" + pctLabel(lower)
	default:
		return pctLabel(lower) + "_" + pctLabel(upper)
	}
}

func pctLabel(v float64) string {
	return strconv.Itoa(int(math.Round(v * 100)))
}

func groupStat(trades []domain.TradeRecord, label string, keep func(domain.TradeRecord) bool) GroupStat {
	var group []domain.TradeRecord
	for _, t := range trades {
		if keep(t) {
			group = append(group, t)
		}
	}
	wr, pnl := engine.WinRatePnL(group)
	return GroupStat{Label: label, N: len(group), WinRate: round(wr, 3), PnL: round(pnl, 2)}
}
