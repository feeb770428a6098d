package engine

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/overtop/tradebrain/internal/domain"
)

// HourBucket is a fixed UTC hour-of-day band, start inclusive, end exclusive.
type HourBucket struct {
	Name  string
	Start int
	End   int
}

// MinerConfig holds every threshold the miner compares against. Values are
// literal cutoffs; comparisons are strict with no epsilon tolerance.
type MinerConfig struct {
	// MinSnapshot is the global minimum sample count; snapshots below it
	// are not analyzed at all.
	MinSnapshot int
	// MinBandSample is the per-partition minimum for the strength, seed,
	// regime and hour heuristics.
	MinBandSample int
	// MinDelta is how far below (above) the global win rate a regime group
	// must sit before a block (boost) rule is considered.
	MinDelta float64

	// StrengthEdges are the contiguous band boundaries over the strength
	// score. The final edge is a sentinel above any observable value.
	StrengthEdges    []float64
	StrengthBlockWR  float64
	StrengthBlockPnL float64
	StrengthBoostWR  float64
	StrengthBoostPnL float64
	BoostMultiplier  float64

	// Seed-confidence bands, block-only.
	SeedEdges    []float64
	SeedBlockWR  float64
	SeedBlockPnL float64

	RegimeBlockWR         float64
	RegimeBoostWR         float64
	RegimeBoostMultiplier float64

	// Mode x strength cross, with its own smaller minimum.
	ModeMinSample int
	ModeBlockWR   float64
	ModeBlockPnL  float64

	HourBuckets  []HourBucket
	HourBlockWR  float64
	HourBlockPnL float64

	// Post-losing-streak cool-down.
	StreakLength    int
	StreakMinSample int
	StreakBlockWR   float64

	// Regime x mode combination.
	ComboMinSample int
	ComboBlockWR   float64
	ComboBlockPnL  float64
}

// DefaultMinerConfig returns the documented default thresholds.
func DefaultMinerConfig() MinerConfig {
	return MinerConfig{
		MinSnapshot:   25,
		MinBandSample: 20,
		MinDelta:      0.10,

		StrengthEdges:    []float64{0, 0.20, 0.35, 0.50, 0.65, 0.80, 2.0},
		StrengthBlockWR:  0.38,
		StrengthBlockPnL: -10,
		StrengthBoostWR:  0.68,
		StrengthBoostPnL: 10,
		BoostMultiplier:  1.20,

		SeedEdges:    []float64{0, 0.45, 0.55, 0.65, 2.0},
		SeedBlockWR:  0.38,
		SeedBlockPnL: -8,

		RegimeBlockWR:         0.35,
		RegimeBoostWR:         0.70,
		RegimeBoostMultiplier: 1.25,

		ModeMinSample: 15,
		ModeBlockWR:   0.35,
		ModeBlockPnL:  -5,

		HourBuckets: []HourBucket{
			{Name: "morning", Start: 8, End: 12},
			{Name: "afternoon", Start: 12, End: 16},
			{Name: "evening", Start: 16, End: 20},
			{Name: "night", Start: 20, End: 24},
			{Name: "late_night", Start: 0, End: 4},
			{Name: "dawn", Start: 4, End: 8},
		},
		HourBlockWR:  0.35,
		HourBlockPnL: -10,

		StreakLength:    3,
		StreakMinSample: 8,
		StreakBlockWR:   0.40,

		ComboMinSample: 15,
		ComboBlockWR:   0.33,
		ComboBlockPnL:  -8,
	}
}

// WinRatePnL computes the win rate and summed PnL of a trade group. The win
// rate is wins/count, zero for an empty group; the PnL is a plain sum.
func WinRatePnL(trades []domain.TradeRecord) (float64, float64) {
	if len(trades) == 0 {
		return 0, 0
	}
	wins := 0
	pnl := 0.0
	for _, t := range trades {
		if t.Win {
			wins++
		}
		pnl += t.PnL
	}
	return float64(wins) / float64(len(trades)), pnl
}

// Miner derives candidate rules from a snapshot of closed trades. Analyze
// is pure: it mutates neither the snapshot nor the existing identifier set,
// and repeated passes over the same data are deterministic.
type Miner struct {
	cfg MinerConfig
}

// NewMiner creates a Miner with the given thresholds.
func NewMiner(cfg MinerConfig) *Miner {
	return &Miner{cfg: cfg}
}

// Analyze runs every heuristic over the snapshot and returns candidate
// rules whose identifiers are not in existing. Below MinSnapshot trades no
// analysis happens and the result is empty: small samples produce spurious
// rules.
func (m *Miner) Analyze(trades []domain.TradeRecord, existing map[string]struct{}) []domain.Rule {
	if len(trades) < m.cfg.MinSnapshot {
		return nil
	}

	globalWR, _ := WinRatePnL(trades)

	var rules []domain.Rule
	emit := func(r domain.Rule) {
		if _, ok := existing[r.ID]; ok {
			return
		}
		// A later heuristic in the same pass never overwrites an earlier
		// identifier either; first emission wins.
		for _, seen := range rules {
			if seen.ID == r.ID {
				return
			}
		}
		rules = append(rules, r)
	}

	m.mineStrengthBands(trades, emit)
	m.mineSeedBands(trades, emit)
	m.mineRegimes(trades, globalWR, emit)
	m.mineModeStrength(trades, emit)
	m.mineHourBuckets(trades, emit)
	m.mineLossStreaks(trades, emit)
	m.mineRegimeModeCombos(trades, emit)

	return rules
}

// mineStrengthBands partitions trades into contiguous strength-score bands
// and emits a block rule for bands that lose and a resize boost for bands
// that win.
func (m *Miner) mineStrengthBands(trades []domain.TradeRecord, emit func(domain.Rule)) {
	edges := m.cfg.StrengthEdges
	for i := 0; i+1 < len(edges); i++ {
		lower, upper := edges[i], edges[i+1]
		group := filterTrades(trades, func(t domain.TradeRecord) bool {
			return inBand(t.Strength, lower, upper, i == 0, i+2 == len(edges))
		})
		if len(group) < m.cfg.MinBandSample {
			continue
		}
		wr, pnl := WinRatePnL(group)
		label := bandLabel(lower, upper, i == 0, i+2 == len(edges))

		if wr < m.cfg.StrengthBlockWR && pnl < m.cfg.StrengthBlockPnL {
			emit(domain.Rule{
				ID:          "AUTO_BLOCK_STRENGTH_" + label + "_001",
				Version:     1,
				Description: fmt.Sprintf("miner: strength %s WR=%.0f%% PnL=%+.2f over %d trades - block entry", strings.ToLower(label), wr*100, pnl, len(group)),
				Triggers:    bandTriggers("strength", lower, upper),
				Action:      domain.Action{Type: domain.ActionBlockEntry, Reason: "auto_strength_" + strings.ToLower(label)},
				Priority:    2,
				Enabled:     true,
				Source:      "miner:strength",
			})
		} else if wr > m.cfg.StrengthBoostWR && pnl > m.cfg.StrengthBoostPnL {
			emit(domain.Rule{
				ID:          "AUTO_BOOST_STRENGTH_" + label + "_001",
				Version:     1,
				Description: fmt.Sprintf("miner: strength %s WR=%.0f%% PnL=%+.2f over %d trades - boost size", strings.ToLower(label), wr*100, pnl, len(group)),
				Triggers: []domain.Trigger{
					{Param: "strength", Op: domain.OpGTE, Value: lower},
					{Param: "strength", Op: domain.OpLT, Value: upper},
				},
				Action:   domain.Action{Type: domain.ActionResize, Multiplier: m.cfg.BoostMultiplier},
				Priority: 3,
				Enabled:  true,
				Source:   "miner:strength",
			})
		}
	}
}

// mineSeedBands is the block-only analogue of mineStrengthBands over the
// seed-confidence score.
func (m *Miner) mineSeedBands(trades []domain.TradeRecord, emit func(domain.Rule)) {
	edges := m.cfg.SeedEdges
	for i := 0; i+1 < len(edges); i++ {
		lower, upper := edges[i], edges[i+1]
		group := filterTrades(trades, func(t domain.TradeRecord) bool {
			return inBand(t.Seed, lower, upper, i == 0, i+2 == len(edges))
		})
		if len(group) < m.cfg.MinBandSample {
			continue
		}
		wr, pnl := WinRatePnL(group)
		if wr >= m.cfg.SeedBlockWR || pnl >= m.cfg.SeedBlockPnL {
			continue
		}
		label := bandLabel(lower, upper, i == 0, i+2 == len(edges))
		emit(domain.Rule{
			ID:          "AUTO_BLOCK_SEED_" + label + "_001",
			Version:     1,
			Description: fmt.Sprintf("miner: seed %s WR=%.0f%% PnL=%+.2f over %d trades - block entry", strings.ToLower(label), wr*100, pnl, len(group)),
			Triggers:    bandTriggers("seed", lower, upper),
			Action:      domain.Action{Type: domain.ActionBlockEntry, Reason: "auto_seed_" + strings.ToLower(label)},
			Priority:    2,
			Enabled:     true,
			Source:      "miner:seed",
		})
	}
}

// mineRegimes groups by regime label and compares each group against the
// global win rate. Empty and unknown labels are ignored.
func (m *Miner) mineRegimes(trades []domain.TradeRecord, globalWR float64, emit func(domain.Rule)) {
	groups := make(map[string][]domain.TradeRecord)
	for _, t := range trades {
		if t.Regime == "" || t.Regime == domain.RegimeUnknown {
			continue
		}
		groups[t.Regime] = append(groups[t.Regime], t)
	}

	regimes := make([]string, 0, len(groups))
	for regime := range groups {
		regimes = append(regimes, regime)
	}
	sort.Strings(regimes)

	for _, regime := range regimes {
		group := groups[regime]
		if len(group) < m.cfg.MinBandSample {
			continue
		}
		wr, pnl := WinRatePnL(group)
		upper := strings.ToUpper(regime)

		if wr < m.cfg.RegimeBlockWR && wr < globalWR-m.cfg.MinDelta {
			emit(domain.Rule{
				ID:          "AUTO_BLOCK_REGIME_" + upper + "_001",
				Version:     1,
				Description: fmt.Sprintf("miner: regime %s WR=%.0f%% PnL=%+.2f over %d trades - block entry", regime, wr*100, pnl, len(group)),
				Triggers:    []domain.Trigger{{Param: "regime", Op: domain.OpEQ, Value: regime}},
				Action:      domain.Action{Type: domain.ActionBlockEntry, Reason: "auto_regime_" + regime},
				Priority:    1,
				Enabled:     true,
				Source:      "miner:regime",
			})
		} else if wr > m.cfg.RegimeBoostWR && wr > globalWR+m.cfg.MinDelta {
			emit(domain.Rule{
				ID:          "AUTO_BOOST_REGIME_" + upper + "_001",
				Version:     1,
				Description: fmt.Sprintf("miner: regime %s WR=%.0f%% over %d trades - boost size", regime, wr*100, len(group)),
				Triggers:    []domain.Trigger{{Param: "regime", Op: domain.OpEQ, Value: regime}},
				Action:      domain.Action{Type: domain.ActionResize, Multiplier: m.cfg.RegimeBoostMultiplier},
				Priority:    3,
				Enabled:     true,
				Source:      "miner:regime",
			})
		}
	}
}

// mineModeStrength repeats the strength banding inside each operating mode,
// with a smaller per-band minimum, composing mode equality with the band
// bounds.
func (m *Miner) mineModeStrength(trades []domain.TradeRecord, emit func(domain.Rule)) {
	edges := m.cfg.StrengthEdges
	for _, mode := range domain.KnownModes {
		inMode := filterTrades(trades, func(t domain.TradeRecord) bool {
			return t.Mode == mode
		})
		if len(inMode) < m.cfg.MinBandSample {
			continue
		}
		for i := 0; i+1 < len(edges); i++ {
			lower, upper := edges[i], edges[i+1]
			group := filterTrades(inMode, func(t domain.TradeRecord) bool {
				return inBand(t.Strength, lower, upper, i == 0, i+2 == len(edges))
			})
			if len(group) < m.cfg.ModeMinSample {
				continue
			}
			wr, pnl := WinRatePnL(group)
			if wr >= m.cfg.ModeBlockWR || pnl >= m.cfg.ModeBlockPnL {
				continue
			}
			label := bandLabel(lower, upper, i == 0, i+2 == len(edges))
			emit(domain.Rule{
				ID:          "AUTO_BLOCK_" + string(mode) + "_STRENGTH_" + label + "_001",
				Version:     1,
				Description: fmt.Sprintf("miner: %s + strength %s WR=%.0f%% PnL=%+.2f - block entry", mode, strings.ToLower(label), wr*100, pnl),
				Triggers: append([]domain.Trigger{
					{Param: "mode", Op: domain.OpEQ, Value: string(mode)},
				}, []domain.Trigger{
					{Param: "strength", Op: domain.OpGTE, Value: lower},
					{Param: "strength", Op: domain.OpLT, Value: upper},
				}...),
				Action:   domain.Action{Type: domain.ActionBlockEntry, Reason: "auto_" + strings.ToLower(string(mode)) + "_strength_" + strings.ToLower(label)},
				Priority: 2,
				Enabled:  true,
				Source:   "miner:mode_strength",
			})
		}
	}
}

// mineHourBuckets checks each fixed UTC hour band against absolute win-rate
// and PnL floors. Block-only.
func (m *Miner) mineHourBuckets(trades []domain.TradeRecord, emit func(domain.Rule)) {
	for _, bucket := range m.cfg.HourBuckets {
		group := filterTrades(trades, func(t domain.TradeRecord) bool {
			return t.HourUTC >= bucket.Start && t.HourUTC < bucket.End
		})
		if len(group) < m.cfg.MinBandSample {
			continue
		}
		wr, pnl := WinRatePnL(group)
		if wr >= m.cfg.HourBlockWR || pnl >= m.cfg.HourBlockPnL {
			continue
		}
		emit(domain.Rule{
			ID:          "AUTO_BLOCK_HOUR_" + strings.ToUpper(bucket.Name) + "_001",
			Version:     1,
			Description: fmt.Sprintf("miner: hours %s (%02d-%02dh UTC) WR=%.0f%% PnL=%+.2f - block entry", bucket.Name, bucket.Start, bucket.End, wr*100, pnl),
			Triggers: []domain.Trigger{
				{Param: "hour_utc", Op: domain.OpGTE, Value: bucket.Start},
				{Param: "hour_utc", Op: domain.OpLT, Value: bucket.End},
			},
			Action:   domain.Action{Type: domain.ActionBlockEntry, Reason: "auto_hour_" + bucket.Name},
			Priority: 2,
			Enabled:  true,
			Source:   "miner:hour",
		})
	}
}

// mineLossStreaks looks, per asset, at the trades taken right after
// StreakLength consecutive losses. When that sub-sequence is big enough
// and still losing, it emits a cool-down block on the asset.
func (m *Miner) mineLossStreaks(trades []domain.TradeRecord, emit func(domain.Rule)) {
	perAsset := make(map[string][]domain.TradeRecord)
	for _, t := range trades {
		asset := t.Asset
		if asset == "" {
			asset = "ALL"
		}
		perAsset[asset] = append(perAsset[asset], t)
	}

	assets := make([]string, 0, len(perAsset))
	for asset := range perAsset {
		assets = append(assets, asset)
	}
	sort.Strings(assets)

	streak := m.cfg.StreakLength
	for _, asset := range assets {
		seq := perAsset[asset]
		sort.SliceStable(seq, func(i, j int) bool {
			return seq[i].EntryTS < seq[j].EntryTS
		})

		var afterStreak []domain.TradeRecord
		for i := streak; i < len(seq); i++ {
			allLosses := true
			for k := 1; k <= streak; k++ {
				if seq[i-k].Win {
					allLosses = false
					break
				}
			}
			if allLosses {
				afterStreak = append(afterStreak, seq[i])
			}
		}

		if len(afterStreak) < m.cfg.StreakMinSample {
			continue
		}
		wr, _ := WinRatePnL(afterStreak)
		if wr >= m.cfg.StreakBlockWR {
			continue
		}
		emit(domain.Rule{
			ID:          "AUTO_BLOCK_LOSS_STREAK_" + asset + "_001",
			Version:     1,
			Description: fmt.Sprintf("miner: after %d losses on %s WR=%.0f%% over %d cases - cool-down block", streak, asset, wr*100, len(afterStreak)),
			Triggers: []domain.Trigger{
				{Param: "consec_losses", Op: domain.OpGTE, Value: streak},
				{Param: "asset", Op: domain.OpEQ, Value: asset},
			},
			Action:   domain.Action{Type: domain.ActionBlockEntry, Reason: "auto_loss_streak_pause"},
			Priority: 2,
			Enabled:  true,
			Source:   "miner:loss_streak",
		})
	}
}

// mineRegimeModeCombos crosses the fixed regime set with the two operating
// modes. Block-only, with its own minimum and floors.
func (m *Miner) mineRegimeModeCombos(trades []domain.TradeRecord, emit func(domain.Rule)) {
	for _, regime := range domain.KnownRegimes {
		for _, mode := range domain.KnownModes {
			group := filterTrades(trades, func(t domain.TradeRecord) bool {
				return t.Regime == regime && t.Mode == mode
			})
			if len(group) < m.cfg.ComboMinSample {
				continue
			}
			wr, pnl := WinRatePnL(group)
			if wr >= m.cfg.ComboBlockWR || pnl >= m.cfg.ComboBlockPnL {
				continue
			}
			emit(domain.Rule{
				ID:          "AUTO_COMBO_" + strings.ToUpper(regime) + "_" + string(mode) + "_001",
				Version:     1,
				Description: fmt.Sprintf("miner: combo %s+%s WR=%.0f%% PnL=%+.2f over %d trades - block entry", regime, mode, wr*100, pnl, len(group)),
				Triggers: []domain.Trigger{
					{Param: "regime", Op: domain.OpEQ, Value: regime},
					{Param: "mode", Op: domain.OpEQ, Value: string(mode)},
				},
				Action:   domain.Action{Type: domain.ActionBlockEntry, Reason: "auto_combo_" + regime + "_" + strings.ToLower(string(mode))},
				Priority: 2,
				Enabled:  true,
				Source:   "miner:regime_mode",
			})
		}
	}
}

// inBand reports band membership. The first band is open below so that
// out-of-range low scores still land somewhere; the last band is open above.
func inBand(v, lower, upper float64, first, last bool) bool {
	if first {
		return v < upper
	}
	if last {
		return v >= lower
	}
	return v >= lower && v < upper
}

// bandLabel renders a deterministic band name from its bounds, e.g.
// UNDER_20, 35_50, OVER_80. Identifiers derived from it stay stable across
// passes as long as the configured edges do.
func bandLabel(lower, upper float64, first, last bool) string {
	if first {
		return "UNDER_" + pct(upper)
	}
	if last {
		return "OVER_" + pct(lower)
	}
	return pct(lower) + "_" + pct(upper)
}

func pct(v float64) string {
	return strconv.Itoa(int(math.Round(v * 100)))
}

// bandTriggers builds the bound predicates for a block band, omitting the
// lower clause when it is zero.
func bandTriggers(param string, lower, upper float64) []domain.Trigger {
	if lower == 0 {
		return []domain.Trigger{{Param: param, Op: domain.OpLT, Value: upper}}
	}
	return []domain.Trigger{
		{Param: param, Op: domain.OpGTE, Value: lower},
		{Param: param, Op: domain.OpLT, Value: upper},
	}
}

func filterTrades(trades []domain.TradeRecord, keep func(domain.TradeRecord) bool) []domain.TradeRecord {
	var out []domain.TradeRecord
	for _, t := range trades {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}
