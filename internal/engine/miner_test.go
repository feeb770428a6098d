package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/overtop/tradebrain/internal/domain"
)

// scatterTrades builds n trades whose seed, hour, asset and mode are spread
// thin enough that no partition reaches the default per-band minimums. Tests
// then concentrate the one dimension under test via mutate.
func scatterTrades(n int, mutate func(i int, t *domain.TradeRecord)) []domain.TradeRecord {
	seeds := []float64{0.40, 0.50, 0.60}
	strengths := []float64{0.25, 0.40, 0.55, 0.70}
	modes := []domain.Mode{domain.ModeNormal, domain.ModeFlat}

	trades := make([]domain.TradeRecord, n)
	for i := range trades {
		t := domain.TradeRecord{
			Asset:    "AS" + string(rune('0'+i%6)),
			Regime:   domain.RegimeUnknown,
			Seed:     seeds[i%3],
			Strength: strengths[i%4],
			HourUTC:  (i%6)*4 + 1,
			Mode:     modes[i%2],
			EntryTS:  float64(i),
		}
		if mutate != nil {
			mutate(i, &t)
		}
		trades[i] = t
	}
	return trades
}

func findRule(t *testing.T, rules []domain.Rule, id string) domain.Rule {
	t.Helper()
	for _, r := range rules {
		if r.ID == id {
			return r
		}
	}
	ids := make([]string, len(rules))
	for i, r := range rules {
		ids[i] = r.ID
	}
	t.Fatalf("rule %s not found, got %v", id, ids)
	return domain.Rule{}
}

func TestWinRatePnL(t *testing.T) {
	trades := scatterTrades(10, func(i int, tr *domain.TradeRecord) {
		tr.Win = i < 7
		tr.PnL = 0.5
	})
	wr, pnl := WinRatePnL(trades)
	assert.Equal(t, 0.7, wr)
	assert.InDelta(t, 5.0, pnl, 1e-9)

	wr, pnl = WinRatePnL(nil)
	assert.Zero(t, wr)
	assert.Zero(t, pnl)
}

func TestAnalyzeBelowMinimumSample(t *testing.T) {
	m := NewMiner(DefaultMinerConfig())
	trades := scatterTrades(24, func(i int, tr *domain.TradeRecord) {
		tr.PnL = -1
	})

	assert.Empty(t, m.Analyze(trades, nil))
}

func TestAnalyzeBlocksLosingStrengthBand(t *testing.T) {
	m := NewMiner(DefaultMinerConfig())
	trades := scatterTrades(30, func(i int, tr *domain.TradeRecord) {
		tr.Strength = 0.10
		tr.PnL = -1
		tr.Win = false
	})

	rules := m.Analyze(trades, nil)
	require.Len(t, rules, 1)

	rule := findRule(t, rules, "AUTO_BLOCK_STRENGTH_UNDER_20_001")
	assert.Equal(t, 1, rule.Version)
	assert.Equal(t, domain.ActionBlockEntry, rule.Action.Type)
	assert.Equal(t, "auto_strength_under_20", rule.Action.Reason)
	assert.Equal(t, "miner:strength", rule.Source)
	assert.True(t, rule.Enabled)

	// The first band is open below, so a single upper-bound trigger suffices.
	require.Len(t, rule.Triggers, 1)
	assert.Equal(t, "strength", rule.Triggers[0].Param)
	assert.Equal(t, domain.OpLT, rule.Triggers[0].Op)
	assert.Equal(t, 0.20, rule.Triggers[0].Value)
}

func TestAnalyzeBoostsWinningStrengthBand(t *testing.T) {
	m := NewMiner(DefaultMinerConfig())
	trades := scatterTrades(30, func(i int, tr *domain.TradeRecord) {
		if i < 20 {
			tr.Strength = 0.90
			tr.PnL = 2
			tr.Win = true
		} else {
			tr.PnL = 0.1
			tr.Win = i%2 == 0
		}
	})

	rules := m.Analyze(trades, nil)
	require.Len(t, rules, 1)

	rule := findRule(t, rules, "AUTO_BOOST_STRENGTH_OVER_80_001")
	assert.Equal(t, domain.ActionResize, rule.Action.Type)
	assert.Equal(t, 1.20, rule.Action.Multiplier)
	assert.Equal(t, 3, rule.Priority)
	require.Len(t, rule.Triggers, 2)
	assert.Equal(t, domain.OpGTE, rule.Triggers[0].Op)
	assert.Equal(t, 0.80, rule.Triggers[0].Value)
}

func TestAnalyzeBlocksLosingSeedBand(t *testing.T) {
	m := NewMiner(DefaultMinerConfig())
	trades := scatterTrades(25, func(i int, tr *domain.TradeRecord) {
		tr.Seed = 0.50
		tr.PnL = -1
		tr.Win = false
	})

	rules := m.Analyze(trades, nil)
	require.Len(t, rules, 1)

	rule := findRule(t, rules, "AUTO_BLOCK_SEED_45_55_001")
	require.Len(t, rule.Triggers, 2)
	assert.Equal(t, "seed", rule.Triggers[0].Param)
	assert.Equal(t, domain.OpGTE, rule.Triggers[0].Op)
	assert.Equal(t, 0.45, rule.Triggers[0].Value)
	assert.Equal(t, domain.OpLT, rule.Triggers[1].Op)
	assert.Equal(t, 0.55, rule.Triggers[1].Value)
}

func TestAnalyzeRegimesAgainstGlobal(t *testing.T) {
	m := NewMiner(DefaultMinerConfig())
	trades := scatterTrades(40, func(i int, tr *domain.TradeRecord) {
		if i < 20 {
			tr.Regime = domain.RegimeTrending
			tr.Win = true
			tr.PnL = 1
		} else {
			tr.Regime = domain.RegimeChoppy
			tr.Win = false
			tr.PnL = -1
		}
	})

	rules := m.Analyze(trades, nil)
	require.Len(t, rules, 2)

	block := findRule(t, rules, "AUTO_BLOCK_REGIME_CHOPPY_001")
	assert.Equal(t, domain.ActionBlockEntry, block.Action.Type)
	assert.Equal(t, 1, block.Priority)
	require.Len(t, block.Triggers, 1)
	assert.Equal(t, "regime", block.Triggers[0].Param)
	assert.Equal(t, domain.RegimeChoppy, block.Triggers[0].Value)

	boost := findRule(t, rules, "AUTO_BOOST_REGIME_TRENDING_001")
	assert.Equal(t, domain.ActionResize, boost.Action.Type)
	assert.Equal(t, 1.25, boost.Action.Multiplier)
}

func TestAnalyzeModeStrengthCross(t *testing.T) {
	m := NewMiner(DefaultMinerConfig())
	trades := scatterTrades(30, func(i int, tr *domain.TradeRecord) {
		tr.Mode = domain.ModeFlat
		tr.Strength = 0.10
		tr.PnL = -0.3
		tr.Win = false
	})

	rules := m.Analyze(trades, nil)
	require.Len(t, rules, 1)

	rule := findRule(t, rules, "AUTO_BLOCK_FLAT_STRENGTH_UNDER_20_001")
	assert.Equal(t, "miner:mode_strength", rule.Source)
	require.Len(t, rule.Triggers, 3)
	assert.Equal(t, "mode", rule.Triggers[0].Param)
	assert.Equal(t, "FLAT", rule.Triggers[0].Value)
}

func TestAnalyzeHourBucketBlock(t *testing.T) {
	m := NewMiner(DefaultMinerConfig())
	trades := scatterTrades(25, func(i int, tr *domain.TradeRecord) {
		tr.HourUTC = 21
		tr.PnL = -1
		tr.Win = false
	})

	rules := m.Analyze(trades, nil)
	require.Len(t, rules, 1)

	rule := findRule(t, rules, "AUTO_BLOCK_HOUR_NIGHT_001")
	require.Len(t, rule.Triggers, 2)
	assert.Equal(t, "hour_utc", rule.Triggers[0].Param)
	assert.Equal(t, 20, rule.Triggers[0].Value)
	assert.Equal(t, 24, rule.Triggers[1].Value)
}

func TestAnalyzeLossStreakCooldown(t *testing.T) {
	m := NewMiner(DefaultMinerConfig())
	trades := scatterTrades(25, func(i int, tr *domain.TradeRecord) {
		tr.Asset = "BTCUSDC"
		tr.PnL = -0.1
		tr.Win = false
	})

	rules := m.Analyze(trades, nil)
	require.Len(t, rules, 1)

	rule := findRule(t, rules, "AUTO_BLOCK_LOSS_STREAK_BTCUSDC_001")
	assert.Equal(t, "auto_loss_streak_pause", rule.Action.Reason)
	require.Len(t, rule.Triggers, 2)
	assert.Equal(t, "consec_losses", rule.Triggers[0].Param)
	assert.Equal(t, domain.OpGTE, rule.Triggers[0].Op)
	assert.Equal(t, 3, rule.Triggers[0].Value)
	assert.Equal(t, "asset", rule.Triggers[1].Param)
}

func TestAnalyzeRegimeModeCombo(t *testing.T) {
	m := NewMiner(DefaultMinerConfig())
	trades := scatterTrades(30, func(i int, tr *domain.TradeRecord) {
		tr.Regime = domain.RegimeLateral
		tr.Mode = domain.ModeFlat
		tr.PnL = -0.5
		tr.Win = false
	})

	rules := m.Analyze(trades, nil)
	require.Len(t, rules, 1)

	rule := findRule(t, rules, "AUTO_COMBO_LATERAL_FLAT_001")
	assert.Equal(t, "miner:regime_mode", rule.Source)
	require.Len(t, rule.Triggers, 2)
}

func TestAnalyzeSkipsExistingIdentifiers(t *testing.T) {
	m := NewMiner(DefaultMinerConfig())
	trades := scatterTrades(30, func(i int, tr *domain.TradeRecord) {
		tr.Strength = 0.10
		tr.PnL = -1
		tr.Win = false
	})

	existing := map[string]struct{}{"AUTO_BLOCK_STRENGTH_UNDER_20_001": {}}
	assert.Empty(t, m.Analyze(trades, existing))
}

func TestAnalyzeDeterministic(t *testing.T) {
	m := NewMiner(DefaultMinerConfig())
	trades := scatterTrades(40, func(i int, tr *domain.TradeRecord) {
		if i < 20 {
			tr.Regime = domain.RegimeTrending
			tr.Win = true
			tr.PnL = 1
		} else {
			tr.Regime = domain.RegimeChoppy
			tr.Win = false
			tr.PnL = -1
		}
	})

	first := m.Analyze(trades, nil)
	second := m.Analyze(trades, nil)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
	}
}
