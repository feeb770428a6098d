package domain

import "time"

// TradingParams is the mutable runtime parameter set served to the bot
// alongside the enabled rules. Keys are fixed at startup; updates may only
// change the value of a known key.
type TradingParams struct {
	Values      map[string]float64 `json:"values"`
	Version     string             `json:"version"`
	LastUpdated *time.Time         `json:"last_updated"`
}

// DefaultTradingParams returns the parameter set the bot starts from.
func DefaultTradingParams() TradingParams {
	return TradingParams{
		Version: "brain-1",
		Values: map[string]float64{
			"risk_per_trade":        0.015,
			"normal_min_strength":   0.55,
			"normal_max_strength":   0.80,
			"normal_hard_sl":        0.25,
			"normal_veto_wr":        0.50,
			"normal_boost_wr":       0.68,
			"normal_mult_max":       1.3,
			"flat_min_strength":     0.65,
			"flat_max_strength":     0.75,
			"flat_hard_sl":          0.20,
			"flat_veto_wr":          0.30,
			"flat_boost_wr":         0.68,
			"flat_mult_max":         1.2,
			"flat_switch_threshold": 0.0028,
			"seed_threshold_normal": 0.45,
			"seed_threshold_flat":   0.50,
			"boost_seed_min_normal": 0.58,
			"ghost_wr":              0.40,
			"ghost_pnl":             -0.05,
			"meta_acc_threshold":    0.55,
			"meta_reduction":        0.8,
			"take_profit_r":         0.65,
			"min_hold_time_sl":      2.0,
		},
	}
}

// ParamChange records one applied parameter update for the caller.
type ParamChange struct {
	Old float64 `json:"old"`
	New float64 `json:"new"`
}
