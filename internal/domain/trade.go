package domain

import "time"

// Market regime labels attached to trades at entry. The miner groups by
// these; the empty string and "unknown" are excluded from regime grouping.
const (
	RegimeLateral  = "lateral"
	RegimeChoppy   = "choppy"
	RegimeNormal   = "normal"
	RegimeTrending = "trending"
	RegimeUnknown  = "unknown"
)

// KnownRegimes are the regimes the miner crosses against operating modes.
var KnownRegimes = []string{RegimeLateral, RegimeChoppy, RegimeNormal, RegimeTrending}

// Mode is the bot operating mode at trade entry.
type Mode string

const (
	ModeNormal Mode = "NORMAL"
	ModeFlat   Mode = "FLAT"
)

// KnownModes lists the modes the miner partitions by.
var KnownModes = []Mode{ModeFlat, ModeNormal}

// TradeRecord is one closed trade as reported by the bot. It is built once
// on EXIT ingestion, stamped with the latest market snapshot, and never
// mutated afterwards.
type TradeRecord struct {
	Asset        string  `json:"asset"`
	PnL          float64 `json:"pnl"`
	Win          bool    `json:"win"`
	Regime       string  `json:"regime"`
	HourUTC      int     `json:"hour_utc"`
	Strength     float64 `json:"strength"`
	Seed         float64 `json:"seed"`
	Mode         Mode    `json:"mode"`
	Duration     float64 `json:"duration"`
	Reason       string  `json:"reason"`
	ConsecLosses int     `json:"consec_losses"`
	EntryTS      float64 `json:"entry_ts"`

	// Microstructure snapshot captured at ingestion time.
	FundingRate  float64 `json:"funding_rate"`
	OpenInterest float64 `json:"open_interest"`
	BidWall      float64 `json:"bid_wall"`
	AskWall      float64 `json:"ask_wall"`

	CreatedAt time.Time `json:"created_at"`
}

// MarketSnapshot holds the latest known market microstructure values. It is
// a single mutable record, overwritten on every MARKET_DATA event and read
// by the ingestion gateway when stamping new trade records.
type MarketSnapshot struct {
	FundingRate  float64    `json:"funding_rate"`
	OpenInterest float64    `json:"open_interest"`
	BidWall      float64    `json:"bid_wall"`
	BidWallPrice float64    `json:"bid_wall_price"`
	AskWall      float64    `json:"ask_wall"`
	AskWallPrice float64    `json:"ask_wall_price"`
	UpdatedAt    *time.Time `json:"updated_at"`
}

// BotStatus tracks running aggregates about the external bot, updated on
// every ingested event.
type BotStatus struct {
	IsRunning      bool       `json:"is_running"`
	LastPing       *time.Time `json:"last_ping"`
	TotalTrades    int        `json:"total_trades"`
	TotalPnL       float64    `json:"total_pnl"`
	Wins           int        `json:"wins"`
	Losses         int        `json:"losses"`
	LastAnalysis   *time.Time `json:"last_analysis"`
	RulesGenerated int        `json:"rules_generated"`
}
