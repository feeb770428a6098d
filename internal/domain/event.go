package domain

import (
	"fmt"
	"time"
)

// EventType classifies an ingested bot event.
type EventType string

const (
	EventEntry      EventType = "ENTRY"
	EventExit       EventType = "EXIT"
	EventMarketData EventType = "MARKET_DATA"
	EventBlock      EventType = "BLOCK"
)

// BotEvent is the ingest DTO posted by the external bot. Only EventType is
// mandatory; every other field is optional with a documented default so
// that defaulting happens once, at the boundary, instead of being scattered
// through analysis code.
//
// Field defaults applied on EXIT: Asset "BTCUSDC", Win = PnL > 0, Regime
// falls back to Mode then "unknown", HourUTC to the current UTC hour, Mode
// to NORMAL, EntryTS to now.
type BotEvent struct {
	EventType EventType `json:"event_type"`

	Asset        string  `json:"asset,omitempty"`
	PnL          float64 `json:"pnl,omitempty"`
	Win          *bool   `json:"win,omitempty"`
	Regime       string  `json:"regime,omitempty"`
	HourUTC      *int    `json:"hour_utc,omitempty"`
	Strength     float64 `json:"strength,omitempty"`
	Seed         float64 `json:"seed,omitempty"`
	Mode         string  `json:"mode,omitempty"`
	Duration     float64 `json:"duration,omitempty"`
	Reason       string  `json:"reason,omitempty"`
	ConsecLosses int     `json:"consec_losses,omitempty"`
	EntryTS      float64 `json:"entry_ts,omitempty"`
	EntryPrice   float64 `json:"entry_price,omitempty"`
	ExitPrice    float64 `json:"exit_price,omitempty"`
	BlockReason  string  `json:"block_reason,omitempty"`

	// MARKET_DATA payload.
	FundingRate  float64 `json:"funding_rate,omitempty"`
	OpenInterest float64 `json:"open_interest,omitempty"`
	BidWall      float64 `json:"bid_wall,omitempty"`
	BidWallPrice float64 `json:"bid_wall_price,omitempty"`
	AskWall      float64 `json:"ask_wall,omitempty"`
	AskWallPrice float64 `json:"ask_wall_price,omitempty"`
}

// Validate checks that the event carries the minimal required structure.
func (e BotEvent) Validate() error {
	if e.EventType == "" {
		return fmt.Errorf("%w: missing event_type", ErrInvalidEvent)
	}
	return nil
}

// StoredEvent is a BotEvent as retained in the in-memory event log, stamped
// with the time the gateway received it.
type StoredEvent struct {
	BotEvent
	ReceivedAt time.Time `json:"received_at"`
}
