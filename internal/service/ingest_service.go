package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/overtop/tradebrain/internal/domain"
	"github.com/overtop/tradebrain/internal/engine"
)

// defaultAsset stamps EXIT events that omit the asset symbol.
const defaultAsset = "BTCUSDC"

// IngestResult is returned to the bot after every accepted event.
type IngestResult struct {
	Status      string `json:"status"`
	TotalEvents int    `json:"total_events"`
	ActiveRules int    `json:"active_rules"`
}

// WindowMetrics aggregates the events inside a status lookback window.
type WindowMetrics struct {
	Entries      int            `json:"entries"`
	Exits        int            `json:"exits"`
	Wins         int            `json:"wins"`
	Losses       int            `json:"losses"`
	WinRate      float64        `json:"win_rate"`
	AvgPnL       float64        `json:"avg_pnl"`
	Blocks       int            `json:"blocks"`
	BlockReasons map[string]int `json:"block_reasons"`
}

// StatusReport is the full payload of the status endpoint.
type StatusReport struct {
	Timestamp     time.Time             `json:"timestamp"`
	BotStatus     domain.BotStatus      `json:"bot_status"`
	WindowMinutes int                   `json:"window_minutes"`
	MirrorTrades  int64                 `json:"mirror_trades"`
	Metrics       WindowMetrics         `json:"metrics"`
	Rules         []domain.Rule         `json:"rules"`
	AuditLines    []string              `json:"audit_lines"`
	TradeSample   []domain.TradeRecord  `json:"trade_sample"`
	Market        domain.MarketSnapshot `json:"market"`
	Backlog       int                   `json:"mirror_backlog"`
}

// IngestService is the ingestion gateway: it validates incoming bot events,
// maintains the market snapshot and running bot status, appends to the
// event log, and hands EXIT trades to the durable mirror. The mutex guards
// only the snapshot and status; no I/O happens while it is held.
type IngestService struct {
	log    *engine.EventLog
	repo   *engine.Repository
	sched  *engine.Scheduler
	audit  *engine.AuditLog
	mirror *Mirror
	bus    domain.SignalBus
	logger *slog.Logger

	mu     sync.Mutex
	market domain.MarketSnapshot
	status domain.BotStatus
}

// NewIngestService wires the gateway. mirror and bus may be nil.
func NewIngestService(log *engine.EventLog, repo *engine.Repository, sched *engine.Scheduler, audit *engine.AuditLog, mirror *Mirror, bus domain.SignalBus, logger *slog.Logger) *IngestService {
	return &IngestService{
		log:    log,
		repo:   repo,
		sched:  sched,
		audit:  audit,
		mirror: mirror,
		bus:    bus,
		logger: logger.With(slog.String("component", "ingest")),
	}
}

// Ingest classifies and stores one bot event. EXIT events become immutable
// TradeRecords stamped with the latest market snapshot; MARKET_DATA events
// replace the snapshot; every other type passes through to the event log
// only. Malformed payloads are rejected without mutating any state.
func (s *IngestService) Ingest(ctx context.Context, ev domain.BotEvent) (IngestResult, error) {
	if err := ev.Validate(); err != nil {
		return IngestResult{}, err
	}

	now := time.Now().UTC()
	stored := domain.StoredEvent{BotEvent: ev, ReceivedAt: now}

	var trade *domain.TradeRecord

	s.mu.Lock()
	s.status.LastPing = &now
	s.status.IsRunning = true

	switch ev.EventType {
	case domain.EventMarketData:
		s.market = domain.MarketSnapshot{
			FundingRate:  ev.FundingRate,
			OpenInterest: ev.OpenInterest,
			BidWall:      ev.BidWall,
			BidWallPrice: ev.BidWallPrice,
			AskWall:      ev.AskWall,
			AskWallPrice: ev.AskWallPrice,
			UpdatedAt:    &now,
		}
	case domain.EventExit:
		t := buildTrade(ev, now, s.market)
		s.status.TotalTrades++
		s.status.TotalPnL += t.PnL
		if t.Win {
			s.status.Wins++
		} else {
			s.status.Losses++
		}
		trade = &t
	}
	s.mu.Unlock()

	s.log.AppendEvent(stored)
	if trade != nil {
		s.log.AppendTrade(*trade)
		s.mirror.SaveTrade(*trade)
	}
	s.publishEvent(stored)

	return IngestResult{
		Status:      "logged",
		TotalEvents: s.log.EventCount(),
		ActiveRules: s.repo.Len(),
	}, nil
}

// buildTrade constructs the immutable TradeRecord for an EXIT event,
// applying the documented boundary defaults and stamping the market
// snapshot captured at ingestion time.
func buildTrade(ev domain.BotEvent, now time.Time, market domain.MarketSnapshot) domain.TradeRecord {
	asset := ev.Asset
	if asset == "" {
		asset = defaultAsset
	}

	win := ev.PnL > 0
	if ev.Win != nil {
		win = *ev.Win
	}

	mode := domain.ModeNormal
	if domain.Mode(ev.Mode) == domain.ModeFlat {
		mode = domain.ModeFlat
	}

	regime := ev.Regime
	if regime == "" {
		regime = ev.Mode
	}
	if regime == "" {
		regime = domain.RegimeUnknown
	}

	hour := now.Hour()
	if ev.HourUTC != nil && *ev.HourUTC >= 0 && *ev.HourUTC < 24 {
		hour = *ev.HourUTC
	}

	entryTS := ev.EntryTS
	if entryTS == 0 {
		entryTS = float64(now.Unix())
	}

	return domain.TradeRecord{
		Asset:        asset,
		PnL:          ev.PnL,
		Win:          win,
		Regime:       regime,
		HourUTC:      hour,
		Strength:     ev.Strength,
		Seed:         ev.Seed,
		Mode:         mode,
		Duration:     ev.Duration,
		Reason:       ev.Reason,
		ConsecLosses: ev.ConsecLosses,
		EntryTS:      entryTS,
		FundingRate:  market.FundingRate,
		OpenInterest: market.OpenInterest,
		BidWall:      market.BidWall,
		AskWall:      market.AskWall,
		CreatedAt:    now,
	}
}

// Status computes the aggregate report over events received in the last
// lookback window.
func (s *IngestService) Status(ctx context.Context, minutes int) StatusReport {
	if minutes <= 0 {
		minutes = 60
	}
	now := time.Now().UTC()
	cutoff := now.Add(-time.Duration(minutes) * time.Minute)
	recent := s.log.EventsSince(cutoff)

	metrics := WindowMetrics{BlockReasons: make(map[string]int)}
	var exitPnL float64
	for _, ev := range recent {
		switch ev.EventType {
		case domain.EventEntry:
			metrics.Entries++
		case domain.EventExit:
			metrics.Exits++
			exitPnL += ev.PnL
			win := ev.PnL > 0
			if ev.Win != nil {
				win = *ev.Win
			}
			if win {
				metrics.Wins++
			} else {
				metrics.Losses++
			}
		case domain.EventBlock:
			metrics.Blocks++
			reason := ev.BlockReason
			if reason == "" {
				reason = "unknown"
			}
			metrics.BlockReasons[reason]++
		}
	}
	if metrics.Exits > 0 {
		metrics.WinRate = round(float64(metrics.Wins)/float64(metrics.Exits)*100, 1)
		metrics.AvgPnL = round(exitPnL/float64(metrics.Exits), 4)
	}

	s.mu.Lock()
	status := s.status
	market := s.market
	s.mu.Unlock()

	stats := s.sched.Stats()
	status.LastAnalysis = stats.LastRun
	status.RulesGenerated = stats.RulesAdded

	return StatusReport{
		Timestamp:     now,
		BotStatus:     status,
		WindowMinutes: minutes,
		MirrorTrades:  s.mirror.CountTrades(ctx),
		Metrics:       metrics,
		Rules:         s.repo.ListAll(),
		AuditLines:    s.audit.RecentLines(15),
		TradeSample:   s.log.SnapshotTrades(10),
		Market:        market,
		Backlog:       s.mirror.BacklogLen(),
	}
}

// Market returns a copy of the current market snapshot.
func (s *IngestService) Market() domain.MarketSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.market
}

// SeedStatus primes the running totals from the durable mirror at startup.
func (s *IngestService) SeedStatus(trades []domain.TradeRecord, mirrorTotal int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if mirrorTotal > 0 {
		s.status.TotalTrades = int(mirrorTotal)
	} else {
		s.status.TotalTrades = len(trades)
	}
	s.status.Wins, s.status.Losses = 0, 0
	s.status.TotalPnL = 0
	for _, t := range trades {
		if t.Win {
			s.status.Wins++
		} else {
			s.status.Losses++
		}
		s.status.TotalPnL += t.PnL
	}
}

func (s *IngestService) publishEvent(ev domain.StoredEvent) {
	if s.bus == nil {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.bus.Publish(ctx, ChannelEvents, data); err != nil {
			s.logger.Debug("event publish failed", slog.String("error", err.Error()))
		}
	}()
}

func round(v float64, places int) float64 {
	shift := math.Pow(10, float64(places))
	return math.Round(v*shift) / shift
}
