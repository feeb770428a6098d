package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/overtop/tradebrain/internal/domain"
	"github.com/overtop/tradebrain/internal/engine"
)

func newTestIngest() (*IngestService, *engine.EventLog) {
	log := engine.NewEventLog(1000, 1000)
	repo := engine.NewRepository()
	audit := engine.NewAuditLog(50)
	sched := engine.NewScheduler(log, repo, engine.NewMiner(engine.DefaultMinerConfig()), audit, nil, engine.SchedulerConfig{}, discardLogger())
	return NewIngestService(log, repo, sched, audit, nil, nil, discardLogger()), log
}

func TestIngestRejectsMissingEventType(t *testing.T) {
	svc, log := newTestIngest()

	_, err := svc.Ingest(context.Background(), domain.BotEvent{})
	assert.ErrorIs(t, err, domain.ErrInvalidEvent)
	assert.Zero(t, log.EventCount())
}

func TestIngestExitBuildsTradeWithDefaults(t *testing.T) {
	svc, log := newTestIngest()

	res, err := svc.Ingest(context.Background(), domain.BotEvent{
		EventType: domain.EventExit,
		PnL:       1.5,
		Strength:  0.42,
	})
	require.NoError(t, err)
	assert.Equal(t, "logged", res.Status)
	assert.Equal(t, 1, res.TotalEvents)

	trades := log.SnapshotTrades(0)
	require.Len(t, trades, 1)
	tr := trades[0]
	assert.Equal(t, "BTCUSDC", tr.Asset)
	assert.True(t, tr.Win)
	assert.Equal(t, domain.RegimeUnknown, tr.Regime)
	assert.Equal(t, domain.ModeNormal, tr.Mode)
	assert.NotZero(t, tr.EntryTS)
	assert.GreaterOrEqual(t, tr.HourUTC, 0)
	assert.Less(t, tr.HourUTC, 24)
}

func TestIngestExitExplicitFieldsWin(t *testing.T) {
	svc, log := newTestIngest()

	win := false
	hour := 7
	_, err := svc.Ingest(context.Background(), domain.BotEvent{
		EventType: domain.EventExit,
		Asset:     "ETHUSDC",
		PnL:       2.0,
		Win:       &win,
		Regime:    domain.RegimeTrending,
		HourUTC:   &hour,
		Mode:      "FLAT",
		EntryTS:   1700000000,
	})
	require.NoError(t, err)

	tr := log.SnapshotTrades(0)[0]
	assert.Equal(t, "ETHUSDC", tr.Asset)
	assert.False(t, tr.Win, "explicit win flag overrides the PnL sign")
	assert.Equal(t, domain.RegimeTrending, tr.Regime)
	assert.Equal(t, 7, tr.HourUTC)
	assert.Equal(t, domain.ModeFlat, tr.Mode)
	assert.Equal(t, 1700000000.0, tr.EntryTS)
}

func TestIngestRegimeFallsBackToMode(t *testing.T) {
	svc, log := newTestIngest()

	_, err := svc.Ingest(context.Background(), domain.BotEvent{
		EventType: domain.EventExit,
		PnL:       -1,
		Mode:      "FLAT",
	})
	require.NoError(t, err)

	tr := log.SnapshotTrades(0)[0]
	assert.Equal(t, "FLAT", tr.Regime)
}

func TestIngestMarketDataStampsLaterTrades(t *testing.T) {
	svc, log := newTestIngest()

	_, err := svc.Ingest(context.Background(), domain.BotEvent{
		EventType:    domain.EventMarketData,
		FundingRate:  0.0001,
		OpenInterest: 1_500_000,
		BidWall:      200,
		AskWall:      90,
	})
	require.NoError(t, err)
	assert.Zero(t, log.TradeCount(), "market data is not a trade")

	_, err = svc.Ingest(context.Background(), domain.BotEvent{
		EventType: domain.EventExit,
		PnL:       1,
	})
	require.NoError(t, err)

	tr := log.SnapshotTrades(0)[0]
	assert.Equal(t, 0.0001, tr.FundingRate)
	assert.Equal(t, 1_500_000.0, tr.OpenInterest)
	assert.Equal(t, 200.0, tr.BidWall)
	assert.Equal(t, 90.0, tr.AskWall)

	market := svc.Market()
	require.NotNil(t, market.UpdatedAt)
	assert.Equal(t, 0.0001, market.FundingRate)
}

func TestStatusAggregatesWindow(t *testing.T) {
	svc, _ := newTestIngest()
	ctx := context.Background()

	mustIngest := func(ev domain.BotEvent) {
		t.Helper()
		_, err := svc.Ingest(ctx, ev)
		require.NoError(t, err)
	}

	mustIngest(domain.BotEvent{EventType: domain.EventEntry})
	mustIngest(domain.BotEvent{EventType: domain.EventExit, PnL: 2})
	mustIngest(domain.BotEvent{EventType: domain.EventExit, PnL: -1})
	mustIngest(domain.BotEvent{EventType: domain.EventBlock, BlockReason: "auto_hour_night"})
	mustIngest(domain.BotEvent{EventType: domain.EventBlock})

	report := svc.Status(ctx, 60)

	assert.Equal(t, 60, report.WindowMinutes)
	assert.Equal(t, 1, report.Metrics.Entries)
	assert.Equal(t, 2, report.Metrics.Exits)
	assert.Equal(t, 1, report.Metrics.Wins)
	assert.Equal(t, 1, report.Metrics.Losses)
	assert.Equal(t, 50.0, report.Metrics.WinRate)
	assert.Equal(t, 0.5, report.Metrics.AvgPnL)
	assert.Equal(t, 2, report.Metrics.Blocks)
	assert.Equal(t, 1, report.Metrics.BlockReasons["auto_hour_night"])
	assert.Equal(t, 1, report.Metrics.BlockReasons["unknown"])

	assert.True(t, report.BotStatus.IsRunning)
	assert.Equal(t, 2, report.BotStatus.TotalTrades)
	assert.Equal(t, int64(-1), report.MirrorTrades, "no mirror configured")
	assert.Zero(t, report.Backlog)
}

func TestStatusDefaultsWindow(t *testing.T) {
	svc, _ := newTestIngest()
	report := svc.Status(context.Background(), 0)
	assert.Equal(t, 60, report.WindowMinutes)
}

func TestSeedStatus(t *testing.T) {
	svc, _ := newTestIngest()

	svc.SeedStatus([]domain.TradeRecord{
		{Win: true, PnL: 2},
		{Win: false, PnL: -1},
	}, 120)

	report := svc.Status(context.Background(), 60)
	assert.Equal(t, 120, report.BotStatus.TotalTrades)
	assert.Equal(t, 1, report.BotStatus.Wins)
	assert.Equal(t, 1, report.BotStatus.Losses)
	assert.Equal(t, 1.0, report.BotStatus.TotalPnL)
}
