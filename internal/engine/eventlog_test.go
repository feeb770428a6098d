package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/overtop/tradebrain/internal/domain"
)

func TestEventLogAppendAndCount(t *testing.T) {
	log := NewEventLog(100, 100)

	log.AppendEvent(domain.StoredEvent{BotEvent: domain.BotEvent{EventType: domain.EventEntry}})
	log.AppendTrade(domain.TradeRecord{Asset: "BTCUSDC", PnL: 1.5, Win: true})
	log.AppendTrade(domain.TradeRecord{Asset: "ETHUSDC", PnL: -0.5})

	assert.Equal(t, 1, log.EventCount())
	assert.Equal(t, 2, log.TradeCount())
}

func TestEventLogEvictsAtCapacity(t *testing.T) {
	log := NewEventLog(10, 3)
	for i := 0; i < 5; i++ {
		log.AppendTrade(domain.TradeRecord{PnL: float64(i)})
	}

	trades := log.SnapshotTrades(0)
	assert.Len(t, trades, 3)
	assert.Equal(t, 2.0, trades[0].PnL)
	assert.Equal(t, 4.0, trades[2].PnL)
}

func TestEventLogSnapshotIsCopy(t *testing.T) {
	log := NewEventLog(10, 10)
	log.AppendTrade(domain.TradeRecord{Asset: "BTCUSDC"})

	snap := log.SnapshotTrades(0)
	snap[0].Asset = "mutated"

	again := log.SnapshotTrades(0)
	assert.Equal(t, "BTCUSDC", again[0].Asset)
}

func TestEventLogEventsSince(t *testing.T) {
	log := NewEventLog(10, 10)
	now := time.Now().UTC()

	log.AppendEvent(domain.StoredEvent{
		BotEvent:   domain.BotEvent{EventType: domain.EventEntry},
		ReceivedAt: now.Add(-2 * time.Hour),
	})
	log.AppendEvent(domain.StoredEvent{
		BotEvent:   domain.BotEvent{EventType: domain.EventExit},
		ReceivedAt: now.Add(-10 * time.Minute),
	})

	recent := log.EventsSince(now.Add(-time.Hour))
	assert.Len(t, recent, 1)
	assert.Equal(t, domain.EventExit, recent[0].EventType)
}

func TestEventLogLoadTrades(t *testing.T) {
	log := NewEventLog(10, 10)
	log.LoadTrades([]domain.TradeRecord{
		{Asset: "BTCUSDC"},
		{Asset: "ETHUSDC"},
	})

	trades := log.SnapshotTrades(0)
	assert.Len(t, trades, 2)
	assert.Equal(t, "BTCUSDC", trades[0].Asset)
}
