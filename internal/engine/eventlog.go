package engine

import (
	"sync"
	"time"

	"github.com/overtop/tradebrain/internal/domain"
)

// EventLog is the bounded, append-only, in-memory store of bot events and
// closed trades. Appends are O(1) and never fail: at capacity the oldest
// record is evicted. Snapshots are consistent point-in-time copies; records
// are never mutated after append.
type EventLog struct {
	mu     sync.Mutex
	events *ringBuffer[domain.StoredEvent]
	trades *ringBuffer[domain.TradeRecord]
}

// NewEventLog creates an EventLog retaining up to eventCap raw events and
// tradeCap closed trades.
func NewEventLog(eventCap, tradeCap int) *EventLog {
	return &EventLog{
		events: newRingBuffer[domain.StoredEvent](eventCap),
		trades: newRingBuffer[domain.TradeRecord](tradeCap),
	}
}

// AppendEvent records a raw bot event.
func (l *EventLog) AppendEvent(ev domain.StoredEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events.Append(ev)
}

// AppendTrade records a closed trade.
func (l *EventLog) AppendTrade(t domain.TradeRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.trades.Append(t)
}

// LoadTrades bulk-appends trades, used to warm the log from the durable
// mirror at startup.
func (l *EventLog) LoadTrades(trades []domain.TradeRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, t := range trades {
		l.trades.Append(t)
	}
}

// SnapshotTrades returns up to limit of the most recent trades in insertion
// order. limit <= 0 returns all retained trades.
func (l *EventLog) SnapshotTrades(limit int) []domain.TradeRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.trades.Snapshot(limit)
}

// SnapshotEvents returns up to limit of the most recent events in insertion
// order.
func (l *EventLog) SnapshotEvents(limit int) []domain.StoredEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.events.Snapshot(limit)
}

// EventsSince returns all retained events received after cutoff, in
// insertion order.
func (l *EventLog) EventsSince(cutoff time.Time) []domain.StoredEvent {
	l.mu.Lock()
	all := l.events.Snapshot(0)
	l.mu.Unlock()

	var out []domain.StoredEvent
	for _, ev := range all {
		if ev.ReceivedAt.After(cutoff) {
			out = append(out, ev)
		}
	}
	return out
}

// EventCount returns the number of retained events.
func (l *EventLog) EventCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.events.Len()
}

// TradeCount returns the number of retained trades.
func (l *EventLog) TradeCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.trades.Len()
}
