// Package service glues the engine to the outside world: the ingestion
// gateway, rule submission, status reporting, and the best-effort durable
// mirror.
package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/overtop/tradebrain/internal/domain"
)

// Mirror wraps the durable stores with best-effort semantics: every call is
// bounded by a timeout, write failures never reach the ingestion path, and
// failed trade writes land in a capped local backlog that a timer retries.
// A nil *Mirror is valid and means "no durable storage configured"; all
// methods degrade to no-ops.
type Mirror struct {
	trades  domain.TradeStore
	rules   domain.RuleStore
	audit   domain.AuditStore
	timeout time.Duration
	logger  *slog.Logger

	mu         sync.Mutex
	backlog    []domain.TradeRecord
	backlogCap int
}

// NewMirror wraps the given stores. timeout bounds every store call;
// backlogCap limits how many failed trade writes are kept for retry.
func NewMirror(trades domain.TradeStore, rules domain.RuleStore, audit domain.AuditStore, timeout time.Duration, backlogCap int, logger *slog.Logger) *Mirror {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if backlogCap <= 0 {
		backlogCap = 500
	}
	return &Mirror{
		trades:     trades,
		rules:      rules,
		audit:      audit,
		timeout:    timeout,
		backlogCap: backlogCap,
		logger:     logger.With(slog.String("component", "mirror")),
	}
}

// Enabled reports whether a durable mirror is configured.
func (m *Mirror) Enabled() bool { return m != nil }

// SaveTrade persists a trade in the background. On failure the trade is
// queued in the local backlog instead of surfacing an error: ingestion must
// never fail because the mirror is unreachable.
func (m *Mirror) SaveTrade(trade domain.TradeRecord) {
	if m == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()
		if err := m.trades.Insert(ctx, trade); err != nil {
			m.logger.Warn("trade mirror write failed, queued locally",
				slog.String("asset", trade.Asset),
				slog.String("error", err.Error()),
			)
			m.enqueue(trade)
		}
	}()
}

// SaveRule persists a rule in the background, best-effort.
func (m *Mirror) SaveRule(rule domain.Rule) {
	if m == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()
		if err := m.rules.Upsert(ctx, rule); err != nil {
			m.logger.Warn("rule mirror write failed",
				slog.String("rule_id", rule.ID),
				slog.String("error", err.Error()),
			)
		}
	}()
}

// DisableRule marks a rule disabled in the mirror, best-effort.
func (m *Mirror) DisableRule(id string) {
	if m == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()
		if err := m.rules.Disable(ctx, id); err != nil {
			m.logger.Warn("rule mirror disable failed",
				slog.String("rule_id", id),
				slog.String("error", err.Error()),
			)
		}
	}()
}

// LogAudit appends a line to the durable audit trail, best-effort.
func (m *Mirror) LogAudit(message string) {
	if m == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()
		if err := m.audit.Log(ctx, message); err != nil {
			m.logger.Warn("audit mirror write failed", slog.String("error", err.Error()))
		}
	}()
}

// LoadRules reads the enabled rule set for warm start.
func (m *Mirror) LoadRules(ctx context.Context) ([]domain.Rule, error) {
	if m == nil {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	return m.rules.ListEnabled(ctx)
}

// LoadTrades reads the most recent trades for warm start, oldest first.
func (m *Mirror) LoadTrades(ctx context.Context, limit int) ([]domain.TradeRecord, error) {
	if m == nil {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	return m.trades.ListRecent(ctx, limit)
}

// CountTrades returns the total number of mirrored trades, or -1 when the
// mirror is absent or unreachable.
func (m *Mirror) CountTrades(ctx context.Context) int64 {
	if m == nil {
		return -1
	}
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	n, err := m.trades.Count(ctx)
	if err != nil {
		return -1
	}
	return n
}

// FlushBacklog retries every queued trade write in a single batch. Trades
// that fail again are re-queued, still bounded by the backlog cap.
func (m *Mirror) FlushBacklog(ctx context.Context) {
	if m == nil {
		return
	}
	m.mu.Lock()
	pending := m.backlog
	m.backlog = nil
	m.mu.Unlock()

	if len(pending) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	if err := m.trades.InsertBatch(ctx, pending); err != nil {
		m.logger.Warn("backlog flush failed, re-queueing",
			slog.Int("pending", len(pending)),
			slog.String("error", err.Error()),
		)
		for _, t := range pending {
			m.enqueue(t)
		}
		return
	}
	m.logger.Info("backlog flushed", slog.Int("trades", len(pending)))
}

// Run flushes the backlog on a timer until ctx is cancelled.
func (m *Mirror) Run(ctx context.Context, interval time.Duration) error {
	if m == nil {
		<-ctx.Done()
		return ctx.Err()
	}
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.FlushBacklog(ctx)
		}
	}
}

// BacklogLen returns the number of queued trade writes.
func (m *Mirror) BacklogLen() int {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.backlog)
}

func (m *Mirror) enqueue(trade domain.TradeRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.backlog) >= m.backlogCap {
		// Drop the oldest entry to stay bounded.
		m.backlog = m.backlog[1:]
	}
	m.backlog = append(m.backlog, trade)
}
