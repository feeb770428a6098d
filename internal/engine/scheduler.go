package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/overtop/tradebrain/internal/domain"
)

// RuleSink receives the rules newly merged by an analysis pass, for example
// to mirror them to durable storage or announce them on a bus. The sink is
// invoked outside every engine lock and must tolerate being slow or failing.
type RuleSink interface {
	RulesAdded(ctx context.Context, rules []domain.Rule)
}

// PassObserver is an optional extension of RuleSink. A sink that also
// implements it receives the summary of every completed pass.
type PassObserver interface {
	PassCompleted(ctx context.Context, summary PassSummary)
}

// PassSummary reports one Analyze -> Merge pass.
type PassSummary struct {
	RanAt      time.Time     `json:"ran_at"`
	Trades     int           `json:"trades"`
	GlobalWR   float64       `json:"global_wr"`
	GlobalPnL  float64       `json:"global_pnl"`
	Candidates int           `json:"candidates"`
	Added      []domain.Rule `json:"added"`
	TotalRules int           `json:"total_rules"`
	Skipped    bool          `json:"skipped"`
	SkipReason string        `json:"skip_reason,omitempty"`
}

// SchedulerStats exposes the scheduler's run counters.
type SchedulerStats struct {
	Passes     int        `json:"passes"`
	RulesAdded int        `json:"rules_added"`
	LastRun    *time.Time `json:"last_run"`
}

// SchedulerConfig controls the background analysis loop.
type SchedulerConfig struct {
	// InitialGrace is slept once before the first pass so startup state
	// (warm loads, first events) can settle.
	InitialGrace time.Duration
	// Interval between passes.
	Interval time.Duration
	// SnapshotLimit caps how many recent trades each pass analyzes.
	SnapshotLimit int
}

// Scheduler owns the background analysis loop: on every tick it snapshots
// the event log, runs the miner, merges new candidates into the repository
// exactly once per identifier, and appends one audit line. A pass failure
// is logged and the loop continues on the next tick; the loop ends only
// when its context is cancelled. RunOnce performs the same pass
// synchronously for the manual trigger endpoint.
type Scheduler struct {
	log    *EventLog
	repo   *Repository
	miner  *Miner
	audit  *AuditLog
	sink   RuleSink
	cfg    SchedulerConfig
	logger *slog.Logger

	mu    sync.Mutex
	stats SchedulerStats
}

// NewScheduler wires a Scheduler. sink may be nil when no mirror or bus is
// configured.
func NewScheduler(log *EventLog, repo *Repository, miner *Miner, audit *AuditLog, sink RuleSink, cfg SchedulerConfig, logger *slog.Logger) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.SnapshotLimit <= 0 {
		cfg.SnapshotLimit = 10000
	}
	return &Scheduler{
		log:    log,
		repo:   repo,
		miner:  miner,
		audit:  audit,
		sink:   sink,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "scheduler")),
	}
}

// Run executes the periodic loop until ctx is cancelled. Call in a
// goroutine.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.cfg.InitialGrace > 0 {
		grace := time.NewTimer(s.cfg.InitialGrace)
		select {
		case <-ctx.Done():
			grace.Stop()
			return ctx.Err()
		case <-grace.C:
		}
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			summary := s.RunOnce(ctx)
			if summary.Skipped {
				s.logger.DebugContext(ctx, "analysis pass skipped",
					slog.String("reason", summary.SkipReason),
				)
				continue
			}
			s.logger.InfoContext(ctx, "analysis pass complete",
				slog.Int("trades", summary.Trades),
				slog.Float64("global_wr", summary.GlobalWR),
				slog.Float64("global_pnl", summary.GlobalPnL),
				slog.Int("rules_added", len(summary.Added)),
			)
		}
	}
}

// RunOnce performs a single Analyze -> Merge pass and returns its summary.
// It never returns an error: everything that can go wrong inside a pass is
// recorded on the summary and the audit trail instead, so the periodic loop
// survives any single bad pass.
func (s *Scheduler) RunOnce(ctx context.Context) PassSummary {
	summary := PassSummary{RanAt: time.Now().UTC()}

	trades := s.log.SnapshotTrades(s.cfg.SnapshotLimit)
	summary.Trades = len(trades)

	if len(trades) < s.miner.cfg.MinSnapshot {
		summary.Skipped = true
		summary.SkipReason = "insufficient sample"
		summary.TotalRules = s.repo.Len()
		s.audit.Appendf("analysis skipped - only %d trades (min %d)", len(trades), s.miner.cfg.MinSnapshot)
		return summary
	}

	candidates := s.miner.Analyze(trades, s.repo.ActiveIDs())
	summary.Candidates = len(candidates)

	added := s.repo.Merge(candidates)
	summary.Added = added
	summary.TotalRules = s.repo.Len()
	summary.GlobalWR, summary.GlobalPnL = WinRatePnL(trades)

	// Mirror/announce outside every lock.
	if s.sink != nil && len(added) > 0 {
		s.sink.RulesAdded(ctx, added)
	}

	s.mu.Lock()
	s.stats.Passes++
	s.stats.RulesAdded += len(added)
	ranAt := summary.RanAt
	s.stats.LastRun = &ranAt
	s.mu.Unlock()

	s.audit.Appendf("analysis over %d trades | WR=%.0f%% PnL=%+.2f | +%d rules (total=%d)",
		summary.Trades, summary.GlobalWR*100, summary.GlobalPnL, len(added), summary.TotalRules)

	if obs, ok := s.sink.(PassObserver); ok {
		obs.PassCompleted(ctx, summary)
	}

	return summary
}

// Stats returns a copy of the run counters.
func (s *Scheduler) Stats() SchedulerStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}
