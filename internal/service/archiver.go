package service

import (
	"context"
	"log/slog"
	"time"
)

// TradeArchiver exports aged trade records to cold storage.
type TradeArchiver interface {
	ArchiveTrades(ctx context.Context, before time.Time) (int64, error)
}

// Archiver periodically exports trades older than the retention window from
// the durable mirror to blob storage. It is an optional service: when blob
// storage is not configured the app simply never starts it.
type Archiver struct {
	impl      TradeArchiver
	retention time.Duration
	interval  time.Duration
	logger    *slog.Logger
}

// NewArchiver creates the background export service. retention is how far
// back records stay hot in the mirror; interval is how often the export runs.
func NewArchiver(impl TradeArchiver, retention, interval time.Duration, logger *slog.Logger) *Archiver {
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &Archiver{
		impl:      impl,
		retention: retention,
		interval:  interval,
		logger:    logger.With(slog.String("component", "archiver")),
	}
}

// Run executes the export loop until the context is cancelled. Export
// failures are logged and retried on the next tick.
func (a *Archiver) Run(ctx context.Context) error {
	a.logger.Info("archiver started",
		slog.Duration("retention", a.retention),
		slog.Duration("interval", a.interval),
	)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("archiver stopped")
			return ctx.Err()
		case <-ticker.C:
			a.exportOnce(ctx)
		}
	}
}

func (a *Archiver) exportOnce(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-a.retention)

	n, err := a.impl.ArchiveTrades(ctx, cutoff)
	if err != nil {
		a.logger.Error("trade export failed", slog.Any("error", err))
		return
	}
	if n > 0 {
		a.logger.Info("trade export complete",
			slog.Int64("exported", n),
			slog.Time("cutoff", cutoff),
		)
	}
}
