package domain

import (
	"context"
	"io"
	"time"
)

// TradeStore is the durable mirror of closed trades. The engine treats the
// mirror as best-effort: every method must be callable with a short timeout
// and a failure never propagates to the ingestion path.
type TradeStore interface {
	Insert(ctx context.Context, trade TradeRecord) error
	InsertBatch(ctx context.Context, trades []TradeRecord) error
	ListRecent(ctx context.Context, limit int) ([]TradeRecord, error)
	ListBefore(ctx context.Context, cutoff time.Time, limit int) ([]TradeRecord, error)
	Count(ctx context.Context) (int64, error)
}

// RuleStore is the durable mirror of the rule repository. Upsert must apply
// the same version gate as the in-memory repository: an existing row is
// replaced only when the incoming version is strictly greater.
type RuleStore interface {
	Upsert(ctx context.Context, rule Rule) error
	ListEnabled(ctx context.Context) ([]Rule, error)
	Disable(ctx context.Context, id string) error
}

// AuditStore mirrors the analysis audit trail.
type AuditStore interface {
	Log(ctx context.Context, message string) error
	ListRecent(ctx context.Context, limit int) ([]string, error)
}

// SignalBus is a lightweight pub/sub fabric used to announce engine events
// (new rules, completed analysis passes) to bot replicas and observers.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
}

// RateLimiter bounds request rates per caller key.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// BlobWriter uploads objects to cold storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}
