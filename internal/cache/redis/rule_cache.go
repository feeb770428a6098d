package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// configKey holds the latest serialized config payload (params + enabled
// rules). Bot replicas that poll Redis directly read this key instead of
// hitting the HTTP API.
const configKey = "brain:config:latest"

const configTTL = 10 * time.Minute

// RuleCache keeps the most recent config payload in Redis so replicas can
// pick up rule changes without polling the engine. The TTL guarantees a
// stale engine cannot serve hours-old rules forever.
type RuleCache struct {
	rdb *redis.Client
}

// NewRuleCache creates a RuleCache backed by the given Client.
func NewRuleCache(c *Client) *RuleCache {
	return &RuleCache{rdb: c.Underlying()}
}

// SetConfig stores the serialized config payload.
func (rc *RuleCache) SetConfig(ctx context.Context, payload []byte) error {
	if err := rc.rdb.Set(ctx, configKey, payload, configTTL).Err(); err != nil {
		return fmt.Errorf("redis: set config payload: %w", err)
	}
	return nil
}
