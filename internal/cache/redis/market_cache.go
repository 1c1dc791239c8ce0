package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/solspore/gaming/internal/domain"
)

// MarketCache implements domain.MarketCache using Redis strings holding
// JSON-serialized market snapshots.
//
// Key schema:
//
//	market:{id} - JSON-encoded domain.Market
type MarketCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewMarketCache creates a MarketCache backed by the given Client. A
// non-positive ttl falls back to five minutes.
func NewMarketCache(c *Client, ttl time.Duration) *MarketCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &MarketCache{rdb: c.Raw(), ttl: ttl}
}

func marketKey(id string) string { return "market:" + id }

// Set stores a market snapshot with the configured TTL.
func (mc *MarketCache) Set(ctx context.Context, m domain.Market) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("redis: marshal market %s: %w", m.ID, err)
	}
	if err := mc.rdb.Set(ctx, marketKey(m.ID), data, mc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set market %s: %w", m.ID, err)
	}
	return nil
}

// Get retrieves a cached market snapshot. The boolean reports a cache hit;
// a miss is not an error.
func (mc *MarketCache) Get(ctx context.Context, id string) (domain.Market, bool, error) {
	data, err := mc.rdb.Get(ctx, marketKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Market{}, false, nil
		}
		return domain.Market{}, false, fmt.Errorf("redis: get market %s: %w", id, err)
	}

	var m domain.Market
	if err := json.Unmarshal(data, &m); err != nil {
		return domain.Market{}, false, fmt.Errorf("redis: unmarshal market %s: %w", id, err)
	}
	return m, true, nil
}

// Invalidate removes a cached market snapshot.
func (mc *MarketCache) Invalidate(ctx context.Context, id string) error {
	if err := mc.rdb.Del(ctx, marketKey(id)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate market %s: %w", id, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.MarketCache = (*MarketCache)(nil)
