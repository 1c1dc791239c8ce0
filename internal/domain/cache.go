package domain

import (
	"context"
	"time"
)

// MarketCache caches market odds snapshots for hot reads.
type MarketCache interface {
	Get(ctx context.Context, id string) (Market, bool, error)
	Set(ctx context.Context, m Market) error
	Invalidate(ctx context.Context, id string) error
}

// LockManager provides distributed locks. Acquire returns ErrLockHeld if
// the lock is already held by another party.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// RateLimiter enforces per-key request rate limits.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// Signal is one message delivered by the SignalBus. Channel is the concrete
// channel the message arrived on, which differs from the subscribed name
// when the subscription is a pattern like "ch:odds:*".
type Signal struct {
	Channel string
	Payload []byte
}

// SignalBus is an ephemeral pub/sub fabric for pushing odds and
// settlement events to live subscribers.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan Signal, error)
}
