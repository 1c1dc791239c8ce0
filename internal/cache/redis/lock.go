package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/solspore/gaming/internal/domain"
)

const (
	// lockPrefix namespaces lock keys away from cache and rate-limit keys.
	lockPrefix = "solspore:lock:"

	// releaseTimeout bounds the unlock write when the holder's own context
	// is already gone.
	releaseTimeout = 5 * time.Second
)

// releaseScript deletes the lock key only while it still carries the
// holder's token, so a holder whose TTL lapsed cannot release a
// successor's lock.
var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`)

// LockManager hands out TTL-bounded distributed locks. The settlement
// sweep takes one so concurrent triggers cannot double-settle markets.
type LockManager struct {
	rdb *redis.Client
}

// NewLockManager creates a LockManager backed by the given Client.
func NewLockManager(c *Client) *LockManager {
	return &LockManager{rdb: c.Raw()}
}

// Acquire takes the named lock for at most ttl. It returns
// domain.ErrLockHeld when another holder owns the lock, and otherwise a
// release function that is safe to call more than once.
func (lm *LockManager) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	owner := uuid.NewString()
	lockKey := lockPrefix + key

	ok, err := lm.rdb.SetNX(ctx, lockKey, owner, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, fmt.Errorf("redis: lock %s: %w", key, domain.ErrLockHeld)
	}

	var released bool
	release := func() {
		if released {
			return
		}
		released = true

		// The holder may release after cancelling its own context; the
		// unlock runs on a fresh one so the lock never lingers for the
		// full TTL.
		releaseCtx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, lm.rdb, []string{lockKey}, owner).Err()
	}
	return release, nil
}

// Compile-time interface check.
var _ domain.LockManager = (*LockManager)(nil)
