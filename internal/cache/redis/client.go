// Package redis backs the wagering hot paths: market odds snapshots, the
// settlement sweep lock, per-wallet bet rate limits, and the pub/sub fabric
// feeding live odds to websocket clients.
package redis

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultPoolSize = 16

	// connectTimeout bounds the startup ping so a dead Redis fails fast.
	connectTimeout = 5 * time.Second
)

// ClientConfig holds connection parameters for the Redis client.
type ClientConfig struct {
	Addr       string
	Password   string
	DB         int
	PoolSize   int
	MaxRetries int
	TLSEnabled bool
}

// Client wraps the go-redis driver behind the handful of helpers the cache,
// lock, limiter, and bus layers need.
type Client struct {
	rdb *redis.Client
}

// New dials Redis and verifies connectivity before returning. The odds
// cache degrades gracefully when Redis drops mid-flight, but the sweep lock
// cannot, so an unreachable Redis fails startup.
func New(ctx context.Context, cfg ClientConfig) (*Client, error) {
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = defaultPoolSize
	}

	opts := &redis.Options{
		Addr:       cfg.Addr,
		Password:   cfg.Password,
		DB:         cfg.DB,
		PoolSize:   poolSize,
		MaxRetries: cfg.MaxRetries,
	}
	if cfg.TLSEnabled {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: connect %s: %w", cfg.Addr, err)
	}

	return &Client{rdb: rdb}, nil
}

// Ping verifies the connection. The health endpoint calls this.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: ping: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Raw exposes the driver client to the sibling cache, lock, limiter, and
// bus implementations.
func (c *Client) Raw() *redis.Client {
	return c.rdb
}
