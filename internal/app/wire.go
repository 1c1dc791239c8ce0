package app

import (
	"context"
	"fmt"
	"time"

	s3blob "github.com/solspore/gaming/internal/blob/s3"
	"github.com/solspore/gaming/internal/cache/redis"
	"github.com/solspore/gaming/internal/domain"
	"github.com/solspore/gaming/internal/payment/solana"
	"github.com/solspore/gaming/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency that the application
// modes need to operate. It is constructed by Wire and torn down by the
// returned cleanup function.
type Dependencies struct {
	// Stores
	MarketStore     domain.MarketStore
	BetStore        domain.BetStore
	TournamentStore domain.TournamentStore
	UserStore       domain.UserStore

	// Caches
	MarketCache domain.MarketCache
	RateLimiter domain.RateLimiter
	LockManager domain.LockManager
	SignalBus   domain.SignalBus

	// Blob storage (nil when s3.enabled is false)
	BlobWriter domain.BlobWriter

	// Payment rail
	PaymentRail   domain.PaymentRail
	PayoutTrigger domain.PayoutTrigger

	// Raw clients, kept for health checks.
	Postgres *postgres.Client
	Redis    *redis.Client
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
func (a *App) Wire(ctx context.Context) (*Dependencies, func(), error) {
	cfg := a.cfg

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Postgres.DSN,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Database: cfg.Postgres.Database,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		SSLMode:  cfg.Postgres.SSLMode,
		MaxConns: cfg.Postgres.PoolMaxConns,
		MinConns: cfg.Postgres.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Postgres.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	deps.Postgres = pgClient
	deps.MarketStore = postgres.NewMarketStore(pgClient)
	deps.BetStore = postgres.NewBetStore(pgClient)
	deps.TournamentStore = postgres.NewTournamentStore(pgClient)
	deps.UserStore = postgres.NewUserStore(pgClient)

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	cacheTTL := time.Duration(cfg.Redis.CacheTTLMinutes) * time.Minute

	deps.Redis = redisClient
	deps.MarketCache = redis.NewMarketCache(redisClient, cacheTTL)
	deps.RateLimiter = redis.NewRateLimiter(redisClient)
	deps.LockManager = redis.NewLockManager(redisClient)
	deps.SignalBus = redis.NewSignalBus(redisClient)

	// --- S3 blob storage (settlement report archiving) ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.BlobWriter = s3blob.NewWriter(s3Client)
	}

	// --- Solana payment rail ---
	deps.PaymentRail = solana.NewClient(cfg.Solana.RPCEndpoint)
	deps.PayoutTrigger = solana.NewSimulatedTrigger(a.logger)

	return deps, cleanup, nil
}
