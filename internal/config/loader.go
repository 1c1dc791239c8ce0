package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies SOLSPORE_* environment variable overrides,
// and returns the final Config. The returned Config has NOT been
// validated; the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known SOLSPORE_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "SOLSPORE_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "SOLSPORE_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "SOLSPORE_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "SOLSPORE_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "SOLSPORE_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "SOLSPORE_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "SOLSPORE_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "SOLSPORE_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "SOLSPORE_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "SOLSPORE_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "SOLSPORE_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "SOLSPORE_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "SOLSPORE_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "SOLSPORE_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "SOLSPORE_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "SOLSPORE_REDIS_TLS_ENABLED")
	setInt(&cfg.Redis.CacheTTLMinutes, "SOLSPORE_REDIS_CACHE_TTL_MINUTES")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "SOLSPORE_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "SOLSPORE_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "SOLSPORE_S3_REGION")
	setStr(&cfg.S3.Bucket, "SOLSPORE_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "SOLSPORE_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "SOLSPORE_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "SOLSPORE_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "SOLSPORE_S3_FORCE_PATH_STYLE")

	// ── Solana ──
	setStr(&cfg.Solana.RPCEndpoint, "SOLSPORE_SOLANA_RPC_ENDPOINT")
	setStr(&cfg.Solana.EscrowAddress, "SOLSPORE_SOLANA_ESCROW_ADDRESS")
	setBool(&cfg.Solana.VerifyPayments, "SOLSPORE_SOLANA_VERIFY_PAYMENTS")

	// ── Auth ──
	setStr(&cfg.Auth.SessionSecret, "SOLSPORE_AUTH_SESSION_SECRET")
	setDuration(&cfg.Auth.SessionTTL, "SOLSPORE_AUTH_SESSION_TTL")

	// ── Odds ──
	setFloat64(&cfg.Odds.Margin, "SOLSPORE_ODDS_MARGIN")

	// ── Settlement ──
	setDuration(&cfg.Settlement.Interval, "SOLSPORE_SETTLEMENT_INTERVAL")
	setInt(&cfg.Settlement.RetryAttempts, "SOLSPORE_SETTLEMENT_RETRY_ATTEMPTS")
	setDuration(&cfg.Settlement.RetryDelay, "SOLSPORE_SETTLEMENT_RETRY_DELAY")
	setDuration(&cfg.Settlement.LockTTL, "SOLSPORE_SETTLEMENT_LOCK_TTL")

	// ── Server ──
	setInt(&cfg.Server.Port, "SOLSPORE_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "SOLSPORE_SERVER_CORS_ORIGINS")
	setInt(&cfg.Server.BetRateLimit, "SOLSPORE_SERVER_BET_RATE_LIMIT")
	setDuration(&cfg.Server.BetRateWindow, "SOLSPORE_SERVER_BET_RATE_WINDOW")

	// ── Top-level ──
	setStr(&cfg.Mode, "SOLSPORE_MODE")
	setStr(&cfg.LogLevel, "SOLSPORE_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
