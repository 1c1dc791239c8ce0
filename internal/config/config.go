// Package config defines the top-level configuration for the SolSpore
// Gaming backend and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by SOLSPORE_* environment
// variables.
type Config struct {
	Postgres   PostgresConfig   `toml:"postgres"`
	Redis      RedisConfig      `toml:"redis"`
	S3         S3Config         `toml:"s3"`
	Solana     SolanaConfig     `toml:"solana"`
	Auth       AuthConfig       `toml:"auth"`
	Odds       OddsConfig       `toml:"odds"`
	Settlement SettlementConfig `toml:"settlement"`
	Server     ServerConfig     `toml:"server"`
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr            string `toml:"addr"`
	Password        string `toml:"password"`
	DB              int    `toml:"db"`
	PoolSize        int    `toml:"pool_size"`
	MaxRetries      int    `toml:"max_retries"`
	TLSEnabled      bool   `toml:"tls_enabled"`
	CacheTTLMinutes int    `toml:"cache_ttl_minutes"`
}

// S3Config holds S3-compatible object storage parameters for settlement
// report archiving.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// SolanaConfig holds payment-rail parameters.
type SolanaConfig struct {
	RPCEndpoint    string `toml:"rpc_endpoint"`
	EscrowAddress  string `toml:"escrow_address"`
	VerifyPayments bool   `toml:"verify_payments"`
}

// AuthConfig holds session-token parameters.
type AuthConfig struct {
	// SessionSecret signs session tokens. Required for server modes.
	SessionSecret string   `toml:"session_secret"`
	SessionTTL    duration `toml:"session_ttl"`
}

// OddsConfig holds odds-engine parameters.
type OddsConfig struct {
	// Margin is the platform edge subtracted from fair odds.
	Margin float64 `toml:"margin"`
}

// SettlementConfig holds batch-settlement parameters.
type SettlementConfig struct {
	// Interval between sweeps in full mode. Zero disables the ticker.
	Interval duration `toml:"interval"`
	// RetryAttempts and RetryDelay bound per-entity persistence retries.
	RetryAttempts int      `toml:"retry_attempts"`
	RetryDelay    duration `toml:"retry_delay"`
	// LockTTL caps how long a crashed sweep can hold the sweep lock.
	LockTTL duration `toml:"lock_ttl"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	// BetRateLimit and BetRateWindow throttle bet placement per wallet.
	BetRateLimit  int      `toml:"bet_rate_limit"`
	BetRateWindow duration `toml:"bet_rate_window"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder
// can parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "solspore",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:            "localhost:6379",
			DB:              0,
			PoolSize:        20,
			MaxRetries:      3,
			CacheTTLMinutes: 5,
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "solspore-settlements",
			ForcePathStyle: true,
		},
		Solana: SolanaConfig{
			RPCEndpoint:    "https://api.devnet.solana.com",
			VerifyPayments: true,
		},
		Auth: AuthConfig{
			SessionTTL: duration{24 * time.Hour},
		},
		Odds: OddsConfig{
			Margin: 0.05,
		},
		Settlement: SettlementConfig{
			Interval:      duration{5 * time.Minute},
			RetryAttempts: 3,
			RetryDelay:    duration{time.Second},
			LockTTL:       duration{2 * time.Minute},
		},
		Server: ServerConfig{
			Port:          8000,
			CORSOrigins:   []string{"http://localhost:3000"},
			BetRateLimit:  10,
			BetRateWindow: duration{time.Minute},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"server": true,
	"settle": true,
	"full":   true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and
// returns a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: server, settle, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Postgres
	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns < 0 {
		errs = append(errs, "postgres: pool_min_conns must be >= 0")
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// S3 (only when archiving is enabled)
	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when enabled")
		}
	}

	// Solana
	if c.Solana.RPCEndpoint == "" {
		errs = append(errs, "solana: rpc_endpoint must not be empty")
	}

	// Auth — server modes must be able to sign sessions.
	needsSessions := c.Mode == "server" || c.Mode == "full"
	if needsSessions && c.Auth.SessionSecret == "" {
		errs = append(errs, "auth: session_secret is required for mode "+c.Mode)
	}
	if c.Auth.SessionTTL.Duration <= 0 {
		errs = append(errs, "auth: session_ttl must be positive")
	}

	// Odds
	if c.Odds.Margin < 0 || c.Odds.Margin >= 1 {
		errs = append(errs, fmt.Sprintf("odds: margin must be in [0, 1), got %v", c.Odds.Margin))
	}

	// Settlement
	if c.Settlement.RetryAttempts < 1 {
		errs = append(errs, "settlement: retry_attempts must be >= 1")
	}
	if c.Settlement.RetryDelay.Duration < 0 {
		errs = append(errs, "settlement: retry_delay must not be negative")
	}
	if c.Settlement.LockTTL.Duration <= 0 {
		errs = append(errs, "settlement: lock_ttl must be positive")
	}

	// Server
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.BetRateLimit < 1 {
		errs = append(errs, "server: bet_rate_limit must be >= 1")
	}
	if c.Server.BetRateWindow.Duration <= 0 {
		errs = append(errs, "server: bet_rate_window must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
