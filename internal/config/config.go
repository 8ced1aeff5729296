// Package config defines service configuration structures and loading hooks.
package config

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// StoreDriver picks where game settings and wins live: memory, postgres or sqlite.
	StoreDriver string `koanf:"store_driver"`

	// DatabaseURL is the postgres connection string.
	DatabaseURL string `koanf:"database_url"`

	// SQLitePath is the sqlite database file.
	SQLitePath string `koanf:"sqlite_path"`

	// RedisAddr enables the shared claim store when set.
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`

	// ClaimTTL is how long a player keeps a game's code before it can be won again.
	// Zero keeps claims forever.
	ClaimTTL time.Duration `koanf:"claim_ttl"`

	// ClaimCacheSize bounds the in-memory claim store.
	ClaimCacheSize int `koanf:"claim_cache_size"`

	// AdminJWTSecret verifies bearer tokens on the admin routes. Empty disables them.
	AdminJWTSecret string `koanf:"admin_jwt_secret"`

	// PortfolioImages feed the memory game deck.
	PortfolioImages []string `koanf:"portfolio_images"`

	// SessionTTL closes sessions idle for longer than this.
	SessionTTL time.Duration `koanf:"session_ttl"`

	// JanitorInterval is how often idle sessions are swept.
	JanitorInterval time.Duration `koanf:"janitor_interval"`

	// LedgerQueueSize bounds the queue of wins waiting to be persisted.
	LedgerQueueSize int `koanf:"ledger_queue_size"`

	// LedgerWorkers is the number of goroutines persisting wins.
	LedgerWorkers int `koanf:"ledger_workers"`

	// MemoryRevealDelay is how long a mismatched pair stays face up.
	MemoryRevealDelay time.Duration `koanf:"memory_reveal_delay"`

	// InkMixTimeLimit is the ink mix countdown.
	InkMixTimeLimit time.Duration `koanf:"inkmix_time_limit"`

	// RandomSeed makes deck and target draws reproducible when non-zero.
	RandomSeed int64 `koanf:"random_seed"`
}

// New returns a Config filled with defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":9080",
		StoreDriver:       DriverMemory,
		SQLitePath:        "inkplay.db",
		ClaimCacheSize:    100_000,
		SessionTTL:        30 * time.Minute,
		JanitorInterval:   time.Minute,
		LedgerQueueSize:   1024,
		LedgerWorkers:     2,
		MemoryRevealDelay: 600 * time.Millisecond,
		InkMixTimeLimit:   10 * time.Second,
	}
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.StoreDriver != DriverMemory && c.StoreDriver != DriverPostgres && c.StoreDriver != DriverSQLite:
		return fmt.Errorf("%w: unknown store driver %q", ErrInvalidConfig, c.StoreDriver)
	case c.StoreDriver == DriverPostgres && c.DatabaseURL == "":
		return fmt.Errorf("%w: database_url is required for postgres", ErrInvalidConfig)
	case c.StoreDriver == DriverSQLite && c.SQLitePath == "":
		return fmt.Errorf("%w: sqlite_path is required for sqlite", ErrInvalidConfig)
	case c.LedgerQueueSize <= 0:
		return fmt.Errorf("%w: ledger_queue_size must be positive", ErrInvalidConfig)
	case c.LedgerWorkers <= 0:
		return fmt.Errorf("%w: ledger_workers must be positive", ErrInvalidConfig)
	case c.SessionTTL <= 0 || c.JanitorInterval <= 0:
		return fmt.Errorf("%w: session_ttl and janitor_interval must be positive", ErrInvalidConfig)
	case c.MemoryRevealDelay <= 0 || c.InkMixTimeLimit <= 0:
		return fmt.Errorf("%w: game timings must be positive", ErrInvalidConfig)
	case c.ClaimTTL < 0:
		return fmt.Errorf("%w: claim_ttl must not be negative", ErrInvalidConfig)
	}
	return nil
}
