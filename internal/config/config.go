// Package config loads application configuration from the environment.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration. Values come from the environment,
// optionally seeded from a .env file; command-line flags may override the
// address and data directory.
type Config struct {
	// Addr is the HTTP server listen address.
	Addr string

	// DataDir is the directory holding the SQLite database and metrics files.
	DataDir string

	// FeedTimeout bounds one feed fetch. A stuck provider is a per-unit
	// failure, never a batch failure.
	FeedTimeout time.Duration

	// SyncWorkers bounds concurrent per-unit feed fetches.
	SyncWorkers int

	// DefaultSyncIntervalMin is used for units without their own cadence.
	DefaultSyncIntervalMin int

	// ReconcileCron and HoldSweepCron are the cadences of the two batch
	// jobs, in robfig/cron syntax.
	ReconcileCron string
	HoldSweepCron string

	// BusinessTimezone is the fixed local zone reported in the run-metrics
	// artifact alongside UTC.
	BusinessTimezone string
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; a missing file is not an error.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Note: could not load .env file: %v", err)
	}

	cfg := &Config{
		Addr:                   getEnv("ADDR", ":8090"),
		DataDir:                getEnv("DATA_DIR", "/data"),
		FeedTimeout:            getDuration("FEED_TIMEOUT", 20*time.Second),
		SyncWorkers:            getInt("SYNC_WORKERS", 4),
		DefaultSyncIntervalMin: getInt("DEFAULT_SYNC_INTERVAL_MIN", 15),
		ReconcileCron:          getEnv("RECONCILE_CRON", "@every 30m"),
		HoldSweepCron:          getEnv("HOLD_SWEEP_CRON", "@every 1h"),
		BusinessTimezone:       getEnv("BUSINESS_TZ", "America/Cancun"),
	}

	if cfg.SyncWorkers < 1 {
		return nil, fmt.Errorf("SYNC_WORKERS must be at least 1")
	}
	if _, err := time.LoadLocation(cfg.BusinessTimezone); err != nil {
		return nil, fmt.Errorf("invalid BUSINESS_TZ %q: %w", cfg.BusinessTimezone, err)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("Invalid %s=%q, using default %d", key, v, fallback)
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("Invalid %s=%q, using default %s", key, v, fallback)
		return fallback
	}
	return d
}
