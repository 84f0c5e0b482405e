package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Snapshot backends
const (
	BackendRedis = "redis"
	BackendFile  = "file"
)

type Config struct {
	Port            string        `env:"PORT" envDefault:"8080"`
	Environment     string        `env:"ENVIRONMENT" envDefault:"development"`
	LogLevelName    string        `env:"LOG_LEVEL" envDefault:"info"`
	RedisURL        string        `env:"REDIS_URL" envDefault:"redis:6379"`
	DataDir         string        `env:"DATA_DIR" envDefault:"data"`
	CatalogPath     string        `env:"CATALOG_PATH"`
	SnapshotBackend string        `env:"SNAPSHOT_BACKEND" envDefault:"redis"`
	JournalPath     string        `env:"JOURNAL_PATH" envDefault:"data/journal.db"`
	PulseInterval   time.Duration `env:"PULSE_INTERVAL" envDefault:"250ms"`
	WorkerID        string        `env:"WORKER_ID"`

	LogLevel slog.Level `env:"-"`
}

// Load reads the configuration from environment variables
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.LogLevel = parseLogLevel(cfg.LogLevelName)

	cfg.SnapshotBackend = strings.ToLower(cfg.SnapshotBackend)
	switch cfg.SnapshotBackend {
	case BackendRedis, BackendFile:
	default:
		return nil, fmt.Errorf("unknown snapshot backend: %q", cfg.SnapshotBackend)
	}
	if cfg.PulseInterval <= 0 {
		return nil, fmt.Errorf("pulse interval must be positive, got %s", cfg.PulseInterval)
	}
	return &cfg, nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
