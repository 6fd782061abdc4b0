// Package config defines server configuration and its layered loading.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Storage backends
const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
	StorageSQLite = "sqlite"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Host and Port configure the HTTP listen address.
	Host string `koanf:"host"`
	Port int    `koanf:"port"`

	// StorageType selects the backend: memory, redis or sqlite.
	StorageType string `koanf:"storage_type"`
	RedisURL    string `koanf:"redis_url"`
	SQLitePath  string `koanf:"sqlite_path"`

	// Draw defaults applied when a request omits them.
	DrawIterations       int     `koanf:"draw_iterations"`
	DrawBalanceThreshold float64 `koanf:"draw_balance_threshold"`
	DrawWorkers          int     `koanf:"draw_workers"`
	PositionWeight       float64 `koanf:"position_weight"`

	SessionDuration time.Duration `koanf:"session_duration"`

	// Seeded administrator; skipped when either is empty.
	AdminUsername string `koanf:"admin_username"`
	AdminPassword string `koanf:"admin_password"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		Host:                 "0.0.0.0",
		Port:                 8080,
		StorageType:          StorageMemory,
		RedisURL:             "redis://localhost:6379",
		SQLitePath:           "teamdraw.db",
		DrawIterations:       100,
		DrawBalanceThreshold: 1.0,
		DrawWorkers:          1,
		PositionWeight:       0.1,
		SessionDuration:      24 * time.Hour,
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	switch c.StorageType {
	case StorageMemory:
	case StorageRedis:
		if strings.TrimSpace(c.RedisURL) == "" {
			return errors.New("redis_url is required for redis storage")
		}
	case StorageSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return errors.New("sqlite_path is required for sqlite storage")
		}
	default:
		return fmt.Errorf("unknown storage_type %q", c.StorageType)
	}
	if c.DrawIterations < 1 {
		return errors.New("draw_iterations must be at least 1")
	}
	if c.DrawBalanceThreshold < 0 {
		return errors.New("draw_balance_threshold must not be negative")
	}
	if c.DrawWorkers < 1 {
		return errors.New("draw_workers must be at least 1")
	}
	if c.PositionWeight < 0 {
		return errors.New("position_weight must not be negative")
	}
	if c.SessionDuration <= 0 {
		return errors.New("session_duration must be positive")
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ParseLogLevel maps a level name to a slog.Level.
func ParseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log_level %q", level)
	}
}
