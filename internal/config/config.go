// Package config loads engine configuration from environment variables
// and command line flags.
package config

import (
	"flag"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Backend names accepted by the store selector.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendPebble = "pebble"
	BackendRedis  = "redis"
)

// Config represents the application configuration.
type Config struct {
	Store   StoreConfig   `envPrefix:"STORE_"`
	Logging LoggingConfig `envPrefix:"LOG_"`
	Metrics MetricsConfig `envPrefix:"METRICS_"`
}

// StoreConfig selects a session store backend and carries the settings
// for every backend; only the selected backend's section is used.
type StoreConfig struct {
	// Backend is one of: memory, file, pebble, redis.
	Backend string `env:"BACKEND" envDefault:"memory"`

	Memory MemoryConfig `envPrefix:"MEMORY_"`
	File   FileConfig   `envPrefix:"FILE_"`
	Pebble PebbleConfig `envPrefix:"PEBBLE_"`
	Redis  RedisConfig  `envPrefix:"REDIS_"`
}

// MemoryConfig holds settings for the in-memory backend.
type MemoryConfig struct {
	// MaxAge is the lifetime granted to a record on Set/Touch.
	MaxAge time.Duration `env:"MAX_AGE" envDefault:"24h"`

	// CleanupInterval is the period of the expired-record scan.
	CleanupInterval time.Duration `env:"CLEANUP_INTERVAL" envDefault:"5m"`

	// IndexInterval is the period of the expiration index rebuild.
	IndexInterval time.Duration `env:"INDEX_INTERVAL" envDefault:"1m"`
}

// FileConfig holds settings for the file-per-record backend.
type FileConfig struct {
	// Path is the directory holding one JSON file per session.
	Path string `env:"PATH" envDefault:"./sessions"`

	// TTL is the lifetime granted to a record on Set/Touch.
	TTL time.Duration `env:"TTL" envDefault:"24h"`
}

// PebbleConfig holds settings for the pebble-backed backend.
type PebbleConfig struct {
	// Dir is the pebble database directory.
	Dir string `env:"DIR" envDefault:"./sessions-db"`

	// TTL is the lifetime granted to a record on Set/Touch.
	TTL time.Duration `env:"TTL" envDefault:"24h"`

	// ReapInterval is the period of the expired-record sweep.
	ReapInterval time.Duration `env:"REAP_INTERVAL" envDefault:"5m"`
}

// RedisConfig holds settings for the redis-backed backend.
type RedisConfig struct {
	Addr   string `env:"ADDR" envDefault:"localhost:6379"`
	Prefix string `env:"PREFIX" envDefault:"session:"`

	// TTL is the lifetime granted to a record on Set/Touch.
	TTL time.Duration `env:"TTL" envDefault:"24h"`
}

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
	// Level is one of: debug, info, warn, error.
	Level string `env:"LEVEL" envDefault:"info"`

	// Format is one of: json, text.
	Format string `env:"FORMAT" envDefault:"json"`

	// Output is a file path, or empty/"stdout" for stdout.
	Output string `env:"OUTPUT" envDefault:""`

	// Rotation enables size-based log rotation for file output.
	Rotation bool `env:"ROTATION" envDefault:"true"`

	// MaxSize is the max log file size in MB before rotation.
	MaxSize int `env:"MAX_SIZE" envDefault:"100"`

	// MaxBackups is the number of rotated files to keep.
	MaxBackups int `env:"MAX_BACKUPS" envDefault:"7"`

	// MaxAge is the max age of rotated files in days.
	MaxAge int `env:"MAX_AGE" envDefault:"30"`
}

// MetricsConfig holds metrics-related configuration.
type MetricsConfig struct {
	Enabled bool   `env:"ENABLED" envDefault:"true"`
	Addr    string `env:"ADDR" envDefault:":9090"`
	Path    string `env:"PATH" envDefault:"/metrics"`

	// SampleInterval is how often store size gauges are refreshed.
	SampleInterval time.Duration `env:"SAMPLE_INTERVAL" envDefault:"15s"`
}

// Load loads configuration from environment variables, then applies
// command line flag overrides, then validates.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	flag.StringVar(&cfg.Store.Backend, "backend", cfg.Store.Backend, "Store backend (memory, file, pebble, redis)")
	flag.StringVar(&cfg.Store.File.Path, "sessions-dir", cfg.Store.File.Path, "Session directory for the file backend")
	flag.StringVar(&cfg.Store.Pebble.Dir, "pebble-dir", cfg.Store.Pebble.Dir, "Database directory for the pebble backend")
	flag.StringVar(&cfg.Store.Redis.Addr, "redis-addr", cfg.Store.Redis.Addr, "Redis address for the redis backend")
	flag.StringVar(&cfg.Logging.Level, "log-level", cfg.Logging.Level, "Log level (debug, info, warn, error)")
	flag.StringVar(&cfg.Logging.Format, "log-format", cfg.Logging.Format, "Log format (json, text)")
	flag.StringVar(&cfg.Metrics.Addr, "metrics-addr", cfg.Metrics.Addr, "Metrics server address")
	flag.Parse()

	cfg.Store.File.Path = filepath.Clean(cfg.Store.File.Path)
	cfg.Store.Pebble.Dir = filepath.Clean(cfg.Store.Pebble.Dir)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendMemory, BackendFile, BackendPebble, BackendRedis:
	default:
		return fmt.Errorf("unknown store backend: %s", c.Store.Backend)
	}

	if c.Store.Memory.MaxAge <= 0 {
		return fmt.Errorf("memory max age must be positive")
	}
	if c.Store.Memory.CleanupInterval <= 0 {
		return fmt.Errorf("memory cleanup interval must be positive")
	}
	if c.Store.Memory.IndexInterval <= 0 {
		return fmt.Errorf("memory index interval must be positive")
	}
	if c.Store.File.Path == "" {
		return fmt.Errorf("file backend path cannot be empty")
	}
	if c.Store.File.TTL <= 0 {
		return fmt.Errorf("file backend ttl must be positive")
	}
	if c.Store.Pebble.TTL <= 0 {
		return fmt.Errorf("pebble backend ttl must be positive")
	}
	if c.Store.Redis.TTL <= 0 {
		return fmt.Errorf("redis backend ttl must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"json": true,
		"text": true,
	}
	if !validLogFormats[strings.ToLower(c.Logging.Format)] {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	return nil
}
