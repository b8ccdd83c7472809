package config

import (
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Backend: BackendMemory,
			Memory: MemoryConfig{
				MaxAge:          24 * time.Hour,
				CleanupInterval: 5 * time.Minute,
				IndexInterval:   time.Minute,
			},
			File:   FileConfig{Path: "./sessions", TTL: 24 * time.Hour},
			Pebble: PebbleConfig{Dir: "./sessions-db", TTL: 24 * time.Hour, ReapInterval: 5 * time.Minute},
			Redis:  RedisConfig{Addr: "localhost:6379", Prefix: "session:", TTL: 24 * time.Hour},
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
		Metrics: MetricsConfig{Addr: ":9090", Path: "/metrics"},
	}
}

func TestValidate_Defaults(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, env.Parse(cfg))
	require.NoError(t, cfg.Validate())

	assert.Equal(t, BackendMemory, cfg.Store.Backend)
	assert.Equal(t, 24*time.Hour, cfg.Store.Memory.MaxAge)
	assert.Equal(t, 5*time.Minute, cfg.Store.Memory.CleanupInterval)
	assert.Equal(t, time.Minute, cfg.Store.Memory.IndexInterval)
	assert.Equal(t, "./sessions", cfg.Store.File.Path)
	assert.Equal(t, 24*time.Hour, cfg.Store.File.TTL)
	assert.Equal(t, "session:", cfg.Store.Redis.Prefix)
}

func TestValidate_EnvOverrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "file")
	t.Setenv("STORE_FILE_TTL", "1h")
	t.Setenv("STORE_MEMORY_CLEANUP_INTERVAL", "30s")

	cfg := &Config{}
	require.NoError(t, env.Parse(cfg))
	require.NoError(t, cfg.Validate())

	assert.Equal(t, BackendFile, cfg.Store.Backend)
	assert.Equal(t, time.Hour, cfg.Store.File.TTL)
	assert.Equal(t, 30*time.Second, cfg.Store.Memory.CleanupInterval)
}

func TestValidate_RejectsUnknownBackend(t *testing.T) {
	cfg := validConfig()
	cfg.Store.Backend = "postit-notes"
	require.Error(t, cfg.Validate())
}

func TestValidate_RejectsBadDurations(t *testing.T) {
	cfg := validConfig()
	cfg.Store.Memory.MaxAge = 0
	require.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Store.Memory.CleanupInterval = -time.Second
	require.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Store.File.TTL = 0
	require.Error(t, cfg.Validate())
}

func TestValidate_RejectsBadLogging(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Level = "loud"
	require.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Logging.Format = "xml"
	require.Error(t, cfg.Validate())
}
