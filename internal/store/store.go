// Package store selects and constructs a session store backend from
// configuration.
package store

import (
	"context"
	"fmt"

	"github.com/sessionhive/engine/internal/config"
	"github.com/sessionhive/engine/internal/logger"
	"github.com/sessionhive/engine/internal/session"
	"github.com/sessionhive/engine/internal/store/file"
	"github.com/sessionhive/engine/internal/store/memory"
	"github.com/sessionhive/engine/internal/store/pebbledb"
	"github.com/sessionhive/engine/internal/store/redisstore"
)

// New constructs the backend named by cfg.Backend. Backend construction
// failures (directory creation, database open, redis ping) are fatal
// and propagated. onReclaim, which may be nil, is invoked by backends
// that run maintenance whenever a pass reclaims expired records.
func New(cfg config.StoreConfig, onReclaim func(loop string, count int)) (session.Store, error) {
	log := logger.WithComponent("store")

	switch cfg.Backend {
	case config.BackendMemory:
		log.Info().
			Dur("max_age", cfg.Memory.MaxAge).
			Dur("cleanup_interval", cfg.Memory.CleanupInterval).
			Dur("index_interval", cfg.Memory.IndexInterval).
			Msg("Using memory session store")
		return memory.New(memory.Options{
			MaxAge:          cfg.Memory.MaxAge,
			CleanupInterval: cfg.Memory.CleanupInterval,
			IndexInterval:   cfg.Memory.IndexInterval,
			OnReclaim:       onReclaim,
		}), nil

	case config.BackendFile:
		log.Info().Str("path", cfg.File.Path).Dur("ttl", cfg.File.TTL).Msg("Using file session store")
		return file.New(file.Options{
			Path: cfg.File.Path,
			TTL:  cfg.File.TTL,
		})

	case config.BackendPebble:
		log.Info().Str("dir", cfg.Pebble.Dir).Dur("ttl", cfg.Pebble.TTL).Msg("Using pebble session store")
		return pebbledb.New(pebbledb.Options{
			Dir:          cfg.Pebble.Dir,
			TTL:          cfg.Pebble.TTL,
			ReapInterval: cfg.Pebble.ReapInterval,
			OnReclaim:    onReclaim,
		})

	case config.BackendRedis:
		log.Info().Str("addr", cfg.Redis.Addr).Dur("ttl", cfg.Redis.TTL).Msg("Using redis session store")
		return redisstore.New(redisstore.Options{
			Addr:   cfg.Redis.Addr,
			Prefix: cfg.Redis.Prefix,
			TTL:    cfg.Redis.TTL,
		})

	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.Backend)
	}
}

// StartMaintenance starts background maintenance if the backend runs
// any. Backends without maintenance are a no-op.
func StartMaintenance(ctx context.Context, s session.Store) error {
	if m, ok := s.(session.Maintainer); ok {
		return m.Start(ctx)
	}
	return nil
}

// StopMaintenance stops background maintenance if the backend runs any.
func StopMaintenance(ctx context.Context, s session.Store) error {
	if m, ok := s.(session.Maintainer); ok {
		return m.Stop(ctx)
	}
	return nil
}
