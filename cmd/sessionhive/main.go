// sessionhive runs the session store as a standalone process: it
// selects a backend from configuration, keeps its maintenance loops
// running, and exposes store metrics.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/sessionhive/engine/internal/config"
	"github.com/sessionhive/engine/internal/logger"
	"github.com/sessionhive/engine/internal/metrics"
	"github.com/sessionhive/engine/internal/session"
	"github.com/sessionhive/engine/internal/store"
	"github.com/sessionhive/engine/internal/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "sessionhive: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if err := logger.Init(&logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		Rotation:   cfg.Logging.Rotation,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAge,
	}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	nodeID := uuid.NewString()
	log.Info().
		Str("node_id", nodeID).
		Str("backend", cfg.Store.Backend).
		Msg(version.String())

	collector := metrics.NewCollector()
	storeMetrics := metrics.NewStoreMetrics(collector)

	backend, err := store.New(cfg.Store, func(loop string, count int) {
		if loop == "rebuild" {
			storeMetrics.RecordRebuildRun(cfg.Store.Backend)
		}
		storeMetrics.RecordReclaimed(cfg.Store.Backend, loop, count)
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := store.StartMaintenance(ctx, backend); err != nil {
		return fmt.Errorf("failed to start store maintenance: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := store.StopMaintenance(shutdownCtx, backend); err != nil {
			log.Error().Err(err).Msg("Failed to stop store maintenance")
		}
	}()

	instrumented := metrics.Instrument(backend, cfg.Store.Backend, storeMetrics)

	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewServer(cfg.Metrics.Addr, cfg.Metrics.Path, collector.Registry())
		if err := metricsServer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := metricsServer.Stop(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Failed to stop metrics server")
			}
		}()

		go sampleSizes(ctx, instrumented, cfg.Store.Backend, cfg.Metrics.SampleInterval, storeMetrics)
	}

	log.Info().Msg("Session store ready")
	<-ctx.Done()
	log.Info().Msg("Shutting down")
	return nil
}

// sampleSizes refreshes the record-count gauges until ctx is done.
func sampleSizes(ctx context.Context, s session.Store, backend string, interval time.Duration, m *metrics.StoreMetrics) {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			raw, err := s.Len(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("Failed to sample store length")
				continue
			}
			records, err := s.All(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("Failed to sample live records")
				continue
			}
			m.SetRecordCounts(backend, raw, len(records))
		}
	}
}
