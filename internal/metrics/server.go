package metrics

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/sessionhive/engine/internal/logger"
)

// Server serves the metrics registry over HTTP.
type Server struct {
	httpServer *http.Server
	addr       string
	path       string
	registry   *prometheus.Registry
	log        zerolog.Logger
	running    bool
	mu         sync.Mutex
}

// NewServer creates a metrics server for the given registry.
func NewServer(addr, path string, registry *prometheus.Registry) *Server {
	if path == "" {
		path = "/metrics"
	}
	return &Server{
		addr:     addr,
		path:     path,
		registry: registry,
		log:      logger.WithComponent("metrics.server"),
	}
}

// Start starts serving. Idempotent.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	mux := http.NewServeMux()
	if s.registry != nil {
		mux.Handle(s.path, promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	} else {
		mux.Handle(s.path, promhttp.Handler())
	}

	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error().Err(err).Msg("Metrics server error")
		}
	}()

	s.running = true
	s.log.Info().Str("addr", s.addr).Str("path", s.path).Msg("Metrics server started")
	return nil
}

// Stop shuts the server down. Idempotent.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	if err := s.httpServer.Shutdown(ctx); err != nil {
		_ = s.httpServer.Close()
		return err
	}
	s.running = false
	s.log.Info().Msg("Metrics server stopped")
	return nil
}
