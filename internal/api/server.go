package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/wonny/cryptorank/internal/api/handlers"
	"github.com/wonny/cryptorank/pkg/logger"
)

// drainTimeout bounds in-flight requests after shutdown starts
const drainTimeout = 30 * time.Second

// Stopper is a background worker stopped before the server drains (the reload scheduler)
type Stopper interface {
	Stop()
}

// Server exposes one ranking session over HTTP and owns its background reloads.
// Shutdown order: reloads stop first so no table swap races the drain, then HTTP drains.
// ⭐ SSOT: API 서버 lifecycle은 이 파일에서만
type Server struct {
	httpServer *http.Server
	ranking    *handlers.RankingHandler
	reloads    Stopper
	logger     *logger.Logger
}

// NewServer creates a server listening on addr
func NewServer(addr string, router http.Handler, ranking *handlers.RankingHandler, log *logger.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		ranking: ranking,
		logger:  log,
	}
}

// WithReloads registers the reload worker stopped on shutdown
func (s *Server) WithReloads(w Stopper) *Server {
	s.reloads = w
	return s
}

// Run serves until ctx is cancelled or the listener fails, then drains.
// A cancelled ctx is a clean stop and returns nil.
func (s *Server) Run(ctx context.Context) error {
	dataset := s.ranking.Dataset()
	s.logger.WithFields(map[string]interface{}{
		"addr":    s.httpServer.Addr,
		"dataset": dataset.Source,
		"records": dataset.Records,
	}).Info("Starting ranking API server")

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.ListenAndServe()
	}()

	var serveErr error
	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = fmt.Errorf("failed to start server: %w", err)
		}
	case <-ctx.Done():
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()

	if err := s.shutdown(drainCtx); err != nil && serveErr == nil {
		serveErr = err
	}
	return serveErr
}

func (s *Server) shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down ranking API server")

	if s.reloads != nil {
		s.reloads.Stop()
		s.logger.Debug("Dataset reloads stopped")
	}

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	dataset := s.ranking.Dataset()
	s.logger.WithFields(map[string]interface{}{
		"loaded":  dataset.Loaded,
		"dataset": dataset.Source,
		"records": dataset.Records,
	}).Info("Ranking session drained")
	return nil
}
