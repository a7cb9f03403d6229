package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/salmanfarse/folio/internal/app"
	"github.com/salmanfarse/folio/internal/config"
	"github.com/salmanfarse/folio/internal/log"
	"github.com/salmanfarse/folio/internal/session"
)

// Server timeout configuration.
const (
	readHeaderTimeout = 10 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 2 * time.Minute // token streaming needs a long write window
	idleTimeout       = 2 * time.Minute
	shutdownTimeout   = 30 * time.Second

	// sweepEvery is how often idle sessions are purged from PostgreSQL.
	sweepEvery = 5 * time.Minute
)

// runServe initializes and starts the HTTP API server.
func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := newLogger(cfg.LogJSON, cfg.Debug)
	logger.Info("starting HTTP API server", "version", Version)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	go sweepSessions(ctx, a.Postgres, logger)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           a.Server.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	logger.Info("HTTP server ready",
		"addr", cfg.Addr,
		"api", "/api/chat",
		"health", "/healthz",
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down HTTP server")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down server: %w", err)
		}
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTP server: %w", err)
	}
}

// sweepSessions purges idle conversations on a fixed interval until the
// context is canceled.
func sweepSessions(ctx context.Context, store *session.PostgresStore, logger log.Logger) {
	ticker := time.NewTicker(sweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.SweepIdle(ctx)
			if err != nil {
				logger.Warn("sweeping idle sessions", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("swept idle sessions", "count", n)
			}
		}
	}
}
