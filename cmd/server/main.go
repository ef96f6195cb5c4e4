package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/modullar/violations-tracker-backend-sub003/internal/platform/config"
	"github.com/modullar/violations-tracker-backend-sub003/internal/platform/httpserver"
	"github.com/modullar/violations-tracker-backend-sub003/internal/platform/logger"
	"github.com/modullar/violations-tracker-backend-sub003/internal/platform/metrics"
	"github.com/modullar/violations-tracker-backend-sub003/pkg/platform/middleware/requestscope"
)

// main loads configuration, wires the pipeline and serves it until SIGINT or
// SIGTERM. Business logic lives in the internal packages.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := buildApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer app.Close()

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(requestscope.Middleware)
	r.Use(metrics.New().Middleware)
	r.Handle("/metrics", promhttp.Handler())
	app.handler.Register(r)

	srv := httpserver.New(cfg.Server, r)
	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server",
			"addr", cfg.Server.Addr,
			"record_store", app.recordBackend,
			"cache_backend", app.cacheBackend,
			"premium_enabled", cfg.Geocoding.PremiumEnabled(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}
