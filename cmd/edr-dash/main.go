package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mvallgren/edr-grid-cache/internal/cache"
	"github.com/mvallgren/edr-grid-cache/internal/config"
	"github.com/mvallgren/edr-grid-cache/internal/edrclient"
	"github.com/mvallgren/edr-grid-cache/internal/health"
	"github.com/mvallgren/edr-grid-cache/internal/logger"
	"github.com/mvallgren/edr-grid-cache/internal/middleware"
	"github.com/mvallgren/edr-grid-cache/internal/observability"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.FromEnv()
	log := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		Component: "edr-dash",
	}, os.Stdout)

	observability.ExposeBuildInfo(Version)
	log.Info().
		Str("addr", cfg.Addr).
		Str("version", Version).
		Str("edr_server", cfg.EDRServerURL).
		Str("cache", cfg.CacheBackend).
		Msg("starting edr-dash")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := newStore(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Msg("cache setup failed")
		return 1
	}
	defer closeStore()

	client, err := edrclient.New(cfg.EDRServerURL, edrclient.WithLogger(log))
	if err != nil {
		log.Error().Err(err).Msg("edr client setup failed")
		return 1
	}

	app := &api{log: log, client: client, store: store}

	r := chi.NewRouter()
	r.Use(middleware.Recover(log))
	r.Use(middleware.Logging(log))
	r.Use(middleware.CORS())

	r.Get("/healthz", health.Liveness())
	r.Get("/readyz", health.Readiness(app))
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/collections", app.handleCollections)
	r.Get("/collections/{id}/parameters", app.handleParameters)
	r.Get("/collections/{id}/locations", app.handleLocations)
	r.Get("/collections/{id}/grid", app.handleGrid)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.RequestTimeout,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("http listen")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		log.Error().Err(err).Msg("server error")
		return 1
	}
	log.Info().Msg("server stopped")
	return 0
}

// newStore builds the session cache backend named by the configuration.
func newStore(ctx context.Context, cfg config.Config) (cache.Store, func(), error) {
	switch cfg.CacheBackend {
	case "", "memory":
		return cache.NewMemory(), func() {}, nil
	case "lru":
		s, err := cache.NewLRU(cfg.LRUSize)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	case "redis":
		s, err := cache.NewRedis(ctx, cfg.RedisAddr, cfg.RedisTTL)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
	}
}
