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
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/neexbeast/agroclima/internal/api"
	"github.com/neexbeast/agroclima/internal/cache"
	"github.com/neexbeast/agroclima/internal/config"
	"github.com/neexbeast/agroclima/internal/logging"
	"github.com/neexbeast/agroclima/internal/meteo"
	"github.com/neexbeast/agroclima/internal/scheduler"
	"github.com/neexbeast/agroclima/internal/storage"
)

func main() {
	cfg, err := config.LoadServer()
	if err != nil {
		slog.Error("loading config", "err", err)
		os.Exit(1)
	}

	log := logging.New(os.Stdout, cfg.LogLevel, true)
	if err := run(cfg, log); err != nil {
		log.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps := map[string]api.Pinger{}

	// Cache and observation log are optional; interfaces stay nil when disabled.
	var weatherCache api.WeatherCache
	if cfg.RedisURL != "" {
		rdb, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer func() { _ = rdb.Close() }()

		c := cache.NewCache(rdb, cfg.CacheTTL)
		weatherCache = c
		deps["redis"] = c
		log.Info("weather cache enabled", "ttl", cfg.CacheTTL)
	} else {
		log.Warn("REDIS_URL not set; serving without a cache")
	}

	var observations api.ObservationRepo
	if cfg.DatabaseURL != "" {
		pool, err := storage.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer pool.Close()

		if err := storage.RunMigrations(ctx, pool, cfg.MigrationsDir); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		log.Info("migrations applied", "dir", cfg.MigrationsDir)

		repo := storage.NewRepository(pool)
		observations = repo
		deps["db"] = repo
	} else {
		log.Warn("DATABASE_URL not set; observation log disabled")
	}

	metrics := api.NewMetrics()
	fetcher := meteo.NewFetcher(cfg.GeocodingURL, cfg.ForecastURL)
	handlers := api.NewHandlers(fetcher, weatherCache, observations, metrics, log)
	router := api.NewRouter(handlers, api.RouterOptions{
		Token:     cfg.APIToken,
		RateLimit: cfg.RateLimit,
		Deps:      deps,
		Metrics:   metrics,
	}, log)

	warmer, err := scheduler.NewWarmer(cfg.WarmSchedule, cfg.WarmCities, handlers, log)
	if err != nil {
		return err
	}
	if err := warmer.Start(ctx); err != nil {
		return err
	}
	defer warmer.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listening: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server shut down cleanly")
	return nil
}
