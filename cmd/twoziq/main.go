package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"twoziq/internal/analytics"
	"twoziq/internal/api"
	"twoziq/internal/cache"
	"twoziq/internal/config"
	"twoziq/internal/logger"
	"twoziq/internal/market"
	"twoziq/internal/monitoring"
	"twoziq/internal/scheduler"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	flag.Parse()

	// .env is optional; environment overrides still apply without it.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load configuration", "path", *configPath, "error", err)
	}
	logger.Init(cfg.Logging)
	logger.Info("starting twoziq analytics service",
		"version", cfg.App.Version, "env", cfg.App.Env)

	cacheTier, err := cache.New(&cfg.Redis)
	if err != nil {
		logger.Warn("redis unavailable, using in-memory cache", "error", err)
	}
	defer cacheTier.Close()

	// The price store is the external data collaborator's boundary; the
	// service starts without it but every analytics request will fail until
	// prices are backfilled.
	var provider market.Provider = market.UnavailableProvider{}
	var storeHealth api.HealthChecker
	store, err := market.NewStore(&cfg.Database)
	if err != nil {
		logger.Warn("price store unavailable, analytics requests will fail", "error", err)
	} else {
		defer store.Close()
		provider = market.NewCachedProvider(store, cacheTier, cfg.Market.CacheTTL)
		storeHealth = store
	}

	metrics := monitoring.NewMetrics()
	service := analytics.NewService(provider, cacheTier, cfg, metrics)

	sched := scheduler.New(service, &cfg.Scheduler)
	if err := sched.Start(); err != nil {
		logger.Error("failed to start scheduler", "error", err)
	}
	defer sched.Stop()

	server := api.NewServer(cfg, service, metrics, storeHealth, cacheTier)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", "error", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("received shutdown signal", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}
