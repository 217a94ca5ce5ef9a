package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/BenGiese22/should-i-race-this-sub003/internal/adapters/http/api"
	"github.com/BenGiese22/should-i-race-this-sub003/internal/adapters/http/swagger"
	"github.com/BenGiese22/should-i-race-this-sub003/internal/adapters/perfstore"
	"github.com/BenGiese22/should-i-race-this-sub003/internal/app"
	"github.com/BenGiese22/should-i-race-this-sub003/internal/config"
	"github.com/BenGiese22/should-i-race-this-sub003/internal/seed"
	"github.com/BenGiese22/should-i-race-this-sub003/pkg/logger"
	"github.com/BenGiese22/should-i-race-this-sub003/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout           = 10 * time.Second
	writeTimeout          = 30 * time.Second
	idleTimeout           = 60 * time.Second
	readHeaderTimeout     = 5 * time.Second
	shutdownTimeout       = 30 * time.Second
	systemMetricsInterval = 10 * time.Second
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics.
	// We collect our own system metrics instead.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}

	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env).
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input).
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	// Seed the in-memory performance store with the synthetic demo dataset.
	// A real deployment would swap in an adapter backed by the sync pipeline.
	store := perfstore.NewMemoryStore()
	seedOpts := []seed.Option{
		seed.WithSeed(cfg.DemoSeed),
		seed.WithDriverCount(cfg.DemoDrivers),
	}
	if cfg.SeasonYear != 0 {
		seedOpts = append(seedOpts, seed.WithSeason(cfg.SeasonYear, cfg.SeasonQuarter))
	}
	gen := seed.NewGenerator(seedOpts...)
	gen.Populate(ctx, store)

	opts := []app.Option{
		app.WithStore(store),
		app.WithLogger(log),
		app.WithCacheTTL(time.Duration(cfg.CacheTTLMinutes) * time.Minute),
		app.WithCleanupInterval(time.Duration(cfg.CacheCleanupMinutes) * time.Minute),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithMinSampleSize(cfg.MinSampleSize),
		app.WithTrendWindow(cfg.TrendWindow),
		app.WithFamiliarityThreshold(cfg.FamiliarityThreshold),
		app.WithMaxResultsLimit(cfg.MaxResultsLimit),
		app.WithWeights(cfg.Weights()),
		app.WithSyncQueueCapacity(cfg.SyncQueueCapacity),
		app.WithSyncWorkerCount(cfg.SyncWorkerCount),
		app.WithSyncDedupeSize(cfg.SyncDedupeSize),
	}
	if cfg.SeasonYear != 0 {
		year, quarter := cfg.SeasonYear, cfg.SeasonQuarter
		opts = append(opts, app.WithSeason(func() (int, int) { return year, quarter }))
	}

	svc := app.New(opts...)
	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start service: " + err.Error() + "\n")
		return
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)

	// HTTP mux and routes.
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	apiServer := api.NewServer(svc, svc)
	apiServer.Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
			return
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}
