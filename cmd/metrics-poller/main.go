package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/admin-analytics/internal/analytics/mock"
	"github.com/angelmondragon/admin-analytics/internal/analytics/realtime"
	"github.com/angelmondragon/admin-analytics/internal/analytics/source"
	"github.com/angelmondragon/admin-analytics/pkg/config"
	"github.com/angelmondragon/admin-analytics/pkg/logger"
	"github.com/angelmondragon/admin-analytics/pkg/metrics"
	"github.com/angelmondragon/admin-analytics/pkg/redis"
	"github.com/angelmondragon/admin-analytics/pkg/storefront"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "metrics-poller"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "metrics-poller",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	store, err := storefront.NewClient(cfg.Storefront.BaseURL,
		storefront.WithAPIToken(cfg.Storefront.APIToken),
		storefront.WithTimeout(cfg.Storefront.Timeout),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create storefront client", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	analyticsMetrics := metrics.NewAnalyticsMetrics(registry)

	analyticsAPI, err := source.NewAnalyticsAPI(store, logg, analyticsMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create analytics api source", err)
		os.Exit(1)
	}

	// The lease outlives one missed tick before another replica may take over.
	lease, err := realtime.NewRedisLease(redisClient, redisClient.PublisherLeaseKey(), 2*cfg.Poller.Interval)
	if err != nil {
		logg.Error(context.Background(), "failed to create publisher lease", err)
		os.Exit(1)
	}

	poller, err := realtime.NewPoller(realtime.PollerParams{
		Source:      analyticsAPI,
		Fallback:    mock.New(),
		Logger:      logg,
		Metrics:     analyticsMetrics,
		Store:       redisClient,
		SnapshotKey: redisClient.RealtimeSnapshotKey(),
		SnapshotTTL: cfg.Poller.SnapshotTTL,
		Lease:       lease,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create poller", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"interval": cfg.Poller.Interval.String(),
	})

	metricsServer := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "metrics listener stopped", err)
		}
	}()

	logg.Info(ctx, "starting metrics poller")
	handle := poller.Start(ctx, func(snap realtime.Snapshot) {
		if err := poller.Publish(ctx, snap); err != nil {
			logg.Error(ctx, "failed to publish realtime snapshot", err)
		}
	}, cfg.Poller.Interval)

	<-ctx.Done()
	handle.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := poller.Resign(shutdownCtx); err != nil {
		logg.Error(context.Background(), "failed to release publisher lease", err)
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logg.Error(context.Background(), "metrics listener shutdown failed", err)
	}
	logg.Info(context.Background(), "metrics poller shut down gracefully")
}
