package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/admin-analytics/api"
	"github.com/angelmondragon/admin-analytics/api/routes"
	"github.com/angelmondragon/admin-analytics/internal/analytics"
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
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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
		storefront.WithPageLimit(cfg.Storefront.PageLimit),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create storefront client", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	analyticsMetrics := metrics.NewAnalyticsMetrics(registry)
	generator := mock.New()

	analyticsAPI, err := source.NewAnalyticsAPI(store, logg, analyticsMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create analytics api source", err)
		os.Exit(1)
	}
	fetcher, err := source.NewFetcher(source.FetcherParams{
		Client:       store,
		Placeholders: generator,
		Cache:        redisClient,
		CatalogKey:   redisClient.CatalogKey("products"),
		CatalogTTL:   cfg.Analytics.ProductCacheTTL,
		Logger:       logg,
		Metrics:      analyticsMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create storefront fetcher", err)
		os.Exit(1)
	}

	analyticsService, err := analytics.NewService(analytics.ServiceParams{
		API:             analyticsAPI,
		Reports:         analyticsAPI,
		Raw:             fetcher,
		Generator:       generator,
		ForecastPeriods: cfg.Analytics.ForecastPeriods,
		Logger:          logg,
		Metrics:         analyticsMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create analytics service", err)
		os.Exit(1)
	}

	poller, err := realtime.NewPoller(realtime.PollerParams{
		Source:      analyticsAPI,
		Fallback:    generator,
		Logger:      logg,
		Metrics:     analyticsMetrics,
		Store:       redisClient,
		SnapshotKey: redisClient.RealtimeSnapshotKey(),
		SnapshotTTL: cfg.Poller.SnapshotTTL,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create realtime reader", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithField(ctx, "env", cfg.App.Env)

	server := api.NewServer(cfg, routes.NewRouter(routes.RouterParams{
		Config:    cfg,
		Logger:    logg,
		Cache:     redisClient,
		Analytics: analyticsService,
		Realtime:  poller,
		Gatherer:  registry,
	}))

	if err := api.Serve(ctx, server, logg); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server shut down gracefully")
}
