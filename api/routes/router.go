package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/admin-analytics/api/controllers"
	analyticscontrollers "github.com/angelmondragon/admin-analytics/api/controllers/analytics"
	"github.com/angelmondragon/admin-analytics/api/middleware"
	"github.com/angelmondragon/admin-analytics/internal/analytics"
	"github.com/angelmondragon/admin-analytics/pkg/config"
	"github.com/angelmondragon/admin-analytics/pkg/logger"
	"github.com/angelmondragon/admin-analytics/pkg/redis"
)

// Cache is the redis surface the router needs for readiness and rate limiting.
type Cache interface {
	redis.Pinger
	redis.RateLimiter
}

type RouterParams struct {
	Config    *config.Config
	Logger    *logger.Logger
	Cache     Cache
	Analytics analytics.Service
	Realtime  analyticscontrollers.RealtimeReader
	Gatherer  prometheus.Gatherer
}

func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	cache := params.Cache

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, cache))
	})

	if params.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(params.Gatherer, promhttp.HandlerOpts{}))
	}

	exportPolicy := middleware.RateLimitPolicy{
		Name:   "export",
		Window: cfg.RateLimit.ExportWindow,
		Limit:  cfg.RateLimit.ExportLimit,
	}
	defaultRange := cfg.Analytics.DefaultRange

	r.Route("/api/admin/v1/analytics", func(r chi.Router) {
		r.Use(
			middleware.Auth(cfg.JWT, logg),
			middleware.RequireRole(cfg.JWT.AdminRole, logg),
		)
		r.Get("/dashboard", analyticscontrollers.Dashboard(params.Analytics, defaultRange, logg))
		r.With(middleware.RateLimit(exportPolicy, cache, logg)).Get("/export", analyticscontrollers.Export(params.Analytics, defaultRange, logg))
		r.Get("/overview", analyticscontrollers.Overview(params.Analytics, defaultRange, logg))
		r.Get("/products", analyticscontrollers.Products(params.Analytics, defaultRange, logg))
		r.Get("/sales", analyticscontrollers.Sales(params.Analytics, defaultRange, logg))
		r.Get("/customers", analyticscontrollers.Customers(params.Analytics, defaultRange, logg))
		if params.Realtime != nil {
			r.Get("/realtime", analyticscontrollers.Realtime(params.Realtime))
		}
	})

	return r
}
