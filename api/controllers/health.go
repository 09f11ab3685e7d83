package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/admin-analytics/api/responses"
	"github.com/angelmondragon/admin-analytics/pkg/config"
	pkgerrors "github.com/angelmondragon/admin-analytics/pkg/errors"
	"github.com/angelmondragon/admin-analytics/pkg/logger"
	"github.com/angelmondragon/admin-analytics/pkg/redis"
)

const envHeader = "X-Analytics-Env"

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings redis. The storefront is not checked because every
// analytics endpoint degrades to synthetic data without it.
func HealthReady(cfg *config.Config, logg *logger.Logger, cache redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		if cache != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := cache.Ping(ctx); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis unavailable"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
