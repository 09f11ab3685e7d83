package analytics

import (
	"context"
	"net/http"

	"github.com/angelmondragon/admin-analytics/api/middleware"
	"github.com/angelmondragon/admin-analytics/api/responses"
	"github.com/angelmondragon/admin-analytics/api/validators"
	"github.com/angelmondragon/admin-analytics/internal/analytics"
	"github.com/angelmondragon/admin-analytics/internal/analytics/realtime"
	"github.com/angelmondragon/admin-analytics/internal/analytics/types"
	"github.com/angelmondragon/admin-analytics/pkg/logger"
)

// RealtimeReader serves the latest live metrics snapshot.
type RealtimeReader interface {
	Current(ctx context.Context) realtime.Snapshot
}

func parseRequest(r *http.Request, defaultRange string) (validators.DashboardQuery, types.DashboardRequest, error) {
	q, err := validators.ParseDashboardQuery(r, defaultRange)
	if err != nil {
		return q, types.DashboardRequest{}, err
	}
	req, err := q.Request(r.Header.Get(middleware.SessionHeader), middleware.RequestIDFromContext(r.Context()))
	return q, req, err
}

// Dashboard serves the full bundle. A superseded bundle is still returned so
// the caller can discard it by its meta.
func Dashboard(service analytics.Service, defaultRange string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		_, req, err := parseRequest(r, defaultRange)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		bundle := service.Dashboard(ctx, req)
		if bundle.Meta.Superseded && logg != nil {
			logg.Info(logg.WithField(ctx, "sequence", bundle.Meta.Sequence), "analytics.dashboard.superseded")
		}
		responses.WriteSuccess(w, bundle)
	}
}

func Export(service analytics.Service, defaultRange string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		q, req, err := parseRequest(r, defaultRange)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		out, err := service.Export(ctx, req, q.ExportFormat())
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if logg != nil {
			logg.Info(logg.WithFields(ctx, map[string]any{
				"format":      out.Format.String(),
				"bytes":       len(out.Body),
				"placeholder": out.Placeholder,
				"remote":      out.Remote,
			}), "analytics.export")
		}
		responses.WriteFile(w, out.ContentType, out.Filename, out.Body)
	}
}

func Overview(service analytics.Service, defaultRange string, logg *logger.Logger) http.HandlerFunc {
	return insight(defaultRange, logg, func(ctx context.Context, req types.DashboardRequest) any {
		return service.Overview(ctx, req)
	})
}

func Products(service analytics.Service, defaultRange string, logg *logger.Logger) http.HandlerFunc {
	return insight(defaultRange, logg, func(ctx context.Context, req types.DashboardRequest) any {
		return service.Products(ctx, req)
	})
}

func Sales(service analytics.Service, defaultRange string, logg *logger.Logger) http.HandlerFunc {
	return insight(defaultRange, logg, func(ctx context.Context, req types.DashboardRequest) any {
		return service.Sales(ctx, req)
	})
}

func Customers(service analytics.Service, defaultRange string, logg *logger.Logger) http.HandlerFunc {
	return insight(defaultRange, logg, func(ctx context.Context, req types.DashboardRequest) any {
		return service.Customers(ctx, req)
	})
}

func insight(defaultRange string, logg *logger.Logger, load func(context.Context, types.DashboardRequest) any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, req, err := parseRequest(r, defaultRange)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, load(r.Context(), req))
	}
}

func Realtime(reader RealtimeReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, reader.Current(r.Context()))
	}
}
