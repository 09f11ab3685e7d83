package source

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/admin-analytics/internal/analytics/types"
	pkgerrors "github.com/angelmondragon/admin-analytics/pkg/errors"
	"github.com/angelmondragon/admin-analytics/pkg/logger"
	"github.com/angelmondragon/admin-analytics/pkg/metrics"
	"github.com/angelmondragon/admin-analytics/pkg/storefront"
	"golang.org/x/sync/errgroup"
)

// Storefront analytics endpoints.
const (
	PathDashboardOverview    = "analytics/dashboard/overview"
	PathDashboardStats       = "analytics/dashboard/stats"
	PathSalesTrends          = "analytics/sales/trends"
	PathSalesOverview        = "analytics/sales/overview"
	PathSalesCategories      = "analytics/sales/categories"
	PathSalesRegions         = "analytics/sales/regions"
	PathTopProducts          = "analytics/products/top"
	PathCategoryDistribution = "analytics/products/category-distribution"
	PathCustomerSegments     = "analytics/customers/segments"
	PathCustomerRetention    = "analytics/customers/retention"
	PathUsersOverview        = "analytics/users/overview"
	PathOrderStatus          = "analytics/orders/status"
	PathPaymentMethods       = "analytics/payments/methods"
	PathReportGenerate       = "analytics/reports/generate"
)

// DashboardPaths are the nine endpoints a full dashboard bundle is assembled from.
var DashboardPaths = []string{
	PathDashboardOverview,
	PathSalesTrends,
	PathTopProducts,
	PathCategoryDistribution,
	PathCustomerSegments,
	PathOrderStatus,
	PathCustomerRetention,
	PathPaymentMethods,
	PathSalesRegions,
}

// AnalyticsClient is the analytics surface of the storefront client.
type AnalyticsClient interface {
	Analytics(ctx context.Context, path string, query storefront.AnalyticsQuery) (storefront.AnalyticsResponse, error)
}

// ReportClient renders the dashboard report on the storefront side.
type ReportClient interface {
	Report(ctx context.Context, query storefront.AnalyticsQuery, format string) (*storefront.Report, error)
}

// Responses holds one decoded-on-demand payload per endpoint path.
type Responses map[string]storefront.AnalyticsResponse

// Decode unmarshals field of the payload at path into dst.
func (r Responses) Decode(path, field string, dst any) (bool, error) {
	resp, ok := r[path]
	if !ok {
		return false, nil
	}
	found, err := resp.Decode(field, dst)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("decode %s from %s", field, path))
	}
	return found, nil
}

// AnalyticsAPI fans out calls to the storefront analytics endpoints.
type AnalyticsAPI struct {
	client  AnalyticsClient
	reports ReportClient
	logg    *logger.Logger
	metrics *metrics.AnalyticsMetrics
}

func NewAnalyticsAPI(client AnalyticsClient, logg *logger.Logger, m *metrics.AnalyticsMetrics) (*AnalyticsAPI, error) {
	if client == nil {
		return nil, fmt.Errorf("analytics client required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	reports, _ := client.(ReportClient)
	return &AnalyticsAPI{client: client, reports: reports, logg: logg, metrics: m}, nil
}

// Query builds the endpoint parameters. Explicit bounds are only sent for a
// custom range.
func Query(rangeKey string, custom *types.CustomRange) storefront.AnalyticsQuery {
	q := storefront.AnalyticsQuery{Period: rangeKey}
	if custom != nil {
		start, end := custom.Start, custom.End
		q.Start = &start
		q.End = &end
	}
	return q
}

// FetchAll calls every path concurrently and waits for all of them. The first
// failure cancels the rest and is returned.
func (a *AnalyticsAPI) FetchAll(ctx context.Context, query storefront.AnalyticsQuery, paths ...string) (Responses, error) {
	results := make([]storefront.AnalyticsResponse, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			resp, err := a.client.Analytics(gctx, path, query)
			if err != nil {
				a.metrics.IncFetchFailure(path)
				return err
			}
			results[i] = resp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(Responses, len(paths))
	for i, path := range paths {
		out[path] = results[i]
	}
	return out, nil
}

// Fetch calls a single endpoint.
func (a *AnalyticsAPI) Fetch(ctx context.Context, path string, query storefront.AnalyticsQuery) (storefront.AnalyticsResponse, error) {
	start := time.Now()
	resp, err := a.client.Analytics(ctx, path, query)
	if err != nil {
		a.metrics.IncFetchFailure(path)
		return nil, err
	}
	a.logg.Debug(a.logg.WithFields(ctx, map[string]any{
		"path":        path,
		"duration_ms": time.Since(start).Milliseconds(),
	}), "analytics endpoint fetched")
	return resp, nil
}

// Report fetches a server-rendered report. Clients without the report
// endpoint fail with a dependency error.
func (a *AnalyticsAPI) Report(ctx context.Context, query storefront.AnalyticsQuery, format string) (*storefront.Report, error) {
	if a.reports == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "report endpoint not available")
	}
	report, err := a.reports.Report(ctx, query, format)
	if err != nil {
		a.metrics.IncFetchFailure(PathReportGenerate)
		return nil, err
	}
	return report, nil
}
