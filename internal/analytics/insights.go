package analytics

import (
	"context"
	"math"

	"github.com/angelmondragon/admin-analytics/internal/analytics/aggregate"
	"github.com/angelmondragon/admin-analytics/internal/analytics/source"
	"github.com/angelmondragon/admin-analytics/internal/analytics/types"
	"github.com/angelmondragon/admin-analytics/pkg/enums"
	pkgerrors "github.com/angelmondragon/admin-analytics/pkg/errors"
)

func (s *service) granularity(rangeKey string) enums.Granularity {
	return enums.MockGranularityForRange(rangeKey)
}

func (s *service) insightFailed(ctx context.Context, insight string, err error) {
	fields := pkgerrors.Dump(err).Fields()
	fields["insight"] = insight
	s.logg.Warn(s.logg.WithFields(ctx, fields), "analytics insight failed; using synthetic data")
}

// Overview returns the dashboard overview endpoint, or synthetic stats and trends.
func (s *service) Overview(ctx context.Context, req types.DashboardRequest) *types.OverviewInsight {
	if s.api != nil {
		resp, err := s.api.Fetch(ctx, source.PathDashboardOverview, source.Query(req.RangeKey, req.Custom))
		if err == nil {
			out := &types.OverviewInsight{Trends: []types.SalesPoint{}, Source: enums.BundleSourceAnalyticsAPI}
			responses := source.Responses{source.PathDashboardOverview: resp}
			err = decodeSections(responses,
				section{source.PathDashboardOverview, "stats", &out.Stats},
				section{source.PathDashboardOverview, "trends", &out.Trends},
				section{source.PathDashboardOverview, "realTimeMetrics", &out.RealTimeMetrics},
			)
			if err == nil {
				return out
			}
		}
		s.insightFailed(ctx, "overview", err)
	}

	g := s.granularity(req.RangeKey)
	return &types.OverviewInsight{
		Stats:  s.gen.Stats(g),
		Trends: s.gen.SalesSeries(g),
		Source: enums.BundleSourceMock,
	}
}

// Products returns top products and the category split.
func (s *service) Products(ctx context.Context, req types.DashboardRequest) *types.ProductInsight {
	if s.api != nil {
		resp, err := s.api.FetchAll(ctx, source.Query(req.RangeKey, req.Custom), source.PathTopProducts, source.PathCategoryDistribution)
		if err == nil {
			out := &types.ProductInsight{
				TopProducts:          []types.TopProduct{},
				CategoryDistribution: []types.CategoryShare{},
				Source:               enums.BundleSourceAnalyticsAPI,
			}
			err = decodeSections(resp,
				section{source.PathTopProducts, "products", &out.TopProducts},
				section{source.PathCategoryDistribution, "categories", &out.CategoryDistribution},
			)
			if err == nil {
				return out
			}
		}
		s.insightFailed(ctx, "products", err)
	}

	g := s.granularity(req.RangeKey)
	return &types.ProductInsight{
		TopProducts:          s.gen.TopProducts(g),
		CategoryDistribution: s.gen.CategoryDistribution(g),
		Source:               enums.BundleSourceMock,
	}
}

// Sales returns the sales overview, trends with their forecast and the
// category and region splits.
func (s *service) Sales(ctx context.Context, req types.DashboardRequest) *types.SalesInsight {
	periods := s.periods(req.ForecastPeriods)
	if s.api != nil {
		resp, err := s.api.FetchAll(ctx, source.Query(req.RangeKey, req.Custom),
			source.PathSalesOverview, source.PathSalesTrends, source.PathSalesCategories, source.PathSalesRegions)
		if err == nil {
			out := &types.SalesInsight{
				Trends:     []types.SalesPoint{},
				ByCategory: []types.CategoryShare{},
				ByRegion:   []types.RegionSales{},
				Source:     enums.BundleSourceAnalyticsAPI,
			}
			err = decodeSections(resp,
				section{source.PathSalesOverview, "totalSales", &out.Overview.TotalSales},
				section{source.PathSalesOverview, "totalOrders", &out.Overview.TotalOrders},
				section{source.PathSalesTrends, "trends", &out.Trends},
				section{source.PathSalesCategories, "categories", &out.ByCategory},
				section{source.PathSalesRegions, "regions", &out.ByRegion},
			)
			if err == nil {
				out.Forecast = s.forecaster.Generate(out.Trends, periods)
				out.CombinedTrends = combine(out.Trends, out.Forecast)
				return out
			}
		}
		s.insightFailed(ctx, "sales", err)
	}

	g := s.granularity(req.RangeKey)
	trends := s.gen.SalesSeries(g)
	var overview types.SalesOverview
	for _, p := range trends {
		overview.TotalSales += p.Revenue
		overview.TotalOrders += p.Orders
	}
	fc := s.forecaster.Generate(trends, periods)
	return &types.SalesInsight{
		Overview:       overview,
		Trends:         trends,
		Forecast:       fc,
		CombinedTrends: combine(trends, fc),
		ByCategory:     s.gen.CategoryDistribution(g),
		ByRegion:       s.gen.Regions(s.gen.Stats(g)),
		Source:         enums.BundleSourceMock,
	}
}

// Customers returns the user overview, segments and retention.
func (s *service) Customers(ctx context.Context, req types.DashboardRequest) *types.CustomerInsight {
	if s.api != nil {
		resp, err := s.api.FetchAll(ctx, source.Query(req.RangeKey, req.Custom),
			source.PathUsersOverview, source.PathCustomerSegments, source.PathCustomerRetention)
		if err == nil {
			out := &types.CustomerInsight{
				Segments:  []types.CustomerSegment{},
				Retention: types.Retention{History: []types.RetentionPoint{}},
				Source:    enums.BundleSourceAnalyticsAPI,
			}
			err = decodeSections(resp,
				section{source.PathUsersOverview, "totalUsers", &out.Overview.TotalUsers},
				section{source.PathUsersOverview, "activeUsers", &out.Overview.ActiveUsers},
				section{source.PathUsersOverview, "newUsers", &out.Overview.NewUsers},
				section{source.PathCustomerSegments, "segments", &out.Segments},
				section{source.PathCustomerRetention, "retention", &out.Retention},
			)
			if err == nil {
				return out
			}
		}
		s.insightFailed(ctx, "customers", err)
	}

	const users = source.PlaceholderUserCount
	stats := s.gen.Stats(s.granularity(req.RangeKey))
	return &types.CustomerInsight{
		Overview: types.CustomerOverview{
			TotalUsers:  users,
			ActiveUsers: int64(math.Round(users * 0.7)),
			NewUsers:    int64(math.Round(users * 0.2)),
		},
		Segments:  aggregate.CustomerSegments(stats.TotalUsers, stats.TotalRevenue),
		Retention: s.gen.Retention(),
		Source:    enums.BundleSourceMock,
	}
}
