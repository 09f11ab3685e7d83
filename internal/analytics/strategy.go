package analytics

import (
	"context"

	"github.com/angelmondragon/admin-analytics/internal/analytics/aggregate"
	"github.com/angelmondragon/admin-analytics/internal/analytics/mock"
	"github.com/angelmondragon/admin-analytics/internal/analytics/source"
	"github.com/angelmondragon/admin-analytics/internal/analytics/timerange"
	"github.com/angelmondragon/admin-analytics/internal/analytics/types"
	"github.com/angelmondragon/admin-analytics/pkg/enums"
	"github.com/angelmondragon/admin-analytics/pkg/storefront"
	"golang.org/x/sync/errgroup"
)

// BuildInput is what every strategy sees for one dashboard request.
type BuildInput struct {
	RangeKey string
	Custom   *types.CustomRange
	Window   timerange.Range
}

// Strategy produces a bundle without forecast or metadata, or fails so the
// next strategy can try.
type Strategy interface {
	Source() enums.BundleSource
	Build(ctx context.Context, in BuildInput) (*types.Bundle, error)
}

// AnalyticsFetcher is the storefront analytics surface used by the API strategy
// and the insight helpers.
type AnalyticsFetcher interface {
	FetchAll(ctx context.Context, query storefront.AnalyticsQuery, paths ...string) (source.Responses, error)
	Fetch(ctx context.Context, path string, query storefront.AnalyticsQuery) (storefront.AnalyticsResponse, error)
}

// RawFetcher loads the collections behind local aggregation. Its methods never fail.
type RawFetcher interface {
	Orders(ctx context.Context, r timerange.Range) []storefront.Order
	Products(ctx context.Context) []storefront.Product
	Users(ctx context.Context, r timerange.Range) []storefront.User
}

type section struct {
	path  string
	field string
	dst   any
}

func decodeSections(resp source.Responses, sections ...section) error {
	for _, s := range sections {
		if _, err := resp.Decode(s.path, s.field, s.dst); err != nil {
			return err
		}
	}
	return nil
}

// placeholderStats is what the analytics API strategy reports when the
// overview carries no stats.
func placeholderStats() types.StatsSummary {
	return types.StatsSummary{TotalUsers: 8, TotalProducts: 13}
}

type apiStrategy struct {
	api AnalyticsFetcher
	gen *mock.Generator
}

func (s *apiStrategy) Source() enums.BundleSource {
	return enums.BundleSourceAnalyticsAPI
}

// Build assembles the bundle from the nine dashboard endpoints. Any failed
// call or malformed section fails the strategy.
func (s *apiStrategy) Build(ctx context.Context, in BuildInput) (*types.Bundle, error) {
	resp, err := s.api.FetchAll(ctx, source.Query(in.RangeKey, in.Custom), source.DashboardPaths...)
	if err != nil {
		return nil, err
	}

	b := &types.Bundle{
		Stats:                   placeholderStats(),
		SalesTrend:              []types.SalesPoint{},
		CategoryDistribution:    []types.CategoryShare{},
		CustomerSegments:        []types.CustomerSegment{},
		OrderStatusDistribution: []types.OrderStatusShare{},
		CustomerRetention:       types.Retention{History: []types.RetentionPoint{}},
		PaymentMethods:          []types.PaymentMethodShare{},
		SalesByRegion:           []types.RegionSales{},
	}
	performance := []types.ProductPerformance{}
	var realtime *types.RealTimeMetrics

	err = decodeSections(resp,
		section{source.PathDashboardOverview, "stats", &b.Stats},
		section{source.PathDashboardOverview, "realTimeMetrics", &realtime},
		section{source.PathSalesTrends, "trends", &b.SalesTrend},
		section{source.PathTopProducts, "products", &performance},
		section{source.PathCategoryDistribution, "categories", &b.CategoryDistribution},
		section{source.PathCustomerSegments, "segments", &b.CustomerSegments},
		section{source.PathOrderStatus, "statuses", &b.OrderStatusDistribution},
		section{source.PathCustomerRetention, "retention", &b.CustomerRetention},
		section{source.PathPaymentMethods, "methods", &b.PaymentMethods},
		section{source.PathSalesRegions, "regions", &b.SalesByRegion},
	)
	if err != nil {
		return nil, err
	}

	b.TopProducts = make([]types.TopProduct, 0, len(performance))
	for i, p := range performance {
		b.TopProducts = append(b.TopProducts, p.TopProduct)
		if p.Metrics == (types.ProductMetrics{}) {
			performance[i].Metrics = s.gen.ProductPerformance([]types.TopProduct{p.TopProduct})[0].Metrics
		}
	}
	b.ProductPerformance = performance
	b.RevenueByCategory = b.CategoryDistribution

	if realtime != nil {
		b.RealTimeMetrics = *realtime
	} else {
		b.RealTimeMetrics = s.gen.RealTimeMetrics(aggregate.AverageOrderValue(b.Stats))
	}
	return b, nil
}

type localStrategy struct {
	raw RawFetcher
	agg *aggregate.Aggregator
	gen *mock.Generator
}

func (s *localStrategy) Source() enums.BundleSource {
	return enums.BundleSourceLocalAggregation
}

// Build fetches orders, products and users concurrently and aggregates them.
// Retention, regions and payment methods have no raw source and come from the
// generator.
func (s *localStrategy) Build(ctx context.Context, in BuildInput) (*types.Bundle, error) {
	var (
		orders   []storefront.Order
		products []storefront.Product
		users    []storefront.User
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		orders = s.raw.Orders(gctx, in.Window)
		return gctx.Err()
	})
	g.Go(func() error {
		products = s.raw.Products(gctx)
		return gctx.Err()
	})
	g.Go(func() error {
		users = s.raw.Users(gctx, in.Window)
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sales := s.agg.SalesData(orders, in.RangeKey)
	top := s.agg.TopProducts(orders, products)
	categories := s.agg.CategoryDistribution(orders, products)
	stats := s.agg.StatsWithPlaceholders(sales, len(users), len(products))

	return &types.Bundle{
		Stats:                   stats,
		SalesTrend:              sales,
		TopProducts:             top,
		CategoryDistribution:    categories,
		RevenueByCategory:       categories,
		CustomerSegments:        aggregate.CustomerSegments(int64(len(users)), stats.TotalRevenue),
		OrderStatusDistribution: aggregate.OrderStatusDistribution(orders),
		CustomerRetention:       s.gen.Retention(),
		ProductPerformance:      s.gen.ProductPerformance(top),
		SalesByRegion:           s.gen.Regions(stats),
		PaymentMethods:          s.gen.PaymentMethods(),
		RealTimeMetrics:         s.gen.RealTimeMetrics(aggregate.AverageOrderValue(stats)),
	}, nil
}

type mockStrategy struct {
	gen *mock.Generator
}

func (s *mockStrategy) Source() enums.BundleSource {
	return enums.BundleSourceMock
}

func (s *mockStrategy) Build(_ context.Context, in BuildInput) (*types.Bundle, error) {
	return s.gen.Bundle(enums.MockGranularityForRange(in.RangeKey)), nil
}

// FallbackBundle is the fixed bundle served when every strategy failed.
func FallbackBundle(sales []types.SalesPoint) *types.Bundle {
	if sales == nil {
		sales = []types.SalesPoint{}
	}
	return &types.Bundle{
		Stats: types.StatsSummary{
			TotalUsers:    8,
			TotalOrders:   50,
			TotalProducts: 13,
			TotalRevenue:  25000,
			UsersTrend:    5.2,
			OrdersTrend:   8.7,
			ProductsTrend: 3.1,
			RevenueTrend:  12.4,
		},
		SalesTrend:              sales,
		TopProducts:             []types.TopProduct{},
		CategoryDistribution:    []types.CategoryShare{},
		RevenueByCategory:       []types.CategoryShare{},
		CustomerSegments:        []types.CustomerSegment{},
		OrderStatusDistribution: []types.OrderStatusShare{},
		CustomerRetention:       types.Retention{History: []types.RetentionPoint{}},
		ProductPerformance:      []types.ProductPerformance{},
		SalesByRegion:           []types.RegionSales{},
		PaymentMethods:          []types.PaymentMethodShare{},
		RealTimeMetrics: types.RealTimeMetrics{
			ActiveUsers:       12,
			CartAbandonment:   "18.5%",
			ConversionRate:    "4.2%",
			AverageOrderValue: 500,
		},
	}
}
