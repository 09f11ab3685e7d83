// Package mock produces plausible synthetic analytics so the dashboard is never empty.
package mock

import (
	"fmt"
	"math"
	"math/rand"
	"slices"
	"time"

	"github.com/angelmondragon/admin-analytics/internal/analytics/aggregate"
	"github.com/angelmondragon/admin-analytics/internal/analytics/types"
	"github.com/angelmondragon/admin-analytics/pkg/enums"
	"github.com/angelmondragon/admin-analytics/pkg/storefront"
)

const (
	fixedUsers    = 8
	fixedProducts = 13
)

// seasonality by calendar month, Q4 high and Q1 low.
var seasonality = [12]float64{0.8, 0.85, 0.9, 0.95, 1.0, 1.05, 1.1, 1.15, 1.2, 1.3, 1.4, 1.25}

type catalogEntry struct {
	id       string
	name     string
	category string
	share    float64
}

var catalog = []catalogEntry{
	{id: "P001", name: "Premium Smartphone X", category: "Electronics", share: 0.25},
	{id: "P002", name: "Wireless Headphones Pro", category: "Electronics", share: 0.15},
	{id: "P003", name: "Designer Handbag", category: "Fashion", share: 0.12},
	{id: "P004", name: "Smart Watch Series 5", category: "Electronics", share: 0.10},
	{id: "P005", name: "Luxury Perfume Set", category: "Beauty", share: 0.07},
}

type shareEntry struct {
	name  string
	share float64
}

var extraCategories = []shareEntry{
	{name: "Home & Living", share: 0.07},
	{name: "Sports", share: 0.05},
	{name: "Books", share: 0.03},
	{name: "Toys", share: 0.02},
}

var regions = []shareEntry{
	{name: "North", share: 0.30},
	{name: "South", share: 0.25},
	{name: "East", share: 0.23},
	{name: "West", share: 0.22},
}

// Generator draws every value from rand, so a constant source yields a
// reproducible bundle.
type Generator struct {
	rand func() float64
	now  func() time.Time
}

type Option func(*Generator)

// WithRand replaces the [0,1) source.
func WithRand(r func() float64) Option {
	return func(g *Generator) {
		if r != nil {
			g.rand = r
		}
	}
}

// WithClock replaces the clock used for labels and seasonality.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		if now != nil {
			g.now = now
		}
	}
}

func New(opts ...Option) *Generator {
	g := &Generator{rand: rand.Float64, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Generator) between(lo, hi float64) float64 {
	return lo + g.rand()*(hi-lo)
}

func (g *Generator) seasonalFactor() float64 {
	return seasonality[g.now().Month()-1]
}

// SalesSeries returns a growing series shaped by g: 24 hourly points, 7 daily
// points ending today, 12 trailing months or 5 trailing years. Week
// granularity is rendered as days.
func (g *Generator) SalesSeries(gran enums.Granularity) []types.SalesPoint {
	now := g.now().UTC()
	points := 7
	switch gran {
	case enums.GranularityHour:
		points = 24
	case enums.GranularityMonth:
		points = 12
	case enums.GranularityYear:
		points = 5
	}

	baseRevenue := g.between(5000, 7000)
	baseOrders := g.between(80, 120)
	sf := g.seasonalFactor()

	series := make([]types.SalesPoint, 0, points)
	for i := 0; i < points; i++ {
		revenue := baseRevenue * sf * g.between(0.9, 1.1)
		orders := baseOrders * sf * g.between(0.9, 1.1)
		growth := 1 + float64(i)*0.02
		noise := g.between(0.85, 1.15)

		series = append(series, types.SalesPoint{
			Date:    seriesLabel(now, gran, i, points),
			Revenue: math.Round(revenue * growth * noise),
			Orders:  int64(math.Round(orders * growth * noise)),
		})
	}
	return series
}

func seriesLabel(now time.Time, gran enums.Granularity, i, points int) string {
	back := points - 1 - i
	switch gran {
	case enums.GranularityHour:
		return fmt.Sprintf("%02d:00", i)
	case enums.GranularityMonth:
		idx := (int(now.Month()) - 1 - back + 12) % 12
		return aggregate.MonthNames[idx]
	case enums.GranularityYear:
		return fmt.Sprintf("%d", now.Year()-back)
	default:
		return now.AddDate(0, 0, -back).Format(time.DateOnly)
	}
}

// Stats summarises a fresh series with the fixed user and product counts.
func (g *Generator) Stats(gran enums.Granularity) types.StatsSummary {
	return g.statsFor(g.SalesSeries(gran))
}

func (g *Generator) statsFor(sales []types.SalesPoint) types.StatsSummary {
	var revenue float64
	var orders int64
	for _, p := range sales {
		revenue += p.Revenue
		orders += p.Orders
	}
	revenueTrend, ordersTrend := aggregate.LastPeriodTrend(sales)
	return types.StatsSummary{
		TotalUsers:    fixedUsers,
		TotalOrders:   orders,
		TotalProducts: fixedProducts,
		TotalRevenue:  math.Round(revenue),
		UsersTrend:    aggregate.Round1(g.rand()*10 - 2),
		OrdersTrend:   ordersTrend,
		ProductsTrend: aggregate.Round1(g.rand()*8 - 2),
		RevenueTrend:  revenueTrend,
	}
}

// TopProducts spreads a fresh stats total over the five catalog products.
func (g *Generator) TopProducts(gran enums.Granularity) []types.TopProduct {
	return g.topProductsFor(g.Stats(gran))
}

func (g *Generator) topProductsFor(stats types.StatsSummary) []types.TopProduct {
	var aov float64
	if stats.TotalOrders > 0 {
		aov = stats.TotalRevenue / float64(stats.TotalOrders)
	}

	out := make([]types.TopProduct, 0, len(catalog))
	for _, p := range catalog {
		revenue := math.Round(stats.TotalRevenue * p.share * g.between(0.85, 1.15))
		jitter := g.between(0.8, 1.2)
		var sales int64
		if aov > 0 {
			sales = int64(math.Round(revenue / aov * jitter))
		}
		out = append(out, types.TopProduct{
			ID:       p.id,
			Name:     p.name,
			Category: p.category,
			Sales:    sales,
			Revenue:  revenue,
		})
	}
	slices.SortStableFunc(out, func(a, b types.TopProduct) int {
		switch {
		case a.Revenue > b.Revenue:
			return -1
		case a.Revenue < b.Revenue:
			return 1
		}
		return 0
	})
	return out
}

// CategoryDistribution groups fresh top products by category and pads the
// result with four smaller categories.
func (g *Generator) CategoryDistribution(gran enums.Granularity) []types.CategoryShare {
	return g.categoriesFor(g.TopProducts(gran))
}

func (g *Generator) categoriesFor(top []types.TopProduct) []types.CategoryShare {
	revenue := make(map[string]float64)
	var names []string
	var total float64
	for _, p := range top {
		if _, ok := revenue[p.Category]; !ok {
			names = append(names, p.Category)
		}
		revenue[p.Category] += p.Revenue
		total += p.Revenue
	}
	for _, c := range extraCategories {
		if _, ok := revenue[c.name]; ok {
			continue
		}
		r := math.Round(total * c.share * g.between(0.8, 1.2))
		names = append(names, c.name)
		revenue[c.name] = r
		total += r
	}

	out := make([]types.CategoryShare, 0, len(names))
	for _, name := range names {
		value := 0
		if total > 0 {
			value = int(math.Round(revenue[name] / total * 100))
		}
		out = append(out, types.CategoryShare{Name: name, Value: value, Revenue: revenue[name]})
	}
	slices.SortStableFunc(out, func(a, b types.CategoryShare) int {
		return b.Value - a.Value
	})
	return out
}

// Bundle builds every section of a dashboard bundle. Forecast and meta are
// left to the caller.
func (g *Generator) Bundle(gran enums.Granularity) *types.Bundle {
	sales := g.SalesSeries(gran)
	stats := g.statsFor(sales)
	top := g.topProductsFor(stats)
	categories := g.categoriesFor(top)

	return &types.Bundle{
		Stats:                   stats,
		SalesTrend:              sales,
		TopProducts:             top,
		CategoryDistribution:    categories,
		RevenueByCategory:       categories,
		CustomerSegments:        aggregate.CustomerSegments(stats.TotalUsers, stats.TotalRevenue),
		OrderStatusDistribution: g.OrderStatusDistribution(stats),
		CustomerRetention:       g.Retention(),
		ProductPerformance:      g.ProductPerformance(top),
		SalesByRegion:           g.Regions(stats),
		PaymentMethods:          g.PaymentMethods(),
		RealTimeMetrics:         g.RealTimeMetrics(aggregate.AverageOrderValue(stats)),
	}
}

// OrderStatusDistribution skews completed orders with the season.
func (g *Generator) OrderStatusDistribution(stats types.StatsSummary) []types.OrderStatusShare {
	sf := g.seasonalFactor()
	orders := float64(stats.TotalOrders)
	return []types.OrderStatusShare{
		{Status: enums.StatusBucketCompleted, Count: int64(math.Round(orders * 0.7 * sf)), Percentage: aggregate.Round1(70 * sf)},
		{Status: enums.StatusBucketProcessing, Count: int64(math.Round(orders * 0.2)), Percentage: aggregate.Round1(20 * (2 - sf))},
		{Status: enums.StatusBucketPending, Count: int64(math.Round(orders * 0.1)), Percentage: aggregate.Round1(10 * (2 - sf))},
	}
}

// Retention returns a rate in [75,85) and a six month history ending this month.
func (g *Generator) Retention() types.Retention {
	sf := g.seasonalFactor()
	rate := g.between(75, 85)
	trend := (g.rand()*10 - 3) * sf

	month := int(g.now().Month()) - 1
	base := rate - trend*5
	history := make([]types.RetentionPoint, 0, 6)
	for i := 0; i < 6; i++ {
		base += trend/5 + g.between(-1, 1)
		history = append(history, types.RetentionPoint{
			Month: aggregate.MonthNames[(month-5+i+12)%12],
			Rate:  aggregate.Round1(base),
		})
	}
	return types.Retention{Rate: aggregate.Round1(rate), Trend: aggregate.Round1(trend), History: history}
}

// Regions splits the order count across four regions with revenue in proportion.
func (g *Generator) Regions(stats types.StatsSummary) []types.RegionSales {
	total := float64(stats.TotalOrders)
	out := make([]types.RegionSales, 0, len(regions))
	for _, r := range regions {
		sales := math.Round(total * r.share * g.between(0.9, 1.1))
		var revenue float64
		if total > 0 {
			revenue = math.Round(sales / total * stats.TotalRevenue)
		}
		out = append(out, types.RegionSales{Region: r.name, Sales: int64(sales), Revenue: revenue})
	}
	return out
}

// PaymentMethods always sums to 100; Net Banking takes the remainder.
func (g *Generator) PaymentMethods() []types.PaymentMethodShare {
	methods := []types.PaymentMethodShare{
		{Method: "Credit Card", Percentage: int(math.Round(g.between(35, 50)))},
		{Method: "Debit Card", Percentage: int(math.Round(g.between(20, 35)))},
		{Method: "UPI", Percentage: int(math.Round(g.between(10, 20)))},
	}
	sum := 0
	for _, m := range methods {
		sum += m.Percentage
	}
	return append(methods, types.PaymentMethodShare{Method: "Net Banking", Percentage: 100 - sum})
}

// ProductPerformance attaches placeholder rating and return counts to top products.
func (g *Generator) ProductPerformance(top []types.TopProduct) []types.ProductPerformance {
	out := make([]types.ProductPerformance, 0, len(top))
	for _, p := range top {
		out = append(out, types.ProductPerformance{
			TopProduct: p,
			Metrics: types.ProductMetrics{
				Sales:   p.Sales,
				Revenue: p.Revenue,
				Rating:  fmt.Sprintf("%.1f", g.between(4, 5)),
				Returns: int64(math.Floor(float64(p.Sales) * g.between(0.02, 0.05))),
			},
		})
	}
	return out
}

// RealTimeMetrics fills the live strip around a known average order value.
func (g *Generator) RealTimeMetrics(averageOrderValue int64) types.RealTimeMetrics {
	return types.RealTimeMetrics{
		ActiveUsers:       int64(math.Floor(g.between(50, 150))),
		CartAbandonment:   fmt.Sprintf("%.1f%%", g.between(15, 25)),
		ConversionRate:    fmt.Sprintf("%.1f%%", g.between(3, 5)),
		AverageOrderValue: averageOrderValue,
	}
}

// PollerMetrics is the live strip used when the stats endpoint is unavailable.
func (g *Generator) PollerMetrics() types.RealTimeMetrics {
	aov := int64(math.Floor(g.between(100, 150)))
	return g.RealTimeMetrics(aov)
}

// Users returns n placeholder accounts; the first one is an admin.
func (g *Generator) Users(n int) []storefront.User {
	users := make([]storefront.User, 0, n)
	for i := 1; i <= n; i++ {
		role := enums.UserRoleUser
		if i == 1 {
			role = enums.UserRoleAdmin
		}
		users = append(users, storefront.User{
			ID:    fmt.Sprintf("mock-user-%d", i),
			Name:  fmt.Sprintf("User %d", i),
			Email: fmt.Sprintf("user%d@example.com", i),
			Role:  role.String(),
		})
	}
	return users
}
