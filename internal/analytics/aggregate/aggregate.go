// Package aggregate reduces raw storefront orders and products into dashboard series.
package aggregate

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/angelmondragon/admin-analytics/internal/analytics/types"
	"github.com/angelmondragon/admin-analytics/pkg/enums"
	"github.com/angelmondragon/admin-analytics/pkg/storefront"
	"github.com/shopspring/decimal"
)

const (
	topProductLimit     = 5
	unknownProductName  = "Unknown Product"
	uncategorizedName   = "Uncategorized"
	placeholderUsers    = 8
	placeholderProducts = 13
)

// MonthNames are the three-letter labels used by monthly series.
var MonthNames = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// MonthIndex returns the position of label in MonthNames, or -1.
func MonthIndex(label string) int {
	for i, name := range MonthNames {
		if name == label {
			return i
		}
	}
	return -1
}

// Fallback supplies synthetic sections when the inputs are empty.
type Fallback interface {
	SalesSeries(g enums.Granularity) []types.SalesPoint
	Stats(g enums.Granularity) types.StatsSummary
	TopProducts(g enums.Granularity) []types.TopProduct
	CategoryDistribution(g enums.Granularity) []types.CategoryShare
}

// Aggregator holds the reducers. They are pure apart from the placeholder
// user/product trends and the fallback substitution.
type Aggregator struct {
	fallback Fallback
	rand     func() float64
}

func New(fallback Fallback, rand func() float64) *Aggregator {
	return &Aggregator{fallback: fallback, rand: rand}
}

type bucket struct {
	revenue decimal.Decimal
	orders  int64
}

// SalesData buckets orders by the granularity implied by rangeKey. Buckets are
// sparse. An empty input yields the synthetic series for the range.
func (a *Aggregator) SalesData(orders []storefront.Order, rangeKey string) []types.SalesPoint {
	if len(orders) == 0 {
		return a.fallback.SalesSeries(enums.MockGranularityForRange(rangeKey))
	}
	return Bucket(orders, enums.GranularityForRange(rangeKey))
}

// Bucket is SalesData without the fallback.
func Bucket(orders []storefront.Order, g enums.Granularity) []types.SalesPoint {
	grouped := make(map[string]*bucket)
	for _, order := range orders {
		key := BucketKey(order.CreatedAt, g)
		b, ok := grouped[key]
		if !ok {
			b = &bucket{}
			grouped[key] = b
		}
		b.revenue = b.revenue.Add(order.TotalAmount)
		b.orders++
	}

	points := make([]types.SalesPoint, 0, len(grouped))
	for key, b := range grouped {
		points = append(points, types.SalesPoint{
			Date:    key,
			Revenue: b.revenue.Round(0).InexactFloat64(),
			Orders:  b.orders,
		})
	}

	if g == enums.GranularityMonth {
		slices.SortFunc(points, func(x, y types.SalesPoint) int {
			return cmp.Compare(MonthIndex(x.Date), MonthIndex(y.Date))
		})
	} else {
		slices.SortFunc(points, func(x, y types.SalesPoint) int {
			return strings.Compare(x.Date, y.Date)
		})
	}
	return points
}

// BucketKey labels t for granularity g. Weeks start on Sunday and are labelled
// "Week {month}-{day}" of that Sunday. Hour and unknown granularities use the day key.
func BucketKey(t time.Time, g enums.Granularity) string {
	t = t.UTC()
	switch g {
	case enums.GranularityWeek:
		start := t.AddDate(0, 0, -int(t.Weekday()))
		return fmt.Sprintf("Week %d-%d", int(start.Month()), start.Day())
	case enums.GranularityMonth:
		return MonthNames[t.Month()-1]
	case enums.GranularityYear:
		return fmt.Sprintf("%d", t.Year())
	default:
		return t.Format(time.DateOnly)
	}
}

type productTotals struct {
	id       string
	name     string
	category string
	sales    int64
	revenue  decimal.Decimal
}

// TopProducts joins line items to the catalog and returns the five best sellers
// by revenue. Missing catalog entries are reported as "Unknown Product".
func (a *Aggregator) TopProducts(orders []storefront.Order, products []storefront.Product) []types.TopProduct {
	if len(orders) == 0 || len(products) == 0 {
		return a.fallback.TopProducts(enums.GranularityDay)
	}

	catalog := indexProducts(products)
	totals := make(map[string]*productTotals)
	for _, order := range orders {
		for _, item := range order.Items {
			t, ok := totals[item.ProductID]
			if !ok {
				t = &productTotals{id: item.ProductID, name: unknownProductName, category: uncategorizedName}
				if p, found := catalog[item.ProductID]; found {
					if p.Name != "" {
						t.name = p.Name
					}
					t.category = categoryName(p)
				}
				totals[item.ProductID] = t
			}
			t.sales += soldUnits(item)
			t.revenue = t.revenue.Add(lineRevenue(item))
		}
	}

	ranked := make([]*productTotals, 0, len(totals))
	for _, t := range totals {
		ranked = append(ranked, t)
	}
	slices.SortFunc(ranked, func(x, y *productTotals) int {
		if c := y.revenue.Cmp(x.revenue); c != 0 {
			return c
		}
		return strings.Compare(x.id, y.id)
	})
	if len(ranked) > topProductLimit {
		ranked = ranked[:topProductLimit]
	}

	out := make([]types.TopProduct, 0, len(ranked))
	for _, t := range ranked {
		out = append(out, types.TopProduct{
			ID:       t.id,
			Name:     t.name,
			Category: t.category,
			Sales:    t.sales,
			Revenue:  t.revenue.InexactFloat64(),
		})
	}
	return out
}

// CategoryDistribution splits line item revenue by category as integer percentages.
func (a *Aggregator) CategoryDistribution(orders []storefront.Order, products []storefront.Product) []types.CategoryShare {
	if len(orders) == 0 || len(products) == 0 {
		return a.fallback.CategoryDistribution(enums.GranularityDay)
	}

	catalog := indexProducts(products)
	revenueByCategory := make(map[string]decimal.Decimal)
	var order []string
	total := decimal.Zero
	for _, o := range orders {
		for _, item := range o.Items {
			name := uncategorizedName
			if p, ok := catalog[item.ProductID]; ok {
				name = categoryName(p)
			}
			if _, seen := revenueByCategory[name]; !seen {
				order = append(order, name)
			}
			rev := lineRevenue(item)
			revenueByCategory[name] = revenueByCategory[name].Add(rev)
			total = total.Add(rev)
		}
	}

	out := make([]types.CategoryShare, 0, len(order))
	for _, name := range order {
		rev := revenueByCategory[name]
		value := 0
		if total.IsPositive() {
			value = int(rev.Div(total).Mul(decimal.NewFromInt(100)).Round(0).IntPart())
		}
		out = append(out, types.CategoryShare{
			Name:    name,
			Value:   value,
			Revenue: rev.Round(0).InexactFloat64(),
		})
	}
	slices.SortStableFunc(out, func(x, y types.CategoryShare) int {
		return cmp.Compare(y.Value, x.Value)
	})
	return out
}

// Stats totals the sales series and derives revenue/order trends from its last
// two points. User and product trends have no history behind them and are
// random placeholders in [-3, 7) and [-2, 6).
func (a *Aggregator) Stats(sales []types.SalesPoint, userCount, productCount int) types.StatsSummary {
	if len(sales) == 0 {
		return a.fallback.Stats(enums.GranularityDay)
	}

	var revenue float64
	var orders int64
	for _, p := range sales {
		revenue += p.Revenue
		orders += p.Orders
	}

	revenueTrend, ordersTrend := LastPeriodTrend(sales)
	return types.StatsSummary{
		TotalUsers:    int64(userCount),
		TotalOrders:   orders,
		TotalProducts: int64(productCount),
		TotalRevenue:  math.Round(revenue),
		UsersTrend:    Round1(a.rand()*10 - 3),
		OrdersTrend:   ordersTrend,
		ProductsTrend: Round1(a.rand()*8 - 2),
		RevenueTrend:  revenueTrend,
	}
}

// StatsWithPlaceholders is Stats with the local tier's substitution of 8 users
// and 13 products when either collection came back empty.
func (a *Aggregator) StatsWithPlaceholders(sales []types.SalesPoint, userCount, productCount int) types.StatsSummary {
	if userCount == 0 {
		userCount = placeholderUsers
	}
	if productCount == 0 {
		productCount = placeholderProducts
	}
	return a.Stats(sales, userCount, productCount)
}

// LastPeriodTrend compares the final two points of a series and returns the
// revenue and order changes as percentages rounded to one decimal. A
// non-positive previous value yields 0.
func LastPeriodTrend(sales []types.SalesPoint) (revenueTrend, ordersTrend float64) {
	if len(sales) < 2 {
		return 0, 0
	}
	cur, prev := sales[len(sales)-1], sales[len(sales)-2]
	return percentChange(cur.Revenue, prev.Revenue), percentChange(float64(cur.Orders), float64(prev.Orders))
}

func percentChange(cur, prev float64) float64 {
	if prev <= 0 {
		return 0
	}
	return Round1((cur - prev) / prev * 100)
}

// Round1 rounds to one decimal place. Values that round to zero come back as
// +0 so exports never print "-0".
func Round1(v float64) float64 {
	r := math.Round(v*10) / 10
	if r == 0 {
		return 0
	}
	return r
}

func indexProducts(products []storefront.Product) map[string]storefront.Product {
	catalog := make(map[string]storefront.Product, len(products))
	for _, p := range products {
		catalog[p.ID] = p
	}
	return catalog
}

func categoryName(p storefront.Product) string {
	if p.Category.Name == "" {
		return uncategorizedName
	}
	return p.Category.Name
}

// soldUnits counts a line with no usable quantity as one unit.
func soldUnits(item storefront.LineItem) int64 {
	if item.Quantity <= 0 {
		return 1
	}
	return int64(item.Quantity)
}

func lineRevenue(item storefront.LineItem) decimal.Decimal {
	if item.Quantity <= 0 {
		return decimal.Zero
	}
	return item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
}
