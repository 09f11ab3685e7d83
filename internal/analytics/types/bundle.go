package types

import (
	"time"

	"github.com/angelmondragon/admin-analytics/pkg/enums"
)

// SalesPoint is one bucket of a sales series. Forecast points set IsForecast.
type SalesPoint struct {
	Date       string  `json:"date"`
	Revenue    float64 `json:"revenue"`
	Orders     int64   `json:"orders"`
	IsForecast bool    `json:"isForecast,omitempty"`
}

// StatsSummary holds the headline counters; trends are percentages with one decimal.
type StatsSummary struct {
	TotalUsers    int64   `json:"totalUsers"`
	TotalOrders   int64   `json:"totalOrders"`
	TotalProducts int64   `json:"totalProducts"`
	TotalRevenue  float64 `json:"totalRevenue"`
	UsersTrend    float64 `json:"usersTrend"`
	OrdersTrend   float64 `json:"ordersTrend"`
	ProductsTrend float64 `json:"productsTrend"`
	RevenueTrend  float64 `json:"revenueTrend"`
}

type TopProduct struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Sales    int64   `json:"sales"`
	Revenue  float64 `json:"revenue"`
}

// CategoryShare is a category's integer percentage of revenue.
type CategoryShare struct {
	Name    string  `json:"name"`
	Value   int     `json:"value"`
	Revenue float64 `json:"revenue"`
}

type CustomerSegment struct {
	Segment string  `json:"segment"`
	Count   int64   `json:"count"`
	Revenue float64 `json:"revenue"`
}

type OrderStatusShare struct {
	Status     enums.StatusBucket `json:"status"`
	Count      int64              `json:"count"`
	Percentage float64            `json:"percentage"`
}

type RetentionPoint struct {
	Month string  `json:"month"`
	Rate  float64 `json:"rate"`
}

type Retention struct {
	Rate    float64          `json:"rate"`
	Trend   float64          `json:"trend"`
	History []RetentionPoint `json:"history"`
}

type ProductMetrics struct {
	Sales   int64   `json:"sales"`
	Revenue float64 `json:"revenue"`
	Rating  string  `json:"rating"`
	Returns int64   `json:"returns"`
}

type ProductPerformance struct {
	TopProduct
	Metrics ProductMetrics `json:"metrics"`
}

type RegionSales struct {
	Region  string  `json:"region"`
	Sales   int64   `json:"sales"`
	Revenue float64 `json:"revenue"`
}

type PaymentMethodShare struct {
	Method     string `json:"method"`
	Percentage int    `json:"percentage"`
}

// RealTimeMetrics is the live strip at the top of the dashboard. The two rates
// are preformatted strings such as "18.5%".
type RealTimeMetrics struct {
	ActiveUsers       int64  `json:"activeUsers"`
	CartAbandonment   string `json:"cartAbandonment"`
	ConversionRate    string `json:"conversionRate"`
	AverageOrderValue int64  `json:"averageOrderValue"`
}

// Window is a resolved [start, end] pair as exposed in bundle metadata.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// BundleMeta describes how a bundle was produced.
type BundleMeta struct {
	Source      enums.BundleSource `json:"source"`
	RangeKey    string             `json:"range"`
	Window      Window             `json:"window"`
	GeneratedAt time.Time          `json:"generatedAt"`
	RequestID   string             `json:"requestId,omitempty"`
	Sequence    uint64             `json:"sequence,omitempty"`
	Superseded  bool               `json:"superseded,omitempty"`
}

// Bundle is the full payload rendered by the dashboard. It is rebuilt per request.
type Bundle struct {
	Stats                   StatsSummary         `json:"stats"`
	SalesTrend              []SalesPoint         `json:"salesTrend"`
	TopProducts             []TopProduct         `json:"topProducts"`
	CategoryDistribution    []CategoryShare      `json:"categoryDistribution"`
	RevenueByCategory       []CategoryShare      `json:"revenueByCategory"`
	CustomerSegments        []CustomerSegment    `json:"customerSegments"`
	OrderStatusDistribution []OrderStatusShare   `json:"orderStatusDistribution"`
	CustomerRetention       Retention            `json:"customerRetention"`
	ProductPerformance      []ProductPerformance `json:"productPerformance"`
	SalesByRegion           []RegionSales        `json:"salesByRegion"`
	PaymentMethods          []PaymentMethodShare `json:"paymentMethods"`
	RealTimeMetrics         RealTimeMetrics      `json:"realTimeMetrics"`
	SalesForecast           []SalesPoint         `json:"salesForecast"`
	CombinedSalesData       []SalesPoint         `json:"combinedSalesData"`
	Meta                    BundleMeta           `json:"meta"`
}
