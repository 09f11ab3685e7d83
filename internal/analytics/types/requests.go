package types

import (
	"time"

	"github.com/angelmondragon/admin-analytics/pkg/enums"
)

// CustomRange is a caller-supplied window, used with the "custom" range key.
type CustomRange struct {
	Start time.Time
	End   time.Time
}

// DashboardRequest drives one orchestrator run.
type DashboardRequest struct {
	RangeKey        string
	Custom          *CustomRange
	ForecastPeriods int
	// Session groups requests from one dashboard view for stale-response detection.
	Session   string
	RequestID string
}

// OverviewInsight is the dashboard overview section on its own.
type OverviewInsight struct {
	Stats           StatsSummary       `json:"stats"`
	Trends          []SalesPoint       `json:"trends"`
	RealTimeMetrics *RealTimeMetrics   `json:"realTimeMetrics,omitempty"`
	Source          enums.BundleSource `json:"source"`
}

type ProductInsight struct {
	TopProducts          []TopProduct       `json:"topProducts"`
	CategoryDistribution []CategoryShare    `json:"categoryDistribution"`
	Source               enums.BundleSource `json:"source"`
}

type SalesOverview struct {
	TotalSales  float64 `json:"totalSales"`
	TotalOrders int64   `json:"totalOrders"`
}

type SalesInsight struct {
	Overview       SalesOverview      `json:"overview"`
	Trends         []SalesPoint       `json:"trends"`
	Forecast       []SalesPoint       `json:"forecast"`
	CombinedTrends []SalesPoint       `json:"combinedTrends"`
	ByCategory     []CategoryShare    `json:"byCategory"`
	ByRegion       []RegionSales      `json:"byRegion"`
	Source         enums.BundleSource `json:"source"`
}

type CustomerOverview struct {
	TotalUsers  int64 `json:"totalUsers"`
	ActiveUsers int64 `json:"activeUsers"`
	NewUsers    int64 `json:"newUsers"`
}

type CustomerInsight struct {
	Overview  CustomerOverview   `json:"overview"`
	Segments  []CustomerSegment  `json:"segments"`
	Retention Retention          `json:"retention"`
	Source    enums.BundleSource `json:"source"`
}
