package aggregate

import (
	"math"

	"github.com/angelmondragon/admin-analytics/internal/analytics/types"
	"github.com/angelmondragon/admin-analytics/pkg/enums"
	"github.com/angelmondragon/admin-analytics/pkg/storefront"
)

// OrderStatusDistribution counts orders per dashboard bucket. Percentages are
// taken over every order, so canceled and refunded ones lower all three shares.
func OrderStatusDistribution(orders []storefront.Order) []types.OrderStatusShare {
	counts := make(map[enums.StatusBucket]int64, len(enums.Buckets))
	for _, o := range orders {
		if b, ok := o.OrderStatus.Bucket(); ok {
			counts[b]++
		}
	}

	total := float64(len(orders))
	out := make([]types.OrderStatusShare, 0, len(enums.Buckets))
	for _, b := range enums.Buckets {
		share := types.OrderStatusShare{Status: b, Count: counts[b]}
		if total > 0 {
			share.Percentage = Round1(float64(counts[b]) / total * 100)
		}
		out = append(out, share)
	}
	return out
}

type segmentSplit struct {
	name         string
	userShare    float64
	revenueShare float64
}

var segmentSplits = []segmentSplit{
	{name: "Premium", userShare: 0.2, revenueShare: 0.6},
	{name: "Regular", userShare: 0.5, revenueShare: 0.3},
	{name: "New", userShare: 0.3, revenueShare: 0.1},
}

// CustomerSegments splits users and revenue across the fixed Premium/Regular/New tiers.
func CustomerSegments(userCount int64, totalRevenue float64) []types.CustomerSegment {
	out := make([]types.CustomerSegment, 0, len(segmentSplits))
	for _, s := range segmentSplits {
		out = append(out, types.CustomerSegment{
			Segment: s.name,
			Count:   int64(math.Round(float64(userCount) * s.userShare)),
			Revenue: math.Round(totalRevenue * s.revenueShare),
		})
	}
	return out
}

// AverageOrderValue is revenue per order rounded down, or 100 without orders.
func AverageOrderValue(stats types.StatsSummary) int64 {
	if stats.TotalOrders <= 0 {
		return 100
	}
	return int64(math.Floor(stats.TotalRevenue / float64(stats.TotalOrders)))
}
