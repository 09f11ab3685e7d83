package enums

import (
	"fmt"
	"strings"
)

// Granularity is the bucket size of a sales series.
type Granularity string

const (
	GranularityHour  Granularity = "hour"
	GranularityDay   Granularity = "day"
	GranularityWeek  Granularity = "week"
	GranularityMonth Granularity = "month"
	GranularityYear  Granularity = "year"
)

var validGranularities = []Granularity{
	GranularityHour,
	GranularityDay,
	GranularityWeek,
	GranularityMonth,
	GranularityYear,
}

// String implements fmt.Stringer.
func (g Granularity) String() string {
	return string(g)
}

// IsValid reports whether the value is a known Granularity.
func (g Granularity) IsValid() bool {
	for _, candidate := range validGranularities {
		if candidate == g {
			return true
		}
	}
	return false
}

// ParseGranularity converts raw input into a Granularity.
func ParseGranularity(value string) (Granularity, error) {
	for _, candidate := range validGranularities {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid granularity %q", value)
}

// GranularityForRange picks the aggregation bucket for a range key.
// Anything other than the four period keys aggregates by day.
func GranularityForRange(rangeKey string) Granularity {
	switch strings.ToLower(strings.TrimSpace(rangeKey)) {
	case "weekly":
		return GranularityWeek
	case "monthly":
		return GranularityMonth
	case "yearly":
		return GranularityYear
	default:
		return GranularityDay
	}
}

// MockGranularityForRange picks the synthetic series shape for a range key.
// The daily view is rendered hour by hour.
func MockGranularityForRange(rangeKey string) Granularity {
	switch strings.ToLower(strings.TrimSpace(rangeKey)) {
	case "daily":
		return GranularityHour
	case "monthly":
		return GranularityMonth
	case "yearly":
		return GranularityYear
	default:
		return GranularityDay
	}
}
