// Package timerange turns dashboard range keys into concrete time windows.
package timerange

import (
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/admin-analytics/internal/analytics/types"
)

// Range is a resolved window. End is "now" for every key except yesterday.
type Range struct {
	Start time.Time
	End   time.Time
}

// Valid reports whether Start does not come after End.
func (r Range) Valid() bool {
	return !r.Start.After(r.End)
}

// Window converts the range into its metadata form.
func (r Range) Window() types.Window {
	return types.Window{Start: r.Start, End: r.End}
}

// Keys lists every range key Resolve understands, in display order.
var Keys = []string{
	"today", "yesterday",
	"daily", "last24hours",
	"weekly", "last7days", "last14days", "last30days",
	"monthly", "quarterly", "last3months", "last6months",
	"yearly", "last12months",
	"thismonth", "thisquarter", "thisyear",
	"custom",
}

// IsKnown reports whether key (case-insensitive) is one of Keys.
func IsKnown(key string) bool {
	key = normalize(key)
	for _, k := range Keys {
		if k == key {
			return true
		}
	}
	return false
}

// Resolve maps key to a window ending at now. Unknown keys resolve to the last
// seven days; custom without both bounds resolves to the last thirty.
func Resolve(key string, custom *types.CustomRange, now time.Time) Range {
	start := now
	end := now

	switch normalize(key) {
	case "today":
		start = startOfDay(now)
	case "yesterday":
		y := now.AddDate(0, 0, -1)
		start = startOfDay(y)
		end = startOfDay(now).Add(-time.Millisecond)
	case "daily", "last24hours":
		start = now.AddDate(0, 0, -1)
	case "weekly", "last7days":
		start = now.AddDate(0, 0, -7)
	case "last14days":
		start = now.AddDate(0, 0, -14)
	case "last30days":
		start = now.AddDate(0, 0, -30)
	case "monthly":
		start = now.AddDate(0, -1, 0)
	case "quarterly", "last3months":
		start = now.AddDate(0, -3, 0)
	case "last6months":
		start = now.AddDate(0, -6, 0)
	case "yearly", "last12months":
		start = now.AddDate(-1, 0, 0)
	case "thismonth":
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	case "thisquarter":
		firstMonth := time.Month((int(now.Month())-1)/3*3 + 1)
		start = time.Date(now.Year(), firstMonth, 1, 0, 0, 0, 0, now.Location())
	case "thisyear":
		start = time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
	case "custom":
		if custom != nil && !custom.Start.IsZero() && !custom.End.IsZero() {
			return Range{Start: custom.Start, End: custom.End}
		}
		start = now.AddDate(0, 0, -30)
	default:
		start = now.AddDate(0, 0, -7)
	}

	return Range{Start: start, End: end}
}

// ParseBound reads a custom range bound. It accepts RFC 3339 timestamps,
// plain dates (2006-01-02) and unix milliseconds.
func ParseBound(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), true
		}
	}
	if ms, err := strconv.ParseInt(value, 10, 64); err == nil && ms > 0 {
		return time.UnixMilli(ms).UTC(), true
	}
	return time.Time{}, false
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func normalize(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
