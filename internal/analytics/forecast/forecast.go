// Package forecast extrapolates a sales series a few periods forward.
package forecast

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/admin-analytics/internal/analytics/aggregate"
	"github.com/angelmondragon/admin-analytics/internal/analytics/types"
)

const (
	DefaultPeriods    = 3
	defaultGrowthRate = 0.05
	weekPrefix        = "Week "

	// MaxValue bounds forecast revenue and order counts. It is the largest
	// float64 that still holds an exact integer, so the int64 cast is safe.
	MaxValue = 1 << 53
)

// Forecaster compounds the series' mean growth rate with jitter.
type Forecaster struct {
	rand func() float64
	now  func() time.Time
}

type Option func(*Forecaster)

func WithRand(r func() float64) Option {
	return func(f *Forecaster) {
		if r != nil {
			f.rand = r
		}
	}
}

// WithClock sets the clock that anchors ISO day labels.
func WithClock(now func() time.Time) Option {
	return func(f *Forecaster) {
		if now != nil {
			f.now = now
		}
	}
}

func New(opts ...Option) *Forecaster {
	f := &Forecaster{rand: rand.Float64, now: time.Now}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// AverageGrowthRate is the mean of the point-to-point revenue growth ratios over
// the whole series, skipping steps whose previous revenue is not positive. It
// returns 0.05 when no step qualifies.
func AverageGrowthRate(series []types.SalesPoint) float64 {
	var total float64
	var steps int
	for i := 1; i < len(series); i++ {
		prev := series[i-1].Revenue
		if prev <= 0 {
			continue
		}
		total += (series[i].Revenue - prev) / prev
		steps++
	}
	if steps == 0 {
		return defaultGrowthRate
	}
	return total / float64(steps)
}

// Generate returns periods forecast points after series. At least two
// historical points are needed; otherwise the result is empty.
func (f *Forecaster) Generate(series []types.SalesPoint, periods int) []types.SalesPoint {
	if len(series) < 2 {
		return []types.SalesPoint{}
	}
	if periods <= 0 {
		periods = DefaultPeriods
	}

	rate := AverageGrowthRate(series) * (0.8 + f.rand()*0.4)
	last := series[len(series)-1]
	next := f.labeler(series[len(series)-2].Date, last.Date)

	revenue := last.Revenue
	orders := float64(last.Orders)
	out := make([]types.SalesPoint, 0, periods)
	for i := 1; i <= periods; i++ {
		step := 1 + rate*(0.9+f.rand()*0.2)
		revenue = clamp(revenue * step)
		orders = clamp(math.Round(orders * step))

		out = append(out, types.SalesPoint{
			Date:       next(i),
			Revenue:    math.Round(revenue),
			Orders:     int64(orders),
			IsForecast: true,
		})
	}
	return out
}

func clamp(v float64) float64 {
	return math.Max(-MaxValue, math.Min(MaxValue, v))
}

// labeler picks the label family of the last two points and returns the label
// of the i-th period after last.
func (f *Forecaster) labeler(prev, last string) func(i int) string {
	if month, day, ok := parseWeekStart(last); ok {
		start := time.Date(f.now().Year(), month, day, 0, 0, 0, 0, time.UTC)
		return func(i int) string {
			d := start.AddDate(0, 0, 7*i)
			return fmt.Sprintf("%s%d-%d", weekPrefix, int(d.Month()), d.Day())
		}
	}

	if n, ok := parseWeekNumber(last); ok {
		delta := 1
		if p, ok := parseWeekNumber(prev); ok && n-p > 0 {
			delta = n - p
		}
		return func(i int) string {
			return weekPrefix + strconv.Itoa(n+i*delta)
		}
	}

	if idx := aggregate.MonthIndex(last); idx >= 0 {
		return func(i int) string {
			return aggregate.MonthNames[(idx+i)%12]
		}
	}

	if y, ok := parseYear(last); ok {
		delta := 1
		if p, ok := parseYear(prev); ok && y-p > 0 {
			delta = y - p
		}
		return func(i int) string {
			return strconv.Itoa(y + i*delta)
		}
	}

	today := f.now().UTC()
	return func(i int) string {
		return today.AddDate(0, 0, i).Format(time.DateOnly)
	}
}

// parseWeekStart reads the "Week {month}-{day}" labels produced by weekly bucketing.
func parseWeekStart(label string) (time.Month, int, bool) {
	rest, ok := strings.CutPrefix(label, weekPrefix)
	if !ok {
		return 0, 0, false
	}
	m, d, ok := strings.Cut(rest, "-")
	if !ok {
		return 0, 0, false
	}
	month, err := strconv.Atoi(m)
	if err != nil || month < 1 || month > 12 {
		return 0, 0, false
	}
	day, err := strconv.Atoi(d)
	if err != nil || day < 1 || day > 31 {
		return 0, 0, false
	}
	return time.Month(month), day, true
}

func parseWeekNumber(label string) (int, bool) {
	rest, ok := strings.CutPrefix(label, weekPrefix)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(rest))
	if err != nil {
		return 0, false
	}
	return n, true
}

func parseYear(label string) (int, bool) {
	if len(label) != 4 {
		return 0, false
	}
	y, err := strconv.Atoi(label)
	if err != nil || y < 0 {
		return 0, false
	}
	return y, true
}
