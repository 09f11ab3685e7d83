package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// AnalyticsMetrics records how dashboard bundles get built.
type AnalyticsMetrics struct {
	builds        *prometheus.CounterVec
	tierFailures  *prometheus.CounterVec
	buildDuration *prometheus.HistogramVec
	fetchFailures *prometheus.CounterVec
	pollTicks     *prometheus.CounterVec
	superseded    prometheus.Counter
}

// NewAnalyticsMetrics registers the analytics metrics on the provided registerer.
func NewAnalyticsMetrics(reg prometheus.Registerer) *AnalyticsMetrics {
	if reg == nil {
		return &AnalyticsMetrics{}
	}
	builds := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "analytics_bundle_builds_total",
		Help: "Dashboard bundles served, by the tier that produced them.",
	}, []string{"source"})
	tierFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "analytics_tier_failures_total",
		Help: "Strategy tiers that failed and fell through to the next one.",
	}, []string{"tier"})
	buildDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "analytics_bundle_build_seconds",
		Help:    "Time spent building a dashboard bundle.",
		Buckets: prometheus.DefBuckets,
	}, []string{"source"})
	fetchFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "upstream_fetch_failures_total",
		Help: "Storefront fetches that failed and degraded to an empty or placeholder result.",
	}, []string{"resource"})
	pollTicks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "realtime_poll_ticks_total",
		Help: "Realtime metric polls, by outcome.",
	}, []string{"outcome"})
	superseded := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "analytics_superseded_responses_total",
		Help: "Dashboard responses completed after a newer request for the same session.",
	})
	reg.MustRegister(builds, tierFailures, buildDuration, fetchFailures, pollTicks, superseded)
	return &AnalyticsMetrics{
		builds:        builds,
		tierFailures:  tierFailures,
		buildDuration: buildDuration,
		fetchFailures: fetchFailures,
		pollTicks:     pollTicks,
		superseded:    superseded,
	}
}

// ObserveBuild counts a served bundle and records how long it took.
func (m *AnalyticsMetrics) ObserveBuild(source string, duration time.Duration) {
	if m == nil || m.builds == nil {
		return
	}
	label := normalizeLabel(source)
	m.builds.WithLabelValues(label).Inc()
	m.buildDuration.WithLabelValues(label).Observe(duration.Seconds())
}

func (m *AnalyticsMetrics) IncTierFailure(tier string) {
	if m == nil || m.tierFailures == nil {
		return
	}
	m.tierFailures.WithLabelValues(normalizeLabel(tier)).Inc()
}

func (m *AnalyticsMetrics) IncFetchFailure(resource string) {
	if m == nil || m.fetchFailures == nil {
		return
	}
	m.fetchFailures.WithLabelValues(normalizeLabel(resource)).Inc()
}

// IncPoll records one realtime poll. outcome is "ok" or "fallback".
func (m *AnalyticsMetrics) IncPoll(outcome string) {
	if m == nil || m.pollTicks == nil {
		return
	}
	m.pollTicks.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *AnalyticsMetrics) IncSuperseded() {
	if m == nil || m.superseded == nil {
		return
	}
	m.superseded.Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
