package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyticsMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewAnalyticsMetrics(reg)

	m.ObserveBuild("local_aggregation", 250*time.Millisecond)
	m.IncTierFailure("analytics_api")
	m.IncFetchFailure("orders")
	m.IncFetchFailure("orders")
	m.IncPoll("")
	m.IncSuperseded()

	mfs, err := reg.Gather()
	require.NoError(t, err)

	got, err := fetchCounterValue(mfs, "analytics_bundle_builds_total", "source", "local_aggregation")
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)

	got, err = fetchCounterValue(mfs, "analytics_tier_failures_total", "tier", "analytics_api")
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)

	got, err = fetchCounterValue(mfs, "upstream_fetch_failures_total", "resource", "orders")
	require.NoError(t, err)
	assert.Equal(t, 2.0, got)

	got, err = fetchCounterValue(mfs, "realtime_poll_ticks_total", "outcome", "unknown")
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)

	sum, err := fetchHistogramSum(mfs, "analytics_bundle_build_seconds", "source", "local_aggregation")
	require.NoError(t, err)
	assert.Greater(t, sum, 0.0)

	mf := findMetricFamily(mfs, "analytics_superseded_responses_total")
	require.NotNil(t, mf)
	assert.Equal(t, 1.0, mf.GetMetric()[0].GetCounter().GetValue())
}

func TestAnalyticsMetricsNilSafe(t *testing.T) {
	var m *AnalyticsMetrics
	m.ObserveBuild("mock", time.Second)
	m.IncTierFailure("mock")
	m.IncFetchFailure("users")
	m.IncPoll("ok")
	m.IncSuperseded()

	unregistered := NewAnalyticsMetrics(nil)
	unregistered.ObserveBuild("mock", time.Second)
	unregistered.IncSuperseded()
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
