package enums

// BundleSource names the tier that produced a dashboard bundle.
type BundleSource string

const (
	BundleSourceAnalyticsAPI     BundleSource = "analytics_api"
	BundleSourceLocalAggregation BundleSource = "local_aggregation"
	BundleSourceMock             BundleSource = "mock"
	BundleSourceFallback         BundleSource = "fallback"
)

// String implements fmt.Stringer.
func (s BundleSource) String() string {
	return string(s)
}
