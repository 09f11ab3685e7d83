package enums

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOrderStatus(t *testing.T) {
	s, err := ParseOrderStatus(" Delivered ")
	require.NoError(t, err)
	assert.Equal(t, OrderStatusDelivered, s)

	s, err = ParseOrderStatus("lost_in_mail")
	assert.Error(t, err)
	assert.Equal(t, OrderStatusUnknown, s)
}

func TestOrderStatusDecodesUnknownValues(t *testing.T) {
	var payload struct {
		Status OrderStatus `json:"orderStatus"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"orderStatus":"on_hold"}`), &payload))
	assert.Equal(t, OrderStatusUnknown, payload.Status)

	require.NoError(t, json.Unmarshal([]byte(`{"orderStatus":"SHIPPED"}`), &payload))
	assert.Equal(t, OrderStatusShipped, payload.Status)
}

func TestOrderStatusBucket(t *testing.T) {
	cases := map[OrderStatus]StatusBucket{
		OrderStatusDelivered:  StatusBucketCompleted,
		OrderStatusCompleted:  StatusBucketCompleted,
		OrderStatusProcessing: StatusBucketProcessing,
		OrderStatusShipped:    StatusBucketProcessing,
		OrderStatusPending:    StatusBucketPending,
		OrderStatusCreated:    StatusBucketPending,
		OrderStatusReady:      StatusBucketPending,
	}
	for status, want := range cases {
		got, ok := status.Bucket()
		assert.True(t, ok, status)
		assert.Equal(t, want, got, status)
	}

	for _, status := range []OrderStatus{OrderStatusCanceled, OrderStatusRefunded, OrderStatusUnknown} {
		_, ok := status.Bucket()
		assert.False(t, ok, status)
	}
}

func TestGranularityForRange(t *testing.T) {
	assert.Equal(t, GranularityDay, GranularityForRange("daily"))
	assert.Equal(t, GranularityWeek, GranularityForRange("Weekly"))
	assert.Equal(t, GranularityMonth, GranularityForRange("monthly"))
	assert.Equal(t, GranularityYear, GranularityForRange("yearly"))
	assert.Equal(t, GranularityDay, GranularityForRange("last30days"))

	assert.Equal(t, GranularityHour, MockGranularityForRange("daily"))
	assert.Equal(t, GranularityDay, MockGranularityForRange("weekly"))
	assert.Equal(t, GranularityMonth, MockGranularityForRange("monthly"))
	assert.Equal(t, GranularityYear, MockGranularityForRange("yearly"))
}

func TestParseExportFormat(t *testing.T) {
	f, err := ParseExportFormat("CSV")
	require.NoError(t, err)
	assert.Equal(t, ExportFormatCSV, f)
	assert.Contains(t, f.ContentType(), "text/csv")

	_, err = ParseExportFormat("xlsx")
	assert.Error(t, err)

	_, err = ParseGranularity("fortnight")
	assert.Error(t, err)
}
