package enums

import (
	"fmt"
	"strings"
)

// OrderStatus is the storefront's order lifecycle state as reported by the admin API.
type OrderStatus string

const (
	OrderStatusReady      OrderStatus = "ready"
	OrderStatusCreated    OrderStatus = "created"
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCanceled   OrderStatus = "canceled"
	OrderStatusRefunded   OrderStatus = "refunded"
	OrderStatusUnknown    OrderStatus = "unknown"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusReady,
	OrderStatusCreated,
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCompleted,
	OrderStatusCanceled,
	OrderStatusRefunded,
	OrderStatusUnknown,
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseOrderStatus converts raw input into an OrderStatus, case-insensitively.
func ParseOrderStatus(value string) (OrderStatus, error) {
	normalized := OrderStatus(strings.ToLower(strings.TrimSpace(value)))
	if normalized.IsValid() {
		return normalized, nil
	}
	return OrderStatusUnknown, fmt.Errorf("invalid order status %q", value)
}

// UnmarshalText lets upstream payloads carry statuses we do not model; they decode as unknown.
func (s *OrderStatus) UnmarshalText(text []byte) error {
	parsed, _ := ParseOrderStatus(string(text))
	*s = parsed
	return nil
}

// StatusBucket is the dashboard's coarse grouping of order statuses.
type StatusBucket string

const (
	StatusBucketCompleted  StatusBucket = "Completed"
	StatusBucketProcessing StatusBucket = "Processing"
	StatusBucketPending    StatusBucket = "Pending"
)

// Buckets lists the dashboard buckets in display order.
var Buckets = []StatusBucket{StatusBucketCompleted, StatusBucketProcessing, StatusBucketPending}

// Bucket maps a status onto its dashboard bucket. Canceled, refunded and unknown orders
// are not bucketed.
func (s OrderStatus) Bucket() (StatusBucket, bool) {
	switch s {
	case OrderStatusDelivered, OrderStatusCompleted:
		return StatusBucketCompleted, true
	case OrderStatusProcessing, OrderStatusShipped:
		return StatusBucketProcessing, true
	case OrderStatusPending, OrderStatusCreated, OrderStatusReady:
		return StatusBucketPending, true
	default:
		return "", false
	}
}
