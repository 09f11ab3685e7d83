package storefront

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/angelmondragon/admin-analytics/pkg/enums"
	"github.com/shopspring/decimal"
)

// Order is an admin order as returned by GET /admin/orders.
type Order struct {
	ID          string            `json:"_id"`
	CreatedAt   time.Time         `json:"createdAt"`
	Items       []LineItem        `json:"items"`
	TotalAmount decimal.Decimal   `json:"totalAmount"`
	OrderStatus enums.OrderStatus `json:"orderStatus"`
}

// LineItem references a product by id; the storefront does not populate it.
type LineItem struct {
	ProductID string          `json:"product"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

// Product is a catalog entry as returned by GET /products.
type Product struct {
	ID       string          `json:"_id"`
	Name     string          `json:"name"`
	Category Category        `json:"category"`
	Price    decimal.Decimal `json:"price"`
}

// Category is either populated ({"name": ...}) or left as a bare id string.
type Category struct {
	ID   string `json:"_id,omitempty"`
	Name string `json:"name,omitempty"`
}

func (c *Category) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*c = Category{}
		return nil
	}
	if data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*c = Category{ID: id}
		return nil
	}
	type plain Category
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*c = Category(decoded)
	return nil
}

// User is an account as returned by GET /admin/users.
type User struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Window bounds a range-scoped listing.
type Window struct {
	Start time.Time
	End   time.Time
}

// AnalyticsQuery carries the common parameters of the /analytics endpoints.
type AnalyticsQuery struct {
	Period string
	Start  *time.Time
	End    *time.Time
}

// Report is a file rendered by the storefront's report endpoint.
type Report struct {
	ContentType string
	Body        []byte
}

// AnalyticsResponse keeps the top-level fields of an analytics payload undecoded
// so callers can pick the sections they need.
type AnalyticsResponse map[string]json.RawMessage

// Decode unmarshals field into dst. A missing or null field reports false.
func (r AnalyticsResponse) Decode(field string, dst any) (bool, error) {
	raw, ok := r[field]
	if !ok || len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, err
	}
	return true, nil
}
