package storefront

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/admin-analytics/pkg/enums"
	pkgerrors "github.com/angelmondragon/admin-analytics/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func newTestClient(t *testing.T, rt roundTripFunc) *Client {
	t.Helper()
	client, err := NewClient("http://store.test/api/",
		WithHTTPClient(&http.Client{Transport: rt}),
		WithAPIToken("tok"),
		WithPageLimit(250),
	)
	require.NoError(t, err)
	return client
}

func TestListOrdersRequestAndDecode(t *testing.T) {
	var captured *http.Request
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		captured = req
		return jsonResponse(http.StatusOK, `{"orders":[{"_id":"o1","createdAt":"2024-03-04T10:00:00Z","totalAmount":120.5,"orderStatus":"Delivered","items":[{"product":"p1","price":"60.25","quantity":2}]}]}`), nil
	})

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)
	orders, err := client.ListOrders(context.Background(), Window{Start: start, End: end})
	require.NoError(t, err)

	require.NotNil(t, captured)
	assert.Equal(t, "/api/admin/orders", captured.URL.Path)
	assert.Equal(t, "2024-03-01T00:00:00.000Z", captured.URL.Query().Get("startDate"))
	assert.Equal(t, "2024-03-08T00:00:00.000Z", captured.URL.Query().Get("endDate"))
	assert.Equal(t, "250", captured.URL.Query().Get("limit"))
	assert.Equal(t, "Bearer tok", captured.Header.Get("Authorization"))

	require.Len(t, orders, 1)
	assert.Equal(t, "o1", orders[0].ID)
	assert.Equal(t, enums.OrderStatusDelivered, orders[0].OrderStatus)
	assert.True(t, orders[0].TotalAmount.Equal(decimal.RequireFromString("120.5")))
	require.Len(t, orders[0].Items, 1)
	assert.Equal(t, "p1", orders[0].Items[0].ProductID)
	assert.Equal(t, 2, orders[0].Items[0].Quantity)
}

func TestListProductsAcceptsBothCategoryShapes(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "/api/products", req.URL.Path)
		return jsonResponse(http.StatusOK, `{"products":[
			{"_id":"p1","name":"Phone","category":{"_id":"c1","name":"Electronics"},"price":499},
			{"_id":"p2","name":"Mug","category":"c2","price":"9.99"},
			{"_id":"p3","name":"Loose","category":null}
		]}`), nil
	})

	products, err := client.ListProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 3)
	assert.Equal(t, "Electronics", products[0].Category.Name)
	assert.Equal(t, "c2", products[1].Category.ID)
	assert.Empty(t, products[1].Category.Name)
	assert.Equal(t, Category{}, products[2].Category)
}

func TestListUsersReportsMissingField(t *testing.T) {
	body := `{"total":0}`
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "/api/admin/users", req.URL.Path)
		assert.NotEmpty(t, req.URL.Query().Get("createdAfter"))
		assert.NotEmpty(t, req.URL.Query().Get("createdBefore"))
		return jsonResponse(http.StatusOK, body), nil
	})

	users, present, err := client.ListUsers(context.Background(), Window{Start: time.Now().Add(-time.Hour), End: time.Now()})
	require.NoError(t, err)
	assert.False(t, present)
	assert.Nil(t, users)

	body = `{"users":[{"_id":"u1","name":"Ana","email":"ana@example.com","role":"admin"}]}`
	users, present, err = client.ListUsers(context.Background(), Window{Start: time.Now().Add(-time.Hour), End: time.Now()})
	require.NoError(t, err)
	assert.True(t, present)
	require.Len(t, users, 1)
	assert.Equal(t, "admin", users[0].Role)
}

func TestAnalyticsPassesPeriodAndKeepsRawSections(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "/api/analytics/sales/trends", req.URL.Path)
		assert.Equal(t, "monthly", req.URL.Query().Get("period"))
		assert.Empty(t, req.URL.Query().Get("startDate"))
		return jsonResponse(http.StatusOK, `{"trends":[{"date":"Jan","revenue":10,"orders":1}],"extra":null}`), nil
	})

	resp, err := client.Analytics(context.Background(), "analytics/sales/trends", AnalyticsQuery{Period: "monthly"})
	require.NoError(t, err)

	var trends []map[string]any
	found, err := resp.Decode("trends", &trends)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Len(t, trends, 1)

	found, err = resp.Decode("extra", &trends)
	require.NoError(t, err)
	assert.False(t, found)

	found, err = resp.Decode("missing", &trends)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestNon2xxIsDependencyError(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusBadGateway, `upstream down`), nil
	})

	_, err := client.ListProducts(context.Background())
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeDependency, typed.Code())
	assert.Contains(t, err.Error(), "upstream down")
}

func TestTransportAndDecodeErrors(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		return nil, errors.New("dial tcp: refused")
	})
	_, err := client.ListOrders(context.Background(), Window{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))

	client = newTestClient(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"orders":`), nil
	})
	_, err = client.ListOrders(context.Background(), Window{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestNewClientValidatesBaseURL(t *testing.T) {
	_, err := NewClient("  ")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	client, err := NewClient("http://store.test/api", WithTimeout(5*time.Second))
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, client.httpClient.Timeout)
	assert.Equal(t, defaultPageLimit, client.pageLimit)
}

func TestReportReturnsRenderedFile(t *testing.T) {
	var captured *http.Request
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		captured = req
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader("%PDF-1.7 report")),
			Header:     http.Header{"Content-Type": []string{"application/pdf"}},
		}, nil
	})

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)
	report, err := client.Report(context.Background(), AnalyticsQuery{Period: "custom", Start: &start, End: &end}, "pdf")
	require.NoError(t, err)

	assert.Equal(t, "/api/analytics/reports/generate", captured.URL.Path)
	assert.Equal(t, "pdf", captured.URL.Query().Get("format"))
	assert.Equal(t, "custom", captured.URL.Query().Get("period"))
	assert.Equal(t, "2024-03-01T00:00:00.000Z", captured.URL.Query().Get("startDate"))
	assert.Equal(t, "Bearer tok", captured.Header.Get("Authorization"))
	assert.Equal(t, "application/pdf", report.ContentType)
	assert.Equal(t, "%PDF-1.7 report", string(report.Body))
}

func TestReportFailures(t *testing.T) {
	tests := []struct {
		name string
		resp *http.Response
	}{
		{name: "server error", resp: jsonResponse(http.StatusInternalServerError, `{"message":"renderer down"}`)},
		{name: "empty body", resp: jsonResponse(http.StatusOK, "")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(*http.Request) (*http.Response, error) { return tt.resp, nil })
			_, err := client.Report(context.Background(), AnalyticsQuery{Period: "weekly"}, "csv")
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
		})
	}
}
