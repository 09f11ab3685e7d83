package storefront

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/admin-analytics/pkg/errors"
)

const (
	defaultTimeout              = 30 * time.Second
	defaultPageLimit            = 1000
	responseBodyReadLimit int64 = 1024
	reportBodyLimit       int64 = 32 << 20

	pathReportGenerate = "analytics/reports/generate"
)

// Client talks to the storefront REST API, read-only.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiToken   string
	pageLimit  int
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithAPIToken sends the token as a bearer credential on every call.
func WithAPIToken(token string) Option {
	return func(c *Client) {
		c.apiToken = strings.TrimSpace(token)
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithPageLimit caps how many records a listing call asks for.
func WithPageLimit(limit int) Option {
	return func(c *Client) {
		if limit > 0 {
			c.pageLimit = limit
		}
	}
}

// NewClient builds a storefront client rooted at baseURL, e.g. http://host/api.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "storefront base url is required")
	}
	if _, err := url.ParseRequestURI(trimmed); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid storefront base url")
	}

	client := &Client{
		baseURL:    trimmed,
		httpClient: &http.Client{Timeout: defaultTimeout},
		pageLimit:  defaultPageLimit,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// ListOrders returns the orders created inside w.
func (c *Client) ListOrders(ctx context.Context, w Window) ([]Order, error) {
	q := url.Values{}
	q.Set("startDate", formatTime(w.Start))
	q.Set("endDate", formatTime(w.End))
	q.Set("limit", strconv.Itoa(c.pageLimit))

	var body struct {
		Orders []Order `json:"orders"`
	}
	if err := c.getJSON(ctx, "admin/orders", q, &body); err != nil {
		return nil, err
	}
	return body.Orders, nil
}

// ListProducts returns the catalog. The listing is not range scoped.
func (c *Client) ListProducts(ctx context.Context) ([]Product, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(c.pageLimit))

	var body struct {
		Products []Product `json:"products"`
	}
	if err := c.getJSON(ctx, "products", q, &body); err != nil {
		return nil, err
	}
	return body.Products, nil
}

// ListUsers returns the accounts created inside w. The second result reports
// whether the response carried a users field at all.
func (c *Client) ListUsers(ctx context.Context, w Window) ([]User, bool, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(c.pageLimit))
	q.Set("createdAfter", formatTime(w.Start))
	q.Set("createdBefore", formatTime(w.End))

	var body struct {
		Users *[]User `json:"users"`
	}
	if err := c.getJSON(ctx, "admin/users", q, &body); err != nil {
		return nil, false, err
	}
	if body.Users == nil {
		return nil, false, nil
	}
	return *body.Users, true, nil
}

// Analytics calls one of the /analytics endpoints, e.g. "analytics/sales/trends".
func (c *Client) Analytics(ctx context.Context, path string, query AnalyticsQuery) (AnalyticsResponse, error) {
	body := AnalyticsResponse{}
	if err := c.getJSON(ctx, path, query.values(), &body); err != nil {
		return nil, err
	}
	return body, nil
}

// Report asks the storefront to render the dashboard report in format and
// returns the file as sent.
func (c *Client) Report(ctx context.Context, query AnalyticsQuery, format string) (*Report, error) {
	q := query.values()
	q.Set("format", format)

	resp, err := c.get(ctx, pathReportGenerate, q, "*/*")
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, reportBodyLimit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read report body")
	}
	if len(body) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "report endpoint returned an empty body")
	}
	return &Report{ContentType: resp.Header.Get("Content-Type"), Body: body}, nil
}

func (q AnalyticsQuery) values() url.Values {
	v := url.Values{}
	if q.Period != "" {
		v.Set("period", q.Period)
	}
	if q.Start != nil {
		v.Set("startDate", formatTime(*q.Start))
	}
	if q.End != nil {
		v.Set("endDate", formatTime(*q.End))
	}
	return v
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, dst any) error {
	resp, err := c.get(ctx, path, query, "application/json")
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode "+path+" response")
	}
	return nil
}

// get performs the request and turns transport failures and non-2xx answers
// into dependency errors. The caller closes the body of a returned response.
func (c *Client) get(ctx context.Context, path string, query url.Values, accept string) (*http.Response, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "storefront client not configured")
	}

	endpoint := c.buildURL(path)
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build "+path+" request")
	}
	req.Header.Set("Accept", accept)
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute "+path+" request")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer func() { _ = resp.Body.Close() }()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return nil, pkgerrors.Wrap(
			pkgerrors.CodeDependency,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))),
			path+" request failed",
		).WithDetails(map[string]any{"status": resp.StatusCode, "path": path})
	}
	return resp, nil
}

func (c *Client) buildURL(path string) string {
	return fmt.Sprintf("%s/%s", c.baseURL, strings.TrimLeft(path, "/"))
}

func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}
