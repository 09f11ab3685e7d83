// Package source loads raw storefront data for local aggregation and calls the
// storefront's own analytics endpoints.
package source

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/admin-analytics/internal/analytics/timerange"
	pkgerrors "github.com/angelmondragon/admin-analytics/pkg/errors"
	"github.com/angelmondragon/admin-analytics/pkg/logger"
	"github.com/angelmondragon/admin-analytics/pkg/metrics"
	"github.com/angelmondragon/admin-analytics/pkg/redis"
	"github.com/angelmondragon/admin-analytics/pkg/storefront"
)

const (
	PlaceholderUserCount = 8

	resourceOrders   = "orders"
	resourceProducts = "products"
	resourceUsers    = "users"
)

// Storefront is the listing surface of the storefront client.
type Storefront interface {
	ListOrders(ctx context.Context, w storefront.Window) ([]storefront.Order, error)
	ListProducts(ctx context.Context) ([]storefront.Product, error)
	ListUsers(ctx context.Context, w storefront.Window) ([]storefront.User, bool, error)
}

// UserPlaceholders supplies stand-in accounts when the user listing is unusable.
type UserPlaceholders interface {
	Users(n int) []storefront.User
}

// FetcherParams configure a Fetcher. Cache is optional.
type FetcherParams struct {
	Client       Storefront
	Placeholders UserPlaceholders
	Cache        redis.JSONStore
	CatalogKey   string
	CatalogTTL   time.Duration
	Logger       *logger.Logger
	Metrics      *metrics.AnalyticsMetrics
}

// Fetcher loads orders, products and users. Its methods never fail: upstream
// errors are logged, counted and replaced by empty or placeholder results.
type Fetcher struct {
	client       Storefront
	placeholders UserPlaceholders
	cache        redis.JSONStore
	catalogKey   string
	catalogTTL   time.Duration
	logg         *logger.Logger
	metrics      *metrics.AnalyticsMetrics
}

func NewFetcher(params FetcherParams) (*Fetcher, error) {
	if params.Client == nil {
		return nil, fmt.Errorf("storefront client required")
	}
	if params.Placeholders == nil {
		return nil, fmt.Errorf("user placeholders required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Cache != nil && params.CatalogKey == "" {
		return nil, fmt.Errorf("catalog cache key required")
	}
	return &Fetcher{
		client:       params.Client,
		placeholders: params.Placeholders,
		cache:        params.Cache,
		catalogKey:   params.CatalogKey,
		catalogTTL:   params.CatalogTTL,
		logg:         params.Logger,
		metrics:      params.Metrics,
	}, nil
}

// Orders returns the orders created in r, or none when the call fails.
func (f *Fetcher) Orders(ctx context.Context, r timerange.Range) []storefront.Order {
	orders, err := f.client.ListOrders(ctx, window(r))
	if err != nil {
		f.degrade(ctx, resourceOrders, err)
		return []storefront.Order{}
	}
	return orders
}

// Products returns the catalog, served from the cache while it is fresh.
func (f *Fetcher) Products(ctx context.Context) []storefront.Product {
	if cached, ok := f.cachedProducts(ctx); ok {
		return cached
	}

	products, err := f.client.ListProducts(ctx)
	if err != nil {
		f.degrade(ctx, resourceProducts, err)
		return []storefront.Product{}
	}

	if f.cache != nil && len(products) > 0 {
		if err := f.cache.SetJSON(ctx, f.catalogKey, products, f.catalogTTL); err != nil {
			f.logg.Warn(f.logg.WithFields(ctx, cacheFields(f.catalogKey, err)), "catalog cache write failed")
		}
	}
	return products
}

func (f *Fetcher) cachedProducts(ctx context.Context) ([]storefront.Product, bool) {
	if f.cache == nil {
		return nil, false
	}
	var products []storefront.Product
	found, err := f.cache.GetJSON(ctx, f.catalogKey, &products)
	if err != nil {
		f.logg.Warn(f.logg.WithFields(ctx, cacheFields(f.catalogKey, err)), "catalog cache read failed")
		return nil, false
	}
	if !found || len(products) == 0 {
		return nil, false
	}
	return products, true
}

// Users returns the accounts created in r. A failed call, or a response
// without a users field, yields eight placeholder accounts.
func (f *Fetcher) Users(ctx context.Context, r timerange.Range) []storefront.User {
	users, present, err := f.client.ListUsers(ctx, window(r))
	if err != nil {
		f.degrade(ctx, resourceUsers, err)
		return f.placeholders.Users(PlaceholderUserCount)
	}
	if !present {
		f.logg.Warn(f.logg.WithField(ctx, "resource", resourceUsers), "users response had no users field; using placeholders")
		return f.placeholders.Users(PlaceholderUserCount)
	}
	return users
}

func (f *Fetcher) degrade(ctx context.Context, resource string, err error) {
	f.metrics.IncFetchFailure(resource)
	fields := pkgerrors.Dump(err).Fields()
	fields["resource"] = resource
	f.logg.Warn(f.logg.WithFields(ctx, fields), "storefront fetch failed; degrading")
}

func window(r timerange.Range) storefront.Window {
	return storefront.Window{Start: r.Start, End: r.End}
}

func cacheFields(key string, err error) map[string]any {
	return map[string]any{"cache_key": key, "error": err.Error()}
}
