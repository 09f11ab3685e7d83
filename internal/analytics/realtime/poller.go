// Package realtime polls the live metrics strip of the dashboard.
package realtime

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/admin-analytics/internal/analytics/source"
	"github.com/angelmondragon/admin-analytics/internal/analytics/types"
	pkgerrors "github.com/angelmondragon/admin-analytics/pkg/errors"
	"github.com/angelmondragon/admin-analytics/pkg/logger"
	"github.com/angelmondragon/admin-analytics/pkg/metrics"
	"github.com/angelmondragon/admin-analytics/pkg/redis"
	"github.com/angelmondragon/admin-analytics/pkg/storefront"
)

const (
	DefaultInterval = 30 * time.Second

	outcomeOK       = "ok"
	outcomeFallback = "fallback"
	statsPeriod     = "daily"
	metricsField    = "realTimeMetrics"
)

// Snapshot is one poll result.
type Snapshot struct {
	Metrics    types.RealTimeMetrics `json:"metrics"`
	Live       bool                  `json:"live"`
	CapturedAt time.Time             `json:"capturedAt"`
}

// StatsSource fetches a single storefront analytics endpoint.
type StatsSource interface {
	Fetch(ctx context.Context, path string, query storefront.AnalyticsQuery) (storefront.AnalyticsResponse, error)
}

// Fallback supplies synthetic live metrics.
type Fallback interface {
	PollerMetrics() types.RealTimeMetrics
}

// PollerParams configure a Poller. Store and Lease are optional; without a
// store nothing is published.
type PollerParams struct {
	Source      StatsSource
	Fallback    Fallback
	Logger      *logger.Logger
	Metrics     *metrics.AnalyticsMetrics
	Store       redis.JSONStore
	SnapshotKey string
	SnapshotTTL time.Duration
	Lease       Lease
	Clock       func() time.Time
}

// Poller fetches the live metrics and optionally publishes them to redis.
type Poller struct {
	source      StatsSource
	fallback    Fallback
	logg        *logger.Logger
	metrics     *metrics.AnalyticsMetrics
	store       redis.JSONStore
	snapshotKey string
	snapshotTTL time.Duration
	lease       Lease
	now         func() time.Time
}

func NewPoller(params PollerParams) (*Poller, error) {
	if params.Source == nil {
		return nil, fmt.Errorf("stats source required")
	}
	if params.Fallback == nil {
		return nil, fmt.Errorf("fallback required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Store != nil && params.SnapshotKey == "" {
		return nil, fmt.Errorf("snapshot key required")
	}
	now := params.Clock
	if now == nil {
		now = time.Now
	}
	return &Poller{
		source:      params.Source,
		fallback:    params.Fallback,
		logg:        params.Logger,
		metrics:     params.Metrics,
		store:       params.Store,
		snapshotKey: params.SnapshotKey,
		snapshotTTL: params.SnapshotTTL,
		lease:       params.Lease,
		now:         now,
	}, nil
}

// Poll fetches the daily stats endpoint once. It never fails: an unreachable
// endpoint or a payload without live metrics yields synthetic values.
func (p *Poller) Poll(ctx context.Context) Snapshot {
	snap := Snapshot{CapturedAt: p.now().UTC()}

	resp, err := p.source.Fetch(ctx, source.PathDashboardStats, source.Query(statsPeriod, nil))
	if err == nil {
		var found bool
		found, err = resp.Decode(metricsField, &snap.Metrics)
		if err == nil && found {
			snap.Live = true
		}
	}

	if snap.Live {
		p.metrics.IncPoll(outcomeOK)
	} else {
		p.metrics.IncPoll(outcomeFallback)
		snap.Metrics = p.fallback.PollerMetrics()
		if err != nil {
			p.logg.Warn(p.logg.WithFields(ctx, pkgerrors.Dump(err).Fields()), "realtime metrics fetch failed; using synthetic values")
		}
	}
	return snap
}

// Publish writes snap to the snapshot key. With a lease configured only the
// replica holding it writes; the lease is kept between calls.
func (p *Poller) Publish(ctx context.Context, snap Snapshot) error {
	if p.store == nil {
		return nil
	}
	if p.lease != nil {
		held, err := p.lease.Hold(ctx)
		if err != nil {
			return fmt.Errorf("hold publisher lease: %w", err)
		}
		if !held {
			p.logg.Debug(ctx, "another poller holds the publisher lease; skipping publish")
			return nil
		}
	}
	return p.store.SetJSON(ctx, p.snapshotKey, snap, p.snapshotTTL)
}

// Resign hands the publisher lease back so another replica can take over
// without waiting for it to expire.
func (p *Poller) Resign(ctx context.Context) error {
	if p.lease == nil {
		return nil
	}
	return p.lease.Release(ctx)
}

// Current returns the published snapshot when there is one, else polls.
func (p *Poller) Current(ctx context.Context) Snapshot {
	if p.store != nil {
		var snap Snapshot
		found, err := p.store.GetJSON(ctx, p.snapshotKey, &snap)
		if err != nil {
			p.logg.Warn(p.logg.WithField(ctx, "error", err.Error()), "realtime snapshot read failed")
		}
		if found {
			return snap
		}
	}
	return p.Poll(ctx)
}

// Start polls immediately and then every interval until the handle is stopped
// or ctx ends. cb runs on the handle's goroutine.
func (p *Poller) Start(ctx context.Context, cb func(Snapshot), interval time.Duration) *Handle {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if cb == nil {
		cb = func(Snapshot) {}
	}
	h := &Handle{
		poller:   p,
		cb:       cb,
		interval: interval,
		commands: make(chan command),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go h.run(ctx)
	return h
}
