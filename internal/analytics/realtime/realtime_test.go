package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/angelmondragon/admin-analytics/internal/analytics/source"
	"github.com/angelmondragon/admin-analytics/internal/analytics/types"
	"github.com/angelmondragon/admin-analytics/pkg/logger"
	"github.com/angelmondragon/admin-analytics/pkg/metrics"
	"github.com/angelmondragon/admin-analytics/pkg/storefront"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu    sync.Mutex
	body  string
	err   error
	calls int
	paths []string
	query storefront.AnalyticsQuery
}

func (f *fakeSource) Fetch(_ context.Context, path string, q storefront.AnalyticsQuery) (storefront.AnalyticsResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.paths = append(f.paths, path)
	f.query = q
	if f.err != nil {
		return nil, f.err
	}
	resp := storefront.AnalyticsResponse{}
	if f.body != "" {
		if err := json.Unmarshal([]byte(f.body), &resp); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

type fixedFallback struct{}

var fallbackMetrics = types.RealTimeMetrics{ActiveUsers: 1, CartAbandonment: "20.0%", ConversionRate: "4.0%", AverageOrderValue: 125}

func (fixedFallback) PollerMetrics() types.RealTimeMetrics { return fallbackMetrics }

type memoryStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemoryStore() *memoryStore { return &memoryStore{data: map[string][]byte{}} }

func (m *memoryStore) SetJSON(_ context.Context, key string, value any, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data[key] = raw
	m.mu.Unlock()
	return nil
}

func (m *memoryStore) GetJSON(_ context.Context, key string, dst any) (bool, error) {
	m.mu.Lock()
	raw, ok := m.data[key]
	m.mu.Unlock()
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

type stubLease struct {
	grant    bool
	holds    int
	released int
}

func (l *stubLease) Hold(context.Context) (bool, error) {
	l.holds++
	return l.grant, nil
}

func (l *stubLease) Release(context.Context) error {
	l.released++
	return nil
}

var capturedAt = time.Date(2025, 8, 14, 12, 0, 0, 0, time.UTC)

func newPoller(t *testing.T, src StatsSource, params PollerParams) *Poller {
	t.Helper()
	params.Source = src
	params.Fallback = fixedFallback{}
	params.Logger = logger.Nop()
	params.Clock = func() time.Time { return capturedAt }
	p, err := NewPoller(params)
	require.NoError(t, err)
	return p
}

const liveBody = `{"realTimeMetrics":{"activeUsers":77,"cartAbandonment":"17.5%","conversionRate":"3.3%","averageOrderValue":210}}`

func TestPollUsesLiveMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	src := &fakeSource{body: liveBody}
	p := newPoller(t, src, PollerParams{Metrics: metrics.NewAnalyticsMetrics(reg)})

	snap := p.Poll(context.Background())
	assert.True(t, snap.Live)
	assert.Equal(t, capturedAt, snap.CapturedAt)
	assert.Equal(t, types.RealTimeMetrics{ActiveUsers: 77, CartAbandonment: "17.5%", ConversionRate: "3.3%", AverageOrderValue: 210}, snap.Metrics)
	assert.Equal(t, []string{source.PathDashboardStats}, src.paths)
	assert.Equal(t, "daily", src.query.Period)
	assert.Equal(t, 1.0, pollCount(t, reg, "ok"))
}

func TestPollFallsBack(t *testing.T) {
	tests := []struct {
		name string
		src  *fakeSource
	}{
		{name: "endpoint down", src: &fakeSource{err: errors.New("dial tcp: connection refused")}},
		{name: "no metrics field", src: &fakeSource{body: `{"stats":{}}`}},
		{name: "malformed metrics", src: &fakeSource{body: `{"realTimeMetrics":"n/a"}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := prometheus.NewRegistry()
			p := newPoller(t, tt.src, PollerParams{Metrics: metrics.NewAnalyticsMetrics(reg)})

			snap := p.Poll(context.Background())
			assert.False(t, snap.Live)
			assert.Equal(t, fallbackMetrics, snap.Metrics)
			assert.Equal(t, 1.0, pollCount(t, reg, "fallback"))
		})
	}
}

func TestPublishRespectsLease(t *testing.T) {
	store := newMemoryStore()
	lease := &stubLease{grant: false}
	p := newPoller(t, &fakeSource{body: liveBody}, PollerParams{Store: store, SnapshotKey: "aa:realtime:latest", Lease: lease})
	ctx := context.Background()

	require.NoError(t, p.Publish(ctx, p.Poll(ctx)))
	assert.Empty(t, store.data)
	assert.Equal(t, 1, lease.holds)

	lease.grant = true
	require.NoError(t, p.Publish(ctx, p.Poll(ctx)))
	require.NoError(t, p.Publish(ctx, p.Poll(ctx)))
	assert.Contains(t, store.data, "aa:realtime:latest")
	assert.Equal(t, 3, lease.holds)
	assert.Equal(t, 0, lease.released, "lease is kept between publishes")

	require.NoError(t, p.Resign(ctx))
	assert.Equal(t, 1, lease.released)
}

func TestPublishWithoutStoreIsNoop(t *testing.T) {
	p := newPoller(t, &fakeSource{body: liveBody}, PollerParams{})
	assert.NoError(t, p.Publish(context.Background(), Snapshot{}))
}

func TestCurrentPrefersPublishedSnapshot(t *testing.T) {
	store := newMemoryStore()
	src := &fakeSource{body: liveBody}
	p := newPoller(t, src, PollerParams{Store: store, SnapshotKey: "aa:realtime:latest"})
	ctx := context.Background()

	polled := p.Current(ctx)
	assert.True(t, polled.Live)
	assert.Equal(t, 1, src.calls)

	published := Snapshot{Metrics: types.RealTimeMetrics{ActiveUsers: 5}, Live: true, CapturedAt: capturedAt}
	require.NoError(t, p.Publish(ctx, published))

	got := p.Current(ctx)
	assert.Equal(t, published, got)
	assert.Equal(t, 1, src.calls)
}

func TestNewPollerValidates(t *testing.T) {
	_, err := NewPoller(PollerParams{})
	assert.Error(t, err)

	_, err = NewPoller(PollerParams{Source: &fakeSource{}, Fallback: fixedFallback{}, Logger: logger.Nop(), Store: newMemoryStore()})
	assert.Error(t, err)
}

type recorder struct {
	count atomic.Int64
	ch    chan Snapshot
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan Snapshot, 256)}
}

func (r *recorder) callback(s Snapshot) {
	r.count.Add(1)
	select {
	case r.ch <- s:
	default:
	}
}

func (r *recorder) wait(t *testing.T) Snapshot {
	t.Helper()
	select {
	case s := <-r.ch:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for poll")
		return Snapshot{}
	}
}

func TestHandlePollsImmediatelyAndOnDemand(t *testing.T) {
	rec := newRecorder()
	p := newPoller(t, &fakeSource{body: liveBody}, PollerParams{})
	h := p.Start(context.Background(), rec.callback, time.Hour)
	defer h.Stop()

	first := rec.wait(t)
	assert.True(t, first.Live)

	snap, ok := h.Refresh(context.Background())
	require.True(t, ok)
	assert.True(t, snap.Live)
	rec.wait(t)

	latest, ok := h.Latest()
	require.True(t, ok)
	assert.Equal(t, snap, latest)
	assert.EqualValues(t, 2, rec.count.Load())
}

func TestHandlePauseResume(t *testing.T) {
	rec := newRecorder()
	p := newPoller(t, &fakeSource{body: liveBody}, PollerParams{})
	h := p.Start(context.Background(), rec.callback, time.Hour)
	defer h.Stop()
	rec.wait(t)

	h.Pause()
	_, ok := h.Refresh(context.Background())
	require.True(t, ok)
	rec.wait(t)
	assert.True(t, h.Paused())

	h.Resume()
	rec.wait(t)
	_, ok = h.Refresh(context.Background())
	require.True(t, ok)
	assert.False(t, h.Paused())
}

func TestHandleTicksOnInterval(t *testing.T) {
	rec := newRecorder()
	p := newPoller(t, &fakeSource{body: liveBody}, PollerParams{})
	h := p.Start(context.Background(), rec.callback, time.Hour)
	defer h.Stop()
	rec.wait(t)

	h.UpdateInterval(5 * time.Millisecond)
	rec.wait(t)
	rec.wait(t)
	assert.GreaterOrEqual(t, rec.count.Load(), int64(3))
}

func TestHandleStopIsIdempotent(t *testing.T) {
	rec := newRecorder()
	p := newPoller(t, &fakeSource{body: liveBody}, PollerParams{})
	h := p.Start(context.Background(), rec.callback, 0)
	rec.wait(t)

	h.Stop()
	h.Stop()
	h.Pause()
	h.Resume()
	h.UpdateInterval(time.Second)
	_, ok := h.Refresh(context.Background())
	assert.False(t, ok)

	select {
	case <-h.Done():
	default:
		t.Fatal("handle should be done")
	}
}

func TestHandleStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := newPoller(t, &fakeSource{body: liveBody}, PollerParams{})
	h := p.Start(ctx, nil, time.Hour)

	cancel()
	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("handle did not stop after context cancel")
	}
	h.Stop()
}

type fakeLeaseStore struct {
	mu     sync.Mutex
	owners map[string]string
	ttls   map[string]time.Duration
}

func newFakeLeaseStore() *fakeLeaseStore {
	return &fakeLeaseStore{owners: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeLeaseStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.owners[key]; ok {
		return false, nil
	}
	f.owners[key] = value.(string)
	f.ttls[key] = ttl
	return true, nil
}

func (f *fakeLeaseStore) ExtendIfOwner(_ context.Context, key, owner string, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.owners[key] != owner {
		return false, nil
	}
	f.ttls[key] = ttl
	return true, nil
}

func (f *fakeLeaseStore) DeleteIfOwner(_ context.Context, key, owner string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.owners[key] != owner {
		return false, nil
	}
	delete(f.owners, key)
	return true, nil
}

// expire drops key as redis would once its TTL runs out.
func (f *fakeLeaseStore) expire(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.owners, key)
}

type countingStore struct {
	*memoryStore
	writes int
}

func (c *countingStore) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	c.writes++
	return c.memoryStore.SetJSON(ctx, key, value, ttl)
}

const leaseKey = "aa:realtime:publisher"

func TestOnlyLeaseHolderPublishes(t *testing.T) {
	leases := newFakeLeaseStore()
	ctx := context.Background()

	replica := func() (*Poller, *countingStore) {
		lease, err := NewRedisLease(leases, leaseKey, time.Minute)
		require.NoError(t, err)
		store := &countingStore{memoryStore: newMemoryStore()}
		return newPoller(t, &fakeSource{body: liveBody}, PollerParams{Store: store, SnapshotKey: "aa:realtime:latest", Lease: lease}), store
	}
	a, storeA := replica()
	b, storeB := replica()

	for i := 0; i < 3; i++ {
		require.NoError(t, a.Publish(ctx, a.Poll(ctx)))
		require.NoError(t, b.Publish(ctx, b.Poll(ctx)))
	}
	assert.Equal(t, 3, storeA.writes)
	assert.Equal(t, 0, storeB.writes)

	leases.expire(leaseKey)
	require.NoError(t, b.Publish(ctx, b.Poll(ctx)))
	require.NoError(t, a.Publish(ctx, a.Poll(ctx)))
	assert.Equal(t, 1, storeB.writes, "b takes over once the lease lapses")
	assert.Equal(t, 3, storeA.writes)

	require.NoError(t, b.Resign(ctx))
	require.NoError(t, a.Publish(ctx, a.Poll(ctx)))
	assert.Equal(t, 4, storeA.writes)
}

func TestRedisLeaseRenewsAndReleases(t *testing.T) {
	leases := newFakeLeaseStore()
	ctx := context.Background()

	a, err := NewRedisLease(leases, leaseKey, 90*time.Second)
	require.NoError(t, err)
	b, err := NewRedisLease(leases, leaseKey, 90*time.Second)
	require.NoError(t, err)
	assert.NotEqual(t, a.Owner(), b.Owner())

	held, err := a.Hold(ctx)
	require.NoError(t, err)
	assert.True(t, held)

	held, err = a.Hold(ctx)
	require.NoError(t, err)
	assert.True(t, held, "holder renews its own lease")
	assert.Equal(t, 90*time.Second, leases.ttls[leaseKey])

	held, err = b.Hold(ctx)
	require.NoError(t, err)
	assert.False(t, held)

	require.NoError(t, b.Release(ctx))
	assert.Equal(t, a.Owner(), leases.owners[leaseKey], "non-holder must not release")

	require.NoError(t, a.Release(ctx))
	assert.Empty(t, leases.owners)

	held, err = b.Hold(ctx)
	require.NoError(t, err)
	assert.True(t, held)
}

func TestRedisLeaseValidates(t *testing.T) {
	_, err := NewRedisLease(nil, "k", time.Second)
	assert.Error(t, err)
	_, err = NewRedisLease(newFakeLeaseStore(), "", time.Second)
	assert.Error(t, err)
}

func pollCount(t *testing.T, reg *prometheus.Registry, outcome string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() != "realtime_poll_ticks_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "outcome" && l.GetValue() == outcome {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}
