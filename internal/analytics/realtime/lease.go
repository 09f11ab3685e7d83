package realtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const defaultLeaseTTL = time.Minute

// Lease decides which poller replica publishes snapshots. Hold claims or
// renews it and reports whether the caller owns it afterwards.
type Lease interface {
	Hold(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type leaseStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	ExtendIfOwner(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
	DeleteIfOwner(ctx context.Context, key, owner string) (bool, error)
}

// RedisLease keeps the publisher key across ticks. The holder extends the TTL
// on every Hold; another replica can claim the key only after it expires or
// is released.
type RedisLease struct {
	store leaseStore
	key   string
	ttl   time.Duration
	owner string
}

func NewRedisLease(store leaseStore, key string, ttl time.Duration) (*RedisLease, error) {
	if store == nil {
		return nil, errors.New("redis client required for lease")
	}
	if key == "" {
		return nil, errors.New("lease key is required")
	}
	if ttl <= 0 {
		ttl = defaultLeaseTTL
	}
	return &RedisLease{store: store, key: key, ttl: ttl, owner: uuid.NewString()}, nil
}

// Owner is the token this replica writes into the lease key.
func (l *RedisLease) Owner() string { return l.owner }

func (l *RedisLease) Hold(ctx context.Context) (bool, error) {
	renewed, err := l.store.ExtendIfOwner(ctx, l.key, l.owner, l.ttl)
	if err != nil {
		return false, fmt.Errorf("renew lease %s: %w", l.key, err)
	}
	if renewed {
		return true, nil
	}
	claimed, err := l.store.SetNX(ctx, l.key, l.owner, l.ttl)
	if err != nil {
		return false, fmt.Errorf("claim lease %s: %w", l.key, err)
	}
	return claimed, nil
}

// Release gives the lease up if this replica still owns it.
func (l *RedisLease) Release(ctx context.Context) error {
	if _, err := l.store.DeleteIfOwner(ctx, l.key, l.owner); err != nil {
		return fmt.Errorf("release lease %s: %w", l.key, err)
	}
	return nil
}
