package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
)

const lockPrefix = "repairpos:lock:"

// PassLock is a Redis lease that lets one process at a time run a named
// periodic pass.
type PassLock struct {
	locker *redislock.Client
	key    string
	ttl    time.Duration
}

// NewPassLock creates a lock named name. The lease expires after ttl so a
// crashed holder cannot block the pass for longer than that.
func NewPassLock(client redislock.RedisClient, name string, ttl time.Duration) *PassLock {
	return &PassLock{locker: redislock.New(client), key: lockPrefix + name, ttl: ttl}
}

// TryAcquire takes the lease without waiting. ok is false when another
// process holds it.
func (l *PassLock) TryAcquire(ctx context.Context) (release func(context.Context) error, ok bool, err error) {
	lock, err := l.locker.Obtain(ctx, l.key, l.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("obtain %s: %w", l.key, err)
	}
	return func(ctx context.Context) error {
		if err := lock.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			return err
		}
		return nil
	}, true, nil
}

// Key returns the Redis key of the lease.
func (l *PassLock) Key() string { return l.key }
