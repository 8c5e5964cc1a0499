package redis

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RunLockKey is the key guarding a catalog sync against concurrent writers
const RunLockKey = "sync:lock"

var (
	// ErrLockNotAcquired is returned when another holder owns the lock
	ErrLockNotAcquired = errors.New("lock not acquired")
	// ErrLockNotHeld is returned when releasing a lock that expired or changed owner
	ErrLockNotHeld = errors.New("lock not held")
)

var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

var extendScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("pexpire", KEYS[1], ARGV[2])
	else
		return 0
	end
`)

// Lock is a held lock. Its value identifies the holder.
type Lock struct {
	client *Client
	key    string
	value  string
}

// Key returns the full Redis key of the lock
func (l *Lock) Key() string {
	return l.key
}

// Locker acquires single-holder locks under a key prefix
type Locker struct {
	client    *Client
	keyPrefix string
}

// NewLocker creates a new Locker
func NewLocker(client *Client, keyPrefix string) *Locker {
	if keyPrefix == "" {
		keyPrefix = "fern:"
	}
	return &Locker{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Acquire takes the lock for ttl, tagging it with owner. It fails with
// ErrLockNotAcquired when someone else holds it.
func (l *Locker) Acquire(ctx context.Context, key, owner string, ttl time.Duration) (*Lock, error) {
	lockKey := l.keyPrefix + key

	ok, err := l.client.rdb.SetNX(ctx, lockKey, owner, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockNotAcquired
	}

	l.client.logger.WithContext(ctx).Debugf("Acquired lock: %s", lockKey)

	return &Lock{
		client: l.client,
		key:    lockKey,
		value:  owner,
	}, nil
}

// Holder returns the owner tag of the current holder, or "" when free
func (l *Locker) Holder(ctx context.Context, key string) (string, error) {
	owner, err := l.client.rdb.Get(ctx, l.keyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return owner, err
}

// Release releases the lock if it is still held by this owner
func (lock *Lock) Release(ctx context.Context) error {
	result, err := releaseScript.Run(ctx, lock.client.rdb, []string{lock.key}, lock.value).Int64()
	if err != nil {
		return err
	}
	if result == 0 {
		return ErrLockNotHeld
	}

	lock.client.logger.WithContext(ctx).Debugf("Released lock: %s", lock.key)
	return nil
}

// Extend resets the lock's TTL if it is still held by this owner
func (lock *Lock) Extend(ctx context.Context, ttl time.Duration) error {
	result, err := extendScript.Run(ctx, lock.client.rdb, []string{lock.key}, lock.value, ttl.Milliseconds()).Int64()
	if err != nil {
		return err
	}
	if result == 0 {
		return ErrLockNotHeld
	}
	return nil
}

// KeepAlive extends the lock every ttl/3 until the returned stop func is
// called or the lock is found under another owner. stop blocks until the
// heartbeat has exited and is safe to call more than once.
func (lock *Lock) KeepAlive(ctx context.Context, ttl time.Duration) (stop func()) {
	logger := lock.client.logger
	return heartbeat(ctx, ttl/3, func(ctx context.Context) error {
		return lock.Extend(ctx, ttl)
	}, func(err error) {
		logger.WithContext(ctx).WithError(err).Warnf("Failed to extend lock: %s", lock.key)
	})
}

func heartbeat(ctx context.Context, interval time.Duration, extend func(context.Context) error, onError func(error)) func() {
	if interval <= 0 {
		return func() {}
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				err := extend(ctx)
				if err == nil || ctx.Err() != nil {
					continue
				}
				onError(err)
				if errors.Is(err, ErrLockNotHeld) {
					return
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
}
