// Package coordination provides Redis-backed coordination primitives: the
// per-crawler run lock and scheduler leader election.
package coordination

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// DefaultLockTTL is the fallback lock time-to-live.
	DefaultLockTTL = 30 * time.Second

	keyPrefix = "golibrary:"
)

// ErrLockNotHeld is returned when releasing or extending a lock this
// instance does not hold.
var ErrLockNotHeld = errors.New("lock not held")

// DistributedLock is a single-key Redis lock. The token ties the lock to
// the instance that acquired it, so a release never clobbers a lock taken
// over after expiry.
type DistributedLock struct {
	client *redis.Client
	key    string
	token  string
	ttl    time.Duration
}

// NewDistributedLock creates a lock on the given key.
func NewDistributedLock(client *redis.Client, key string, ttl time.Duration) *DistributedLock {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &DistributedLock{
		client: client,
		key:    key,
		token:  uuid.NewString(),
		ttl:    ttl,
	}
}

// TryLock attempts to acquire the lock without blocking.
func (l *DistributedLock) TryLock(ctx context.Context) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key, l.token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock %s: %w", l.key, err)
	}
	return ok, nil
}

var unlockScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// Unlock releases the lock if this instance still holds it.
func (l *DistributedLock) Unlock(ctx context.Context) error {
	result, err := unlockScript.Run(ctx, l.client, []string{l.key}, l.token).Int()
	if err != nil {
		return fmt.Errorf("failed to release lock %s: %w", l.key, err)
	}
	if result == 0 {
		return ErrLockNotHeld
	}
	return nil
}

var extendScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("pexpire", KEYS[1], ARGV[2])
	else
		return 0
	end
`)

// Extend pushes out the lock TTL if this instance still holds it.
func (l *DistributedLock) Extend(ctx context.Context, extension time.Duration) error {
	result, err := extendScript.Run(ctx, l.client, []string{l.key}, l.token, extension.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("failed to extend lock %s: %w", l.key, err)
	}
	if result == 0 {
		return ErrLockNotHeld
	}
	return nil
}

// Key returns the lock key.
func (l *DistributedLock) Key() string {
	return l.key
}

// LockManager creates locks in the application's key namespace.
type LockManager struct {
	client *redis.Client
}

// NewLockManager creates a lock manager.
func NewLockManager(client *redis.Client) *LockManager {
	return &LockManager{client: client}
}

// CrawlerRunLock returns the lock guarding runs of one crawler. At most one
// run per crawler may hold it at a time.
func (m *LockManager) CrawlerRunLock(crawlerID string, ttl time.Duration) *DistributedLock {
	return NewDistributedLock(m.client, keyPrefix+"crawl:run:"+crawlerID, ttl)
}
