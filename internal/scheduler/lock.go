package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only when the caller still owns it, so a
// lock that expired and was re-acquired elsewhere is never released by the
// stale owner.
var releaseScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	end
	return 0
`)

// CycleLock serializes ingestion cycles per provider across service
// instances. A watermark key has exactly one writer while the lock is held.
type CycleLock struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCycleLock builds a lock manager. The TTL caps how long a crashed holder
// can block a provider.
func NewCycleLock(client *redis.Client, ttl time.Duration) *CycleLock {
	return &CycleLock{client: client, ttl: ttl}
}

// Acquire attempts to take the provider lock. The token must be unique per
// holder and is required to release.
func (l *CycleLock) Acquire(ctx context.Context, providerName, token string) (bool, error) {
	ok, err := l.client.SetNX(ctx, lockKey(providerName), token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock for %s: %w", providerName, err)
	}
	return ok, nil
}

// Release gives the provider lock back if this token still holds it.
func (l *CycleLock) Release(ctx context.Context, providerName, token string) error {
	if err := releaseScript.Run(ctx, l.client, []string{lockKey(providerName)}, token).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("failed to release lock for %s: %w", providerName, err)
	}
	return nil
}

func lockKey(providerName string) string {
	return "ingest:lock:" + providerName
}
