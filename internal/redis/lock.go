package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const driverLockPrefix = "lock:driver:"

// releaseIfOwner deletes the lock only while it still names the same trip,
// so an expired lock re-taken by another trip is left alone.
var releaseIfOwner = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// LockStore keeps one active trip per driver.
type LockStore struct {
	client *redis.Client
}

// NewLockStore creates a new LockStore.
func NewLockStore(client *redis.Client) *LockStore {
	return &LockStore{client: client}
}

// AcquireDriverLock marks the driver as busy with tripID.
// Returns false if the driver already holds a lock.
func (s *LockStore) AcquireDriverLock(ctx context.Context, driverID, tripID string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, driverLockPrefix+driverID, tripID, ttl).Result()
}

// ReleaseDriverLock frees the driver if tripID still owns the lock.
func (s *LockStore) ReleaseDriverLock(ctx context.Context, driverID, tripID string) error {
	return releaseIfOwner.Run(ctx, s.client, []string{driverLockPrefix + driverID}, tripID).Err()
}
