package redis

import (
	"context"
	"time"

	"motoya/internal/domain"
)

// TripCacheInterface defines the snapshot cache used by the trip service.
type TripCacheInterface interface {
	GetTrip(ctx context.Context, tripID string) (*CachedTrip, error)
	SetTrip(ctx context.Context, trip *CachedTrip) error
	InvalidateTrip(ctx context.Context, tripID string) error
	SetDriverStatus(ctx context.Context, driverID string, status domain.DriverStatus) error
}

// LocationStoreInterface defines the interface for vehicle location operations.
type LocationStoreInterface interface {
	UpdateLocation(ctx context.Context, tripID string, p domain.Point) error
	RemoveLocation(ctx context.Context, tripID string) error
}

// LockStoreInterface defines the interface for distributed locking.
type LockStoreInterface interface {
	AcquireDriverLock(ctx context.Context, driverID, tripID string, ttl time.Duration) (bool, error)
	ReleaseDriverLock(ctx context.Context, driverID, tripID string) error
}

// Ensure concrete types implement interfaces.
var (
	_ TripCacheInterface     = (*CacheStore)(nil)
	_ LocationStoreInterface = (*LocationStore)(nil)
	_ LockStoreInterface     = (*LockStore)(nil)
)
