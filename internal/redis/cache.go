package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"motoya/internal/domain"
)

// CacheStore keeps the latest snapshot of every active trip in Redis so other
// instances and dashboards can read it without reaching the owning process.
type CacheStore struct {
	client *redis.Client
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client}
}

// TripCacheTTL expires snapshots of trips whose owner died without cleanup.
const TripCacheTTL = 10 * time.Minute

const (
	tripCachePrefix     = "cache:trip:"
	availableDriversKey = "available_drivers"
)

// CachedTrip is the JSON form of a trip snapshot.
type CachedTrip struct {
	ID               string    `json:"id"`
	Role             string    `json:"role"`
	CounterpartyID   string    `json:"counterparty_id"`
	Phase            string    `json:"phase"`
	Outcome          string    `json:"outcome"`
	VehicleLat       float64   `json:"vehicle_lat"`
	VehicleLng       float64   `json:"vehicle_lng"`
	PaymentMethod    string    `json:"payment_method,omitempty"`
	PaymentReference string    `json:"payment_reference,omitempty"`
	ETASeconds       int       `json:"eta_seconds"`
	RemainingKm      float64   `json:"remaining_km"`
	Rating           int       `json:"rating,omitempty"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// NewCachedTrip flattens a snapshot for caching.
func NewCachedTrip(s domain.Snapshot) *CachedTrip {
	return &CachedTrip{
		ID:               s.TripID,
		Role:             string(s.Role),
		CounterpartyID:   s.Counterparty.ID,
		Phase:            string(s.Phase),
		Outcome:          string(s.Outcome),
		VehicleLat:       s.Vehicle.Lat,
		VehicleLng:       s.Vehicle.Lng,
		PaymentMethod:    string(s.PaymentMethod),
		PaymentReference: s.PaymentReference,
		ETASeconds:       s.ETASeconds,
		RemainingKm:      s.RemainingKm,
		Rating:           s.Rating,
		UpdatedAt:        s.UpdatedAt,
	}
}

// GetTrip retrieves a trip from cache. A miss returns nil without error.
func (s *CacheStore) GetTrip(ctx context.Context, tripID string) (*CachedTrip, error) {
	data, err := s.client.Get(ctx, tripCachePrefix+tripID).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var trip CachedTrip
	if err := json.Unmarshal(data, &trip); err != nil {
		return nil, err
	}
	return &trip, nil
}

// SetTrip stores a trip in cache.
func (s *CacheStore) SetTrip(ctx context.Context, trip *CachedTrip) error {
	data, err := json.Marshal(trip)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, tripCachePrefix+trip.ID, data, TripCacheTTL).Err()
}

// InvalidateTrip removes a trip from cache.
func (s *CacheStore) InvalidateTrip(ctx context.Context, tripID string) error {
	return s.client.Del(ctx, tripCachePrefix+tripID).Err()
}

// SetDriverStatus moves a driver in or out of the available set.
func (s *CacheStore) SetDriverStatus(ctx context.Context, driverID string, status domain.DriverStatus) error {
	if status == domain.DriverStatusAvailable {
		return s.client.SAdd(ctx, availableDriversKey, driverID).Err()
	}
	return s.client.SRem(ctx, availableDriversKey, driverID).Err()
}
