package redis

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"

	"motoya/internal/domain"
)

const (
	// vehicleGeoKey indexes vehicles whose coordinates are real lat/lng for
	// consumers searching by radius.
	vehicleGeoKey = "trips:vehicles"
	// vehiclePosPrefix holds the raw position of every vehicle, map units included.
	vehiclePosPrefix = "trip:vehicle:"
)

// LocationStore tracks the simulated vehicle position of each trip.
type LocationStore struct {
	client *redis.Client
}

// NewLocationStore creates a new LocationStore.
func NewLocationStore(client *redis.Client) *LocationStore {
	return &LocationStore{client: client}
}

// UpdateLocation records the vehicle position. Positions that are valid
// lat/lng are also added to the geo index so they can be searched by radius.
func (s *LocationStore) UpdateLocation(ctx context.Context, tripID string, p domain.Point) error {
	pipe := s.client.Pipeline()
	pipe.HSet(ctx, vehiclePosPrefix+tripID,
		"lat", strconv.FormatFloat(p.Lat, 'f', -1, 64),
		"lng", strconv.FormatFloat(p.Lng, 'f', -1, 64),
	)
	pipe.Expire(ctx, vehiclePosPrefix+tripID, TripCacheTTL)
	if p.IsGeo() {
		pipe.GeoAdd(ctx, vehicleGeoKey, &redis.GeoLocation{
			Name:      tripID,
			Longitude: p.Lng,
			Latitude:  p.Lat,
		})
	}
	_, err := pipe.Exec(ctx)
	return err
}

// RemoveLocation forgets a trip's vehicle.
func (s *LocationStore) RemoveLocation(ctx context.Context, tripID string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, vehiclePosPrefix+tripID)
	pipe.ZRem(ctx, vehicleGeoKey, tripID)
	_, err := pipe.Exec(ctx)
	return err
}
