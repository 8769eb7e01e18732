package repository

import (
	"context"

	"motoya/internal/domain"
)

// TripRepository defines the persistence operations for finished trips.
type TripRepository interface {
	// Create persists a finished trip.
	Create(ctx context.Context, record *domain.TripRecord) error

	// GetByID retrieves a trip record by ID.
	GetByID(ctx context.Context, id string) (*domain.TripRecord, error)

	// GetAll retrieves the most recent trip records, newest first.
	GetAll(ctx context.Context) ([]*domain.TripRecord, error)

	// AverageRatingByDriver returns the mean rating a driver received on
	// finalized trips and how many rated trips it covers.
	AverageRatingByDriver(ctx context.Context, driverID string) (float64, int, error)
}
