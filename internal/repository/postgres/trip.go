package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"motoya/internal/domain"
	"motoya/internal/repository"
)

// uniqueViolation is the SQLSTATE Postgres reports for a duplicate key.
const uniqueViolation = "23505"

// TripRepository is a PostgreSQL implementation of repository.TripRepository.
type TripRepository struct {
	q Querier
}

// NewTripRepository creates a new PostgreSQL trip repository.
func NewTripRepository(db *sql.DB) *TripRepository {
	return &TripRepository{q: db}
}

const tripColumns = `id, rider_id, driver_id, role, outcome, last_phase, payment_method, payment_reference,
	rating, comment, origin_lat, origin_lng, destination_lat, destination_lng, started_at, ended_at`

// Create persists a finished trip.
func (r *TripRepository) Create(ctx context.Context, rec *domain.TripRecord) error {
	query := `
		INSERT INTO trip_records (` + tripColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	var rating sql.NullInt32
	if rec.Rating > 0 {
		rating = sql.NullInt32{Int32: int32(rec.Rating), Valid: true}
	}

	_, err := r.q.ExecContext(ctx, query,
		rec.ID,
		rec.RiderID,
		rec.DriverID,
		rec.Role,
		rec.Outcome,
		rec.LastPhase,
		rec.PaymentMethod,
		rec.PaymentReference,
		rating,
		rec.Comment,
		rec.Origin.Lat,
		rec.Origin.Lng,
		rec.Destination.Lat,
		rec.Destination.Lng,
		rec.StartedAt,
		rec.EndedAt,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return repository.ErrDuplicate
	}
	return err
}

// GetByID retrieves a trip record by ID.
func (r *TripRepository) GetByID(ctx context.Context, id string) (*domain.TripRecord, error) {
	query := `SELECT ` + tripColumns + ` FROM trip_records WHERE id = $1`

	rec, err := scanRecord(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return rec, nil
}

// GetAll retrieves the most recent trip records.
func (r *TripRepository) GetAll(ctx context.Context) ([]*domain.TripRecord, error) {
	query := `SELECT ` + tripColumns + ` FROM trip_records ORDER BY ended_at DESC LIMIT 100`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.TripRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// AverageRatingByDriver returns the mean rating over finalized, rated trips.
func (r *TripRepository) AverageRatingByDriver(ctx context.Context, driverID string) (float64, int, error) {
	query := `
		SELECT COALESCE(AVG(rating), 0), COUNT(rating)
		FROM trip_records
		WHERE driver_id = $1 AND outcome = $2 AND rating IS NOT NULL
	`

	var avg float64
	var count int
	err := r.q.QueryRowContext(ctx, query, driverID, domain.OutcomeFinalized).Scan(&avg, &count)
	if err != nil {
		return 0, 0, err
	}
	return avg, count, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(s rowScanner) (*domain.TripRecord, error) {
	var rec domain.TripRecord
	var rating sql.NullInt32

	err := s.Scan(
		&rec.ID,
		&rec.RiderID,
		&rec.DriverID,
		&rec.Role,
		&rec.Outcome,
		&rec.LastPhase,
		&rec.PaymentMethod,
		&rec.PaymentReference,
		&rating,
		&rec.Comment,
		&rec.Origin.Lat,
		&rec.Origin.Lng,
		&rec.Destination.Lat,
		&rec.Destination.Lng,
		&rec.StartedAt,
		&rec.EndedAt,
	)
	if err != nil {
		return nil, err
	}

	if rating.Valid {
		rec.Rating = int(rating.Int32)
	}
	return &rec, nil
}

// Ensure TripRepository implements repository.TripRepository.
var _ repository.TripRepository = (*TripRepository)(nil)
