package mq

import (
	"strings"
	"time"

	"motoya/internal/domain"
)

// Routing keys of the trip events.
const (
	RoutingPhasePrefix     = "trip.phase."
	RoutingRatingCompleted = "ride.rating.completed"
	RoutingTripCancelled   = "trip.cancelled"
	RoutingDriverStatus    = "driver.status.available"
)

// PhaseRoutingKey returns the routing key announcing that a trip entered phase.
func PhaseRoutingKey(phase domain.Phase) string {
	return RoutingPhasePrefix + strings.ToLower(string(phase))
}

// PhaseChanged is published every time a trip enters a new phase.
type PhaseChanged struct {
	TripID           string    `json:"trip_id"`
	Phase            string    `json:"phase"`
	Role             string    `json:"role"`
	CounterpartyID   string    `json:"counterparty_id"`
	PaymentMethod    string    `json:"payment_method,omitempty"`
	PaymentReference string    `json:"payment_reference,omitempty"`
	ETASeconds       int       `json:"eta_seconds"`
	OccurredAt       time.Time `json:"occurred_at"`
}

// TripFinished is published when a trip is finalized or canceled.
type TripFinished struct {
	TripID           string    `json:"trip_id"`
	RiderID          string    `json:"rider_id"`
	DriverID         string    `json:"driver_id"`
	Outcome          string    `json:"outcome"`
	Phase            string    `json:"phase"`
	Rating           int       `json:"rating,omitempty"`
	Comment          string    `json:"comment,omitempty"`
	PaymentMethod    string    `json:"payment_method,omitempty"`
	PaymentReference string    `json:"payment_reference,omitempty"`
	FinishedAt       time.Time `json:"finished_at"`
}

// RatingCompleted is published when a rated trip is finalized.
type RatingCompleted struct {
	DriverID    string    `json:"driver_id"`
	RideID      string    `json:"ride_id"`
	RatingValue int       `json:"rating_value"`
	Comment     string    `json:"comment"`
	RatedAt     time.Time `json:"rated_at"`
}

// DriverStatusChanged is published when a driver becomes free again.
type DriverStatusChanged struct {
	DriverID   string    `json:"driver_id"`
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurred_at"`
}
