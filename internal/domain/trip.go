package domain

import "time"

// Role is the perspective a trip is viewed from.
type Role string

const (
	RoleRider  Role = "RIDER"
	RoleDriver Role = "DRIVER"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleRider || r == RoleDriver
}

// Phase represents the current stage of an active trip.
type Phase string

const (
	PhaseTracking          Phase = "TRACKING"
	PhaseArrivedNotice     Phase = "ARRIVED_NOTICE"
	PhasePaymentSelection  Phase = "PAYMENT_SELECTION"
	PhaseConfirmingPayment Phase = "CONFIRMING_PAYMENT"
	PhaseInTrip            Phase = "IN_TRIP"
	PhaseCompleted         Phase = "COMPLETED"
)

// Moving reports whether the vehicle advances while the trip is in p.
func (p Phase) Moving() bool {
	return p == PhaseTracking || p == PhaseInTrip
}

// Outcome tells whether a trip is still running or how it ended.
type Outcome string

const (
	OutcomeActive    Outcome = "ACTIVE"
	OutcomeFinalized Outcome = "FINALIZED"
	OutcomeCanceled  Outcome = "CANCELED"
)

// Actions lists which host actions are currently enabled.
type Actions struct {
	ConfirmEncounter bool
	SelectPayment    bool
	ConfirmPayment   bool
	SubmitRating     bool
	Finalize         bool
	Cancel           bool
}

// View is the copy a host renders for a phase and role.
type View struct {
	Badge    string
	Headline string
	Detail   string
}

// Snapshot is a read-only copy of a trip's state at one instant.
type Snapshot struct {
	TripID       string
	Role         Role
	Counterparty Counterparty
	Origin       Point
	Destination  Point
	Vehicle      Point
	Phase        Phase
	Outcome      Outcome

	PendingMethod    PaymentMethod
	PaymentMethod    PaymentMethod
	Transfer         *TransferInstructions // set only for MOBILE_TRANSFER
	PaymentReference string

	ETASeconds  int
	ArrivalAt   time.Time // clock time the vehicle is expected at its target
	RemainingKm float64
	Ticks       int

	Rating  int
	Comment string

	Actions   Actions
	View      View
	StartedAt time.Time
	UpdatedAt time.Time
}

// Result is the signal emitted once when a trip is finalized or canceled.
type Result struct {
	TripID           string
	Role             Role
	CounterpartyID   string
	Outcome          Outcome
	Phase            Phase // phase the trip was in when it ended
	Rating           int
	Comment          string
	PaymentMethod    PaymentMethod
	PaymentReference string
	FinishedAt       time.Time
}

// TripRecord is the persisted summary of a finished trip.
type TripRecord struct {
	ID               string
	RiderID          string
	DriverID         string
	Role             Role
	Outcome          Outcome
	LastPhase        Phase
	PaymentMethod    PaymentMethod
	PaymentReference string
	Rating           int
	Comment          string
	Origin           Point
	Destination      Point
	StartedAt        time.Time
	EndedAt          time.Time
}
