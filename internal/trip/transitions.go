package trip

import "motoya/internal/domain"

// Event is something that moves a trip from one phase to the next.
type Event string

const (
	EventArrivedPickup      Event = "arrived_pickup"
	EventEncounterConfirmed Event = "encounter_confirmed"
	EventPaidCash           Event = "paid_cash"
	EventPaidTransfer       Event = "paid_transfer"
	EventPaymentVerified    Event = "payment_verified"
	EventArrivedDestination Event = "arrived_destination"
)

type transitionKey struct {
	from  domain.Phase
	event Event
}

// transitions is the phase graph as a table. Cancellation is not listed:
// it leaves the graph from any phase.
var transitions = map[transitionKey]domain.Phase{
	{domain.PhaseTracking, EventArrivedPickup}:            domain.PhaseArrivedNotice,
	{domain.PhaseArrivedNotice, EventEncounterConfirmed}:  domain.PhasePaymentSelection,
	{domain.PhasePaymentSelection, EventPaidCash}:         domain.PhaseInTrip,
	{domain.PhasePaymentSelection, EventPaidTransfer}:     domain.PhaseConfirmingPayment,
	{domain.PhaseConfirmingPayment, EventPaymentVerified}: domain.PhaseInTrip,
	{domain.PhaseInTrip, EventArrivedDestination}:         domain.PhaseCompleted,
}

// Transition returns the phase that follows from on ev, if any.
func Transition(from domain.Phase, ev Event) (domain.Phase, bool) {
	next, ok := transitions[transitionKey{from: from, event: ev}]
	return next, ok
}
