package domain

// DriverStatus represents the availability of a driver.
type DriverStatus string

const (
	DriverStatusAvailable DriverStatus = "AVAILABLE"
	DriverStatusOnTrip    DriverStatus = "ON_TRIP"
)

// Counterparty is the display identity of the other party of a trip.
// It never changes during the trip.
type Counterparty struct {
	ID       string
	Name     string
	Vehicle  string // e.g. "Honda CB125"
	Plate    string
	Rating   float64
	Transfer *TransferInstructions
}
