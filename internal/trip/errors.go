package trip

import "errors"

var (
	// ErrActionDisabled is returned when an action is invoked while the
	// current phase does not enable it. The trip is left unchanged.
	ErrActionDisabled = errors.New("action not enabled in current phase")

	// ErrTripReleased is returned for any action on a finalized or canceled trip.
	ErrTripReleased = errors.New("trip already released")

	// ErrInvalidRating is returned when a rating is outside 1..5.
	ErrInvalidRating = errors.New("rating must be between 1 and 5")

	// ErrInvalidPaymentMethod is returned for an unknown payment method.
	ErrInvalidPaymentMethod = errors.New("invalid payment method")

	// ErrInvalidOptions is returned when simulation options are out of range.
	ErrInvalidOptions = errors.New("invalid trip options")

	// ErrInvalidParams is returned when trip parameters are incomplete.
	ErrInvalidParams = errors.New("invalid trip parameters")

	// errStale marks a timer callback or no-op that must not notify observers.
	errStale = errors.New("stale")
)
