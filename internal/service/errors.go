package service

import "errors"

var (
	// ErrInvalidRiderID is returned when rider ID is empty.
	ErrInvalidRiderID = errors.New("invalid rider id")

	// ErrInvalidDriverID is returned when driver ID is empty.
	ErrInvalidDriverID = errors.New("invalid driver id")

	// ErrInvalidTripID is returned when trip ID is empty.
	ErrInvalidTripID = errors.New("invalid trip id")

	// ErrInvalidRole is returned when the viewing role is neither rider nor driver.
	ErrInvalidRole = errors.New("invalid role")

	// ErrInvalidLocation is returned when a coordinate is not usable.
	ErrInvalidLocation = errors.New("invalid location")

	// ErrSameParty is returned when rider and driver are the same account.
	ErrSameParty = errors.New("rider and driver must differ")

	// ErrDriverHasActiveTrip is returned when driver already has an active trip.
	ErrDriverHasActiveTrip = errors.New("driver already has an active trip")

	// ErrTripNotFound is returned when no active trip has the given ID.
	ErrTripNotFound = errors.New("trip not found")

	// ErrNoTransferInstructions is returned when the trip is not paid by mobile transfer.
	ErrNoTransferInstructions = errors.New("trip has no transfer instructions")
)
