package trip

import (
	"fmt"
	"time"
)

// Options tunes the simulation without changing its logic.
type Options struct {
	// TickInterval is how often the vehicle position is updated.
	TickInterval time.Duration
	// StepSize is the distance in coordinate units covered per tick.
	StepSize float64
	// ArrivalTolerance is the distance under which the vehicle counts as
	// being at its target. Must stay below StepSize.
	ArrivalTolerance float64
	// VerificationDelay is how long a mobile transfer takes to be confirmed.
	VerificationDelay time.Duration
	// KmPerUnit converts coordinate units to kilometres on the plane metric.
	KmPerUnit float64
	// AssumedSpeedKmh is the constant speed ETA is derived from.
	AssumedSpeedKmh float64
	// Geodesic switches remaining distance to haversine over lat/lng.
	Geodesic bool
}

// DefaultOptions returns a pace that reads well on a phone screen.
func DefaultOptions() Options {
	return Options{
		TickInterval:      500 * time.Millisecond,
		StepSize:          1.0,
		ArrivalTolerance:  0.25,
		VerificationDelay: 3500 * time.Millisecond,
		KmPerUnit:         0.05,
		AssumedSpeedKmh:   25,
	}
}

// Validate checks that every option is usable.
func (o Options) Validate() error {
	switch {
	case o.TickInterval <= 0:
		return fmt.Errorf("%w: tick interval must be positive", ErrInvalidOptions)
	case o.StepSize <= 0:
		return fmt.Errorf("%w: step size must be positive", ErrInvalidOptions)
	case o.ArrivalTolerance <= 0 || o.ArrivalTolerance >= o.StepSize:
		return fmt.Errorf("%w: arrival tolerance must be in (0, step size)", ErrInvalidOptions)
	case o.VerificationDelay <= 0:
		return fmt.Errorf("%w: verification delay must be positive", ErrInvalidOptions)
	case !o.Geodesic && o.KmPerUnit <= 0:
		return fmt.Errorf("%w: km per unit must be positive", ErrInvalidOptions)
	case o.AssumedSpeedKmh <= 0:
		return fmt.Errorf("%w: assumed speed must be positive", ErrInvalidOptions)
	}
	return nil
}
