// Package trip implements the lifecycle of one active ride, from the driver
// heading to the pickup point until the rider rates the trip.
//
// A Controller owns the whole trip context. The host reads it through
// snapshots delivered to observers and changes it only through the action
// methods. Position updates and payment verification are driven by a
// clock.Clock, so tests can run a trip on virtual time.
package trip

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"motoya/internal/clock"
	"motoya/internal/domain"
)

// Observer receives the output of a Controller.
//
// Calls happen in mutation order and never under the controller's state
// lock. The goroutine that caused a change delivers it unless another
// delivery is running, in which case that one picks it up and the caller
// returns at once. Actions taken from inside an observer are delivered after
// the current call returns.
type Observer interface {
	// TripUpdated is called after every state change.
	TripUpdated(s domain.Snapshot)
	// TripFinished is called once, when the trip is finalized or canceled.
	TripFinished(r domain.Result)
}

// Params is the initial input supplied when a match is confirmed.
type Params struct {
	TripID       string
	Role         domain.Role
	Counterparty domain.Counterparty
	Origin       domain.Point // pickup point, the rider's location
	Destination  domain.Point
	Vehicle      domain.Point // where the vehicle starts
}

func (p Params) validate() error {
	switch {
	case p.TripID == "":
		return fmt.Errorf("%w: missing trip id", ErrInvalidParams)
	case !p.Role.Valid():
		return fmt.Errorf("%w: unknown role %q", ErrInvalidParams, p.Role)
	case !p.Origin.IsFinite(), !p.Destination.IsFinite(), !p.Vehicle.IsFinite():
		return fmt.Errorf("%w: coordinates must be finite", ErrInvalidParams)
	}
	return nil
}

// Controller is the state machine of one trip.
type Controller struct {
	opts      Options
	clock     clock.Clock
	observers []Observer
	reference func() string

	mu           sync.Mutex
	id           string
	role         domain.Role
	counterparty domain.Counterparty
	origin       domain.Point
	destination  domain.Point
	vehicle      domain.Point
	phase        domain.Phase
	outcome      domain.Outcome
	pending      domain.PaymentMethod
	method       domain.PaymentMethod
	paymentRef   string
	rating       int
	comment      string
	remainingKm  float64
	etaSeconds   int
	ticks        int
	started      bool
	startedAt    time.Time
	updatedAt    time.Time

	// gen changes on every phase change and on release. Timer callbacks
	// carry the generation they were armed in and do nothing once it moved.
	gen      uint64
	ticker   clock.Timer
	verifier clock.Timer

	result   *domain.Result
	finished *domain.Result // waiting to be queued for observers
	done     chan struct{}

	// outbox holds notifications not yet delivered. delivering is set while
	// a goroutine drains it.
	outbox     []notification
	delivering bool
}

type notification struct {
	snap     domain.Snapshot
	finished *domain.Result
}

// New builds a controller in TRACKING. No timer runs until Start.
func New(p Params, opts Options, clk clock.Clock, observers ...Observer) (*Controller, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if clk == nil {
		clk = clock.Real()
	}

	now := clk.Now()
	c := &Controller{
		opts:         opts,
		clock:        clk,
		observers:    observers,
		reference:    transferReference,
		id:           p.TripID,
		role:         p.Role,
		counterparty: p.Counterparty,
		origin:       p.Origin,
		destination:  p.Destination,
		vehicle:      p.Vehicle,
		phase:        domain.PhaseTracking,
		outcome:      domain.OutcomeActive,
		startedAt:    now,
		updatedAt:    now,
		done:         make(chan struct{}),
	}
	c.refreshLocked()
	return c, nil
}

// transferReference mimics the reference a bank returns for a mobile transfer.
func transferReference() string {
	return fmt.Sprintf("MS-%06d", rand.Intn(900000)+100000)
}

// ID returns the trip identifier.
func (c *Controller) ID() string {
	return c.id
}

// Start arms the position ticker. Calling it again has no effect.
func (c *Controller) Start() {
	_ = c.apply(func() error {
		if c.started || c.outcome != domain.OutcomeActive {
			return errStale
		}
		c.started = true
		if c.phase.Moving() {
			c.armTickerLocked()
		}
		return nil
	})
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() domain.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Done is closed when the trip is released.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Result returns the completion or cancel signal once the trip is released.
func (c *Controller) Result() (domain.Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.result == nil {
		return domain.Result{}, false
	}
	return *c.result, true
}

// ConfirmEncounter records that rider and driver met at the pickup point.
func (c *Controller) ConfirmEncounter() error {
	return c.apply(func() error {
		if err := c.enabledLocked(func(a domain.Actions) bool { return a.ConfirmEncounter }); err != nil {
			return err
		}
		return c.transitionLocked(EventEncounterConfirmed)
	})
}

// SelectPaymentMethod sets the pending payment method. A later call before
// confirmation replaces it. In DRIVER role it records the method the rider
// chose, and ConfirmPaymentSent is the driver's acknowledgement.
func (c *Controller) SelectPaymentMethod(m domain.PaymentMethod) error {
	if !m.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, m)
	}
	return c.apply(func() error {
		if err := c.enabledLocked(func(a domain.Actions) bool { return a.SelectPayment }); err != nil {
			return err
		}
		if c.pending == m {
			return errStale
		}
		c.pending = m
		return nil
	})
}

// ConfirmPaymentSent commits the pending method. Cash goes straight to
// IN_TRIP; a mobile transfer waits for verification first.
func (c *Controller) ConfirmPaymentSent() error {
	return c.apply(func() error {
		if err := c.enabledLocked(func(a domain.Actions) bool { return a.ConfirmPayment }); err != nil {
			return err
		}
		ev := EventPaidCash
		if c.pending == domain.PaymentMethodMobileTransfer {
			ev = EventPaidTransfer
		}
		c.method = c.pending
		return c.transitionLocked(ev)
	})
}

// SubmitRating stores a 1..5 rating and an optional comment. Other values
// are rejected and leave the trip unchanged.
func (c *Controller) SubmitRating(value int, comment string) error {
	if value < 1 || value > 5 {
		return ErrInvalidRating
	}
	return c.apply(func() error {
		if err := c.enabledLocked(func(a domain.Actions) bool { return a.SubmitRating }); err != nil {
			return err
		}
		c.rating = value
		c.comment = comment
		return nil
	})
}

// Finalize emits the completion signal and releases the trip.
func (c *Controller) Finalize() (domain.Result, error) {
	var res domain.Result
	err := c.apply(func() error {
		if err := c.enabledLocked(func(a domain.Actions) bool { return a.Finalize }); err != nil {
			return err
		}
		c.releaseLocked(domain.OutcomeFinalized)
		res = *c.result
		return nil
	})
	return res, err
}

// Cancel stops every timer and releases the trip. It always succeeds;
// canceling a released trip does nothing.
func (c *Controller) Cancel() {
	_ = c.apply(func() error {
		if c.outcome != domain.OutcomeActive {
			return errStale
		}
		c.releaseLocked(domain.OutcomeCanceled)
		return nil
	})
}

// apply runs mutate under the state lock and queues a notification when it
// changed something. errStale means nothing changed and is not returned.
func (c *Controller) apply(mutate func() error) error {
	c.mu.Lock()
	if err := mutate(); err != nil {
		c.mu.Unlock()
		if err == errStale {
			return nil
		}
		return err
	}
	c.updatedAt = c.clock.Now()
	c.outbox = append(c.outbox, notification{snap: c.snapshotLocked(), finished: c.finished})
	c.finished = nil
	if c.delivering {
		c.mu.Unlock()
		return nil
	}
	c.delivering = true
	c.mu.Unlock()

	c.deliver()
	return nil
}

// deliver hands queued notifications to the observers in order until the
// outbox is empty.
func (c *Controller) deliver() {
	for {
		c.mu.Lock()
		if len(c.outbox) == 0 {
			c.delivering = false
			c.mu.Unlock()
			return
		}
		n := c.outbox[0]
		c.outbox[0] = notification{}
		c.outbox = c.outbox[1:]
		c.mu.Unlock()

		for _, o := range c.observers {
			o.TripUpdated(n.snap)
		}
		if n.finished != nil {
			for _, o := range c.observers {
				o.TripFinished(*n.finished)
			}
		}
	}
}

func (c *Controller) enabledLocked(enabled func(domain.Actions) bool) error {
	if c.outcome != domain.OutcomeActive {
		return ErrTripReleased
	}
	if !enabled(c.actionsLocked()) {
		return ErrActionDisabled
	}
	return nil
}

func (c *Controller) actionsLocked() domain.Actions {
	if c.outcome != domain.OutcomeActive {
		return domain.Actions{}
	}
	return domain.Actions{
		ConfirmEncounter: c.phase == domain.PhaseArrivedNotice,
		SelectPayment:    c.phase == domain.PhasePaymentSelection,
		ConfirmPayment:   c.phase == domain.PhasePaymentSelection && c.pending.Valid(),
		SubmitRating:     c.phase == domain.PhaseCompleted,
		Finalize:         c.phase == domain.PhaseCompleted && c.rating > 0,
		Cancel:           true,
	}
}

// transitionLocked moves along the phase table, cancelling the timers of the
// phase being left and arming those of the phase being entered.
func (c *Controller) transitionLocked(ev Event) error {
	next, ok := Transition(c.phase, ev)
	if !ok {
		return ErrActionDisabled
	}
	c.stopTimersLocked()
	c.phase = next
	c.gen++

	switch next {
	case domain.PhaseInTrip:
		c.vehicle = c.origin
		c.armTickerLocked()
	case domain.PhaseConfirmingPayment:
		c.armVerificationLocked()
	}
	c.refreshLocked()
	return nil
}

func (c *Controller) releaseLocked(outcome domain.Outcome) {
	c.stopTimersLocked()
	c.gen++
	c.outcome = outcome
	c.result = &domain.Result{
		TripID:           c.id,
		Role:             c.role,
		CounterpartyID:   c.counterparty.ID,
		Outcome:          outcome,
		Phase:            c.phase,
		Rating:           c.rating,
		Comment:          c.comment,
		PaymentMethod:    c.method,
		PaymentReference: c.paymentRef,
		FinishedAt:       c.clock.Now(),
	}
	c.finished = c.result
	close(c.done)
}

func (c *Controller) armTickerLocked() {
	gen := c.gen
	c.ticker = c.clock.Every(c.opts.TickInterval, func() { c.tick(gen) })
}

func (c *Controller) armVerificationLocked() {
	gen := c.gen
	c.verifier = c.clock.AfterFunc(c.opts.VerificationDelay, func() { c.verify(gen) })
}

func (c *Controller) stopTimersLocked() {
	if c.ticker != nil {
		c.ticker.Stop()
		c.ticker = nil
	}
	if c.verifier != nil {
		c.verifier.Stop()
		c.verifier = nil
	}
}

// tick advances the vehicle one step toward the active target.
func (c *Controller) tick(gen uint64) {
	_ = c.apply(func() error {
		if gen != c.gen || c.outcome != domain.OutcomeActive || !c.phase.Moving() {
			return errStale
		}
		c.ticks++
		next, arrived := advance(c.vehicle, c.targetLocked(), c.opts.StepSize, c.opts.ArrivalTolerance)
		c.vehicle = next
		if arrived {
			if c.phase == domain.PhaseTracking {
				return c.transitionLocked(EventArrivedPickup)
			}
			return c.transitionLocked(EventArrivedDestination)
		}
		c.refreshLocked()
		return nil
	})
}

// verify stands in for the payment gateway confirming a transfer.
func (c *Controller) verify(gen uint64) {
	_ = c.apply(func() error {
		if gen != c.gen || c.outcome != domain.OutcomeActive || c.phase != domain.PhaseConfirmingPayment {
			return errStale
		}
		c.paymentRef = c.reference()
		return c.transitionLocked(EventPaymentVerified)
	})
}

// targetLocked is the pickup point until the rider is on board, the
// destination afterwards.
func (c *Controller) targetLocked() domain.Point {
	if c.phase == domain.PhaseTracking || c.phase == domain.PhaseArrivedNotice {
		return c.origin
	}
	return c.destination
}

func (c *Controller) refreshLocked() {
	c.remainingKm = c.opts.remainingKm(c.vehicle, c.targetLocked())
	c.etaSeconds = c.opts.etaSeconds(c.remainingKm)
}

func (c *Controller) snapshotLocked() domain.Snapshot {
	s := domain.Snapshot{
		TripID:           c.id,
		Role:             c.role,
		Counterparty:     c.counterparty,
		Origin:           c.origin,
		Destination:      c.destination,
		Vehicle:          c.vehicle,
		Phase:            c.phase,
		Outcome:          c.outcome,
		PendingMethod:    c.pending,
		PaymentMethod:    c.method,
		PaymentReference: c.paymentRef,
		ETASeconds:       c.etaSeconds,
		ArrivalAt:        c.clock.Now().Add(time.Duration(c.etaSeconds) * time.Second),
		RemainingKm:      c.remainingKm,
		Ticks:            c.ticks,
		Rating:           c.rating,
		Comment:          c.comment,
		Actions:          c.actionsLocked(),
		View:             ViewFor(c.phase, c.role),
		StartedAt:        c.startedAt,
		UpdatedAt:        c.updatedAt,
	}
	// Only the paying rider sees where to send a transfer; the driver is the payee.
	if c.role == domain.RoleRider && c.counterparty.Transfer != nil && (c.method == domain.PaymentMethodMobileTransfer ||
		(c.method == domain.PaymentMethodNone && c.pending == domain.PaymentMethodMobileTransfer)) {
		t := *c.counterparty.Transfer
		s.Transfer = &t
	}
	return s
}
