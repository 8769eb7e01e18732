package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"motoya/internal/clock"
	"motoya/internal/domain"
	"motoya/internal/mq"
	"motoya/internal/redis"
	"motoya/internal/repository"
	"motoya/internal/stream"
	"motoya/internal/trip"
)

// sideEffectTimeout bounds each store or broker call made for a trip event.
const sideEffectTimeout = 5 * time.Second

// TripServiceDeps contains all dependencies of the TripService.
type TripServiceDeps struct {
	Options       trip.Options
	Clock         clock.Clock
	DriverLockTTL time.Duration

	TripRepo      repository.TripRepository
	Cache         redis.TripCacheInterface
	Locations     redis.LocationStoreInterface
	Locks         redis.LockStoreInterface
	Publisher     EventPublisher
	Notifications *NotificationService
	Metrics       Metrics
	Hub           *stream.Hub
}

// TripService hosts the active trip controllers of this process and
// propagates their output to storage, the broker and live subscribers.
type TripService struct {
	deps TripServiceDeps

	mu    sync.RWMutex
	trips map[string]*trip.Controller
}

// NewTripService creates a new TripService.
func NewTripService(deps TripServiceDeps) *TripService {
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	if deps.Publisher == nil {
		deps.Publisher = LogPublisher{}
	}
	if deps.Notifications == nil {
		deps.Notifications = NewNotificationService()
	}
	if deps.Metrics == nil {
		deps.Metrics = NewNewRelicMetrics(nil)
	}
	if deps.Hub == nil {
		deps.Hub = stream.NewHub()
	}
	if deps.DriverLockTTL <= 0 {
		deps.DriverLockTTL = 2 * time.Hour
	}
	return &TripService{
		deps:  deps,
		trips: make(map[string]*trip.Controller),
	}
}

// StartTripRequest contains the parameters for starting a trip once a match
// is confirmed.
type StartTripRequest struct {
	RiderID      string
	DriverID     string
	Role         domain.Role
	Counterparty domain.Counterparty
	Origin       domain.Point
	Destination  domain.Point
	Vehicle      domain.Point
}

func (s *TripService) validate(req *StartTripRequest) error {
	switch {
	case req.RiderID == "":
		return ErrInvalidRiderID
	case req.DriverID == "":
		return ErrInvalidDriverID
	case req.RiderID == req.DriverID:
		return ErrSameParty
	case !req.Role.Valid():
		return ErrInvalidRole
	}

	for _, p := range []domain.Point{req.Origin, req.Destination, req.Vehicle} {
		if !p.IsFinite() || (s.deps.Options.Geodesic && !p.IsGeo()) {
			return ErrInvalidLocation
		}
	}

	// The counterparty is whoever is on the other side of the host's role.
	want := req.DriverID
	if req.Role == domain.RoleDriver {
		want = req.RiderID
	}
	if req.Counterparty.ID == "" {
		req.Counterparty.ID = want
	}
	if req.Counterparty.ID != want {
		return fmt.Errorf("%w: counterparty %s is not the %s", trip.ErrInvalidParams, req.Counterparty.ID, req.Role)
	}
	return nil
}

// StartTrip creates and starts the controller of a new trip. The driver is
// locked until the trip is released.
func (s *TripService) StartTrip(ctx context.Context, req StartTripRequest) (domain.Snapshot, error) {
	if err := s.validate(&req); err != nil {
		return domain.Snapshot{}, err
	}

	tripID := uuid.New().String()
	ok, err := s.deps.Locks.AcquireDriverLock(ctx, req.DriverID, tripID, s.deps.DriverLockTTL)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("acquire driver lock: %w", err)
	}
	if !ok {
		return domain.Snapshot{}, ErrDriverHasActiveTrip
	}

	obs := &tripObserver{
		svc:         s,
		tripID:      tripID,
		riderID:     req.RiderID,
		driverID:    req.DriverID,
		origin:      req.Origin,
		destination: req.Destination,
	}
	ctrl, err := trip.New(trip.Params{
		TripID:       tripID,
		Role:         req.Role,
		Counterparty: req.Counterparty,
		Origin:       req.Origin,
		Destination:  req.Destination,
		Vehicle:      req.Vehicle,
	}, s.deps.Options, s.deps.Clock, obs)
	if err != nil {
		_ = s.deps.Locks.ReleaseDriverLock(ctx, req.DriverID, tripID)
		return domain.Snapshot{}, err
	}

	s.mu.Lock()
	s.trips[tripID] = ctrl
	s.mu.Unlock()

	if err := s.deps.Cache.SetDriverStatus(ctx, req.DriverID, domain.DriverStatusOnTrip); err != nil {
		log.Printf("trip %s: failed to mark driver %s on trip: %v", tripID, req.DriverID, err)
	}
	if req.Role == domain.RoleRider {
		_ = s.deps.Notifications.NotifyDriverAssigned(ctx, req.RiderID, req.Counterparty, tripID)
	}

	ctrl.Start()
	log.Printf("trip %s started: rider=%s driver=%s role=%s", tripID, req.RiderID, req.DriverID, req.Role)

	return ctrl.Snapshot(), nil
}

func (s *TripService) controller(tripID string) (*trip.Controller, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	ctrl, ok := s.trips[tripID]
	if !ok {
		return nil, ErrTripNotFound
	}
	return ctrl, nil
}

// GetTrip returns the current snapshot of an active trip.
func (s *TripService) GetTrip(ctx context.Context, tripID string) (domain.Snapshot, error) {
	ctrl, err := s.controller(tripID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	return ctrl.Snapshot(), nil
}

// TripLookup is what is known about a trip, from the most to the least live
// source. Exactly one field is set.
type TripLookup struct {
	Active   *domain.Snapshot  // running in this process
	Cached   *redis.CachedTrip // running in another process
	Finished *domain.TripRecord
}

// LookupTrip finds a trip whether it runs here, runs elsewhere or has ended.
func (s *TripService) LookupTrip(ctx context.Context, tripID string) (TripLookup, error) {
	snap, err := s.GetTrip(ctx, tripID)
	if err == nil {
		return TripLookup{Active: &snap}, nil
	}
	if !errors.Is(err, ErrTripNotFound) {
		return TripLookup{}, err
	}

	cached, err := s.deps.Cache.GetTrip(ctx, tripID)
	if err != nil {
		log.Printf("trip %s: cache lookup failed: %v", tripID, err)
	} else if cached != nil {
		return TripLookup{Cached: cached}, nil
	}

	rec, err := s.deps.TripRepo.GetByID(ctx, tripID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return TripLookup{}, ErrTripNotFound
		}
		return TripLookup{}, err
	}
	return TripLookup{Finished: rec}, nil
}

// ConfirmEncounter records that rider and driver met at the pickup point.
func (s *TripService) ConfirmEncounter(ctx context.Context, tripID string) (domain.Snapshot, error) {
	return s.act(tripID, (*trip.Controller).ConfirmEncounter)
}

// SelectPaymentMethod sets the pending payment method.
func (s *TripService) SelectPaymentMethod(ctx context.Context, tripID string, method domain.PaymentMethod) (domain.Snapshot, error) {
	return s.act(tripID, func(c *trip.Controller) error {
		return c.SelectPaymentMethod(method)
	})
}

// ConfirmPaymentSent commits the pending payment method.
func (s *TripService) ConfirmPaymentSent(ctx context.Context, tripID string) (domain.Snapshot, error) {
	return s.act(tripID, (*trip.Controller).ConfirmPaymentSent)
}

// SubmitRating stores the rating of a completed trip.
func (s *TripService) SubmitRating(ctx context.Context, tripID string, rating int, comment string) (domain.Snapshot, error) {
	return s.act(tripID, func(c *trip.Controller) error {
		return c.SubmitRating(rating, comment)
	})
}

// Finalize releases a rated trip.
func (s *TripService) Finalize(ctx context.Context, tripID string) (domain.Result, error) {
	ctrl, err := s.controller(tripID)
	if err != nil {
		return domain.Result{}, err
	}
	return ctrl.Finalize()
}

// CancelTrip cancels an active trip.
func (s *TripService) CancelTrip(ctx context.Context, tripID string) (domain.Result, error) {
	ctrl, err := s.controller(tripID)
	if err != nil {
		return domain.Result{}, err
	}
	ctrl.Cancel()
	res, _ := ctrl.Result()
	return res, nil
}

// TransferInstructions returns the data the rider copies into their banking
// app. It is only available once mobile transfer is chosen.
func (s *TripService) TransferInstructions(ctx context.Context, tripID string) (domain.TransferInstructions, error) {
	snap, err := s.GetTrip(ctx, tripID)
	if err != nil {
		return domain.TransferInstructions{}, err
	}
	if snap.Transfer == nil {
		return domain.TransferInstructions{}, ErrNoTransferInstructions
	}
	return *snap.Transfer, nil
}

// Subscribe follows the snapshots of an active trip. The returned snapshot
// is the current state.
func (s *TripService) Subscribe(ctx context.Context, tripID string) (*stream.Subscription, domain.Snapshot, error) {
	ctrl, err := s.controller(tripID)
	if err != nil {
		return nil, domain.Snapshot{}, err
	}
	sub := s.deps.Hub.Subscribe(tripID)
	select {
	case <-ctrl.Done():
		// Released between the lookup and the subscription; the hub may
		// already have closed the trip.
		sub.Unsubscribe()
		return nil, domain.Snapshot{}, ErrTripNotFound
	default:
	}
	return sub, ctrl.Snapshot(), nil
}

// History returns the most recent finished trips.
func (s *TripService) History(ctx context.Context) ([]*domain.TripRecord, error) {
	return s.deps.TripRepo.GetAll(ctx)
}

// DriverRating summarises the ratings a driver received.
type DriverRating struct {
	DriverID string
	Average  float64
	Count    int
	Label    string
}

// DriverRating returns a driver's average rating over finalized trips.
func (s *TripService) DriverRating(ctx context.Context, driverID string) (DriverRating, error) {
	if driverID == "" {
		return DriverRating{}, ErrInvalidDriverID
	}
	avg, count, err := s.deps.TripRepo.AverageRatingByDriver(ctx, driverID)
	if err != nil {
		return DriverRating{}, err
	}
	return DriverRating{
		DriverID: driverID,
		Average:  math.Round(avg*100) / 100,
		Count:    count,
		Label:    trip.RatingLabel(int(math.Round(avg))),
	}, nil
}

// ActiveTrips returns how many trips this process is running.
func (s *TripService) ActiveTrips() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.trips)
}

// Shutdown cancels every active trip so driver locks are released.
func (s *TripService) Shutdown() {
	s.mu.RLock()
	ctrls := make([]*trip.Controller, 0, len(s.trips))
	for _, c := range s.trips {
		ctrls = append(ctrls, c)
	}
	s.mu.RUnlock()

	for _, c := range ctrls {
		c.Cancel()
	}
}

func (s *TripService) act(tripID string, action func(*trip.Controller) error) (domain.Snapshot, error) {
	ctrl, err := s.controller(tripID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	if err := action(ctrl); err != nil {
		return domain.Snapshot{}, err
	}
	return ctrl.Snapshot(), nil
}

func (s *TripService) forget(tripID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.trips, tripID)
}

// tripObserver turns controller output into side effects. The controller
// calls it serially, so its fields need no lock.
type tripObserver struct {
	svc         *TripService
	tripID      string
	riderID     string
	driverID    string
	origin      domain.Point
	destination domain.Point

	startedAt time.Time
	lastPhase domain.Phase
}

func (o *tripObserver) TripUpdated(snap domain.Snapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
	defer cancel()
	d := o.svc.deps

	if o.startedAt.IsZero() {
		o.startedAt = snap.StartedAt
	}

	if err := d.Cache.SetTrip(ctx, redis.NewCachedTrip(snap)); err != nil {
		log.Printf("trip %s: failed to cache snapshot: %v", o.tripID, err)
	}
	if snap.Outcome == domain.OutcomeActive {
		if err := d.Locations.UpdateLocation(ctx, o.tripID, snap.Vehicle); err != nil {
			log.Printf("trip %s: failed to record vehicle location: %v", o.tripID, err)
		}
	}
	d.Hub.Publish(snap)

	if snap.Phase == o.lastPhase {
		return
	}
	o.lastPhase = snap.Phase

	err := d.Publisher.Publish(ctx, mq.PhaseRoutingKey(snap.Phase), mq.PhaseChanged{
		TripID:           o.tripID,
		Phase:            string(snap.Phase),
		Role:             string(snap.Role),
		CounterpartyID:   snap.Counterparty.ID,
		PaymentMethod:    string(snap.PaymentMethod),
		PaymentReference: snap.PaymentReference,
		ETASeconds:       snap.ETASeconds,
		OccurredAt:       snap.UpdatedAt,
	})
	if err != nil {
		log.Printf("trip %s: failed to publish phase %s: %v", o.tripID, snap.Phase, err)
	}

	switch snap.Phase {
	case domain.PhaseArrivedNotice:
		_ = d.Notifications.NotifyDriverArrived(ctx, o.riderID, o.tripID)
	case domain.PhaseConfirmingPayment:
		_ = d.Notifications.NotifyPaymentSent(ctx, o.driverID, o.tripID)
	case domain.PhaseInTrip:
		if snap.PaymentReference != "" {
			_ = d.Notifications.NotifyPaymentVerified(ctx, o.driverID, o.tripID, snap.PaymentReference)
		}
		_ = d.Notifications.NotifyTripStarted(ctx, o.riderID, o.tripID, snap.ETASeconds)
	case domain.PhaseCompleted:
		_ = d.Notifications.NotifyTripCompleted(ctx, o.riderID, o.tripID)
	}
}

func (o *tripObserver) TripFinished(res domain.Result) {
	ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
	defer cancel()
	d := o.svc.deps

	rec := &domain.TripRecord{
		ID:               o.tripID,
		RiderID:          o.riderID,
		DriverID:         o.driverID,
		Role:             res.Role,
		Outcome:          res.Outcome,
		LastPhase:        res.Phase,
		PaymentMethod:    res.PaymentMethod,
		PaymentReference: res.PaymentReference,
		Rating:           res.Rating,
		Comment:          res.Comment,
		Origin:           o.origin,
		Destination:      o.destination,
		StartedAt:        o.startedAt,
		EndedAt:          res.FinishedAt,
	}
	if err := d.TripRepo.Create(ctx, rec); err != nil {
		log.Printf("trip %s: failed to persist record: %v", o.tripID, err)
	}

	var err error
	if res.Outcome == domain.OutcomeFinalized {
		err = d.Publisher.Publish(ctx, mq.RoutingRatingCompleted, mq.RatingCompleted{
			DriverID:    o.driverID,
			RideID:      o.tripID,
			RatingValue: res.Rating,
			Comment:     res.Comment,
			RatedAt:     res.FinishedAt,
		})
		_ = d.Notifications.NotifyRatingReceived(ctx, o.driverID, o.tripID, res.Rating)
	} else {
		err = d.Publisher.Publish(ctx, mq.RoutingTripCancelled, mq.TripFinished{
			TripID:           o.tripID,
			RiderID:          o.riderID,
			DriverID:         o.driverID,
			Outcome:          string(res.Outcome),
			Phase:            string(res.Phase),
			Rating:           res.Rating,
			Comment:          res.Comment,
			PaymentMethod:    string(res.PaymentMethod),
			PaymentReference: res.PaymentReference,
			FinishedAt:       res.FinishedAt,
		})
		recipient := o.driverID
		if res.Role == domain.RoleDriver {
			recipient = o.riderID
		}
		_ = d.Notifications.NotifyTripCancelled(ctx, recipient, o.tripID, res.Phase)
	}
	if err != nil {
		log.Printf("trip %s: failed to publish %s: %v", o.tripID, res.Outcome, err)
	}

	if err := d.Publisher.Publish(ctx, mq.RoutingDriverStatus, mq.DriverStatusChanged{
		DriverID:   o.driverID,
		Status:     string(domain.DriverStatusAvailable),
		OccurredAt: res.FinishedAt,
	}); err != nil {
		log.Printf("trip %s: failed to publish driver status: %v", o.tripID, err)
	}

	if err := d.Locks.ReleaseDriverLock(ctx, o.driverID, o.tripID); err != nil {
		log.Printf("trip %s: failed to release driver lock: %v", o.tripID, err)
	}
	if err := d.Cache.SetDriverStatus(ctx, o.driverID, domain.DriverStatusAvailable); err != nil {
		log.Printf("trip %s: failed to mark driver available: %v", o.tripID, err)
	}
	if err := d.Cache.InvalidateTrip(ctx, o.tripID); err != nil {
		log.Printf("trip %s: failed to invalidate cache: %v", o.tripID, err)
	}
	if err := d.Locations.RemoveLocation(ctx, o.tripID); err != nil {
		log.Printf("trip %s: failed to remove vehicle location: %v", o.tripID, err)
	}

	d.Metrics.TripFinished(res, res.FinishedAt.Sub(o.startedAt))
	o.svc.forget(o.tripID)
	d.Hub.CloseTrip(o.tripID)

	log.Printf("trip %s %s in %s", o.tripID, res.Outcome, res.Phase)
}
