package tests

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"motoya/internal/clock"
	"motoya/internal/domain"
	"motoya/internal/mq"
	"motoya/internal/service"
	"motoya/internal/stream"
	"motoya/internal/trip"
)

// ──────────────────────────────────────────────
// HELPERS
// ──────────────────────────────────────────────

var epoch = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

type harness struct {
	clock     *clock.Virtual
	repo      *MockTripRepository
	cache     *MockTripCache
	locations *MockLocationStore
	locks     *MockLockStore
	publisher *MockPublisher
	metrics   *MockMetrics
	hub       *stream.Hub
	svc       *service.TripService
}

func newHarness() *harness {
	h := &harness{
		clock:     clock.NewVirtual(epoch),
		repo:      NewMockTripRepository(),
		cache:     NewMockTripCache(),
		locations: NewMockLocationStore(),
		locks:     NewMockLockStore(),
		publisher: NewMockPublisher(),
		metrics:   &MockMetrics{},
		hub:       stream.NewHub(),
	}
	h.svc = service.NewTripService(service.TripServiceDeps{
		Options: trip.Options{
			TickInterval:      time.Second,
			StepSize:          2,
			ArrivalTolerance:  0.5,
			VerificationDelay: 3 * time.Second,
			KmPerUnit:         0.05,
			AssumedSpeedKmh:   25,
		},
		Clock:     h.clock,
		TripRepo:  h.repo,
		Cache:     h.cache,
		Locations: h.locations,
		Locks:     h.locks,
		Publisher: h.publisher,
		Metrics:   h.metrics,
		Hub:       h.hub,
	})
	return h
}

func startRequest() service.StartTripRequest {
	return service.StartTripRequest{
		RiderID:  "rider-1",
		DriverID: "driver-1",
		Role:     domain.RoleRider,
		Counterparty: domain.Counterparty{
			Name:    "Carlos",
			Vehicle: "Bera SBR",
			Plate:   "AB123CD",
			Rating:  4.8,
			Transfer: &domain.TransferInstructions{
				BankCode:    "0102",
				Phone:       "04141234567",
				RecipientID: "V-12345678",
			},
		},
		Origin:      domain.Point{Lat: 0, Lng: 0},
		Destination: domain.Point{Lat: 10, Lng: 10},
		Vehicle:     domain.Point{Lat: 0, Lng: 0},
	}
}

// reachPaymentSelection starts a trip and drives it until payment is chosen.
func (h *harness) reachPaymentSelection(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	snap, err := h.svc.StartTrip(ctx, startRequest())
	if err != nil {
		t.Fatalf("StartTrip: %v", err)
	}
	h.clock.Advance(time.Second)

	if _, err := h.svc.ConfirmEncounter(ctx, snap.TripID); err != nil {
		t.Fatalf("ConfirmEncounter: %v", err)
	}
	return snap.TripID
}

// reachCompleted drives a cash trip to COMPLETED.
func (h *harness) reachCompleted(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	id := h.reachPaymentSelection(t)
	if _, err := h.svc.SelectPaymentMethod(ctx, id, domain.PaymentMethodCash); err != nil {
		t.Fatalf("SelectPaymentMethod: %v", err)
	}
	if _, err := h.svc.ConfirmPaymentSent(ctx, id); err != nil {
		t.Fatalf("ConfirmPaymentSent: %v", err)
	}
	h.clock.Advance(8 * time.Second)

	snap, err := h.svc.GetTrip(ctx, id)
	if err != nil {
		t.Fatalf("GetTrip: %v", err)
	}
	if snap.Phase != domain.PhaseCompleted {
		t.Fatalf("expected COMPLETED, got %s", snap.Phase)
	}
	return id
}

// ──────────────────────────────────────────────
// 1. STARTING A TRIP
// ──────────────────────────────────────────────

func TestStartTrip_LocksDriverAndCachesSnapshot(t *testing.T) {
	t.Parallel()
	h := newHarness()

	snap, err := h.svc.StartTrip(context.Background(), startRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if snap.Phase != domain.PhaseTracking {
		t.Errorf("expected TRACKING, got %s", snap.Phase)
	}
	if snap.Counterparty.ID != "driver-1" {
		t.Errorf("expected counterparty to default to driver-1, got %q", snap.Counterparty.ID)
	}
	if !h.locks.IsLocked("driver-1") {
		t.Error("expected driver to be locked")
	}
	if got := h.cache.DriverStatus("driver-1"); got != domain.DriverStatusOnTrip {
		t.Errorf("expected driver ON_TRIP, got %s", got)
	}
	if !h.cache.HasTrip(snap.TripID) {
		t.Error("expected snapshot to be cached")
	}
	if _, ok := h.locations.Location(snap.TripID); !ok {
		t.Error("expected vehicle location to be recorded")
	}
	if h.svc.ActiveTrips() != 1 {
		t.Errorf("expected 1 active trip, got %d", h.svc.ActiveTrips())
	}
	if _, ok := h.publisher.Find("trip.phase.tracking"); !ok {
		t.Errorf("expected trip.phase.tracking event, got %v", h.publisher.RoutingKeys())
	}
}

func TestStartTrip_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(r *service.StartTripRequest)
		wantErr error
	}{
		{"missing rider", func(r *service.StartTripRequest) { r.RiderID = "" }, service.ErrInvalidRiderID},
		{"missing driver", func(r *service.StartTripRequest) { r.DriverID = "" }, service.ErrInvalidDriverID},
		{"same party", func(r *service.StartTripRequest) { r.DriverID = "rider-1" }, service.ErrSameParty},
		{"unknown role", func(r *service.StartTripRequest) { r.Role = "PASSENGER" }, service.ErrInvalidRole},
		{"wrong counterparty", func(r *service.StartTripRequest) { r.Counterparty.ID = "driver-9" }, trip.ErrInvalidParams},
		{"driver view of driver", func(r *service.StartTripRequest) {
			r.Role = domain.RoleDriver
			r.Counterparty.ID = "driver-1"
		}, trip.ErrInvalidParams},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := newHarness()

			req := startRequest()
			tt.mutate(&req)
			_, err := h.svc.StartTrip(context.Background(), req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
			if h.locks.IsLocked("driver-1") {
				t.Error("driver must not stay locked after a rejected start")
			}
			if h.svc.ActiveTrips() != 0 {
				t.Errorf("expected no active trips, got %d", h.svc.ActiveTrips())
			}
		})
	}
}

func TestStartTrip_DriverViewCounterpartyIsRider(t *testing.T) {
	t.Parallel()
	h := newHarness()

	req := startRequest()
	req.Role = domain.RoleDriver
	req.Counterparty = domain.Counterparty{Name: "Ana"}

	snap, err := h.svc.StartTrip(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Counterparty.ID != "rider-1" {
		t.Errorf("expected counterparty rider-1, got %q", snap.Counterparty.ID)
	}
}

// ──────────────────────────────────────────────
// 2. FULL LIFECYCLE
// ──────────────────────────────────────────────

func TestLifecycle_CashTripFinalized(t *testing.T) {
	t.Parallel()
	h := newHarness()
	ctx := context.Background()

	id := h.reachCompleted(t)

	if _, err := h.svc.SubmitRating(ctx, id, 4, "Muy amable"); err != nil {
		t.Fatalf("SubmitRating: %v", err)
	}
	res, err := h.svc.Finalize(ctx, id)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	if res.Outcome != domain.OutcomeFinalized {
		t.Errorf("expected FINALIZED, got %s", res.Outcome)
	}
	if res.Rating != 4 || res.Comment != "Muy amable" {
		t.Errorf("unexpected rating in result: %d %q", res.Rating, res.Comment)
	}
	if res.PaymentMethod != domain.PaymentMethodCash {
		t.Errorf("expected CASH, got %s", res.PaymentMethod)
	}

	rec := h.repo.GetRecord(id)
	if rec == nil {
		t.Fatal("expected trip record to be persisted")
	}
	if rec.RiderID != "rider-1" || rec.DriverID != "driver-1" {
		t.Errorf("unexpected parties on record: %s %s", rec.RiderID, rec.DriverID)
	}
	if rec.LastPhase != domain.PhaseCompleted {
		t.Errorf("expected last phase COMPLETED, got %s", rec.LastPhase)
	}
	if !rec.StartedAt.Equal(epoch) {
		t.Errorf("expected started at %v, got %v", epoch, rec.StartedAt)
	}

	if h.locks.IsLocked("driver-1") {
		t.Error("expected driver lock to be released")
	}
	if got := h.cache.DriverStatus("driver-1"); got != domain.DriverStatusAvailable {
		t.Errorf("expected driver AVAILABLE, got %s", got)
	}
	if h.cache.HasTrip(id) {
		t.Error("expected cache entry to be invalidated")
	}
	if _, ok := h.locations.Location(id); ok {
		t.Error("expected vehicle location to be removed")
	}
	if h.svc.ActiveTrips() != 0 {
		t.Errorf("expected trip to be forgotten, got %d active", h.svc.ActiveTrips())
	}
	if got := h.metrics.Finished(); len(got) != 1 || got[0].TripID != id {
		t.Errorf("expected one metrics record for %s, got %v", id, got)
	}
}

func TestLifecycle_PublishesEventsInOrder(t *testing.T) {
	t.Parallel()
	h := newHarness()
	ctx := context.Background()

	id := h.reachCompleted(t)
	if _, err := h.svc.SubmitRating(ctx, id, 5, ""); err != nil {
		t.Fatalf("SubmitRating: %v", err)
	}
	if _, err := h.svc.Finalize(ctx, id); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	want := []string{
		"trip.phase.tracking",
		"trip.phase.arrived_notice",
		"trip.phase.payment_selection",
		"trip.phase.in_trip",
		"trip.phase.completed",
		mq.RoutingRatingCompleted,
		mq.RoutingDriverStatus,
	}
	got := h.publisher.RoutingKeys()
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d: expected %s, got %s", i, want[i], got[i])
		}
	}

	ev, _ := h.publisher.Find(mq.RoutingRatingCompleted)
	rating, ok := ev.Payload.(mq.RatingCompleted)
	if !ok {
		t.Fatalf("expected RatingCompleted payload, got %T", ev.Payload)
	}
	if rating.DriverID != "driver-1" || rating.RideID != id || rating.RatingValue != 5 {
		t.Errorf("unexpected rating event: %+v", rating)
	}
}

func TestLifecycle_MobileTransferCarriesReference(t *testing.T) {
	t.Parallel()
	h := newHarness()
	ctx := context.Background()

	id := h.reachPaymentSelection(t)
	if _, err := h.svc.SelectPaymentMethod(ctx, id, domain.PaymentMethodMobileTransfer); err != nil {
		t.Fatalf("SelectPaymentMethod: %v", err)
	}
	snap, err := h.svc.ConfirmPaymentSent(ctx, id)
	if err != nil {
		t.Fatalf("ConfirmPaymentSent: %v", err)
	}
	if snap.Phase != domain.PhaseConfirmingPayment {
		t.Fatalf("expected CONFIRMING_PAYMENT, got %s", snap.Phase)
	}

	h.clock.Advance(3 * time.Second)

	snap, err = h.svc.GetTrip(ctx, id)
	if err != nil {
		t.Fatalf("GetTrip: %v", err)
	}
	if snap.Phase != domain.PhaseInTrip {
		t.Fatalf("expected IN_TRIP, got %s", snap.Phase)
	}
	if !strings.HasPrefix(snap.PaymentReference, "MS-") {
		t.Errorf("expected MS- reference, got %q", snap.PaymentReference)
	}

	ev, ok := h.publisher.Find("trip.phase.in_trip")
	if !ok {
		t.Fatal("expected trip.phase.in_trip event")
	}
	changed := ev.Payload.(mq.PhaseChanged)
	if changed.PaymentReference != snap.PaymentReference {
		t.Errorf("expected event reference %q, got %q", snap.PaymentReference, changed.PaymentReference)
	}
}

// ──────────────────────────────────────────────
// 3. ACTIONS ON UNKNOWN OR RELEASED TRIPS
// ──────────────────────────────────────────────

func TestActions_UnknownTrip(t *testing.T) {
	t.Parallel()
	h := newHarness()
	ctx := context.Background()

	if _, err := h.svc.ConfirmEncounter(ctx, "missing"); !errors.Is(err, service.ErrTripNotFound) {
		t.Errorf("expected ErrTripNotFound, got %v", err)
	}
	if _, err := h.svc.Finalize(ctx, "missing"); !errors.Is(err, service.ErrTripNotFound) {
		t.Errorf("expected ErrTripNotFound, got %v", err)
	}
	if _, err := h.svc.GetTrip(ctx, ""); !errors.Is(err, service.ErrInvalidTripID) {
		t.Errorf("expected ErrInvalidTripID, got %v", err)
	}
}

func TestActions_DisabledActionReturnsControllerError(t *testing.T) {
	t.Parallel()
	h := newHarness()
	ctx := context.Background()

	snap, err := h.svc.StartTrip(ctx, startRequest())
	if err != nil {
		t.Fatalf("StartTrip: %v", err)
	}

	if _, err := h.svc.ConfirmPaymentSent(ctx, snap.TripID); !errors.Is(err, trip.ErrActionDisabled) {
		t.Errorf("expected ErrActionDisabled, got %v", err)
	}
	if _, err := h.svc.SubmitRating(ctx, snap.TripID, 9, ""); !errors.Is(err, trip.ErrInvalidRating) {
		t.Errorf("expected ErrInvalidRating, got %v", err)
	}
	if _, err := h.svc.Finalize(ctx, snap.TripID); !errors.Is(err, trip.ErrActionDisabled) {
		t.Errorf("expected ErrActionDisabled, got %v", err)
	}
}

// ──────────────────────────────────────────────
// 4. CANCELLATION
// ──────────────────────────────────────────────

func TestCancelTrip_ReleasesResources(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		drive     func(t *testing.T, h *harness) string
		wantPhase domain.Phase
	}{
		{
			name: "while tracking",
			drive: func(t *testing.T, h *harness) string {
				snap, err := h.svc.StartTrip(context.Background(), startRequest())
				if err != nil {
					t.Fatalf("StartTrip: %v", err)
				}
				return snap.TripID
			},
			wantPhase: domain.PhaseTracking,
		},
		{
			name: "while confirming payment",
			drive: func(t *testing.T, h *harness) string {
				ctx := context.Background()
				id := h.reachPaymentSelection(t)
				_, _ = h.svc.SelectPaymentMethod(ctx, id, domain.PaymentMethodMobileTransfer)
				_, _ = h.svc.ConfirmPaymentSent(ctx, id)
				return id
			},
			wantPhase: domain.PhaseConfirmingPayment,
		},
		{
			name:      "after completion",
			drive:     func(t *testing.T, h *harness) string { return h.reachCompleted(t) },
			wantPhase: domain.PhaseCompleted,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := newHarness()
			id := tt.drive(t, h)

			res, err := h.svc.CancelTrip(context.Background(), id)
			if err != nil {
				t.Fatalf("CancelTrip: %v", err)
			}
			if res.Outcome != domain.OutcomeCanceled {
				t.Errorf("expected CANCELED, got %s", res.Outcome)
			}
			if res.Phase != tt.wantPhase {
				t.Errorf("expected phase %s, got %s", tt.wantPhase, res.Phase)
			}
			if h.clock.Pending() != 0 {
				t.Errorf("expected no pending timers, got %d", h.clock.Pending())
			}
			if h.locks.IsLocked("driver-1") {
				t.Error("expected driver lock to be released")
			}
			if rec := h.repo.GetRecord(id); rec == nil || rec.Outcome != domain.OutcomeCanceled {
				t.Errorf("expected canceled record, got %+v", rec)
			}
			if _, ok := h.publisher.Find(mq.RoutingTripCancelled); !ok {
				t.Errorf("expected %s event, got %v", mq.RoutingTripCancelled, h.publisher.RoutingKeys())
			}
			if _, err := h.svc.CancelTrip(context.Background(), id); !errors.Is(err, service.ErrTripNotFound) {
				t.Errorf("expected released trip to be gone, got %v", err)
			}
		})
	}
}

func TestCancelTrip_DriverCanStartAgain(t *testing.T) {
	t.Parallel()
	h := newHarness()
	ctx := context.Background()

	snap, err := h.svc.StartTrip(ctx, startRequest())
	if err != nil {
		t.Fatalf("StartTrip: %v", err)
	}
	if _, err := h.svc.CancelTrip(ctx, snap.TripID); err != nil {
		t.Fatalf("CancelTrip: %v", err)
	}
	if _, err := h.svc.StartTrip(ctx, startRequest()); err != nil {
		t.Errorf("expected driver to be free after cancel, got %v", err)
	}
}

func TestShutdown_CancelsEveryTrip(t *testing.T) {
	t.Parallel()
	h := newHarness()
	ctx := context.Background()

	for _, driver := range []string{"driver-1", "driver-2", "driver-3"} {
		req := startRequest()
		req.DriverID = driver
		if _, err := h.svc.StartTrip(ctx, req); err != nil {
			t.Fatalf("StartTrip %s: %v", driver, err)
		}
	}

	h.svc.Shutdown()

	if h.svc.ActiveTrips() != 0 {
		t.Errorf("expected no active trips, got %d", h.svc.ActiveTrips())
	}
	if h.repo.CountRecords() != 3 {
		t.Errorf("expected 3 records, got %d", h.repo.CountRecords())
	}
	if h.clock.Pending() != 0 {
		t.Errorf("expected no pending timers, got %d", h.clock.Pending())
	}
}

// ──────────────────────────────────────────────
// 5. STORE FAILURES
// ──────────────────────────────────────────────

func TestSideEffectFailuresDoNotBlockTrip(t *testing.T) {
	t.Parallel()
	h := newHarness()
	h.repo.CreateError = errors.New("db down")
	h.publisher.PublishError = errors.New("broker down")
	h.cache.SetTripError = errors.New("redis down")
	ctx := context.Background()

	snap, err := h.svc.StartTrip(ctx, startRequest())
	if err != nil {
		t.Fatalf("StartTrip: %v", err)
	}
	h.clock.Advance(time.Second)

	got, err := h.svc.GetTrip(ctx, snap.TripID)
	if err != nil {
		t.Fatalf("GetTrip: %v", err)
	}
	if got.Phase != domain.PhaseArrivedNotice {
		t.Errorf("expected ARRIVED_NOTICE, got %s", got.Phase)
	}

	if _, err := h.svc.CancelTrip(ctx, snap.TripID); err != nil {
		t.Fatalf("CancelTrip: %v", err)
	}
	if h.locks.IsLocked("driver-1") {
		t.Error("expected driver lock to be released even when persistence fails")
	}
}
