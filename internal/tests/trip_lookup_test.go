package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"motoya/internal/domain"
	"motoya/internal/redis"
	"motoya/internal/service"
)

// ──────────────────────────────────────────────
// 7. LOOKUPS AND HISTORY
// ──────────────────────────────────────────────

func TestLookupTrip_Sources(t *testing.T) {
	t.Parallel()
	h := newHarness()
	ctx := context.Background()

	snap, err := h.svc.StartTrip(ctx, startRequest())
	if err != nil {
		t.Fatalf("StartTrip: %v", err)
	}

	_ = h.cache.SetTrip(ctx, &redis.CachedTrip{ID: "remote-1", Phase: string(domain.PhaseInTrip)})
	h.repo.AddRecord(&domain.TripRecord{ID: "old-1", Outcome: domain.OutcomeFinalized, EndedAt: epoch})

	tests := []struct {
		name         string
		tripID       string
		wantActive   bool
		wantCached   bool
		wantFinished bool
		wantErr      error
	}{
		{name: "running here", tripID: snap.TripID, wantActive: true},
		{name: "running elsewhere", tripID: "remote-1", wantCached: true},
		{name: "finished", tripID: "old-1", wantFinished: true},
		{name: "unknown", tripID: "nope", wantErr: service.ErrTripNotFound},
		{name: "empty id", tripID: "", wantErr: service.ErrInvalidTripID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := h.svc.LookupTrip(ctx, tt.tripID)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if (got.Active != nil) != tt.wantActive {
				t.Errorf("active: expected %v, got %v", tt.wantActive, got.Active != nil)
			}
			if (got.Cached != nil) != tt.wantCached {
				t.Errorf("cached: expected %v, got %v", tt.wantCached, got.Cached != nil)
			}
			if (got.Finished != nil) != tt.wantFinished {
				t.Errorf("finished: expected %v, got %v", tt.wantFinished, got.Finished != nil)
			}
		})
	}
}

func TestHistory_NewestFirst(t *testing.T) {
	t.Parallel()
	h := newHarness()

	h.repo.AddRecord(&domain.TripRecord{ID: "a", EndedAt: epoch})
	h.repo.AddRecord(&domain.TripRecord{ID: "b", EndedAt: epoch.Add(time.Hour)})
	h.repo.AddRecord(&domain.TripRecord{ID: "c", EndedAt: epoch.Add(30 * time.Minute)})

	got, err := h.svc.History(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"b", "c", "a"}
	if len(got) != len(want) {
		t.Fatalf("expected %d records, got %d", len(want), len(got))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, got[i].ID)
		}
	}
}

func TestDriverRating(t *testing.T) {
	t.Parallel()
	h := newHarness()

	for i, r := range []struct {
		rating  int
		outcome domain.Outcome
	}{
		{5, domain.OutcomeFinalized},
		{4, domain.OutcomeFinalized},
		{4, domain.OutcomeFinalized},
		{1, domain.OutcomeCanceled},
	} {
		h.repo.AddRecord(&domain.TripRecord{
			ID:       string(rune('a' + i)),
			DriverID: "driver-1",
			Outcome:  r.outcome,
			Rating:   r.rating,
		})
	}

	got, err := h.svc.DriverRating(context.Background(), "driver-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Count != 3 {
		t.Errorf("expected 3 ratings, got %d", got.Count)
	}
	if got.Average != 4.33 {
		t.Errorf("expected average 4.33, got %v", got.Average)
	}
	if got.Label != "¡Muy bueno!" {
		t.Errorf("unexpected label %q", got.Label)
	}

	if _, err := h.svc.DriverRating(context.Background(), ""); !errors.Is(err, service.ErrInvalidDriverID) {
		t.Errorf("expected ErrInvalidDriverID, got %v", err)
	}
}

func TestDriverRating_NoRatings(t *testing.T) {
	t.Parallel()
	h := newHarness()

	got, err := h.svc.DriverRating(context.Background(), "driver-9")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Count != 0 || got.Average != 0 || got.Label != "" {
		t.Errorf("expected empty rating, got %+v", got)
	}
}

// ──────────────────────────────────────────────
// 8. TRANSFER INSTRUCTIONS
// ──────────────────────────────────────────────

func TestTransferInstructions(t *testing.T) {
	t.Parallel()
	h := newHarness()
	ctx := context.Background()

	id := h.reachPaymentSelection(t)

	if _, err := h.svc.TransferInstructions(ctx, id); !errors.Is(err, service.ErrNoTransferInstructions) {
		t.Errorf("expected ErrNoTransferInstructions before selection, got %v", err)
	}

	if _, err := h.svc.SelectPaymentMethod(ctx, id, domain.PaymentMethodMobileTransfer); err != nil {
		t.Fatalf("SelectPaymentMethod: %v", err)
	}
	got, err := h.svc.TransferInstructions(ctx, id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.BankCode != "0102" || got.Phone != "04141234567" || got.RecipientID != "V-12345678" {
		t.Errorf("unexpected instructions: %+v", got)
	}

	if _, err := h.svc.SelectPaymentMethod(ctx, id, domain.PaymentMethodCash); err != nil {
		t.Fatalf("SelectPaymentMethod: %v", err)
	}
	if _, err := h.svc.TransferInstructions(ctx, id); !errors.Is(err, service.ErrNoTransferInstructions) {
		t.Errorf("expected ErrNoTransferInstructions for cash, got %v", err)
	}
}

// ──────────────────────────────────────────────
// 9. LIVE UPDATES
// ──────────────────────────────────────────────

func TestSubscribe_ReceivesUpdatesUntilRelease(t *testing.T) {
	t.Parallel()
	h := newHarness()
	ctx := context.Background()

	snap, err := h.svc.StartTrip(ctx, startRequest())
	if err != nil {
		t.Fatalf("StartTrip: %v", err)
	}

	sub, initial, err := h.svc.Subscribe(ctx, snap.TripID)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if initial.Phase != domain.PhaseTracking {
		t.Errorf("expected initial TRACKING, got %s", initial.Phase)
	}

	h.clock.Advance(time.Second)

	select {
	case got := <-sub.C():
		if got.Phase != domain.PhaseArrivedNotice {
			t.Errorf("expected ARRIVED_NOTICE, got %s", got.Phase)
		}
	default:
		t.Fatal("expected an update after the tick")
	}

	if _, err := h.svc.CancelTrip(ctx, snap.TripID); err != nil {
		t.Fatalf("CancelTrip: %v", err)
	}

	// The release snapshot arrives, then the channel closes.
	var last domain.Snapshot
	for s := range sub.C() {
		last = s
	}
	if last.Outcome != domain.OutcomeCanceled {
		t.Errorf("expected final CANCELED snapshot, got %s", last.Outcome)
	}
	if h.hub.Subscribers(snap.TripID) != 0 {
		t.Errorf("expected no subscribers, got %d", h.hub.Subscribers(snap.TripID))
	}
}

func TestSubscribe_TripBeingReleased(t *testing.T) {
	t.Parallel()
	h := newHarness()
	ctx := context.Background()

	entered := make(chan struct{})
	release := make(chan struct{})
	h.repo.CreateHook = func() {
		close(entered)
		<-release
	}

	snap, err := h.svc.StartTrip(ctx, startRequest())
	if err != nil {
		t.Fatalf("StartTrip: %v", err)
	}

	canceled := make(chan struct{})
	go func() {
		defer close(canceled)
		_, _ = h.svc.CancelTrip(ctx, snap.TripID)
	}()
	<-entered

	// The record is being written, so the trip is released but still hosted.
	_, _, err = h.svc.Subscribe(ctx, snap.TripID)
	if !errors.Is(err, service.ErrTripNotFound) {
		t.Errorf("expected ErrTripNotFound, got %v", err)
	}
	if n := h.hub.Subscribers(snap.TripID); n != 0 {
		t.Errorf("expected no subscribers, got %d", n)
	}

	close(release)
	<-canceled

	if h.svc.ActiveTrips() != 0 {
		t.Errorf("expected no active trips, got %d", h.svc.ActiveTrips())
	}
	if n := h.hub.Subscribers(snap.TripID); n != 0 {
		t.Errorf("expected no subscribers after release, got %d", n)
	}
}

func TestSubscribe_UnknownTrip(t *testing.T) {
	t.Parallel()
	h := newHarness()

	if _, _, err := h.svc.Subscribe(context.Background(), "missing"); !errors.Is(err, service.ErrTripNotFound) {
		t.Errorf("expected ErrTripNotFound, got %v", err)
	}
}

// ──────────────────────────────────────────────
// 10. VEHICLE LOCATION
// ──────────────────────────────────────────────

func TestVehicleLocation_RecordedEveryTick(t *testing.T) {
	t.Parallel()
	h := newHarness()
	ctx := context.Background()

	req := startRequest()
	req.Vehicle = domain.Point{Lat: 6, Lng: 8}
	snap, err := h.svc.StartTrip(ctx, req)
	if err != nil {
		t.Fatalf("StartTrip: %v", err)
	}

	h.clock.Advance(2 * time.Second)

	// One write on start plus one per tick.
	if got := atomic32(&h.locations.UpdateLocationCallCount); got != 3 {
		t.Errorf("expected 3 location writes, got %d", got)
	}
	current, err := h.svc.GetTrip(ctx, snap.TripID)
	if err != nil {
		t.Fatalf("GetTrip: %v", err)
	}
	stored, ok := h.locations.Location(snap.TripID)
	if !ok {
		t.Fatal("expected a stored location")
	}
	if stored != current.Vehicle {
		t.Errorf("expected stored %v to match vehicle %v", stored, current.Vehicle)
	}
}

func TestVehicleLocation_StoreErrorDoesNotStopMovement(t *testing.T) {
	t.Parallel()
	h := newHarness()
	h.locations.UpdateLocationError = ErrMockTimeout
	ctx := context.Background()

	req := startRequest()
	req.Vehicle = domain.Point{Lat: 6, Lng: 8}
	snap, err := h.svc.StartTrip(ctx, req)
	if err != nil {
		t.Fatalf("StartTrip: %v", err)
	}

	h.clock.Advance(time.Second)

	current, _ := h.svc.GetTrip(ctx, snap.TripID)
	if current.Ticks != 1 {
		t.Errorf("expected 1 tick, got %d", current.Ticks)
	}
	if current.Vehicle == req.Vehicle {
		t.Error("expected vehicle to move despite store errors")
	}
}
