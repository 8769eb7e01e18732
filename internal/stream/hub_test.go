package stream

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"motoya/internal/domain"
)

func TestHub_PublishReachesTripSubscribersOnly(t *testing.T) {
	t.Parallel()

	h := NewHub()
	a := h.Subscribe("trip-a")
	b := h.Subscribe("trip-b")

	h.Publish(domain.Snapshot{TripID: "trip-a", Phase: domain.PhaseInTrip})

	select {
	case s := <-a.C():
		if s.Phase != domain.PhaseInTrip {
			t.Errorf("expected IN_TRIP, got %s", s.Phase)
		}
	default:
		t.Fatal("subscriber of trip-a got nothing")
	}
	select {
	case s := <-b.C():
		t.Errorf("subscriber of trip-b got %+v", s)
	default:
	}
}

func TestHub_SlowSubscriberKeepsLatest(t *testing.T) {
	t.Parallel()

	h := NewHub()
	sub := h.Subscribe("trip-1")

	for i := 1; i <= subscriberBuffer+5; i++ {
		h.Publish(domain.Snapshot{TripID: "trip-1", Ticks: i})
	}

	var last domain.Snapshot
	n := 0
	for len(sub.C()) > 0 {
		last = <-sub.C()
		n++
	}
	if n != subscriberBuffer {
		t.Errorf("expected %d buffered snapshots, got %d", subscriberBuffer, n)
	}
	if last.Ticks != subscriberBuffer+5 {
		t.Errorf("latest snapshot must survive, got tick %d", last.Ticks)
	}
}

func TestHub_CloseTripEndsSubscriptions(t *testing.T) {
	t.Parallel()

	h := NewHub()
	sub := h.Subscribe("trip-1")
	h.CloseTrip("trip-1")

	if _, ok := <-sub.C(); ok {
		t.Error("channel should be closed")
	}
	sub.Unsubscribe()
	if h.Subscribers("trip-1") != 0 {
		t.Errorf("expected no subscribers, got %d", h.Subscribers("trip-1"))
	}
	// Publishing to a closed trip must not panic.
	h.Publish(domain.Snapshot{TripID: "trip-1"})
}

func TestServeWS_PushesSnapshotsUntilRelease(t *testing.T) {
	t.Parallel()

	h := NewHub()
	encode := func(s domain.Snapshot) any {
		return map[string]any{"trip_id": s.TripID, "phase": s.Phase}
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sub := h.Subscribe("trip-1")
		ServeWS(w, r, sub, domain.Snapshot{TripID: "trip-1", Phase: domain.PhaseTracking}, encode)
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var msg map[string]string
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read initial: %v", err)
	}
	if msg["phase"] != string(domain.PhaseTracking) {
		t.Errorf("expected initial TRACKING, got %v", msg)
	}

	deadline := time.Now().Add(2 * time.Second)
	for h.Subscribers("trip-1") == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered")
		}
		time.Sleep(time.Millisecond)
	}
	h.Publish(domain.Snapshot{TripID: "trip-1", Phase: domain.PhaseArrivedNotice})

	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read update: %v", err)
	}
	if msg["phase"] != string(domain.PhaseArrivedNotice) {
		t.Errorf("expected ARRIVED_NOTICE, got %v", msg)
	}

	h.CloseTrip("trip-1")
	_, _, err = conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Errorf("expected normal close, got %v", err)
	}
}
