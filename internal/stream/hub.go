// Package stream fans trip snapshots out to live subscribers and serves them
// over websockets.
package stream

import (
	"sync"

	"motoya/internal/domain"
)

// subscriberBuffer is how many snapshots a slow subscriber may lag behind
// before older ones are dropped.
const subscriberBuffer = 16

// Subscription receives the snapshots of one trip.
type Subscription struct {
	tripID string
	ch     chan domain.Snapshot
	hub    *Hub
	once   sync.Once
}

// C is closed when the trip is released or the subscription is cancelled.
func (s *Subscription) C() <-chan domain.Snapshot {
	return s.ch
}

// TripID returns the trip the subscription follows.
func (s *Subscription) TripID() string {
	return s.tripID
}

// Unsubscribe stops delivery and closes C. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.hub.remove(s)
}

// Hub keeps the subscribers of every active trip.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[*Subscription]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*Subscription]struct{})}
}

// Subscribe registers a subscriber for tripID.
func (h *Hub) Subscribe(tripID string) *Subscription {
	sub := &Subscription{
		tripID: tripID,
		ch:     make(chan domain.Snapshot, subscriberBuffer),
		hub:    h,
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[tripID] == nil {
		h.subs[tripID] = make(map[*Subscription]struct{})
	}
	h.subs[tripID][sub] = struct{}{}
	return sub
}

// Publish delivers s to every subscriber of its trip without blocking.
// A subscriber whose buffer is full loses its oldest pending snapshot.
func (h *Hub) Publish(s domain.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subs[s.TripID] {
		select {
		case sub.ch <- s:
			continue
		default:
		}
		select {
		case <-sub.ch:
		default:
		}
		select {
		case sub.ch <- s:
		default:
		}
	}
}

// CloseTrip ends every subscription of tripID.
func (h *Hub) CloseTrip(tripID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subs[tripID] {
		sub.once.Do(func() { close(sub.ch) })
	}
	delete(h.subs, tripID)
}

// Subscribers returns how many subscribers follow tripID.
func (h *Hub) Subscribers(tripID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[tripID])
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if subs, ok := h.subs[sub.tripID]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(h.subs, sub.tripID)
		}
	}
	sub.once.Do(func() { close(sub.ch) })
}
