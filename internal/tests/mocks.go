package tests

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"motoya/internal/domain"
	"motoya/internal/redis"
	"motoya/internal/repository"
)

// ──────────────────────────────────────────────
// MOCK TRIP REPOSITORY
// ──────────────────────────────────────────────

// MockTripRepository is a mock implementation of TripRepository.
type MockTripRepository struct {
	mu      sync.RWMutex
	records map[string]*domain.TripRecord

	// Counters for verification
	CreateCallCount int32

	// Error injection
	CreateError error
	GetAllError error

	// CreateHook runs at the start of every Create call.
	CreateHook func()
}

// NewMockTripRepository creates a new mock trip repository.
func NewMockTripRepository() *MockTripRepository {
	return &MockTripRepository{
		records: make(map[string]*domain.TripRecord),
	}
}

// AddRecord adds a record to the mock repository.
func (m *MockTripRepository) AddRecord(rec *domain.TripRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.ID] = rec
}

func (m *MockTripRepository) Create(ctx context.Context, rec *domain.TripRecord) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateHook != nil {
		m.CreateHook()
	}
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[rec.ID]; ok {
		return repository.ErrDuplicate
	}
	copy := *rec
	m.records[rec.ID] = &copy
	return nil
}

func (m *MockTripRepository) GetByID(ctx context.Context, id string) (*domain.TripRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *rec
	return &copy, nil
}

func (m *MockTripRepository) GetAll(ctx context.Context) ([]*domain.TripRecord, error) {
	if m.GetAllError != nil {
		return nil, m.GetAllError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.TripRecord, 0, len(m.records))
	for _, r := range m.records {
		copy := *r
		result = append(result, &copy)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].EndedAt.After(result[j].EndedAt)
	})
	return result, nil
}

func (m *MockTripRepository) AverageRatingByDriver(ctx context.Context, driverID string) (float64, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sum, count := 0, 0
	for _, r := range m.records {
		if r.DriverID == driverID && r.Outcome == domain.OutcomeFinalized && r.Rating > 0 {
			sum += r.Rating
			count++
		}
	}
	if count == 0 {
		return 0, 0, nil
	}
	return float64(sum) / float64(count), count, nil
}

// GetRecord returns the record by ID (for test assertions).
func (m *MockTripRepository) GetRecord(id string) *domain.TripRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.records[id]
}

// CountRecords returns the number of stored records.
func (m *MockTripRepository) CountRecords() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// ──────────────────────────────────────────────
// MOCK TRIP CACHE
// ──────────────────────────────────────────────

// MockTripCache is a mock implementation of the redis trip cache.
type MockTripCache struct {
	mu      sync.RWMutex
	trips   map[string]*redis.CachedTrip
	drivers map[string]domain.DriverStatus

	// Counters
	SetTripCallCount int32

	// Error injection
	SetTripError error
}

// NewMockTripCache creates a new mock trip cache.
func NewMockTripCache() *MockTripCache {
	return &MockTripCache{
		trips:   make(map[string]*redis.CachedTrip),
		drivers: make(map[string]domain.DriverStatus),
	}
}

func (m *MockTripCache) GetTrip(ctx context.Context, tripID string) (*redis.CachedTrip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	trip, ok := m.trips[tripID]
	if !ok {
		return nil, nil
	}
	copy := *trip
	return &copy, nil
}

func (m *MockTripCache) SetTrip(ctx context.Context, trip *redis.CachedTrip) error {
	atomic.AddInt32(&m.SetTripCallCount, 1)
	if m.SetTripError != nil {
		return m.SetTripError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *trip
	m.trips[trip.ID] = &copy
	return nil
}

func (m *MockTripCache) InvalidateTrip(ctx context.Context, tripID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.trips, tripID)
	return nil
}

func (m *MockTripCache) SetDriverStatus(ctx context.Context, driverID string, status domain.DriverStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drivers[driverID] = status
	return nil
}

// DriverStatus returns the last status set for a driver.
func (m *MockTripCache) DriverStatus(driverID string) domain.DriverStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.drivers[driverID]
}

// HasTrip checks if a trip snapshot is cached.
func (m *MockTripCache) HasTrip(tripID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.trips[tripID]
	return ok
}

// ──────────────────────────────────────────────
// MOCK LOCATION STORE
// ──────────────────────────────────────────────

// MockLocationStore is a mock implementation of LocationStore.
type MockLocationStore struct {
	mu        sync.RWMutex
	locations map[string]domain.Point

	// Counters
	UpdateLocationCallCount int32

	// Error injection
	UpdateLocationError error
}

// NewMockLocationStore creates a new mock location store.
func NewMockLocationStore() *MockLocationStore {
	return &MockLocationStore{
		locations: make(map[string]domain.Point),
	}
}

func (m *MockLocationStore) UpdateLocation(ctx context.Context, tripID string, p domain.Point) error {
	atomic.AddInt32(&m.UpdateLocationCallCount, 1)
	if m.UpdateLocationError != nil {
		return m.UpdateLocationError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations[tripID] = p
	return nil
}

func (m *MockLocationStore) RemoveLocation(ctx context.Context, tripID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locations, tripID)
	return nil
}

// Location returns the stored position of a trip's vehicle.
func (m *MockLocationStore) Location(tripID string) (domain.Point, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.locations[tripID]
	return p, ok
}

// ──────────────────────────────────────────────
// MOCK LOCK STORE
// ──────────────────────────────────────────────

// MockLockStore is a mock implementation of LockStore.
type MockLockStore struct {
	mu    sync.Mutex
	locks map[string]string // driverID -> tripID

	// Counters
	AcquireCallCount int32
	ReleaseCallCount int32

	// Error injection
	AcquireError error
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{
		locks: make(map[string]string),
	}
}

func (m *MockLockStore) AcquireDriverLock(ctx context.Context, driverID, tripID string, ttl time.Duration) (bool, error) {
	atomic.AddInt32(&m.AcquireCallCount, 1)
	if m.AcquireError != nil {
		return false, m.AcquireError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, held := m.locks[driverID]; held {
		return false, nil
	}
	m.locks[driverID] = tripID
	return true, nil
}

func (m *MockLockStore) ReleaseDriverLock(ctx context.Context, driverID, tripID string) error {
	atomic.AddInt32(&m.ReleaseCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[driverID] == tripID {
		delete(m.locks, driverID)
	}
	return nil
}

// IsLocked checks if a driver is locked (for test assertions).
func (m *MockLockStore) IsLocked(driverID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, held := m.locks[driverID]
	return held
}

// ──────────────────────────────────────────────
// MOCK EVENT PUBLISHER
// ──────────────────────────────────────────────

// PublishedEvent is a message captured by MockPublisher.
type PublishedEvent struct {
	RoutingKey string
	Payload    any
}

// MockPublisher records published events.
type MockPublisher struct {
	mu     sync.Mutex
	events []PublishedEvent

	// Error injection
	PublishError error
}

// NewMockPublisher creates a new mock publisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(ctx context.Context, routingKey string, payload any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, PublishedEvent{RoutingKey: routingKey, Payload: payload})
	return m.PublishError
}

// RoutingKeys returns the routing keys in publish order.
func (m *MockPublisher) RoutingKeys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.events))
	for _, e := range m.events {
		keys = append(keys, e.RoutingKey)
	}
	return keys
}

// Find returns the first event published with routingKey.
func (m *MockPublisher) Find(routingKey string) (PublishedEvent, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.events {
		if e.RoutingKey == routingKey {
			return e, true
		}
	}
	return PublishedEvent{}, false
}

// ──────────────────────────────────────────────
// MOCK METRICS
// ──────────────────────────────────────────────

// MockMetrics records finished trips.
type MockMetrics struct {
	mu       sync.Mutex
	finished []domain.Result
}

func (m *MockMetrics) TripFinished(r domain.Result, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finished = append(m.finished, r)
}

// Finished returns the recorded results.
func (m *MockMetrics) Finished() []domain.Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Result(nil), m.finished...)
}

// ErrMockTimeout simulates a store that does not answer in time.
var ErrMockTimeout = errors.New("mock: i/o timeout")

// atomic32 reads a call counter.
func atomic32(p *int32) int32 {
	return atomic.LoadInt32(p)
}
