package service_test

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/ritlog/internal/domain"
	"github.com/pkordes/ritlog/internal/repo"
	"github.com/pkordes/ritlog/internal/service"
)

// Hand-written test doubles. Each method is a function field; set only the
// ones a test needs. Calling an unset one panics, which fails the test loudly.

type mockVehicleRepo struct {
	create             func(ctx context.Context, v domain.Vehicle) (domain.Vehicle, error)
	getByID            func(ctx context.Context, id uuid.UUID) (domain.Vehicle, error)
	listForUser        func(ctx context.Context, userID uuid.UUID) ([]domain.Vehicle, error)
	updateTrackingMode func(ctx context.Context, id uuid.UUID, mode domain.TrackingMode) (domain.Vehicle, error)
	delete             func(ctx context.Context, id uuid.UUID) error
	share              func(ctx context.Context, vehicleID, userID uuid.UUID) error
	unshare            func(ctx context.Context, vehicleID, userID uuid.UUID) error
	hasAccess          func(ctx context.Context, vehicleID, userID uuid.UUID) (bool, error)
}

func (m *mockVehicleRepo) Create(ctx context.Context, v domain.Vehicle) (domain.Vehicle, error) {
	return m.create(ctx, v)
}
func (m *mockVehicleRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Vehicle, error) {
	return m.getByID(ctx, id)
}
func (m *mockVehicleRepo) ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.Vehicle, error) {
	return m.listForUser(ctx, userID)
}
func (m *mockVehicleRepo) UpdateTrackingMode(ctx context.Context, id uuid.UUID, mode domain.TrackingMode) (domain.Vehicle, error) {
	return m.updateTrackingMode(ctx, id, mode)
}
func (m *mockVehicleRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return m.delete(ctx, id)
}
func (m *mockVehicleRepo) Share(ctx context.Context, vehicleID, userID uuid.UUID) error {
	return m.share(ctx, vehicleID, userID)
}
func (m *mockVehicleRepo) Unshare(ctx context.Context, vehicleID, userID uuid.UUID) error {
	return m.unshare(ctx, vehicleID, userID)
}
func (m *mockVehicleRepo) HasAccess(ctx context.Context, vehicleID, userID uuid.UUID) (bool, error) {
	return m.hasAccess(ctx, vehicleID, userID)
}

var _ repo.VehicleRepo = (*mockVehicleRepo)(nil)

type mockTripRepo struct {
	create                   func(ctx context.Context, trip domain.Trip) (domain.Trip, error)
	getByID                  func(ctx context.Context, id uuid.UUID) (domain.Trip, error)
	listByVehicle            func(ctx context.Context, vehicleID uuid.UUID) ([]domain.Trip, error)
	listByVehiclePaged       func(ctx context.Context, vehicleID uuid.UUID, p domain.PaginationParams) ([]domain.Trip, int64, error)
	listByVehicleBetween     func(ctx context.Context, vehicleID uuid.UUID, from, to time.Time) ([]domain.Trip, error)
	listRecent               func(ctx context.Context, vehicleID uuid.UUID, n int) ([]domain.Trip, error)
	listIncompleteCalculated func(ctx context.Context, vehicleID uuid.UUID, before time.Time) ([]domain.Trip, error)
	update                   func(ctx context.Context, trip domain.Trip) (domain.Trip, error)
	delete                   func(ctx context.Context, id uuid.UUID) error
}

func (m *mockTripRepo) Create(ctx context.Context, trip domain.Trip) (domain.Trip, error) {
	return m.create(ctx, trip)
}
func (m *mockTripRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Trip, error) {
	return m.getByID(ctx, id)
}
func (m *mockTripRepo) ListByVehicle(ctx context.Context, vehicleID uuid.UUID) ([]domain.Trip, error) {
	return m.listByVehicle(ctx, vehicleID)
}
func (m *mockTripRepo) ListByVehiclePaged(ctx context.Context, vehicleID uuid.UUID, p domain.PaginationParams) ([]domain.Trip, int64, error) {
	return m.listByVehiclePaged(ctx, vehicleID, p)
}
func (m *mockTripRepo) ListByVehicleBetween(ctx context.Context, vehicleID uuid.UUID, from, to time.Time) ([]domain.Trip, error) {
	return m.listByVehicleBetween(ctx, vehicleID, from, to)
}
func (m *mockTripRepo) ListRecent(ctx context.Context, vehicleID uuid.UUID, n int) ([]domain.Trip, error) {
	return m.listRecent(ctx, vehicleID, n)
}
func (m *mockTripRepo) ListIncompleteCalculated(ctx context.Context, vehicleID uuid.UUID, before time.Time) ([]domain.Trip, error) {
	return m.listIncompleteCalculated(ctx, vehicleID, before)
}
func (m *mockTripRepo) Update(ctx context.Context, trip domain.Trip) (domain.Trip, error) {
	return m.update(ctx, trip)
}
func (m *mockTripRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return m.delete(ctx, id)
}

var _ repo.TripRepo = (*mockTripRepo)(nil)

type mockReadingRepo struct {
	create        func(ctx context.Context, r domain.OdometerReading) (domain.OdometerReading, error)
	listByVehicle func(ctx context.Context, vehicleID uuid.UUID) ([]domain.OdometerReading, error)
	delete        func(ctx context.Context, vehicleID, readingID uuid.UUID) error
}

func (m *mockReadingRepo) Create(ctx context.Context, r domain.OdometerReading) (domain.OdometerReading, error) {
	return m.create(ctx, r)
}
func (m *mockReadingRepo) ListByVehicle(ctx context.Context, vehicleID uuid.UUID) ([]domain.OdometerReading, error) {
	return m.listByVehicle(ctx, vehicleID)
}
func (m *mockReadingRepo) Delete(ctx context.Context, vehicleID, readingID uuid.UUID) error {
	return m.delete(ctx, vehicleID, readingID)
}

var _ repo.ReadingRepo = (*mockReadingRepo)(nil)

// recordingNotifier keeps every enqueued event. err, when set, is returned
// from every call after recording it.
type recordingNotifier struct {
	mu     sync.Mutex
	events []enqueued
	err    error
	panics bool
}

type enqueued struct {
	Type    domain.EventType
	Payload any
}

func (n *recordingNotifier) Enqueue(_ context.Context, eventType domain.EventType, payload any) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.panics {
		panic("notifier exploded")
	}
	n.events = append(n.events, enqueued{eventType, payload})
	return n.err
}

func (n *recordingNotifier) ofType(t domain.EventType) []any {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []any
	for _, e := range n.events {
		if e.Type == t {
			out = append(out, e.Payload)
		}
	}
	return out
}

var _ service.Notifier = (*recordingNotifier)(nil)

// countingLocker runs fn directly and counts how often a lock was taken.
type countingLocker struct {
	mu    sync.Mutex
	calls int
}

func (l *countingLocker) WithVehicleLock(ctx context.Context, _ uuid.UUID, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	l.calls++
	l.mu.Unlock()
	return fn(ctx)
}

var _ service.VehicleLocker = (*countingLocker)(nil)
