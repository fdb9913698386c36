package service

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// VehicleLocker serialises the validate-then-persist section of writes for
// one vehicle. Writes for different vehicles proceed in parallel.
type VehicleLocker interface {
	WithVehicleLock(ctx context.Context, vehicleID uuid.UUID, fn func(ctx context.Context) error) error
}

// KeyedLocker is an in-process VehicleLocker. It only protects a single
// server instance; use repo.AdvisoryLocker when running several.
type KeyedLocker struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*vehicleLock
}

type vehicleLock struct {
	sem  chan struct{}
	refs int
}

// NewKeyedLocker returns an empty KeyedLocker.
func NewKeyedLocker() *KeyedLocker {
	return &KeyedLocker{locks: make(map[uuid.UUID]*vehicleLock)}
}

// WithVehicleLock waits for the vehicle's lock or for ctx to end, then runs fn.
func (l *KeyedLocker) WithVehicleLock(ctx context.Context, vehicleID uuid.UUID, fn func(ctx context.Context) error) error {
	vl := l.ref(vehicleID)
	defer l.unref(vehicleID, vl)

	select {
	case vl.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-vl.sem }()

	return fn(ctx)
}

func (l *KeyedLocker) ref(id uuid.UUID) *vehicleLock {
	l.mu.Lock()
	defer l.mu.Unlock()
	vl, ok := l.locks[id]
	if !ok {
		vl = &vehicleLock{sem: make(chan struct{}, 1)}
		l.locks[id] = vl
	}
	vl.refs++
	return vl
}

// unref drops the entry once nobody holds or waits for it, so the map does
// not grow with every vehicle ever written.
func (l *KeyedLocker) unref(id uuid.UUID, vl *vehicleLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	vl.refs--
	if vl.refs == 0 {
		delete(l.locks, id)
	}
}

// size reports the number of live lock entries. Used by tests.
func (l *KeyedLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
