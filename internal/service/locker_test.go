package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedLocker_SerialisesSameVehicle(t *testing.T) {
	l := NewKeyedLocker()
	id := uuid.New()

	var (
		inside  atomic.Int32
		overlap atomic.Bool
		wg      sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = l.WithVehicleLock(context.Background(), id, func(context.Context) error {
				if inside.Add(1) > 1 {
					overlap.Store(true)
				}
				time.Sleep(5 * time.Millisecond)
				inside.Add(-1)
				return nil
			})
		}()
	}
	wg.Wait()

	assert.False(t, overlap.Load())
	assert.Zero(t, l.size(), "entries are released once idle")
}

func TestKeyedLocker_OtherVehiclesProceed(t *testing.T) {
	l := NewKeyedLocker()
	held := make(chan struct{})
	release := make(chan struct{})

	go func() {
		_ = l.WithVehicleLock(context.Background(), uuid.New(), func(context.Context) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	done := make(chan error, 1)
	go func() {
		done <- l.WithVehicleLock(context.Background(), uuid.New(), func(context.Context) error { return nil })
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("lock on another vehicle blocked")
	}
	close(release)
}

func TestKeyedLocker_ContextCancelledWhileWaiting(t *testing.T) {
	l := NewKeyedLocker()
	id := uuid.New()
	held := make(chan struct{})
	release := make(chan struct{})
	finished := make(chan struct{})

	go func() {
		defer close(finished)
		_ = l.WithVehicleLock(context.Background(), id, func(context.Context) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	ran := false
	err := l.WithVehicleLock(ctx, id, func(context.Context) error {
		ran = true
		return nil
	})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, ran)

	close(release)
	<-finished
	assert.Zero(t, l.size())
}
