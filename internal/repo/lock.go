package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	lockRetryMin = 10 * time.Millisecond
	lockRetryMax = 250 * time.Millisecond
)

// AdvisoryLocker serialises per-vehicle critical sections across server
// instances with Postgres session-level advisory locks.
//
// Waiters poll with pg_try_advisory_lock and hold no connection between
// attempts. Only the holder keeps a connection of pool for the duration of
// fn. Give the locker its own pool so holders never compete with the
// queries fn runs.
type AdvisoryLocker struct {
	pool *pgxpool.Pool
}

// NewAdvisoryLocker constructs an AdvisoryLocker on the given pool.
func NewAdvisoryLocker(pool *pgxpool.Pool) *AdvisoryLocker {
	return &AdvisoryLocker{pool: pool}
}

// WithVehicleLock waits until the vehicle's lock is acquired (or ctx ends),
// runs fn, and releases the lock.
func (l *AdvisoryLocker) WithVehicleLock(ctx context.Context, vehicleID uuid.UUID, fn func(ctx context.Context) error) error {
	key := pgx.NamedArgs{"key": vehicleID.String()}

	conn, err := l.acquire(ctx, key)
	if err != nil {
		return err
	}
	defer conn.Release()

	defer func() {
		// A request context may already be cancelled here; the lock must still go.
		unlockCtx := context.WithoutCancel(ctx)
		if _, err := conn.Exec(unlockCtx, `SELECT pg_advisory_unlock(hashtextextended(@key, 0))`, key); err != nil {
			// Closing the session drops every advisory lock it holds, and the
			// pool discards closed connections on Release.
			_ = conn.Conn().Close(unlockCtx)
		}
	}()

	return fn(ctx)
}

// acquire returns the connection that holds the lock for key.
func (l *AdvisoryLocker) acquire(ctx context.Context, key pgx.NamedArgs) (*pgxpool.Conn, error) {
	wait := lockRetryMin
	for {
		conn, err := l.pool.Acquire(ctx)
		if err != nil {
			return nil, fmt.Errorf("repo.AdvisoryLocker: acquire: %w", err)
		}

		var locked bool
		err = conn.QueryRow(ctx, `SELECT pg_try_advisory_lock(hashtextextended(@key, 0))`, key).Scan(&locked)
		if err != nil {
			conn.Release()
			return nil, fmt.Errorf("repo.AdvisoryLocker: lock: %w", err)
		}
		if locked {
			return conn, nil
		}
		conn.Release()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("repo.AdvisoryLocker: lock: %w", ctx.Err())
		case <-timer.C:
		}
		wait = min(wait*2, lockRetryMax)
	}
}
