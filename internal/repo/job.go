package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/ritlog/internal/domain"
)

// JobRepo is the Postgres-backed job queue that side-channel events are
// enqueued into. A dispatcher claims pending jobs and forwards them.
type JobRepo interface {
	// Enqueue stores payload as JSON under the given event type.
	Enqueue(ctx context.Context, eventType domain.EventType, payload any) error

	// ClaimPending marks up to n due jobs as running and returns them. Jobs
	// left running for longer than lease by a claimer that never reported
	// back are claimed again. Concurrent claimers never receive the same job.
	ClaimPending(ctx context.Context, n int, lease time.Duration) ([]domain.Job, error)

	// MarkDone records successful dispatch.
	MarkDone(ctx context.Context, id uuid.UUID) error

	// MarkFailed records a dispatch error. The job is retried after backoff
	// until it has been attempted maxAttempts times, then parked as failed.
	MarkFailed(ctx context.Context, id uuid.UUID, cause error, backoff time.Duration, maxAttempts int) error
}

// pgJobRepo is the Postgres implementation of JobRepo.
type pgJobRepo struct {
	db db
}

// NewJobRepo constructs a JobRepo backed by the provided db connection.
func NewJobRepo(db db) JobRepo {
	return &pgJobRepo{db: db}
}

func (r *pgJobRepo) Enqueue(ctx context.Context, eventType domain.EventType, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("repo.JobRepo.Enqueue: marshal: %w", err)
	}

	const q = `INSERT INTO jobs (type, payload) VALUES (@type, @payload)`
	if _, err := r.db.Exec(ctx, q, pgx.NamedArgs{"type": string(eventType), "payload": body}); err != nil {
		return fmt.Errorf("repo.JobRepo.Enqueue: %w", err)
	}
	return nil
}

func (r *pgJobRepo) ClaimPending(ctx context.Context, n int, lease time.Duration) ([]domain.Job, error) {
	const q = `
		UPDATE jobs
		SET status     = 'running',
		    attempts   = attempts + 1,
		    updated_at = now()
		WHERE id IN (
			SELECT id FROM jobs
			WHERE (status = 'pending' AND run_after <= now())
			   OR (status = 'running' AND updated_at < now() - make_interval(secs => @lease_secs))
			ORDER BY created_at
			LIMIT @n
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, type, payload, attempts, last_error, created_at`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"n": n, "lease_secs": lease.Seconds()})
	if err != nil {
		return nil, fmt.Errorf("repo.JobRepo.ClaimPending: %w", err)
	}
	jobs, err := collect(rows, scanJob)
	if err != nil {
		return nil, fmt.Errorf("repo.JobRepo.ClaimPending: scan: %w", err)
	}
	return jobs, nil
}

func (r *pgJobRepo) MarkDone(ctx context.Context, id uuid.UUID) error {
	const q = `UPDATE jobs SET status = 'done', updated_at = now() WHERE id = @id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id})
	if err != nil {
		return fmt.Errorf("repo.JobRepo.MarkDone: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.JobRepo.MarkDone: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *pgJobRepo) MarkFailed(ctx context.Context, id uuid.UUID, cause error, backoff time.Duration, maxAttempts int) error {
	const q = `
		UPDATE jobs
		SET status     = CASE WHEN attempts >= @max_attempts THEN 'failed' ELSE 'pending' END,
		    last_error = @last_error,
		    run_after  = now() + make_interval(secs => @backoff_secs),
		    updated_at = now()
		WHERE id = @id`

	args := pgx.NamedArgs{
		"id":           id,
		"max_attempts": maxAttempts,
		"last_error":   cause.Error(),
		"backoff_secs": backoff.Seconds(),
	}
	tag, err := r.db.Exec(ctx, q, args)
	if err != nil {
		return fmt.Errorf("repo.JobRepo.MarkFailed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.JobRepo.MarkFailed: %w", domain.ErrNotFound)
	}
	return nil
}

func scanJob(s scanner) (domain.Job, error) {
	var (
		j       domain.Job
		id      pgtype.UUID
		jobType string
	)
	if err := s.Scan(&id, &jobType, &j.Payload, &j.Attempts, &j.LastError, &j.CreatedAt); err != nil {
		return domain.Job{}, err
	}
	j.ID = uuid.UUID(id.Bytes)
	j.Type = domain.EventType(jobType)
	return j, nil
}
