package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pkordes/ritlog/internal/domain"
	"github.com/pkordes/ritlog/internal/repo"
)

// Forwarder delivers one queued job downstream.
type Forwarder interface {
	Forward(ctx context.Context, job domain.Job) error
}

const (
	defaultBatchSize   = 50
	defaultMaxAttempts = 5
	retryBackoff       = 30 * time.Second

	// claimLease is how long a claimed job may stay running before another
	// dispatcher takes it over.
	claimLease = 5 * time.Minute
)

// Dispatcher drains the Postgres job queue into a Forwarder. Several
// dispatchers may run against the same database; ClaimPending never hands
// the same job to two of them.
type Dispatcher struct {
	jobs        repo.JobRepo
	fwd         Forwarder
	interval    time.Duration
	batchSize   int
	maxAttempts int
	logger      *slog.Logger
}

// NewDispatcher constructs a Dispatcher polling every interval.
// A nil logger falls back to slog.Default.
func NewDispatcher(jobs repo.JobRepo, fwd Forwarder, interval time.Duration, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		jobs:        jobs,
		fwd:         fwd,
		interval:    interval,
		batchSize:   defaultBatchSize,
		maxAttempts: defaultMaxAttempts,
		logger:      logger,
	}
}

// Run polls until ctx is cancelled. Errors of a single round are logged and
// the next round proceeds.
func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.logger.InfoContext(ctx, "job dispatcher started", "interval", d.interval.String())
	for {
		if _, err := d.DispatchOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			d.logger.ErrorContext(ctx, "dispatch round failed", "error", err)
		}
		select {
		case <-ctx.Done():
			d.logger.InfoContext(ctx, "job dispatcher stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// DispatchOnce claims one batch and forwards it, returning how many jobs
// were delivered. Failed jobs are rescheduled with linear backoff until
// maxAttempts, then parked. Outcomes are recorded even when ctx is cancelled
// mid-batch, so shutdown does not leave claimed jobs running.
func (d *Dispatcher) DispatchOnce(ctx context.Context) (int, error) {
	batch, err := d.jobs.ClaimPending(ctx, d.batchSize, claimLease)
	if err != nil {
		return 0, fmt.Errorf("notify.Dispatcher.DispatchOnce: %w", err)
	}

	markCtx := context.WithoutCancel(ctx)
	delivered := 0
	var errs []error
	for _, job := range batch {
		if ferr := d.fwd.Forward(ctx, job); ferr != nil {
			d.logger.WarnContext(ctx, "job forward failed",
				"job_id", job.ID, "type", job.Type, "attempt", job.Attempts, "error", ferr)
			backoff := time.Duration(job.Attempts) * retryBackoff
			if err := d.jobs.MarkFailed(markCtx, job.ID, ferr, backoff, d.maxAttempts); err != nil {
				errs = append(errs, err)
			}
			continue
		}
		if err := d.jobs.MarkDone(markCtx, job.ID); err != nil {
			errs = append(errs, err)
			continue
		}
		delivered++
	}
	if err := errors.Join(errs...); err != nil {
		return delivered, fmt.Errorf("notify.Dispatcher.DispatchOnce: %w", err)
	}
	return delivered, nil
}

// LogForwarder writes jobs to the log. It is used when no broker is
// configured so the queue still drains.
type LogForwarder struct {
	logger *slog.Logger
}

// NewLogForwarder returns a LogForwarder. A nil logger falls back to slog.Default.
func NewLogForwarder(logger *slog.Logger) *LogForwarder {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogForwarder{logger: logger}
}

// Forward logs the job at info level.
func (f *LogForwarder) Forward(ctx context.Context, job domain.Job) error {
	f.logger.InfoContext(ctx, "event",
		"job_id", job.ID, "type", job.Type, "payload", string(job.Payload))
	return nil
}
