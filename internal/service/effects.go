package service

import (
	"context"
	"log/slog"

	"github.com/pkordes/ritlog/internal/domain"
)

// Notifier is the sink for side-channel events. repo.JobRepo satisfies it,
// as do the broker publishers in package notify.
type Notifier interface {
	Enqueue(ctx context.Context, eventType domain.EventType, payload any) error
}

// sideEffect is one non-critical follow-up to a committed write.
type sideEffect struct {
	name string
	run  func(ctx context.Context) error
}

// runSideEffects runs each effect in isolation. Errors and panics are logged
// with attrs and never returned: the write they follow is already committed.
func runSideEffects(ctx context.Context, logger *slog.Logger, attrs []any, effects ...sideEffect) {
	for _, e := range effects {
		runSideEffect(ctx, logger, attrs, e)
	}
}

func runSideEffect(ctx context.Context, logger *slog.Logger, attrs []any, e sideEffect) {
	defer func() {
		if r := recover(); r != nil {
			logger.WarnContext(ctx, "side effect panicked",
				append([]any{"effect", e.name, "panic", r}, attrs...)...)
		}
	}()
	if err := e.run(ctx); err != nil {
		logger.WarnContext(ctx, "side effect failed",
			append([]any{"effect", e.name, "error", err}, attrs...)...)
	}
}
