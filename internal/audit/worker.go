package audit

import (
	"context"
	"log/slog"
)

// Worker consumes audit events from the inbox and persists them. A failing
// append is logged and skipped; losing one audit line must not stop the
// drain.
type Worker struct {
	store Store
	inbox <-chan Event
	log   *slog.Logger
}

func NewWorker(store Store, inbox <-chan Event, log *slog.Logger) *Worker {
	return &Worker{store: store, inbox: inbox, log: log}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.store.Append(ctx, event); err != nil {
				w.log.ErrorContext(ctx, "failed to append audit event",
					slog.String("action", event.Action),
					slog.Any("error", err))
			}
		}
	}
}
