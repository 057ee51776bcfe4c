package attendance

import (
	"context"
	"log/slog"
)

// Fanout is a Store that also publishes every recorded outcome. The
// store write is authoritative: a broker outage only costs the event,
// never the attendance record.
type Fanout struct {
	store     Store
	publisher *Publisher
	log       *slog.Logger
}

func NewFanout(store Store, publisher *Publisher, log *slog.Logger) *Fanout {
	return &Fanout{store: store, publisher: publisher, log: log}
}

func (f *Fanout) Record(ctx context.Context, outcome *Outcome) error {
	if err := f.store.Record(ctx, outcome); err != nil {
		return err
	}
	if f.publisher != nil {
		if err := f.publisher.Publish(ctx, outcome); err != nil {
			f.log.WarnContext(ctx, "attendance outcome recorded but not published",
				slog.String("session_id", outcome.SessionID),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}

func (f *Fanout) FindBySession(ctx context.Context, sessionID string) (*Outcome, error) {
	return f.store.FindBySession(ctx, sessionID)
}

func (f *Fanout) ListByLecture(ctx context.Context, lectureID string) ([]*Outcome, error) {
	return f.store.ListByLecture(ctx, lectureID)
}
