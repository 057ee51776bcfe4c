package audit

import (
	"context"
	"log/slog"
	"time"
)

// Publisher hands events to the background worker through a bounded inbox.
// Audit must never block or fail the calling flow, so a full inbox drops the
// event with a log line instead of applying backpressure.
type Publisher struct {
	inbox chan<- Event
	log   *slog.Logger
	clock func() time.Time
}

type PublisherOption func(*Publisher)

func WithClock(clock func() time.Time) PublisherOption {
	return func(p *Publisher) { p.clock = clock }
}

func NewPublisher(inbox chan<- Event, log *slog.Logger, opts ...PublisherOption) *Publisher {
	p := &Publisher{inbox: inbox, log: log, clock: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Publisher) Emit(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = p.clock()
	}
	select {
	case p.inbox <- event:
	default:
		p.log.WarnContext(ctx, "audit inbox full, dropping event",
			slog.String("action", event.Action),
			slog.String("subject", event.Subject))
	}
}
