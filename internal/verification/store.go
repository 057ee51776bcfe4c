package verification

import (
	"context"
	"time"
)

// Store holds in-flight verification sessions keyed by id. Update must be
// atomic per key: two concurrent step submissions for the same session
// may not both observe the same cursor.
type Store interface {
	Create(ctx context.Context, session *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Update(ctx context.Context, id string, fn func(*Session) error) (*Session, error)
	Delete(ctx context.Context, id string) error
}

// Sweeper is implemented by stores that need an explicit janitor pass.
// The Redis store reclaims expired sessions through key TTLs instead.
type Sweeper interface {
	SweepExpired(ctx context.Context, now time.Time) int
}
