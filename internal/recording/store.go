package recording

import "context"

// Store holds in-progress recording sessions. Update serializes mutations
// per session id: one in-flight point append at a time preserves the
// monotonic sequence index, while different sessions proceed in parallel.
type Store interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Update(ctx context.Context, id string, fn func(*Session) error) (*Session, error)
	Delete(ctx context.Context, id string) error
	ListActive(ctx context.Context) ([]*Session, error)
}
