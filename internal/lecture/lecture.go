package lecture

import (
	"context"
	"sync"
	"time"

	"presence/pkg/platform/sentinel"
)

// Lecture is a scheduled event that attendance can be claimed for. The
// verification state machine only cares that a claim falls within the
// window and targets the right room.
type Lecture struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	RoomID   string    `json:"room_id"`
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
	// GraceBefore lets students start verifying shortly before the
	// scheduled start.
	GraceBefore time.Duration `json:"grace_before,omitempty"`
}

// ActiveAt reports whether a claim at the given instant falls inside the
// lecture window.
func (l Lecture) ActiveAt(t time.Time) bool {
	return !t.Before(l.StartsAt.Add(-l.GraceBefore)) && !t.After(l.EndsAt)
}

// Directory resolves lectures by id. Backed by whatever scheduling system a
// deployment has; the in-memory implementation serves tests and dev seeding.
type Directory interface {
	Find(ctx context.Context, id string) (Lecture, error)
}

// InMemoryDirectory is a mutex-guarded lecture map.
type InMemoryDirectory struct {
	mu   sync.RWMutex
	byID map[string]Lecture
}

func NewInMemoryDirectory() *InMemoryDirectory {
	return &InMemoryDirectory{byID: make(map[string]Lecture)}
}

func (d *InMemoryDirectory) Put(l Lecture) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.byID[l.ID] = l
}

func (d *InMemoryDirectory) Find(_ context.Context, id string) (Lecture, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	l, ok := d.byID[id]
	if !ok {
		return Lecture{}, sentinel.ErrNotFound
	}
	return l, nil
}
