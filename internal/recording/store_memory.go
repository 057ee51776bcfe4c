package recording

import (
	"context"
	"sync"

	"presence/pkg/platform/sentinel"
)

type memoryEntry struct {
	mu      sync.Mutex
	session *Session
}

// InMemoryStore keeps sessions in a map with a dedicated mutex per session,
// so point appends to one session serialize without blocking others.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*memoryEntry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{entries: make(map[string]*memoryEntry)}
}

func (s *InMemoryStore) Create(_ context.Context, session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[session.ID]; ok {
		return sentinel.ErrConflict
	}
	s.entries[session.ID] = &memoryEntry{session: copySession(session)}
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id string) (*Session, error) {
	entry, err := s.entry(id)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return copySession(entry.session), nil
}

// Update runs fn under the session's own lock and persists the result.
// A failing fn leaves the stored session untouched.
func (s *InMemoryStore) Update(_ context.Context, id string, fn func(*Session) error) (*Session, error) {
	entry, err := s.entry(id)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()

	working := copySession(entry.session)
	if err := fn(working); err != nil {
		return nil, err
	}
	entry.session = working
	return copySession(working), nil
}

func (s *InMemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.entries, id)
	return nil
}

func (s *InMemoryStore) ListActive(_ context.Context) ([]*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Session
	for _, entry := range s.entries {
		entry.mu.Lock()
		if entry.session.Active() {
			out = append(out, copySession(entry.session))
		}
		entry.mu.Unlock()
	}
	return out, nil
}

func (s *InMemoryStore) entry(id string) (*memoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return entry, nil
}

func copySession(s *Session) *Session {
	copied := *s
	copied.Points = append([]CapturedPoint(nil), s.Points...)
	return &copied
}
