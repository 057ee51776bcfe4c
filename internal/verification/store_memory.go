package verification

import (
	"context"
	"sync"
	"time"

	"presence/pkg/platform/sentinel"
)

type sessionEntry struct {
	mu      sync.Mutex
	session *Session
}

// InMemoryStore serializes updates per session with a dedicated mutex,
// so step submissions to different sessions never contend.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*sessionEntry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{entries: make(map[string]*sessionEntry)}
}

func (s *InMemoryStore) Create(_ context.Context, session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[session.ID]; ok {
		return sentinel.ErrConflict
	}
	s.entries[session.ID] = &sessionEntry{session: cloneSession(session)}
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id string) (*Session, error) {
	entry, err := s.entry(id)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return cloneSession(entry.session), nil
}

// Update applies fn to a private copy under the session's lock; a failing
// fn leaves the stored session exactly as it was.
func (s *InMemoryStore) Update(_ context.Context, id string, fn func(*Session) error) (*Session, error) {
	entry, err := s.entry(id)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()

	working := cloneSession(entry.session)
	if err := fn(working); err != nil {
		return nil, err
	}
	entry.session = working
	return cloneSession(working), nil
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

// SweepExpired drops unfinished sessions past their window so abandoned
// check-ins do not accumulate between restarts.
func (s *InMemoryStore) SweepExpired(_ context.Context, now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	swept := 0
	for id, entry := range s.entries {
		entry.mu.Lock()
		expired := entry.session.Expired(now)
		entry.mu.Unlock()
		if expired {
			delete(s.entries, id)
			swept++
		}
	}
	return swept
}

func (s *InMemoryStore) entry(id string) (*sessionEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return entry, nil
}

func cloneSession(s *Session) *Session {
	cloned := *s
	cloned.Steps = append([]StepResult(nil), s.Steps...)
	if s.CompletedAt != nil {
		completed := *s.CompletedAt
		cloned.CompletedAt = &completed
	}
	return &cloned
}
