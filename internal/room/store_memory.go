package room

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"presence/pkg/platform/sentinel"
)

// InMemoryStore keeps rooms in a mutex-guarded map. It intentionally favors
// clarity over performance.
type InMemoryStore struct {
	mu     sync.RWMutex
	byID   map[string]*Room
	byName map[string]string
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:   make(map[string]*Room),
		byName: make(map[string]string),
	}
}

// Save assigns an ID on first write and rejects a different room claiming an
// existing name.
func (s *InMemoryStore) Save(_ context.Context, r *Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existingID, ok := s.byName[r.Name]; ok && existingID != r.ID {
		return sentinel.ErrConflict
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	copied := *r
	s.byID[r.ID] = &copied
	s.byName[r.Name] = r.ID
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id string) (*Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.byID[id]; ok {
		copied := *r
		return &copied, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) FindByName(_ context.Context, name string) (*Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, ok := s.byName[name]; ok {
		copied := *s.byID[id]
		return &copied, nil
	}
	return nil, sentinel.ErrNotFound
}
