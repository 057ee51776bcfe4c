package face

import (
	"context"
	"sync"

	"presence/pkg/platform/sentinel"
)

// RegistrationStore holds face enrollment records keyed by student.
type RegistrationStore interface {
	Save(ctx context.Context, reg Registration) error
	Find(ctx context.Context, studentID string) (Registration, error)
	Revoke(ctx context.Context, studentID string) error
}

// InMemoryRegistrationStore keeps enrollments in a mutex-guarded map.
type InMemoryRegistrationStore struct {
	mu   sync.RWMutex
	byID map[string]Registration
}

func NewInMemoryRegistrationStore() *InMemoryRegistrationStore {
	return &InMemoryRegistrationStore{byID: make(map[string]Registration)}
}

// Save normalizes the device first so lookups compare like with like.
func (s *InMemoryRegistrationStore) Save(_ context.Context, reg Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	reg.Device = reg.Device.Normalize()
	s.byID[reg.StudentID] = reg
	return nil
}

func (s *InMemoryRegistrationStore) Find(_ context.Context, studentID string) (Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	reg, ok := s.byID[studentID]
	if !ok {
		return Registration{}, sentinel.ErrNotFound
	}
	return reg, nil
}

// Revoke drops an enrollment, for lost devices or re-enrollment.
func (s *InMemoryRegistrationStore) Revoke(_ context.Context, studentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[studentID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.byID, studentID)
	return nil
}
