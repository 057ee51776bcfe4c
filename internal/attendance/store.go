package attendance

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"presence/pkg/platform/sentinel"
)

// Store persists attendance outcomes. One record per student per lecture;
// a second approved claim for the same pair is a conflict.
type Store interface {
	Record(ctx context.Context, outcome *Outcome) error
	FindBySession(ctx context.Context, sessionID string) (*Outcome, error)
	ListByLecture(ctx context.Context, lectureID string) ([]*Outcome, error)
}

type pairKey struct {
	studentID string
	lectureID string
}

// InMemoryStore is the single-instance fallback.
type InMemoryStore struct {
	mu        sync.RWMutex
	bySession map[string]*Outcome
	byPair    map[pairKey]string
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		bySession: make(map[string]*Outcome),
		byPair:    make(map[pairKey]string),
	}
}

func (s *InMemoryStore) Record(_ context.Context, outcome *Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey{studentID: outcome.StudentID, lectureID: outcome.LectureID}
	if existing, ok := s.byPair[key]; ok && existing != outcome.SessionID {
		return sentinel.ErrConflict
	}
	if outcome.ID == "" {
		outcome.ID = uuid.NewString()
	}

	copied := *outcome
	copied.Steps = append([]StepOutcome(nil), outcome.Steps...)
	s.bySession[outcome.SessionID] = &copied
	s.byPair[key] = outcome.SessionID
	return nil
}

func (s *InMemoryStore) FindBySession(_ context.Context, sessionID string) (*Outcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	outcome, ok := s.bySession[sessionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *outcome
	return &copied, nil
}

func (s *InMemoryStore) ListByLecture(_ context.Context, lectureID string) ([]*Outcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Outcome
	for _, outcome := range s.bySession {
		if outcome.LectureID == lectureID {
			copied := *outcome
			out = append(out, &copied)
		}
	}
	return out, nil
}
