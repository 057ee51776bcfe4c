package barometer

import (
	"context"
	"sync"
	"time"

	"presence/pkg/platform/sentinel"
)

// InMemoryCalibrationStore keeps calibrations in a mutex-guarded map. It
// favors clarity over performance and is the default when Redis is not
// configured.
type InMemoryCalibrationStore struct {
	mu           sync.RWMutex
	calibrations map[CalibrationKey]Calibration
	clock        func() time.Time
}

// MemoryOption configures an InMemoryCalibrationStore.
type MemoryOption func(*InMemoryCalibrationStore)

// WithMemoryClock sets the clock function for testability.
func WithMemoryClock(clock func() time.Time) MemoryOption {
	return func(s *InMemoryCalibrationStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func NewInMemoryCalibrationStore(opts ...MemoryOption) *InMemoryCalibrationStore {
	s := &InMemoryCalibrationStore{
		calibrations: make(map[CalibrationKey]Calibration),
		clock:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *InMemoryCalibrationStore) Put(_ context.Context, key CalibrationKey, cal Calibration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calibrations[key] = cal
	return nil
}

// Get checks expiry at the moment of the read. Expired entries are reported
// as sentinel.ErrExpired and removed lazily; no background sweep is needed
// for correctness.
func (s *InMemoryCalibrationStore) Get(_ context.Context, key CalibrationKey) (Calibration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cal, ok := s.calibrations[key]
	if !ok {
		return Calibration{}, sentinel.ErrNotFound
	}
	if cal.Expired(s.clock()) {
		delete(s.calibrations, key)
		return Calibration{}, sentinel.ErrExpired
	}
	return cal, nil
}

func (s *InMemoryCalibrationStore) Delete(_ context.Context, key CalibrationKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.calibrations, key)
	return nil
}
