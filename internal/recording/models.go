package recording

import (
	"time"

	dErrors "presence/pkg/domain-errors"

	"presence/internal/barometer"
)

// State is the lifecycle of a recording session. The only transitions are
// active to completed (emits a Room) and active to cancelled (discarded).
type State string

const (
	StateActive    State = "active"
	StateCompleted State = "completed"
	StateCancelled State = "cancelled"
)

// RoomMetadata describes the room a recording session will produce.
type RoomMetadata struct {
	RoomName string `json:"room_name"`
	Building string `json:"building"`
	Floor    int    `json:"floor"`
	RoomType string `json:"room_type,omitempty"`
	Capacity int    `json:"capacity,omitempty"`
}

// Validate checks the fields required to start a recording.
func (m RoomMetadata) Validate() error {
	if m.RoomName == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "room_name is required")
	}
	if m.Building == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "building is required")
	}
	if m.Floor < 1 {
		return dErrors.New(dErrors.CodeInvalidInput, "floor must be at least 1")
	}
	return nil
}

// CapturedPoint is one GPS plus barometer sample of the walked boundary.
// Sequence indexes are assigned by the session and strictly increase.
type CapturedPoint struct {
	Sequence     int               `json:"sequence"`
	Lat          float64           `json:"latitude"`
	Lng          float64           `json:"longitude"`
	GPSAltitudeM *float64          `json:"gps_altitude_m,omitempty"`
	AccuracyM    *float64          `json:"gps_accuracy_m,omitempty"`
	SpeedMS      *float64          `json:"speed_ms,omitempty"`
	Reading      barometer.Reading `json:"reading"`
	Timestamp    time.Time         `json:"timestamp"`
}

// Session accumulates captured points until it is completed or cancelled.
// All mutations to one session are serialized by the store.
type Session struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Meta      RoomMetadata    `json:"meta"`
	State     State           `json:"state"`
	StartedAt time.Time       `json:"started_at"`
	Points    []CapturedPoint `json:"points"`
}

// Active reports whether the session still accepts points.
func (s *Session) Active() bool {
	return s.State == StateActive
}

// NextSequence is the index the next appended point will receive.
func (s *Session) NextSequence() int {
	return len(s.Points)
}
