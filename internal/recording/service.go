package recording

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	dErrors "presence/pkg/domain-errors"
	"presence/pkg/platform/sentinel"

	"presence/internal/audit"
	"presence/internal/barometer"
	"presence/internal/room"
)

var (
	// ErrInsufficientPoints rejects completion of a path too short to form
	// a polygon. The session stays active so the user can keep walking.
	ErrInsufficientPoints = errors.New("need at least 3 points to create a room")
)

// QualityTooLowError rejects completion when the overall score is below the
// minimum. The session stays active.
type QualityTooLowError struct {
	Score float64
}

func (e *QualityTooLowError) Error() string {
	return fmt.Sprintf("recording quality too low: %.2f, minimum required: %.2f", e.Score, MinCompletionScore)
}

// PointInput is a raw GPS plus barometer sample submitted by the client.
type PointInput struct {
	Lat          float64
	Lng          float64
	GPSAltitudeM *float64
	AccuracyM    *float64
	SpeedMS      *float64
	PressureHPa  float64
	TemperatureC *float64
	Humidity     *float64
	Device       barometer.DeviceInfo
}

// PointResult is returned from every append: the stored point plus the
// real-time advisory checks and recording guidance.
type PointResult struct {
	Point           CapturedPoint `json:"point"`
	Check           PointCheck    `json:"quality_check"`
	Recommendations []string      `json:"recommendations,omitempty"`
	TotalPoints     int           `json:"total_points"`
}

// SessionStatus is a read-only view of an active recording.
type SessionStatus struct {
	Session    *Session        `json:"session"`
	Statistics PathReport      `json:"statistics"`
	Quality    Assessment      `json:"quality"`
	LastPoints []CapturedPoint `json:"current_path,omitempty"`
}

// CompleteParams are caller-supplied finishing touches for the new room.
type CompleteParams struct {
	CeilingHeightM       float64
	PressureToleranceHPa float64
}

// CompletionResult is the created room plus a summary of the walk.
type CompletionResult struct {
	Room    *room.Room `json:"room"`
	Score   float64    `json:"quality_score"`
	Level   Level      `json:"quality_level"`
	Path    PathReport `json:"path_report"`
	Elapsed float64    `json:"recording_duration_seconds"`
}

// Service runs the boundary recording workflow: walk the room edge
// collecting GPS and pressure samples, then turn a good enough path into a
// validated Room.
type Service struct {
	sessions  Store
	rooms     room.Store
	processor *barometer.Processor
	audit     *audit.Publisher
	log       *slog.Logger
	clock     func() time.Time
}

type ServiceOption func(*Service)

// WithClock fixes the time source, used by tests.
func WithClock(clock func() time.Time) ServiceOption {
	return func(s *Service) { s.clock = clock }
}

// WithAudit attaches an audit publisher. Without it lifecycle events are
// only logged.
func WithAudit(auditor *audit.Publisher) ServiceOption {
	return func(s *Service) { s.audit = auditor }
}

func NewService(sessions Store, rooms room.Store, processor *barometer.Processor, log *slog.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		sessions:  sessions,
		rooms:     rooms,
		processor: processor,
		log:       log,
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens a recording session, refusing to shadow an existing room.
func (s *Service) Start(ctx context.Context, userID string, meta RoomMetadata) (*Session, error) {
	if err := meta.Validate(); err != nil {
		return nil, err
	}

	_, err := s.rooms.FindByName(ctx, meta.RoomName)
	switch {
	case err == nil:
		return nil, dErrors.New(dErrors.CodeConflict, fmt.Sprintf("room %q already exists", meta.RoomName))
	case !errors.Is(err, sentinel.ErrNotFound):
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "room lookup failed")
	}

	session := &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Meta:      meta,
		State:     StateActive,
		StartedAt: s.clock(),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create recording session")
	}

	s.emit(ctx, audit.ActionRecordingStarted, userID, session.ID)
	s.log.InfoContext(ctx, "recording session started",
		slog.String("session_id", session.ID),
		slog.String("room_name", meta.RoomName),
		slog.String("user_id", userID))
	return session, nil
}

// AddPoint appends one sample to an active session. The sequence index is
// assigned under the session lock, so it is monotonic even under concurrent
// appends. Quality violations come back as warnings, never as errors.
func (s *Service) AddPoint(ctx context.Context, sessionID, userID string, in PointInput) (*PointResult, error) {
	reading, err := s.processor.ProcessReading(in.PressureHPa, in.TemperatureC, in.Humidity, in.Device)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid barometer reading")
	}

	var result PointResult
	_, err = s.sessions.Update(ctx, sessionID, func(session *Session) error {
		if err := authorize(session, userID); err != nil {
			return err
		}
		if !session.Active() {
			return dErrors.Wrap(sentinel.ErrInvalidState, dErrors.CodeConflict, "recording session is not active")
		}

		point := CapturedPoint{
			Sequence:     session.NextSequence(),
			Lat:          in.Lat,
			Lng:          in.Lng,
			GPSAltitudeM: in.GPSAltitudeM,
			AccuracyM:    in.AccuracyM,
			SpeedMS:      in.SpeedMS,
			Reading:      reading,
			Timestamp:    reading.Timestamp,
		}

		var prev *CapturedPoint
		if n := len(session.Points); n > 0 {
			prev = &session.Points[n-1]
		}
		check := CheckPoint(prev, point)
		session.Points = append(session.Points, point)

		result = PointResult{
			Point:           point,
			Check:           check,
			Recommendations: Recommendations(session, check),
			TotalPoints:     len(session.Points),
		}
		return nil
	})
	if err != nil {
		return nil, sessionError(err)
	}
	return &result, nil
}

// Status reports session progress with a rolling quality assessment and the
// last few captured points.
func (s *Service) Status(ctx context.Context, sessionID, userID string) (*SessionStatus, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, sessionError(err)
	}
	if err := authorize(session, userID); err != nil {
		return nil, err
	}

	last := session.Points
	if len(last) > 10 {
		last = last[len(last)-10:]
	}
	return &SessionStatus{
		Session:    session,
		Statistics: BuildPathReport(session.Points),
		Quality:    AssessQuality(session.Points),
		LastPoints: last,
	}, nil
}

// ListActive returns all in-progress recordings.
func (s *Service) ListActive(ctx context.Context) ([]*Session, error) {
	return s.sessions.ListActive(ctx)
}

// Complete turns a finished walk into a validated Room. Quality gates
// leave the session active on failure so the user can keep walking.
func (s *Service) Complete(ctx context.Context, sessionID, userID string, params CompleteParams) (*CompletionResult, error) {
	if params.CeilingHeightM <= 0 {
		params.CeilingHeightM = barometer.TypicalFloorHeightM
	}

	var result *CompletionResult
	_, err := s.sessions.Update(ctx, sessionID, func(session *Session) error {
		if err := authorize(session, userID); err != nil {
			return err
		}
		if !session.Active() {
			return dErrors.Wrap(sentinel.ErrInvalidState, dErrors.CodeConflict, "recording session is not active")
		}
		if len(session.Points) < MinPointsForCompletion {
			return dErrors.Wrap(ErrInsufficientPoints, dErrors.CodeInvalidInput, "not enough recorded points")
		}

		assessment := AssessQuality(session.Points)
		if assessment.OverallScore < MinCompletionScore {
			return dErrors.Wrap(&QualityTooLowError{Score: assessment.OverallScore},
				dErrors.CodeInvalidInput, "recording quality below minimum")
		}

		report := BuildPathReport(session.Points)
		r, err := s.buildRoom(session, report, params)
		if err != nil {
			return err
		}
		if err := s.rooms.Save(ctx, r); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.Wrap(err, dErrors.CodeConflict, fmt.Sprintf("room %q already exists", r.Name))
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "save room")
		}

		session.State = StateCompleted
		result = &CompletionResult{
			Room:    r,
			Score:   assessment.OverallScore,
			Level:   assessment.Level,
			Path:    report,
			Elapsed: s.clock().Sub(session.StartedAt).Seconds(),
		}
		return nil
	})
	if err != nil {
		return nil, sessionError(err)
	}

	// The session served its purpose; drop it from the active store.
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		s.log.WarnContext(ctx, "failed to delete completed recording session",
			slog.String("session_id", sessionID), slog.Any("error", err))
	}

	s.emit(ctx, audit.ActionRecordingCompleted, userID, sessionID)
	s.log.InfoContext(ctx, "recording session completed",
		slog.String("session_id", sessionID),
		slog.String("room_id", result.Room.ID),
		slog.Float64("quality_score", result.Score))
	return result, nil
}

// Cancel discards a session without saving anything.
func (s *Service) Cancel(ctx context.Context, sessionID, userID string) error {
	_, err := s.sessions.Update(ctx, sessionID, func(session *Session) error {
		if err := authorize(session, userID); err != nil {
			return err
		}
		session.State = StateCancelled
		return nil
	})
	if err != nil {
		return sessionError(err)
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "delete cancelled recording session")
	}
	s.emit(ctx, audit.ActionRecordingCancelled, userID, sessionID)
	s.log.InfoContext(ctx, "recording session cancelled", slog.String("session_id", sessionID))
	return nil
}

func (s *Service) emit(ctx context.Context, action, userID, sessionID string) {
	if s.audit == nil {
		return
	}
	s.audit.Emit(ctx, audit.Event{Actor: userID, Action: action, Subject: sessionID})
}

// buildRoom assembles the Room from the walked path. The boundary uses the
// barometric altitude per vertex, the floor altitude is the mean barometric
// altitude of the walk, and the pressure envelope is the observed range.
func (s *Service) buildRoom(session *Session, report PathReport, params CompleteParams) (*room.Room, error) {
	boundary := vertices(session.Points)
	floorAltitude := report.Altitude.Avg

	r, err := room.New(session.Meta.RoomName, session.Meta.Building, session.Meta.Floor,
		boundary, floorAltitude, floorAltitude+params.CeilingHeightM)
	if err != nil {
		return nil, err
	}
	r.RoomType = session.Meta.RoomType
	r.Capacity = session.Meta.Capacity
	r.Pressure = room.PressureRange{
		MinHPa:       report.Pressure.Min,
		MaxHPa:       report.Pressure.Max,
		AvgHPa:       report.Pressure.Avg,
		ToleranceHPa: params.PressureToleranceHPa,
	}
	r.Provenance = room.Provenance{
		RecordedBy: session.UserID,
		RecordedAt: s.clock(),
		Path:       provenancePath(session.Points),
	}
	r.Validated = true
	now := s.clock()
	r.CreatedAt = now
	r.UpdatedAt = now
	return r, nil
}

func provenancePath(points []CapturedPoint) []room.PathPoint {
	path := make([]room.PathPoint, len(points))
	for i, p := range points {
		path[i] = room.PathPoint{
			Sequence:    p.Sequence,
			Lat:         p.Lat,
			Lng:         p.Lng,
			PressureHPa: p.Reading.PressureHPa,
			AltitudeM:   p.Reading.AltitudeM,
			Timestamp:   p.Timestamp,
		}
	}
	return path
}

func authorize(session *Session, userID string) error {
	if session.UserID != userID {
		return dErrors.New(dErrors.CodeForbidden, "recording session belongs to another user")
	}
	return nil
}

func sessionError(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeNotFound, "recording session not found")
	}
	return err
}
