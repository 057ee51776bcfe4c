package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	dErrors "presence/pkg/domain-errors"
	"presence/pkg/platform/sentinel"

	"presence/internal/attendance"
	"presence/internal/audit"
	"presence/internal/barometer"
	"presence/internal/code"
	"presence/internal/face"
	"presence/internal/lecture"
	"presence/internal/room"
	"presence/internal/verification/metrics"
)

var tracer = otel.Tracer("presence/internal/verification")

// Deps bundles the collaborators of the check-in state machine.
type Deps struct {
	Sessions    Store
	Lectures    lecture.Directory
	Rooms       room.Store
	Processor   *barometer.Processor
	Codes       *code.Service
	IssuedCodes code.Registry
	Faces       face.Verifier
	Attendance  attendance.Store
	Audit       *audit.Publisher
	Metrics     *metrics.Metrics
	Log         *slog.Logger
}

// Service drives the four-step check-in sequence. Steps arrive one call
// at a time and must follow the fixed order; GPS and barometer misses
// downgrade the final decision while QR and face misses end it.
type Service struct {
	sessions    Store
	lectures    lecture.Directory
	rooms       room.Store
	processor   *barometer.Processor
	codes       *code.Service
	issuedCodes code.Registry
	faces       face.Verifier
	attendance  attendance.Store
	audit       *audit.Publisher
	metrics     *metrics.Metrics
	log         *slog.Logger
	clock       func() time.Time
}

type Option func(*Service)

// WithClock fixes the time source, used by tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

func NewService(deps Deps, opts ...Option) *Service {
	s := &Service{
		sessions:    deps.Sessions,
		lectures:    deps.Lectures,
		rooms:       deps.Rooms,
		processor:   deps.Processor,
		codes:       deps.Codes,
		issuedCodes: deps.IssuedCodes,
		faces:       deps.Faces,
		attendance:  deps.Attendance,
		audit:       deps.Audit,
		metrics:     deps.Metrics,
		log:         deps.Log,
		clock:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens a verification session for one student and lecture. The
// lecture must be inside its attendance window and the student must not
// already hold an attendance record for it.
func (s *Service) Start(ctx context.Context, studentID, lectureID string) (*Session, error) {
	if studentID == "" || lectureID == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "student id and lecture id are required")
	}

	lec, err := s.lectures.Find(ctx, lectureID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "lecture not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "lecture lookup failed")
	}

	now := s.clock()
	if !lec.ActiveAt(now) {
		return nil, dErrors.New(dErrors.CodeLectureNotActive,
			fmt.Sprintf("lecture %q is not accepting check-ins right now", lec.Title))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if _, err := s.rooms.FindByID(gctx, lec.RoomID); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.Wrap(err, dErrors.CodeNotFound, "lecture room not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "room lookup failed")
		}
		return nil
	})
	g.Go(func() error {
		recorded, err := s.attendance.ListByLecture(gctx, lectureID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "attendance lookup failed")
		}
		for _, outcome := range recorded {
			if outcome.StudentID == studentID {
				return dErrors.New(dErrors.CodeConflict, "attendance already recorded for this lecture")
			}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	session := &Session{
		ID:          uuid.NewString(),
		StudentID:   studentID,
		LectureID:   lectureID,
		RoomID:      lec.RoomID,
		StartedAt:   now,
		CurrentStep: StepGPSLocation,
		Status:      StatusPending,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not create verification session")
	}

	s.metrics.IncrementStarted()
	s.audit.Emit(ctx, audit.Event{
		Actor:   studentID,
		Action:  audit.ActionSessionStarted,
		Subject: session.ID,
	})
	s.log.InfoContext(ctx, "verification session started",
		slog.String("session_id", session.ID),
		slog.String("student_id", studentID),
		slog.String("lecture_id", lectureID),
	)
	return session, nil
}

// SubmitStep processes the next step of the sequence. Out-of-order
// submissions are refused without touching the session; malformed
// payloads likewise. Expired sessions are discarded on first contact.
func (s *Service) SubmitStep(ctx context.Context, sessionID, studentID string, payload StepPayload) (*Session, *StepResult, error) {
	ctx, span := tracer.Start(ctx, "verification.step",
		trace.WithAttributes(attribute.String("checkin.step", string(payload.Step()))))
	defer span.End()

	started := s.clock()
	var result StepResult

	session, err := s.sessions.Update(ctx, sessionID, func(sess *Session) error {
		if err := s.authorize(sess, studentID); err != nil {
			return err
		}
		if sess.Completed() {
			return dErrors.New(dErrors.CodeConflict, "verification session already finalized")
		}
		now := s.clock()
		if sess.Expired(now) {
			return dErrors.New(dErrors.CodeExpired, "verification session expired")
		}
		if payload.Step() != sess.CurrentStep {
			return dErrors.New(dErrors.CodeWrongStep,
				fmt.Sprintf("expected step %s, got %s", sess.CurrentStep, payload.Step()))
		}

		r, err := s.processStep(ctx, sess, payload)
		if err != nil {
			return err
		}
		r.Timestamp = now
		r.ProcessingTimeMS = s.clock().Sub(started).Milliseconds()

		sess.Steps = append(sess.Steps, r)
		sess.TotalTimeMS += r.ProcessingTimeMS
		advance(sess, r, now)
		result = r
		return nil
	})
	if dErrors.HasCode(err, dErrors.CodeExpired) {
		s.discardExpired(ctx, sessionID, studentID)
		span.RecordError(err)
		return nil, nil, err
	}
	if err != nil {
		span.RecordError(err)
		return nil, nil, s.sessionError(err)
	}

	span.SetAttributes(attribute.String("checkin.step_status", string(result.Status)))
	s.metrics.ObserveStep(string(result.Step), string(result.Status), s.clock().Sub(started))
	s.audit.Emit(ctx, audit.Event{
		Actor:    studentID,
		Action:   audit.ActionStepSubmitted,
		Subject:  sessionID,
		Decision: string(result.Status),
	})

	if session.Completed() {
		s.finalized(ctx, session)
	}
	return session, &result, nil
}

// Get returns the session summary, discarding it first if it expired.
func (s *Service) Get(ctx context.Context, sessionID, studentID string) (Summary, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return Summary{}, s.sessionError(err)
	}
	if err := s.authorize(session, studentID); err != nil {
		return Summary{}, err
	}
	if session.Expired(s.clock()) {
		s.discardExpired(ctx, sessionID, studentID)
		return Summary{}, dErrors.New(dErrors.CodeExpired, "verification session expired")
	}
	return Summarize(session), nil
}

func (s *Service) processStep(ctx context.Context, sess *Session, payload StepPayload) (StepResult, error) {
	switch p := payload.(type) {
	case GPSPayload:
		return s.gpsStep(ctx, sess, p)
	case BarometerPayload:
		return s.barometerStep(ctx, sess, p)
	case CodePayload:
		return s.codeStep(ctx, sess, p)
	case FacePayload:
		return s.faceStep(ctx, sess, p)
	default:
		return StepResult{}, dErrors.New(dErrors.CodeInvalidInput,
			fmt.Sprintf("unknown step payload %T", payload))
	}
}

func (s *Service) gpsStep(ctx context.Context, sess *Session, p GPSPayload) (StepResult, error) {
	if p.Latitude == 0 && p.Longitude == 0 {
		return StepResult{}, dErrors.New(dErrors.CodeInvalidInput, "gps coordinates missing")
	}

	rm, err := s.rooms.FindByID(ctx, sess.RoomID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return failedStep(StepGPSLocation, "room not found"), nil
	}
	if err != nil {
		return StepResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "room lookup failed")
	}

	inside, err := rm.Contains(p.Latitude, p.Longitude)
	if err != nil {
		return failedStep(StepGPSLocation, err.Error()), nil
	}
	distance := rm.DistanceFromCenterM(p.Latitude, p.Longitude)

	result := StepResult{
		Step:       StepGPSLocation,
		Confidence: gpsConfidence(inside, distance),
	}
	if inside {
		result.Status = StatusSuccess
		result.Success = true
	} else {
		result.Status = StatusWarning
		result.Warnings = []string{
			fmt.Sprintf("outside the boundary of room %s", rm.Name),
			fmt.Sprintf("distance from room center: %.1fm", distance),
		}
	}
	return result, nil
}

func (s *Service) barometerStep(ctx context.Context, sess *Session, p BarometerPayload) (StepResult, error) {
	reading, err := s.processor.ProcessReading(p.PressureHPa, p.TemperatureC, p.HumidityPercent, p.Device)
	if err != nil {
		return StepResult{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid barometer reading")
	}

	rm, err := s.rooms.FindByID(ctx, sess.RoomID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return failedStep(StepBarometerAltitude, "room not found"), nil
	}
	if err != nil {
		return StepResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "room lookup failed")
	}

	check := s.processor.VerifyRoomAltitude(reading, rm.CenterAltitudeM(), altitudeToleranceM)

	result := StepResult{Step: StepBarometerAltitude}
	if check.Valid {
		result.Status = StatusSuccess
		result.Success = true
		result.Confidence = check.PrecisionScore
	} else {
		result.Status = StatusWarning
		result.Confidence = barometerWarningConfidence(check.PrecisionScore)
		result.Warnings = []string{
			fmt.Sprintf("altitude does not match floor %d", rm.Floor),
			fmt.Sprintf("altitude difference: %.1fm", check.AltitudeDifferenceM),
			"recalibrate at the building ground reference if this persists",
		}
	}
	return result, nil
}

func (s *Service) codeStep(ctx context.Context, sess *Session, p CodePayload) (StepResult, error) {
	if p.QRData == "" {
		return StepResult{}, dErrors.New(dErrors.CodeInvalidInput, "qr code data missing")
	}

	descriptor, err := s.codes.Validate(p.QRData)
	switch {
	case errors.Is(err, code.ErrExpired):
		return failedStep(StepQRCode, "code expired"), nil
	case errors.Is(err, code.ErrTampered):
		return failedStep(StepQRCode, "code signature invalid"), nil
	case err != nil:
		return failedStep(StepQRCode, "code malformed"), nil
	}

	if descriptor.LectureID != sess.LectureID {
		return failedStep(StepQRCode, "code does not match the current lecture"), nil
	}

	issued, err := s.issuedCodes.Lookup(ctx, descriptor.SessionID)
	switch {
	case errors.Is(err, sentinel.ErrExpired):
		return failedStep(StepQRCode, "code is no longer active"), nil
	case errors.Is(err, sentinel.ErrNotFound):
		return failedStep(StepQRCode, "code was not issued for this lecture"), nil
	case err != nil:
		return StepResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "issued code lookup failed")
	}
	if issued.LectureID != sess.LectureID {
		return failedStep(StepQRCode, "code was not issued for this lecture"), nil
	}

	return StepResult{
		Step:       StepQRCode,
		Status:     StatusSuccess,
		Success:    true,
		Confidence: 1.0,
	}, nil
}

func (s *Service) faceStep(ctx context.Context, sess *Session, p FacePayload) (StepResult, error) {
	match, err := s.faces.Verify(ctx, sess.StudentID, p.Match)
	if err != nil {
		if isFaceRejection(err) {
			result := failedStep(StepFaceRecognition, err.Error())
			result.Confidence = match.Confidence
			return result, nil
		}
		return StepResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "face verification failed")
	}

	return StepResult{
		Step:       StepFaceRecognition,
		Status:     StatusSuccess,
		Success:    true,
		Confidence: match.Confidence,
	}, nil
}

func isFaceRejection(err error) bool {
	return errors.Is(err, face.ErrNotRegistered) ||
		errors.Is(err, face.ErrLowConfidence) ||
		errors.Is(err, face.ErrAntiSpoofingFailed) ||
		errors.Is(err, face.ErrDeviceMismatch)
}

func failedStep(step Step, reason string) StepResult {
	return StepResult{
		Step:   step,
		Status: StatusFailed,
		Errors: []string{reason},
	}
}

// finalized runs the side effects of a session reaching its decision:
// metrics, an audit event, and for approvals an attendance record. A
// rejection leaves only the audit trail.
func (s *Service) finalized(ctx context.Context, sess *Session) {
	s.metrics.IncrementFinalized(string(sess.Decision))
	s.audit.Emit(ctx, audit.Event{
		Actor:    sess.StudentID,
		Action:   audit.ActionSessionFinalized,
		Subject:  sess.ID,
		Decision: string(sess.Decision),
		Reason:   finalReason(sess),
	})
	s.log.InfoContext(ctx, "verification session finalized",
		slog.String("session_id", sess.ID),
		slog.String("student_id", sess.StudentID),
		slog.String("decision", string(sess.Decision)),
	)

	if sess.Decision == DecisionRejected {
		return
	}

	outcome := &attendance.Outcome{
		ID:         uuid.NewString(),
		SessionID:  sess.ID,
		StudentID:  sess.StudentID,
		LectureID:  sess.LectureID,
		RoomID:     sess.RoomID,
		Decision:   string(sess.Decision),
		Confidence: OverallConfidence(sess.Steps),
		RecordedAt: s.clock(),
	}
	for _, r := range sess.Steps {
		outcome.Steps = append(outcome.Steps, attendance.StepOutcome{
			Step:       string(r.Step),
			Success:    r.Success,
			Confidence: r.Confidence,
			Warning:    strings.Join(r.Warnings, "; "),
		})
	}
	if err := s.attendance.Record(ctx, outcome); err != nil {
		// The session decision stands; surface the gap for operators.
		s.log.ErrorContext(ctx, "attendance record failed after approval",
			slog.String("session_id", sess.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Service) discardExpired(ctx context.Context, sessionID, studentID string) {
	if err := s.sessions.Delete(ctx, sessionID); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		s.log.WarnContext(ctx, "could not discard expired session",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
	}
	s.audit.Emit(ctx, audit.Event{
		Actor:   studentID,
		Action:  audit.ActionSessionExpired,
		Subject: sessionID,
	})
}

func (s *Service) authorize(sess *Session, studentID string) error {
	if sess.StudentID != studentID {
		return dErrors.New(dErrors.CodeForbidden, "session belongs to another student")
	}
	return nil
}

func (s *Service) sessionError(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeNotFound, "verification session not found")
	}
	return err
}

func finalReason(sess *Session) string {
	var reasons []string
	for _, r := range sess.Steps {
		reasons = append(reasons, r.Errors...)
	}
	return strings.Join(reasons, "; ")
}
