package face

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"presence/pkg/platform/sentinel"
)

// Gate thresholds. All of them must hold; any failure is hard and is never
// downgraded to a warning.
const (
	MinMatchConfidence = 0.85
	MinLivenessScore   = 0.8
	MinDepthScore      = 0.75
	MinMotionScore     = 0.7
)

var (
	// ErrLowConfidence fails a match below the confidence floor.
	ErrLowConfidence = errors.New("face match confidence too low")
	// ErrAntiSpoofingFailed fails a match whose liveness signals do not
	// clear the thresholds.
	ErrAntiSpoofingFailed = errors.New("anti-spoofing validation failed")
	// ErrDeviceMismatch fails a match presented from a device other than
	// the one the face was enrolled on.
	ErrDeviceMismatch = errors.New("device does not match registration")
	// ErrNotRegistered fails verification for students with no enrolled
	// face.
	ErrNotRegistered = errors.New("face not registered for this student")
)

// Verifier is the capability the verification state machine depends on, so
// matching engines can be swapped without touching the step logic.
type Verifier interface {
	Verify(ctx context.Context, studentID string, input MatchInput) (MatchResult, error)
}

// Gate applies the match thresholds against the student's registration.
type Gate struct {
	registrations RegistrationStore
	log           *slog.Logger
}

func NewGate(registrations RegistrationStore, log *slog.Logger) *Gate {
	return &Gate{registrations: registrations, log: log}
}

// Verify checks confidence, anti-spoofing and device consistency in that
// order and reports the first failure.
func (g *Gate) Verify(ctx context.Context, studentID string, input MatchInput) (MatchResult, error) {
	result := MatchResult{Confidence: input.MatchConfidence}

	registration, err := g.registrations.Find(ctx, studentID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return result, ErrNotRegistered
	}
	if err != nil {
		return result, fmt.Errorf("registration lookup: %w", err)
	}

	if input.MatchConfidence < MinMatchConfidence {
		return result, fmt.Errorf("%w: %.2f < %.2f", ErrLowConfidence, input.MatchConfidence, MinMatchConfidence)
	}

	if !antiSpoofingPassed(input.AntiSpoofing) {
		return result, ErrAntiSpoofingFailed
	}
	result.AntiSpoofingPassed = true

	device := input.Device.Normalize()
	if !Consistent(device, registration.Device) {
		g.log.WarnContext(ctx, "face verification from unrecognized device",
			slog.String("student_id", studentID),
			slog.String("model", device.Model))
		return result, ErrDeviceMismatch
	}
	result.DeviceConsistent = true

	result.Verified = true
	return result, nil
}

func antiSpoofingPassed(a AntiSpoofing) bool {
	return a.LivenessScore >= MinLivenessScore &&
		a.DepthScore >= MinDepthScore &&
		a.MotionScore >= MinMotionScore &&
		a.TextureAuthentic
}
