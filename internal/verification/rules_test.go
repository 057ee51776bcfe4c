package verification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGPSConfidence(t *testing.T) {
	t.Run("inside at the center is full confidence", func(t *testing.T) {
		assert.InDelta(t, 1.0, gpsConfidence(true, 0), 1e-9)
	})

	t.Run("inside decays with distance down to 0.5", func(t *testing.T) {
		assert.InDelta(t, 0.75, gpsConfidence(true, 5), 1e-9)
		assert.InDelta(t, 0.5, gpsConfidence(true, 20), 1e-9)
		assert.InDelta(t, 0.5, gpsConfidence(true, 100), 1e-9)
	})

	t.Run("outside starts at 0.5 and reaches zero", func(t *testing.T) {
		assert.InDelta(t, 0.5, gpsConfidence(false, 0), 1e-9)
		assert.InDelta(t, 0.3, gpsConfidence(false, 10), 1e-9)
		assert.InDelta(t, 0.0, gpsConfidence(false, 25), 1e-9)
		assert.InDelta(t, 0.0, gpsConfidence(false, 500), 1e-9)
	})
}

func TestBarometerWarningConfidence(t *testing.T) {
	assert.InDelta(t, 0.35, barometerWarningConfidence(0.7), 1e-9)
	assert.InDelta(t, 0.0, barometerWarningConfidence(0), 1e-9)
	assert.InDelta(t, 0.0, barometerWarningConfidence(-1), 1e-9)
}

func TestOverallConfidence(t *testing.T) {
	t.Run("averages over the full sequence", func(t *testing.T) {
		steps := []StepResult{
			{Step: StepGPSLocation, Confidence: 1.0},
			{Step: StepBarometerAltitude, Confidence: 0.8},
			{Step: StepQRCode, Confidence: 1.0},
			{Step: StepFaceRecognition, Confidence: 0.9},
		}
		assert.InDelta(t, 0.925, OverallConfidence(steps), 1e-9)
	})

	t.Run("missing steps count as zero", func(t *testing.T) {
		steps := []StepResult{
			{Step: StepGPSLocation, Confidence: 1.0},
			{Step: StepBarometerAltitude, Confidence: 1.0},
		}
		assert.InDelta(t, 0.5, OverallConfidence(steps), 1e-9)
	})

	t.Run("empty session has zero confidence", func(t *testing.T) {
		assert.Zero(t, OverallConfidence(nil))
	})
}

func TestStepOrderAdvance(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	t.Run("each step hands off to the next", func(t *testing.T) {
		s := &Session{CurrentStep: StepGPSLocation, StartedAt: now}
		advance(s, StepResult{Step: StepGPSLocation, Success: true}, now)
		assert.Equal(t, StepBarometerAltitude, s.CurrentStep)
		assert.False(t, s.Completed())

		advance(s, StepResult{Step: StepBarometerAltitude, Success: true}, now)
		assert.Equal(t, StepQRCode, s.CurrentStep)
	})

	t.Run("failed hard step ends the session immediately", func(t *testing.T) {
		s := &Session{
			CurrentStep: StepQRCode,
			StartedAt:   now,
			Steps: []StepResult{
				{Step: StepGPSLocation, Status: StatusSuccess, Success: true},
				{Step: StepBarometerAltitude, Status: StatusSuccess, Success: true},
			},
		}
		advance(s, StepResult{Step: StepQRCode, Status: StatusFailed}, now)

		assert.True(t, s.Completed())
		assert.Equal(t, DecisionRejected, s.Decision)
		assert.Equal(t, AttendanceRejected, s.AttendanceType)
	})

	t.Run("failed soft step continues with a warning", func(t *testing.T) {
		s := &Session{CurrentStep: StepGPSLocation, StartedAt: now}
		advance(s, StepResult{Step: StepGPSLocation, Status: StatusWarning}, now)

		assert.False(t, s.Completed())
		assert.Equal(t, StepBarometerAltitude, s.CurrentStep)
	})
}

func TestFinalize(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 5, 0, 0, time.UTC)

	fullRun := func(gpsOK, baroOK bool) *Session {
		return &Session{
			CurrentStep: StepFaceRecognition,
			Steps: []StepResult{
				{Step: StepGPSLocation, Success: gpsOK},
				{Step: StepBarometerAltitude, Success: baroOK},
				{Step: StepQRCode, Success: true},
			},
		}
	}

	t.Run("all green approves normal attendance", func(t *testing.T) {
		s := fullRun(true, true)
		advance(s, StepResult{Step: StepFaceRecognition, Success: true}, now)

		assert.Equal(t, DecisionApproved, s.Decision)
		assert.Equal(t, AttendanceNormal, s.AttendanceType)
		assert.Equal(t, StatusSuccess, s.Status)
	})

	t.Run("location misses downgrade to exceptional, never reject", func(t *testing.T) {
		for _, tc := range []struct{ gps, baro bool }{
			{false, true},
			{true, false},
			{false, false},
		} {
			s := fullRun(tc.gps, tc.baro)
			advance(s, StepResult{Step: StepFaceRecognition, Success: true}, now)

			assert.Equal(t, DecisionApprovedWithWarnings, s.Decision)
			assert.Equal(t, AttendanceExceptional, s.AttendanceType)
			assert.Equal(t, StatusWarning, s.Status)
		}
	})
}

func TestSessionExpiry(t *testing.T) {
	started := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	s := &Session{StartedAt: started}

	assert.False(t, s.Expired(started.Add(9*time.Minute)))
	assert.True(t, s.Expired(started.Add(11*time.Minute)))

	completed := started.Add(5 * time.Minute)
	s.CompletedAt = &completed
	assert.False(t, s.Expired(started.Add(time.Hour)), "completed sessions never expire")
}

func TestSummarize(t *testing.T) {
	s := &Session{
		Steps: []StepResult{
			{Step: StepGPSLocation, Status: StatusSuccess, Confidence: 1.0},
			{Step: StepBarometerAltitude, Status: StatusWarning, Confidence: 0.3, Warnings: []string{"altitude difference: 4.2m"}},
			{Step: StepQRCode, Status: StatusFailed, Errors: []string{"code expired"}},
		},
	}
	sum := Summarize(s)

	assert.Equal(t, 1, sum.SuccessCount)
	assert.Equal(t, 1, sum.WarningCount)
	assert.Equal(t, 1, sum.FailureCount)
	assert.Equal(t, []string{"altitude difference: 4.2m"}, sum.Warnings)
	assert.Equal(t, []string{"code expired"}, sum.Errors)
	assert.InDelta(t, 0.325, sum.OverallConfidence, 1e-9)
}
