package verification

import (
	"math"
	"time"
)

const (
	// Every step contributes equally to the overall confidence.
	stepWeight = 0.25

	// Inside the boundary, confidence decays with distance from the room
	// center, bottoming out at 0.5 twenty meters away.
	gpsInsideDecayM = 20.0
	// Outside the boundary, confidence starts at 0.5 and reaches zero
	// twenty-five meters past the center.
	gpsOutsideDecayM = 50.0

	// How far a barometric altitude may sit from the room's center
	// altitude before the floor is considered wrong.
	altitudeToleranceM = 3.0
)

// gpsConfidence scores a location fix. An inside fix is always worth at
// least 0.5; an outside fix never more than 0.5, so the two ranges meet
// at the boundary without overlapping.
func gpsConfidence(inside bool, distanceM float64) float64 {
	if inside {
		return 1.0 - math.Min(0.5, distanceM/gpsInsideDecayM)
	}
	return math.Max(0, 0.5-distanceM/gpsOutsideDecayM)
}

// barometerWarningConfidence halves the precision score when the reading
// falls outside the room's altitude band.
func barometerWarningConfidence(precision float64) float64 {
	return math.Max(0, precision*0.5)
}

// OverallConfidence averages step confidences over the full four-step
// sequence. Steps that never ran contribute zero, so an early rejection
// reads as low confidence rather than an average of what did run.
func OverallConfidence(steps []StepResult) float64 {
	total := 0.0
	for _, r := range steps {
		total += r.Confidence * stepWeight
	}
	return total
}

// advance moves the session to its next step, or finalizes it when the
// sequence is done or a hard-fail step missed.
func advance(s *Session, last StepResult, now time.Time) {
	if last.Step.hardFail() && !last.Success {
		reject(s, now)
		return
	}
	if next, ok := nextStep(s.CurrentStep); ok {
		s.CurrentStep = next
		return
	}
	finalize(s, now)
}

func reject(s *Session, now time.Time) {
	s.Status = StatusFailed
	s.Decision = DecisionRejected
	s.AttendanceType = AttendanceRejected
	s.CompletedAt = &now
}

// finalize rules on a session whose four steps all ran. QR and face must
// have succeeded outright; GPS and barometer misses downgrade the
// decision to exceptional attendance instead of blocking it.
func finalize(s *Session, now time.Time) {
	s.CompletedAt = &now

	qr := s.result(StepQRCode)
	faceResult := s.result(StepFaceRecognition)
	if qr == nil || !qr.Success || faceResult == nil || !faceResult.Success {
		s.Status = StatusFailed
		s.Decision = DecisionRejected
		s.AttendanceType = AttendanceRejected
		return
	}

	locationIssue := false
	if gps := s.result(StepGPSLocation); gps != nil && !gps.Success {
		locationIssue = true
	}
	if baro := s.result(StepBarometerAltitude); baro != nil && !baro.Success {
		locationIssue = true
	}

	if locationIssue {
		s.Status = StatusWarning
		s.Decision = DecisionApprovedWithWarnings
		s.AttendanceType = AttendanceExceptional
		return
	}
	s.Status = StatusSuccess
	s.Decision = DecisionApproved
	s.AttendanceType = AttendanceNormal
}
