package verification

import (
	"time"
)

// Step identifies one stage of the check-in sequence. Values are wire
// names shared with the mobile client.
type Step string

const (
	StepGPSLocation       Step = "gps_location"
	StepBarometerAltitude Step = "barometer_altitude"
	StepQRCode            Step = "qr_code"
	StepFaceRecognition   Step = "face_recognition"
)

// StepOrder is the fixed sequence every session walks through.
var StepOrder = []Step{StepGPSLocation, StepBarometerAltitude, StepQRCode, StepFaceRecognition}

// hardFail reports whether a failed step ends the session immediately.
// GPS and barometer misses only downgrade the final decision.
func (s Step) hardFail() bool {
	return s == StepQRCode || s == StepFaceRecognition
}

func nextStep(s Step) (Step, bool) {
	for i, step := range StepOrder {
		if step == s && i < len(StepOrder)-1 {
			return StepOrder[i+1], true
		}
	}
	return "", false
}

// Status reports how a step, or the whole session, went.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusWarning Status = "warning"
	StatusFailed  Status = "failed"
)

// Decision is the final ruling on a completed session.
type Decision string

const (
	DecisionNone                 Decision = ""
	DecisionApproved             Decision = "approved"
	DecisionApprovedWithWarnings Decision = "approved_with_warnings"
	DecisionRejected             Decision = "rejected"
)

// AttendanceType classifies how the attendance record should be booked.
type AttendanceType string

const (
	AttendanceNormal      AttendanceType = "normal"
	AttendanceExceptional AttendanceType = "exceptional"
	AttendanceRejected    AttendanceType = "rejected"
)

// StepResult captures the outcome of one submitted step.
type StepResult struct {
	Step             Step      `json:"step"`
	Status           Status    `json:"status"`
	Success          bool      `json:"success"`
	Confidence       float64   `json:"confidence_score"`
	Warnings         []string  `json:"warnings,omitempty"`
	Errors           []string  `json:"errors,omitempty"`
	ProcessingTimeMS int64     `json:"processing_time_ms"`
	Timestamp        time.Time `json:"timestamp"`
}

// Session is one student's in-flight or completed check-in for a lecture.
type Session struct {
	ID             string         `json:"session_id"`
	StudentID      string         `json:"student_id"`
	LectureID      string         `json:"lecture_id"`
	RoomID         string         `json:"room_id"`
	StartedAt      time.Time      `json:"started_at"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty"`
	CurrentStep    Step           `json:"current_step"`
	Status         Status         `json:"overall_status"`
	Decision       Decision       `json:"final_decision,omitempty"`
	AttendanceType AttendanceType `json:"attendance_type,omitempty"`
	Steps          []StepResult   `json:"steps_completed"`
	TotalTimeMS    int64          `json:"total_processing_time_ms"`
}

// SessionTTL bounds how long a session may sit between creation and its
// final step. Expiry is checked lazily on the next access.
const SessionTTL = 10 * time.Minute

func (s *Session) Completed() bool {
	return s.CompletedAt != nil
}

func (s *Session) ExpiresAt() time.Time {
	return s.StartedAt.Add(SessionTTL)
}

// Expired reports whether an unfinished session has outlived its window.
func (s *Session) Expired(now time.Time) bool {
	return !s.Completed() && now.After(s.ExpiresAt())
}

func (s *Session) result(step Step) *StepResult {
	for i := range s.Steps {
		if s.Steps[i].Step == step {
			return &s.Steps[i]
		}
	}
	return nil
}

// Summary is the read model returned to clients polling a session.
type Summary struct {
	Session           *Session `json:"session"`
	OverallConfidence float64  `json:"overall_confidence"`
	SuccessCount      int      `json:"steps_succeeded"`
	WarningCount      int      `json:"steps_with_warnings"`
	FailureCount      int      `json:"steps_failed"`
	Warnings          []string `json:"warnings,omitempty"`
	Errors            []string `json:"errors,omitempty"`
}

// Summarize rolls a session's step results into a client-facing summary.
func Summarize(s *Session) Summary {
	sum := Summary{Session: s, OverallConfidence: OverallConfidence(s.Steps)}
	for _, r := range s.Steps {
		switch r.Status {
		case StatusSuccess:
			sum.SuccessCount++
		case StatusWarning:
			sum.WarningCount++
		case StatusFailed:
			sum.FailureCount++
		}
		sum.Warnings = append(sum.Warnings, r.Warnings...)
		sum.Errors = append(sum.Errors, r.Errors...)
	}
	return sum
}
