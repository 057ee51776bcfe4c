package attendance

import "time"

// StepOutcome is one verification step's contribution to the final record.
type StepOutcome struct {
	Step       string  `json:"step"`
	Success    bool    `json:"success"`
	Confidence float64 `json:"confidence"`
	Warning    string  `json:"warning,omitempty"`
}

// Outcome is the durable attendance record produced when a verification
// session reaches a final decision.
type Outcome struct {
	ID         string        `json:"id"`
	SessionID  string        `json:"session_id"`
	StudentID  string        `json:"student_id"`
	LectureID  string        `json:"lecture_id"`
	RoomID     string        `json:"room_id"`
	Decision   string        `json:"decision"`
	Confidence float64       `json:"confidence"`
	Steps      []StepOutcome `json:"steps"`
	RecordedAt time.Time     `json:"recorded_at"`
}
