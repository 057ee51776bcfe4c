package audit

import "time"

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	Subject   string    `json:"subject"`
	Decision  string    `json:"decision,omitempty"`
	Reason    string    `json:"reason,omitempty"`
}

// Actions emitted by the verification and recording flows.
const (
	ActionSessionStarted     = "verification.session.started"
	ActionStepSubmitted      = "verification.step.submitted"
	ActionSessionFinalized   = "verification.session.finalized"
	ActionSessionExpired     = "verification.session.expired"
	ActionRecordingStarted   = "recording.session.started"
	ActionRecordingCompleted = "recording.session.completed"
	ActionRecordingCancelled = "recording.session.cancelled"
	ActionCodeIssued         = "code.issued"
)
