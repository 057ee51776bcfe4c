package face

import "time"

// AntiSpoofing carries the liveness signals computed on the device.
type AntiSpoofing struct {
	LivenessScore    float64 `json:"liveness_score"`
	DepthScore       float64 `json:"depth_score"`
	MotionScore      float64 `json:"motion_score"`
	TextureAuthentic bool    `json:"texture_authentic"`
}

// Device describes the phone presenting a face match. Model and OSVersion
// may be filled from the user agent string when absent.
type Device struct {
	Model     string `json:"model,omitempty"`
	OSVersion string `json:"os_version,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

// MatchInput is the externally computed match evidence submitted by the
// client. The matching itself happens on the device; the gate only applies
// thresholds.
type MatchInput struct {
	MatchConfidence float64      `json:"match_confidence"`
	AntiSpoofing    AntiSpoofing `json:"anti_spoofing"`
	Device          Device       `json:"device_info"`
}

// MatchResult is the gate's verdict with the individual check outcomes
// preserved for the step report.
type MatchResult struct {
	Verified           bool    `json:"verified"`
	Confidence         float64 `json:"confidence"`
	AntiSpoofingPassed bool    `json:"anti_spoofing_passed"`
	DeviceConsistent   bool    `json:"device_consistency"`
}

// Registration is the device a student enrolled their face on. Verification
// must come from the same model and OS major version.
type Registration struct {
	StudentID    string    `json:"student_id"`
	Device       Device    `json:"device"`
	RegisteredAt time.Time `json:"registered_at"`
}
