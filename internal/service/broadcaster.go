package service

// Broadcaster interface for WebSocket broadcasting (avoids import cycle)
type Broadcaster interface {
	// BroadcastToProctors reaches every proctor watching the assessment
	BroadcastToProctors(assessmentID string, msgType string, payload interface{})
	BroadcastToAttempt(attemptID string, msgType string, payload interface{})
	DisconnectAttempt(attemptID string)
}

// WebSocket message types
const (
	MsgViolation      = "violation"
	MsgWarning        = "warning"
	MsgForcedSubmit   = "forced_submit"
	MsgBlocked        = "blocked"
	MsgSubmitted      = "submitted"
	MsgExpired        = "expired"
	MsgAttemptStarted = "attempt_started"
)
