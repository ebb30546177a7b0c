package model

import "time"

type SessionState string

const (
	SessionUnauthenticated    SessionState = "unauthenticated"
	SessionAuthenticated      SessionState = "authenticated"
	SessionTutorialInProgress SessionState = "tutorial_in_progress"
	SessionTutorialComplete   SessionState = "tutorial_complete"
	SessionRealTestInProgress SessionState = "real_test_in_progress"
	SessionSubmitted          SessionState = "submitted"
	SessionBlocked            SessionState = "blocked"
	SessionExpired            SessionState = "expired"
)

type AuthMethod string

const (
	AuthOTP      AuthMethod = "otp"
	AuthPassword AuthMethod = "password"
)

// Session tracks one authenticated candidate through the delivery flow
type Session struct {
	ID           string       `json:"id"`
	RespondentID string       `json:"respondentId"`
	AssessmentID string       `json:"assessmentId"`
	CredentialID string       `json:"credentialId,omitempty"`
	Method       AuthMethod   `json:"method"`
	State        SessionState `json:"state"`
	AttemptID    string       `json:"attemptId,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// SessionStateFor maps a terminal attempt state onto the session machine
func SessionStateFor(s AttemptState) SessionState {
	switch s {
	case AttemptSubmitted:
		return SessionSubmitted
	case AttemptBlocked:
		return SessionBlocked
	case AttemptExpired:
		return SessionExpired
	}
	return SessionRealTestInProgress
}
