package model

import "time"

type AttemptState string

const (
	AttemptInProgress AttemptState = "in_progress"
	AttemptSubmitted  AttemptState = "submitted"
	AttemptBlocked    AttemptState = "blocked"
	AttemptExpired    AttemptState = "expired"
)

// Terminal reports whether no further candidate action is accepted
func (s AttemptState) Terminal() bool {
	return s == AttemptSubmitted || s == AttemptBlocked || s == AttemptExpired
}

// Attempt is one timed pass of a respondent through an assessment
type Attempt struct {
	ID             string            `json:"id" bson:"_id,omitempty"`
	RespondentID   string            `json:"respondentId" bson:"respondentId"`
	AssessmentID   string            `json:"assessmentId" bson:"assessmentId"`
	SetID          string            `json:"setId" bson:"setId"` // main set version delivered
	AttemptNo      int               `json:"attemptNo" bson:"attemptNo"`
	SessionID      string            `json:"sessionId" bson:"sessionId"`
	CredentialID   string            `json:"credentialId,omitempty" bson:"credentialId,omitempty"` // provisioned mode only
	State          AttemptState      `json:"state" bson:"state"`
	StartedAt      time.Time         `json:"startedAt" bson:"startedAt"`
	ExpiresAt      *time.Time        `json:"expiresAt,omitempty" bson:"expiresAt,omitempty"`
	ViolationCount int               `json:"violationCount" bson:"violationCount"`
	ViolationSeqs  []int             `json:"-" bson:"violationSeqs"`
	LastViolation  string            `json:"lastViolation,omitempty" bson:"lastViolation,omitempty"`
	Answers        map[string]string `json:"-" bson:"answers"` // questionId -> presented text, saved before submit
	SubmissionID   string            `json:"submissionId,omitempty" bson:"submissionId,omitempty"`
	FinishedAt     *time.Time        `json:"finishedAt,omitempty" bson:"finishedAt,omitempty"`
}

// Expired reports whether the server-side deadline has passed at now
func (a *Attempt) Expired(now time.Time) bool {
	return a.ExpiresAt != nil && now.After(*a.ExpiresAt)
}

// HasSequence reports whether a violation sequence number was already counted
func (a *Attempt) HasSequence(seq int) bool {
	for _, s := range a.ViolationSeqs {
		if s == seq {
			return true
		}
	}
	return false
}
