package model

// ViolationReport is a client integrity event. Sequence is chosen by the
// client and makes retries idempotent.
type ViolationReport struct {
	Reason   string `json:"reason"`
	Sequence int    `json:"sequence"`
}

type ViolationOutcome string

const (
	ViolationDuplicate    ViolationOutcome = "duplicate"
	ViolationWarn         ViolationOutcome = "warn"
	ViolationForcedSubmit ViolationOutcome = "forced_submit"
	ViolationBlocked      ViolationOutcome = "blocked"
)

// ViolationResult tells the client what the monitor decided
type ViolationResult struct {
	AttemptID    string           `json:"attemptId"`
	Count        int              `json:"count"`
	Threshold    int              `json:"threshold"`
	Outcome      ViolationOutcome `json:"outcome"`
	SubmissionID string           `json:"submissionId,omitempty"`
}
