package model

import "time"

type SubmissionOutcome string

const (
	OutcomeSubmitted    SubmissionOutcome = "submitted"
	OutcomeForcedSubmit SubmissionOutcome = "forced_submit"
	OutcomeExpired      SubmissionOutcome = "expired"
)

// AnswerDetail is the per-question audit line of a submission
type AnswerDetail struct {
	QuestionID string    `json:"questionId" bson:"questionId"`
	Text       string    `json:"text" bson:"text"`
	GivenText  string    `json:"givenText" bson:"givenText"`
	GivenKey   OptionKey `json:"givenKey,omitempty" bson:"givenKey,omitempty"` // empty when the text matched no option
	CorrectKey OptionKey `json:"correctKey" bson:"correctKey"`
	Correct    bool      `json:"correct" bson:"correct"`
}

// Submission is the immutable result of a finished attempt
type Submission struct {
	ID             string            `json:"id" bson:"_id,omitempty"`
	AttemptID      string            `json:"attemptId" bson:"attemptId"`
	AssessmentID   string            `json:"assessmentId" bson:"assessmentId"`
	RespondentID   string            `json:"respondentId" bson:"respondentId"`
	AttemptNo      int               `json:"attemptNo" bson:"attemptNo"`
	Score          float64           `json:"score" bson:"score"`
	TotalPoints    float64           `json:"totalPoints" bson:"totalPoints"`
	Percent        float64           `json:"percent" bson:"percent"`
	Grade          string            `json:"grade" bson:"grade"`
	GradeDesc      string            `json:"gradeDesc" bson:"gradeDesc"`
	Outcome        SubmissionOutcome `json:"outcome" bson:"outcome"`
	ViolationCount int               `json:"violationCount" bson:"violationCount"`
	LastViolation  string            `json:"lastViolation,omitempty" bson:"lastViolation,omitempty"`
	Details        []AnswerDetail    `json:"details" bson:"details"`
	StartedAt      time.Time         `json:"startedAt" bson:"startedAt"`
	FinishedAt     time.Time         `json:"finishedAt" bson:"finishedAt"`
}

// SubmissionSummary is the candidate-facing result: no keys, no per-question detail
type SubmissionSummary struct {
	ID          string            `json:"id"`
	AttemptNo   int               `json:"attemptNo"`
	Score       float64           `json:"score"`
	TotalPoints float64           `json:"totalPoints"`
	Percent     float64           `json:"percent"`
	Grade       string            `json:"grade"`
	GradeDesc   string            `json:"gradeDesc"`
	Outcome     SubmissionOutcome `json:"outcome"`
	FinishedAt  time.Time         `json:"finishedAt"`
}

// Summary strips audit detail for candidate responses
func (s *Submission) Summary() *SubmissionSummary {
	return &SubmissionSummary{
		ID:          s.ID,
		AttemptNo:   s.AttemptNo,
		Score:       s.Score,
		TotalPoints: s.TotalPoints,
		Percent:     s.Percent,
		Grade:       s.Grade,
		GradeDesc:   s.GradeDesc,
		Outcome:     s.Outcome,
		FinishedAt:  s.FinishedAt,
	}
}

// AttemptState is the terminal attempt state recorded for this outcome
func (o SubmissionOutcome) AttemptState() AttemptState {
	if o == OutcomeExpired {
		return AttemptExpired
	}
	return AttemptSubmitted
}
