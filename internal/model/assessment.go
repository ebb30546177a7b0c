package model

import "time"

type AssessmentStatus string

const (
	AssessmentInactive AssessmentStatus = "inactive"
	AssessmentActive   AssessmentStatus = "active"
	AssessmentEnded    AssessmentStatus = "ended"
)

// ViolationAction is what happens when the violation threshold is reached
type ViolationAction string

const (
	ActionWarn         ViolationAction = "warn"
	ActionForcedSubmit ViolationAction = "forced_submit"
	ActionBlock        ViolationAction = "block"
)

// Valid reports whether the action is one of the known policy actions
func (a ViolationAction) Valid() bool {
	switch a {
	case ActionWarn, ActionForcedSubmit, ActionBlock:
		return true
	}
	return false
}

// AntiCheatPolicy configures the violation monitor for one assessment
type AntiCheatPolicy struct {
	MaxViolations int             `json:"maxViolations" bson:"maxViolations"` // 0 disables the threshold
	Action        ViolationAction `json:"action" bson:"action"`
}

// GradeBand maps a minimum percent to a named grade
type GradeBand struct {
	MinPercent float64 `json:"minPercent" bson:"minPercent"`
	Grade      string  `json:"grade" bson:"grade"`
	Desc       string  `json:"desc" bson:"desc"`
}

// Assessment is one leveled exam definition
type Assessment struct {
	ID                 string           `json:"id" bson:"_id,omitempty"`
	Slug               string           `json:"slug" bson:"slug"`
	Name               string           `json:"name" bson:"name"`
	Level              string           `json:"level" bson:"level"`
	AttemptsLimit      int              `json:"attemptsLimit" bson:"attemptsLimit"`
	Status             AssessmentStatus `json:"status" bson:"status"`
	StartsAt           *time.Time       `json:"startsAt,omitempty" bson:"startsAt,omitempty"`
	EndsAt             *time.Time       `json:"endsAt,omitempty" bson:"endsAt,omitempty"`
	DurationSeconds    int              `json:"durationSeconds" bson:"durationSeconds"`
	PerQuestionSeconds int              `json:"perQuestionSeconds" bson:"perQuestionSeconds"`
	RandomizeQuestions bool             `json:"randomizeQuestions" bson:"randomizeQuestions"`
	RandomizeOptions   bool             `json:"randomizeOptions" bson:"randomizeOptions"`
	RequireTutorial    bool             `json:"requireTutorial" bson:"requireTutorial"`
	AntiCheat          AntiCheatPolicy  `json:"antiCheat" bson:"antiCheat"`
	GradeBands         []GradeBand      `json:"gradeBands" bson:"gradeBands"` // descending by MinPercent
	CreatedAt          time.Time        `json:"createdAt" bson:"createdAt"`
	UpdatedAt          time.Time        `json:"updatedAt" bson:"updatedAt"`
}

// IsActive reports whether candidates may start the assessment at now.
// An activation window, when present, takes precedence over Status.
func (a *Assessment) IsActive(now time.Time) bool {
	if a.StartsAt != nil || a.EndsAt != nil {
		if a.StartsAt != nil && now.Before(*a.StartsAt) {
			return false
		}
		if a.EndsAt != nil && !now.Before(*a.EndsAt) {
			return false
		}
		return a.Status != AssessmentEnded
	}
	return a.Status == AssessmentActive
}

// Duration returns the timed window for the main set
func (a *Assessment) Duration(questionCount int) time.Duration {
	if a.DurationSeconds > 0 {
		return time.Duration(a.DurationSeconds) * time.Second
	}
	return time.Duration(a.PerQuestionSeconds*questionCount) * time.Second
}
