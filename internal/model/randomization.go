package model

import "time"

// RandomizationMap is the persisted presentation order of one attempt.
// It is written once and reloaded for every delivery and for scoring.
type RandomizationMap struct {
	ID            string                  `json:"id" bson:"_id,omitempty"`
	AttemptID     string                  `json:"attemptId" bson:"attemptId"`
	QuestionOrder []string                `json:"questionOrder" bson:"questionOrder"`
	OptionOrder   map[string][4]OptionKey `json:"optionOrder" bson:"optionOrder"`
	CreatedAt     time.Time               `json:"createdAt" bson:"createdAt"`
}

// Delivery is the candidate view of an in-progress attempt
type Delivery struct {
	AttemptID string            `json:"attemptId"`
	AttemptNo int               `json:"attemptNo"`
	StartedAt time.Time         `json:"startedAt"`
	ExpiresAt *time.Time        `json:"expiresAt,omitempty"`
	Questions []PublicQuestion  `json:"questions"`
	Answers   map[string]string `json:"answers,omitempty"` // answers saved so far
}

// TutorialDelivery is the unscored practice set shown before the real test
type TutorialDelivery struct {
	Questions          []PublicQuestion `json:"questions"`
	PerQuestionSeconds int              `json:"perQuestionSeconds"`
}
