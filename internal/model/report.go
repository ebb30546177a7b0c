package model

import "time"

type RenderStatus string

const (
	RenderPending RenderStatus = "pending"
	RenderReady   RenderStatus = "ready"
	RenderFailed  RenderStatus = "failed"
)

// ResultReport is the certificate payload derived once from a submission
type ResultReport struct {
	SubmissionID   string       `json:"submissionId" bson:"_id"`
	RespondentName string       `json:"respondentName" bson:"respondentName"`
	Email          string       `json:"email" bson:"email"`
	ExternalID     string       `json:"externalId,omitempty" bson:"externalId,omitempty"`
	AssessmentName string       `json:"assessmentName" bson:"assessmentName"`
	Score          float64      `json:"score" bson:"score"`
	Total          float64      `json:"total" bson:"total"`
	Percent        float64      `json:"percent" bson:"percent"`
	Grade          string       `json:"grade" bson:"grade"`
	GradeDesc      string       `json:"gradeDesc" bson:"gradeDesc"`
	Document       string       `json:"document,omitempty" bson:"document,omitempty"` // renderer output reference
	RenderStatus   RenderStatus `json:"renderStatus" bson:"renderStatus"`
	CreatedAt      time.Time    `json:"createdAt" bson:"createdAt"`
	RenderedAt     *time.Time   `json:"renderedAt,omitempty" bson:"renderedAt,omitempty"`
}
