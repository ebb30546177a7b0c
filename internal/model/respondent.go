package model

import "time"

// Respondent is a candidate identity, unique by email
type Respondent struct {
	ID         string    `json:"id" bson:"_id,omitempty"`
	Email      string    `json:"email" bson:"email"`
	Name       string    `json:"name" bson:"name"`
	ExternalID string    `json:"externalId,omitempty" bson:"externalId,omitempty"` // student id or HR number
	CreatedAt  time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt" bson:"updatedAt"`
}
