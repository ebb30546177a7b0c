package model

import "time"

// OTPCode is the pending one-time code for an email address
type OTPCode struct {
	Email       string      `json:"email" bson:"_id"`
	CodeHash    string      `json:"-" bson:"codeHash"`
	ExpiresAt   time.Time   `json:"expiresAt" bson:"expiresAt"`
	SendCount   int         `json:"sendCount" bson:"sendCount"`
	LastSentAt  time.Time   `json:"lastSentAt" bson:"lastSentAt"`
	RecentSends []time.Time `json:"recentSends" bson:"recentSends"` // issuances inside the rate-limit window
}

// Pending reports whether a code is waiting to be verified
func (o *OTPCode) Pending() bool {
	return o != nil && o.CodeHash != ""
}

type CredentialStatus string

const (
	CredentialActive   CredentialStatus = "active"
	CredentialUsed     CredentialStatus = "used"
	CredentialDisabled CredentialStatus = "disabled"
)

// Credential is a provisioned password bound to one assessment level
type Credential struct {
	ID           string           `json:"id" bson:"_id,omitempty"`
	Email        string           `json:"email" bson:"email"`
	PasswordHash string           `json:"-" bson:"passwordHash"`
	Level        string           `json:"level" bson:"level"`
	Status       CredentialStatus `json:"status" bson:"status"`
	CreatedAt    time.Time        `json:"createdAt" bson:"createdAt"`
	UsedAt       *time.Time       `json:"usedAt,omitempty" bson:"usedAt,omitempty"`
}

// ProvisionRequest is one row of a credential provisioning batch.
// An empty Password asks the provisioner to generate one.
type ProvisionRequest struct {
	Email    string `json:"email"`
	Level    string `json:"level"`
	Password string `json:"password,omitempty"`
}

// ProvisionResult reports the outcome for one provisioned email
type ProvisionResult struct {
	Email             string `json:"email"`
	Level             string `json:"level"`
	Created           bool   `json:"created"`
	GeneratedPassword string `json:"generatedPassword,omitempty"` // only returned once
}
