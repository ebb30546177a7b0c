package model

import "github.com/golang-jwt/jwt/v5"

// AdminClaims are JWT claims for operator authentication
type AdminClaims struct {
	AdminID string `json:"adminId"`
	jwt.RegisteredClaims
}

// CandidateClaims are JWT claims for a candidate session
type CandidateClaims struct {
	SessionID    string `json:"sessionId"`
	RespondentID string `json:"respondentId"`
	AssessmentID string `json:"assessmentId"`
	jwt.RegisteredClaims
}

// LoginRequest is the request body for admin login
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is returned after successful admin login
type LoginResponse struct {
	Token   string `json:"token"`
	AdminID string `json:"adminId"`
}

// AccessRequest is the body of a one-time code request
type AccessRequest struct {
	Email      string `json:"email"`
	Name       string `json:"name"`
	ExternalID string `json:"externalId"`
	Consent    bool   `json:"consent"`
	AccessCode string `json:"accessCode"`
	Level      string `json:"level"`
}

// AccessGrant is returned once a candidate is admitted
type AccessGrant struct {
	Token        string       `json:"token"`
	SessionID    string       `json:"sessionId"`
	RespondentID string       `json:"respondentId"`
	Assessment   string       `json:"assessment"`
	Level        string       `json:"level"`
	State        SessionState `json:"state"`
}

// VerifyRequest completes one-time code admission for a level
type VerifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
	Level string `json:"level"`
}

// PasswordLoginRequest is the body of a provisioned-password login
type PasswordLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
