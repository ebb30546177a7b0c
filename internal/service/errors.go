package service

import "errors"

var (
	ErrAccessDenied         = errors.New("access denied")
	ErrRateLimited          = errors.New("too many code requests")
	ErrExpired              = errors.New("expired")
	ErrAttemptLimitExceeded = errors.New("attempts limit reached")
	ErrAssessmentNotActive  = errors.New("assessment is not active")
	ErrInvalidSessionState  = errors.New("operation not allowed in current state")
	ErrAlreadySubmitted     = errors.New("attempt already submitted")
	ErrIntegrity            = errors.New("integrity error")
	ErrUnavailable          = errors.New("service temporarily unavailable")
	ErrNotFound             = errors.New("not found")
	ErrCodeNotFound         = errors.New("code not found")
	ErrCodeMismatch         = errors.New("invalid code")
	ErrValidation           = errors.New("validation failed")

	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrAccessDenied, "access_denied"},
	{ErrRateLimited, "rate_limited"},
	{ErrExpired, "expired"},
	{ErrAttemptLimitExceeded, "attempt_limit_exceeded"},
	{ErrAssessmentNotActive, "assessment_not_active"},
	{ErrInvalidSessionState, "invalid_session_state"},
	{ErrAlreadySubmitted, "already_submitted"},
	{ErrIntegrity, "integrity_error"},
	{ErrUnavailable, "unavailable"},
	{ErrNotFound, "not_found"},
	{ErrCodeNotFound, "code_not_found"},
	{ErrCodeMismatch, "code_mismatch"},
	{ErrValidation, "validation"},
	{ErrInvalidCredentials, "access_denied"},
	{ErrInvalidToken, "access_denied"},
}

// ErrorCode returns the stable code for err, or "internal" for unclassified errors
func ErrorCode(err error) string {
	for _, c := range errorCodes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "internal"
}
