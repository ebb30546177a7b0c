package handler

import (
	"log"
	"net/http"

	"github.com/usamatauqir381/questxcopilot/internal/service"
)

var statusByCode = map[string]int{
	"access_denied":          http.StatusForbidden,
	"rate_limited":           http.StatusTooManyRequests,
	"expired":                http.StatusGone,
	"attempt_limit_exceeded": http.StatusForbidden,
	"assessment_not_active":  http.StatusForbidden,
	"invalid_session_state":  http.StatusConflict,
	"already_submitted":      http.StatusConflict,
	"integrity_error":        http.StatusInternalServerError,
	"unavailable":            http.StatusServiceUnavailable,
	"not_found":              http.StatusNotFound,
	"code_not_found":         http.StatusBadRequest,
	"code_mismatch":          http.StatusUnauthorized,
	"validation":             http.StatusBadRequest,
}

// candidateMessages never reveal internal detail
var candidateMessages = map[string]string{
	"access_denied":          "access denied",
	"rate_limited":           "too many code requests, try again later",
	"expired":                "the time allowed has passed",
	"attempt_limit_exceeded": "no attempts remaining for this assessment",
	"assessment_not_active":  "this assessment is not open",
	"invalid_session_state":  "this action is not available right now",
	"already_submitted":      "this attempt has already been submitted",
	"integrity_error":        "something went wrong, please contact the proctor",
	"unavailable":            "service temporarily unavailable, please retry",
	"not_found":              "not found",
	"code_not_found":         "no pending code for this email, request a new one",
	"code_mismatch":          "the code is not correct",
	"validation":             "the request is incomplete or invalid",
	"internal":               "something went wrong, please contact the proctor",
}

func statusFor(code string) int {
	if s, ok := statusByCode[code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// writeCandidateError maps err to its code and a generic message
func writeCandidateError(w http.ResponseWriter, err error) {
	code := service.ErrorCode(err)
	status := statusFor(code)
	if status >= http.StatusInternalServerError {
		log.Printf("[HTTP] ERROR: %v", err)
	}
	writeJSON(w, status, map[string]string{"code": code, "error": candidateMessages[code]})
}

// writeAdminError includes the full error text
func writeAdminError(w http.ResponseWriter, err error) {
	code := service.ErrorCode(err)
	status := statusFor(code)
	if code == "access_denied" {
		status = http.StatusUnauthorized
	}
	if status >= http.StatusInternalServerError {
		log.Printf("[HTTP] ERROR: %v", err)
	}
	writeJSON(w, status, map[string]string{"code": code, "error": err.Error()})
}
