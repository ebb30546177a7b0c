package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/usamatauqir381/questxcopilot/internal/service"
)

func TestWriteCandidateError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{service.ErrAccessDenied, http.StatusForbidden, "access_denied"},
		{service.ErrRateLimited, http.StatusTooManyRequests, "rate_limited"},
		{service.ErrExpired, http.StatusGone, "expired"},
		{service.ErrAttemptLimitExceeded, http.StatusForbidden, "attempt_limit_exceeded"},
		{service.ErrAssessmentNotActive, http.StatusForbidden, "assessment_not_active"},
		{service.ErrInvalidSessionState, http.StatusConflict, "invalid_session_state"},
		{service.ErrAlreadySubmitted, http.StatusConflict, "already_submitted"},
		{service.ErrIntegrity, http.StatusInternalServerError, "integrity_error"},
		{service.ErrUnavailable, http.StatusServiceUnavailable, "unavailable"},
		{service.ErrNotFound, http.StatusNotFound, "not_found"},
		{service.ErrCodeNotFound, http.StatusBadRequest, "code_not_found"},
		{service.ErrCodeMismatch, http.StatusUnauthorized, "code_mismatch"},
		{service.ErrValidation, http.StatusBadRequest, "validation"},
		{errors.New("mongo: connection reset"), http.StatusInternalServerError, "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			wrapped := fmt.Errorf("%w: attempt 42 map missing in collection randomization_maps", tt.err)
			rec := httptest.NewRecorder()
			writeCandidateError(rec, wrapped)

			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			var body map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body["code"] != tt.code {
				t.Errorf("code = %q, want %q", body["code"], tt.code)
			}
			if body["error"] == "" || strings.Contains(body["error"], "randomization_maps") {
				t.Errorf("candidate message %q should be generic", body["error"])
			}
		})
	}
}

func TestWriteAdminError(t *testing.T) {
	rec := httptest.NewRecorder()
	writeAdminError(rec, fmt.Errorf("%w: row 3: correct option must be a, b, c or d", service.ErrValidation))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	var body map[string]string
	json.Unmarshal(rec.Body.Bytes(), &body)
	if !strings.Contains(body["error"], "row 3") {
		t.Errorf("admin message %q should carry detail", body["error"])
	}

	rec = httptest.NewRecorder()
	writeAdminError(rec, service.ErrInvalidCredentials)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad login status = %d, want 401", rec.Code)
	}
}
