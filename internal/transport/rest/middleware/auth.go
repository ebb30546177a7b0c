package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/usamatauqir381/questxcopilot/internal/service"
)

type contextKey string

const (
	AdminIDKey      contextKey = "adminId"
	SessionIDKey    contextKey = "sessionId"
	RespondentIDKey contextKey = "respondentId"
	AssessmentIDKey contextKey = "assessmentId"
)

// AuthMiddleware provides JWT authentication middleware
type AuthMiddleware struct {
	authSvc *service.AuthService
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(authSvc *service.AuthService) *AuthMiddleware {
	return &AuthMiddleware{authSvc: authSvc}
}

// RequireAdmin validates an operator JWT from the Authorization header
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r)
		if token == "" {
			http.Error(w, `{"code":"access_denied","error":"missing authorization header"}`, http.StatusUnauthorized)
			return
		}

		claims, err := m.authSvc.ValidateAdminToken(token)
		if err != nil {
			http.Error(w, `{"code":"access_denied","error":"invalid or expired token"}`, http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), AdminIDKey, claims.AdminID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireCandidate validates a candidate session JWT
func (m *AuthMiddleware) RequireCandidate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r)
		if token == "" {
			http.Error(w, `{"code":"access_denied","error":"missing authorization"}`, http.StatusUnauthorized)
			return
		}

		claims, err := m.authSvc.ValidateCandidateToken(token)
		if err != nil {
			http.Error(w, `{"code":"access_denied","error":"invalid or expired token"}`, http.StatusUnauthorized)
			return
		}

		ctx := r.Context()
		ctx = context.WithValue(ctx, SessionIDKey, claims.SessionID)
		ctx = context.WithValue(ctx, RespondentIDKey, claims.RespondentID)
		ctx = context.WithValue(ctx, AssessmentIDKey, claims.AssessmentID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func value(ctx context.Context, key contextKey) string {
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// GetAdminID extracts the admin ID from context
func GetAdminID(ctx context.Context) string { return value(ctx, AdminIDKey) }

// GetSessionID extracts the candidate session ID from context
func GetSessionID(ctx context.Context) string { return value(ctx, SessionIDKey) }

// GetRespondentID extracts the respondent ID from context
func GetRespondentID(ctx context.Context) string { return value(ctx, RespondentIDKey) }

// GetAssessmentID extracts the assessment ID from context
func GetAssessmentID(ctx context.Context) string { return value(ctx, AssessmentIDKey) }

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}
