package handler

import (
	"net/http"

	"github.com/usamatauqir381/questxcopilot/internal/model"
	"github.com/usamatauqir381/questxcopilot/internal/service"
)

// AccessHandler admits candidates
type AccessHandler struct {
	accessSvc  *service.AccessService
	sessionSvc *service.SessionService
}

// NewAccessHandler creates a new access handler
func NewAccessHandler(accessSvc *service.AccessService, sessionSvc *service.SessionService) *AccessHandler {
	return &AccessHandler{
		accessSvc:  accessSvc,
		sessionSvc: sessionSvc,
	}
}

// RequestAccess handles POST /v1/access/request
func (h *AccessHandler) RequestAccess(w http.ResponseWriter, r *http.Request) {
	var req model.AccessRequest
	if !decode(w, r, &req) {
		return
	}

	if err := h.accessSvc.RequestCode(r.Context(), req); err != nil {
		writeCandidateError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "code_sent"})
}

// VerifyAccess handles POST /v1/access/verify
func (h *AccessHandler) VerifyAccess(w http.ResponseWriter, r *http.Request) {
	var req model.VerifyRequest
	if !decode(w, r, &req) {
		return
	}

	// resolve before verifying so an unknown level leaves the code usable
	assessment, err := h.sessionSvc.ResolveAssessment(r.Context(), req.Level)
	if err != nil {
		writeCandidateError(w, err)
		return
	}

	respondent, err := h.accessSvc.VerifyCode(r.Context(), req.Email, req.Code)
	if err != nil {
		writeCandidateError(w, err)
		return
	}

	grant, err := h.sessionSvc.Open(r.Context(), respondent, assessment, "", model.AuthOTP)
	if err != nil {
		writeCandidateError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, grant)
}

// Login handles POST /v1/access/login
func (h *AccessHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.PasswordLoginRequest
	if !decode(w, r, &req) {
		return
	}

	respondent, cred, err := h.accessSvc.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeCandidateError(w, err)
		return
	}

	grant, err := h.sessionSvc.Admit(r.Context(), respondent, cred.Level, cred.ID, model.AuthPassword)
	if err != nil {
		writeCandidateError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, grant)
}
