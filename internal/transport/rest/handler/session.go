package handler

import (
	"net/http"

	"github.com/usamatauqir381/questxcopilot/internal/service"
	"github.com/usamatauqir381/questxcopilot/internal/transport/rest/middleware"
)

// SessionHandler moves a candidate session through tutorial and test
type SessionHandler struct {
	sessionSvc *service.SessionService
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessionSvc *service.SessionService) *SessionHandler {
	return &SessionHandler{sessionSvc: sessionSvc}
}

// Get handles GET /v1/session
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessionSvc.Get(r.Context(), middleware.GetSessionID(r.Context()))
	if err != nil {
		writeCandidateError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// StartTutorial handles POST /v1/session/tutorial
func (h *SessionHandler) StartTutorial(w http.ResponseWriter, r *http.Request) {
	tutorial, err := h.sessionSvc.StartTutorial(r.Context(), middleware.GetSessionID(r.Context()))
	if err != nil {
		writeCandidateError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tutorial)
}

// CompleteTutorial handles POST /v1/session/tutorial/complete
func (h *SessionHandler) CompleteTutorial(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessionSvc.CompleteTutorial(r.Context(), middleware.GetSessionID(r.Context()))
	if err != nil {
		writeCandidateError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"state": session.State})
}

// StartTest handles POST /v1/session/test
func (h *SessionHandler) StartTest(w http.ResponseWriter, r *http.Request) {
	delivery, err := h.sessionSvc.StartRealTest(r.Context(), middleware.GetSessionID(r.Context()))
	if err != nil {
		writeCandidateError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, delivery)
}
