package handler

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/usamatauqir381/questxcopilot/internal/model"
	"github.com/usamatauqir381/questxcopilot/internal/service"
	"github.com/usamatauqir381/questxcopilot/internal/transport/rest/middleware"
)

// AttemptHandler handles candidate actions on an in-progress attempt
type AttemptHandler struct {
	sessionSvc *service.SessionService
	monitorSvc *service.MonitorService
}

// NewAttemptHandler creates a new attempt handler
func NewAttemptHandler(sessionSvc *service.SessionService, monitorSvc *service.MonitorService) *AttemptHandler {
	return &AttemptHandler{
		sessionSvc: sessionSvc,
		monitorSvc: monitorSvc,
	}
}

// authorize resolves the attempt from the path and checks it belongs to the caller
func (h *AttemptHandler) authorize(w http.ResponseWriter, r *http.Request) (string, bool) {
	attemptID := mux.Vars(r)["id"]
	if err := h.sessionSvc.AuthorizeAttempt(r.Context(), attemptID, middleware.GetRespondentID(r.Context())); err != nil {
		writeCandidateError(w, err)
		return "", false
	}
	return attemptID, true
}

// Get handles GET /v1/attempts/{id}
func (h *AttemptHandler) Get(w http.ResponseWriter, r *http.Request) {
	attemptID, ok := h.authorize(w, r)
	if !ok {
		return
	}

	delivery, err := h.sessionSvc.GetDelivery(r.Context(), attemptID)
	if err != nil {
		writeCandidateError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, delivery)
}

// SaveAnswerRequest is the body for saving one answer
type SaveAnswerRequest struct {
	Answer string `json:"answer"`
}

// SaveAnswer handles PUT /v1/attempts/{id}/answers/{questionId}
func (h *AttemptHandler) SaveAnswer(w http.ResponseWriter, r *http.Request) {
	attemptID, ok := h.authorize(w, r)
	if !ok {
		return
	}

	var req SaveAnswerRequest
	if !decode(w, r, &req) {
		return
	}

	if err := h.sessionSvc.SaveAnswer(r.Context(), attemptID, mux.Vars(r)["questionId"], req.Answer); err != nil {
		writeCandidateError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

// ReportViolation handles POST /v1/attempts/{id}/violations
func (h *AttemptHandler) ReportViolation(w http.ResponseWriter, r *http.Request) {
	attemptID, ok := h.authorize(w, r)
	if !ok {
		return
	}

	var req model.ViolationReport
	if !decode(w, r, &req) {
		return
	}

	result, err := h.monitorSvc.RecordViolation(r.Context(), attemptID, req)
	if err != nil {
		writeCandidateError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// SubmitRequest carries the final answers keyed by question id
type SubmitRequest struct {
	Answers map[string]string `json:"answers"`
}

// Submit handles POST /v1/attempts/{id}/submit
func (h *AttemptHandler) Submit(w http.ResponseWriter, r *http.Request) {
	attemptID, ok := h.authorize(w, r)
	if !ok {
		return
	}

	var req SubmitRequest
	if !decode(w, r, &req) {
		return
	}

	sub, err := h.sessionSvc.Submit(r.Context(), attemptID, req.Answers)
	if errors.Is(err, service.ErrAlreadySubmitted) && sub != nil {
		writeJSON(w, http.StatusConflict, map[string]interface{}{
			"code":       service.ErrorCode(err),
			"error":      candidateMessages[service.ErrorCode(err)],
			"submission": sub.Summary(),
		})
		return
	}
	if err != nil {
		writeCandidateError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub.Summary())
}

// GetSubmission handles GET /v1/submissions/{id}
func (h *AttemptHandler) GetSubmission(w http.ResponseWriter, r *http.Request) {
	summary, err := h.sessionSvc.GetSubmissionResult(r.Context(), mux.Vars(r)["id"], middleware.GetRespondentID(r.Context()))
	if err != nil {
		writeCandidateError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
