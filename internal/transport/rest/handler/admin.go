package handler

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/usamatauqir381/questxcopilot/internal/model"
	"github.com/usamatauqir381/questxcopilot/internal/service"
)

// AdminHandler handles operator endpoints
type AdminHandler struct {
	provisioningSvc *service.ProvisioningService
	sessionSvc      *service.SessionService
	monitorSvc      *service.MonitorService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(provisioningSvc *service.ProvisioningService, sessionSvc *service.SessionService, monitorSvc *service.MonitorService) *AdminHandler {
	return &AdminHandler{
		provisioningSvc: provisioningSvc,
		sessionSvc:      sessionSvc,
		monitorSvc:      monitorSvc,
	}
}

// ListAssessments handles GET /v1/admin/assessments
func (h *AdminHandler) ListAssessments(w http.ResponseWriter, r *http.Request) {
	assessments, err := h.provisioningSvc.ListAssessments(r.Context())
	if err != nil {
		writeAdminError(w, err)
		return
	}
	if assessments == nil {
		assessments = []*model.Assessment{}
	}
	writeJSON(w, http.StatusOK, assessments)
}

// StatusRequest changes an assessment's status and window
type StatusRequest struct {
	Status   model.AssessmentStatus `json:"status"`
	StartsAt *time.Time             `json:"startsAt,omitempty"`
	EndsAt   *time.Time             `json:"endsAt,omitempty"`
}

// UpdateStatus handles PUT /v1/admin/assessments/{slug}/status
func (h *AdminHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if !decode(w, r, &req) {
		return
	}

	a, err := h.provisioningSvc.UpdateStatus(r.Context(), mux.Vars(r)["slug"], req.Status, req.StartsAt, req.EndsAt)
	if err != nil {
		writeAdminError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// ImportRequest is an uploaded question set
type ImportRequest struct {
	Source    string                 `json:"source"`
	Questions []model.QuestionRecord `json:"questions"`
}

// ImportQuestions handles POST /v1/admin/assessments/{slug}/sets/{role}?shared=true
func (h *AdminHandler) ImportQuestions(w http.ResponseWriter, r *http.Request) {
	var req ImportRequest
	if !decode(w, r, &req) {
		return
	}

	vars := mux.Vars(r)
	shared := r.URL.Query().Get("shared") == "true"
	set, err := h.provisioningSvc.ImportQuestions(r.Context(), vars["slug"], model.SetRole(vars["role"]), shared, req.Source, req.Questions)
	if err != nil {
		writeAdminError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"set":       set,
		"questions": len(req.Questions),
	})
}

// ProvisionCredentials handles POST /v1/admin/credentials
func (h *AdminHandler) ProvisionCredentials(w http.ResponseWriter, r *http.Request) {
	var batch []model.ProvisionRequest
	if !decode(w, r, &batch) {
		return
	}

	results, err := h.provisioningSvc.UpsertCredentials(r.Context(), batch)
	if err != nil {
		writeAdminError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// GetSubmission handles GET /v1/admin/submissions/{id}
func (h *AdminHandler) GetSubmission(w http.ResponseWriter, r *http.Request) {
	sub, err := h.sessionSvc.GetSubmission(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeAdminError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// ListEvents handles GET /v1/admin/attempts/{id}/events
func (h *AdminHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.monitorSvc.Events(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeAdminError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}
