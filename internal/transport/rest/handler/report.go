package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/usamatauqir381/questxcopilot/internal/service"
)

// ReportHandler handles result report endpoints
type ReportHandler struct {
	reportSvc *service.ReportService
}

// NewReportHandler creates a new report handler
func NewReportHandler(reportSvc *service.ReportService) *ReportHandler {
	return &ReportHandler{reportSvc: reportSvc}
}

// Get handles GET /v1/admin/reports/{submissionId}
func (h *ReportHandler) Get(w http.ResponseWriter, r *http.Request) {
	report, err := h.reportSvc.Get(r.Context(), mux.Vars(r)["submissionId"])
	if err != nil {
		writeAdminError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
