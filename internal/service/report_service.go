package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/usamatauqir381/questxcopilot/internal/model"
	"github.com/usamatauqir381/questxcopilot/internal/repository"
)

// Renderer turns a result report into a certificate document
type Renderer interface {
	// Render returns a reference to the produced document
	Render(ctx context.Context, report *model.ResultReport) (string, error)
}

// LogRenderer logs the certificate data instead of producing a file
type LogRenderer struct{}

func (LogRenderer) Render(ctx context.Context, report *model.ResultReport) (string, error) {
	log.Printf("[Report] Certificate for %s: %s %.0f/%.0f (%.1f%%) grade %s (%s)",
		report.RespondentName, report.AssessmentName, report.Score, report.Total, report.Percent, report.Grade, report.GradeDesc)
	return "log://certificates/" + report.SubmissionID, nil
}

// ReportService derives one result report per submission and renders it
type ReportService struct {
	reports     repository.ReportRepo
	respondents repository.RespondentRepo
	assessments repository.AssessmentRepo
	renderer    Renderer
	timeout     time.Duration
	now         func() time.Time
}

// NewReportService creates a new report service
func NewReportService(
	reports repository.ReportRepo,
	respondents repository.RespondentRepo,
	assessments repository.AssessmentRepo,
	renderer Renderer,
	timeout time.Duration,
) *ReportService {
	if renderer == nil {
		renderer = LogRenderer{}
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ReportService{
		reports:     reports,
		respondents: respondents,
		assessments: assessments,
		renderer:    renderer,
		timeout:     timeout,
		now:         time.Now,
	}
}

// Create stores a pending report for sub. A second call returns the stored report.
func (s *ReportService) Create(ctx context.Context, sub *model.Submission) (*model.ResultReport, error) {
	respondent, err := s.respondents.GetByID(ctx, sub.RespondentID)
	if err != nil {
		return nil, fmt.Errorf("load respondent: %w", err)
	}
	assessment, err := s.assessments.GetByID(ctx, sub.AssessmentID)
	if err != nil {
		return nil, fmt.Errorf("load assessment: %w", err)
	}

	report := &model.ResultReport{
		SubmissionID: sub.ID,
		Score:        sub.Score,
		Total:        sub.TotalPoints,
		Percent:      sub.Percent,
		Grade:        sub.Grade,
		GradeDesc:    sub.GradeDesc,
		RenderStatus: model.RenderPending,
		CreatedAt:    s.now(),
	}
	if respondent != nil {
		report.RespondentName = respondent.Name
		report.Email = respondent.Email
		report.ExternalID = respondent.ExternalID
	}
	if assessment != nil {
		report.AssessmentName = assessment.Name
	}

	err = s.reports.Create(ctx, report)
	if errors.Is(err, repository.ErrDuplicate) {
		return s.reports.Get(ctx, sub.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("save report: %w", err)
	}
	return report, nil
}

// Render runs the renderer for a pending report (call async)
func (s *ReportService) Render(ctx context.Context, report *model.ResultReport) {
	if report.RenderStatus != model.RenderPending {
		return
	}
	rctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	status := model.RenderReady
	doc, err := s.renderer.Render(rctx, report)
	if err != nil {
		log.Printf("[Report] ERROR: render failed for submission %s: %v", report.SubmissionID, err)
		status = model.RenderFailed
	}
	if err := s.reports.SetRendered(rctx, report.SubmissionID, status, doc, s.now()); err != nil {
		log.Printf("[Report] ERROR: failed to save render status for %s: %v", report.SubmissionID, err)
	}
}

// Generate creates the report and renders it in the background
func (s *ReportService) Generate(ctx context.Context, sub *model.Submission) {
	report, err := s.Create(ctx, sub)
	if err != nil {
		log.Printf("[Report] ERROR: failed to create report for %s: %v", sub.ID, err)
		return
	}
	go s.Render(context.WithoutCancel(ctx), report)
}

// Get returns the report for a submission
func (s *ReportService) Get(ctx context.Context, submissionID string) (*model.ResultReport, error) {
	report, err := s.reports.Get(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if report == nil {
		return nil, fmt.Errorf("%w: report for %s", ErrNotFound, submissionID)
	}
	return report, nil
}
