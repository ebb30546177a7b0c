package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/usamatauqir381/questxcopilot/internal/audit"
	"github.com/usamatauqir381/questxcopilot/internal/model"
	"github.com/usamatauqir381/questxcopilot/internal/repository"
)

// Finalizer closes attempts: it scores and commits submissions for normal,
// forced and expired endings, and blocks attempts without a result.
type Finalizer struct {
	ledger      *LedgerService
	randomizer  *Randomizer
	scorer      *Scorer
	questions   repository.QuestionRepo
	assessments repository.AssessmentRepo
	reports     *ReportService // optional
	audit       audit.Log      // optional
	broadcaster Broadcaster
	now         func() time.Time
}

// NewFinalizer creates a new finalizer
func NewFinalizer(
	ledger *LedgerService,
	randomizer *Randomizer,
	scorer *Scorer,
	questions repository.QuestionRepo,
	assessments repository.AssessmentRepo,
	reports *ReportService,
	auditLog audit.Log,
) *Finalizer {
	return &Finalizer{
		ledger:      ledger,
		randomizer:  randomizer,
		scorer:      scorer,
		questions:   questions,
		assessments: assessments,
		reports:     reports,
		audit:       auditLog,
		now:         time.Now,
	}
}

// SetBroadcaster sets the broadcaster for WebSocket events
func (f *Finalizer) SetBroadcaster(b Broadcaster) {
	f.broadcaster = b
}

// SetClock replaces the time source
func (f *Finalizer) SetClock(now func() time.Time) {
	f.now = now
}

var outcomeEvents = map[model.SubmissionOutcome]struct {
	kind audit.Kind
	msg  string
}{
	model.OutcomeSubmitted:    {audit.KindSubmitted, MsgSubmitted},
	model.OutcomeForcedSubmit: {audit.KindForcedSubmit, MsgForcedSubmit},
	model.OutcomeExpired:      {audit.KindExpired, MsgExpired},
}

// Finalize scores answers against the attempt's persisted map and commits the result
func (f *Finalizer) Finalize(ctx context.Context, attempt *model.Attempt, answers map[string]string, outcome model.SubmissionOutcome) (*model.Submission, error) {
	assessment, err := f.assessments.GetByID(ctx, attempt.AssessmentID)
	if err != nil {
		return nil, fmt.Errorf("load assessment: %w", err)
	}
	if assessment == nil {
		return nil, fmt.Errorf("%w: assessment %s missing for attempt %s", ErrIntegrity, attempt.AssessmentID, attempt.ID)
	}
	questions, err := f.questions.ListBySet(ctx, attempt.SetID)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	// an attempt whose map write failed gets it now, so it can still close
	m, err := f.randomizer.Materialize(ctx, attempt, questions, assessment)
	if err != nil {
		return nil, err
	}

	sub, err := f.scorer.BuildSubmission(attempt, assessment, m, questions, answers, outcome, f.now())
	if err != nil {
		return nil, err
	}

	committed, err := f.ledger.CommitSubmission(ctx, attempt.ID, sub, outcome.AttemptState())
	if err != nil {
		return committed, err
	}

	ev := outcomeEvents[outcome]
	f.record(ctx, &audit.Event{
		AttemptID: attempt.ID,
		Kind:      ev.kind,
		Reason:    attempt.LastViolation,
		Count:     attempt.ViolationCount,
	})
	f.notify(attempt, ev.msg, map[string]interface{}{
		"attemptId":    attempt.ID,
		"submissionId": committed.ID,
		"outcome":      committed.Outcome,
	})
	if f.reports != nil {
		f.reports.Generate(ctx, committed)
	}
	return committed, nil
}

// Block ends the attempt without a submission
func (f *Finalizer) Block(ctx context.Context, attempt *model.Attempt, reason string) (*model.Attempt, error) {
	blocked, err := f.ledger.Block(ctx, attempt.ID, reason)
	if err != nil {
		return blocked, err
	}
	f.record(ctx, &audit.Event{
		AttemptID: attempt.ID,
		Kind:      audit.KindBlocked,
		Reason:    reason,
		Count:     attempt.ViolationCount,
		Action:    string(model.ActionBlock),
	})
	f.notify(attempt, MsgBlocked, map[string]interface{}{
		"attemptId": attempt.ID,
		"reason":    reason,
	})
	if f.broadcaster != nil {
		f.broadcaster.DisconnectAttempt(attempt.ID)
	}
	return blocked, nil
}

// ExpireIfDue closes an in-progress attempt whose deadline has passed, scoring
// only the answers saved before the deadline. It reports whether the attempt is
// (now) expired.
func (f *Finalizer) ExpireIfDue(ctx context.Context, attempt *model.Attempt) (bool, error) {
	if attempt.State != model.AttemptInProgress || !attempt.Expired(f.now()) {
		return attempt.State == model.AttemptExpired, nil
	}

	log.Printf("[Finalizer] Attempt %s passed its deadline, committing saved answers", attempt.ID)
	_, err := f.Finalize(ctx, attempt, attempt.Answers, model.OutcomeExpired)
	if err != nil && !errors.Is(err, ErrAlreadySubmitted) {
		return false, err
	}
	return true, nil
}

func (f *Finalizer) record(ctx context.Context, e *audit.Event) {
	if f.audit == nil {
		return
	}
	if err := f.audit.Append(ctx, e); err != nil {
		log.Printf("[Finalizer] ERROR: failed to append audit event for %s: %v", e.AttemptID, err)
	}
}

func (f *Finalizer) notify(attempt *model.Attempt, msgType string, payload map[string]interface{}) {
	if f.broadcaster == nil {
		return
	}
	f.broadcaster.BroadcastToProctors(attempt.AssessmentID, msgType, payload)
	f.broadcaster.BroadcastToAttempt(attempt.ID, msgType, payload)
}
