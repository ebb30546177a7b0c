package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/usamatauqir381/questxcopilot/internal/audit"
	"github.com/usamatauqir381/questxcopilot/internal/model"
	"github.com/usamatauqir381/questxcopilot/internal/repository"
)

// MonitorService counts integrity violations and applies the assessment's policy
type MonitorService struct {
	attempts    repository.AttemptRepo
	assessments repository.AssessmentRepo
	finalizer   *Finalizer
	audit       audit.Log // optional
	broadcaster Broadcaster
}

// NewMonitorService creates a new anti-cheat monitor
func NewMonitorService(
	attempts repository.AttemptRepo,
	assessments repository.AssessmentRepo,
	finalizer *Finalizer,
	auditLog audit.Log,
) *MonitorService {
	return &MonitorService{
		attempts:    attempts,
		assessments: assessments,
		finalizer:   finalizer,
		audit:       auditLog,
	}
}

// SetBroadcaster sets the broadcaster for WebSocket events
func (s *MonitorService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// RecordViolation counts one violation per sequence number. Any count at or past
// the threshold applies the configured action while the attempt is still running;
// the ledger commits the terminal state at most once.
func (s *MonitorService) RecordViolation(ctx context.Context, attemptID string, report model.ViolationReport) (*model.ViolationResult, error) {
	reason := strings.TrimSpace(report.Reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: reason is required", ErrValidation)
	}

	attempt, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("load attempt: %w", err)
	}
	if attempt == nil {
		return nil, fmt.Errorf("%w: attempt %s", ErrNotFound, attemptID)
	}
	if attempt.State != model.AttemptInProgress {
		return nil, fmt.Errorf("%w: attempt is %s", ErrInvalidSessionState, attempt.State)
	}
	expired, err := s.finalizer.ExpireIfDue(ctx, attempt)
	if err != nil {
		return nil, err
	}
	if expired {
		return nil, ErrExpired
	}

	var (
		updated *model.Attempt
		added   bool
	)
	err = withRetry("record violation", func() error {
		var err error
		updated, added, err = s.attempts.AddViolation(ctx, attemptID, report.Sequence, reason)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("record violation: %w", err)
	}
	if updated == nil {
		return nil, fmt.Errorf("%w: attempt %s", ErrNotFound, attemptID)
	}

	assessment, err := s.assessments.GetByID(ctx, updated.AssessmentID)
	if err != nil {
		return nil, fmt.Errorf("load assessment: %w", err)
	}
	if assessment == nil {
		return nil, fmt.Errorf("%w: assessment %s", ErrIntegrity, updated.AssessmentID)
	}
	policy := assessment.AntiCheat

	result := &model.ViolationResult{
		AttemptID: attemptID,
		Count:     updated.ViolationCount,
		Threshold: policy.MaxViolations,
	}

	reached := policy.MaxViolations > 0 && updated.ViolationCount >= policy.MaxViolations

	if !added {
		// either a retried sequence or the attempt closed concurrently
		if updated.State != model.AttemptInProgress {
			return nil, fmt.Errorf("%w: attempt is %s", ErrInvalidSessionState, updated.State)
		}
		s.record(ctx, &audit.Event{
			AttemptID: attemptID,
			Kind:      audit.KindDuplicate,
			Reason:    reason,
			Sequence:  report.Sequence,
			Count:     updated.ViolationCount,
		})
		if !reached || policy.Action == model.ActionWarn {
			result.Outcome = model.ViolationDuplicate
			return result, nil
		}
		// past the threshold and still running: an earlier action failed, apply it again
	}

	result.Outcome = model.ViolationWarn
	action := model.ActionWarn
	if reached {
		action = policy.Action
	}

	if added {
		s.record(ctx, &audit.Event{
			AttemptID: attemptID,
			Kind:      audit.KindViolation,
			Reason:    reason,
			Sequence:  report.Sequence,
			Count:     updated.ViolationCount,
			Action:    string(action),
		})
		s.notifyProctors(updated, reason, action)
	}

	switch action {
	case model.ActionForcedSubmit:
		sub, err := s.finalizer.Finalize(ctx, updated, updated.Answers, model.OutcomeForcedSubmit)
		if errors.Is(err, ErrAlreadySubmitted) {
			return nil, fmt.Errorf("%w: attempt closed concurrently", ErrInvalidSessionState)
		}
		if err != nil {
			return nil, err
		}
		result.Outcome = model.ViolationForcedSubmit
		result.SubmissionID = sub.ID
		log.Printf("[Monitor] Forced submit of attempt %s after %d violations", attemptID, updated.ViolationCount)

	case model.ActionBlock:
		if _, err := s.finalizer.Block(ctx, updated, reason); err != nil {
			return nil, err
		}
		result.Outcome = model.ViolationBlocked
		log.Printf("[Monitor] Blocked attempt %s after %d violations", attemptID, updated.ViolationCount)

	default:
		if s.broadcaster != nil {
			s.broadcaster.BroadcastToAttempt(attemptID, MsgWarning, result)
		}
	}

	return result, nil
}

// Events lists the audit trail of an attempt
func (s *MonitorService) Events(ctx context.Context, attemptID string) ([]audit.Event, error) {
	if s.audit == nil {
		return []audit.Event{}, nil
	}
	return s.audit.ListByAttempt(ctx, attemptID)
}

func (s *MonitorService) record(ctx context.Context, e *audit.Event) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Append(ctx, e); err != nil {
		log.Printf("[Monitor] ERROR: failed to append audit event for %s: %v", e.AttemptID, err)
	}
}

func (s *MonitorService) notifyProctors(attempt *model.Attempt, reason string, action model.ViolationAction) {
	if s.broadcaster == nil {
		return
	}
	s.broadcaster.BroadcastToProctors(attempt.AssessmentID, MsgViolation, map[string]interface{}{
		"attemptId":    attempt.ID,
		"respondentId": attempt.RespondentID,
		"count":        attempt.ViolationCount,
		"reason":       reason,
		"action":       action,
	})
}
