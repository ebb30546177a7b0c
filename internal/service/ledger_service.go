package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/usamatauqir381/questxcopilot/internal/cache"
	"github.com/usamatauqir381/questxcopilot/internal/model"
	"github.com/usamatauqir381/questxcopilot/internal/repository"
)

// OpenRequest describes the attempt a session wants to start
type OpenRequest struct {
	RespondentID string
	Assessment   *model.Assessment
	SetID        string
	SessionID    string
	CredentialID string
	Duration     time.Duration // zero means untimed
}

// LedgerService owns attempt numbering, the attempts limit and terminal commits
type LedgerService struct {
	attempts    repository.AttemptRepo
	submissions repository.SubmissionRepo
	credentials repository.CredentialRepo
	locker      cache.Locker
	now         func() time.Time
}

// NewLedgerService creates a new ledger
func NewLedgerService(
	attempts repository.AttemptRepo,
	submissions repository.SubmissionRepo,
	credentials repository.CredentialRepo,
	locker cache.Locker,
) *LedgerService {
	return &LedgerService{
		attempts:    attempts,
		submissions: submissions,
		credentials: credentials,
		locker:      locker,
		now:         time.Now,
	}
}

// SetClock replaces the time source
func (s *LedgerService) SetClock(now func() time.Time) {
	s.now = now
}

func ledgerKey(respondentID, assessmentID string) string {
	return fmt.Sprintf("ledger:%s:%s", respondentID, assessmentID)
}

func finishKey(attemptID string) string {
	return fmt.Sprintf("attempt:%s:finish", attemptID)
}

// CountConsumed counts attempts charged against the limit: every submission
// (normal, forced or expired) plus every blocked attempt.
func (s *LedgerService) CountConsumed(ctx context.Context, respondentID, assessmentID string) (int, error) {
	submitted, err := s.submissions.CountByRespondent(ctx, respondentID, assessmentID)
	if err != nil {
		return 0, fmt.Errorf("count submissions: %w", err)
	}
	blocked, err := s.attempts.CountByState(ctx, respondentID, assessmentID, model.AttemptBlocked)
	if err != nil {
		return 0, fmt.Errorf("count blocked attempts: %w", err)
	}
	return submitted + blocked, nil
}

// OpenAttempt returns the respondent's in-progress attempt or creates the next one.
// resumed reports whether an existing attempt was returned.
func (s *LedgerService) OpenAttempt(ctx context.Context, req OpenRequest) (attempt *model.Attempt, resumed bool, err error) {
	a := req.Assessment
	unlock, err := lockKey(ctx, s.locker, ledgerKey(req.RespondentID, a.ID))
	if err != nil {
		return nil, false, err
	}
	defer unlock()

	open, err := s.attempts.FindOpen(ctx, req.RespondentID, a.ID)
	if err != nil {
		return nil, false, fmt.Errorf("find open attempt: %w", err)
	}
	if open != nil {
		return open, true, nil
	}

	consumed, err := s.CountConsumed(ctx, req.RespondentID, a.ID)
	if err != nil {
		return nil, false, err
	}
	if consumed >= a.AttemptsLimit {
		return nil, false, fmt.Errorf("%w: %d of %d used", ErrAttemptLimitExceeded, consumed, a.AttemptsLimit)
	}

	last, err := s.attempts.LastAttemptNo(ctx, req.RespondentID, a.ID)
	if err != nil {
		return nil, false, fmt.Errorf("last attempt number: %w", err)
	}

	now := s.now()
	attempt = &model.Attempt{
		RespondentID: req.RespondentID,
		AssessmentID: a.ID,
		SetID:        req.SetID,
		AttemptNo:    last + 1,
		SessionID:    req.SessionID,
		CredentialID: req.CredentialID,
		State:        model.AttemptInProgress,
		StartedAt:    now,
	}
	if req.Duration > 0 {
		deadline := now.Add(req.Duration)
		attempt.ExpiresAt = &deadline
	}

	if err := s.attempts.Create(ctx, attempt); err != nil {
		if repository.IsDuplicate(err) {
			return nil, false, fmt.Errorf("%w: attempt %d already exists", ErrUnavailable, attempt.AttemptNo)
		}
		return nil, false, fmt.Errorf("create attempt: %w", err)
	}

	log.Printf("[Ledger] Opened attempt %d (%s) for respondent %s on %s", attempt.AttemptNo, attempt.ID, req.RespondentID, a.Slug)
	return attempt, false, nil
}

// Get returns an attempt or ErrNotFound
func (s *LedgerService) Get(ctx context.Context, attemptID string) (*model.Attempt, error) {
	attempt, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("load attempt: %w", err)
	}
	if attempt == nil {
		return nil, fmt.Errorf("%w: attempt %s", ErrNotFound, attemptID)
	}
	return attempt, nil
}

// CommitSubmission stores sub as the attempt's single result and moves the
// attempt to state. A second commit for the same attempt fails with
// ErrAlreadySubmitted and returns the stored submission.
func (s *LedgerService) CommitSubmission(ctx context.Context, attemptID string, sub *model.Submission, state model.AttemptState) (*model.Submission, error) {
	unlock, err := lockKey(ctx, s.locker, finishKey(attemptID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	current, err := s.Get(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if current.State != model.AttemptInProgress {
		existing, _ := s.submissions.GetByAttempt(ctx, attemptID)
		return existing, fmt.Errorf("%w: attempt is %s", ErrAlreadySubmitted, current.State)
	}

	err = withRetry("insert submission", func() error {
		return s.submissions.Create(ctx, sub)
	})
	if repository.IsDuplicate(err) {
		existing, getErr := s.submissions.GetByAttempt(ctx, attemptID)
		if getErr != nil {
			return nil, fmt.Errorf("load existing submission: %w", getErr)
		}
		if existing == nil || existing.ID != sub.ID {
			// a result exists but the attempt was never closed
			if existing != nil {
				s.finish(ctx, current, existing.Outcome.AttemptState(), existing.ID, existing.FinishedAt)
			}
			return existing, fmt.Errorf("%w: submission already recorded", ErrAlreadySubmitted)
		}
		err = nil // our own insert landed before the retry
	}
	if err != nil {
		return nil, fmt.Errorf("insert submission: %w", err)
	}

	if err := s.finish(ctx, current, state, sub.ID, sub.FinishedAt); err != nil {
		return nil, err
	}

	log.Printf("[Ledger] Committed submission %s for attempt %s (%s, %.0f/%.0f)", sub.ID, attemptID, sub.Outcome, sub.Score, sub.TotalPoints)
	return sub, nil
}

// Block terminates an attempt without a submission and retires its credential
func (s *LedgerService) Block(ctx context.Context, attemptID, reason string) (*model.Attempt, error) {
	unlock, err := lockKey(ctx, s.locker, finishKey(attemptID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	current, err := s.Get(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if current.State != model.AttemptInProgress {
		return current, fmt.Errorf("%w: attempt is %s", ErrInvalidSessionState, current.State)
	}

	now := s.now()
	if err := s.finish(ctx, current, model.AttemptBlocked, "", now); err != nil {
		return nil, err
	}

	log.Printf("[Ledger] Blocked attempt %s: %s", attemptID, reason)
	current.State = model.AttemptBlocked
	current.FinishedAt = &now
	return current, nil
}

// finish transitions the attempt and flips a provisioned credential to used.
// The credential flip is best effort once the attempt is closed.
func (s *LedgerService) finish(ctx context.Context, attempt *model.Attempt, state model.AttemptState, submissionID string, at time.Time) error {
	var ok bool
	err := withRetry("finish attempt", func() error {
		var err error
		ok, err = s.attempts.Finish(ctx, attempt.ID, state, submissionID, at)
		return err
	})
	if err != nil {
		return fmt.Errorf("finish attempt: %w", err)
	}
	if !ok {
		log.Printf("[Ledger] WARN: attempt %s was no longer in progress when finishing as %s", attempt.ID, state)
	}

	if attempt.CredentialID != "" {
		err := withRetry("mark credential used", func() error {
			return s.credentials.MarkUsed(ctx, attempt.CredentialID, at)
		})
		if err != nil {
			log.Printf("[Ledger] ERROR: failed to mark credential %s used: %v", attempt.CredentialID, err)
		}
	}
	return nil
}

// SaveAnswer records an answer on an in-progress attempt
func (s *LedgerService) SaveAnswer(ctx context.Context, attemptID, questionID, text string) error {
	ok, err := s.attempts.SaveAnswer(ctx, attemptID, questionID, text)
	if err != nil {
		return fmt.Errorf("save answer: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: attempt %s is not in progress", ErrInvalidSessionState, attemptID)
	}
	return nil
}
