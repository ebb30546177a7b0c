package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/usamatauqir381/questxcopilot/internal/cache"
	"github.com/usamatauqir381/questxcopilot/internal/model"
	"github.com/usamatauqir381/questxcopilot/internal/repository"
)

// SessionService drives a candidate from admission through tutorial and real
// test to a terminal state.
type SessionService struct {
	sessions    cache.SessionCache
	assessments repository.AssessmentRepo
	questions   repository.QuestionRepo
	submissions repository.SubmissionRepo
	ledger      *LedgerService
	randomizer  *Randomizer
	finalizer   *Finalizer
	auth        *AuthService
	broadcaster Broadcaster
	now         func() time.Time
}

// NewSessionService creates a new session state machine
func NewSessionService(
	sessions cache.SessionCache,
	assessments repository.AssessmentRepo,
	questions repository.QuestionRepo,
	submissions repository.SubmissionRepo,
	ledger *LedgerService,
	randomizer *Randomizer,
	finalizer *Finalizer,
	auth *AuthService,
) *SessionService {
	return &SessionService{
		sessions:    sessions,
		assessments: assessments,
		questions:   questions,
		submissions: submissions,
		ledger:      ledger,
		randomizer:  randomizer,
		finalizer:   finalizer,
		auth:        auth,
		now:         time.Now,
	}
}

// SetBroadcaster sets the broadcaster for WebSocket events
func (s *SessionService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// SetClock replaces the time source
func (s *SessionService) SetClock(now func() time.Time) {
	s.now = now
}

// Admit resolves the assessment for a level (or slug) and opens a session
func (s *SessionService) Admit(ctx context.Context, respondent *model.Respondent, level, credentialID string, method model.AuthMethod) (*model.AccessGrant, error) {
	assessment, err := s.ResolveAssessment(ctx, level)
	if err != nil {
		return nil, err
	}
	return s.Open(ctx, respondent, assessment, credentialID, method)
}

// ResolveAssessment finds the assessment a candidate asks for by level, falling back to slug
func (s *SessionService) ResolveAssessment(ctx context.Context, level string) (*model.Assessment, error) {
	assessment, err := s.assessments.GetByLevel(ctx, level)
	if err != nil {
		return nil, fmt.Errorf("load assessment: %w", err)
	}
	if assessment == nil {
		assessment, err = s.assessments.GetBySlug(ctx, level)
		if err != nil {
			return nil, fmt.Errorf("load assessment: %w", err)
		}
	}
	if assessment == nil {
		return nil, fmt.Errorf("%w: no assessment for level %q", ErrNotFound, level)
	}
	return assessment, nil
}

// Open creates an authenticated session and its candidate token
func (s *SessionService) Open(ctx context.Context, respondent *model.Respondent, assessment *model.Assessment, credentialID string, method model.AuthMethod) (*model.AccessGrant, error) {
	now := s.now()
	session := &model.Session{
		ID:           uuid.NewString(),
		RespondentID: respondent.ID,
		AssessmentID: assessment.ID,
		CredentialID: credentialID,
		Method:       method,
		State:        model.SessionAuthenticated,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.sessions.Set(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	token, err := s.auth.GenerateCandidateToken(session)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	log.Printf("[Session] Opened session %s for respondent %s on %s via %s", session.ID, respondent.ID, assessment.Slug, method)
	return &model.AccessGrant{
		Token:        token,
		SessionID:    session.ID,
		RespondentID: respondent.ID,
		Assessment:   assessment.Slug,
		Level:        assessment.Level,
		State:        session.State,
	}, nil
}

// Get returns the session with its state synced to the attempt it drives
func (s *SessionService) Get(ctx context.Context, sessionID string) (*model.Session, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("%w: session not found or lapsed", ErrAccessDenied)
	}
	if session.State != model.SessionRealTestInProgress || session.AttemptID == "" {
		return session, nil
	}

	attempt, err := s.ledger.Get(ctx, session.AttemptID)
	if err != nil {
		return nil, err
	}
	expired, err := s.finalizer.ExpireIfDue(ctx, attempt)
	if err != nil {
		return nil, err
	}
	if expired {
		if attempt, err = s.ledger.Get(ctx, session.AttemptID); err != nil {
			return nil, err
		}
	}
	if attempt.State.Terminal() {
		if err := s.transition(ctx, session, model.SessionStateFor(attempt.State)); err != nil {
			return nil, err
		}
	}
	return session, nil
}

func (s *SessionService) transition(ctx context.Context, session *model.Session, state model.SessionState) error {
	if session.State == state {
		return nil
	}
	session.State = state
	session.UpdatedAt = s.now()
	if err := s.sessions.Set(ctx, session); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *SessionService) activeAssessment(ctx context.Context, id string) (*model.Assessment, error) {
	assessment, err := s.assessments.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load assessment: %w", err)
	}
	if assessment == nil {
		return nil, fmt.Errorf("%w: assessment %s", ErrNotFound, id)
	}
	if !assessment.IsActive(s.now()) {
		return nil, ErrAssessmentNotActive
	}
	return assessment, nil
}

func (s *SessionService) loadSet(ctx context.Context, assessmentID string, role model.SetRole) (*model.QuestionSet, []model.Question, error) {
	set, err := s.questions.GetSet(ctx, assessmentID, role)
	if err != nil {
		return nil, nil, fmt.Errorf("load %s set: %w", role, err)
	}
	if set == nil {
		return nil, nil, fmt.Errorf("%w: no %s question set", ErrNotFound, role)
	}
	questions, err := s.questions.ListBySet(ctx, set.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("load %s questions: %w", role, err)
	}
	if len(questions) == 0 {
		return nil, nil, fmt.Errorf("%w: %s question set is empty", ErrNotFound, role)
	}
	return set, questions, nil
}

// StartTutorial delivers the practice set. Re-entry re-delivers it.
func (s *SessionService) StartTutorial(ctx context.Context, sessionID string) (*model.TutorialDelivery, error) {
	session, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.State != model.SessionAuthenticated && session.State != model.SessionTutorialInProgress {
		return nil, fmt.Errorf("%w: session is %s", ErrInvalidSessionState, session.State)
	}

	assessment, err := s.activeAssessment(ctx, session.AssessmentID)
	if err != nil {
		return nil, err
	}
	consumed, err := s.ledger.CountConsumed(ctx, session.RespondentID, assessment.ID)
	if err != nil {
		return nil, err
	}
	if consumed >= assessment.AttemptsLimit {
		return nil, fmt.Errorf("%w: %d of %d used", ErrAttemptLimitExceeded, consumed, assessment.AttemptsLimit)
	}

	_, questions, err := s.loadSet(ctx, assessment.ID, model.SetTutorial)
	if err != nil {
		return nil, err
	}
	if err := s.transition(ctx, session, model.SessionTutorialInProgress); err != nil {
		return nil, err
	}

	return &model.TutorialDelivery{
		Questions:          PresentTutorial(questions),
		PerQuestionSeconds: assessment.PerQuestionSeconds,
	}, nil
}

// CompleteTutorial marks the practice set done
func (s *SessionService) CompleteTutorial(ctx context.Context, sessionID string) (*model.Session, error) {
	session, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	switch session.State {
	case model.SessionTutorialComplete:
		return session, nil
	case model.SessionTutorialInProgress:
	default:
		return nil, fmt.Errorf("%w: session is %s", ErrInvalidSessionState, session.State)
	}
	if err := s.transition(ctx, session, model.SessionTutorialComplete); err != nil {
		return nil, err
	}
	return session, nil
}

// StartRealTest opens (or resumes) the attempt and returns its stable delivery
func (s *SessionService) StartRealTest(ctx context.Context, sessionID string) (*model.Delivery, error) {
	session, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.State == model.SessionRealTestInProgress && session.AttemptID != "" {
		return s.GetDelivery(ctx, session.AttemptID)
	}

	assessment, err := s.activeAssessment(ctx, session.AssessmentID)
	if err != nil {
		return nil, err
	}
	allowed := session.State == model.SessionTutorialComplete ||
		(session.State == model.SessionAuthenticated && !assessment.RequireTutorial)
	if !allowed {
		return nil, fmt.Errorf("%w: session is %s", ErrInvalidSessionState, session.State)
	}

	set, questions, err := s.loadSet(ctx, assessment.ID, model.SetMain)
	if err != nil {
		return nil, err
	}

	attempt, resumed, err := s.ledger.OpenAttempt(ctx, OpenRequest{
		RespondentID: session.RespondentID,
		Assessment:   assessment,
		SetID:        set.ID,
		SessionID:    session.ID,
		CredentialID: session.CredentialID,
		Duration:     assessment.Duration(len(questions)),
	})
	if err != nil {
		return nil, err
	}

	session.AttemptID = attempt.ID
	if err := s.transition(ctx, session, model.SessionRealTestInProgress); err != nil {
		return nil, err
	}

	if resumed {
		// checks the deadline, then reads or materializes the map
		return s.GetDelivery(ctx, attempt.ID)
	}

	m, err := s.randomizer.Materialize(ctx, attempt, questions, assessment)
	if err != nil {
		return nil, err
	}
	if s.broadcaster != nil {
		s.broadcaster.BroadcastToProctors(assessment.ID, MsgAttemptStarted, map[string]interface{}{
			"attemptId":    attempt.ID,
			"respondentId": attempt.RespondentID,
			"attemptNo":    attempt.AttemptNo,
		})
	}
	return s.buildDelivery(attempt, m, questions)
}

// openAttempt loads an attempt for a candidate action: terminal attempts are
// rejected and a passed deadline closes the attempt first.
func (s *SessionService) openAttempt(ctx context.Context, attemptID string) (*model.Attempt, error) {
	attempt, err := s.ledger.Get(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.State.Terminal() {
		return nil, fmt.Errorf("%w: attempt is %s", ErrInvalidSessionState, attempt.State)
	}
	expired, err := s.finalizer.ExpireIfDue(ctx, attempt)
	if err != nil {
		return nil, err
	}
	if expired {
		return nil, ErrExpired
	}
	return attempt, nil
}

// GetDelivery rebuilds the candidate view from the persisted map
func (s *SessionService) GetDelivery(ctx context.Context, attemptID string) (*model.Delivery, error) {
	attempt, err := s.openAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	m, questions, err := s.attemptMap(ctx, attempt)
	if err != nil {
		return nil, err
	}
	return s.buildDelivery(attempt, m, questions)
}

// attemptMap reads the attempt's map through the randomizer, materializing it
// when an earlier start failed before the map was stored.
func (s *SessionService) attemptMap(ctx context.Context, attempt *model.Attempt) (*model.RandomizationMap, []model.Question, error) {
	assessment, err := s.assessments.GetByID(ctx, attempt.AssessmentID)
	if err != nil {
		return nil, nil, fmt.Errorf("load assessment: %w", err)
	}
	if assessment == nil {
		return nil, nil, fmt.Errorf("%w: assessment %s missing for attempt %s", ErrIntegrity, attempt.AssessmentID, attempt.ID)
	}
	questions, err := s.questions.ListBySet(ctx, attempt.SetID)
	if err != nil {
		return nil, nil, fmt.Errorf("load questions: %w", err)
	}
	m, err := s.randomizer.Materialize(ctx, attempt, questions, assessment)
	if err != nil {
		return nil, nil, err
	}
	return m, questions, nil
}

func (s *SessionService) buildDelivery(attempt *model.Attempt, m *model.RandomizationMap, questions []model.Question) (*model.Delivery, error) {
	presented, err := Present(m, questions)
	if err != nil {
		return nil, err
	}
	return &model.Delivery{
		AttemptID: attempt.ID,
		AttemptNo: attempt.AttemptNo,
		StartedAt: attempt.StartedAt,
		ExpiresAt: attempt.ExpiresAt,
		Questions: presented,
		Answers:   attempt.Answers,
	}, nil
}

// SaveAnswer records the presented option text chosen for a question
func (s *SessionService) SaveAnswer(ctx context.Context, attemptID, questionID, text string) error {
	attempt, err := s.openAttempt(ctx, attemptID)
	if err != nil {
		return err
	}
	m, _, err := s.attemptMap(ctx, attempt)
	if err != nil {
		return err
	}
	if _, ok := m.OptionOrder[questionID]; !ok {
		return fmt.Errorf("%w: question %s is not part of this attempt", ErrValidation, questionID)
	}
	return s.ledger.SaveAnswer(ctx, attempt.ID, questionID, text)
}

// Submit scores the final answers. Answers saved earlier fill in any question
// the final payload omits. Past the deadline only saved answers count and the
// call fails with ErrExpired.
func (s *SessionService) Submit(ctx context.Context, attemptID string, answers map[string]string) (*model.Submission, error) {
	attempt, err := s.ledger.Get(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	switch attempt.State {
	case model.AttemptInProgress:
	case model.AttemptBlocked:
		return nil, fmt.Errorf("%w: attempt is blocked", ErrInvalidSessionState)
	default:
		existing, _ := s.submissions.GetByAttempt(ctx, attemptID)
		return existing, fmt.Errorf("%w: attempt is %s", ErrAlreadySubmitted, attempt.State)
	}

	expired, err := s.finalizer.ExpireIfDue(ctx, attempt)
	if err != nil {
		return nil, err
	}
	if expired {
		return nil, ErrExpired
	}

	merged := make(map[string]string, len(attempt.Answers)+len(answers))
	for k, v := range attempt.Answers {
		merged[k] = v
	}
	for k, v := range answers {
		merged[k] = v
	}

	sub, err := s.finalizer.Finalize(ctx, attempt, merged, model.OutcomeSubmitted)
	if err != nil {
		return sub, err
	}
	s.syncSession(ctx, attempt.SessionID, model.SessionSubmitted)
	return sub, nil
}

func (s *SessionService) syncSession(ctx context.Context, sessionID string, state model.SessionState) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil || session == nil {
		return
	}
	if err := s.transition(ctx, session, state); err != nil {
		log.Printf("[Session] ERROR: failed to move session %s to %s: %v", sessionID, state, err)
	}
}

// AuthorizeAttempt checks that the attempt belongs to the respondent
func (s *SessionService) AuthorizeAttempt(ctx context.Context, attemptID, respondentID string) error {
	attempt, err := s.ledger.Get(ctx, attemptID)
	if err != nil {
		return err
	}
	if attempt.RespondentID != respondentID {
		return fmt.Errorf("%w: attempt belongs to another respondent", ErrAccessDenied)
	}
	return nil
}

// GetSubmissionResult returns the candidate summary of the respondent's own submission
func (s *SessionService) GetSubmissionResult(ctx context.Context, submissionID, respondentID string) (*model.SubmissionSummary, error) {
	sub, err := s.GetSubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if sub.RespondentID != respondentID {
		return nil, fmt.Errorf("%w: submission %s", ErrNotFound, submissionID)
	}
	return sub.Summary(), nil
}

// GetSubmission returns the full submission with per-question detail
func (s *SessionService) GetSubmission(ctx context.Context, submissionID string) (*model.Submission, error) {
	sub, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("load submission: %w", err)
	}
	if sub == nil {
		return nil, fmt.Errorf("%w: submission %s", ErrNotFound, submissionID)
	}
	return sub, nil
}
