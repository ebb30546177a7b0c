package service

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/usamatauqir381/questxcopilot/internal/model"
)

func TestSessionFullFlow(t *testing.T) {
	f := newFixture(t)
	a := f.seedAssessment(t, nil)
	r := f.respondent(t, "dana@example.com")

	grant, err := f.sessions.Admit(f.ctx, r, "L1", "", model.AuthOTP)
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if grant.State != model.SessionAuthenticated || grant.Token == "" || grant.Assessment != a.Slug {
		t.Fatalf("unexpected grant %+v", grant)
	}
	claims, err := f.auth.ValidateCandidateToken(grant.Token)
	if err != nil || claims.SessionID != grant.SessionID || claims.RespondentID != r.ID {
		t.Fatalf("token does not carry the session: %+v %v", claims, err)
	}

	if _, err := f.sessions.StartRealTest(f.ctx, grant.SessionID); !errors.Is(err, ErrInvalidSessionState) {
		t.Fatalf("expected the tutorial to be required first, got %v", err)
	}
	if _, err := f.sessions.CompleteTutorial(f.ctx, grant.SessionID); !errors.Is(err, ErrInvalidSessionState) {
		t.Fatalf("expected CompleteTutorial before StartTutorial to fail, got %v", err)
	}

	tutorial, err := f.sessions.StartTutorial(f.ctx, grant.SessionID)
	if err != nil {
		t.Fatalf("StartTutorial: %v", err)
	}
	if len(tutorial.Questions) != 2 || tutorial.PerQuestionSeconds != 30 {
		t.Fatalf("unexpected tutorial %+v", tutorial)
	}
	if _, err := f.sessions.StartTutorial(f.ctx, grant.SessionID); err != nil {
		t.Fatalf("tutorial re-entry should re-deliver: %v", err)
	}
	for i := 0; i < 2; i++ {
		session, err := f.sessions.CompleteTutorial(f.ctx, grant.SessionID)
		if err != nil || session.State != model.SessionTutorialComplete {
			t.Fatalf("CompleteTutorial call %d: %+v %v", i+1, session, err)
		}
	}

	delivery, err := f.sessions.StartRealTest(f.ctx, grant.SessionID)
	if err != nil {
		t.Fatalf("StartRealTest: %v", err)
	}
	if len(delivery.Questions) != 4 || delivery.AttemptNo != 1 || delivery.ExpiresAt == nil {
		t.Fatalf("unexpected delivery %+v", delivery)
	}
	if !f.broadcaster.has("proctors:"+a.ID, MsgAttemptStarted) {
		t.Error("proctors were not told the attempt started")
	}

	again, err := f.sessions.StartRealTest(f.ctx, grant.SessionID)
	if err != nil {
		t.Fatalf("StartRealTest re-entry: %v", err)
	}
	if !reflect.DeepEqual(again.Questions, delivery.Questions) {
		t.Fatal("re-entry must deliver the same order")
	}

	if err := f.sessions.SaveAnswer(f.ctx, delivery.AttemptID, "q4", wrongText("q", 4)); err != nil {
		t.Fatalf("SaveAnswer: %v", err)
	}
	if err := f.sessions.SaveAnswer(f.ctx, delivery.AttemptID, "q1", wrongText("q", 1)); err != nil {
		t.Fatalf("SaveAnswer: %v", err)
	}

	// q1 is corrected in the final payload, q4 keeps its saved answer
	sub, err := f.sessions.Submit(f.ctx, delivery.AttemptID, map[string]string{
		"q1": correctText("q", 1),
		"q2": correctText("q", 2),
		"q3": correctText("q", 3),
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if sub.Score != 3 || sub.TotalPoints != 4 || sub.Percent != 75 || sub.Grade != "B" {
		t.Fatalf("expected 3/4 = 75%% grade B, got %v/%v = %v%% %s", sub.Score, sub.TotalPoints, sub.Percent, sub.Grade)
	}
	if sub.Outcome != model.OutcomeSubmitted {
		t.Fatalf("unexpected outcome %s", sub.Outcome)
	}

	session, err := f.sessions.Get(f.ctx, grant.SessionID)
	if err != nil || session.State != model.SessionSubmitted {
		t.Fatalf("expected a submitted session, got %+v %v", session, err)
	}

	existing, err := f.sessions.Submit(f.ctx, delivery.AttemptID, map[string]string{"q4": correctText("q", 4)})
	if !errors.Is(err, ErrAlreadySubmitted) || existing == nil || existing.ID != sub.ID {
		t.Fatalf("expected the first submission back with ErrAlreadySubmitted, got %+v %v", existing, err)
	}
	if _, err := f.sessions.StartRealTest(f.ctx, grant.SessionID); !errors.Is(err, ErrInvalidSessionState) {
		t.Fatalf("expected re-entry after submit to be rejected, got %v", err)
	}
	if err := f.sessions.SaveAnswer(f.ctx, delivery.AttemptID, "q4", correctText("q", 4)); !errors.Is(err, ErrInvalidSessionState) {
		t.Fatalf("expected answers after submit to be rejected, got %v", err)
	}

	// attempts_limit = 1: a fresh session cannot start again
	second, err := f.sessions.Admit(f.ctx, r, "L1", "", model.AuthOTP)
	if err != nil {
		t.Fatalf("second Admit: %v", err)
	}
	if _, err := f.sessions.StartTutorial(f.ctx, second.SessionID); !errors.Is(err, ErrAttemptLimitExceeded) {
		t.Fatalf("expected ErrAttemptLimitExceeded, got %v", err)
	}

	summary, err := f.sessions.GetSubmissionResult(f.ctx, sub.ID, r.ID)
	if err != nil || summary.Percent != 75 {
		t.Fatalf("GetSubmissionResult: %+v %v", summary, err)
	}
	if _, err := f.sessions.GetSubmissionResult(f.ctx, sub.ID, "someone-else"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected another respondent's result to be hidden, got %v", err)
	}
}

func TestSubmitAfterDeadline(t *testing.T) {
	f := newFixture(t)
	a := f.seedAssessment(t, nil)
	r := f.respondent(t, "dana@example.com")
	grant, delivery := f.startRealTest(t, a, r)

	saved := map[string]string{
		"q1": correctText("q", 1),
		"q2": correctText("q", 2),
	}
	for qid, text := range saved {
		if err := f.sessions.SaveAnswer(f.ctx, delivery.AttemptID, qid, text); err != nil {
			t.Fatalf("SaveAnswer %s: %v", qid, err)
		}
	}

	f.clock.Advance(11 * time.Minute)

	_, err := f.sessions.Submit(f.ctx, delivery.AttemptID, map[string]string{
		"q1": correctText("q", 1),
		"q2": correctText("q", 2),
		"q3": correctText("q", 3),
		"q4": correctText("q", 4),
	})
	if !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}

	sub, _ := f.store.Submissions().GetByAttempt(f.ctx, delivery.AttemptID)
	if sub == nil || sub.Outcome != model.OutcomeExpired {
		t.Fatalf("expected an expired submission, got %+v", sub)
	}
	if sub.Score != 2 {
		t.Fatalf("only answers saved before the deadline count, got score %v", sub.Score)
	}

	session, err := f.sessions.Get(f.ctx, grant.SessionID)
	if err != nil || session.State != model.SessionExpired {
		t.Fatalf("expected an expired session, got %+v %v", session, err)
	}
	if !f.broadcaster.has("attempt:"+delivery.AttemptID, MsgExpired) {
		t.Error("candidate was not told the attempt expired")
	}
}

func TestSessionGetExpiresLazily(t *testing.T) {
	f := newFixture(t)
	a := f.seedAssessment(t, nil)
	r := f.respondent(t, "dana@example.com")
	grant, delivery := f.startRealTest(t, a, r)

	f.clock.Advance(10*time.Minute + time.Second)

	session, err := f.sessions.Get(f.ctx, grant.SessionID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if session.State != model.SessionExpired {
		t.Fatalf("expected expired, got %s", session.State)
	}
	attempt, _ := f.store.Attempts().GetByID(f.ctx, delivery.AttemptID)
	if attempt.State != model.AttemptExpired || attempt.SubmissionID == "" {
		t.Fatalf("expected the attempt to be closed with a result, got %+v", attempt)
	}
	if _, err := f.sessions.GetDelivery(f.ctx, delivery.AttemptID); !errors.Is(err, ErrInvalidSessionState) {
		t.Fatalf("expected delivery of an expired attempt to fail, got %v", err)
	}
}

func TestSessionAfterBlock(t *testing.T) {
	f := newFixture(t)
	a := f.seedAssessment(t, func(a *model.Assessment) {
		a.AntiCheat = model.AntiCheatPolicy{MaxViolations: 1, Action: model.ActionBlock}
	})
	r := f.respondent(t, "dana@example.com")
	grant, delivery := f.startRealTest(t, a, r)

	if _, err := f.monitor.RecordViolation(f.ctx, delivery.AttemptID, model.ViolationReport{Reason: "tab_switch", Sequence: 1}); err != nil {
		t.Fatalf("RecordViolation: %v", err)
	}

	session, err := f.sessions.Get(f.ctx, grant.SessionID)
	if err != nil || session.State != model.SessionBlocked {
		t.Fatalf("expected a blocked session, got %+v %v", session, err)
	}
	if _, err := f.sessions.Submit(f.ctx, delivery.AttemptID, nil); !errors.Is(err, ErrInvalidSessionState) {
		t.Fatalf("expected submit on a blocked attempt to fail, got %v", err)
	}
	n, _ := f.ledger.CountConsumed(f.ctx, r.ID, a.ID)
	if n != 1 {
		t.Fatalf("a blocked attempt consumes the limit, got %d", n)
	}
}

func TestStartRealTestWithoutTutorial(t *testing.T) {
	f := newFixture(t)
	a := f.seedAssessment(t, func(a *model.Assessment) { a.RequireTutorial = false })
	r := f.respondent(t, "dana@example.com")

	grant, err := f.sessions.Admit(f.ctx, r, a.Slug, "", model.AuthPassword)
	if err != nil {
		t.Fatalf("Admit by slug: %v", err)
	}
	delivery, err := f.sessions.StartRealTest(f.ctx, grant.SessionID)
	if err != nil {
		t.Fatalf("StartRealTest: %v", err)
	}
	for _, q := range delivery.Questions {
		if len(q.Options) != 4 {
			t.Fatalf("question %s has %d options", q.QuestionID, len(q.Options))
		}
	}
}

func TestSessionRejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(a *model.Assessment)
		level   string
		wantErr error
	}{
		{"inactive assessment", func(a *model.Assessment) { a.Status = model.AssessmentInactive }, "L1", ErrAssessmentNotActive},
		{"window not open yet", func(a *model.Assessment) {
			start := newFakeClock().Now().Add(time.Hour)
			a.StartsAt = &start
		}, "L1", ErrAssessmentNotActive},
		{"unknown level", nil, "L9", ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.seedAssessment(t, tt.mutate)
			r := f.respondent(t, "dana@example.com")

			grant, err := f.sessions.Admit(f.ctx, r, tt.level, "", model.AuthOTP)
			if err == nil {
				_, err = f.sessions.StartTutorial(f.ctx, grant.SessionID)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestSaveAnswerUnknownQuestion(t *testing.T) {
	f := newFixture(t)
	a := f.seedAssessment(t, nil)
	r := f.respondent(t, "dana@example.com")
	_, delivery := f.startRealTest(t, a, r)

	if err := f.sessions.SaveAnswer(f.ctx, delivery.AttemptID, "t1", "t1-a"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for a question outside the attempt, got %v", err)
	}
}

func TestUnknownSession(t *testing.T) {
	f := newFixture(t)
	if _, err := f.sessions.Get(f.ctx, "missing"); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}
}

func TestStartRealTestRecoversMissingMap(t *testing.T) {
	tests := []struct {
		name    string
		recover func(t *testing.T, f *fixture, a *model.Assessment, r *model.Respondent, sessionID, attemptID string)
	}{
		{"same session retries", func(t *testing.T, f *fixture, a *model.Assessment, r *model.Respondent, sessionID, attemptID string) {
			delivery, err := f.sessions.StartRealTest(f.ctx, sessionID)
			if err != nil {
				t.Fatalf("retried StartRealTest: %v", err)
			}
			if delivery.AttemptID != attemptID || len(delivery.Questions) != 4 {
				t.Fatalf("unexpected delivery %+v", delivery)
			}
			sub, err := f.sessions.Submit(f.ctx, attemptID, map[string]string{"q1": correctText("q", 1)})
			if err != nil {
				t.Fatalf("Submit: %v", err)
			}
			if sub.Score != 1 || sub.TotalPoints != 4 {
				t.Fatalf("unexpected submission %+v", sub)
			}
		}},
		{"new session resumes", func(t *testing.T, f *fixture, a *model.Assessment, r *model.Respondent, sessionID, attemptID string) {
			grant, err := f.sessions.Admit(f.ctx, r, a.Level, "", model.AuthOTP)
			if err != nil {
				t.Fatalf("Admit: %v", err)
			}
			delivery, err := f.sessions.StartRealTest(f.ctx, grant.SessionID)
			if err != nil {
				t.Fatalf("StartRealTest in a new session: %v", err)
			}
			if delivery.AttemptID != attemptID {
				t.Fatalf("expected attempt %s to resume, got %s", attemptID, delivery.AttemptID)
			}
			again, err := f.sessions.GetDelivery(f.ctx, attemptID)
			if err != nil {
				t.Fatalf("GetDelivery: %v", err)
			}
			if !reflect.DeepEqual(again.Questions, delivery.Questions) {
				t.Fatal("reloaded delivery differs from the resumed one")
			}
		}},
		{"deadline passes", func(t *testing.T, f *fixture, a *model.Assessment, r *model.Respondent, sessionID, attemptID string) {
			f.clock.Advance(11 * time.Minute)
			if _, err := f.sessions.GetDelivery(f.ctx, attemptID); !errors.Is(err, ErrExpired) {
				t.Fatalf("expected ErrExpired, got %v", err)
			}
			sub, _ := f.store.Submissions().GetByAttempt(f.ctx, attemptID)
			if sub == nil || sub.Outcome != model.OutcomeExpired || sub.Score != 0 {
				t.Fatalf("expected a zero-score expired submission, got %+v", sub)
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			a := f.seedAssessment(t, func(a *model.Assessment) { a.RequireTutorial = false })
			r := f.respondent(t, "dana@example.com")

			grant, err := f.sessions.Admit(f.ctx, r, a.Level, "", model.AuthOTP)
			if err != nil {
				t.Fatalf("Admit: %v", err)
			}
			f.store.Fail = (&transientOnce{op: "maps.create", times: 2}).fail
			if _, err := f.sessions.StartRealTest(f.ctx, grant.SessionID); !errors.Is(err, ErrUnavailable) {
				t.Fatalf("expected ErrUnavailable while the map cannot be stored, got %v", err)
			}

			attempt, err := f.store.Attempts().FindOpen(f.ctx, r.ID, a.ID)
			if err != nil || attempt == nil {
				t.Fatalf("expected the attempt to stay open, got %+v %v", attempt, err)
			}
			tt.recover(t, f, a, r, grant.SessionID, attempt.ID)
		})
	}
}
