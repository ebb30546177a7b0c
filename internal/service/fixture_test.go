package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/usamatauqir381/questxcopilot/internal/audit"
	"github.com/usamatauqir381/questxcopilot/internal/cache"
	"github.com/usamatauqir381/questxcopilot/internal/model"
	"github.com/usamatauqir381/questxcopilot/internal/repository"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type sentCode struct {
	email string
	code  string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentCode
	err  error
}

func (n *recordingNotifier) SendCode(ctx context.Context, email, code string, expiresAt time.Time) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentCode{email: email, code: code})
	return nil
}

func (n *recordingNotifier) last(t *testing.T) string {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sent) == 0 {
		t.Fatal("no code was sent")
	}
	return n.sent[len(n.sent)-1].code
}

type broadcast struct {
	target  string
	msgType string
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []broadcast
}

func (b *recordingBroadcaster) add(target, msgType string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, broadcast{target: target, msgType: msgType})
}

func (b *recordingBroadcaster) BroadcastToProctors(assessmentID, msgType string, payload interface{}) {
	b.add("proctors:"+assessmentID, msgType)
}

func (b *recordingBroadcaster) BroadcastToAttempt(attemptID, msgType string, payload interface{}) {
	b.add("attempt:"+attemptID, msgType)
}

func (b *recordingBroadcaster) DisconnectAttempt(attemptID string) {}

func (b *recordingBroadcaster) has(target, msgType string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, e := range b.events {
		if e.target == target && e.msgType == msgType {
			return true
		}
	}
	return false
}

// fixture wires every service over one in-memory store
type fixture struct {
	ctx          context.Context
	store        *repository.MemoryStore
	clock        *fakeClock
	notifier     *recordingNotifier
	broadcaster  *recordingBroadcaster
	audit        audit.Log
	auth         *AuthService
	access       *AccessService
	ledger       *LedgerService
	randomizer   *Randomizer
	finalizer    *Finalizer
	monitor      *MonitorService
	sessions     *SessionService
	provisioning *ProvisioningService
	reports      *ReportService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := repository.NewMemoryStore()
	locker := cache.NewLocalLocker(2 * time.Second)
	auditLog, err := audit.Open(":memory:")
	if err != nil {
		t.Fatalf("open audit log: %v", err)
	}

	f := &fixture{
		ctx:         context.Background(),
		store:       store,
		clock:       newFakeClock(),
		notifier:    &recordingNotifier{},
		broadcaster: &recordingBroadcaster{},
		audit:       auditLog,
	}

	f.auth = NewAuthService("admin", "secret", "test-signing-key", time.Hour)
	f.access = NewAccessService(store.OTPs(), store.Respondents(), store.Credentials(), locker, f.notifier, AccessConfig{
		CodeTTL:    10 * time.Minute,
		MaxSends:   3,
		SendWindow: time.Hour,
	})
	f.access.SetClock(f.clock.Now)

	f.ledger = NewLedgerService(store.Attempts(), store.Submissions(), store.Credentials(), locker)
	f.ledger.SetClock(f.clock.Now)

	f.randomizer = NewRandomizer(store.Maps(), nil, nil)
	f.reports = NewReportService(store.Reports(), store.Respondents(), store.Assessments(), LogRenderer{}, time.Second)

	f.finalizer = NewFinalizer(f.ledger, f.randomizer, NewScorer(), store.Questions(), store.Assessments(), f.reports, auditLog)
	f.finalizer.SetClock(f.clock.Now)
	f.finalizer.SetBroadcaster(f.broadcaster)

	f.monitor = NewMonitorService(store.Attempts(), store.Assessments(), f.finalizer, auditLog)
	f.monitor.SetBroadcaster(f.broadcaster)

	f.sessions = NewSessionService(cache.NewMemorySessionCache(), store.Assessments(), store.Questions(), store.Submissions(),
		f.ledger, f.randomizer, f.finalizer, f.auth)
	f.sessions.SetClock(f.clock.Now)
	f.sessions.SetBroadcaster(f.broadcaster)

	f.provisioning = NewProvisioningService(store.Assessments(), store.Questions(), store.Credentials())
	f.provisioning.SetHashCost(bcrypt.MinCost)

	return f
}

func testBands() []model.GradeBand {
	return []model.GradeBand{
		{MinPercent: 90, Grade: "A", Desc: "Excellent"},
		{MinPercent: 75, Grade: "B", Desc: "Good"},
		{MinPercent: 50, Grade: "C", Desc: "Fair"},
		{MinPercent: 0, Grade: "F", Desc: "Needs Improvement"},
	}
}

// correctKeys is the answer key of the main set built by questionRecords
var correctKeys = []model.OptionKey{model.OptionB, model.OptionD, model.OptionA, model.OptionC}

func questionRecords(prefix string, n int) []model.QuestionRecord {
	records := make([]model.QuestionRecord, n)
	for i := range records {
		id := fmt.Sprintf("%s%d", prefix, i+1)
		records[i] = model.QuestionRecord{
			QuestionID:    id,
			Text:          "Question " + id,
			OptionA:       id + "-a",
			OptionB:       id + "-b",
			OptionC:       id + "-c",
			OptionD:       id + "-d",
			CorrectOption: string(correctKeys[i%len(correctKeys)]),
		}
	}
	return records
}

// correctText is the option text that scores for question number i (1-based)
func correctText(prefix string, i int) string {
	return fmt.Sprintf("%s%d-%s", prefix, i, correctKeys[(i-1)%len(correctKeys)])
}

// wrongText is an option text that does not score for question number i
func wrongText(prefix string, i int) string {
	key := model.OptionA
	if correctKeys[(i-1)%len(correctKeys)] == model.OptionA {
		key = model.OptionB
	}
	return fmt.Sprintf("%s%d-%s", prefix, i, key)
}

// seedAssessment creates an active assessment with a 4 question main set and
// a 2 question tutorial set. mutate adjusts the definition before it is stored.
func (f *fixture) seedAssessment(t *testing.T, mutate func(a *model.Assessment)) *model.Assessment {
	t.Helper()
	a := &model.Assessment{
		Slug:               "networking-101",
		Name:               "Networking Fundamentals",
		Level:              "L1",
		AttemptsLimit:      1,
		Status:             model.AssessmentActive,
		DurationSeconds:    600,
		PerQuestionSeconds: 30,
		RandomizeQuestions: true,
		RandomizeOptions:   true,
		RequireTutorial:    true,
		AntiCheat:          model.AntiCheatPolicy{MaxViolations: 3, Action: model.ActionBlock},
		GradeBands:         testBands(),
	}
	if mutate != nil {
		mutate(a)
	}
	if err := f.store.Assessments().Create(f.ctx, a); err != nil {
		t.Fatalf("create assessment: %v", err)
	}
	if _, err := f.provisioning.ImportQuestions(f.ctx, a.Slug, model.SetMain, false, "main.json", questionRecords("q", 4)); err != nil {
		t.Fatalf("import main set: %v", err)
	}
	if _, err := f.provisioning.ImportQuestions(f.ctx, a.Slug, model.SetTutorial, false, "tutorial.json", questionRecords("t", 2)); err != nil {
		t.Fatalf("import tutorial set: %v", err)
	}
	return a
}

func (f *fixture) respondent(t *testing.T, email string) *model.Respondent {
	t.Helper()
	r, err := f.store.Respondents().Upsert(f.ctx, &model.Respondent{Email: email, Name: "Candidate " + email})
	if err != nil {
		t.Fatalf("upsert respondent: %v", err)
	}
	return r
}

// startRealTest admits the respondent and walks the session into the real test
func (f *fixture) startRealTest(t *testing.T, a *model.Assessment, r *model.Respondent) (*model.AccessGrant, *model.Delivery) {
	t.Helper()
	grant, err := f.sessions.Admit(f.ctx, r, a.Level, "", model.AuthOTP)
	if err != nil {
		t.Fatalf("admit: %v", err)
	}
	if a.RequireTutorial {
		if _, err := f.sessions.StartTutorial(f.ctx, grant.SessionID); err != nil {
			t.Fatalf("start tutorial: %v", err)
		}
		if _, err := f.sessions.CompleteTutorial(f.ctx, grant.SessionID); err != nil {
			t.Fatalf("complete tutorial: %v", err)
		}
	}
	delivery, err := f.sessions.StartRealTest(f.ctx, grant.SessionID)
	if err != nil {
		t.Fatalf("start real test: %v", err)
	}
	return grant, delivery
}

type transientOnce struct {
	mu    sync.Mutex
	op    string
	times int
}

// fail returns ErrTransient for the first n writes of op
func (tr *transientOnce) fail(op string) error {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if op != tr.op || tr.times == 0 {
		return nil
	}
	tr.times--
	return repository.ErrTransient
}
