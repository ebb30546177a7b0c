package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/usamatauqir381/questxcopilot/internal/model"
)

// MemoryStore keeps every collection in process. It backs tests and the
// STORAGE=memory mode and honours the same uniqueness rules as the Mongo indexes.
type MemoryStore struct {
	mu sync.Mutex

	respondents map[string]*model.Respondent // by id
	otps        map[string]*model.OTPCode    // by email
	credentials map[string]*model.Credential // by id
	assessments map[string]*model.Assessment // by id
	sets        []*model.QuestionSet
	questions   map[string][]model.Question        // by set id
	attempts    map[string]*model.Attempt          // by id
	maps        map[string]*model.RandomizationMap // by attempt id
	submissions map[string]*model.Submission       // by id
	reports     map[string]*model.ResultReport     // by submission id

	// Fail, when set, is consulted before every write; tests use it to inject errors.
	Fail func(op string) error
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		respondents: make(map[string]*model.Respondent),
		otps:        make(map[string]*model.OTPCode),
		credentials: make(map[string]*model.Credential),
		assessments: make(map[string]*model.Assessment),
		questions:   make(map[string][]model.Question),
		attempts:    make(map[string]*model.Attempt),
		maps:        make(map[string]*model.RandomizationMap),
		submissions: make(map[string]*model.Submission),
		reports:     make(map[string]*model.ResultReport),
	}
}

func (s *MemoryStore) fail(op string) error {
	if s.Fail == nil {
		return nil
	}
	return s.Fail(op)
}

func newID() string {
	return uuid.NewString()
}

// Respondents returns the respondent repository view
func (s *MemoryStore) Respondents() RespondentRepo { return memRespondents{s} }

// OTPs returns the one-time code repository view
func (s *MemoryStore) OTPs() OTPRepo { return memOTPs{s} }

// Credentials returns the provisioned credential repository view
func (s *MemoryStore) Credentials() CredentialRepo { return memCredentials{s} }

// Assessments returns the assessment repository view
func (s *MemoryStore) Assessments() AssessmentRepo { return memAssessments{s} }

// Questions returns the question repository view
func (s *MemoryStore) Questions() QuestionRepo { return memQuestions{s} }

// Attempts returns the attempt repository view
func (s *MemoryStore) Attempts() AttemptRepo { return memAttempts{s} }

// Maps returns the randomization map repository view
func (s *MemoryStore) Maps() RandomizationRepo { return memMaps{s} }

// Submissions returns the submission repository view
func (s *MemoryStore) Submissions() SubmissionRepo { return memSubmissions{s} }

// Reports returns the result report repository view
func (s *MemoryStore) Reports() ReportRepo { return memReports{s} }

// respondents

type memRespondents struct{ s *MemoryStore }

func (m memRespondents) Upsert(ctx context.Context, respondent *model.Respondent) (*model.Respondent, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if err := m.s.fail("respondents.upsert"); err != nil {
		return nil, err
	}

	now := time.Now()
	for _, r := range m.s.respondents {
		if r.Email != respondent.Email {
			continue
		}
		if respondent.Name != "" {
			r.Name = respondent.Name
		}
		if respondent.ExternalID != "" {
			r.ExternalID = respondent.ExternalID
		}
		r.UpdatedAt = now
		out := *r
		return &out, nil
	}

	r := *respondent
	r.ID = newID()
	r.CreatedAt = now
	r.UpdatedAt = now
	m.s.respondents[r.ID] = &r
	out := r
	return &out, nil
}

func (m memRespondents) GetByID(ctx context.Context, id string) (*model.Respondent, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	r, ok := m.s.respondents[id]
	if !ok {
		return nil, nil
	}
	out := *r
	return &out, nil
}

func (m memRespondents) GetByEmail(ctx context.Context, email string) (*model.Respondent, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, r := range m.s.respondents {
		if r.Email == email {
			out := *r
			return &out, nil
		}
	}
	return nil, nil
}

// one-time codes

type memOTPs struct{ s *MemoryStore }

func (m memOTPs) Get(ctx context.Context, email string) (*model.OTPCode, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	code, ok := m.s.otps[email]
	if !ok {
		return nil, nil
	}
	out := *code
	out.RecentSends = append([]time.Time(nil), code.RecentSends...)
	return &out, nil
}

func (m memOTPs) Save(ctx context.Context, code *model.OTPCode) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if err := m.s.fail("otps.save"); err != nil {
		return err
	}
	stored := *code
	stored.RecentSends = append([]time.Time(nil), code.RecentSends...)
	m.s.otps[code.Email] = &stored
	return nil
}

func (m memOTPs) Consume(ctx context.Context, email string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if code, ok := m.s.otps[email]; ok {
		code.CodeHash = ""
	}
	return nil
}

// credentials

type memCredentials struct{ s *MemoryStore }

func (m memCredentials) GetByID(ctx context.Context, id string) (*model.Credential, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	c, ok := m.s.credentials[id]
	if !ok {
		return nil, nil
	}
	out := *c
	return &out, nil
}

func (m memCredentials) GetByEmail(ctx context.Context, email string) (*model.Credential, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, c := range m.s.credentials {
		if c.Email == email {
			out := *c
			return &out, nil
		}
	}
	return nil, nil
}

func (m memCredentials) Upsert(ctx context.Context, cred *model.Credential) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if err := m.s.fail("credentials.upsert"); err != nil {
		return false, err
	}

	for _, c := range m.s.credentials {
		if c.Email != cred.Email {
			continue
		}
		c.Level = cred.Level
		if cred.PasswordHash != "" {
			c.PasswordHash = cred.PasswordHash
		}
		if cred.Status != "" {
			c.Status = cred.Status
		}
		return false, nil
	}

	c := *cred
	c.ID = newID()
	c.CreatedAt = time.Now()
	if c.Status == "" {
		c.Status = model.CredentialActive
	}
	m.s.credentials[c.ID] = &c
	return true, nil
}

func (m memCredentials) MarkUsed(ctx context.Context, id string, at time.Time) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if err := m.s.fail("credentials.markUsed"); err != nil {
		return err
	}
	if c, ok := m.s.credentials[id]; ok && c.Status == model.CredentialActive {
		c.Status = model.CredentialUsed
		used := at
		c.UsedAt = &used
	}
	return nil
}

// assessments

type memAssessments struct{ s *MemoryStore }

func (m memAssessments) Create(ctx context.Context, a *model.Assessment) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, existing := range m.s.assessments {
		if existing.Slug == a.Slug {
			return ErrDuplicate
		}
	}
	if a.ID == "" {
		a.ID = newID()
	}
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	stored := *a
	m.s.assessments[a.ID] = &stored
	return nil
}

func (m memAssessments) GetByID(ctx context.Context, id string) (*model.Assessment, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	a, ok := m.s.assessments[id]
	if !ok {
		return nil, nil
	}
	out := *a
	return &out, nil
}

func (m memAssessments) GetBySlug(ctx context.Context, slug string) (*model.Assessment, error) {
	return m.find(func(a *model.Assessment) bool { return a.Slug == slug })
}

func (m memAssessments) GetByLevel(ctx context.Context, level string) (*model.Assessment, error) {
	return m.find(func(a *model.Assessment) bool { return a.Level == level })
}

func (m memAssessments) find(match func(*model.Assessment) bool) (*model.Assessment, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, a := range m.s.assessments {
		if match(a) {
			out := *a
			return &out, nil
		}
	}
	return nil, nil
}

func (m memAssessments) List(ctx context.Context) ([]*model.Assessment, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	out := make([]*model.Assessment, 0, len(m.s.assessments))
	for _, a := range m.s.assessments {
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Level < out[j].Level })
	return out, nil
}

func (m memAssessments) UpdateWindow(ctx context.Context, slug string, status model.AssessmentStatus, startsAt, endsAt *time.Time) (*model.Assessment, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, a := range m.s.assessments {
		if a.Slug != slug {
			continue
		}
		a.Status = status
		a.StartsAt = startsAt
		a.EndsAt = endsAt
		a.UpdatedAt = time.Now()
		out := *a
		return &out, nil
	}
	return nil, nil
}

// questions

type memQuestions struct{ s *MemoryStore }

func (m memQuestions) GetSet(ctx context.Context, assessmentID string, role model.SetRole) (*model.QuestionSet, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if set := m.newest(func(qs *model.QuestionSet) bool {
		return qs.AssessmentID == assessmentID && qs.Role == role
	}); set != nil {
		return set, nil
	}
	if role != model.SetTutorial {
		return nil, nil
	}
	return m.newest(func(qs *model.QuestionSet) bool {
		return qs.Role == role && qs.Shared
	}), nil
}

// newest scans in insertion order so ties on ImportedAt resolve to the later insert
func (m memQuestions) newest(match func(*model.QuestionSet) bool) *model.QuestionSet {
	var found *model.QuestionSet
	for _, qs := range m.s.sets {
		if match(qs) && (found == nil || !qs.ImportedAt.Before(found.ImportedAt)) {
			found = qs
		}
	}
	if found == nil {
		return nil
	}
	out := *found
	return &out
}

func (m memQuestions) ReplaceSet(ctx context.Context, set *model.QuestionSet, questions []model.Question) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if err := m.s.fail("questions.replaceSet"); err != nil {
		return err
	}
	if set.ID == "" {
		set.ID = newID()
	}
	if set.ImportedAt.IsZero() {
		set.ImportedAt = time.Now()
	}

	stored := make([]model.Question, len(questions))
	for i, q := range questions {
		q.ID = newID()
		q.SetID = set.ID
		q.Position = i
		stored[i] = q
	}
	m.s.questions[set.ID] = stored
	cp := *set
	m.s.sets = append(m.s.sets, &cp)
	return nil
}

func (m memQuestions) ListBySet(ctx context.Context, setID string) ([]model.Question, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return append([]model.Question(nil), m.s.questions[setID]...), nil
}

// attempts

type memAttempts struct{ s *MemoryStore }

func copyAttempt(a *model.Attempt) *model.Attempt {
	out := *a
	out.ViolationSeqs = append([]int{}, a.ViolationSeqs...)
	out.Answers = make(map[string]string, len(a.Answers))
	for k, v := range a.Answers {
		out.Answers[k] = v
	}
	return &out
}

func (m memAttempts) Create(ctx context.Context, attempt *model.Attempt) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if err := m.s.fail("attempts.create"); err != nil {
		return err
	}
	for _, a := range m.s.attempts {
		if a.RespondentID == attempt.RespondentID && a.AssessmentID == attempt.AssessmentID && a.AttemptNo == attempt.AttemptNo {
			return ErrDuplicate
		}
	}
	if attempt.ID == "" {
		attempt.ID = newID()
	}
	if attempt.ViolationSeqs == nil {
		attempt.ViolationSeqs = []int{}
	}
	if attempt.Answers == nil {
		attempt.Answers = map[string]string{}
	}
	m.s.attempts[attempt.ID] = copyAttempt(attempt)
	return nil
}

func (m memAttempts) GetByID(ctx context.Context, id string) (*model.Attempt, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	a, ok := m.s.attempts[id]
	if !ok {
		return nil, nil
	}
	return copyAttempt(a), nil
}

func (m memAttempts) FindOpen(ctx context.Context, respondentID, assessmentID string) (*model.Attempt, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, a := range m.s.attempts {
		if a.RespondentID == respondentID && a.AssessmentID == assessmentID && a.State == model.AttemptInProgress {
			return copyAttempt(a), nil
		}
	}
	return nil, nil
}

func (m memAttempts) LastAttemptNo(ctx context.Context, respondentID, assessmentID string) (int, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	last := 0
	for _, a := range m.s.attempts {
		if a.RespondentID == respondentID && a.AssessmentID == assessmentID && a.AttemptNo > last {
			last = a.AttemptNo
		}
	}
	return last, nil
}

func (m memAttempts) CountByState(ctx context.Context, respondentID, assessmentID string, state model.AttemptState) (int, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	n := 0
	for _, a := range m.s.attempts {
		if a.RespondentID == respondentID && a.AssessmentID == assessmentID && a.State == state {
			n++
		}
	}
	return n, nil
}

func (m memAttempts) AddViolation(ctx context.Context, id string, seq int, reason string) (*model.Attempt, bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if err := m.s.fail("attempts.addViolation"); err != nil {
		return nil, false, err
	}
	a, ok := m.s.attempts[id]
	if !ok {
		return nil, false, nil
	}
	if a.State != model.AttemptInProgress || a.HasSequence(seq) {
		return copyAttempt(a), false, nil
	}
	a.ViolationSeqs = append(a.ViolationSeqs, seq)
	a.ViolationCount++
	a.LastViolation = reason
	return copyAttempt(a), true, nil
}

func (m memAttempts) SaveAnswer(ctx context.Context, id, questionID, text string) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	a, ok := m.s.attempts[id]
	if !ok || a.State != model.AttemptInProgress {
		return false, nil
	}
	a.Answers[questionID] = text
	return true, nil
}

func (m memAttempts) Finish(ctx context.Context, id string, state model.AttemptState, submissionID string, at time.Time) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if err := m.s.fail("attempts.finish"); err != nil {
		return false, err
	}
	a, ok := m.s.attempts[id]
	if !ok || a.State != model.AttemptInProgress {
		return false, nil
	}
	a.State = state
	if submissionID != "" {
		a.SubmissionID = submissionID
	}
	finished := at
	a.FinishedAt = &finished
	return true, nil
}

// randomization maps

type memMaps struct{ s *MemoryStore }

func copyMap(rm *model.RandomizationMap) *model.RandomizationMap {
	out := *rm
	out.QuestionOrder = append([]string(nil), rm.QuestionOrder...)
	out.OptionOrder = make(map[string][4]model.OptionKey, len(rm.OptionOrder))
	for k, v := range rm.OptionOrder {
		out.OptionOrder[k] = v
	}
	return &out
}

func (m memMaps) CreateIfAbsent(ctx context.Context, rm *model.RandomizationMap) (*model.RandomizationMap, bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if err := m.s.fail("maps.create"); err != nil {
		return nil, false, err
	}
	if existing, ok := m.s.maps[rm.AttemptID]; ok {
		return copyMap(existing), false, nil
	}
	if rm.ID == "" {
		rm.ID = newID()
	}
	if rm.CreatedAt.IsZero() {
		rm.CreatedAt = time.Now()
	}
	m.s.maps[rm.AttemptID] = copyMap(rm)
	return copyMap(rm), true, nil
}

func (m memMaps) GetByAttempt(ctx context.Context, attemptID string) (*model.RandomizationMap, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	rm, ok := m.s.maps[attemptID]
	if !ok {
		return nil, nil
	}
	return copyMap(rm), nil
}

// submissions

type memSubmissions struct{ s *MemoryStore }

func copySubmission(sub *model.Submission) *model.Submission {
	out := *sub
	out.Details = append([]model.AnswerDetail(nil), sub.Details...)
	return &out
}

func (m memSubmissions) Create(ctx context.Context, sub *model.Submission) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if err := m.s.fail("submissions.create"); err != nil {
		return err
	}
	for _, existing := range m.s.submissions {
		if existing.AttemptID == sub.AttemptID {
			return ErrDuplicate
		}
	}
	if sub.ID == "" {
		sub.ID = newID()
	}
	m.s.submissions[sub.ID] = copySubmission(sub)
	return nil
}

func (m memSubmissions) GetByID(ctx context.Context, id string) (*model.Submission, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	sub, ok := m.s.submissions[id]
	if !ok {
		return nil, nil
	}
	return copySubmission(sub), nil
}

func (m memSubmissions) GetByAttempt(ctx context.Context, attemptID string) (*model.Submission, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, sub := range m.s.submissions {
		if sub.AttemptID == attemptID {
			return copySubmission(sub), nil
		}
	}
	return nil, nil
}

func (m memSubmissions) CountByRespondent(ctx context.Context, respondentID, assessmentID string) (int, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	n := 0
	for _, sub := range m.s.submissions {
		if sub.RespondentID == respondentID && sub.AssessmentID == assessmentID {
			n++
		}
	}
	return n, nil
}

// reports

type memReports struct{ s *MemoryStore }

func (m memReports) Create(ctx context.Context, report *model.ResultReport) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.reports[report.SubmissionID]; ok {
		return ErrDuplicate
	}
	stored := *report
	m.s.reports[report.SubmissionID] = &stored
	return nil
}

func (m memReports) Get(ctx context.Context, submissionID string) (*model.ResultReport, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	r, ok := m.s.reports[submissionID]
	if !ok {
		return nil, nil
	}
	out := *r
	return &out, nil
}

func (m memReports) SetRendered(ctx context.Context, submissionID string, status model.RenderStatus, document string, at time.Time) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if r, ok := m.s.reports[submissionID]; ok {
		r.RenderStatus = status
		r.Document = document
		rendered := at
		r.RenderedAt = &rendered
	}
	return nil
}
