package service

import (
	"errors"
	"testing"

	"github.com/usamatauqir381/questxcopilot/internal/config"
	"github.com/usamatauqir381/questxcopilot/internal/model"
)

func scoringQuestions() []model.Question {
	records := questionRecords("q", 4)
	questions := make([]model.Question, len(records))
	for i, r := range records {
		questions[i] = r.ToQuestion(i)
	}
	return questions
}

// reversedMap presents questions in reverse and every option set as d, c, b, a
func reversedMap(questions []model.Question) *model.RandomizationMap {
	m := &model.RandomizationMap{
		AttemptID:   "attempt-1",
		OptionOrder: make(map[string][4]model.OptionKey),
	}
	for i := len(questions) - 1; i >= 0; i-- {
		id := questions[i].QuestionID
		m.QuestionOrder = append(m.QuestionOrder, id)
		m.OptionOrder[id] = [4]model.OptionKey{model.OptionD, model.OptionC, model.OptionB, model.OptionA}
	}
	return m
}

func TestScore(t *testing.T) {
	questions := scoringQuestions()
	m := reversedMap(questions)
	scorer := NewScorer()

	tests := []struct {
		name        string
		answers     map[string]string
		wantScore   float64
		wantPercent float64
	}{
		{
			name: "three of four correct",
			answers: map[string]string{
				"q1": correctText("q", 1),
				"q2": correctText("q", 2),
				"q3": correctText("q", 3),
				"q4": wrongText("q", 4),
			},
			wantScore:   3,
			wantPercent: 75,
		},
		{
			name: "all correct with surrounding whitespace",
			answers: map[string]string{
				"q1": "  " + correctText("q", 1),
				"q2": correctText("q", 2) + "\n",
				"q3": correctText("q", 3),
				"q4": correctText("q", 4),
			},
			wantScore:   4,
			wantPercent: 100,
		},
		{
			name: "missing and unmatched answers score zero",
			answers: map[string]string{
				"q1": "not an option",
				"q2": correctText("q", 2),
			},
			wantScore:   1,
			wantPercent: 25,
		},
		{
			name:        "no answers",
			answers:     map[string]string{},
			wantScore:   0,
			wantPercent: 0,
		},
		{
			name: "answers for unknown questions are ignored",
			answers: map[string]string{
				"q9": "q9-a",
				"q3": correctText("q", 3),
			},
			wantScore:   1,
			wantPercent: 25,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := scorer.Score(m, questions, tt.answers)
			if err != nil {
				t.Fatalf("Score: %v", err)
			}
			if res.Score != tt.wantScore {
				t.Errorf("score = %v, want %v", res.Score, tt.wantScore)
			}
			if res.Total != 4 {
				t.Errorf("total = %v, want 4", res.Total)
			}
			if res.Percent != tt.wantPercent {
				t.Errorf("percent = %v, want %v", res.Percent, tt.wantPercent)
			}
			if len(res.Details) != 4 {
				t.Fatalf("expected 4 detail lines, got %d", len(res.Details))
			}
			if res.Details[0].QuestionID != "q4" {
				t.Errorf("details should follow presented order, first is %s", res.Details[0].QuestionID)
			}
		})
	}
}

func TestScoreRecoversCanonicalKey(t *testing.T) {
	questions := scoringQuestions()
	m := reversedMap(questions)

	res, err := NewScorer().Score(m, questions, map[string]string{"q1": "q1-b"})
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	for _, d := range res.Details {
		if d.QuestionID != "q1" {
			continue
		}
		if d.GivenKey != model.OptionB || d.CorrectKey != model.OptionB || !d.Correct {
			t.Fatalf("unexpected detail %+v", d)
		}
	}
}

func TestScoreIgnoresSurroundingWhitespace(t *testing.T) {
	questions := scoringQuestions()
	questions[0].Options.B = "  q1-b \n"
	m := reversedMap(questions)

	tests := []struct {
		name  string
		given string
		want  bool
	}{
		{"trimmed answer", "q1-b", true},
		{"answer as presented", "  q1-b \n", true},
		{"padded answer", "\tq1-b  ", true},
		{"different text", "q1-b.", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := NewScorer().Score(m, questions, map[string]string{"q1": tt.given})
			if err != nil {
				t.Fatalf("Score: %v", err)
			}
			for _, d := range res.Details {
				if d.QuestionID == "q1" && d.Correct != tt.want {
					t.Fatalf("correct = %v, want %v (%+v)", d.Correct, tt.want, d)
				}
			}
			if want := map[bool]float64{true: 1, false: 0}[tt.want]; res.Score != want {
				t.Fatalf("score = %v, want %v", res.Score, want)
			}
		})
	}
}

func TestScoreEmptyMap(t *testing.T) {
	res, err := NewScorer().Score(&model.RandomizationMap{}, nil, nil)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if res.Total != 0 || res.Percent != 0 {
		t.Fatalf("expected zero total and percent, got %+v", res)
	}
}

func TestScoreRejectsUnknownQuestion(t *testing.T) {
	questions := scoringQuestions()
	m := reversedMap(questions)
	m.QuestionOrder = append(m.QuestionOrder, "ghost")

	_, err := NewScorer().Score(m, questions, nil)
	if !errors.Is(err, ErrIntegrity) {
		t.Fatalf("expected ErrIntegrity, got %v", err)
	}
}

func TestGrade(t *testing.T) {
	bands := testBands()
	noFloor := []model.GradeBand{
		{MinPercent: 80, Grade: "Pass", Desc: "Passed"},
		{MinPercent: 40, Grade: "Borderline", Desc: "Retake advised"},
	}

	tests := []struct {
		name      string
		percent   float64
		bands     []model.GradeBand
		wantGrade string
	}{
		{"top band", 100, bands, "A"},
		{"exact threshold", 75, bands, "B"},
		{"just below threshold", 74.99, bands, "C"},
		{"zero", 0, bands, "F"},
		{"below every band falls to lowest", 10, noFloor, "Borderline"},
		{"no bands", 55, nil, config.FallbackGrade.Grade},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			grade, desc := Grade(tt.percent, tt.bands)
			if grade != tt.wantGrade {
				t.Errorf("Grade(%v) = %s, want %s", tt.percent, grade, tt.wantGrade)
			}
			if desc == "" {
				t.Errorf("Grade(%v) returned an empty description", tt.percent)
			}
		})
	}
}

func TestBuildSubmission(t *testing.T) {
	questions := scoringQuestions()
	m := reversedMap(questions)
	attempt := &model.Attempt{
		ID:             "attempt-1",
		RespondentID:   "r1",
		AssessmentID:   "a1",
		AttemptNo:      2,
		ViolationCount: 1,
		LastViolation:  "tab_switch",
	}
	assessment := &model.Assessment{ID: "a1", GradeBands: testBands()}
	answers := map[string]string{
		"q1": correctText("q", 1),
		"q2": correctText("q", 2),
		"q3": correctText("q", 3),
	}

	sub, err := NewScorer().BuildSubmission(attempt, assessment, m, questions, answers, model.OutcomeForcedSubmit, newFakeClock().Now())
	if err != nil {
		t.Fatalf("BuildSubmission: %v", err)
	}
	if sub.Percent != 75 || sub.Grade != "B" {
		t.Errorf("expected 75%% grade B, got %v%% %s", sub.Percent, sub.Grade)
	}
	if sub.Outcome != model.OutcomeForcedSubmit || sub.AttemptNo != 2 {
		t.Errorf("unexpected outcome or attempt number: %+v", sub)
	}
	if sub.ViolationCount != 1 || sub.LastViolation != "tab_switch" {
		t.Errorf("violation context not carried: %+v", sub)
	}
}
