package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/usamatauqir381/questxcopilot/internal/config"
	"github.com/usamatauqir381/questxcopilot/internal/model"
)

// Scorer grades submitted answer texts against canonical keys
type Scorer struct{}

// NewScorer creates a scorer
func NewScorer() *Scorer {
	return &Scorer{}
}

// ScoreResult is the outcome of matching answers against a map
type ScoreResult struct {
	Score   float64
	Total   float64
	Percent float64
	Details []model.AnswerDetail
}

// Score walks the persisted order, recovers the canonical key for each
// submitted text and awards one point per correct key. Unmatched or missing
// answers score zero.
func (s *Scorer) Score(m *model.RandomizationMap, questions []model.Question, answers map[string]string) (*ScoreResult, error) {
	byID := indexQuestions(questions)

	res := &ScoreResult{
		Total:   float64(len(m.QuestionOrder)),
		Details: make([]model.AnswerDetail, 0, len(m.QuestionOrder)),
	}
	for _, id := range m.QuestionOrder {
		q, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: question %s in map but not in set", ErrIntegrity, id)
		}
		texts, err := presentedTexts(m, q)
		if err != nil {
			return nil, err
		}
		keys := m.OptionOrder[id]

		given := strings.TrimSpace(answers[id])
		var givenKey model.OptionKey
		if given != "" {
			for i, t := range texts {
				if strings.TrimSpace(t) == given {
					givenKey = keys[i]
					break
				}
			}
		}

		correct := givenKey != "" && givenKey == q.CorrectOption
		if correct {
			res.Score++
		}
		res.Details = append(res.Details, model.AnswerDetail{
			QuestionID: id,
			Text:       q.Text,
			GivenText:  given,
			GivenKey:   givenKey,
			CorrectKey: q.CorrectOption,
			Correct:    correct,
		})
	}

	if res.Total > 0 {
		res.Percent = res.Score / res.Total * 100
	}
	return res, nil
}

// Grade returns the first band whose threshold the percent reaches. Bands are
// expected in descending order; below every threshold the lowest band applies.
func Grade(percent float64, bands []model.GradeBand) (string, string) {
	if len(bands) == 0 {
		return config.FallbackGrade.Grade, config.FallbackGrade.Desc
	}
	for _, b := range bands {
		if percent >= b.MinPercent {
			return b.Grade, b.Desc
		}
	}
	last := bands[len(bands)-1]
	return last.Grade, last.Desc
}

// BuildSubmission scores answers for an attempt and assembles the immutable result
func (s *Scorer) BuildSubmission(
	attempt *model.Attempt,
	assessment *model.Assessment,
	m *model.RandomizationMap,
	questions []model.Question,
	answers map[string]string,
	outcome model.SubmissionOutcome,
	finishedAt time.Time,
) (*model.Submission, error) {
	res, err := s.Score(m, questions, answers)
	if err != nil {
		return nil, err
	}
	grade, desc := Grade(res.Percent, assessment.GradeBands)

	return &model.Submission{
		AttemptID:      attempt.ID,
		AssessmentID:   attempt.AssessmentID,
		RespondentID:   attempt.RespondentID,
		AttemptNo:      attempt.AttemptNo,
		Score:          res.Score,
		TotalPoints:    res.Total,
		Percent:        res.Percent,
		Grade:          grade,
		GradeDesc:      desc,
		Outcome:        outcome,
		ViolationCount: attempt.ViolationCount,
		LastViolation:  attempt.LastViolation,
		Details:        res.Details,
		StartedAt:      attempt.StartedAt,
		FinishedAt:     finishedAt,
	}, nil
}
