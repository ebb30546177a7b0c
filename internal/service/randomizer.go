package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"

	"github.com/usamatauqir381/questxcopilot/internal/cache"
	"github.com/usamatauqir381/questxcopilot/internal/model"
	"github.com/usamatauqir381/questxcopilot/internal/repository"
)

// Source yields uniform integers in [0, n)
type Source interface {
	Intn(n int) (int, error)
}

type cryptoSource struct{}

// CryptoSource draws from crypto/rand
func CryptoSource() Source { return cryptoSource{} }

func (cryptoSource) Intn(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}

// Randomizer produces and persists the per-attempt presentation order
type Randomizer struct {
	maps   repository.RandomizationRepo
	cache  cache.DeliveryCache // optional
	source Source
}

// NewRandomizer creates a randomizer. A nil source uses crypto/rand; a nil
// cache reads straight from the repository.
func NewRandomizer(maps repository.RandomizationRepo, deliveryCache cache.DeliveryCache, source Source) *Randomizer {
	if source == nil {
		source = CryptoSource()
	}
	return &Randomizer{
		maps:   maps,
		cache:  deliveryCache,
		source: source,
	}
}

// shuffle is an unbiased Fisher-Yates pass
func shuffle[T any](src Source, items []T) error {
	for i := len(items) - 1; i > 0; i-- {
		j, err := src.Intn(i + 1)
		if err != nil {
			return err
		}
		items[i], items[j] = items[j], items[i]
	}
	return nil
}

// Generate builds a fresh map for questions under the assessment's flags.
// It does not persist anything.
func (r *Randomizer) Generate(attemptID string, questions []model.Question, a *model.Assessment) (*model.RandomizationMap, error) {
	order := make([]string, len(questions))
	for i, q := range questions {
		order[i] = q.QuestionID
	}
	if a.RandomizeQuestions {
		if err := shuffle(r.source, order); err != nil {
			return nil, fmt.Errorf("shuffle questions: %w", err)
		}
	}

	options := make(map[string][4]model.OptionKey, len(questions))
	for _, q := range questions {
		keys := model.OptionKeys
		if a.RandomizeOptions {
			if err := shuffle(r.source, keys[:]); err != nil {
				return nil, fmt.Errorf("shuffle options: %w", err)
			}
		}
		options[q.QuestionID] = keys
	}

	return &model.RandomizationMap{
		AttemptID:     attemptID,
		QuestionOrder: order,
		OptionOrder:   options,
	}, nil
}

// Materialize returns the attempt's map, creating and persisting it when none is
// stored yet. Concurrent callers for the same attempt all receive the single stored map.
func (r *Randomizer) Materialize(ctx context.Context, attempt *model.Attempt, questions []model.Question, a *model.Assessment) (*model.RandomizationMap, error) {
	existing, err := r.Load(ctx, attempt.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrIntegrity) {
		return nil, err
	}

	fresh, err := r.Generate(attempt.ID, questions, a)
	if err != nil {
		return nil, err
	}

	var stored *model.RandomizationMap
	err = withRetry("persist randomization map", func() error {
		var created bool
		var err error
		stored, created, err = r.maps.CreateIfAbsent(ctx, fresh)
		if err == nil && !created {
			log.Printf("[Randomizer] Map for attempt %s already existed, using stored copy", attempt.ID)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, fmt.Errorf("%w: map for attempt %s vanished after insert", ErrIntegrity, attempt.ID)
	}

	r.remember(ctx, stored)
	return stored, nil
}

// Load returns the persisted map for an attempt that must already have one
func (r *Randomizer) Load(ctx context.Context, attemptID string) (*model.RandomizationMap, error) {
	if m := r.cached(ctx, attemptID); m != nil {
		return m, nil
	}
	m, err := r.maps.GetByAttempt(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("load map: %w", err)
	}
	if m == nil {
		return nil, fmt.Errorf("%w: no randomization map for attempt %s", ErrIntegrity, attemptID)
	}
	r.remember(ctx, m)
	return m, nil
}

func (r *Randomizer) cached(ctx context.Context, attemptID string) *model.RandomizationMap {
	if r.cache == nil {
		return nil
	}
	m, err := r.cache.GetMap(ctx, attemptID)
	if err != nil {
		log.Printf("[Randomizer] Cache read failed for %s: %v", attemptID, err)
		return nil
	}
	return m
}

func (r *Randomizer) remember(ctx context.Context, m *model.RandomizationMap) {
	if r.cache == nil {
		return
	}
	if err := r.cache.SetMap(ctx, m); err != nil {
		log.Printf("[Randomizer] Cache write failed for %s: %v", m.AttemptID, err)
	}
}

// Present builds the candidate view: questions in map order with option texts
// permuted, and no answer key.
func Present(m *model.RandomizationMap, questions []model.Question) ([]model.PublicQuestion, error) {
	byID := indexQuestions(questions)

	out := make([]model.PublicQuestion, 0, len(m.QuestionOrder))
	for _, id := range m.QuestionOrder {
		q, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: question %s in map but not in set", ErrIntegrity, id)
		}
		texts, err := presentedTexts(m, q)
		if err != nil {
			return nil, err
		}
		out = append(out, model.PublicQuestion{
			QuestionID: q.QuestionID,
			Text:       q.Text,
			MediaRef:   q.MediaRef,
			Options:    texts[:],
		})
	}
	return out, nil
}

// PresentTutorial renders tutorial questions in canonical order without keys
func PresentTutorial(questions []model.Question) []model.PublicQuestion {
	out := make([]model.PublicQuestion, 0, len(questions))
	for _, q := range questions {
		out = append(out, model.PublicQuestion{
			QuestionID: q.QuestionID,
			Text:       q.Text,
			MediaRef:   q.MediaRef,
			Options:    []string{q.Options.A, q.Options.B, q.Options.C, q.Options.D},
		})
	}
	return out
}

func indexQuestions(questions []model.Question) map[string]*model.Question {
	byID := make(map[string]*model.Question, len(questions))
	for i := range questions {
		byID[questions[i].QuestionID] = &questions[i]
	}
	return byID
}

// presentedTexts applies the stored option permutation to canonical texts
func presentedTexts(m *model.RandomizationMap, q *model.Question) ([4]string, error) {
	var texts [4]string
	keys, ok := m.OptionOrder[q.QuestionID]
	if !ok {
		return texts, fmt.Errorf("%w: no option order for question %s", ErrIntegrity, q.QuestionID)
	}
	for i, k := range keys {
		texts[i] = q.Options.Text(k)
	}
	return texts, nil
}
