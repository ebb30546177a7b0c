package service

import (
	"context"
	"reflect"
	"sort"
	"sync"
	"testing"

	"github.com/usamatauqir381/questxcopilot/internal/model"
	"github.com/usamatauqir381/questxcopilot/internal/repository"
)

// cycleSource replays a fixed sequence of draws
type cycleSource struct {
	mu    sync.Mutex
	draws []int
	next  int
}

func (s *cycleSource) Intn(n int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.draws[s.next%len(s.draws)] % n
	s.next++
	return v, nil
}

func bank(n int) []model.Question {
	records := questionRecords("q", n)
	questions := make([]model.Question, n)
	for i, r := range records {
		questions[i] = r.ToQuestion(i)
	}
	return questions
}

func checkPermutation(t *testing.T, m *model.RandomizationMap, questions []model.Question) {
	t.Helper()
	want := make([]string, len(questions))
	for i, q := range questions {
		want[i] = q.QuestionID
	}
	got := append([]string(nil), m.QuestionOrder...)
	sort.Strings(want)
	sort.Strings(got)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("question order %v is not a permutation of %v", m.QuestionOrder, want)
	}

	for _, q := range questions {
		keys, ok := m.OptionOrder[q.QuestionID]
		if !ok {
			t.Fatalf("no option order for %s", q.QuestionID)
		}
		seen := map[model.OptionKey]bool{}
		for _, k := range keys {
			seen[k] = true
		}
		if len(seen) != 4 {
			t.Fatalf("option order %v for %s is not a permutation of a..d", keys, q.QuestionID)
		}
	}
}

func TestGenerateProducesPermutations(t *testing.T) {
	questions := bank(20)
	r := NewRandomizer(repository.NewMemoryStore().Maps(), nil, nil)
	a := &model.Assessment{RandomizeQuestions: true, RandomizeOptions: true}

	for i := 0; i < 50; i++ {
		m, err := r.Generate("attempt", questions, a)
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		checkPermutation(t, m, questions)
	}
}

func TestGenerateRespectsFlags(t *testing.T) {
	questions := bank(5)
	canonical := []string{"q1", "q2", "q3", "q4", "q5"}

	tests := []struct {
		name           string
		assessment     *model.Assessment
		wantCanonOrder bool
		wantCanonOpts  bool
	}{
		{"no randomization", &model.Assessment{}, true, true},
		{"options only", &model.Assessment{RandomizeOptions: true}, true, false},
		{"questions only", &model.Assessment{RandomizeQuestions: true}, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// a constant zero draw never yields the identity permutation
			r := NewRandomizer(repository.NewMemoryStore().Maps(), nil, &cycleSource{draws: []int{0}})
			m, err := r.Generate("attempt", questions, tt.assessment)
			if err != nil {
				t.Fatalf("Generate: %v", err)
			}
			if got := reflect.DeepEqual(m.QuestionOrder, canonical); got != tt.wantCanonOrder {
				t.Errorf("canonical question order = %v, want %v (order %v)", got, tt.wantCanonOrder, m.QuestionOrder)
			}
			if got := m.OptionOrder["q1"] == model.OptionKeys; got != tt.wantCanonOpts {
				t.Errorf("canonical option order = %v, want %v (order %v)", got, tt.wantCanonOpts, m.OptionOrder["q1"])
			}
			checkPermutation(t, m, questions)
		})
	}
}

func TestMaterializeIsStable(t *testing.T) {
	store := repository.NewMemoryStore()
	questions := bank(10)
	a := &model.Assessment{RandomizeQuestions: true, RandomizeOptions: true}
	attempt := &model.Attempt{ID: "attempt-1"}
	ctx := context.Background()

	r := NewRandomizer(store.Maps(), nil, nil)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		maps []*model.RandomizationMap
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m, err := r.Materialize(ctx, attempt, questions, a)
			if err != nil {
				t.Errorf("Materialize: %v", err)
				return
			}
			mu.Lock()
			maps = append(maps, m)
			mu.Unlock()
		}()
	}
	wg.Wait()

	first := maps[0]
	for i, m := range maps {
		if !reflect.DeepEqual(m.QuestionOrder, first.QuestionOrder) || !reflect.DeepEqual(m.OptionOrder, first.OptionOrder) {
			t.Fatalf("caller %d received a different map", i)
		}
	}

	// a fresh randomizer reads the same stored map back
	loaded, err := NewRandomizer(store.Maps(), nil, nil).Load(ctx, attempt.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(loaded.QuestionOrder, first.QuestionOrder) || !reflect.DeepEqual(loaded.OptionOrder, first.OptionOrder) {
		t.Fatal("reloaded map differs from the materialized one")
	}
}

func TestMapsAreIndependentAcrossAttempts(t *testing.T) {
	store := repository.NewMemoryStore()
	questions := bank(12)
	a := &model.Assessment{RandomizeQuestions: true, RandomizeOptions: true}
	ctx := context.Background()
	r := NewRandomizer(store.Maps(), nil, nil)

	m1, err := r.Materialize(ctx, &model.Attempt{ID: "attempt-1"}, questions, a)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	m2, err := r.Materialize(ctx, &model.Attempt{ID: "attempt-2"}, questions, a)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if reflect.DeepEqual(m1.QuestionOrder, m2.QuestionOrder) && reflect.DeepEqual(m1.OptionOrder, m2.OptionOrder) {
		t.Fatal("two attempts received identical maps")
	}
}

func TestMaterializeRetriesTransientFailure(t *testing.T) {
	store := repository.NewMemoryStore()
	tr := &transientOnce{op: "maps.create", times: 1}
	store.Fail = tr.fail
	ctx := context.Background()

	r := NewRandomizer(store.Maps(), nil, nil)
	m, err := r.Materialize(ctx, &model.Attempt{ID: "attempt-1"}, bank(3), &model.Assessment{RandomizeQuestions: true})
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if m.ID == "" {
		t.Fatal("expected the stored map to carry an id")
	}
}

func TestLoadMissingMap(t *testing.T) {
	r := NewRandomizer(repository.NewMemoryStore().Maps(), nil, nil)
	_, err := r.Load(context.Background(), "nope")
	if err == nil || ErrorCode(err) != "integrity_error" {
		t.Fatalf("expected integrity error, got %v", err)
	}
}

func TestPresentAppliesStoredOrder(t *testing.T) {
	questions := bank(3)
	m := &model.RandomizationMap{
		QuestionOrder: []string{"q3", "q1", "q2"},
		OptionOrder: map[string][4]model.OptionKey{
			"q1": {model.OptionC, model.OptionA, model.OptionD, model.OptionB},
			"q2": model.OptionKeys,
			"q3": {model.OptionD, model.OptionC, model.OptionB, model.OptionA},
		},
	}

	presented, err := Present(m, questions)
	if err != nil {
		t.Fatalf("Present: %v", err)
	}
	if len(presented) != 3 || presented[0].QuestionID != "q3" || presented[1].QuestionID != "q1" {
		t.Fatalf("unexpected presented order: %+v", presented)
	}
	want := []string{"q1-c", "q1-a", "q1-d", "q1-b"}
	if !reflect.DeepEqual(presented[1].Options, want) {
		t.Errorf("q1 options = %v, want %v", presented[1].Options, want)
	}
}
