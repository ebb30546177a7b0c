package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/usamatauqir381/questxcopilot/internal/model"
)

const (
	questionSetsCollection = "question_sets"
	questionsCollection    = "questions"
)

// QuestionRepo handles question sets and their canonical questions
type QuestionRepo interface {
	// GetSet returns the newest set for (assessment, role). Tutorial lookups
	// fall back to the newest shared tutorial set of any level.
	GetSet(ctx context.Context, assessmentID string, role model.SetRole) (*model.QuestionSet, error)
	// ReplaceSet stores a new set version with its questions in position order
	ReplaceSet(ctx context.Context, set *model.QuestionSet, questions []model.Question) error
	ListBySet(ctx context.Context, setID string) ([]model.Question, error)
}

type questionRepo struct {
	sets      *mongo.Collection
	questions *mongo.Collection
}

// NewQuestionRepo creates a new question repository
func NewQuestionRepo(db *mongo.Database) QuestionRepo {
	return &questionRepo{
		sets:      db.Collection(questionSetsCollection),
		questions: db.Collection(questionsCollection),
	}
}

func (r *questionRepo) GetSet(ctx context.Context, assessmentID string, role model.SetRole) (*model.QuestionSet, error) {
	set, err := r.newestSet(ctx, bson.M{"assessmentId": assessmentID, "role": role})
	if err != nil || set != nil {
		return set, err
	}
	if role != model.SetTutorial {
		return nil, nil
	}
	return r.newestSet(ctx, bson.M{"role": role, "shared": true})
}

func (r *questionRepo) newestSet(ctx context.Context, filter bson.M) (*model.QuestionSet, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "importedAt", Value: -1}})

	var set model.QuestionSet
	err := r.sets.FindOne(ctx, filter, opts).Decode(&set)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &set, nil
}

// ReplaceSet inserts a new set version. Older versions stay readable because
// attempts reference the set id they were delivered from.
func (r *questionRepo) ReplaceSet(ctx context.Context, set *model.QuestionSet, questions []model.Question) error {
	if set.ID == "" {
		set.ID = primitive.NewObjectID().Hex()
	}
	if set.ImportedAt.IsZero() {
		set.ImportedAt = time.Now()
	}

	docs := make([]interface{}, 0, len(questions))
	for i := range questions {
		q := questions[i]
		q.ID = primitive.NewObjectID().Hex()
		q.SetID = set.ID
		q.Position = i
		docs = append(docs, q)
	}
	if len(docs) > 0 {
		if _, err := r.questions.InsertMany(ctx, docs); err != nil {
			return err
		}
	}

	_, err := r.sets.InsertOne(ctx, set)
	return err
}

func (r *questionRepo) ListBySet(ctx context.Context, setID string) ([]model.Question, error) {
	opts := options.Find().SetSort(bson.D{{Key: "position", Value: 1}})
	cursor, err := r.questions.Find(ctx, bson.M{"setId": setID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []model.Question
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
