package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/usamatauqir381/questxcopilot/internal/model"
)

const randomizationCollection = "randomization_maps"

// RandomizationRepo stores one immutable presentation map per attempt
type RandomizationRepo interface {
	// CreateIfAbsent persists m unless a map already exists for the attempt.
	// It always returns the map that is stored, and whether m was the one written.
	CreateIfAbsent(ctx context.Context, m *model.RandomizationMap) (*model.RandomizationMap, bool, error)
	GetByAttempt(ctx context.Context, attemptID string) (*model.RandomizationMap, error)
}

type randomizationRepo struct {
	collection *mongo.Collection
}

// NewRandomizationRepo creates a new randomization map repository
func NewRandomizationRepo(db *mongo.Database) RandomizationRepo {
	return &randomizationRepo{
		collection: db.Collection(randomizationCollection),
	}
}

func (r *randomizationRepo) CreateIfAbsent(ctx context.Context, m *model.RandomizationMap) (*model.RandomizationMap, bool, error) {
	if m.ID == "" {
		m.ID = primitive.NewObjectID().Hex()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}

	_, err := r.collection.InsertOne(ctx, m)
	if err == nil {
		return m, true, nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return nil, false, err
	}

	existing, err := r.GetByAttempt(ctx, m.AttemptID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *randomizationRepo) GetByAttempt(ctx context.Context, attemptID string) (*model.RandomizationMap, error) {
	var m model.RandomizationMap
	err := r.collection.FindOne(ctx, bson.M{"attemptId": attemptID}).Decode(&m)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}
