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

const assessmentsCollection = "assessments"

// AssessmentRepo handles assessment definitions
type AssessmentRepo interface {
	// Create inserts a new assessment; ErrDuplicate when the slug exists
	Create(ctx context.Context, a *model.Assessment) error
	GetByID(ctx context.Context, id string) (*model.Assessment, error)
	GetBySlug(ctx context.Context, slug string) (*model.Assessment, error)
	GetByLevel(ctx context.Context, level string) (*model.Assessment, error)
	List(ctx context.Context) ([]*model.Assessment, error)
	// UpdateWindow changes the operator-mutable status and window fields only
	UpdateWindow(ctx context.Context, slug string, status model.AssessmentStatus, startsAt, endsAt *time.Time) (*model.Assessment, error)
}

type assessmentRepo struct {
	collection *mongo.Collection
}

// NewAssessmentRepo creates a new assessment repository
func NewAssessmentRepo(db *mongo.Database) AssessmentRepo {
	return &assessmentRepo{
		collection: db.Collection(assessmentsCollection),
	}
}

func (r *assessmentRepo) Create(ctx context.Context, a *model.Assessment) error {
	if a.ID == "" {
		a.ID = primitive.NewObjectID().Hex()
	}
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt

	_, err := r.collection.InsertOne(ctx, a)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

func (r *assessmentRepo) GetByID(ctx context.Context, id string) (*model.Assessment, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *assessmentRepo) GetBySlug(ctx context.Context, slug string) (*model.Assessment, error) {
	return r.findOne(ctx, bson.M{"slug": slug})
}

func (r *assessmentRepo) GetByLevel(ctx context.Context, level string) (*model.Assessment, error) {
	return r.findOne(ctx, bson.M{"level": level})
}

func (r *assessmentRepo) findOne(ctx context.Context, filter bson.M) (*model.Assessment, error) {
	var a model.Assessment
	err := r.collection.FindOne(ctx, filter).Decode(&a)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *assessmentRepo) List(ctx context.Context) ([]*model.Assessment, error) {
	cursor, err := r.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "level", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []*model.Assessment
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *assessmentRepo) UpdateWindow(ctx context.Context, slug string, status model.AssessmentStatus, startsAt, endsAt *time.Time) (*model.Assessment, error) {
	update := bson.M{
		"$set": bson.M{
			"status":    status,
			"startsAt":  startsAt,
			"endsAt":    endsAt,
			"updatedAt": time.Now(),
		},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var a model.Assessment
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"slug": slug}, update, opts).Decode(&a)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}
