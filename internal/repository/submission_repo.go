package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/usamatauqir381/questxcopilot/internal/model"
)

const submissionsCollection = "submissions"

// SubmissionRepo stores immutable attempt results
type SubmissionRepo interface {
	// Create inserts a submission; ErrDuplicate when the attempt already has one
	Create(ctx context.Context, sub *model.Submission) error
	GetByID(ctx context.Context, id string) (*model.Submission, error)
	GetByAttempt(ctx context.Context, attemptID string) (*model.Submission, error)
	CountByRespondent(ctx context.Context, respondentID, assessmentID string) (int, error)
}

type submissionRepo struct {
	collection *mongo.Collection
}

// NewSubmissionRepo creates a new submission repository
func NewSubmissionRepo(db *mongo.Database) SubmissionRepo {
	return &submissionRepo{
		collection: db.Collection(submissionsCollection),
	}
}

func (r *submissionRepo) Create(ctx context.Context, sub *model.Submission) error {
	if sub.ID == "" {
		sub.ID = primitive.NewObjectID().Hex()
	}
	_, err := r.collection.InsertOne(ctx, sub)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

func (r *submissionRepo) GetByID(ctx context.Context, id string) (*model.Submission, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *submissionRepo) GetByAttempt(ctx context.Context, attemptID string) (*model.Submission, error) {
	return r.findOne(ctx, bson.M{"attemptId": attemptID})
}

func (r *submissionRepo) findOne(ctx context.Context, filter bson.M) (*model.Submission, error) {
	var sub model.Submission
	err := r.collection.FindOne(ctx, filter).Decode(&sub)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *submissionRepo) CountByRespondent(ctx context.Context, respondentID, assessmentID string) (int, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{
		"respondentId": respondentID,
		"assessmentId": assessmentID,
	})
	return int(n), err
}
