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

const attemptsCollection = "attempts"

// AttemptRepo handles attempts. Every state-changing write is conditional on
// the attempt still being in progress.
type AttemptRepo interface {
	// Create inserts a new attempt; ErrDuplicate when the attempt number is taken
	Create(ctx context.Context, attempt *model.Attempt) error
	GetByID(ctx context.Context, id string) (*model.Attempt, error)
	FindOpen(ctx context.Context, respondentID, assessmentID string) (*model.Attempt, error)
	LastAttemptNo(ctx context.Context, respondentID, assessmentID string) (int, error)
	CountByState(ctx context.Context, respondentID, assessmentID string, state model.AttemptState) (int, error)
	// AddViolation counts seq once and returns the updated attempt. added is
	// false for a duplicate sequence or an attempt no longer in progress.
	AddViolation(ctx context.Context, id string, seq int, reason string) (attempt *model.Attempt, added bool, err error)
	// SaveAnswer records an in-progress answer; false when the attempt is closed
	SaveAnswer(ctx context.Context, id, questionID, text string) (bool, error)
	// Finish moves an in-progress attempt to a terminal state; false if it was not in progress
	Finish(ctx context.Context, id string, state model.AttemptState, submissionID string, at time.Time) (bool, error)
}

type attemptRepo struct {
	collection *mongo.Collection
}

// NewAttemptRepo creates a new attempt repository
func NewAttemptRepo(db *mongo.Database) AttemptRepo {
	return &attemptRepo{
		collection: db.Collection(attemptsCollection),
	}
}

func (r *attemptRepo) Create(ctx context.Context, attempt *model.Attempt) error {
	if attempt.ID == "" {
		attempt.ID = primitive.NewObjectID().Hex()
	}
	// $push and $set on nested paths fail against null fields
	if attempt.ViolationSeqs == nil {
		attempt.ViolationSeqs = []int{}
	}
	if attempt.Answers == nil {
		attempt.Answers = map[string]string{}
	}

	_, err := r.collection.InsertOne(ctx, attempt)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

func (r *attemptRepo) GetByID(ctx context.Context, id string) (*model.Attempt, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *attemptRepo) FindOpen(ctx context.Context, respondentID, assessmentID string) (*model.Attempt, error) {
	return r.findOne(ctx, bson.M{
		"respondentId": respondentID,
		"assessmentId": assessmentID,
		"state":        model.AttemptInProgress,
	})
}

func (r *attemptRepo) findOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (*model.Attempt, error) {
	var attempt model.Attempt
	err := r.collection.FindOne(ctx, filter, opts...).Decode(&attempt)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *attemptRepo) LastAttemptNo(ctx context.Context, respondentID, assessmentID string) (int, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "attemptNo", Value: -1}})
	last, err := r.findOne(ctx, bson.M{
		"respondentId": respondentID,
		"assessmentId": assessmentID,
	}, opts)
	if err != nil || last == nil {
		return 0, err
	}
	return last.AttemptNo, nil
}

func (r *attemptRepo) CountByState(ctx context.Context, respondentID, assessmentID string, state model.AttemptState) (int, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{
		"respondentId": respondentID,
		"assessmentId": assessmentID,
		"state":        state,
	})
	return int(n), err
}

func (r *attemptRepo) AddViolation(ctx context.Context, id string, seq int, reason string) (*model.Attempt, bool, error) {
	filter := bson.M{
		"_id":           id,
		"state":         model.AttemptInProgress,
		"violationSeqs": bson.M{"$ne": seq},
	}
	update := bson.M{
		"$push": bson.M{"violationSeqs": seq},
		"$inc":  bson.M{"violationCount": 1},
		"$set":  bson.M{"lastViolation": reason},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var attempt model.Attempt
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&attempt)
	if err == mongo.ErrNoDocuments {
		current, err := r.GetByID(ctx, id)
		return current, false, err
	}
	if err != nil {
		return nil, false, err
	}
	return &attempt, true, nil
}

func (r *attemptRepo) SaveAnswer(ctx context.Context, id, questionID, text string) (bool, error) {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "state": model.AttemptInProgress},
		bson.M{"$set": bson.M{"answers." + questionID: text}},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

func (r *attemptRepo) Finish(ctx context.Context, id string, state model.AttemptState, submissionID string, at time.Time) (bool, error) {
	set := bson.M{"state": state, "finishedAt": at}
	if submissionID != "" {
		set["submissionId"] = submissionID
	}
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "state": model.AttemptInProgress},
		bson.M{"$set": set},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}
