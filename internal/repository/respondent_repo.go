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

const respondentsCollection = "respondents"

// RespondentRepo handles respondent identities, unique by email
type RespondentRepo interface {
	// Upsert inserts or updates by email. Empty name/external id keep the stored value.
	Upsert(ctx context.Context, respondent *model.Respondent) (*model.Respondent, error)
	GetByID(ctx context.Context, id string) (*model.Respondent, error)
	GetByEmail(ctx context.Context, email string) (*model.Respondent, error)
}

type respondentRepo struct {
	collection *mongo.Collection
}

// NewRespondentRepo creates a new respondent repository
func NewRespondentRepo(db *mongo.Database) RespondentRepo {
	return &respondentRepo{
		collection: db.Collection(respondentsCollection),
	}
}

func (r *respondentRepo) Upsert(ctx context.Context, respondent *model.Respondent) (*model.Respondent, error) {
	now := time.Now()
	set := bson.M{"updatedAt": now}
	if respondent.Name != "" {
		set["name"] = respondent.Name
	}
	if respondent.ExternalID != "" {
		set["externalId"] = respondent.ExternalID
	}
	update := bson.M{
		"$set": set,
		"$setOnInsert": bson.M{
			"_id":       primitive.NewObjectID().Hex(),
			"createdAt": now,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var out model.Respondent
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"email": respondent.Email}, update, opts).Decode(&out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *respondentRepo) GetByID(ctx context.Context, id string) (*model.Respondent, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *respondentRepo) GetByEmail(ctx context.Context, email string) (*model.Respondent, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *respondentRepo) findOne(ctx context.Context, filter bson.M) (*model.Respondent, error) {
	var respondent model.Respondent
	err := r.collection.FindOne(ctx, filter).Decode(&respondent)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &respondent, nil
}
