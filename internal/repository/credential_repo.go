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
	otpCollection         = "otp_codes"
	credentialsCollection = "credentials"
)

// OTPRepo stores the pending one-time code per email
type OTPRepo interface {
	Get(ctx context.Context, email string) (*model.OTPCode, error)
	Save(ctx context.Context, code *model.OTPCode) error
	// Consume clears the pending hash so the code cannot be reused
	Consume(ctx context.Context, email string) error
}

// CredentialRepo stores provisioned passwords
type CredentialRepo interface {
	GetByID(ctx context.Context, id string) (*model.Credential, error)
	GetByEmail(ctx context.Context, email string) (*model.Credential, error)
	// Upsert inserts or updates by email and reports whether a new row was created
	Upsert(ctx context.Context, cred *model.Credential) (bool, error)
	// MarkUsed flips an active credential to used; already-used is a no-op
	MarkUsed(ctx context.Context, id string, at time.Time) error
}

type otpRepo struct {
	collection *mongo.Collection
}

// NewOTPRepo creates a new one-time code repository
func NewOTPRepo(db *mongo.Database) OTPRepo {
	return &otpRepo{
		collection: db.Collection(otpCollection),
	}
}

func (r *otpRepo) Get(ctx context.Context, email string) (*model.OTPCode, error) {
	var code model.OTPCode
	err := r.collection.FindOne(ctx, bson.M{"_id": email}).Decode(&code)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &code, nil
}

func (r *otpRepo) Save(ctx context.Context, code *model.OTPCode) error {
	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": code.Email}, code, opts)
	return err
}

func (r *otpRepo) Consume(ctx context.Context, email string) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": email}, bson.M{
		"$set": bson.M{"codeHash": ""},
	})
	return err
}

type credentialRepo struct {
	collection *mongo.Collection
}

// NewCredentialRepo creates a new provisioned credential repository
func NewCredentialRepo(db *mongo.Database) CredentialRepo {
	return &credentialRepo{
		collection: db.Collection(credentialsCollection),
	}
}

func (r *credentialRepo) GetByID(ctx context.Context, id string) (*model.Credential, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *credentialRepo) GetByEmail(ctx context.Context, email string) (*model.Credential, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *credentialRepo) findOne(ctx context.Context, filter bson.M) (*model.Credential, error) {
	var cred model.Credential
	err := r.collection.FindOne(ctx, filter).Decode(&cred)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cred, nil
}

func (r *credentialRepo) Upsert(ctx context.Context, cred *model.Credential) (bool, error) {
	now := time.Now()
	set := bson.M{"level": cred.Level}
	if cred.PasswordHash != "" {
		set["passwordHash"] = cred.PasswordHash
	}
	if cred.Status != "" {
		set["status"] = cred.Status
	}
	onInsert := bson.M{
		"_id":       primitive.NewObjectID().Hex(),
		"createdAt": now,
	}
	if cred.Status == "" {
		onInsert["status"] = model.CredentialActive
	}

	res, err := r.collection.UpdateOne(ctx, bson.M{"email": cred.Email}, bson.M{
		"$set":         set,
		"$setOnInsert": onInsert,
	}, options.Update().SetUpsert(true))
	if err != nil {
		return false, err
	}
	return res.UpsertedCount > 0, nil
}

func (r *credentialRepo) MarkUsed(ctx context.Context, id string, at time.Time) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "status": model.CredentialActive},
		bson.M{"$set": bson.M{"status": model.CredentialUsed, "usedAt": at}},
	)
	return err
}
