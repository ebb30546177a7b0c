package repository

import (
	"context"
	"log"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the unique indexes the ledger relies on for
// at-most-once writes. Failures are logged; the service still starts.
func EnsureIndexes(ctx context.Context, db *mongo.Database) {
	createIndex(ctx, db.Collection(respondentsCollection), bson.D{{Key: "email", Value: 1}}, true)
	createIndex(ctx, db.Collection(credentialsCollection), bson.D{{Key: "email", Value: 1}}, true)
	createIndex(ctx, db.Collection(assessmentsCollection), bson.D{{Key: "slug", Value: 1}}, true)
	createIndex(ctx, db.Collection(assessmentsCollection), bson.D{{Key: "level", Value: 1}}, false)

	createIndex(ctx, db.Collection(questionSetsCollection), bson.D{
		{Key: "assessmentId", Value: 1},
		{Key: "role", Value: 1},
	}, false)
	createIndex(ctx, db.Collection(questionsCollection), bson.D{
		{Key: "setId", Value: 1},
		{Key: "position", Value: 1},
	}, false)

	createIndex(ctx, db.Collection(attemptsCollection), bson.D{
		{Key: "respondentId", Value: 1},
		{Key: "assessmentId", Value: 1},
		{Key: "attemptNo", Value: 1},
	}, true)
	createIndex(ctx, db.Collection(attemptsCollection), bson.D{
		{Key: "respondentId", Value: 1},
		{Key: "assessmentId", Value: 1},
		{Key: "state", Value: 1},
	}, false)

	createIndex(ctx, db.Collection(randomizationCollection), bson.D{{Key: "attemptId", Value: 1}}, true)
	createIndex(ctx, db.Collection(submissionsCollection), bson.D{{Key: "attemptId", Value: 1}}, true)
	createIndex(ctx, db.Collection(submissionsCollection), bson.D{
		{Key: "respondentId", Value: 1},
		{Key: "assessmentId", Value: 1},
	}, false)

	log.Println("Ledger indexes ensured")
}

func createIndex(ctx context.Context, coll *mongo.Collection, keys bson.D, unique bool) {
	opts := options.Index().SetUnique(unique)
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: keys, Options: opts})
	if err != nil {
		log.Printf("Warning: failed to create index on %s: %v", coll.Name(), err)
	}
}
