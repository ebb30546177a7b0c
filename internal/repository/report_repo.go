package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/usamatauqir381/questxcopilot/internal/model"
)

const reportsCollection = "result_reports"

// ReportRepo handles MongoDB operations for result reports
type ReportRepo interface {
	// Create stores the report once; ErrDuplicate when the submission already has one
	Create(ctx context.Context, report *model.ResultReport) error
	Get(ctx context.Context, submissionID string) (*model.ResultReport, error)
	SetRendered(ctx context.Context, submissionID string, status model.RenderStatus, document string, at time.Time) error
}

type reportRepo struct {
	reports *mongo.Collection
}

// NewReportRepo creates a new report repository
func NewReportRepo(db *mongo.Database) ReportRepo {
	return &reportRepo{
		reports: db.Collection(reportsCollection),
	}
}

func (r *reportRepo) Create(ctx context.Context, report *model.ResultReport) error {
	_, err := r.reports.InsertOne(ctx, report)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

func (r *reportRepo) Get(ctx context.Context, submissionID string) (*model.ResultReport, error) {
	var report model.ResultReport
	err := r.reports.FindOne(ctx, bson.M{"_id": submissionID}).Decode(&report)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *reportRepo) SetRendered(ctx context.Context, submissionID string, status model.RenderStatus, document string, at time.Time) error {
	opts := options.Update().SetUpsert(false)
	_, err := r.reports.UpdateOne(ctx, bson.M{"_id": submissionID}, bson.M{
		"$set": bson.M{"renderStatus": status, "document": document, "renderedAt": at},
	}, opts)
	return err
}
