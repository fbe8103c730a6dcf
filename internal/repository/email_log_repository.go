package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"simplyinvoicing/api/internal/db"
	"simplyinvoicing/api/internal/models"
)

// IEmailLogRepository appends and lists email send records.
type IEmailLogRepository interface {
	Insert(ctx context.Context, entry *models.EmailLog) error
	ListByUser(ctx context.Context, userID, invoiceID string, limit int64) ([]models.EmailLog, error)
}

type emailLogRepository struct {
	coll *mongo.Collection
}

// NewEmailLogRepository creates a Mongo-backed email log repository.
func NewEmailLogRepository(database *mongo.Database) IEmailLogRepository {
	return &emailLogRepository{coll: database.Collection(db.EmailLogsCollection)}
}

func (r *emailLogRepository) Insert(ctx context.Context, entry *models.EmailLog) error {
	entry.GenIDIfEmpty()
	if _, err := r.coll.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("failed to insert email log: %w", err)
	}
	return nil
}

func (r *emailLogRepository) ListByUser(ctx context.Context, userID, invoiceID string, limit int64) ([]models.EmailLog, error) {
	filter := bson.M{"userId": userID}
	if invoiceID != "" {
		filter["invoiceId"] = invoiceID
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query email logs: %w", err)
	}
	defer cursor.Close(ctx)

	logs := []models.EmailLog{}
	if err = cursor.All(ctx, &logs); err != nil {
		return nil, fmt.Errorf("failed to decode email logs: %w", err)
	}
	return logs, nil
}
