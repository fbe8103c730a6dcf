package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"simplyinvoicing/api/internal/db"
	"simplyinvoicing/api/internal/models"
)

// ISettingsRepository stores per-user invoicing settings.
type ISettingsRepository interface {
	Get(ctx context.Context, userID string) (*models.Settings, error)
	// Save writes the editable fields, leaving the invoice counter alone.
	Save(ctx context.Context, settings *models.Settings) error
	// NextInvoiceNumber atomically increments and returns the user's invoice counter.
	NextInvoiceNumber(ctx context.Context, userID string) (int64, error)
}

type settingsRepository struct {
	coll *mongo.Collection
}

// NewSettingsRepository creates a Mongo-backed settings repository.
func NewSettingsRepository(database *mongo.Database) ISettingsRepository {
	return &settingsRepository{coll: database.Collection(db.SettingsCollection)}
}

func (r *settingsRepository) Get(ctx context.Context, userID string) (*models.Settings, error) {
	var settings models.Settings
	if err := r.coll.FindOne(ctx, bson.M{"_id": userID}).Decode(&settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

func (r *settingsRepository) Save(ctx context.Context, settings *models.Settings) error {
	update := bson.M{"$set": bson.M{
		"currency":                settings.Currency,
		"defaultTaxRate":          settings.DefaultTaxRate,
		"defaultPaymentTermsDays": settings.DefaultPaymentTermsDays,
		"invoicePrefix":           settings.InvoicePrefix,
		"updatedAt":               time.Now().UTC(),
	}}
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": settings.ID}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save settings for user %s: %w", settings.ID, err)
	}
	return nil
}

func (r *settingsRepository) NextInvoiceNumber(ctx context.Context, userID string) (int64, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	update := bson.M{"$inc": bson.M{"nextInvoiceNumber": 1}}

	var settings models.Settings
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": userID}, update, opts).Decode(&settings)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate invoice number for user %s: %w", userID, err)
	}
	return settings.NextInvoiceNumber, nil
}
