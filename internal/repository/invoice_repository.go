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

// IInvoiceRepository defines persistence operations for invoices.
// Lookups that match nothing return mongo.ErrNoDocuments.
type IInvoiceRepository interface {
	Insert(ctx context.Context, invoice *models.Invoice) error
	FindByID(ctx context.Context, id string) (*models.Invoice, error)
	Replace(ctx context.Context, invoice *models.Invoice) error
	Delete(ctx context.Context, id string) error
	ListByUser(ctx context.Context, userID string, status models.InvoiceStatus) ([]models.Invoice, error)
	CountCreatedSince(ctx context.Context, userID string, since time.Time) (int64, error)
	SetStatus(ctx context.Context, id string, status models.InvoiceStatus, at time.Time) error
	SetArchiveKey(ctx context.Context, id, key string) error
	MarkOverdue(ctx context.Context, now time.Time) (int64, error)
}

type invoiceRepository struct {
	coll *mongo.Collection
}

// NewInvoiceRepository creates a Mongo-backed invoice repository.
func NewInvoiceRepository(database *mongo.Database) IInvoiceRepository {
	return &invoiceRepository{coll: database.Collection(db.InvoicesCollection)}
}

func (r *invoiceRepository) Insert(ctx context.Context, invoice *models.Invoice) error {
	invoice.GenIDIfEmpty()
	if _, err := r.coll.InsertOne(ctx, invoice); err != nil {
		return fmt.Errorf("failed to insert invoice: %w", err)
	}
	return nil
}

func (r *invoiceRepository) FindByID(ctx context.Context, id string) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&invoice); err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *invoiceRepository) Replace(ctx context.Context, invoice *models.Invoice) error {
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": invoice.ID}, invoice)
	if err != nil {
		return fmt.Errorf("failed to replace invoice %s: %w", invoice.ID, err)
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (r *invoiceRepository) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete invoice %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (r *invoiceRepository) ListByUser(ctx context.Context, userID string, status models.InvoiceStatus) ([]models.Invoice, error) {
	filter := bson.M{"userId": userID}
	if status != "" {
		filter["status"] = status
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoices: %w", err)
	}
	defer cursor.Close(ctx)

	invoices := []models.Invoice{}
	if err = cursor.All(ctx, &invoices); err != nil {
		return nil, fmt.Errorf("failed to decode invoices: %w", err)
	}
	return invoices, nil
}

func (r *invoiceRepository) CountCreatedSince(ctx context.Context, userID string, since time.Time) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{
		"userId":    userID,
		"createdAt": bson.M{"$gte": since},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count invoices: %w", err)
	}
	return n, nil
}

// SetStatus sets the status and stamps sentAt or paidAt where that applies.
func (r *invoiceRepository) SetStatus(ctx context.Context, id string, status models.InvoiceStatus, at time.Time) error {
	set := bson.M{"status": status, "updatedAt": at}
	switch status {
	case models.InvoiceStatusSent:
		set["sentAt"] = at
	case models.InvoiceStatusPaid:
		set["paidAt"] = at
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to set status of invoice %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (r *invoiceRepository) SetArchiveKey(ctx context.Context, id, key string) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"archiveKey": key}})
	if err != nil {
		return fmt.Errorf("failed to set archive key of invoice %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// MarkOverdue moves pending and sent invoices past their due date to overdue.
func (r *invoiceRepository) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	filter := bson.M{
		"status":  bson.M{"$in": []models.InvoiceStatus{models.InvoiceStatusPending, models.InvoiceStatusSent}},
		"dueDate": bson.M{"$lt": now},
	}
	update := bson.M{"$set": bson.M{"status": models.InvoiceStatusOverdue, "updatedAt": now}}

	res, err := r.coll.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("failed to mark overdue invoices: %w", err)
	}
	return res.ModifiedCount, nil
}
