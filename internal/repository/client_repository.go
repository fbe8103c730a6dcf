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

// IClientRepository defines persistence operations for clients.
type IClientRepository interface {
	Insert(ctx context.Context, client *models.Client) error
	FindByID(ctx context.Context, id string) (*models.Client, error)
	Replace(ctx context.Context, client *models.Client) error
	Delete(ctx context.Context, id string) error
	ListByUser(ctx context.Context, userID string, status models.ClientStatus) ([]models.Client, error)
	CountByUser(ctx context.Context, userID string) (int64, error)
}

type clientRepository struct {
	coll *mongo.Collection
}

// NewClientRepository creates a Mongo-backed client repository.
func NewClientRepository(database *mongo.Database) IClientRepository {
	return &clientRepository{coll: database.Collection(db.ClientsCollection)}
}

func (r *clientRepository) Insert(ctx context.Context, client *models.Client) error {
	client.GenIDIfEmpty()
	if _, err := r.coll.InsertOne(ctx, client); err != nil {
		return fmt.Errorf("failed to insert client: %w", err)
	}
	return nil
}

func (r *clientRepository) FindByID(ctx context.Context, id string) (*models.Client, error) {
	var client models.Client
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&client); err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *clientRepository) Replace(ctx context.Context, client *models.Client) error {
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": client.ID}, client)
	if err != nil {
		return fmt.Errorf("failed to replace client %s: %w", client.ID, err)
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Delete removes the client document only; invoices keep their copy of the client details.
func (r *clientRepository) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete client %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (r *clientRepository) ListByUser(ctx context.Context, userID string, status models.ClientStatus) ([]models.Client, error) {
	filter := bson.M{"userId": userID}
	if status != "" {
		filter["status"] = status
	}
	cursor, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query clients: %w", err)
	}
	defer cursor.Close(ctx)

	clients := []models.Client{}
	if err = cursor.All(ctx, &clients); err != nil {
		return nil, fmt.Errorf("failed to decode clients: %w", err)
	}
	return clients, nil
}

func (r *clientRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"userId": userID})
	if err != nil {
		return 0, fmt.Errorf("failed to count clients: %w", err)
	}
	return n, nil
}
