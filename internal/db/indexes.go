package db

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the indexes the repositories rely on. It is safe to
// call on every start.
func EnsureIndexes(ctx context.Context, database *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		InvoicesCollection: {
			{
				Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "invoiceNumber", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("user_invoice_number"),
			},
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "dueDate", Value: 1}}},
		},
		ClientsCollection: {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "name", Value: 1}}},
		},
		UsersCollection: {
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("unique_email"),
			},
			{
				Keys:    bson.D{{Key: "subscription.customerId", Value: 1}},
				Options: options.Index().SetSparse(true),
			},
		},
		EmailLogsCollection: {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "invoiceId", Value: 1}}},
		},
		AdminUsersCollection: {
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
	}

	for collection, models := range specs {
		names, err := database.Collection(collection).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", collection, err)
		}
		log.WithFields(log.Fields{"collection": collection, "indexes": names}).Debug("Indexes ensured")
	}
	return nil
}
