package db

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Collection names shared by the repositories.
const (
	InvoicesCollection       = "invoices"
	ClientsCollection        = "clients"
	UsersCollection          = "users"
	UserRolesCollection      = "userRoles"
	EmailLogsCollection      = "emailLogs"
	AdminUsersCollection     = "adminUsers"
	SettingsCollection       = "settings"
	EmailTemplatesCollection = "emailTemplates"
)

const (
	appName                = "simplyinvoicing-api"
	serverSelectionTimeout = 10 * time.Second
	pingTimeout            = 5 * time.Second
)

// ClientOptions returns the driver options every connection uses: the
// decimal codec registry, an app name for server logs and a bounded
// server selection wait.
func ClientOptions(uri string) *options.ClientOptions {
	return options.Client().
		ApplyURI(uri).
		SetAppName(appName).
		SetRegistry(NewRegistry()).
		SetServerSelectionTimeout(serverSelectionTimeout)
}

// ConnectDB connects, pings the primary and returns the client together
// with the named database.
func ConnectDB(ctx context.Context, uri, dbName string) (*mongo.Client, *mongo.Database, error) {
	client, err := mongo.Connect(ctx, ClientOptions(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	ctxPing, cancelPing := context.WithTimeout(ctx, pingTimeout)
	defer cancelPing()
	if err := client.Ping(ctxPing, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	log.WithField("database", dbName).Info("Connected to MongoDB")
	return client, client.Database(dbName), nil
}

// DisconnectDB closes the MongoDB client connection.
func DisconnectDB(client *mongo.Client) error {
	if client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect MongoDB: %w", err)
	}
	log.Info("MongoDB connection closed")
	return nil
}
