package repository

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	"simplyinvoicing/api/internal/db"
)

// loadTestMongoURI reads MONGO_URI_TEST from the environment or the project .env file.
func loadTestMongoURI() string {
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "..", "..")
	_ = godotenv.Load(filepath.Join(projectRoot, ".env"))
	return os.Getenv("MONGO_URI_TEST")
}

// setupTestDB connects to the test MongoDB with the application codecs and
// drops the given collections. Tests are skipped when no test database is configured.
func setupTestDB(t *testing.T, collections ...string) *mongo.Database {
	t.Helper()
	uri := loadTestMongoURI()
	if uri == "" {
		t.Skip("MONGO_URI_TEST not set, skipping MongoDB repository test")
	}

	ctx := context.Background()
	client, err := mongo.Connect(ctx, db.ClientOptions(uri))
	require.NoError(t, err, "Failed to connect to MongoDB")
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	database := client.Database("simply_invoicing_test")
	for _, collection := range collections {
		_ = database.Collection(collection).Drop(ctx)
	}
	require.NoError(t, db.EnsureIndexes(ctx, database))
	return database
}
