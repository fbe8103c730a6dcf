package repository

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	"simplyinvoicing/api/internal/db"
	"simplyinvoicing/api/internal/models"
)

func TestInvoiceRepository_RoundTripAndCounts(t *testing.T) {
	database := setupTestDB(t, db.InvoicesCollection)
	repo := NewInvoiceRepository(database)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Millisecond)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	current := &models.Invoice{
		UserID:        "u1",
		InvoiceNumber: "INV-00001",
		ClientName:    "Acme",
		Status:        models.InvoiceStatusPending,
		DueDate:       now.Add(-time.Hour),
		Total:         decimal.RequireFromString("23.625"),
		Timestamps:    models.Timestamps{CreatedAt: now, UpdatedAt: now},
	}
	old := &models.Invoice{
		UserID:        "u1",
		InvoiceNumber: "INV-00000",
		Status:        models.InvoiceStatusPaid,
		DueDate:       now.Add(-time.Hour),
		Timestamps:    models.Timestamps{CreatedAt: monthStart.Add(-time.Second)},
	}
	require.NoError(t, repo.Insert(ctx, current))
	require.NoError(t, repo.Insert(ctx, old))

	found, err := repo.FindByID(ctx, current.ID)
	require.NoError(t, err)
	assert.True(t, found.Total.Equal(decimal.RequireFromString("23.625")))

	count, err := repo.CountCreatedSince(ctx, "u1", monthStart)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	dup := &models.Invoice{UserID: "u1", InvoiceNumber: "INV-00001"}
	err = repo.Insert(ctx, dup)
	assert.True(t, db.IsMongoDuplicateKeyError(err))

	moved, err := repo.MarkOverdue(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), moved)

	list, err := repo.ListByUser(ctx, "u1", models.InvoiceStatusOverdue)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, current.ID, list[0].ID)

	require.NoError(t, repo.Delete(ctx, current.ID))
	_, err = repo.FindByID(ctx, current.ID)
	assert.ErrorIs(t, err, mongo.ErrNoDocuments)
}

func TestSettingsRepository_NextInvoiceNumber(t *testing.T) {
	database := setupTestDB(t, db.SettingsCollection)
	repo := NewSettingsRepository(database)
	ctx := context.Background()

	first, err := repo.NextInvoiceNumber(ctx, "u1")
	require.NoError(t, err)
	second, err := repo.NextInvoiceNumber(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), first)
	assert.Equal(t, int64(2), second)

	require.NoError(t, repo.Save(ctx, &models.Settings{ID: "u1", Currency: "EUR", InvoicePrefix: "ACME"}))
	settings, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "EUR", settings.Currency)
	assert.Equal(t, int64(2), settings.NextInvoiceNumber)
}

func TestUserRepository_FindByCustomerID(t *testing.T) {
	database := setupTestDB(t, db.UsersCollection)
	repo := NewUserRepository(database)
	ctx := context.Background()

	user := &models.User{Email: "Owner@Example.com", Plan: "basic"}
	require.NoError(t, repo.Insert(ctx, user))

	_, err := repo.FindByCustomerID(ctx, "cus_123")
	assert.ErrorIs(t, err, mongo.ErrNoDocuments)

	sub := &models.Subscription{CustomerID: "cus_123", Status: "active", PlanKey: "professional"}
	require.NoError(t, repo.UpdateBilling(ctx, user.ID, "professional", sub))

	found, err := repo.FindByCustomerID(ctx, "cus_123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
	assert.Equal(t, "professional", found.Plan)

	byEmail, err := repo.FindByEmail(ctx, "owner@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)
}

func TestRoleRepository_UpsertAndAdmins(t *testing.T) {
	database := setupTestDB(t, db.UserRolesCollection, db.AdminUsersCollection)
	repo := NewRoleRepository(database)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &models.UserRole{ID: "u1", Role: models.RoleUser}))
	require.NoError(t, repo.Upsert(ctx, &models.UserRole{ID: "u1", Role: models.RoleManager}))
	role, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleManager, role.Role)

	require.NoError(t, repo.AddAdminEmail(ctx, "Boss@Example.com"))
	require.NoError(t, repo.AddAdminEmail(ctx, "boss@example.com"))
	ok, err := repo.IsAdminEmail(ctx, "BOSS@example.com")
	require.NoError(t, err)
	assert.True(t, ok)
}
