package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"simplyinvoicing/api/internal/db"
	"simplyinvoicing/api/internal/models"
)

// IRoleRepository stores user roles and the persisted admin allow-list.
type IRoleRepository interface {
	Get(ctx context.Context, userID string) (*models.UserRole, error)
	Upsert(ctx context.Context, role *models.UserRole) error
	IsAdminEmail(ctx context.Context, email string) (bool, error)
	AddAdminEmail(ctx context.Context, email string) error
}

type roleRepository struct {
	roles  *mongo.Collection
	admins *mongo.Collection
}

// NewRoleRepository creates a Mongo-backed role repository.
func NewRoleRepository(database *mongo.Database) IRoleRepository {
	return &roleRepository{
		roles:  database.Collection(db.UserRolesCollection),
		admins: database.Collection(db.AdminUsersCollection),
	}
}

func (r *roleRepository) Get(ctx context.Context, userID string) (*models.UserRole, error) {
	var role models.UserRole
	if err := r.roles.FindOne(ctx, bson.M{"_id": userID}).Decode(&role); err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *roleRepository) Upsert(ctx context.Context, role *models.UserRole) error {
	opts := options.Replace().SetUpsert(true)
	if _, err := r.roles.ReplaceOne(ctx, bson.M{"_id": role.ID}, role, opts); err != nil {
		return fmt.Errorf("failed to save role for user %s: %w", role.ID, err)
	}
	return nil
}

func (r *roleRepository) IsAdminEmail(ctx context.Context, email string) (bool, error) {
	n, err := r.admins.CountDocuments(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))})
	if err != nil {
		return false, fmt.Errorf("failed to query admin users: %w", err)
	}
	return n > 0, nil
}

func (r *roleRepository) AddAdminEmail(ctx context.Context, email string) error {
	admin := models.AdminUser{
		Base:      models.NewBase(),
		Email:     strings.ToLower(strings.TrimSpace(email)),
		CreatedAt: time.Now().UTC(),
	}
	err := db.Try(ctx, func() error {
		_, err := r.admins.InsertOne(ctx, admin)
		if db.IsMongoDuplicateKeyError(err) {
			// Already present.
			return nil
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to add admin email: %w", err)
	}
	return nil
}
