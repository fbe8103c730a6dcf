package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"simplyinvoicing/api/internal/db"
	"simplyinvoicing/api/internal/models"
)

// IUserRepository defines persistence operations for user profiles.
type IUserRepository interface {
	Insert(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByCustomerID(ctx context.Context, customerID string) (*models.User, error)
	UpdateProfile(ctx context.Context, id string, in models.ProfileInput) error
	// UpdateBilling overwrites the plan and the whole subscription block.
	UpdateBilling(ctx context.Context, id, plan string, sub *models.Subscription) error
}

type userRepository struct {
	coll *mongo.Collection
}

// NewUserRepository creates a Mongo-backed user repository.
func NewUserRepository(database *mongo.Database) IUserRepository {
	return &userRepository{coll: database.Collection(db.UsersCollection)}
}

func (r *userRepository) Insert(ctx context.Context, user *models.User) error {
	user.GenIDIfEmpty()
	user.Email = strings.ToLower(user.Email)
	if _, err := r.coll.InsertOne(ctx, user); err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))})
}

func (r *userRepository) FindByCustomerID(ctx context.Context, customerID string) (*models.User, error) {
	if customerID == "" {
		return nil, mongo.ErrNoDocuments
	}
	return r.findOne(ctx, bson.M{"subscription.customerId": customerID})
}

func (r *userRepository) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	if err := r.coll.FindOne(ctx, filter).Decode(&user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) UpdateProfile(ctx context.Context, id string, in models.ProfileInput) error {
	update := bson.M{"$set": bson.M{
		"displayName":    in.DisplayName,
		"companyName":    in.CompanyName,
		"companyAddress": in.CompanyAddress,
		"companyPhone":   in.CompanyPhone,
		"updatedAt":      time.Now().UTC(),
	}}
	return r.updateByID(ctx, id, update)
}

func (r *userRepository) UpdateBilling(ctx context.Context, id, plan string, sub *models.Subscription) error {
	update := bson.M{"$set": bson.M{
		"plan":         plan,
		"subscription": sub,
		"updatedAt":    time.Now().UTC(),
	}}
	return r.updateByID(ctx, id, update)
}

func (r *userRepository) updateByID(ctx context.Context, id string, update bson.M) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to update user %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
