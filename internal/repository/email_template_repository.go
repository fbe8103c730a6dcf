package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"simplyinvoicing/api/internal/db"
	"simplyinvoicing/api/internal/models"
)

// IEmailTemplateRepository reads template overrides stored in the database.
type IEmailTemplateRepository interface {
	Find(ctx context.Context, templateID, locale string) (*models.EmailTemplate, error)
}

type emailTemplateRepository struct {
	coll *mongo.Collection
}

// NewEmailTemplateRepository creates a Mongo-backed template repository.
func NewEmailTemplateRepository(database *mongo.Database) IEmailTemplateRepository {
	return &emailTemplateRepository{coll: database.Collection(db.EmailTemplatesCollection)}
}

func (r *emailTemplateRepository) Find(ctx context.Context, templateID, locale string) (*models.EmailTemplate, error) {
	var template models.EmailTemplate
	filter := bson.M{"templateId": templateID, "locale": locale}
	if err := r.coll.FindOne(ctx, filter).Decode(&template); err != nil {
		return nil, err
	}
	return &template, nil
}
