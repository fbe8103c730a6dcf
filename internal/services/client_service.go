package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"

	"simplyinvoicing/api/internal/models"
	"simplyinvoicing/api/internal/plans"
	"simplyinvoicing/api/internal/repository"
)

// IClientService manages a user's clients. Clients owned by someone else
// are reported as ErrNotFound.
type IClientService interface {
	Create(ctx context.Context, userID string, in models.ClientInput) (*models.Client, error)
	Update(ctx context.Context, userID, clientID string, in models.ClientInput) (*models.Client, error)
	Get(ctx context.Context, userID, clientID string) (*models.Client, error)
	List(ctx context.Context, userID string, status models.ClientStatus) ([]models.Client, error)
	Delete(ctx context.Context, userID, clientID string) error
}

type clientService struct {
	clients repository.IClientRepository
	users   repository.IUserRepository
	plans   *plans.Table
	now     Clock
}

// NewClientService creates a client service. A nil clock means time.Now.
func NewClientService(clients repository.IClientRepository, users repository.IUserRepository, planTable *plans.Table, now Clock) IClientService {
	if now == nil {
		now = time.Now
	}
	return &clientService{clients: clients, users: users, plans: planTable, now: now}
}

func (s *clientService) Create(ctx context.Context, userID string, in models.ClientInput) (*models.Client, error) {
	if err := in.Validate(); err != nil {
		return nil, validationFromErr(err)
	}
	if err := s.checkClientLimit(ctx, userID); err != nil {
		return nil, err
	}

	client := &models.Client{UserID: userID}
	applyClientInput(client, in)
	client.Touch(s.now().UTC())
	if err := s.clients.Insert(ctx, client); err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"userId": userID, "clientId": client.ID}).Info("Client created")
	return client, nil
}

func (s *clientService) Update(ctx context.Context, userID, clientID string, in models.ClientInput) (*models.Client, error) {
	if err := in.Validate(); err != nil {
		return nil, validationFromErr(err)
	}
	client, err := s.Get(ctx, userID, clientID)
	if err != nil {
		return nil, err
	}
	applyClientInput(client, in)
	client.Touch(s.now().UTC())
	if err := s.clients.Replace(ctx, client); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return client, nil
}

func (s *clientService) Get(ctx context.Context, userID, clientID string) (*models.Client, error) {
	client, err := s.clients.FindByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error finding client %s: %w", clientID, err)
	}
	if client.UserID != userID {
		return nil, ErrNotFound
	}
	return client, nil
}

func (s *clientService) List(ctx context.Context, userID string, status models.ClientStatus) ([]models.Client, error) {
	if status != "" && status != models.ClientStatusActive && status != models.ClientStatusInactive {
		return nil, newValidationError("status", "must be one of: active inactive")
	}
	return s.clients.ListByUser(ctx, userID, status)
}

// Delete removes the client. Invoices that carry its details are left untouched.
func (s *clientService) Delete(ctx context.Context, userID, clientID string) error {
	if _, err := s.Get(ctx, userID, clientID); err != nil {
		return err
	}
	if err := s.clients.Delete(ctx, clientID); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *clientService) checkClientLimit(ctx context.Context, userID string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrNotFound
		}
		return fmt.Errorf("error finding user %s: %w", userID, err)
	}
	plan := s.plans.ByKey(user.Plan)
	if plan.MaxClients == plans.Unlimited {
		return nil
	}
	count, err := s.clients.CountByUser(ctx, userID)
	if err != nil {
		return err
	}
	if count >= int64(plan.MaxClients) {
		return &QuotaError{Reason: fmt.Sprintf("You have reached the %s plan limit of %d clients. Upgrade your plan to add more.", plan.Name, plan.MaxClients)}
	}
	return nil
}

func applyClientInput(client *models.Client, in models.ClientInput) {
	client.Name = strings.TrimSpace(in.Name)
	client.Email = strings.TrimSpace(in.Email)
	client.Phone = strings.TrimSpace(in.Phone)
	client.Address = in.Address
	client.Status = in.Status
	if client.Status == "" {
		client.Status = models.ClientStatusActive
	}
}
