package services

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"

	"simplyinvoicing/api/internal/config"
	"simplyinvoicing/api/internal/models"
	"simplyinvoicing/api/internal/payments"
	"simplyinvoicing/api/internal/plans"
	"simplyinvoicing/api/internal/repository"
)

// SubscriptionStatus is the billing overview shown to the user.
type SubscriptionStatus struct {
	Plan         string               `json:"plan"`
	PlanName     string               `json:"planName"`
	Subscription *models.Subscription `json:"subscription,omitempty"`
	Features     []string             `json:"features"`
	Usage        *InvoiceLimit        `json:"usage"`
}

// ISubscriptionService starts checkout and portal sessions and reports billing status.
type ISubscriptionService interface {
	CreateCheckoutSession(ctx context.Context, userID, priceID, successURL, cancelURL string) (*payments.CheckoutSession, error)
	CreatePortalSession(ctx context.Context, userID string) (string, error)
	GetStatus(ctx context.Context, userID string) (*SubscriptionStatus, error)
}

type subscriptionService struct {
	users   repository.IUserRepository
	usage   IUsageService
	gateway payments.IGateway
	plans   *plans.Table
	cfg     *config.Config
}

// NewSubscriptionService creates a subscription service.
func NewSubscriptionService(users repository.IUserRepository, usage IUsageService, gateway payments.IGateway, planTable *plans.Table, cfg *config.Config) ISubscriptionService {
	return &subscriptionService{users: users, usage: usage, gateway: gateway, plans: planTable, cfg: cfg}
}

func (s *subscriptionService) CreateCheckoutSession(ctx context.Context, userID, priceID, successURL, cancelURL string) (*payments.CheckoutSession, error) {
	plan, ok := s.plans.ByPriceID(priceID)
	if !ok || !plan.Paid() {
		return nil, newValidationError("priceId", "is not a known plan price")
	}
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if successURL == "" {
		successURL = s.cfg.AppURL + "/billing/success"
	}
	if cancelURL == "" {
		cancelURL = s.cfg.AppURL + "/billing/cancel"
	}
	req := payments.CheckoutRequest{
		PriceID:           priceID,
		SuccessURL:        successURL,
		CancelURL:         cancelURL,
		CustomerEmail:     user.Email,
		CustomerID:        user.CustomerID(),
		ClientReferenceID: user.ID,
		Metadata: map[string]string{
			"userId":  user.ID,
			"priceId": priceID,
			"planKey": plan.Key,
		},
	}
	session, err := s.gateway.CreateCheckoutSession(ctx, req)
	if err != nil {
		log.WithError(err).WithFields(log.Fields{"userId": userID, "priceId": priceID}).Error("Failed to create checkout session")
		return nil, err
	}
	log.WithFields(log.Fields{"userId": userID, "sessionId": session.ID, "plan": plan.Key}).Info("Checkout session created")
	return session, nil
}

func (s *subscriptionService) CreatePortalSession(ctx context.Context, userID string) (string, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return "", err
	}
	customerID := user.CustomerID()
	if customerID == "" {
		return "", ErrNoCustomer
	}
	url, err := s.gateway.CreatePortalSession(ctx, customerID, s.cfg.AppURL+"/billing")
	if err != nil {
		log.WithError(err).WithField("userId", userID).Error("Failed to create portal session")
		return "", err
	}
	return url, nil
}

func (s *subscriptionService) GetStatus(ctx context.Context, userID string) (*SubscriptionStatus, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	usage, err := s.usage.CheckInvoiceLimit(ctx, userID)
	if err != nil {
		return nil, err
	}
	plan := s.plans.ByKey(user.Plan)
	return &SubscriptionStatus{
		Plan:         plan.Key,
		PlanName:     plan.Name,
		Subscription: user.Subscription,
		Features:     plan.Features,
		Usage:        usage,
	}, nil
}

func (s *subscriptionService) loadUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error finding user %s: %w", userID, err)
	}
	return user, nil
}
