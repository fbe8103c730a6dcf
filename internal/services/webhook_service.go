package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"

	"simplyinvoicing/api/internal/metrics"
	"simplyinvoicing/api/internal/models"
	"simplyinvoicing/api/internal/payments"
	"simplyinvoicing/api/internal/plans"
	"simplyinvoicing/api/internal/repository"
)

const subscriptionStatusCanceled = "canceled"

// IWebhookService applies verified payment provider events to user profiles.
// Every effect is an overwrite, so a redelivered event re-applies the same state.
type IWebhookService interface {
	// HandleEvent returns the metrics outcome of the event. An error means
	// the event should be redelivered.
	HandleEvent(ctx context.Context, evt *payments.Event) (string, error)
}

type webhookService struct {
	users   repository.IUserRepository
	gateway payments.IGateway
	plans   *plans.Table
	now     Clock
}

// NewWebhookService creates a webhook service. A nil clock means time.Now.
func NewWebhookService(users repository.IUserRepository, gateway payments.IGateway, planTable *plans.Table, now Clock) IWebhookService {
	if now == nil {
		now = time.Now
	}
	return &webhookService{users: users, gateway: gateway, plans: planTable, now: now}
}

func (s *webhookService) HandleEvent(ctx context.Context, evt *payments.Event) (string, error) {
	logger := log.WithFields(log.Fields{"eventId": evt.ID, "eventType": evt.Type})

	switch evt.Type {
	case payments.EventCheckoutSessionCompleted:
		return s.handleCheckoutCompleted(ctx, evt, logger)
	case payments.EventCustomerSubscriptionUpdated:
		return s.handleSubscriptionUpdated(ctx, evt, logger)
	case payments.EventCustomerSubscriptionDeleted:
		return s.handleSubscriptionDeleted(ctx, evt, logger)
	case payments.EventInvoicePaymentSucceeded, payments.EventInvoicePaymentFailed:
		invoiceID, customerID, err := evt.InvoiceRef()
		if err != nil {
			return metrics.OutcomeError, err
		}
		entry := logger.WithFields(log.Fields{"invoiceId": invoiceID, "customerId": customerID})
		if evt.Type == payments.EventInvoicePaymentFailed {
			entry.Warn("Subscription payment failed")
		} else {
			entry.Info("Subscription payment succeeded")
		}
		return metrics.OutcomeOK, nil
	default:
		logger.Debug("Unhandled webhook event")
		return metrics.OutcomeIgnored, nil
	}
}

func (s *webhookService) handleCheckoutCompleted(ctx context.Context, evt *payments.Event, logger *log.Entry) (string, error) {
	session, err := evt.CheckoutSession()
	if err != nil {
		return metrics.OutcomeError, err
	}
	userID := session.Metadata["userId"]
	if userID == "" {
		userID = session.ClientReferenceID
	}
	if userID == "" {
		logger.WithField("sessionId", session.SessionID).Warn("Checkout session without user reference")
		return metrics.OutcomeIgnored, nil
	}
	logger = logger.WithField("userId", userID)

	sub := &models.Subscription{
		CustomerID:     session.CustomerID,
		SubscriptionID: session.SubscriptionID,
		Status:         "active",
		UpdatedAt:      s.now().UTC(),
	}
	priceID := session.Metadata["priceId"]

	if session.SubscriptionID != "" {
		remote, err := s.gateway.GetSubscription(ctx, session.SubscriptionID)
		switch {
		case err == nil:
			applyRemoteSubscription(sub, remote)
			if priceID == "" {
				priceID = remote.PriceID
			}
		case errors.Is(err, payments.ErrNotConfigured):
			logger.Warn("Payment provider not configured, storing checkout data only")
		default:
			return metrics.OutcomeError, fmt.Errorf("failed to fetch subscription %s: %w", session.SubscriptionID, err)
		}
	}

	plan, ok := s.plans.ByPriceID(priceID)
	if !ok {
		logger.WithField("priceId", priceID).Warn("Checkout for unknown price, using default plan")
		plan = s.plans.Default()
	}
	sub.PlanKey = plan.Key

	if err := s.users.UpdateBilling(ctx, userID, plan.Key, sub); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			logger.Warn("Checkout completed for unknown user")
			return metrics.OutcomeIgnored, nil
		}
		return metrics.OutcomeError, err
	}
	logger.WithFields(log.Fields{"plan": plan.Key, "customerId": sub.CustomerID}).Info("Subscription activated")
	return metrics.OutcomeOK, nil
}

func (s *webhookService) handleSubscriptionUpdated(ctx context.Context, evt *payments.Event, logger *log.Entry) (string, error) {
	remote, err := evt.Subscription()
	if err != nil {
		return metrics.OutcomeError, err
	}
	user, err := s.userByCustomer(ctx, remote.CustomerID, logger)
	if user == nil {
		return outcomeFor(err), err
	}

	plan, ok := s.plans.ByPriceID(remote.PriceID)
	if !ok {
		plan = s.plans.ByKey(user.Plan)
	}
	sub := &models.Subscription{
		CustomerID:     remote.CustomerID,
		SubscriptionID: remote.ID,
		PlanKey:        plan.Key,
		UpdatedAt:      s.now().UTC(),
	}
	applyRemoteSubscription(sub, remote)

	if err := s.users.UpdateBilling(ctx, user.ID, plan.Key, sub); err != nil {
		return metrics.OutcomeError, err
	}
	logger.WithFields(log.Fields{"userId": user.ID, "plan": plan.Key, "status": sub.Status}).Info("Subscription updated")
	return metrics.OutcomeOK, nil
}

func (s *webhookService) handleSubscriptionDeleted(ctx context.Context, evt *payments.Event, logger *log.Entry) (string, error) {
	remote, err := evt.Subscription()
	if err != nil {
		return metrics.OutcomeError, err
	}
	user, err := s.userByCustomer(ctx, remote.CustomerID, logger)
	if user == nil {
		return outcomeFor(err), err
	}

	plan := s.plans.Default()
	sub := &models.Subscription{}
	if user.Subscription != nil {
		*sub = *user.Subscription
	}
	sub.CustomerID = remote.CustomerID
	sub.SubscriptionID = remote.ID
	sub.Status = subscriptionStatusCanceled
	sub.PlanKey = plan.Key
	sub.CancelAtPeriodEnd = false
	sub.UpdatedAt = s.now().UTC()

	if err := s.users.UpdateBilling(ctx, user.ID, plan.Key, sub); err != nil {
		return metrics.OutcomeError, err
	}
	logger.WithFields(log.Fields{"userId": user.ID, "plan": plan.Key}).Info("Subscription canceled")
	return metrics.OutcomeOK, nil
}

// userByCustomer returns a nil user and nil error when no profile carries the customer id.
func (s *webhookService) userByCustomer(ctx context.Context, customerID string, logger *log.Entry) (*models.User, error) {
	user, err := s.users.FindByCustomerID(ctx, customerID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			logger.WithField("customerId", customerID).Warn("No user found for customer")
			return nil, nil
		}
		return nil, fmt.Errorf("error finding user for customer %s: %w", customerID, err)
	}
	return user, nil
}

func applyRemoteSubscription(sub *models.Subscription, remote *payments.Subscription) {
	if remote.CustomerID != "" {
		sub.CustomerID = remote.CustomerID
	}
	if remote.Status != "" {
		sub.Status = remote.Status
	}
	sub.CancelAtPeriodEnd = remote.CancelAtPeriodEnd
	if !remote.CurrentPeriodEnd.IsZero() {
		end := remote.CurrentPeriodEnd
		sub.CurrentPeriodEnd = &end
	}
}

func outcomeFor(err error) string {
	if err != nil {
		return metrics.OutcomeError
	}
	return metrics.OutcomeIgnored
}
