package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"simplyinvoicing/api/internal/plans"
	"simplyinvoicing/api/internal/repository"
)

// Clock returns the current time. Services take one so tests can pin "now".
type Clock func() time.Time

// InvoiceLimit is the outcome of a monthly invoice quota check.
type InvoiceLimit struct {
	CanCreate    bool   `json:"canCreate"`
	CurrentCount int64  `json:"currentCount"`
	Limit        int64  `json:"limit"` // -1 for unlimited
	Plan         string `json:"plan"`
	Reason       string `json:"reason,omitempty"`
}

// IUsageService checks plan ceilings.
type IUsageService interface {
	// CheckInvoiceLimit counts the invoices the user created since the start
	// of the current UTC month. No slot is reserved, so two concurrent
	// creations can both pass.
	CheckInvoiceLimit(ctx context.Context, userID string) (*InvoiceLimit, error)
}

type usageService struct {
	users    repository.IUserRepository
	invoices repository.IInvoiceRepository
	plans    *plans.Table
	now      Clock
}

// NewUsageService creates a usage service. A nil clock means time.Now.
func NewUsageService(users repository.IUserRepository, invoices repository.IInvoiceRepository, planTable *plans.Table, now Clock) IUsageService {
	if now == nil {
		now = time.Now
	}
	return &usageService{users: users, invoices: invoices, plans: planTable, now: now}
}

func (s *usageService) CheckInvoiceLimit(ctx context.Context, userID string) (*InvoiceLimit, error) {
	planKey := ""
	user, err := s.users.FindByID(ctx, userID)
	switch {
	case err == nil:
		planKey = user.Plan
	case errors.Is(err, mongo.ErrNoDocuments):
	default:
		return nil, fmt.Errorf("error finding user %s: %w", userID, err)
	}
	plan := s.plans.ByKey(planKey)

	count, err := s.invoices.CountCreatedSince(ctx, userID, monthStart(s.now()))
	if err != nil {
		return nil, err
	}

	limit := &InvoiceLimit{
		CanCreate:    true,
		CurrentCount: count,
		Limit:        int64(plan.MonthlyInvoices),
		Plan:         plan.Key,
	}
	if plan.MonthlyInvoices != plans.Unlimited && count >= int64(plan.MonthlyInvoices) {
		limit.CanCreate = false
		limit.Reason = fmt.Sprintf("You have reached the %s plan limit of %d invoices per month. Upgrade your plan to create more.", plan.Name, plan.MonthlyInvoices)
	}
	return limit, nil
}

// monthStart returns the first instant of t's month in UTC.
func monthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
