package services

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"simplyinvoicing/api/internal/email"
	"simplyinvoicing/api/internal/models"
	"simplyinvoicing/api/internal/payments"
)

// --- Repositories ---

type mockUserRepo struct{ mock.Mock }

func (m *mockUserRepo) Insert(ctx context.Context, user *models.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockUserRepo) FindByCustomerID(ctx context.Context, customerID string) (*models.User, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockUserRepo) UpdateProfile(ctx context.Context, id string, in models.ProfileInput) error {
	return m.Called(ctx, id, in).Error(0)
}

func (m *mockUserRepo) UpdateBilling(ctx context.Context, id, plan string, sub *models.Subscription) error {
	return m.Called(ctx, id, plan, sub).Error(0)
}

type mockInvoiceRepo struct{ mock.Mock }

func (m *mockInvoiceRepo) Insert(ctx context.Context, invoice *models.Invoice) error {
	return m.Called(ctx, invoice).Error(0)
}

func (m *mockInvoiceRepo) FindByID(ctx context.Context, id string) (*models.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invoice), args.Error(1)
}

func (m *mockInvoiceRepo) Replace(ctx context.Context, invoice *models.Invoice) error {
	return m.Called(ctx, invoice).Error(0)
}

func (m *mockInvoiceRepo) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockInvoiceRepo) ListByUser(ctx context.Context, userID string, status models.InvoiceStatus) ([]models.Invoice, error) {
	args := m.Called(ctx, userID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Invoice), args.Error(1)
}

func (m *mockInvoiceRepo) CountCreatedSince(ctx context.Context, userID string, since time.Time) (int64, error) {
	args := m.Called(ctx, userID, since)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockInvoiceRepo) SetStatus(ctx context.Context, id string, status models.InvoiceStatus, at time.Time) error {
	return m.Called(ctx, id, status, at).Error(0)
}

func (m *mockInvoiceRepo) SetArchiveKey(ctx context.Context, id, key string) error {
	return m.Called(ctx, id, key).Error(0)
}

func (m *mockInvoiceRepo) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

type mockClientRepo struct{ mock.Mock }

func (m *mockClientRepo) Insert(ctx context.Context, client *models.Client) error {
	return m.Called(ctx, client).Error(0)
}

func (m *mockClientRepo) FindByID(ctx context.Context, id string) (*models.Client, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Client), args.Error(1)
}

func (m *mockClientRepo) Replace(ctx context.Context, client *models.Client) error {
	return m.Called(ctx, client).Error(0)
}

func (m *mockClientRepo) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockClientRepo) ListByUser(ctx context.Context, userID string, status models.ClientStatus) ([]models.Client, error) {
	args := m.Called(ctx, userID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Client), args.Error(1)
}

func (m *mockClientRepo) CountByUser(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

type mockSettingsRepo struct{ mock.Mock }

func (m *mockSettingsRepo) Get(ctx context.Context, userID string) (*models.Settings, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Settings), args.Error(1)
}

func (m *mockSettingsRepo) Save(ctx context.Context, settings *models.Settings) error {
	return m.Called(ctx, settings).Error(0)
}

func (m *mockSettingsRepo) NextInvoiceNumber(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

type mockRoleRepo struct{ mock.Mock }

func (m *mockRoleRepo) Get(ctx context.Context, userID string) (*models.UserRole, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserRole), args.Error(1)
}

func (m *mockRoleRepo) Upsert(ctx context.Context, role *models.UserRole) error {
	return m.Called(ctx, role).Error(0)
}

func (m *mockRoleRepo) IsAdminEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *mockRoleRepo) AddAdminEmail(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

type mockEmailLogRepo struct{ mock.Mock }

func (m *mockEmailLogRepo) Insert(ctx context.Context, entry *models.EmailLog) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *mockEmailLogRepo) ListByUser(ctx context.Context, userID, invoiceID string, limit int64) ([]models.EmailLog, error) {
	args := m.Called(ctx, userID, invoiceID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.EmailLog), args.Error(1)
}

type mockTemplateRepo struct{ mock.Mock }

func (m *mockTemplateRepo) Find(ctx context.Context, templateID, locale string) (*models.EmailTemplate, error) {
	args := m.Called(ctx, templateID, locale)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EmailTemplate), args.Error(1)
}

// --- Collaborators ---

type mockGateway struct{ mock.Mock }

func (m *mockGateway) CreateCheckoutSession(ctx context.Context, req payments.CheckoutRequest) (*payments.CheckoutSession, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payments.CheckoutSession), args.Error(1)
}

func (m *mockGateway) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	args := m.Called(ctx, customerID, returnURL)
	return args.String(0), args.Error(1)
}

func (m *mockGateway) GetSubscription(ctx context.Context, subscriptionID string) (*payments.Subscription, error) {
	args := m.Called(ctx, subscriptionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payments.Subscription), args.Error(1)
}

func (m *mockGateway) ConstructEvent(payload []byte, signatureHeader string) (*payments.Event, error) {
	args := m.Called(payload, signatureHeader)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payments.Event), args.Error(1)
}

type mockSender struct{ mock.Mock }

func (m *mockSender) Send(ctx context.Context, msg *email.Message) (string, error) {
	args := m.Called(ctx, msg)
	return args.String(0), args.Error(1)
}

type mockStorage struct{ mock.Mock }

func (m *mockStorage) PutInvoiceArchive(ctx context.Context, key string, body []byte, contentType string) error {
	return m.Called(ctx, key, body, contentType).Error(0)
}

func (m *mockStorage) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	args := m.Called(ctx, key, ttl)
	return args.String(0), args.Error(1)
}

type mockQueue struct{ mock.Mock }

func (m *mockQueue) EnqueueWelcomeEmail(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *mockQueue) EnqueueInvoiceArchive(ctx context.Context, invoiceID, messageID string) error {
	return m.Called(ctx, invoiceID, messageID).Error(0)
}

type mockUsageService struct{ mock.Mock }

func (m *mockUsageService) CheckInvoiceLimit(ctx context.Context, userID string) (*InvoiceLimit, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*InvoiceLimit), args.Error(1)
}

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}
