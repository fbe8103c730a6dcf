package handlers_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"simplyinvoicing/api/internal/access"
	"simplyinvoicing/api/internal/invoicecalc"
	"simplyinvoicing/api/internal/models"
	"simplyinvoicing/api/internal/payments"
	"simplyinvoicing/api/internal/services"
)

// MockUserService implements services.IUserService
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) SignUp(ctx context.Context, email, password, displayName string) (*models.User, error) {
	args := m.Called(ctx, email, password, displayName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) GetProfile(ctx context.Context, userID string) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) UpdateProfile(ctx context.Context, userID string, in models.ProfileInput) (*models.User, error) {
	args := m.Called(ctx, userID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

// MockRoleService implements services.IRoleService
type MockRoleService struct {
	mock.Mock
}

func (m *MockRoleService) GetRole(ctx context.Context, userID string) (*models.UserRole, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserRole), args.Error(1)
}

func (m *MockRoleService) Authorize(ctx context.Context, userID string, perm access.Permission) error {
	args := m.Called(ctx, userID, perm)
	return args.Error(0)
}

func (m *MockRoleService) AssignInitialRole(ctx context.Context, userID, email string) (*models.UserRole, error) {
	args := m.Called(ctx, userID, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserRole), args.Error(1)
}

func (m *MockRoleService) SetRole(ctx context.Context, userID, role string) (*models.UserRole, error) {
	args := m.Called(ctx, userID, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserRole), args.Error(1)
}

// MockInvoiceService implements services.IInvoiceService
type MockInvoiceService struct {
	mock.Mock
}

func (m *MockInvoiceService) Calculate(in models.InvoiceInput) (*invoicecalc.Totals, error) {
	args := m.Called(in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoicecalc.Totals), args.Error(1)
}

func (m *MockInvoiceService) Create(ctx context.Context, userID string, in models.InvoiceInput) (*models.Invoice, error) {
	args := m.Called(ctx, userID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invoice), args.Error(1)
}

func (m *MockInvoiceService) Update(ctx context.Context, userID, invoiceID string, in models.InvoiceInput) (*models.Invoice, error) {
	args := m.Called(ctx, userID, invoiceID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invoice), args.Error(1)
}

func (m *MockInvoiceService) Get(ctx context.Context, userID, invoiceID string) (*models.Invoice, error) {
	args := m.Called(ctx, userID, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invoice), args.Error(1)
}

func (m *MockInvoiceService) List(ctx context.Context, userID string, status models.InvoiceStatus) ([]models.Invoice, error) {
	args := m.Called(ctx, userID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Invoice), args.Error(1)
}

func (m *MockInvoiceService) Delete(ctx context.Context, userID, invoiceID string) error {
	args := m.Called(ctx, userID, invoiceID)
	return args.Error(0)
}

func (m *MockInvoiceService) SetStatus(ctx context.Context, userID, invoiceID string, status models.InvoiceStatus) (*models.Invoice, error) {
	args := m.Called(ctx, userID, invoiceID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invoice), args.Error(1)
}

func (m *MockInvoiceService) ArchiveURL(ctx context.Context, userID, invoiceID string) (string, error) {
	args := m.Called(ctx, userID, invoiceID)
	return args.String(0), args.Error(1)
}

func (m *MockInvoiceService) MarkOverdue(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockClientService implements services.IClientService
type MockClientService struct {
	mock.Mock
}

func (m *MockClientService) Create(ctx context.Context, userID string, in models.ClientInput) (*models.Client, error) {
	args := m.Called(ctx, userID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Client), args.Error(1)
}

func (m *MockClientService) Update(ctx context.Context, userID, clientID string, in models.ClientInput) (*models.Client, error) {
	args := m.Called(ctx, userID, clientID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Client), args.Error(1)
}

func (m *MockClientService) Get(ctx context.Context, userID, clientID string) (*models.Client, error) {
	args := m.Called(ctx, userID, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Client), args.Error(1)
}

func (m *MockClientService) List(ctx context.Context, userID string, status models.ClientStatus) ([]models.Client, error) {
	args := m.Called(ctx, userID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Client), args.Error(1)
}

func (m *MockClientService) Delete(ctx context.Context, userID, clientID string) error {
	args := m.Called(ctx, userID, clientID)
	return args.Error(0)
}

// MockSettingsService implements services.ISettingsService
type MockSettingsService struct {
	mock.Mock
}

func (m *MockSettingsService) Get(ctx context.Context, userID string) (*models.Settings, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Settings), args.Error(1)
}

func (m *MockSettingsService) Update(ctx context.Context, userID string, in models.SettingsInput) (*models.Settings, error) {
	args := m.Called(ctx, userID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Settings), args.Error(1)
}

func (m *MockSettingsService) NextInvoiceNumber(ctx context.Context, userID string) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}

func (m *MockSettingsService) EnsureDefaults(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// MockUsageService implements services.IUsageService
type MockUsageService struct {
	mock.Mock
}

func (m *MockUsageService) CheckInvoiceLimit(ctx context.Context, userID string) (*services.InvoiceLimit, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.InvoiceLimit), args.Error(1)
}

// MockSubscriptionService implements services.ISubscriptionService
type MockSubscriptionService struct {
	mock.Mock
}

func (m *MockSubscriptionService) CreateCheckoutSession(ctx context.Context, userID, priceID, successURL, cancelURL string) (*payments.CheckoutSession, error) {
	args := m.Called(ctx, userID, priceID, successURL, cancelURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payments.CheckoutSession), args.Error(1)
}

func (m *MockSubscriptionService) CreatePortalSession(ctx context.Context, userID string) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}

func (m *MockSubscriptionService) GetStatus(ctx context.Context, userID string) (*services.SubscriptionStatus, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.SubscriptionStatus), args.Error(1)
}

// MockEmailService implements services.IEmailService
type MockEmailService struct {
	mock.Mock
}

func (m *MockEmailService) SendInvoiceEmail(ctx context.Context, userID, invoiceID string) (*services.SendInvoiceEmailResult, error) {
	args := m.Called(ctx, userID, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.SendInvoiceEmailResult), args.Error(1)
}

func (m *MockEmailService) ListEmailLogs(ctx context.Context, userID, invoiceID string) ([]models.EmailLog, error) {
	args := m.Called(ctx, userID, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.EmailLog), args.Error(1)
}

func (m *MockEmailService) ArchiveInvoiceEmail(ctx context.Context, invoiceID, messageID string) error {
	args := m.Called(ctx, invoiceID, messageID)
	return args.Error(0)
}

func (m *MockEmailService) SendWelcomeEmail(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// MockWebhookService implements services.IWebhookService
type MockWebhookService struct {
	mock.Mock
}

func (m *MockWebhookService) HandleEvent(ctx context.Context, evt *payments.Event) (string, error) {
	args := m.Called(ctx, evt)
	return args.String(0), args.Error(1)
}

// MockGateway implements payments.IGateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreateCheckoutSession(ctx context.Context, req payments.CheckoutRequest) (*payments.CheckoutSession, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payments.CheckoutSession), args.Error(1)
}

func (m *MockGateway) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	args := m.Called(ctx, customerID, returnURL)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) GetSubscription(ctx context.Context, subscriptionID string) (*payments.Subscription, error) {
	args := m.Called(ctx, subscriptionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payments.Subscription), args.Error(1)
}

func (m *MockGateway) ConstructEvent(payload []byte, signatureHeader string) (*payments.Event, error) {
	args := m.Called(payload, signatureHeader)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payments.Event), args.Error(1)
}
