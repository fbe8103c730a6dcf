package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"

	"simplyinvoicing/api/internal/config"
	"simplyinvoicing/api/internal/invoicecalc"
	"simplyinvoicing/api/internal/models"
	"simplyinvoicing/api/internal/repository"
)

// ISettingsService manages per-user invoicing defaults and numbering.
type ISettingsService interface {
	Get(ctx context.Context, userID string) (*models.Settings, error)
	Update(ctx context.Context, userID string, in models.SettingsInput) (*models.Settings, error)
	NextInvoiceNumber(ctx context.Context, userID string) (string, error)
	// EnsureDefaults stores the configured defaults for a new account.
	EnsureDefaults(ctx context.Context, userID string) error
}

type settingsService struct {
	repo repository.ISettingsRepository
	cfg  *config.Config
}

// NewSettingsService creates a settings service.
func NewSettingsService(repo repository.ISettingsRepository, cfg *config.Config) ISettingsService {
	return &settingsService{repo: repo, cfg: cfg}
}

// Get returns the user's settings with unset fields filled from config.
func (s *settingsService) Get(ctx context.Context, userID string) (*models.Settings, error) {
	settings, err := s.repo.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("failed to load settings: %w", err)
		}
		settings = &models.Settings{ID: userID}
	}
	s.applyDefaults(settings)
	return settings, nil
}

func (s *settingsService) Update(ctx context.Context, userID string, in models.SettingsInput) (*models.Settings, error) {
	if err := in.Validate(); err != nil {
		return nil, validationFromErr(err)
	}
	if err := invoicecalc.CheckRate(in.DefaultTaxRate); err != nil {
		return nil, newValidationError("defaultTaxRate", err.Error())
	}

	current, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	current.Currency = strings.ToUpper(in.Currency)
	current.DefaultTaxRate = invoicecalc.Normalize(in.DefaultTaxRate)
	current.DefaultPaymentTermsDays = in.DefaultPaymentTermsDays
	current.InvoicePrefix = in.InvoicePrefix
	s.applyDefaults(current)

	if err := s.repo.Save(ctx, current); err != nil {
		return nil, err
	}
	return current, nil
}

func (s *settingsService) EnsureDefaults(ctx context.Context, userID string) error {
	settings, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	return s.repo.Save(ctx, settings)
}

// NextInvoiceNumber allocates the next number and formats it as <prefix>-<00000n>.
func (s *settingsService) NextInvoiceNumber(ctx context.Context, userID string) (string, error) {
	settings, err := s.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	n, err := s.repo.NextInvoiceNumber(ctx, userID)
	if err != nil {
		return "", err
	}
	return FormatInvoiceNumber(settings.InvoicePrefix, n), nil
}

// FormatInvoiceNumber renders an invoice number with a zero padded counter.
func FormatInvoiceNumber(prefix string, n int64) string {
	return fmt.Sprintf("%s-%05d", prefix, n)
}

func (s *settingsService) applyDefaults(settings *models.Settings) {
	if settings.Currency == "" {
		settings.Currency = s.cfg.DefaultCurrency
	}
	if settings.InvoicePrefix == "" {
		settings.InvoicePrefix = s.cfg.DefaultInvoicePrefix
	}
	if settings.DefaultPaymentTermsDays == 0 {
		settings.DefaultPaymentTermsDays = s.cfg.DefaultPaymentTermsDays
	}
}
