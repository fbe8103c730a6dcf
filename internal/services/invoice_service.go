package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"

	"simplyinvoicing/api/internal/config"
	"simplyinvoicing/api/internal/db"
	"simplyinvoicing/api/internal/invoicecalc"
	"simplyinvoicing/api/internal/models"
	"simplyinvoicing/api/internal/repository"
	"simplyinvoicing/api/internal/storage"
)

// IInvoiceService manages a user's invoices. Invoices owned by someone else
// are reported as ErrNotFound.
type IInvoiceService interface {
	// Calculate previews the totals of an input without storing anything.
	Calculate(in models.InvoiceInput) (*invoicecalc.Totals, error)
	Create(ctx context.Context, userID string, in models.InvoiceInput) (*models.Invoice, error)
	Update(ctx context.Context, userID, invoiceID string, in models.InvoiceInput) (*models.Invoice, error)
	Get(ctx context.Context, userID, invoiceID string) (*models.Invoice, error)
	List(ctx context.Context, userID string, status models.InvoiceStatus) ([]models.Invoice, error)
	Delete(ctx context.Context, userID, invoiceID string) error
	SetStatus(ctx context.Context, userID, invoiceID string, status models.InvoiceStatus) (*models.Invoice, error)
	ArchiveURL(ctx context.Context, userID, invoiceID string) (string, error)
	// MarkOverdue moves pending and sent invoices past their due date to overdue.
	MarkOverdue(ctx context.Context) (int64, error)
}

type invoiceService struct {
	invoices repository.IInvoiceRepository
	clients  IClientService
	settings ISettingsService
	usage    IUsageService
	archive  storage.IS3Storage
	cfg      *config.Config
	now      Clock
}

// NewInvoiceService creates an invoice service. A nil clock means time.Now.
func NewInvoiceService(
	invoices repository.IInvoiceRepository,
	clients IClientService,
	settings ISettingsService,
	usage IUsageService,
	archive storage.IS3Storage,
	cfg *config.Config,
	now Clock,
) IInvoiceService {
	if now == nil {
		now = time.Now
	}
	return &invoiceService{
		invoices: invoices,
		clients:  clients,
		settings: settings,
		usage:    usage,
		archive:  archive,
		cfg:      cfg,
		now:      now,
	}
}

func (s *invoiceService) Calculate(in models.InvoiceInput) (*invoicecalc.Totals, error) {
	taxRate := decimal.Zero
	if in.TaxRate != nil {
		taxRate = *in.TaxRate
	}
	totals, err := invoicecalc.Calculate(calcItems(in.Items), in.Discount, taxRate)
	if err != nil {
		return nil, validationFromErr(err)
	}
	return &totals, nil
}

// Create checks the monthly quota, fills defaults from the user's settings,
// computes the totals and stores the invoice under a freshly allocated number.
func (s *invoiceService) Create(ctx context.Context, userID string, in models.InvoiceInput) (*models.Invoice, error) {
	if err := in.Validate(); err != nil {
		return nil, validationFromErr(err)
	}

	limit, err := s.usage.CheckInvoiceLimit(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !limit.CanCreate {
		return nil, &QuotaError{Reason: limit.Reason}
	}

	settings, err := s.settings.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	invoice := &models.Invoice{UserID: userID, Status: models.InvoiceStatusDraft}
	if err := s.apply(ctx, invoice, in, settings); err != nil {
		return nil, err
	}
	invoice.Touch(s.now().UTC())

	err = db.Try(ctx, func() error {
		number, err := s.settings.NextInvoiceNumber(ctx, userID)
		if err != nil {
			return err
		}
		invoice.InvoiceNumber = number
		invoice.GenID()
		return s.invoices.Insert(ctx, invoice)
	})
	if err != nil {
		return nil, fmt.Errorf("error inserting invoice for user %s: %w", userID, err)
	}

	log.WithFields(log.Fields{
		"userId":        userID,
		"invoiceId":     invoice.ID,
		"invoiceNumber": invoice.InvoiceNumber,
	}).Info("Invoice created")
	return invoice, nil
}

func (s *invoiceService) Update(ctx context.Context, userID, invoiceID string, in models.InvoiceInput) (*models.Invoice, error) {
	if err := in.Validate(); err != nil {
		return nil, validationFromErr(err)
	}
	invoice, err := s.Get(ctx, userID, invoiceID)
	if err != nil {
		return nil, err
	}
	settings, err := s.settings.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, invoice, in, settings); err != nil {
		return nil, err
	}
	invoice.Touch(s.now().UTC())

	if err := s.invoices.Replace(ctx, invoice); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return invoice, nil
}

func (s *invoiceService) Get(ctx context.Context, userID, invoiceID string) (*models.Invoice, error) {
	invoice, err := s.invoices.FindByID(ctx, invoiceID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error finding invoice %s: %w", invoiceID, err)
	}
	if invoice.UserID != userID {
		return nil, ErrNotFound
	}
	return invoice, nil
}

func (s *invoiceService) List(ctx context.Context, userID string, status models.InvoiceStatus) ([]models.Invoice, error) {
	if status != "" && !status.Valid() {
		return nil, newValidationError("status", "is not a valid invoice status")
	}
	return s.invoices.ListByUser(ctx, userID, status)
}

func (s *invoiceService) Delete(ctx context.Context, userID, invoiceID string) error {
	if _, err := s.Get(ctx, userID, invoiceID); err != nil {
		return err
	}
	if err := s.invoices.Delete(ctx, invoiceID); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *invoiceService) SetStatus(ctx context.Context, userID, invoiceID string, status models.InvoiceStatus) (*models.Invoice, error) {
	if !status.Valid() {
		return nil, newValidationError("status", "is not a valid invoice status")
	}
	invoice, err := s.Get(ctx, userID, invoiceID)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if err := s.invoices.SetStatus(ctx, invoiceID, status, now); err != nil {
		return nil, err
	}
	invoice.Status = status
	invoice.UpdatedAt = now
	switch status {
	case models.InvoiceStatusSent:
		invoice.SentAt = &now
	case models.InvoiceStatusPaid:
		invoice.PaidAt = &now
	}
	return invoice, nil
}

// ArchiveURL returns a short-lived download link for the archived copy of the
// last email sent for the invoice.
func (s *invoiceService) ArchiveURL(ctx context.Context, userID, invoiceID string) (string, error) {
	invoice, err := s.Get(ctx, userID, invoiceID)
	if err != nil {
		return "", err
	}
	if invoice.ArchiveKey == "" {
		return "", fmt.Errorf("%w: invoice %s has no archived email", ErrNotFound, invoiceID)
	}
	return s.archive.PresignGet(ctx, invoice.ArchiveKey, s.cfg.InvoiceArchivePresignTTL)
}

func (s *invoiceService) MarkOverdue(ctx context.Context) (int64, error) {
	n, err := s.invoices.MarkOverdue(ctx, s.now().UTC())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.WithField("count", n).Info("Invoices marked overdue")
	}
	return n, nil
}

// apply copies the input onto the invoice and recomputes its totals.
func (s *invoiceService) apply(ctx context.Context, invoice *models.Invoice, in models.InvoiceInput, settings *models.Settings) error {
	taxRate := settings.DefaultTaxRate
	if in.TaxRate != nil {
		taxRate = *in.TaxRate
	}
	totals, err := invoicecalc.Calculate(calcItems(in.Items), in.Discount, taxRate)
	if err != nil {
		return validationFromErr(err)
	}

	invoice.ClientID = in.ClientID
	invoice.ClientName = strings.TrimSpace(in.ClientName)
	invoice.ClientEmail = strings.TrimSpace(in.ClientEmail)
	invoice.ClientAddress = strings.TrimSpace(in.ClientAddress)
	if in.ClientID != "" {
		client, err := s.clients.Get(ctx, invoice.UserID, in.ClientID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return newValidationError("clientId", "client not found")
			}
			return err
		}
		if invoice.ClientName == "" {
			invoice.ClientName = client.Name
		}
		if invoice.ClientEmail == "" {
			invoice.ClientEmail = client.Email
		}
		if invoice.ClientAddress == "" {
			invoice.ClientAddress = formatAddress(client.Address)
		}
	}

	invoice.Items = make([]models.InvoiceItem, len(in.Items))
	for i, it := range in.Items {
		item := invoicecalc.Item{Quantity: it.Quantity, UnitPrice: it.UnitPrice}
		invoice.Items[i] = models.InvoiceItem{
			Description: strings.TrimSpace(it.Description),
			Quantity:    invoicecalc.Normalize(it.Quantity),
			UnitPrice:   invoicecalc.Normalize(it.UnitPrice),
			Amount:      item.Amount(),
		}
	}
	totals = totals.Stored()
	invoice.TaxRate = invoicecalc.Normalize(taxRate)
	invoice.Discount = invoicecalc.Normalize(in.Discount)
	invoice.Subtotal = totals.Subtotal
	invoice.DiscountAmount = totals.DiscountAmount
	invoice.TaxAmount = totals.TaxAmount
	invoice.Total = totals.Total

	invoice.Currency = strings.ToUpper(in.Currency)
	if invoice.Currency == "" {
		invoice.Currency = settings.Currency
	}
	invoice.Notes = in.Notes
	if in.Status != "" {
		invoice.Status = in.Status
	}

	if in.IssueDate != nil {
		invoice.IssueDate = in.IssueDate.UTC()
	} else if invoice.IssueDate.IsZero() {
		invoice.IssueDate = s.now().UTC().Truncate(24 * time.Hour)
	}
	if in.DueDate != nil {
		invoice.DueDate = in.DueDate.UTC()
	} else if invoice.DueDate.IsZero() {
		invoice.DueDate = invoice.IssueDate.AddDate(0, 0, settings.DefaultPaymentTermsDays)
	}
	if invoice.DueDate.Before(invoice.IssueDate) {
		return newValidationError("dueDate", "must not be before the issue date")
	}
	return nil
}

func calcItems(items []models.InvoiceItemInput) []invoicecalc.Item {
	out := make([]invoicecalc.Item, len(items))
	for i, it := range items {
		out[i] = invoicecalc.Item{Quantity: it.Quantity, UnitPrice: it.UnitPrice}
	}
	return out
}

func formatAddress(a models.Address) string {
	var parts []string
	for _, p := range []string{a.Street, a.City, a.State, a.PostalCode, a.Country} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
