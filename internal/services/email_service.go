package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"

	"simplyinvoicing/api/internal/config"
	"simplyinvoicing/api/internal/email"
	"simplyinvoicing/api/internal/metrics"
	"simplyinvoicing/api/internal/models"
	"simplyinvoicing/api/internal/repository"
	"simplyinvoicing/api/internal/storage"
)

const (
	emailKindInvoice = "invoice"
	emailKindWelcome = "welcome"

	defaultEmailLogLimit = 100
)

// SendInvoiceEmailResult reports a successful invoice send.
type SendInvoiceEmailResult struct {
	MessageID     string `json:"messageId"`
	Recipient     string `json:"recipient"`
	StatusUpdated bool   `json:"statusUpdated"`
}

// SendError is a failed send. Message is safe to show to the user.
type SendError struct {
	Message string
	Err     error
}

func (e *SendError) Error() string { return e.Message }

func (e *SendError) Unwrap() error { return e.Err }

// IEmailService sends transactional email and keeps the invoice email log.
type IEmailService interface {
	// SendInvoiceEmail emails the invoice to its client and marks it sent.
	SendInvoiceEmail(ctx context.Context, userID, invoiceID string) (*SendInvoiceEmailResult, error)
	ListEmailLogs(ctx context.Context, userID, invoiceID string) ([]models.EmailLog, error)
	// ArchiveInvoiceEmail stores the rendered HTML of a sent invoice email.
	ArchiveInvoiceEmail(ctx context.Context, invoiceID, messageID string) error
	SendWelcomeEmail(ctx context.Context, userID string) error
}

type emailService struct {
	invoices  repository.IInvoiceRepository
	users     repository.IUserRepository
	logs      repository.IEmailLogRepository
	templates IEmailTemplateService
	sender    email.Sender
	archive   storage.IS3Storage
	queue     ITaskQueue
	metrics   *metrics.Metrics
	cfg       *config.Config
	now       Clock
}

// EmailServiceDeps groups the collaborators of the email service.
type EmailServiceDeps struct {
	Invoices  repository.IInvoiceRepository
	Users     repository.IUserRepository
	Logs      repository.IEmailLogRepository
	Templates IEmailTemplateService
	Sender    email.Sender
	Archive   storage.IS3Storage
	Queue     ITaskQueue
	Metrics   *metrics.Metrics
	Config    *config.Config
	Now       Clock
}

// NewEmailService creates an email service. Queue, Metrics and Now are optional.
func NewEmailService(deps EmailServiceDeps) IEmailService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &emailService{
		invoices:  deps.Invoices,
		users:     deps.Users,
		logs:      deps.Logs,
		templates: deps.Templates,
		sender:    deps.Sender,
		archive:   deps.Archive,
		queue:     deps.Queue,
		metrics:   deps.Metrics,
		cfg:       deps.Config,
		now:       now,
	}
}

type invoiceEmailData struct {
	Invoice        *models.Invoice
	CompanyName    string
	CompanyAddress string
	CompanyPhone   string
}

func (s *emailService) SendInvoiceEmail(ctx context.Context, userID, invoiceID string) (*SendInvoiceEmailResult, error) {
	invoice, err := s.ownedInvoice(ctx, userID, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice.ClientEmail == "" {
		return nil, newValidationError("clientEmail", "the invoice has no client email address")
	}

	rendered, err := s.renderInvoice(ctx, invoice)
	if err != nil {
		return nil, err
	}

	logger := log.WithFields(log.Fields{"userId": userID, "invoiceId": invoiceID, "to": invoice.ClientEmail})
	messageID, sendErr := s.sender.Send(ctx, &email.Message{
		To:      []string{invoice.ClientEmail},
		Subject: rendered.Subject,
		HTML:    rendered.HTML,
		Text:    rendered.Text,
		Kind:    emailKindInvoice,
	})

	entry := &models.EmailLog{
		InvoiceID: invoiceID,
		UserID:    userID,
		Recipient: invoice.ClientEmail,
		Subject:   rendered.Subject,
		CreatedAt: s.now().UTC(),
	}
	if sendErr != nil {
		entry.Status = models.EmailLogStatusFailed
		entry.Error = sendErr.Error()
	} else {
		entry.Status = models.EmailLogStatusSent
		entry.MessageID = messageID
	}
	if err := s.logs.Insert(ctx, entry); err != nil {
		logger.WithError(err).Error("Failed to write email log")
	}

	if sendErr != nil {
		s.countEmail(emailKindInvoice, metrics.OutcomeError)
		logger.WithError(sendErr).Error("Failed to send invoice email")
		return nil, &SendError{Message: email.UserMessage(sendErr), Err: sendErr}
	}
	s.countEmail(emailKindInvoice, metrics.OutcomeOK)

	result := &SendInvoiceEmailResult{MessageID: messageID, Recipient: invoice.ClientEmail}
	if invoice.Status.CanMarkSent() {
		if err := s.invoices.SetStatus(ctx, invoiceID, models.InvoiceStatusSent, s.now().UTC()); err != nil {
			logger.WithError(err).Error("Invoice email sent but status update failed")
		} else {
			result.StatusUpdated = true
		}
	}

	if s.queue != nil {
		if err := s.queue.EnqueueInvoiceArchive(ctx, invoiceID, messageID); err != nil {
			logger.WithError(err).Warn("Failed to enqueue invoice archive")
		}
	}
	logger.WithField("messageId", messageID).Info("Invoice email sent")
	return result, nil
}

func (s *emailService) ListEmailLogs(ctx context.Context, userID, invoiceID string) ([]models.EmailLog, error) {
	if invoiceID != "" {
		if _, err := s.ownedInvoice(ctx, userID, invoiceID); err != nil {
			return nil, err
		}
	}
	return s.logs.ListByUser(ctx, userID, invoiceID, defaultEmailLogLimit)
}

func (s *emailService) ArchiveInvoiceEmail(ctx context.Context, invoiceID, messageID string) error {
	invoice, err := s.invoices.FindByID(ctx, invoiceID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrNotFound
		}
		return err
	}
	rendered, err := s.renderInvoice(ctx, invoice)
	if err != nil {
		return err
	}
	key := storage.InvoiceArchiveKey(invoice.UserID, invoice.ID, messageID)
	if err := s.archive.PutInvoiceArchive(ctx, key, []byte(rendered.HTML), "text/html; charset=utf-8"); err != nil {
		return err
	}
	return s.invoices.SetArchiveKey(ctx, invoice.ID, key)
}

func (s *emailService) SendWelcomeEmail(ctx context.Context, userID string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrNotFound
		}
		return err
	}
	tmpl, err := s.templates.GetTemplate(ctx, TemplateWelcome, "")
	if err != nil {
		return err
	}
	name := user.DisplayName
	if name == "" {
		name = user.Email
	}
	rendered, err := email.Render(tmpl, map[string]string{"DisplayName": name, "AppURL": s.cfg.AppURL})
	if err != nil {
		return err
	}
	_, err = s.sender.Send(ctx, &email.Message{
		To:      []string{user.Email},
		Subject: rendered.Subject,
		HTML:    rendered.HTML,
		Text:    rendered.Text,
		Kind:    emailKindWelcome,
	})
	if err != nil {
		s.countEmail(emailKindWelcome, metrics.OutcomeError)
		return err
	}
	s.countEmail(emailKindWelcome, metrics.OutcomeOK)
	return nil
}

func (s *emailService) ownedInvoice(ctx context.Context, userID, invoiceID string) (*models.Invoice, error) {
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

func (s *emailService) renderInvoice(ctx context.Context, invoice *models.Invoice) (*email.Rendered, error) {
	data := invoiceEmailData{Invoice: invoice}
	user, err := s.users.FindByID(ctx, invoice.UserID)
	switch {
	case err == nil:
		data.CompanyName = user.CompanyName
		if data.CompanyName == "" {
			data.CompanyName = user.DisplayName
		}
		data.CompanyAddress = user.CompanyAddress
		data.CompanyPhone = user.CompanyPhone
	case errors.Is(err, mongo.ErrNoDocuments):
	default:
		return nil, fmt.Errorf("error finding user %s: %w", invoice.UserID, err)
	}

	tmpl, err := s.templates.GetTemplate(ctx, TemplateInvoice, "")
	if err != nil {
		return nil, err
	}
	return email.Render(tmpl, data)
}

func (s *emailService) countEmail(kind, outcome string) {
	if s.metrics != nil {
		s.metrics.EmailsTotal.WithLabelValues(kind, outcome).Inc()
	}
}
