package services

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"simplyinvoicing/api/internal/models"
	"simplyinvoicing/api/internal/repository"
)

const (
	TemplateWelcome = "welcome"
	TemplateInvoice = "invoice"

	defaultLocale = "en-US"
)

// Default email templates used as fallback when not found in database
var defaultEmailTemplates = map[string]models.EmailTemplate{
	TemplateWelcome: {
		TemplateID: TemplateWelcome,
		Locale:     defaultLocale,
		Subject:    "Welcome to Simply Invoicing",
		Text: `Hi {{.DisplayName}},

Your Simply Invoicing account is ready. Sign in at {{.AppURL}} to create your first invoice.
`,
		HTML: `<p>Hi {{.DisplayName}},</p>
<p>Your Simply Invoicing account is ready. <a href="{{.AppURL}}">Sign in</a> to create your first invoice.</p>`,
	},
	TemplateInvoice: {
		TemplateID: TemplateInvoice,
		Locale:     defaultLocale,
		Subject:    "Invoice {{.Invoice.InvoiceNumber}} from {{.CompanyName}}",
		Text: `Hello {{.Invoice.ClientName}},

Please find invoice {{.Invoice.InvoiceNumber}} from {{.CompanyName}} below.

{{range .Invoice.Items}}{{.Description}}: {{.Quantity}} x {{money .UnitPrice}} = {{money .Amount}}
{{end}}
Subtotal: {{money .Invoice.Subtotal}} {{.Invoice.Currency}}
Discount: {{money .Invoice.DiscountAmount}} {{.Invoice.Currency}}
Tax: {{money .Invoice.TaxAmount}} {{.Invoice.Currency}}
Total: {{money .Invoice.Total}} {{.Invoice.Currency}}
Due: {{date .Invoice.DueDate}}
{{if .Invoice.Notes}}
{{.Invoice.Notes}}
{{end}}
{{.CompanyName}}
{{.CompanyAddress}}
{{.CompanyPhone}}
`,
		HTML: `<h2>Invoice {{.Invoice.InvoiceNumber}}</h2>
<p>Hello {{.Invoice.ClientName}},</p>
<p>Please find invoice {{.Invoice.InvoiceNumber}} from {{.CompanyName}} below.</p>
<table>
<tr><th>Description</th><th>Qty</th><th>Unit price</th><th>Amount</th></tr>
{{range .Invoice.Items}}<tr><td>{{.Description}}</td><td>{{.Quantity}}</td><td>{{money .UnitPrice}}</td><td>{{money .Amount}}</td></tr>
{{end}}</table>
<p>Subtotal: {{money .Invoice.Subtotal}} {{.Invoice.Currency}}<br>
Discount: {{money .Invoice.DiscountAmount}} {{.Invoice.Currency}}<br>
Tax: {{money .Invoice.TaxAmount}} {{.Invoice.Currency}}<br>
<strong>Total: {{money .Invoice.Total}} {{.Invoice.Currency}}</strong><br>
Due: {{date .Invoice.DueDate}}</p>
{{if .Invoice.Notes}}<p>{{.Invoice.Notes}}</p>{{end}}
<p>{{.CompanyName}}<br>{{.CompanyAddress}}<br>{{.CompanyPhone}}</p>`,
	},
}

// IEmailTemplateService defines the interface for email template operations.
type IEmailTemplateService interface {
	GetTemplate(ctx context.Context, templateID, locale string) (*models.EmailTemplate, error)
}

type emailTemplateService struct {
	repo repository.IEmailTemplateRepository
}

// NewEmailTemplateService creates a template service backed by database overrides.
func NewEmailTemplateService(repo repository.IEmailTemplateRepository) IEmailTemplateService {
	return &emailTemplateService{repo: repo}
}

// GetTemplate retrieves an email template by ID and locale, falling back to
// the built-in default when the database has no override.
func (s *emailTemplateService) GetTemplate(ctx context.Context, templateID, locale string) (*models.EmailTemplate, error) {
	if locale == "" {
		locale = defaultLocale
	}
	template, err := s.repo.Find(ctx, templateID, locale)
	if err == nil {
		return template, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("error retrieving template: %w", err)
	}
	if defaultTemplate, ok := defaultEmailTemplates[templateID]; ok {
		return &defaultTemplate, nil
	}
	return nil, fmt.Errorf("template not found: %s (locale: %s)", templateID, locale)
}
