package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Settings holds per-user invoicing defaults. ID is the user id.
type Settings struct {
	ID                      string          `bson:"_id" json:"userId"`
	Currency                string          `bson:"currency" json:"currency"`
	DefaultTaxRate          decimal.Decimal `bson:"defaultTaxRate" json:"defaultTaxRate"`
	DefaultPaymentTermsDays int             `bson:"defaultPaymentTermsDays" json:"defaultPaymentTermsDays"`
	InvoicePrefix           string          `bson:"invoicePrefix" json:"invoicePrefix"`
	NextInvoiceNumber       int64           `bson:"nextInvoiceNumber" json:"nextInvoiceNumber"`
	UpdatedAt               time.Time       `bson:"updatedAt" json:"updatedAt"`
}

// SettingsInput carries the editable fields of the settings document.
type SettingsInput struct {
	Currency                string          `json:"currency" validate:"omitempty,len=3,alpha"`
	DefaultTaxRate          decimal.Decimal `json:"defaultTaxRate"`
	DefaultPaymentTermsDays int             `json:"defaultPaymentTermsDays" validate:"gte=0,lte=365"`
	InvoicePrefix           string          `json:"invoicePrefix" validate:"omitempty,max=10,alphanum"`
}
