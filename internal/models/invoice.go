package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus is the lifecycle state of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusPending   InvoiceStatus = "pending"
	InvoiceStatusSent      InvoiceStatus = "sent"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusOverdue   InvoiceStatus = "overdue"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusPending, InvoiceStatusSent,
		InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusCancelled:
		return true
	}
	return false
}

// CanMarkSent reports whether sending the invoice by email moves it to sent.
// Paid and cancelled invoices keep their status.
func (s InvoiceStatus) CanMarkSent() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusPending, InvoiceStatusOverdue:
		return true
	}
	return false
}

// InvoiceItem is a single line of an invoice. Amount is derived on save.
type InvoiceItem struct {
	Description string          `bson:"description" json:"description"`
	Quantity    decimal.Decimal `bson:"quantity" json:"quantity"`
	UnitPrice   decimal.Decimal `bson:"unitPrice" json:"unitPrice"`
	Amount      decimal.Decimal `bson:"amount" json:"amount"`
}

// Invoice is a bill issued by a user to one of their clients.
// The computed totals are persisted at save time and not re-derived on read.
type Invoice struct {
	Base           `bson:",inline"`
	UserID         string          `bson:"userId" json:"userId"`
	InvoiceNumber  string          `bson:"invoiceNumber" json:"invoiceNumber"`
	ClientID       string          `bson:"clientId,omitempty" json:"clientId,omitempty"`
	ClientName     string          `bson:"clientName" json:"clientName"`
	ClientEmail    string          `bson:"clientEmail" json:"clientEmail"`
	ClientAddress  string          `bson:"clientAddress" json:"clientAddress"`
	Items          []InvoiceItem   `bson:"items" json:"items"`
	TaxRate        decimal.Decimal `bson:"taxRate" json:"taxRate"`   // percent
	Discount       decimal.Decimal `bson:"discount" json:"discount"` // percent
	Currency       string          `bson:"currency" json:"currency"`
	Notes          string          `bson:"notes" json:"notes"`
	Status         InvoiceStatus   `bson:"status" json:"status"`
	IssueDate      time.Time       `bson:"issueDate" json:"issueDate"`
	DueDate        time.Time       `bson:"dueDate" json:"dueDate"`
	Subtotal       decimal.Decimal `bson:"subtotal" json:"subtotal"`
	DiscountAmount decimal.Decimal `bson:"discountAmount" json:"discountAmount"`
	TaxAmount      decimal.Decimal `bson:"taxAmount" json:"taxAmount"`
	Total          decimal.Decimal `bson:"total" json:"total"`
	SentAt         *time.Time      `bson:"sentAt,omitempty" json:"sentAt,omitempty"`
	PaidAt         *time.Time      `bson:"paidAt,omitempty" json:"paidAt,omitempty"`
	ArchiveKey     string          `bson:"archiveKey,omitempty" json:"archiveKey,omitempty"`
	Timestamps     `bson:",inline"`
}

// InvoiceItemInput is a line item as submitted by the caller.
type InvoiceItemInput struct {
	Description string          `json:"description" validate:"required,max=500"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
}

// InvoiceInput carries the editable fields of an invoice.
// Zero values for optional fields are filled from the user's settings.
type InvoiceInput struct {
	ClientID      string             `json:"clientId"`
	ClientName    string             `json:"clientName" validate:"required_without=ClientID,max=200"`
	ClientEmail   string             `json:"clientEmail" validate:"omitempty,email"`
	ClientAddress string             `json:"clientAddress" validate:"max=1000"`
	Items         []InvoiceItemInput `json:"items" validate:"required,min=1,max=500,dive"`
	TaxRate       *decimal.Decimal   `json:"taxRate"`
	Discount      decimal.Decimal    `json:"discount"`
	Currency      string             `json:"currency" validate:"omitempty,len=3,alpha"`
	Notes         string             `json:"notes" validate:"max=5000"`
	Status        InvoiceStatus      `json:"status" validate:"omitempty,oneof=draft pending sent paid overdue cancelled"`
	IssueDate     *time.Time         `json:"issueDate"`
	DueDate       *time.Time         `json:"dueDate"`
}
