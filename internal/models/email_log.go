package models

import "time"

// EmailLogStatus is the outcome of a send attempt.
type EmailLogStatus string

const (
	EmailLogStatusSent   EmailLogStatus = "sent"
	EmailLogStatusFailed EmailLogStatus = "failed"
)

// EmailLog is an append-only record of an invoice email send attempt.
type EmailLog struct {
	Base      `bson:",inline"`
	InvoiceID string         `bson:"invoiceId" json:"invoiceId"`
	UserID    string         `bson:"userId" json:"userId"`
	Recipient string         `bson:"recipient" json:"recipient"`
	Subject   string         `bson:"subject" json:"subject"`
	MessageID string         `bson:"messageId,omitempty" json:"messageId,omitempty"`
	Error     string         `bson:"error,omitempty" json:"error,omitempty"`
	Status    EmailLogStatus `bson:"status" json:"status"`
	CreatedAt time.Time      `bson:"createdAt" json:"createdAt"`
}
