package services

import "context"

// ITaskQueue schedules background work. It is implemented by the tasks package.
type ITaskQueue interface {
	EnqueueWelcomeEmail(ctx context.Context, userID string) error
	EnqueueInvoiceArchive(ctx context.Context, invoiceID, messageID string) error
}
