package payments

import (
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v76"
)

// Event types handled by the webhook dispatcher.
const (
	EventCheckoutSessionCompleted    = "checkout.session.completed"
	EventCustomerSubscriptionUpdated = "customer.subscription.updated"
	EventCustomerSubscriptionDeleted = "customer.subscription.deleted"
	EventInvoicePaymentSucceeded     = "invoice.payment_succeeded"
	EventInvoicePaymentFailed        = "invoice.payment_failed"
)

// Event is a verified webhook event.
type Event struct {
	ID   string
	Type string
	raw  stripe.Event
}

func newEvent(evt stripe.Event) *Event {
	return &Event{ID: evt.ID, Type: string(evt.Type), raw: evt}
}

// NewEvent builds an event from an already verified object payload.
func NewEvent(id, eventType string, object json.RawMessage) *Event {
	return newEvent(stripe.Event{
		ID:   id,
		Type: stripe.EventType(eventType),
		Data: &stripe.EventData{Raw: object},
	})
}

// CompletedCheckout is the data of a checkout.session.completed event.
type CompletedCheckout struct {
	SessionID         string
	CustomerID        string
	SubscriptionID    string
	ClientReferenceID string
	CustomerEmail     string
	Metadata          map[string]string
}

// CheckoutSession decodes the event object as a checkout session.
func (e *Event) CheckoutSession() (*CompletedCheckout, error) {
	var sess stripe.CheckoutSession
	if err := e.decode(&sess); err != nil {
		return nil, err
	}
	out := &CompletedCheckout{
		SessionID:         sess.ID,
		ClientReferenceID: sess.ClientReferenceID,
		CustomerEmail:     sess.CustomerEmail,
		Metadata:          sess.Metadata,
	}
	if sess.Customer != nil {
		out.CustomerID = sess.Customer.ID
	}
	if sess.Subscription != nil {
		out.SubscriptionID = sess.Subscription.ID
	}
	return out, nil
}

// Subscription decodes the event object as a subscription.
func (e *Event) Subscription() (*Subscription, error) {
	var sub stripe.Subscription
	if err := e.decode(&sub); err != nil {
		return nil, err
	}
	return fromStripeSubscription(&sub), nil
}

// InvoiceRef returns the invoice id and customer id of an invoice event.
func (e *Event) InvoiceRef() (invoiceID, customerID string, err error) {
	var inv stripe.Invoice
	if err := e.decode(&inv); err != nil {
		return "", "", err
	}
	if inv.Customer != nil {
		customerID = inv.Customer.ID
	}
	return inv.ID, customerID, nil
}

func (e *Event) decode(target interface{}) error {
	if e.raw.Data == nil {
		return fmt.Errorf("event %s has no data", e.ID)
	}
	if err := decodeObject(e.raw.Data.Raw, target); err != nil {
		return fmt.Errorf("failed to decode %s event %s: %w", e.Type, e.ID, err)
	}
	return nil
}
