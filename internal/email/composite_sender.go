package email

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
)

// CompositeEmailSender implements the Sender interface and delegates sending to multiple Senders.
type CompositeEmailSender struct {
	senders []Sender
}

// NewCompositeEmailSender creates a new CompositeEmailSender.
// It returns the concrete type *CompositeEmailSender to allow AddSender to be called directly.
func NewCompositeEmailSender(senders ...Sender) *CompositeEmailSender {
	return &CompositeEmailSender{senders: senders}
}

// AddSender adds a sender to the composite sender's list.
func (cs *CompositeEmailSender) AddSender(sender Sender) {
	if sender != nil {
		cs.senders = append(cs.senders, sender)
	}
}

// Send calls every registered sender. The Message-ID of the first sender
// that succeeds is returned; failures of the others are only logged. An
// error is returned when no sender succeeds. If only one sender is
// registered its error is returned unchanged so callers can still
// categorise it.
func (cs *CompositeEmailSender) Send(ctx context.Context, msg *Message) (string, error) {
	if len(cs.senders) == 0 {
		return "", fmt.Errorf("no senders configured in CompositeEmailSender")
	}
	if len(cs.senders) == 1 {
		return cs.senders[0].Send(ctx, msg)
	}

	var messageID string
	var sent bool
	var firstErr error
	var allErrors []string
	for i, sender := range cs.senders {
		id, err := sender.Send(ctx, msg)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			allErrors = append(allErrors, err.Error())
			log.WithError(err).WithField("sender", i).Warn("Email sender failed")
			continue
		}
		if !sent {
			messageID = id
			sent = true
		}
	}

	if !sent {
		return "", fmt.Errorf("composite email send failed: [ %s ]: %w", strings.Join(allErrors, "; "), firstErr)
	}
	return messageID, nil
}
