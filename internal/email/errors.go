package email

import (
	"errors"
	"fmt"
	"net/textproto"
)

// Sender error categories.
var (
	ErrAuth            = errors.New("email authentication failed")
	ErrInvalidEnvelope = errors.New("invalid email envelope")
)

// classify wraps an SMTP error with its category sentinel when one applies.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var tpErr *textproto.Error
	if errors.As(err, &tpErr) {
		switch tpErr.Code {
		case 530, 534, 535, 538:
			return fmt.Errorf("%w: %v", ErrAuth, err)
		case 501, 550, 551, 553, 555:
			return fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
		}
	}
	return err
}

// UserMessage translates a send error into a message for display.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAuth):
		return "Email service authentication failed. Please contact support."
	case errors.Is(err, ErrInvalidEnvelope):
		return "The recipient email address was rejected. Please check the client's email."
	default:
		return "Failed to send email. Please try again later."
	}
}
