package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"simplyinvoicing/api/internal/invoicecalc"
)

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("permission denied")
	ErrNotFound        = errors.New("not found")
	ErrQuotaExceeded   = errors.New("plan limit reached")
	ErrNoCustomer      = errors.New("no billing account found for this user")
	// ErrEmailExists is returned when an attempt is made to use an email that already exists.
	ErrEmailExists        = errors.New("email already in use by another account")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// QuotaError is a plan limit refusal. Its message is shown to the user as is.
type QuotaError struct {
	Reason string
}

func (e *QuotaError) Error() string { return e.Reason }

func (e *QuotaError) Is(target error) bool { return target == ErrQuotaExceeded }

func newValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// validationFromErr converts validator and calculator errors into a ValidationError.
// Other errors are returned unchanged.
func validationFromErr(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return newValidationError(fieldName(fe.Namespace()), describeTag(fe))
	}
	switch {
	case errors.Is(err, invoicecalc.ErrRateOutOfRange),
		errors.Is(err, invoicecalc.ErrNegativeQuantity),
		errors.Is(err, invoicecalc.ErrNegativePrice),
		errors.Is(err, invoicecalc.ErrTooManyItems),
		errors.Is(err, invoicecalc.ErrAmountTooLarge),
		errors.Is(err, invoicecalc.ErrTooPrecise):
		return newValidationError("", err.Error())
	}
	return err
}

// fieldName turns "InvoiceInput.Items[0].Description" into "items[0].description".
func fieldName(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToLower(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, ".")
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_without":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "phone":
		return "must be a valid phone number"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " long"
	case "min":
		return "must have at least " + fe.Param() + " entries"
	case "len":
		return "must be exactly " + fe.Param() + " characters"
	default:
		return "is invalid"
	}
}
