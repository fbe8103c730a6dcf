package models

import (
	"regexp"
	"sync"

	"github.com/go-playground/validator/v10"
)

var phoneRegex = regexp.MustCompile(`^\+?[0-9 ()./-]{6,20}$`)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared validator with the custom tags registered.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
			return phoneRegex.MatchString(fl.Field().String())
		})
	})
	return validate
}

// Validate validates the invoice input.
func (in *InvoiceInput) Validate() error {
	return Validator().Struct(in)
}

// Validate validates the client input.
func (in *ClientInput) Validate() error {
	return Validator().Struct(in)
}

// Validate validates the profile input.
func (in *ProfileInput) Validate() error {
	return Validator().Struct(in)
}

// Validate validates the settings input.
func (in *SettingsInput) Validate() error {
	return Validator().Struct(in)
}
