package validator

import (
	"github.com/go-playground/validator/v10"
)

// Validator wraps the struct validator together with business rule checks
type Validator struct {
	validate *validator.Validate
	business *BusinessValidator
}

// New creates a validator with all custom rules registered
func New() *Validator {
	business := NewBusinessValidator()
	return &Validator{
		validate: business.validate,
		business: business,
	}
}

// Validate runs struct tag validation and returns typed validation errors
func (v *Validator) Validate(s interface{}) error {
	if err := v.validate.Struct(s); err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// Business exposes the business rule validator
func (v *Validator) Business() *BusinessValidator {
	return v.business
}
