// Package validator registers the auth-specific validation rules.
package validator

import (
	"unicode"

	"crm_backend/internal/access"
	platformvalidator "crm_backend/platform/validator"

	govalidator "github.com/go-playground/validator/v10"
)

// PasswordPolicy describes the password requirements for API error messages.
const PasswordPolicy = "Password must contain at least one uppercase letter, one lowercase letter, and one number"

// Register adds the "role" and "passwordmix" tags to val.
func Register(val *platformvalidator.Validator) error {
	if err := val.RegisterValidation("role", validateRole); err != nil {
		return err
	}
	return val.RegisterValidation("passwordmix", validatePasswordMix)
}

func validateRole(fl govalidator.FieldLevel) bool {
	_, ok := access.ParseRole(fl.Field().String())
	return ok
}

// validatePasswordMix requires at least one uppercase letter, one lowercase
// letter and one digit. Length is enforced by the service from config.
func validatePasswordMix(fl govalidator.FieldLevel) bool {
	var hasUpper, hasLower, hasDigit bool
	for _, char := range fl.Field().String() {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsDigit(char):
			hasDigit = true
		}
	}
	return hasUpper && hasLower && hasDigit
}
