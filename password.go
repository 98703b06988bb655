package shop

import (
	"strings"
	"unicode"

	"github.com/goliatone/go-errors"
)

// MinPasswordLength is the minimum accepted password length
const MinPasswordLength = 8

const (
	passwordClassLength  = "min_length"
	passwordClassUpper   = "uppercase"
	passwordClassLower   = "lowercase"
	passwordClassDigit   = "digit"
	passwordClassSpecial = "special_character"
)

// ValidatePasswordStrength enforces the signup password policy: minimum
// length plus one character from each of the upper, lower, digit and
// special classes. Every failed requirement is reported independently so
// clients can surface them all at once.
func ValidatePasswordStrength(password string) error {
	var missing []string

	if len(password) < MinPasswordLength {
		missing = append(missing, passwordClassLength)
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}

	if !hasUpper {
		missing = append(missing, passwordClassUpper)
	}
	if !hasLower {
		missing = append(missing, passwordClassLower)
	}
	if !hasDigit {
		missing = append(missing, passwordClassDigit)
	}
	if !hasSpecial {
		missing = append(missing, passwordClassSpecial)
	}

	if len(missing) == 0 {
		return nil
	}

	return errors.New(
		"password does not meet strength requirements: "+strings.Join(missing, ", "),
		errors.CategoryValidation,
	).
		WithCode(errors.CodeBadRequest).
		WithTextCode("WEAK_PASSWORD").
		WithMetadata(map[string]any{
			"missing_requirements": missing,
		})
}
