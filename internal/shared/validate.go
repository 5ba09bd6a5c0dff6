package shared

import (
	"fmt"
	"regexp"
	"unicode"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidateEmail reports whether email has the local@domain.tld shape.
func ValidateEmail(email string) error {
	if !emailPattern.MatchString(email) {
		return fmt.Errorf("%w: %q is not a valid email address", ErrInvalidInput, email)
	}
	return nil
}

// ValidatePassword requires at least eight ASCII letters or digits, with one lowercase letter, one uppercase letter, and one digit.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", ErrInvalidInput)
	}

	var lower, upper, digit bool
	for _, r := range password {
		switch {
		case r > unicode.MaxASCII:
			return fmt.Errorf("%w: password may only contain letters and digits", ErrInvalidInput)
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		default:
			return fmt.Errorf("%w: password may only contain letters and digits", ErrInvalidInput)
		}
	}

	if !lower || !upper || !digit {
		return fmt.Errorf("%w: password needs a lowercase letter, an uppercase letter and a digit", ErrInvalidInput)
	}
	return nil
}
