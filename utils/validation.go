package utils

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/almanac/almanacbackend/apperrors"
	"golang.org/x/text/unicode/norm"
)

const (
	MinPasswordLength = 6
	// MaxPasswordBytes is the longest input bcrypt accepts.
	MaxPasswordBytes = 72
	MinNameLength     = 2
)

var (
	emailPattern   = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	upperPattern   = regexp.MustCompile(`[A-Z]`)
	lowerPattern   = regexp.MustCompile(`[a-z]`)
	digitPattern   = regexp.MustCompile(`\d`)
	specialPattern = regexp.MustCompile(`[!@#$%^&*()_+\-=\[\]{};':"\\|,.<>/?]`)
)

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func IsValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// NormalizeName trims and NFC-normalises a display name so that visually
// identical names compare equal.
func NormalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

func ValidateName(name string) error {
	if utf8.RuneCountInString(NormalizeName(name)) < MinNameLength {
		return apperrors.Validation("Name must be at least 2 characters long")
	}
	return nil
}

func ValidateEmail(email string) error {
	if !IsValidEmail(NormalizeEmail(email)) {
		return apperrors.Validation("Please provide a valid email address")
	}
	return nil
}

// ValidatePasswordLength is the length check applied on password resets.
func ValidatePasswordLength(password string) error {
	if len(password) < MinPasswordLength {
		return apperrors.Validation("Password must be at least 6 characters long")
	}
	if len(password) > MaxPasswordBytes {
		return apperrors.Validation("Password must be at most 72 bytes")
	}
	return nil
}

// ValidatePassword enforces the full registration policy: minimum length and
// at least one upper, lower, digit and special character.
func ValidatePassword(password string) error {
	if err := ValidatePasswordLength(password); err != nil {
		return err
	}
	if !upperPattern.MatchString(password) ||
		!lowerPattern.MatchString(password) ||
		!digitPattern.MatchString(password) ||
		!specialPattern.MatchString(password) {
		return apperrors.Validation("Password must contain at least one uppercase letter, one lowercase letter, one number and one special character")
	}
	return nil
}
