// Package validation holds input rules shared by handlers and services.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	minPasswordLen = 12
	maxPasswordLen = 128
	maxEmailLen    = 254
	maxLocalLen    = 64
)

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]{1,28}[a-zA-Z0-9]$`)

var domainLabelRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]*[a-zA-Z0-9])?$`)

// ValidatePassword enforces length and character class rules.
func ValidatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	if n < minPasswordLen || n > maxPasswordLen {
		return fmt.Errorf("password must be between %d and %d characters", minPasswordLen, maxPasswordLen)
	}

	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			special = true
		}
	}
	if !upper || !lower || !digit || !special {
		return errors.New("password must contain an uppercase letter, a lowercase letter, a digit and a special character")
	}
	return nil
}

// ValidateUsername allows 3-30 letters, digits, underscores and hyphens,
// starting and ending with a letter or digit.
func ValidateUsername(username string) error {
	if !usernameRegex.MatchString(username) {
		return errors.New("username must be 3-30 characters of letters, numbers, underscores or hyphens, starting and ending with a letter or number")
	}
	return nil
}

// ValidateEmail checks the overall shape of an address.
func ValidateEmail(email string) error {
	if len(email) > maxEmailLen {
		return fmt.Errorf("email must be at most %d characters", maxEmailLen)
	}
	if strings.Count(email, "@") != 1 || strings.IndexFunc(email, unicode.IsSpace) >= 0 {
		return errors.New("invalid email format")
	}
	local, domain, _ := strings.Cut(email, "@")
	if local == "" || len(local) > maxLocalLen {
		return errors.New("invalid email format")
	}
	labels := strings.Split(domain, ".")
	if len(labels) < 2 {
		return errors.New("invalid email domain")
	}
	for _, label := range labels {
		if !domainLabelRegex.MatchString(label) {
			return errors.New("invalid email domain")
		}
	}
	return nil
}
