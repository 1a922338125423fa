// Package validation holds input rules for account fields.
package validation

import (
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
)

const (
	// MaxPasswordBytes is bcrypt's input limit.
	MaxPasswordBytes = 72
	maxEmailLength   = 254
)

var (
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,30}$`)
	contactRegex  = regexp.MustCompile(`^\+?[0-9][0-9 ()-]{2,19}$`)
)

// ValidateUsername checks length, charset and that the name does not start
// or end with a separator.
func ValidateUsername(username string) error {
	if !usernameRegex.MatchString(username) {
		return errors.New("username must be 3-30 characters and contain only letters, numbers, underscores and hyphens")
	}
	if strings.ContainsAny(username[:1], "_-") || strings.ContainsAny(username[len(username)-1:], "_-") {
		return errors.New("username cannot start or end with an underscore or hyphen")
	}
	return nil
}

// ValidateEmail checks the address is a bare RFC 5322 address.
func ValidateEmail(email string) error {
	if len(email) > maxEmailLength {
		return fmt.Errorf("email must be at most %d characters", maxEmailLength)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return errors.New("email address is invalid")
	}
	at := strings.LastIndex(email, "@")
	domain := email[at+1:]
	if !strings.Contains(domain, ".") || strings.HasSuffix(domain, ".") {
		return errors.New("email address is invalid")
	}
	return nil
}

// ValidateContact accepts an empty value or a phone-like number.
func ValidateContact(contact string) error {
	if contact == "" {
		return nil
	}
	if !contactRegex.MatchString(contact) {
		return errors.New("contact must be a phone number")
	}
	return nil
}

// ValidatePassword only enforces presence and bcrypt's byte limit.
func ValidatePassword(password string) error {
	if password == "" {
		return errors.New("password is required")
	}
	if len(password) > MaxPasswordBytes {
		return fmt.Errorf("password must be at most %d bytes", MaxPasswordBytes)
	}
	return nil
}
