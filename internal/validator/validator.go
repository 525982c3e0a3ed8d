// Package validator checks operator-supplied account fields.
package validator

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	ErrInvalidEmail    = errors.New("invalid email")
	ErrInvalidUsername = errors.New("invalid username")
	ErrInvalidPassword = errors.New("invalid password")
	ErrInvalidFullName = errors.New("invalid full name")
)

const (
	minPasswordLength = 8
	maxPasswordBytes  = 72 // bcrypt ignores anything longer
	maxFullNameLength = 120
)

var (
	emailRegex    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]{3,30}$`)
)

// NormalizeEmail lowercases and trims, matching how emails are stored.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return ErrInvalidEmail
	}
	return nil
}

func ValidateUsername(username string) error {
	if !usernameRegex.MatchString(username) {
		return ErrInvalidUsername
	}
	return nil
}

func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < minPasswordLength || len(password) > maxPasswordBytes {
		return ErrInvalidPassword
	}
	return nil
}

func ValidateFullName(name string) error {
	if utf8.RuneCountInString(name) > maxFullNameLength || strings.ContainsAny(name, "\n\r\t") {
		return ErrInvalidFullName
	}
	return nil
}

// Account validates every field and reports all failures at once. An empty
// password is allowed: such accounts cannot sign in with a password.
func Account(email, username, fullName, password string) error {
	errs := []error{ValidateEmail(email), ValidateUsername(username), ValidateFullName(fullName)}
	if password != "" {
		errs = append(errs, ValidatePassword(password))
	}
	return errors.Join(errs...)
}
