package session

import (
	"regexp"
	"strings"

	"github.com/kuitang/notes-client/internal/errs"
)

// MinPasswordLength is the shortest password accepted before calling the API.
const MinPasswordLength = 6

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidateEmail checks the address syntactically.
func ValidateEmail(email string) error {
	if !emailPattern.MatchString(strings.TrimSpace(email)) {
		return errs.New(errs.InvalidArgument, "Please enter a valid email address")
	}
	return nil
}

func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return errs.New(errs.InvalidArgument, "Password must be at least 6 characters")
	}
	return nil
}

// ValidateRegistration runs every check Register performs before the network
// call and returns the first failure.
func ValidateRegistration(name, email, password string) error {
	if strings.TrimSpace(name) == "" {
		return errs.New(errs.InvalidArgument, "Name is required")
	}
	if err := ValidateEmail(email); err != nil {
		return err
	}
	return ValidatePassword(password)
}

// ValidateLogin checks credentials are worth sending.
func ValidateLogin(email, password string) error {
	if err := ValidateEmail(email); err != nil {
		return err
	}
	if password == "" {
		return errs.New(errs.InvalidArgument, "Password is required")
	}
	return nil
}
