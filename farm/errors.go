package farm

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingField is returned when a required input is empty.
	ErrMissingField = errors.New("required field is empty")
	// ErrDuplicateEmail is returned when registering an email that already exists.
	ErrDuplicateEmail = errors.New("an account with this email already exists")
	// ErrInvalidCredentials covers both an unknown email and a wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrNoSession is returned when no account is signed in.
	ErrNoSession = errors.New("no active session")
	// ErrListingNotFound is returned for an unknown listing id.
	ErrListingNotFound = errors.New("listing not found")
	// ErrListingUnavailable is returned when booking a listing that is not available.
	ErrListingUnavailable = errors.New("listing is not available")
)

// RedirectError tells the caller to navigate to Target instead of continuing.
type RedirectError struct {
	Target string
}

func (e *RedirectError) Error() string {
	return fmt.Sprintf("sign-in required: redirect to %s", e.Target)
}

// Unwrap lets errors.Is(err, ErrNoSession) match a redirect.
func (e *RedirectError) Unwrap() error { return ErrNoSession }
