package twofactor

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUserNotFound is returned when the user cannot be loaded
	ErrUserNotFound = errors.New("user not found")

	// ErrAlreadyEnabled is returned when setup is attempted on an account
	// that already has two-factor auth turned on
	ErrAlreadyEnabled = errors.New("two-factor authentication already enabled")

	// ErrNotEnabled is returned when an operation requires two-factor auth
	// to be enabled and it is not
	ErrNotEnabled = errors.New("two-factor authentication not enabled")

	// ErrInvalidPassword is returned when the current-password check fails
	ErrInvalidPassword = errors.New("invalid password")

	// ErrPasscodeRequired is returned when an operation on an enabled
	// account is attempted without the confirming passcode
	ErrPasscodeRequired = errors.New("passcode required")

	// ErrPasscodeInvalid is returned when a presented passcode or backup
	// code does not verify
	ErrPasscodeInvalid = errors.New("invalid or expired passcode")

	// ErrRateLimited is returned when the attempt ledger refuses the
	// operation. A RateLimitError wrapping it carries the wait when known.
	ErrRateLimited = errors.New("too many attempts")
)

// RateLimitError wraps ErrRateLimited with the remaining cooldown so
// callers can surface a Retry-After to the client. A zero RetryAfter means
// the wait is unknown.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("too many attempts, retry after %s", e.RetryAfter.Round(time.Second))
	}
	return ErrRateLimited.Error()
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }
