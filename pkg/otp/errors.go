package otp

import "errors"

var (
	// ErrCodeInvalid covers every verification failure a caller may see:
	// wrong code, expired code, already-used code, attempt-capped code, or
	// no code outstanding. Callers must not be able to distinguish these.
	ErrCodeInvalid = errors.New("invalid or expired passcode")

	// ErrDeliveryFailed is returned when a freshly generated passcode could
	// not be dispatched. The code is removed before this is returned.
	ErrDeliveryFailed = errors.New("failed to deliver passcode")

	// ErrInvalidPurpose is returned for a purpose outside the known set
	ErrInvalidPurpose = errors.New("invalid passcode purpose")

	// ErrCodeNotFound is a repository-level sentinel for a missing row
	ErrCodeNotFound = errors.New("passcode not found")
)
