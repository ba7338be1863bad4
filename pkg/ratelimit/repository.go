package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// AttemptType distinguishes ledger rows by the action attempted.
type AttemptType string

const (
	AttemptTypeSendOTP   AttemptType = "send_otp"
	AttemptTypeVerifyOTP AttemptType = "verify_otp"
)

// ErrNoAttempts is returned when a lookup finds no matching ledger rows
var ErrNoAttempts = errors.New("no matching attempts")

// Attempt is one append-only ledger row. Rows are never mutated; they only
// age out of the sliding windows and are eventually removed by retention
// cleanup.
type Attempt struct {
	ID          uuid.UUID
	UserID      uuid.NullUUID // absent for pre-account-lookup attempts keyed by email
	Email       string
	IPAddress   string
	AttemptType AttemptType
	Success     bool
	AttemptedAt time.Time
}

// Identity is the subject a limiter decision is keyed by: a user ID when
// the account is known, otherwise an email address.
type Identity struct {
	UserID uuid.NullUUID
	Email  string
}

// UserIdentity builds an Identity from a known user ID
func UserIdentity(userID uuid.UUID) Identity {
	return Identity{UserID: uuid.NullUUID{UUID: userID, Valid: true}}
}

// EmailIdentity builds an Identity for a pre-account-lookup attempt
func EmailIdentity(email string) Identity {
	return Identity{Email: email}
}

// RecordAttemptParams represents parameters for appending a ledger row.
// A zero AttemptedAt means "now".
type RecordAttemptParams struct {
	UserID      uuid.NullUUID
	Email       string
	IPAddress   string
	AttemptType AttemptType
	Success     bool
	AttemptedAt time.Time
}

// CountByIdentityParams represents parameters for windowed identity counts.
// Rows strictly after Since are counted.
type CountByIdentityParams struct {
	Identity    Identity
	AttemptType AttemptType
	Since       time.Time
}

// AttemptRepository defines the interface for attempt ledger operations
type AttemptRepository interface {
	RecordAttempt(ctx context.Context, params RecordAttemptParams) (uuid.UUID, error)
	CountByIdentity(ctx context.Context, params CountByIdentityParams) (int64, error)
	CountByIP(ctx context.Context, ip string, since time.Time) (int64, error)
	CountByIPAndType(ctx context.Context, ip string, attemptType AttemptType, since time.Time) (int64, error)
	CountFailedByUser(ctx context.Context, userID uuid.UUID, since time.Time) (int64, error)
	OldestByIdentity(ctx context.Context, params CountByIdentityParams) (Attempt, error)
	LatestFailedByUser(ctx context.Context, userID uuid.UUID, since time.Time) (Attempt, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// matchesIdentity reports whether a ledger row belongs to the identity.
// A known user ID takes precedence; email matching only applies to
// pre-account-lookup identities.
func matchesIdentity(a Attempt, identity Identity) bool {
	if identity.UserID.Valid {
		return a.UserID.Valid && a.UserID.UUID == identity.UserID.UUID
	}
	return identity.Email != "" && a.Email == identity.Email
}
