package twofactor

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// User is the projection of an account this package operates on. The host
// application owns the full user model; only the two-factor fields and the
// credentials needed for the current-password check appear here.
type User struct {
	ID                   uuid.UUID
	Email                string
	PasswordHash         string // empty for federated-identity accounts
	TwoFactorEnabled     bool
	BackupCodesRemaining int32
	TwoFactorLastUsed    *time.Time
}

// Federated reports whether the account has no local password.
// Federated accounts skip the current-password check.
func (u User) Federated() bool {
	return u.PasswordHash == ""
}

// UserRepository is implemented by the host application's user store.
// An in-memory implementation ships for tests and the demo server.
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
	SetTwoFactorEnabled(ctx context.Context, id uuid.UUID, enabled bool) error
	SetBackupCodesRemaining(ctx context.Context, id uuid.UUID, remaining int32) error
	TouchTwoFactorLastUsed(ctx context.Context, id uuid.UUID, usedAt time.Time) error
}
