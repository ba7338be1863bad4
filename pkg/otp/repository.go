package otp

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Purpose scopes a passcode to the flow it was issued for. A code issued
// for one purpose never verifies under another.
type Purpose string

const (
	PurposeSetup            Purpose = "setup"
	PurposeDisable          Purpose = "disable"
	PurposeBackupRegenerate Purpose = "backup_regenerate"
	PurposeLogin            Purpose = "login"
	PurposeEmailVerify      Purpose = "email_verify"
)

// Valid reports whether the purpose is one of the known constants
func (p Purpose) Valid() bool {
	switch p {
	case PurposeSetup, PurposeDisable, PurposeBackupRegenerate, PurposeLogin, PurposeEmailVerify:
		return true
	}
	return false
}

// Code is one stored passcode. At most one live code exists per
// (user, purpose) pair; issuing a new one supersedes the old.
type Code struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	Code         string
	Purpose      Purpose
	ExpiresAt    time.Time
	AttemptCount int32
	UsedAt       *time.Time
	CreatedAt    time.Time
}

// CreateCodeParams represents parameters for persisting a new passcode
type CreateCodeParams struct {
	UserID    uuid.UUID
	Code      string
	Purpose   Purpose
	ExpiresAt time.Time
}

// CodeRepository defines the interface for passcode storage operations
type CodeRepository interface {
	Create(ctx context.Context, params CreateCodeParams) (Code, error)
	GetByUserPurpose(ctx context.Context, userID uuid.UUID, purpose Purpose) (Code, error)
	DeleteByUserPurpose(ctx context.Context, userID uuid.UUID, purpose Purpose) error
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
	IncrementAttemptCount(ctx context.Context, id uuid.UUID) error
	MarkUsed(ctx context.Context, id uuid.UUID, usedAt time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
