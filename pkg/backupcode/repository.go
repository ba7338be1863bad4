package backupcode

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrCodeInvalid is returned when a presented backup code matches no
// unused stored code.
var ErrCodeInvalid = errors.New("invalid backup code")

// BackupCode is one stored recovery code. Only the bcrypt hash is kept;
// the plaintext exists exactly once, in the response that generated it.
type BackupCode struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	CodeHash  string
	UsedAt    *time.Time
	CreatedAt time.Time
}

// Usable reports whether the code has not yet been consumed
func (c BackupCode) Usable() bool {
	return c.UsedAt == nil
}

// Repository defines the interface for backup-code storage operations.
// CreateBatch replaces: any previous batch for the user is removed in the
// same operation.
type Repository interface {
	CreateBatch(ctx context.Context, userID uuid.UUID, codeHashes []string) ([]BackupCode, error)
	FindUnusedByUser(ctx context.Context, userID uuid.UUID) ([]BackupCode, error)
	MarkUsed(ctx context.Context, id uuid.UUID, usedAt time.Time) error
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
	CountUnusedByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}
