package backupcode

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemRepository implements Repository with an in-memory map.
// Intended for tests and single-process development setups.
type InMemRepository struct {
	mutex sync.RWMutex
	codes map[uuid.UUID]BackupCode
}

// NewInMemRepository creates a new in-memory backup-code repository
func NewInMemRepository() *InMemRepository {
	return &InMemRepository{codes: make(map[uuid.UUID]BackupCode)}
}

// CreateBatch replaces the user's backup codes with a new batch
func (r *InMemRepository) CreateBatch(ctx context.Context, userID uuid.UUID, codeHashes []string) ([]BackupCode, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for id, c := range r.codes {
		if c.UserID == userID {
			delete(r.codes, id)
		}
	}

	now := time.Now().UTC()
	codes := make([]BackupCode, 0, len(codeHashes))
	for _, hash := range codeHashes {
		code := BackupCode{
			ID:        uuid.New(),
			UserID:    userID,
			CodeHash:  hash,
			CreatedAt: now,
		}
		r.codes[code.ID] = code
		codes = append(codes, code)
	}

	return codes, nil
}

// FindUnusedByUser returns the user's unconsumed backup codes
func (r *InMemRepository) FindUnusedByUser(ctx context.Context, userID uuid.UUID) ([]BackupCode, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var codes []BackupCode
	for _, c := range r.codes {
		if c.UserID == userID && c.UsedAt == nil {
			codes = append(codes, c)
		}
	}
	return codes, nil
}

// MarkUsed stamps one backup code as consumed
func (r *InMemRepository) MarkUsed(ctx context.Context, id uuid.UUID, usedAt time.Time) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	code, ok := r.codes[id]
	if !ok || code.UsedAt != nil {
		return ErrCodeInvalid
	}
	code.UsedAt = &usedAt
	r.codes[id] = code

	return nil
}

// DeleteByUser removes every backup code for the user
func (r *InMemRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for id, c := range r.codes {
		if c.UserID == userID {
			delete(r.codes, id)
		}
	}
	return nil
}

// CountUnusedByUser counts the user's unconsumed backup codes
func (r *InMemRepository) CountUnusedByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var count int64
	for _, c := range r.codes {
		if c.UserID == userID && c.UsedAt == nil {
			count++
		}
	}
	return count, nil
}
