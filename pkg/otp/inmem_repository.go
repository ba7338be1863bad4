package otp

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemCodeRepository implements CodeRepository with an in-memory map.
// Intended for tests and single-process development setups.
type InMemCodeRepository struct {
	mutex sync.RWMutex
	codes map[uuid.UUID]Code
}

// NewInMemCodeRepository creates a new in-memory passcode repository
func NewInMemCodeRepository() *InMemCodeRepository {
	return &InMemCodeRepository{codes: make(map[uuid.UUID]Code)}
}

// Create persists a new passcode row
func (r *InMemCodeRepository) Create(ctx context.Context, params CreateCodeParams) (Code, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	code := Code{
		ID:        uuid.New(),
		UserID:    params.UserID,
		Code:      params.Code,
		Purpose:   params.Purpose,
		ExpiresAt: params.ExpiresAt,
		CreatedAt: time.Now().UTC(),
	}
	r.codes[code.ID] = code

	return code, nil
}

// GetByUserPurpose returns the live passcode for a user and purpose
func (r *InMemCodeRepository) GetByUserPurpose(ctx context.Context, userID uuid.UUID, purpose Purpose) (Code, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var (
		latest Code
		found  bool
	)
	for _, c := range r.codes {
		if c.UserID != userID || c.Purpose != purpose {
			continue
		}
		if !found || c.CreatedAt.After(latest.CreatedAt) {
			latest = c
			found = true
		}
	}

	if !found {
		return Code{}, ErrCodeNotFound
	}
	return latest, nil
}

// DeleteByUserPurpose removes any passcode for the user and purpose
func (r *InMemCodeRepository) DeleteByUserPurpose(ctx context.Context, userID uuid.UUID, purpose Purpose) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for id, c := range r.codes {
		if c.UserID == userID && c.Purpose == purpose {
			delete(r.codes, id)
		}
	}
	return nil
}

// DeleteByUser removes every passcode for the user
func (r *InMemCodeRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for id, c := range r.codes {
		if c.UserID == userID {
			delete(r.codes, id)
		}
	}
	return nil
}

// IncrementAttemptCount adds one to the passcode's attempt count
func (r *InMemCodeRepository) IncrementAttemptCount(ctx context.Context, id uuid.UUID) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	code, ok := r.codes[id]
	if !ok {
		return ErrCodeNotFound
	}
	code.AttemptCount++
	r.codes[id] = code

	return nil
}

// MarkUsed stamps the passcode as consumed
func (r *InMemCodeRepository) MarkUsed(ctx context.Context, id uuid.UUID, usedAt time.Time) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	code, ok := r.codes[id]
	if !ok || code.UsedAt != nil {
		return ErrCodeNotFound
	}
	code.UsedAt = &usedAt
	r.codes[id] = code

	return nil
}

// Delete removes one passcode row
func (r *InMemCodeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	delete(r.codes, id)
	return nil
}

// DeleteExpired removes passcodes whose expiry is before the cutoff; returns rows deleted
func (r *InMemCodeRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var deleted int64
	for id, c := range r.codes {
		if c.ExpiresAt.Before(before) {
			delete(r.codes, id)
			deleted++
		}
	}
	return deleted, nil
}
