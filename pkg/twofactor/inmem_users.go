package twofactor

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemUserRepository implements UserRepository with an in-memory map.
// Intended for tests and single-process development setups.
type InMemUserRepository struct {
	mutex sync.RWMutex
	users map[uuid.UUID]User
}

// NewInMemUserRepository creates a new in-memory user repository
func NewInMemUserRepository() *InMemUserRepository {
	return &InMemUserRepository{users: make(map[uuid.UUID]User)}
}

// AddUser seeds an account
func (r *InMemUserRepository) AddUser(user User) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.users[user.ID] = user
}

// GetByID returns the account with the given ID
func (r *InMemUserRepository) GetByID(ctx context.Context, id uuid.UUID) (User, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

// SetTwoFactorEnabled flips the two-factor flag
func (r *InMemUserRepository) SetTwoFactorEnabled(ctx context.Context, id uuid.UUID, enabled bool) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	user, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}
	user.TwoFactorEnabled = enabled
	r.users[id] = user

	return nil
}

// SetBackupCodesRemaining updates the denormalized remaining-codes counter
func (r *InMemUserRepository) SetBackupCodesRemaining(ctx context.Context, id uuid.UUID, remaining int32) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	user, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}
	user.BackupCodesRemaining = remaining
	r.users[id] = user

	return nil
}

// TouchTwoFactorLastUsed stamps the last successful two-factor verification
func (r *InMemUserRepository) TouchTwoFactorLastUsed(ctx context.Context, id uuid.UUID, usedAt time.Time) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	user, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}
	user.TwoFactorLastUsed = &usedAt
	r.users[id] = user

	return nil
}
