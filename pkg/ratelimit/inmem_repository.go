package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemAttemptRepository implements AttemptRepository with an in-memory
// slice. Intended for tests and single-process development setups.
type InMemAttemptRepository struct {
	mutex    sync.RWMutex
	attempts []Attempt
}

// NewInMemAttemptRepository creates a new in-memory attempt repository
func NewInMemAttemptRepository() *InMemAttemptRepository {
	return &InMemAttemptRepository{}
}

// RecordAttempt appends one ledger row
func (r *InMemAttemptRepository) RecordAttempt(ctx context.Context, params RecordAttemptParams) (uuid.UUID, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	attemptedAt := params.AttemptedAt
	if attemptedAt.IsZero() {
		attemptedAt = time.Now().UTC()
	}

	attempt := Attempt{
		ID:          uuid.New(),
		UserID:      params.UserID,
		Email:       params.Email,
		IPAddress:   params.IPAddress,
		AttemptType: params.AttemptType,
		Success:     params.Success,
		AttemptedAt: attemptedAt,
	}
	r.attempts = append(r.attempts, attempt)

	return attempt.ID, nil
}

// CountByIdentity counts attempts of one type for an identity strictly after Since
func (r *InMemAttemptRepository) CountByIdentity(ctx context.Context, params CountByIdentityParams) (int64, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var count int64
	for _, a := range r.attempts {
		if matchesIdentity(a, params.Identity) &&
			a.AttemptType == params.AttemptType &&
			a.AttemptedAt.After(params.Since) {
			count++
		}
	}
	return count, nil
}

// CountByIP counts all attempts from an IP strictly after since
func (r *InMemAttemptRepository) CountByIP(ctx context.Context, ip string, since time.Time) (int64, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var count int64
	for _, a := range r.attempts {
		if a.IPAddress == ip && a.AttemptedAt.After(since) {
			count++
		}
	}
	return count, nil
}

// CountByIPAndType counts attempts of one type from an IP strictly after since
func (r *InMemAttemptRepository) CountByIPAndType(ctx context.Context, ip string, attemptType AttemptType, since time.Time) (int64, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var count int64
	for _, a := range r.attempts {
		if a.IPAddress == ip && a.AttemptType == attemptType && a.AttemptedAt.After(since) {
			count++
		}
	}
	return count, nil
}

// CountFailedByUser counts failed attempts of any type for a user strictly after since
func (r *InMemAttemptRepository) CountFailedByUser(ctx context.Context, userID uuid.UUID, since time.Time) (int64, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var count int64
	for _, a := range r.attempts {
		if a.UserID.Valid && a.UserID.UUID == userID && !a.Success && a.AttemptedAt.After(since) {
			count++
		}
	}
	return count, nil
}

// OldestByIdentity returns the oldest counted attempt within the window
func (r *InMemAttemptRepository) OldestByIdentity(ctx context.Context, params CountByIdentityParams) (Attempt, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var (
		oldest Attempt
		found  bool
	)
	for _, a := range r.attempts {
		if !matchesIdentity(a, params.Identity) ||
			a.AttemptType != params.AttemptType ||
			!a.AttemptedAt.After(params.Since) {
			continue
		}
		if !found || a.AttemptedAt.Before(oldest.AttemptedAt) {
			oldest = a
			found = true
		}
	}

	if !found {
		return Attempt{}, ErrNoAttempts
	}
	return oldest, nil
}

// LatestFailedByUser returns the most recent failed attempt within the window
func (r *InMemAttemptRepository) LatestFailedByUser(ctx context.Context, userID uuid.UUID, since time.Time) (Attempt, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var (
		latest Attempt
		found  bool
	)
	for _, a := range r.attempts {
		if !a.UserID.Valid || a.UserID.UUID != userID || a.Success || !a.AttemptedAt.After(since) {
			continue
		}
		if !found || a.AttemptedAt.After(latest.AttemptedAt) {
			latest = a
			found = true
		}
	}

	if !found {
		return Attempt{}, ErrNoAttempts
	}
	return latest, nil
}

// DeleteOlderThan removes ledger rows older than the cutoff; returns rows deleted
func (r *InMemAttemptRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	kept := r.attempts[:0]
	var deleted int64
	for _, a := range r.attempts {
		if a.AttemptedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, a)
	}
	r.attempts = kept

	return deleted, nil
}
