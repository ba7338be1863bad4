package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedAttempt(t *testing.T, repo AttemptRepository, params RecordAttemptParams) {
	t.Helper()
	_, err := repo.RecordAttempt(context.Background(), params)
	require.NoError(t, err)
}

func nullUser(id uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: id, Valid: true}
}

func TestCanSendOTP_SlidingWindow(t *testing.T) {
	repo := NewInMemAttemptRepository()
	limiter := NewLimiter(repo, WithSendCeiling(3))
	ctx := context.Background()

	userID := uuid.New()
	ip := "203.0.113.10"

	// Two sends in the last 50 minutes: still allowed
	for _, age := range []time.Duration{50 * time.Minute, 20 * time.Minute} {
		seedAttempt(t, repo, RecordAttemptParams{
			UserID:      nullUser(userID),
			IPAddress:   ip,
			AttemptType: AttemptTypeSendOTP,
			Success:     true,
			AttemptedAt: time.Now().UTC().Add(-age),
		})
	}

	ok, err := limiter.CanSendOTP(ctx, UserIdentity(userID), ip)
	require.NoError(t, err)
	assert.True(t, ok)

	// Third send reaches the ceiling
	seedAttempt(t, repo, RecordAttemptParams{
		UserID:      nullUser(userID),
		IPAddress:   ip,
		AttemptType: AttemptTypeSendOTP,
		Success:     true,
		AttemptedAt: time.Now().UTC().Add(-5 * time.Minute),
	})

	ok, err = limiter.CanSendOTP(ctx, UserIdentity(userID), ip)
	require.NoError(t, err)
	assert.False(t, ok)

	cooldown, err := limiter.GetSendCooldown(ctx, userID)
	require.NoError(t, err)
	assert.Greater(t, cooldown, time.Duration(0))
	assert.LessOrEqual(t, cooldown, 10*time.Minute)
}

func TestCanSendOTP_OldAttemptsAgeOut(t *testing.T) {
	repo := NewInMemAttemptRepository()
	limiter := NewLimiter(repo, WithSendCeiling(3))
	ctx := context.Background()

	userID := uuid.New()
	ip := "203.0.113.10"

	// Three sends all older than the window: none count
	for i := 0; i < 3; i++ {
		seedAttempt(t, repo, RecordAttemptParams{
			UserID:      nullUser(userID),
			IPAddress:   ip,
			AttemptType: AttemptTypeSendOTP,
			Success:     true,
			AttemptedAt: time.Now().UTC().Add(-61 * time.Minute),
		})
	}

	ok, err := limiter.CanSendOTP(ctx, UserIdentity(userID), ip)
	require.NoError(t, err)
	assert.True(t, ok)

	cooldown, err := limiter.GetSendCooldown(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), cooldown)
}

func TestCanSendOTP_EmailIdentity(t *testing.T) {
	repo := NewInMemAttemptRepository()
	limiter := NewLimiter(repo, WithSendCeiling(3))
	ctx := context.Background()

	email := "someone@example.com"
	ip := "203.0.113.10"

	for i := 0; i < 3; i++ {
		seedAttempt(t, repo, RecordAttemptParams{
			Email:       email,
			IPAddress:   ip,
			AttemptType: AttemptTypeSendOTP,
			Success:     true,
			AttemptedAt: time.Now().UTC().Add(-10 * time.Minute),
		})
	}

	ok, err := limiter.CanSendOTP(ctx, EmailIdentity(email), ip)
	require.NoError(t, err)
	assert.False(t, ok)

	// A different email from the same IP is still under its identity ceiling
	ok, err = limiter.CanSendOTP(ctx, EmailIdentity("other@example.com"), ip)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCanSendOTP_IPCeiling(t *testing.T) {
	repo := NewInMemAttemptRepository()
	limiter := NewLimiter(repo, WithIPCeiling(5))
	ctx := context.Background()

	ip := "198.51.100.7"

	// Five sends from distinct identities exhaust the IP send ceiling
	for i := 0; i < 5; i++ {
		seedAttempt(t, repo, RecordAttemptParams{
			UserID:      nullUser(uuid.New()),
			IPAddress:   ip,
			AttemptType: AttemptTypeSendOTP,
			Success:     true,
			AttemptedAt: time.Now().UTC().Add(-time.Minute),
		})
	}

	ok, err := limiter.CanSendOTP(ctx, UserIdentity(uuid.New()), ip)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIsIPBlocked_DoubleCeiling(t *testing.T) {
	repo := NewInMemAttemptRepository()
	limiter := NewLimiter(repo, WithIPCeiling(5))
	ctx := context.Background()

	ip := "198.51.100.8"

	for i := 0; i < 9; i++ {
		seedAttempt(t, repo, RecordAttemptParams{
			UserID:      nullUser(uuid.New()),
			IPAddress:   ip,
			AttemptType: AttemptTypeVerifyOTP,
			Success:     i%2 == 0,
			AttemptedAt: time.Now().UTC().Add(-time.Minute),
		})
	}

	blocked, err := limiter.IsIPBlocked(ctx, ip)
	require.NoError(t, err)
	assert.False(t, blocked)

	seedAttempt(t, repo, RecordAttemptParams{
		UserID:      nullUser(uuid.New()),
		IPAddress:   ip,
		AttemptType: AttemptTypeVerifyOTP,
		Success:     true,
		AttemptedAt: time.Now().UTC().Add(-time.Minute),
	})

	blocked, err = limiter.IsIPBlocked(ctx, ip)
	require.NoError(t, err)
	assert.True(t, blocked)
}

func TestIsAccountLocked_Threshold(t *testing.T) {
	repo := NewInMemAttemptRepository()
	limiter := NewLimiter(repo, WithFailedAttemptCeiling(5))
	ctx := context.Background()

	userID := uuid.New()

	// Four failures: not locked
	for i := 0; i < 4; i++ {
		seedAttempt(t, repo, RecordAttemptParams{
			UserID:      nullUser(userID),
			IPAddress:   "203.0.113.1",
			AttemptType: AttemptTypeVerifyOTP,
			Success:     false,
			AttemptedAt: time.Now().UTC().Add(-30 * time.Minute),
		})
	}

	locked, err := limiter.IsAccountLocked(ctx, userID)
	require.NoError(t, err)
	assert.False(t, locked)

	// The fifth failure locks the account
	seedAttempt(t, repo, RecordAttemptParams{
		UserID:      nullUser(userID),
		IPAddress:   "203.0.113.1",
		AttemptType: AttemptTypeSendOTP,
		Success:     false,
		AttemptedAt: time.Now().UTC().Add(-time.Minute),
	})

	locked, err = limiter.IsAccountLocked(ctx, userID)
	require.NoError(t, err)
	assert.True(t, locked)

	// A locked account may neither send nor verify
	ok, err := limiter.CanVerifyOTP(ctx, UserIdentity(userID), "203.0.113.1")
	require.NoError(t, err)
	assert.False(t, ok)

	remaining, err := limiter.GetLockoutRemaining(ctx, userID)
	require.NoError(t, err)
	assert.Greater(t, remaining, time.Duration(0))
	assert.LessOrEqual(t, remaining, 60*time.Minute)
}

func TestIsAccountLocked_StrictWindowBoundary(t *testing.T) {
	repo := NewInMemAttemptRepository()
	limiter := NewLimiter(repo, WithFailedAttemptCeiling(5), WithLockoutWindow(60*time.Minute))
	ctx := context.Background()

	userID := uuid.New()

	// Five failures just inside the window: locked
	for i := 0; i < 5; i++ {
		seedAttempt(t, repo, RecordAttemptParams{
			UserID:      nullUser(userID),
			IPAddress:   "203.0.113.1",
			AttemptType: AttemptTypeVerifyOTP,
			Success:     false,
			AttemptedAt: time.Now().UTC().Add(-60*time.Minute + time.Second),
		})
	}

	locked, err := limiter.IsAccountLocked(ctx, userID)
	require.NoError(t, err)
	assert.True(t, locked)
}

func TestIsAccountLocked_FailuresAgedOut(t *testing.T) {
	repo := NewInMemAttemptRepository()
	limiter := NewLimiter(repo, WithFailedAttemptCeiling(5), WithLockoutWindow(60*time.Minute))
	ctx := context.Background()

	userID := uuid.New()

	for i := 0; i < 5; i++ {
		seedAttempt(t, repo, RecordAttemptParams{
			UserID:      nullUser(userID),
			IPAddress:   "203.0.113.1",
			AttemptType: AttemptTypeVerifyOTP,
			Success:     false,
			AttemptedAt: time.Now().UTC().Add(-60*time.Minute - time.Second),
		})
	}

	locked, err := limiter.IsAccountLocked(ctx, userID)
	require.NoError(t, err)
	assert.False(t, locked)
}

func TestCanVerifyOTP_Ceiling(t *testing.T) {
	repo := NewInMemAttemptRepository()
	limiter := NewLimiter(repo, WithVerifyCeiling(10))
	ctx := context.Background()

	userID := uuid.New()
	ip := "203.0.113.2"

	// Successful verifies also count toward the windowed ceiling
	for i := 0; i < 10; i++ {
		seedAttempt(t, repo, RecordAttemptParams{
			UserID:      nullUser(userID),
			IPAddress:   ip,
			AttemptType: AttemptTypeVerifyOTP,
			Success:     true,
			AttemptedAt: time.Now().UTC().Add(-10 * time.Minute),
		})
	}

	ok, err := limiter.CanVerifyOTP(ctx, UserIdentity(userID), ip)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCleanupOldAttempts(t *testing.T) {
	repo := NewInMemAttemptRepository()
	limiter := NewLimiter(repo, WithRetentionPeriod(24*time.Hour))
	ctx := context.Background()

	userID := uuid.New()

	seedAttempt(t, repo, RecordAttemptParams{
		UserID:      nullUser(userID),
		IPAddress:   "203.0.113.3",
		AttemptType: AttemptTypeSendOTP,
		Success:     true,
		AttemptedAt: time.Now().UTC().Add(-25 * time.Hour),
	})
	seedAttempt(t, repo, RecordAttemptParams{
		UserID:      nullUser(userID),
		IPAddress:   "203.0.113.3",
		AttemptType: AttemptTypeSendOTP,
		Success:     true,
		AttemptedAt: time.Now().UTC().Add(-time.Hour),
	})

	deleted, err := limiter.CleanupOldAttempts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	// The recent attempt survives
	count, err := repo.CountByIdentity(ctx, CountByIdentityParams{
		Identity:    UserIdentity(userID),
		AttemptType: AttemptTypeSendOTP,
		Since:       time.Now().UTC().Add(-24 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

// failingAttemptRepository simulates a storage outage
type failingAttemptRepository struct {
	InMemAttemptRepository
}

func (r *failingAttemptRepository) CountFailedByUser(ctx context.Context, userID uuid.UUID, since time.Time) (int64, error) {
	return 0, errors.New("storage unavailable")
}

func TestLimiter_FailsClosed(t *testing.T) {
	limiter := NewLimiter(&failingAttemptRepository{})
	ctx := context.Background()

	ok, err := limiter.CanSendOTP(ctx, UserIdentity(uuid.New()), "203.0.113.4")
	assert.Error(t, err)
	assert.False(t, ok)

	ok, err = limiter.CanVerifyOTP(ctx, UserIdentity(uuid.New()), "203.0.113.4")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestRecordAttempt_SwallowsStorageErrors(t *testing.T) {
	limiter := NewLimiter(&recordFailingRepository{})

	// Must not panic or surface the error
	limiter.RecordAttempt(context.Background(), RecordAttemptParams{
		IPAddress:   "203.0.113.5",
		AttemptType: AttemptTypeSendOTP,
	})
}

type recordFailingRepository struct {
	InMemAttemptRepository
}

func (r *recordFailingRepository) RecordAttempt(ctx context.Context, params RecordAttemptParams) (uuid.UUID, error) {
	return uuid.Nil, errors.New("storage unavailable")
}
