package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/relieflink/authcore/pkg/config"
)

// Limiter decides from the attempt ledger whether a send or verify action
// may proceed. Counts are recomputed from raw timestamped rows on every
// check; nothing is cached in process, so decisions survive restarts and
// multi-instance deployment.
//
// All checks fail closed: a storage error is reported as "not permitted"
// alongside the error, since this is a security control.
type Limiter struct {
	repo              AttemptRepository
	maxSendPerHour    int
	maxVerifyPerHour  int
	maxPerIPPerHour   int
	maxFailedAttempts int
	window            time.Duration
	lockoutWindow     time.Duration
	retentionPeriod   time.Duration
}

// LimiterOption defines configuration options
type LimiterOption func(*Limiter)

// WithConfig applies a full RateLimitConfig
func WithConfig(cfg config.RateLimitConfig) LimiterOption {
	return func(l *Limiter) {
		l.maxSendPerHour = cfg.MaxSendPerHour
		l.maxVerifyPerHour = cfg.MaxVerifyPerHour
		l.maxPerIPPerHour = cfg.MaxPerIPPerHour
		l.maxFailedAttempts = cfg.MaxFailedAttempts
		l.window = cfg.Window
		l.lockoutWindow = cfg.LockoutWindow
		l.retentionPeriod = cfg.RetentionPeriod
	}
}

// WithSendCeiling sets the per-identity send-otp ceiling
func WithSendCeiling(n int) LimiterOption {
	return func(l *Limiter) { l.maxSendPerHour = n }
}

// WithVerifyCeiling sets the per-identity verify-otp ceiling
func WithVerifyCeiling(n int) LimiterOption {
	return func(l *Limiter) { l.maxVerifyPerHour = n }
}

// WithIPCeiling sets the per-IP send-otp ceiling
func WithIPCeiling(n int) LimiterOption {
	return func(l *Limiter) { l.maxPerIPPerHour = n }
}

// WithFailedAttemptCeiling sets the failed-attempt lockout ceiling
func WithFailedAttemptCeiling(n int) LimiterOption {
	return func(l *Limiter) { l.maxFailedAttempts = n }
}

// WithWindow sets the sliding window for send/verify/IP counts
func WithWindow(d time.Duration) LimiterOption {
	return func(l *Limiter) { l.window = d }
}

// WithLockoutWindow sets the sliding window for failed-attempt lockout
func WithLockoutWindow(d time.Duration) LimiterOption {
	return func(l *Limiter) { l.lockoutWindow = d }
}

// WithRetentionPeriod sets how long ledger rows are kept
func WithRetentionPeriod(d time.Duration) LimiterOption {
	return func(l *Limiter) { l.retentionPeriod = d }
}

// NewLimiter creates a new sliding-window limiter over the given ledger
func NewLimiter(repo AttemptRepository, opts ...LimiterOption) *Limiter {
	limiter := &Limiter{repo: repo}
	WithConfig(config.DefaultRateLimitConfig())(limiter)

	for _, opt := range opts {
		opt(limiter)
	}

	return limiter
}

// CanSendOTP reports whether a send action is currently permitted for the
// identity from the given IP. False when the identity's send count or the
// IP's send count has reached its ceiling, the IP is blocked, or the
// account is locked out.
func (l *Limiter) CanSendOTP(ctx context.Context, identity Identity, ip string) (bool, error) {
	return l.canAttempt(ctx, identity, ip, AttemptTypeSendOTP, l.maxSendPerHour)
}

// CanVerifyOTP reports whether a verify action is currently permitted
func (l *Limiter) CanVerifyOTP(ctx context.Context, identity Identity, ip string) (bool, error) {
	return l.canAttempt(ctx, identity, ip, AttemptTypeVerifyOTP, l.maxVerifyPerHour)
}

func (l *Limiter) canAttempt(ctx context.Context, identity Identity, ip string, attemptType AttemptType, ceiling int) (bool, error) {
	now := time.Now().UTC()

	if identity.UserID.Valid {
		locked, err := l.IsAccountLocked(ctx, identity.UserID.UUID)
		if err != nil {
			return false, err
		}
		if locked {
			slog.Warn("Attempt refused: account locked", "userId", identity.UserID.UUID, "attemptType", attemptType)
			return false, nil
		}
	}

	blocked, err := l.IsIPBlocked(ctx, ip)
	if err != nil {
		return false, err
	}
	if blocked {
		slog.Warn("Attempt refused: IP blocked", "ip", ip, "attemptType", attemptType)
		return false, nil
	}

	identityCount, err := l.repo.CountByIdentity(ctx, CountByIdentityParams{
		Identity:    identity,
		AttemptType: attemptType,
		Since:       now.Add(-l.window),
	})
	if err != nil {
		return false, fmt.Errorf("failed to count identity attempts: %w", err)
	}
	if identityCount >= int64(ceiling) {
		slog.Warn("Attempt refused: identity ceiling reached", "attemptType", attemptType, "count", identityCount, "ceiling", ceiling)
		return false, nil
	}

	ipCount, err := l.repo.CountByIPAndType(ctx, ip, attemptType, now.Add(-l.window))
	if err != nil {
		return false, fmt.Errorf("failed to count IP attempts: %w", err)
	}
	if ipCount >= int64(l.maxPerIPPerHour) {
		slog.Warn("Attempt refused: IP ceiling reached", "ip", ip, "attemptType", attemptType, "count", ipCount)
		return false, nil
	}

	return true, nil
}

// RecordAttempt appends one ledger row. Storage errors are logged and
// swallowed so that recording never fails the primary operation.
func (l *Limiter) RecordAttempt(ctx context.Context, params RecordAttemptParams) {
	_, err := l.repo.RecordAttempt(ctx, params)
	if err != nil {
		slog.Error("Failed to record attempt", "attemptType", params.AttemptType, "success", params.Success, "err", err)
	}
}

// IsAccountLocked reports whether failed attempts of any type within the
// lockout window have reached the failed-attempt ceiling. The boundary is
// strict: an attempt aged exactly one window no longer counts.
func (l *Limiter) IsAccountLocked(ctx context.Context, userID uuid.UUID) (bool, error) {
	since := time.Now().UTC().Add(-l.lockoutWindow)
	count, err := l.repo.CountFailedByUser(ctx, userID, since)
	if err != nil {
		return false, fmt.Errorf("failed to count failed attempts: %w", err)
	}
	return count >= int64(l.maxFailedAttempts), nil
}

// IsIPBlocked reports whether the IP's total attempt count (success and
// failure, any type) within the window has reached twice the IP ceiling.
func (l *Limiter) IsIPBlocked(ctx context.Context, ip string) (bool, error) {
	since := time.Now().UTC().Add(-l.window)
	count, err := l.repo.CountByIP(ctx, ip, since)
	if err != nil {
		return false, fmt.Errorf("failed to count IP attempts: %w", err)
	}
	return count >= int64(2*l.maxPerIPPerHour), nil
}

// GetSendCooldown returns the time until the user may send again: zero when
// under the ceiling, otherwise the time until the oldest counted send
// attempt falls out of the window.
func (l *Limiter) GetSendCooldown(ctx context.Context, userID uuid.UUID) (time.Duration, error) {
	now := time.Now().UTC()
	params := CountByIdentityParams{
		Identity:    UserIdentity(userID),
		AttemptType: AttemptTypeSendOTP,
		Since:       now.Add(-l.window),
	}

	count, err := l.repo.CountByIdentity(ctx, params)
	if err != nil {
		return 0, fmt.Errorf("failed to count send attempts: %w", err)
	}
	if count < int64(l.maxSendPerHour) {
		return 0, nil
	}

	oldest, err := l.repo.OldestByIdentity(ctx, params)
	if err != nil {
		return 0, fmt.Errorf("failed to find oldest send attempt: %w", err)
	}

	remaining := oldest.AttemptedAt.Add(l.window).Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// GetLockoutRemaining returns the time until the lockout lifts: zero when
// not locked, otherwise the time until the most recent failed attempt ages
// out of the lockout window.
func (l *Limiter) GetLockoutRemaining(ctx context.Context, userID uuid.UUID) (time.Duration, error) {
	locked, err := l.IsAccountLocked(ctx, userID)
	if err != nil {
		return 0, err
	}
	if !locked {
		return 0, nil
	}

	latest, err := l.repo.LatestFailedByUser(ctx, userID, time.Now().UTC().Add(-l.lockoutWindow))
	if err != nil {
		return 0, fmt.Errorf("failed to find latest failed attempt: %w", err)
	}

	remaining := latest.AttemptedAt.Add(l.lockoutWindow).Sub(time.Now().UTC())
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// CleanupOldAttempts deletes ledger rows older than the retention period and
// returns the number deleted. Meant to be invoked by an external scheduler,
// never from the real-time decision path.
func (l *Limiter) CleanupOldAttempts(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().Add(-l.retentionPeriod)
	deleted, err := l.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup old attempts: %w", err)
	}

	slog.Info("Cleaned up old attempts", "deleted", deleted, "cutoff", cutoff)
	return deleted, nil
}
