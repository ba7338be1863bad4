package config

import "time"

// RateLimitConfig contains the sliding-window ceilings for OTP abuse
// prevention. Counts are computed over the attempt ledger at check time,
// never kept as in-memory counters.
type RateLimitConfig struct {
	// MaxSendPerHour is the send-otp ceiling per identity (user ID or email)
	MaxSendPerHour int
	// MaxVerifyPerHour is the verify-otp ceiling per identity
	MaxVerifyPerHour int
	// MaxPerIPPerHour is the send-otp ceiling per source IP; an IP is blocked
	// outright once its total attempt count reaches twice this value
	MaxPerIPPerHour int
	// MaxFailedAttempts is the failed-attempt ceiling before account lockout
	MaxFailedAttempts int
	// Window is the sliding window for send/verify/IP counts
	Window time.Duration
	// LockoutWindow is the sliding window for failed-attempt lockout
	LockoutWindow time.Duration
	// RetentionPeriod is how long ledger rows are kept before cleanup
	RetentionPeriod time.Duration
}

// DefaultRateLimitConfig returns a RateLimitConfig with sensible defaults
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxSendPerHour:    3,
		MaxVerifyPerHour:  10,
		MaxPerIPPerHour:   20,
		MaxFailedAttempts: 5,
		Window:            time.Hour,
		LockoutWindow:     60 * time.Minute,
		RetentionPeriod:   24 * time.Hour,
	}
}

// NewRateLimitConfigFromEnv loads RateLimitConfig from standard environment
// variables, falling back to the defaults.
//
// Environment variables:
//   - RATELIMIT_MAX_SEND_PER_HOUR: send-otp ceiling per identity (default: 3)
//   - RATELIMIT_MAX_VERIFY_PER_HOUR: verify-otp ceiling per identity (default: 10)
//   - RATELIMIT_MAX_PER_IP_PER_HOUR: send-otp ceiling per IP (default: 20)
//   - RATELIMIT_MAX_FAILED_ATTEMPTS: failed attempts before lockout (default: 5)
//   - RATELIMIT_WINDOW: sliding window (default: 1h)
//   - RATELIMIT_LOCKOUT_WINDOW: lockout window (default: 60m)
//   - RATELIMIT_RETENTION_PERIOD: ledger retention (default: 24h)
func NewRateLimitConfigFromEnv() RateLimitConfig {
	return RateLimitConfig{
		MaxSendPerHour:    GetEnvInt("RATELIMIT_MAX_SEND_PER_HOUR", 3),
		MaxVerifyPerHour:  GetEnvInt("RATELIMIT_MAX_VERIFY_PER_HOUR", 10),
		MaxPerIPPerHour:   GetEnvInt("RATELIMIT_MAX_PER_IP_PER_HOUR", 20),
		MaxFailedAttempts: GetEnvInt("RATELIMIT_MAX_FAILED_ATTEMPTS", 5),
		Window:            GetEnvDuration("RATELIMIT_WINDOW", time.Hour),
		LockoutWindow:     GetEnvDuration("RATELIMIT_LOCKOUT_WINDOW", 60*time.Minute),
		RetentionPeriod:   GetEnvDuration("RATELIMIT_RETENTION_PERIOD", 24*time.Hour),
	}
}
