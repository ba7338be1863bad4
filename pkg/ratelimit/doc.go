// Package ratelimit provides sliding-window rate limiting and lockout
// decisions for authcore's passcode operations.
//
// All state lives in an append-only attempt ledger. Every decision is
// recomputed from raw timestamped rows at check time; no counters are
// cached in process, so decisions hold across restarts and across
// multiple instances sharing one database.
//
// # Overview
//
// The ratelimit package provides:
//   - Per-identity ceilings for passcode sends and verifications
//   - Per-IP ceilings, plus full IP blocking at twice the ceiling
//   - Account lockout after repeated failed verifications
//   - Cooldown and lockout-remaining queries for client messaging
//   - Retention cleanup of aged ledger rows
//
// # Basic Usage
//
//	import "github.com/relieflink/authcore/pkg/ratelimit"
//
//	repo, err := ratelimit.NewAttemptRepository("postgres", ratelimit.RepositoryConfig{Pool: pool})
//	if err != nil {
//		return err
//	}
//
//	limiter := ratelimit.NewLimiter(repo,
//		ratelimit.WithSendCeiling(3),
//		ratelimit.WithVerifyCeiling(10),
//	)
//
//	ok, err := limiter.CanSendOTP(ctx, ratelimit.UserIdentity(userID), clientIP)
//	if err != nil || !ok {
//		// refuse the send; err != nil means the ledger was unreachable
//	}
//
//	// after the action, append the outcome to the ledger
//	limiter.RecordAttempt(ctx, ratelimit.RecordAttemptParams{
//		UserID:      uuid.NullUUID{UUID: userID, Valid: true},
//		IPAddress:   clientIP,
//		AttemptType: ratelimit.AttemptTypeSendOTP,
//		Success:     true,
//	})
//
// # Identities
//
// Decisions are keyed by an Identity: a user ID once the account is known,
// or an email address for flows that run before account lookup. Build one
// with UserIdentity or EmailIdentity.
//
// # Failure Semantics
//
// Check methods fail closed. When the ledger cannot be read, CanSendOTP and
// CanVerifyOTP return false together with the error. RecordAttempt is the
// opposite: storage errors are logged and swallowed so that recording never
// fails the operation being recorded.
//
// # Window Boundaries
//
// Window comparisons are strict. A row aged exactly one window no longer
// counts toward any ceiling.
package ratelimit
