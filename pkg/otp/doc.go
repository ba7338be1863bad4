// Package otp issues, delivers and verifies short-lived numeric one-time
// passcodes.
//
// Each passcode is scoped to a (user, purpose) pair, with at most one live
// code per pair; issuing a new code supersedes the previous one. Codes are
// single-use, expire after a configurable period (default 5 minutes) and
// carry a per-code attempt cap (default 5). A code that reaches the cap is
// deleted, after which even the correct value no longer verifies.
//
// Verification failures are indistinguishable by design: wrong code,
// expired code, consumed code and absent code all surface as
// ErrCodeInvalid.
//
//	service := otp.NewService(repo, notificationManager,
//		otp.WithExpiry(5*time.Minute),
//		otp.WithMaxAttempts(5),
//	)
//
//	err := service.SendOTP(ctx, userID, email, otp.PurposeLogin)
//	...
//	err = service.VerifyOTP(ctx, userID, presented, otp.PurposeLogin)
package otp
