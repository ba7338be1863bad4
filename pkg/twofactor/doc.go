// Package twofactor orchestrates email-passcode two-factor authentication:
// enrollment, login challenges, disable, and backup-code recovery.
//
// The orchestrator composes the otp, backupcode and ratelimit services with
// the host application's user store. Every send and verify runs through the
// rate-limit gate first and lands in the attempt ledger afterwards, so
// abuse ceilings and lockouts hold across all two-factor flows.
//
// # Overview
//
//   - Setup / VerifySetup: password-gated enrollment confirmed by a
//     delivered passcode; enabling issues a one-time backup-code batch
//   - SendLoginOTP / VerifyLogin: the login-time challenge, with backup
//     codes accepted as a fallback
//   - Disable: password plus passcode confirmation; tears down all codes
//   - RegenerateBackupCodes: replaces the recovery batch
//   - Status / IsEnabled: projections for account pages and login flows
//
// State changes commit before confirmation notices are sent; a failed
// notice never rolls back a committed transition. Hosts that run without
// two-factor auth can wire NoOpService instead.
//
// # Basic Usage
//
//	service := twofactor.NewService(users, otpService, backupService, limiter, hasher,
//		twofactor.WithNotificationManager(notificationManager),
//	)
//
//	err := service.Setup(ctx, twofactor.SetupParams{
//		UserID:          userID,
//		CurrentPassword: currentPassword,
//		IP:              clientIP,
//	})
//
// The api subpackage exposes the flows over chi routes guarded by jwtauth.
package twofactor
