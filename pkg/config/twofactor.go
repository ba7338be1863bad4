package config

import "time"

// TwoFactorConfig contains OTP and backup-code settings for the 2FA core.
type TwoFactorConfig struct {
	// OTPExpiry is how long an issued passcode stays valid (default: 5m)
	OTPExpiry time.Duration
	// OTPMaxAttempts is the per-code verification attempt cap (default: 5)
	OTPMaxAttempts int
	// OTPLength is the number of digits in a passcode (default: 6)
	OTPLength int
	// BackupCodeCount is the size of a backup-code batch (default: 8)
	BackupCodeCount int
	// BackupCodeLength is the length of each backup code (default: 8)
	BackupCodeLength int
}

// DefaultTwoFactorConfig returns a TwoFactorConfig with sensible defaults
func DefaultTwoFactorConfig() TwoFactorConfig {
	return TwoFactorConfig{
		OTPExpiry:        5 * time.Minute,
		OTPMaxAttempts:   5,
		OTPLength:        6,
		BackupCodeCount:  8,
		BackupCodeLength: 8,
	}
}

// NewTwoFactorConfigFromEnv loads TwoFactorConfig from standard environment
// variables, falling back to the defaults.
//
// Environment variables:
//   - TWOFA_OTP_EXPIRY: passcode validity (default: 5m)
//   - TWOFA_OTP_MAX_ATTEMPTS: per-code attempt cap (default: 5)
//   - TWOFA_OTP_LENGTH: passcode digits (default: 6)
//   - TWOFA_BACKUP_CODE_COUNT: backup codes per batch (default: 8)
//   - TWOFA_BACKUP_CODE_LENGTH: characters per backup code (default: 8)
func NewTwoFactorConfigFromEnv() TwoFactorConfig {
	return TwoFactorConfig{
		OTPExpiry:        GetEnvDuration("TWOFA_OTP_EXPIRY", 5*time.Minute),
		OTPMaxAttempts:   GetEnvInt("TWOFA_OTP_MAX_ATTEMPTS", 5),
		OTPLength:        GetEnvInt("TWOFA_OTP_LENGTH", 6),
		BackupCodeCount:  GetEnvInt("TWOFA_BACKUP_CODE_COUNT", 8),
		BackupCodeLength: GetEnvInt("TWOFA_BACKUP_CODE_LENGTH", 8),
	}
}
