package api

import "time"

// SetupRequest starts two-factor enrollment
type SetupRequest struct {
	CurrentPassword string `json:"current_password"`
}

// VerifySetupRequest confirms enrollment with the delivered passcode
type VerifySetupRequest struct {
	Passcode string `json:"passcode"`
}

// EnableResponse returns the one-time plaintext backup codes
type EnableResponse struct {
	Enabled     bool     `json:"enabled"`
	BackupCodes []string `json:"backup_codes"`
}

// DisableRequest turns two-factor auth off
type DisableRequest struct {
	CurrentPassword string `json:"current_password"`
	Passcode        string `json:"passcode"`
}

// RegenerateRequest replaces the backup-code batch
type RegenerateRequest struct {
	CurrentPassword string `json:"current_password"`
	Passcode        string `json:"passcode,omitempty"`
}

// RegenerateResponse returns the fresh plaintext backup codes
type RegenerateResponse struct {
	BackupCodes []string `json:"backup_codes"`
}

// VerifyLoginRequest answers the login-time challenge
type VerifyLoginRequest struct {
	Passcode      string `json:"passcode"`
	UseBackupCode bool   `json:"use_backup_code,omitempty"`
}

// StatusResponse is the two-factor projection of the account
type StatusResponse struct {
	Enabled              bool       `json:"enabled"`
	BackupCodesRemaining int32      `json:"backup_codes_remaining"`
	LastUsedAt           *time.Time `json:"last_used_at,omitempty"`
}

// MessageResponse carries a human-readable confirmation
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the uniform error body
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
