package twofactor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/relieflink/authcore/pkg/backupcode"
	"github.com/relieflink/authcore/pkg/notification"
	"github.com/relieflink/authcore/pkg/otp"
	"github.com/relieflink/authcore/pkg/password"
	"github.com/relieflink/authcore/pkg/ratelimit"
)

// TwoFactorService is the orchestrator contract consumed by HTTP handlers
// and login flows. NoOpService satisfies it for hosts that run without
// two-factor auth.
type TwoFactorService interface {
	Setup(ctx context.Context, params SetupParams) error
	VerifySetup(ctx context.Context, params VerifySetupParams) (*EnableResult, error)
	Disable(ctx context.Context, params DisableParams) error
	SendDisableOTP(ctx context.Context, userID uuid.UUID, ip string) error
	RegenerateBackupCodes(ctx context.Context, params RegenerateParams) ([]string, error)
	SendLoginOTP(ctx context.Context, params SendLoginOTPParams) error
	VerifyLogin(ctx context.Context, params VerifyLoginParams) error
	Status(ctx context.Context, userID uuid.UUID) (Status, error)
	IsEnabled(ctx context.Context, userID uuid.UUID) (bool, error)
	UpdateLastUsed(ctx context.Context, userID uuid.UUID)
}

// SetupParams represents parameters for starting two-factor enrollment
type SetupParams struct {
	UserID          uuid.UUID
	CurrentPassword string
	IP              string
}

// VerifySetupParams represents parameters for confirming enrollment
type VerifySetupParams struct {
	UserID   uuid.UUID
	Passcode string
	IP       string
}

// EnableResult carries the one-time plaintext backup codes issued when
// two-factor auth is turned on.
type EnableResult struct {
	BackupCodes []string
}

// DisableParams represents parameters for turning two-factor auth off
type DisableParams struct {
	UserID          uuid.UUID
	CurrentPassword string
	Passcode        string
	IP              string
}

// RegenerateParams represents parameters for replacing the backup-code batch
type RegenerateParams struct {
	UserID          uuid.UUID
	CurrentPassword string
	Passcode        string
	IP              string
}

// SendLoginOTPParams represents parameters for issuing a login challenge
type SendLoginOTPParams struct {
	UserID uuid.UUID
	IP     string
}

// VerifyLoginParams represents parameters for answering a login challenge
type VerifyLoginParams struct {
	UserID        uuid.UUID
	Passcode      string
	UseBackupCode bool
	IP            string
}

// Status is the two-factor projection of an account
type Status struct {
	Enabled              bool
	BackupCodesRemaining int32
	LastUsedAt           *time.Time
}

// Service orchestrates passcodes, backup codes, rate limiting and user
// state into the two-factor flows. State changes commit before
// notifications fire; a notification failure never rolls back a committed
// transition.
type Service struct {
	users               UserRepository
	otpService          *otp.Service
	backupService       *backupcode.Service
	limiter             *ratelimit.Limiter
	hasher              password.Hasher
	notificationManager *notification.NotificationManager
}

var _ TwoFactorService = (*Service)(nil)

// Option defines configuration options
type Option func(*Service)

// WithNotificationManager sets the manager used for the enabled/disabled
// confirmation notices
func WithNotificationManager(nm *notification.NotificationManager) Option {
	return func(s *Service) { s.notificationManager = nm }
}

// NewService creates a new two-factor orchestrator
func NewService(
	users UserRepository,
	otpService *otp.Service,
	backupService *backupcode.Service,
	limiter *ratelimit.Limiter,
	hasher password.Hasher,
	opts ...Option,
) *Service {
	service := &Service{
		users:         users,
		otpService:    otpService,
		backupService: backupService,
		limiter:       limiter,
		hasher:        hasher,
	}

	for _, opt := range opts {
		opt(service)
	}

	return service
}

// Setup starts enrollment: after the current-password check an enrollment
// passcode is issued to the account's email. Fails with ErrAlreadyEnabled
// when two-factor auth is already on.
func (s *Service) Setup(ctx context.Context, params SetupParams) error {
	user, err := s.users.GetByID(ctx, params.UserID)
	if err != nil {
		return err
	}

	if user.TwoFactorEnabled {
		return ErrAlreadyEnabled
	}

	if err := s.checkPassword(user, params.CurrentPassword); err != nil {
		return err
	}

	return s.sendOTP(ctx, user, otp.PurposeSetup, params.IP)
}

// VerifySetup confirms enrollment with the setup passcode. On success
// two-factor auth is enabled, a backup-code batch is generated and the
// plaintext codes are returned exactly once. A failed verification leaves
// the account untouched.
func (s *Service) VerifySetup(ctx context.Context, params VerifySetupParams) (*EnableResult, error) {
	user, err := s.users.GetByID(ctx, params.UserID)
	if err != nil {
		return nil, err
	}

	if user.TwoFactorEnabled {
		return nil, ErrAlreadyEnabled
	}

	if err := s.verifyOTP(ctx, user, params.Passcode, otp.PurposeSetup, params.IP); err != nil {
		return nil, err
	}

	if err := s.users.SetTwoFactorEnabled(ctx, user.ID, true); err != nil {
		return nil, fmt.Errorf("failed to enable two-factor auth: %w", err)
	}

	codes, err := s.backupService.GenerateCodes(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate backup codes: %w", err)
	}

	s.sendNotice(notification.TwofaEnabledNotice, user)

	slog.Info("Two-factor auth enabled", "userId", user.ID)
	return &EnableResult{BackupCodes: codes}, nil
}

// Disable turns two-factor auth off. The current password is checked
// (federated accounts excepted) and, since the account is enabled, a valid
// disable passcode is required. On success all backup codes and outstanding
// passcodes are invalidated.
func (s *Service) Disable(ctx context.Context, params DisableParams) error {
	user, err := s.users.GetByID(ctx, params.UserID)
	if err != nil {
		return err
	}

	if err := s.checkPassword(user, params.CurrentPassword); err != nil {
		return err
	}

	if !user.TwoFactorEnabled {
		return ErrNotEnabled
	}

	if params.Passcode == "" {
		return ErrPasscodeRequired
	}
	if err := s.verifyOTP(ctx, user, params.Passcode, otp.PurposeDisable, params.IP); err != nil {
		return err
	}

	if err := s.users.SetTwoFactorEnabled(ctx, user.ID, false); err != nil {
		return fmt.Errorf("failed to disable two-factor auth: %w", err)
	}
	if err := s.backupService.InvalidateAll(ctx, user.ID); err != nil {
		return fmt.Errorf("failed to invalidate backup codes: %w", err)
	}
	if err := s.otpService.InvalidateAll(ctx, user.ID); err != nil {
		return fmt.Errorf("failed to invalidate passcodes: %w", err)
	}

	s.sendNotice(notification.TwofaDisabledNotice, user)

	slog.Info("Two-factor auth disabled", "userId", user.ID)
	return nil
}

// SendDisableOTP issues the passcode that confirms a disable request
func (s *Service) SendDisableOTP(ctx context.Context, userID uuid.UUID, ip string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !user.TwoFactorEnabled {
		return ErrNotEnabled
	}
	return s.sendOTP(ctx, user, otp.PurposeDisable, ip)
}

// RegenerateBackupCodes replaces the backup-code batch and returns the new
// plaintext codes. Requires two-factor auth enabled and the current
// password; when a passcode is supplied it is verified as well.
func (s *Service) RegenerateBackupCodes(ctx context.Context, params RegenerateParams) ([]string, error) {
	user, err := s.users.GetByID(ctx, params.UserID)
	if err != nil {
		return nil, err
	}

	if !user.TwoFactorEnabled {
		return nil, ErrNotEnabled
	}

	if err := s.checkPassword(user, params.CurrentPassword); err != nil {
		return nil, err
	}

	if params.Passcode != "" {
		if err := s.verifyOTP(ctx, user, params.Passcode, otp.PurposeBackupRegenerate, params.IP); err != nil {
			return nil, err
		}
	}

	codes, err := s.backupService.GenerateCodes(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to regenerate backup codes: %w", err)
	}

	slog.Info("Backup codes regenerated", "userId", user.ID)
	return codes, nil
}

// SendLoginOTP issues the login-time challenge passcode
func (s *Service) SendLoginOTP(ctx context.Context, params SendLoginOTPParams) error {
	user, err := s.users.GetByID(ctx, params.UserID)
	if err != nil {
		return err
	}

	if !user.TwoFactorEnabled {
		return ErrNotEnabled
	}

	return s.sendOTP(ctx, user, otp.PurposeLogin, params.IP)
}

// VerifyLogin answers the login-time challenge with either the delivered
// passcode or, when UseBackupCode is set, a single-use backup code. A
// successful verification stamps the last-used time (best effort).
func (s *Service) VerifyLogin(ctx context.Context, params VerifyLoginParams) error {
	user, err := s.users.GetByID(ctx, params.UserID)
	if err != nil {
		return err
	}

	if !user.TwoFactorEnabled {
		return ErrNotEnabled
	}

	if params.UseBackupCode {
		err = s.verifyBackupCode(ctx, user, params.Passcode, params.IP)
	} else {
		err = s.verifyOTP(ctx, user, params.Passcode, otp.PurposeLogin, params.IP)
	}
	if err != nil {
		return err
	}

	s.UpdateLastUsed(ctx, user.ID)
	return nil
}

// Status returns the account's two-factor projection
func (s *Service) Status(ctx context.Context, userID uuid.UUID) (Status, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return Status{}, err
	}

	return Status{
		Enabled:              user.TwoFactorEnabled,
		BackupCodesRemaining: user.BackupCodesRemaining,
		LastUsedAt:           user.TwoFactorLastUsed,
	}, nil
}

// IsEnabled reports whether the account has two-factor auth turned on
func (s *Service) IsEnabled(ctx context.Context, userID uuid.UUID) (bool, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return user.TwoFactorEnabled, nil
}

// UpdateLastUsed stamps the last successful verification. Best effort:
// failures are logged and swallowed.
func (s *Service) UpdateLastUsed(ctx context.Context, userID uuid.UUID) {
	if err := s.users.TouchTwoFactorLastUsed(ctx, userID, time.Now().UTC()); err != nil {
		slog.Error("Failed to update two-factor last-used", "userId", userID, "err", err)
	}
}

// checkPassword verifies the current password. Federated accounts carry no
// local hash and skip the check.
func (s *Service) checkPassword(user User, current string) error {
	if user.Federated() {
		return nil
	}

	match, err := s.hasher.Verify(current, user.PasswordHash)
	if err != nil || !match {
		return ErrInvalidPassword
	}
	return nil
}

// sendOTP runs the rate-limit gate, issues and dispatches the passcode and
// records the outcome in the attempt ledger. Limiter refusals are not
// recorded; nothing was sent.
func (s *Service) sendOTP(ctx context.Context, user User, purpose otp.Purpose, ip string) error {
	allowed, err := s.limiter.CanSendOTP(ctx, ratelimit.UserIdentity(user.ID), ip)
	if err != nil {
		return fmt.Errorf("failed to check send rate limit: %w", err)
	}
	if !allowed {
		return s.rateLimitError(ctx, user.ID)
	}

	sendErr := s.otpService.SendOTP(ctx, user.ID, user.Email, purpose)

	s.limiter.RecordAttempt(ctx, ratelimit.RecordAttemptParams{
		UserID:      uuid.NullUUID{UUID: user.ID, Valid: true},
		Email:       user.Email,
		IPAddress:   ip,
		AttemptType: ratelimit.AttemptTypeSendOTP,
		Success:     sendErr == nil,
	})

	return sendErr
}

// verifyOTP runs the rate-limit gate, verifies the passcode and records the
// outcome in the attempt ledger.
func (s *Service) verifyOTP(ctx context.Context, user User, passcode string, purpose otp.Purpose, ip string) error {
	allowed, err := s.limiter.CanVerifyOTP(ctx, ratelimit.UserIdentity(user.ID), ip)
	if err != nil {
		return fmt.Errorf("failed to check verify rate limit: %w", err)
	}
	if !allowed {
		return s.rateLimitError(ctx, user.ID)
	}

	verifyErr := s.otpService.VerifyOTP(ctx, user.ID, passcode, purpose)

	s.limiter.RecordAttempt(ctx, ratelimit.RecordAttemptParams{
		UserID:      uuid.NullUUID{UUID: user.ID, Valid: true},
		Email:       user.Email,
		IPAddress:   ip,
		AttemptType: ratelimit.AttemptTypeVerifyOTP,
		Success:     verifyErr == nil,
	})

	if verifyErr != nil {
		if errors.Is(verifyErr, otp.ErrCodeInvalid) {
			return ErrPasscodeInvalid
		}
		return verifyErr
	}
	return nil
}

// verifyBackupCode is the backup-code variant of verifyOTP
func (s *Service) verifyBackupCode(ctx context.Context, user User, presented string, ip string) error {
	allowed, err := s.limiter.CanVerifyOTP(ctx, ratelimit.UserIdentity(user.ID), ip)
	if err != nil {
		return fmt.Errorf("failed to check verify rate limit: %w", err)
	}
	if !allowed {
		return s.rateLimitError(ctx, user.ID)
	}

	verifyErr := s.backupService.VerifyAndConsume(ctx, user.ID, presented)

	s.limiter.RecordAttempt(ctx, ratelimit.RecordAttemptParams{
		UserID:      uuid.NullUUID{UUID: user.ID, Valid: true},
		Email:       user.Email,
		IPAddress:   ip,
		AttemptType: ratelimit.AttemptTypeVerifyOTP,
		Success:     verifyErr == nil,
	})

	if verifyErr != nil {
		if errors.Is(verifyErr, backupcode.ErrCodeInvalid) {
			return ErrPasscodeInvalid
		}
		return verifyErr
	}
	return nil
}

// rateLimitError builds the refusal error, attaching whichever wait applies
func (s *Service) rateLimitError(ctx context.Context, userID uuid.UUID) error {
	if remaining, err := s.limiter.GetLockoutRemaining(ctx, userID); err == nil && remaining > 0 {
		return &RateLimitError{RetryAfter: remaining}
	}
	if cooldown, err := s.limiter.GetSendCooldown(ctx, userID); err == nil && cooldown > 0 {
		return &RateLimitError{RetryAfter: cooldown}
	}
	return &RateLimitError{}
}

// sendNotice dispatches a lifecycle confirmation, best effort
func (s *Service) sendNotice(noticeType notification.NoticeType, user User) {
	if s.notificationManager == nil {
		return
	}

	err := s.notificationManager.Send(noticeType, notification.NotificationData{
		To:   user.Email,
		Data: map[string]string{"Email": user.Email},
	})
	if err != nil {
		slog.Error("Failed to send confirmation notice", "noticeType", noticeType, "userId", user.ID, "err", err)
	}
}
