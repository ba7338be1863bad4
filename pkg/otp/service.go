package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/relieflink/authcore/pkg/notification"
)

// Service issues, delivers and verifies one-time passcodes.
type Service struct {
	repo                CodeRepository
	notificationManager *notification.NotificationManager
	expiry              time.Duration
	maxAttempts         int32
	codeLength          int
}

// Option defines configuration options
type Option func(*Service)

// WithExpiry sets how long an issued passcode stays valid
func WithExpiry(d time.Duration) Option {
	return func(s *Service) { s.expiry = d }
}

// WithMaxAttempts sets the per-code verification attempt cap
func WithMaxAttempts(n int) Option {
	return func(s *Service) { s.maxAttempts = int32(n) }
}

// WithCodeLength sets the number of digits in a passcode
func WithCodeLength(n int) Option {
	return func(s *Service) { s.codeLength = n }
}

// NewService creates a new passcode service
func NewService(repo CodeRepository, notificationManager *notification.NotificationManager, opts ...Option) *Service {
	service := &Service{
		repo:                repo,
		notificationManager: notificationManager,
		expiry:              5 * time.Minute,
		maxAttempts:         5,
		codeLength:          6,
	}

	for _, opt := range opts {
		opt(service)
	}

	return service
}

// SendOTP generates a fresh passcode for the user and purpose, persists it
// and dispatches it to the given email address. Any previous passcode for
// the same purpose is superseded. When dispatch fails the stored code is
// removed and ErrDeliveryFailed is returned, so no code exists that the
// user can never receive.
func (s *Service) SendOTP(ctx context.Context, userID uuid.UUID, email string, purpose Purpose) error {
	if !purpose.Valid() {
		return ErrInvalidPurpose
	}

	// At most one live code per (user, purpose)
	if err := s.repo.DeleteByUserPurpose(ctx, userID, purpose); err != nil {
		return fmt.Errorf("failed to supersede existing passcode: %w", err)
	}

	plaintext, err := generateNumericCode(s.codeLength)
	if err != nil {
		return fmt.Errorf("failed to generate passcode: %w", err)
	}

	code, err := s.repo.Create(ctx, CreateCodeParams{
		UserID:    userID,
		Code:      plaintext,
		Purpose:   purpose,
		ExpiresAt: time.Now().UTC().Add(s.expiry),
	})
	if err != nil {
		return fmt.Errorf("failed to store passcode: %w", err)
	}

	if s.notificationManager != nil {
		err = s.notificationManager.Send(notification.TwofaPasscodeNotice, notification.NotificationData{
			To: email,
			Data: map[string]string{
				"Passcode":      plaintext,
				"ExpiryMinutes": fmt.Sprintf("%d", int(s.expiry.Minutes())),
			},
		})
		if err != nil {
			slog.Error("Failed to deliver passcode, removing stored code", "userId", userID, "purpose", purpose, "err", err)
			if delErr := s.repo.Delete(ctx, code.ID); delErr != nil {
				slog.Error("Failed to remove undeliverable passcode", "codeId", code.ID, "err", delErr)
			}
			return ErrDeliveryFailed
		}
	}

	slog.Info("Passcode issued", "userId", userID, "purpose", purpose, "expiresAt", code.ExpiresAt)
	return nil
}

// VerifyOTP checks a presented passcode for the user and purpose. Every
// call against a live code consumes one attempt, whether or not the code
// matches. A code that reaches the attempt cap is deleted and the correct
// code no longer verifies. All failure modes surface as ErrCodeInvalid.
func (s *Service) VerifyOTP(ctx context.Context, userID uuid.UUID, presented string, purpose Purpose) error {
	if !purpose.Valid() {
		return ErrInvalidPurpose
	}

	code, err := s.repo.GetByUserPurpose(ctx, userID, purpose)
	if err != nil {
		if errors.Is(err, ErrCodeNotFound) {
			return ErrCodeInvalid
		}
		return fmt.Errorf("failed to load passcode: %w", err)
	}

	now := time.Now().UTC()

	if code.UsedAt != nil || !now.Before(code.ExpiresAt) {
		return ErrCodeInvalid
	}

	if code.AttemptCount >= s.maxAttempts {
		// Exhausted codes are removed so the correct value never verifies late
		if err := s.repo.Delete(ctx, code.ID); err != nil {
			slog.Error("Failed to delete exhausted passcode", "codeId", code.ID, "err", err)
		}
		return ErrCodeInvalid
	}

	// The attempt is consumed before comparison
	if err := s.repo.IncrementAttemptCount(ctx, code.ID); err != nil {
		return fmt.Errorf("failed to record verification attempt: %w", err)
	}

	if presented != code.Code {
		return ErrCodeInvalid
	}

	if err := s.repo.MarkUsed(ctx, code.ID, now); err != nil {
		return fmt.Errorf("failed to consume passcode: %w", err)
	}

	slog.Info("Passcode verified", "userId", userID, "purpose", purpose)
	return nil
}

// InvalidateAll removes every outstanding passcode for the user
func (s *Service) InvalidateAll(ctx context.Context, userID uuid.UUID) error {
	if err := s.repo.DeleteByUser(ctx, userID); err != nil {
		return fmt.Errorf("failed to invalidate passcodes: %w", err)
	}
	return nil
}

// CleanupExpired deletes passcodes past their expiry; returns the number deleted
func (s *Service) CleanupExpired(ctx context.Context) (int64, error) {
	deleted, err := s.repo.DeleteExpired(ctx, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup expired passcodes: %w", err)
	}

	slog.Info("Cleaned up expired passcodes", "deleted", deleted)
	return deleted, nil
}

// generateNumericCode returns a zero-padded numeric string of the given
// length, uniform over the full range.
func generateNumericCode(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("invalid code length: %d", length)
	}

	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%0*d", length, n), nil
}
