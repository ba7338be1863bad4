package otp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relieflink/authcore/pkg/notification"
)

func newTestNotificationManager(t *testing.T) (*notification.NotificationManager, *notification.MockNotifier) {
	t.Helper()

	mock := &notification.MockNotifier{}
	nm := notification.NewNotificationManager()
	nm.RegisterNotifier(notification.EmailSystem, mock)
	err := nm.RegisterNotification(notification.TwofaPasscodeNotice, notification.EmailSystem, notification.NoticeTemplate{
		Subject: "Your verification code",
		Text:    "Your code is {{.Passcode}}",
	})
	require.NoError(t, err)

	return nm, mock
}

// storedCode fetches the live code straight from the repository
func storedCode(t *testing.T, repo CodeRepository, userID uuid.UUID, purpose Purpose) Code {
	t.Helper()
	code, err := repo.GetByUserPurpose(context.Background(), userID, purpose)
	require.NoError(t, err)
	return code
}

func TestSendOTP(t *testing.T) {
	repo := NewInMemCodeRepository()
	nm, mock := newTestNotificationManager(t)
	service := NewService(repo, nm)
	ctx := context.Background()

	userID := uuid.New()
	err := service.SendOTP(ctx, userID, "user@example.com", PurposeSetup)
	require.NoError(t, err)

	code := storedCode(t, repo, userID, PurposeSetup)
	assert.Len(t, code.Code, 6)
	assert.Regexp(t, `^\d{6}$`, code.Code)
	assert.Equal(t, int32(0), code.AttemptCount)
	assert.Nil(t, code.UsedAt)
	assert.WithinDuration(t, time.Now().UTC().Add(5*time.Minute), code.ExpiresAt, 10*time.Second)

	require.Len(t, mock.SentNotifications, 1)
	assert.Equal(t, "user@example.com", mock.SentNotifications[0].To)
	assert.Equal(t, code.Code, mock.SentNotifications[0].Data["Passcode"])
}

func TestSendOTP_SupersedesPrevious(t *testing.T) {
	repo := NewInMemCodeRepository()
	nm, _ := newTestNotificationManager(t)
	service := NewService(repo, nm)
	ctx := context.Background()

	userID := uuid.New()
	require.NoError(t, service.SendOTP(ctx, userID, "user@example.com", PurposeLogin))
	first := storedCode(t, repo, userID, PurposeLogin)

	require.NoError(t, service.SendOTP(ctx, userID, "user@example.com", PurposeLogin))
	second := storedCode(t, repo, userID, PurposeLogin)

	assert.NotEqual(t, first.ID, second.ID)

	// The superseded code is gone; only the fresh one verifies
	if first.Code != second.Code {
		err := service.VerifyOTP(ctx, userID, first.Code, PurposeLogin)
		assert.ErrorIs(t, err, ErrCodeInvalid)
	}
	require.NoError(t, service.VerifyOTP(ctx, userID, second.Code, PurposeLogin))
}

func TestSendOTP_PurposesAreIndependent(t *testing.T) {
	repo := NewInMemCodeRepository()
	nm, _ := newTestNotificationManager(t)
	service := NewService(repo, nm)
	ctx := context.Background()

	userID := uuid.New()
	require.NoError(t, service.SendOTP(ctx, userID, "user@example.com", PurposeSetup))
	require.NoError(t, service.SendOTP(ctx, userID, "user@example.com", PurposeDisable))

	setupCode := storedCode(t, repo, userID, PurposeSetup)

	// A code issued for one purpose never verifies under another
	err := service.VerifyOTP(ctx, userID, setupCode.Code, PurposeDisable)
	if setupCode.Code != storedCode(t, repo, userID, PurposeDisable).Code {
		assert.ErrorIs(t, err, ErrCodeInvalid)
	}

	require.NoError(t, service.VerifyOTP(ctx, userID, setupCode.Code, PurposeSetup))
}

func TestSendOTP_DeliveryFailureRemovesCode(t *testing.T) {
	repo := NewInMemCodeRepository()
	nm, mock := newTestNotificationManager(t)
	mock.Err = errors.New("smtp unavailable")
	service := NewService(repo, nm)
	ctx := context.Background()

	userID := uuid.New()
	err := service.SendOTP(ctx, userID, "user@example.com", PurposeSetup)
	assert.ErrorIs(t, err, ErrDeliveryFailed)

	_, err = repo.GetByUserPurpose(ctx, userID, PurposeSetup)
	assert.ErrorIs(t, err, ErrCodeNotFound)
}

func TestSendOTP_InvalidPurpose(t *testing.T) {
	repo := NewInMemCodeRepository()
	nm, _ := newTestNotificationManager(t)
	service := NewService(repo, nm)

	err := service.SendOTP(context.Background(), uuid.New(), "user@example.com", Purpose("bogus"))
	assert.ErrorIs(t, err, ErrInvalidPurpose)
}

func TestVerifyOTP_Success(t *testing.T) {
	repo := NewInMemCodeRepository()
	nm, _ := newTestNotificationManager(t)
	service := NewService(repo, nm)
	ctx := context.Background()

	userID := uuid.New()
	require.NoError(t, service.SendOTP(ctx, userID, "user@example.com", PurposeSetup))
	code := storedCode(t, repo, userID, PurposeSetup)

	require.NoError(t, service.VerifyOTP(ctx, userID, code.Code, PurposeSetup))

	// Single use: the same code never verifies twice
	err := service.VerifyOTP(ctx, userID, code.Code, PurposeSetup)
	assert.ErrorIs(t, err, ErrCodeInvalid)
}

func TestVerifyOTP_NoCodeOutstanding(t *testing.T) {
	repo := NewInMemCodeRepository()
	nm, _ := newTestNotificationManager(t)
	service := NewService(repo, nm)

	err := service.VerifyOTP(context.Background(), uuid.New(), "123456", PurposeLogin)
	assert.ErrorIs(t, err, ErrCodeInvalid)
}

func TestVerifyOTP_WrongCodeConsumesAttempt(t *testing.T) {
	repo := NewInMemCodeRepository()
	nm, _ := newTestNotificationManager(t)
	service := NewService(repo, nm)
	ctx := context.Background()

	userID := uuid.New()
	require.NoError(t, service.SendOTP(ctx, userID, "user@example.com", PurposeSetup))
	code := storedCode(t, repo, userID, PurposeSetup)

	wrong := "000000"
	if wrong == code.Code {
		wrong = "000001"
	}

	err := service.VerifyOTP(ctx, userID, wrong, PurposeSetup)
	assert.ErrorIs(t, err, ErrCodeInvalid)

	after := storedCode(t, repo, userID, PurposeSetup)
	assert.Equal(t, int32(1), after.AttemptCount)
}

func TestVerifyOTP_AttemptCapBlocksCorrectCode(t *testing.T) {
	repo := NewInMemCodeRepository()
	nm, _ := newTestNotificationManager(t)
	service := NewService(repo, nm, WithMaxAttempts(5))
	ctx := context.Background()

	userID := uuid.New()
	require.NoError(t, service.SendOTP(ctx, userID, "user@example.com", PurposeSetup))
	code := storedCode(t, repo, userID, PurposeSetup)

	wrong := "000000"
	if wrong == code.Code {
		wrong = "000001"
	}

	for i := 0; i < 5; i++ {
		err := service.VerifyOTP(ctx, userID, wrong, PurposeSetup)
		assert.ErrorIs(t, err, ErrCodeInvalid)
	}

	// The sixth attempt finds the code exhausted; even the correct value fails
	err := service.VerifyOTP(ctx, userID, code.Code, PurposeSetup)
	assert.ErrorIs(t, err, ErrCodeInvalid)

	// The exhausted code was deleted outright
	_, err = repo.GetByUserPurpose(ctx, userID, PurposeSetup)
	assert.ErrorIs(t, err, ErrCodeNotFound)
}

func TestVerifyOTP_Expired(t *testing.T) {
	repo := NewInMemCodeRepository()
	nm, _ := newTestNotificationManager(t)
	service := NewService(repo, nm)
	ctx := context.Background()

	userID := uuid.New()
	code, err := repo.Create(ctx, CreateCodeParams{
		UserID:    userID,
		Code:      "123456",
		Purpose:   PurposeLogin,
		ExpiresAt: time.Now().UTC().Add(-time.Second),
	})
	require.NoError(t, err)

	err = service.VerifyOTP(ctx, userID, code.Code, PurposeLogin)
	assert.ErrorIs(t, err, ErrCodeInvalid)
}

func TestInvalidateAll(t *testing.T) {
	repo := NewInMemCodeRepository()
	nm, _ := newTestNotificationManager(t)
	service := NewService(repo, nm)
	ctx := context.Background()

	userID := uuid.New()
	require.NoError(t, service.SendOTP(ctx, userID, "user@example.com", PurposeLogin))
	require.NoError(t, service.SendOTP(ctx, userID, "user@example.com", PurposeDisable))

	require.NoError(t, service.InvalidateAll(ctx, userID))

	_, err := repo.GetByUserPurpose(ctx, userID, PurposeLogin)
	assert.ErrorIs(t, err, ErrCodeNotFound)
	_, err = repo.GetByUserPurpose(ctx, userID, PurposeDisable)
	assert.ErrorIs(t, err, ErrCodeNotFound)
}

func TestCleanupExpired(t *testing.T) {
	repo := NewInMemCodeRepository()
	nm, _ := newTestNotificationManager(t)
	service := NewService(repo, nm)
	ctx := context.Background()

	userID := uuid.New()
	_, err := repo.Create(ctx, CreateCodeParams{
		UserID:    userID,
		Code:      "111111",
		Purpose:   PurposeLogin,
		ExpiresAt: time.Now().UTC().Add(-time.Minute),
	})
	require.NoError(t, err)
	require.NoError(t, service.SendOTP(ctx, userID, "user@example.com", PurposeSetup))

	deleted, err := service.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	// The live code survives
	_, err = repo.GetByUserPurpose(ctx, userID, PurposeSetup)
	require.NoError(t, err)
}

func TestGenerateNumericCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, err := generateNumericCode(6)
		require.NoError(t, err)
		assert.Regexp(t, `^\d{6}$`, code)
		seen[code] = true
	}
	// 50 draws from a million values collide with negligible probability
	assert.Greater(t, len(seen), 45)
}
