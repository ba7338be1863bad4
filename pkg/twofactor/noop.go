package twofactor

import (
	"context"

	"github.com/google/uuid"
)

// NoOpService satisfies TwoFactorService for hosts running without
// two-factor auth. Every account reports disabled; mutating operations
// fail with ErrNotEnabled.
type NoOpService struct{}

// NewNoOpService creates a new no-op two-factor service
func NewNoOpService() *NoOpService {
	return &NoOpService{}
}

var _ TwoFactorService = (*NoOpService)(nil)

func (s *NoOpService) Setup(ctx context.Context, params SetupParams) error {
	return ErrNotEnabled
}

func (s *NoOpService) VerifySetup(ctx context.Context, params VerifySetupParams) (*EnableResult, error) {
	return nil, ErrNotEnabled
}

func (s *NoOpService) Disable(ctx context.Context, params DisableParams) error {
	return ErrNotEnabled
}

func (s *NoOpService) SendDisableOTP(ctx context.Context, userID uuid.UUID, ip string) error {
	return ErrNotEnabled
}

func (s *NoOpService) RegenerateBackupCodes(ctx context.Context, params RegenerateParams) ([]string, error) {
	return nil, ErrNotEnabled
}

func (s *NoOpService) SendLoginOTP(ctx context.Context, params SendLoginOTPParams) error {
	return ErrNotEnabled
}

func (s *NoOpService) VerifyLogin(ctx context.Context, params VerifyLoginParams) error {
	return ErrNotEnabled
}

func (s *NoOpService) Status(ctx context.Context, userID uuid.UUID) (Status, error) {
	return Status{}, nil
}

func (s *NoOpService) IsEnabled(ctx context.Context, userID uuid.UUID) (bool, error) {
	return false, nil
}

func (s *NoOpService) UpdateLastUsed(ctx context.Context, userID uuid.UUID) {}
