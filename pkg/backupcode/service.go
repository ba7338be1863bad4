package backupcode

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/relieflink/authcore/pkg/password"
)

// codeAlphabet excludes visually ambiguous characters (0/O, 1/I/L)
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// UserStore is the slice of user persistence the backup-code service needs:
// keeping the denormalized remaining-codes counter in step with the store.
type UserStore interface {
	SetBackupCodesRemaining(ctx context.Context, userID uuid.UUID, remaining int32) error
}

// Service generates, verifies and consumes single-use recovery codes.
type Service struct {
	repo       Repository
	users      UserStore
	hasher     password.Hasher
	batchSize  int
	codeLength int
}

// Option defines configuration options
type Option func(*Service)

// WithBatchSize sets how many codes a batch contains
func WithBatchSize(n int) Option {
	return func(s *Service) { s.batchSize = n }
}

// WithCodeLength sets the length of each generated code
func WithCodeLength(n int) Option {
	return func(s *Service) { s.codeLength = n }
}

// NewService creates a new backup-code service
func NewService(repo Repository, users UserStore, hasher password.Hasher, opts ...Option) *Service {
	service := &Service{
		repo:       repo,
		users:      users,
		hasher:     hasher,
		batchSize:  8,
		codeLength: 8,
	}

	for _, opt := range opts {
		opt(service)
	}

	return service
}

// GenerateCodes replaces the user's backup codes with a fresh batch and
// returns the plaintext values. This is the only time the plaintext exists;
// only bcrypt hashes are stored.
func (s *Service) GenerateCodes(ctx context.Context, userID uuid.UUID) ([]string, error) {
	plaintexts := make([]string, 0, s.batchSize)
	hashes := make([]string, 0, s.batchSize)

	for i := 0; i < s.batchSize; i++ {
		code, err := generateCode(s.codeLength)
		if err != nil {
			return nil, fmt.Errorf("failed to generate backup code: %w", err)
		}

		hash, err := s.hasher.Hash(code)
		if err != nil {
			return nil, fmt.Errorf("failed to hash backup code: %w", err)
		}

		plaintexts = append(plaintexts, code)
		hashes = append(hashes, hash)
	}

	if _, err := s.repo.CreateBatch(ctx, userID, hashes); err != nil {
		return nil, fmt.Errorf("failed to store backup codes: %w", err)
	}

	if err := s.users.SetBackupCodesRemaining(ctx, userID, int32(s.batchSize)); err != nil {
		return nil, fmt.Errorf("failed to update remaining-codes counter: %w", err)
	}

	slog.Info("Backup codes generated", "userId", userID, "count", s.batchSize)
	return plaintexts, nil
}

// VerifyAndConsume checks a presented code against the user's unused codes
// and marks the matching one used. A consumed code never verifies again.
// No match yields ErrCodeInvalid.
func (s *Service) VerifyAndConsume(ctx context.Context, userID uuid.UUID, presented string) error {
	codes, err := s.repo.FindUnusedByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load backup codes: %w", err)
	}

	for _, code := range codes {
		match, err := s.hasher.Verify(presented, code.CodeHash)
		if err != nil {
			return fmt.Errorf("failed to verify backup code: %w", err)
		}
		if !match {
			continue
		}

		if err := s.repo.MarkUsed(ctx, code.ID, time.Now().UTC()); err != nil {
			return fmt.Errorf("failed to consume backup code: %w", err)
		}

		remaining := int32(len(codes)) - 1
		if remaining < 0 {
			remaining = 0
		}
		if err := s.users.SetBackupCodesRemaining(ctx, userID, remaining); err != nil {
			slog.Error("Failed to update remaining-codes counter", "userId", userID, "err", err)
		}

		slog.Info("Backup code consumed", "userId", userID, "remaining", remaining)
		return nil
	}

	return ErrCodeInvalid
}

// InvalidateAll removes every backup code for the user and zeroes the counter
func (s *Service) InvalidateAll(ctx context.Context, userID uuid.UUID) error {
	if err := s.repo.DeleteByUser(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete backup codes: %w", err)
	}
	if err := s.users.SetBackupCodesRemaining(ctx, userID, 0); err != nil {
		return fmt.Errorf("failed to update remaining-codes counter: %w", err)
	}
	return nil
}

// CountRemaining returns how many unused backup codes the user holds
func (s *Service) CountRemaining(ctx context.Context, userID uuid.UUID) (int64, error) {
	count, err := s.repo.CountUnusedByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to count backup codes: %w", err)
	}
	return count, nil
}

// generateCode returns a random code over the unambiguous alphabet
func generateCode(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("invalid code length: %d", length)
	}

	alphabetLen := big.NewInt(int64(len(codeAlphabet)))
	buf := make([]byte, length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", err
		}
		buf[i] = codeAlphabet[n.Int64()]
	}

	return string(buf), nil
}
