package twofactor

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresUserRepository implements UserRepository over the users table.
// Hosts with their own user store supply their own implementation instead.
type PostgresUserRepository struct {
	db *pgxpool.Pool
}

// NewPostgresUserRepository creates a new PostgreSQL-based user repository
func NewPostgresUserRepository(db *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

// GetByID returns the account with the given ID
func (r *PostgresUserRepository) GetByID(ctx context.Context, id uuid.UUID) (User, error) {
	query := `
		SELECT id, email, password_hash, two_factor_enabled, backup_codes_remaining, two_factor_last_used
		FROM users
		WHERE id = $1
	`

	var user User
	err := r.db.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.TwoFactorEnabled,
		&user.BackupCodesRemaining,
		&user.TwoFactorLastUsed,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}
	return user, nil
}

// SetTwoFactorEnabled flips the two-factor flag
func (r *PostgresUserRepository) SetTwoFactorEnabled(ctx context.Context, id uuid.UUID, enabled bool) error {
	query := `UPDATE users SET two_factor_enabled = $2 WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, id, enabled)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SetBackupCodesRemaining updates the denormalized remaining-codes counter
func (r *PostgresUserRepository) SetBackupCodesRemaining(ctx context.Context, id uuid.UUID, remaining int32) error {
	query := `UPDATE users SET backup_codes_remaining = $2 WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, id, remaining)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// TouchTwoFactorLastUsed stamps the last successful two-factor verification
func (r *PostgresUserRepository) TouchTwoFactorLastUsed(ctx context.Context, id uuid.UUID, usedAt time.Time) error {
	query := `UPDATE users SET two_factor_last_used = $2 WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, id, usedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}
