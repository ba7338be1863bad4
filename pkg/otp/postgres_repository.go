package otp

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresCodeRepository implements CodeRepository using PostgreSQL
type PostgresCodeRepository struct {
	db *pgxpool.Pool
}

// NewPostgresCodeRepository creates a new PostgreSQL-based passcode repository
func NewPostgresCodeRepository(db *pgxpool.Pool) *PostgresCodeRepository {
	return &PostgresCodeRepository{db: db}
}

// Create persists a new passcode row
func (r *PostgresCodeRepository) Create(ctx context.Context, params CreateCodeParams) (Code, error) {
	query := `
		INSERT INTO otp_codes (user_id, code, purpose, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, code, purpose, expires_at, attempt_count, used_at, created_at
	`

	row := r.db.QueryRow(ctx, query,
		params.UserID,
		params.Code,
		string(params.Purpose),
		params.ExpiresAt,
	)
	return scanCode(row)
}

// GetByUserPurpose returns the live passcode for a user and purpose
func (r *PostgresCodeRepository) GetByUserPurpose(ctx context.Context, userID uuid.UUID, purpose Purpose) (Code, error) {
	query := `
		SELECT id, user_id, code, purpose, expires_at, attempt_count, used_at, created_at
		FROM otp_codes
		WHERE user_id = $1 AND purpose = $2
		ORDER BY created_at DESC
		LIMIT 1
	`

	row := r.db.QueryRow(ctx, query, userID, string(purpose))
	return scanCode(row)
}

// DeleteByUserPurpose removes any passcode for the user and purpose
func (r *PostgresCodeRepository) DeleteByUserPurpose(ctx context.Context, userID uuid.UUID, purpose Purpose) error {
	query := `DELETE FROM otp_codes WHERE user_id = $1 AND purpose = $2`
	_, err := r.db.Exec(ctx, query, userID, string(purpose))
	return err
}

// DeleteByUser removes every passcode for the user
func (r *PostgresCodeRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	query := `DELETE FROM otp_codes WHERE user_id = $1`
	_, err := r.db.Exec(ctx, query, userID)
	return err
}

// IncrementAttemptCount adds one to the passcode's attempt count
func (r *PostgresCodeRepository) IncrementAttemptCount(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE otp_codes SET attempt_count = attempt_count + 1 WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCodeNotFound
	}
	return nil
}

// MarkUsed stamps the passcode as consumed
func (r *PostgresCodeRepository) MarkUsed(ctx context.Context, id uuid.UUID, usedAt time.Time) error {
	query := `UPDATE otp_codes SET used_at = $2 WHERE id = $1 AND used_at IS NULL`
	tag, err := r.db.Exec(ctx, query, id, usedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCodeNotFound
	}
	return nil
}

// Delete removes one passcode row
func (r *PostgresCodeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM otp_codes WHERE id = $1`
	_, err := r.db.Exec(ctx, query, id)
	return err
}

// DeleteExpired removes passcodes whose expiry is before the cutoff; returns rows deleted
func (r *PostgresCodeRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	query := `DELETE FROM otp_codes WHERE expires_at < $1`
	tag, err := r.db.Exec(ctx, query, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanCode(row pgx.Row) (Code, error) {
	var (
		code    Code
		purpose string
	)
	err := row.Scan(
		&code.ID,
		&code.UserID,
		&code.Code,
		&purpose,
		&code.ExpiresAt,
		&code.AttemptCount,
		&code.UsedAt,
		&code.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Code{}, ErrCodeNotFound
		}
		return Code{}, err
	}
	code.Purpose = Purpose(purpose)
	return code, nil
}
