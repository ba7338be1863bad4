package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresAttemptRepository implements AttemptRepository using PostgreSQL
type PostgresAttemptRepository struct {
	db *pgxpool.Pool
}

// NewPostgresAttemptRepository creates a new PostgreSQL-based attempt repository
func NewPostgresAttemptRepository(db *pgxpool.Pool) *PostgresAttemptRepository {
	return &PostgresAttemptRepository{db: db}
}

// RecordAttempt appends one ledger row
func (r *PostgresAttemptRepository) RecordAttempt(ctx context.Context, params RecordAttemptParams) (uuid.UUID, error) {
	attemptedAt := params.AttemptedAt
	if attemptedAt.IsZero() {
		attemptedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO otp_attempts (user_id, email, ip_address, attempt_type, success, attempted_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	var id uuid.UUID
	err := r.db.QueryRow(ctx, query,
		params.UserID,
		params.Email,
		params.IPAddress,
		string(params.AttemptType),
		params.Success,
		attemptedAt,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, err
	}

	return id, nil
}

// CountByIdentity counts attempts of one type for an identity strictly after Since
func (r *PostgresAttemptRepository) CountByIdentity(ctx context.Context, params CountByIdentityParams) (int64, error) {
	var (
		query string
		key   interface{}
	)

	if params.Identity.UserID.Valid {
		query = `
			SELECT COUNT(*) FROM otp_attempts
			WHERE user_id = $1 AND attempt_type = $2 AND attempted_at > $3
		`
		key = params.Identity.UserID.UUID
	} else {
		query = `
			SELECT COUNT(*) FROM otp_attempts
			WHERE email = $1 AND attempt_type = $2 AND attempted_at > $3
		`
		key = params.Identity.Email
	}

	var count int64
	err := r.db.QueryRow(ctx, query, key, string(params.AttemptType), params.Since).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// CountByIP counts all attempts from an IP strictly after since
func (r *PostgresAttemptRepository) CountByIP(ctx context.Context, ip string, since time.Time) (int64, error) {
	query := `
		SELECT COUNT(*) FROM otp_attempts
		WHERE ip_address = $1 AND attempted_at > $2
	`

	var count int64
	err := r.db.QueryRow(ctx, query, ip, since).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// CountByIPAndType counts attempts of one type from an IP strictly after since
func (r *PostgresAttemptRepository) CountByIPAndType(ctx context.Context, ip string, attemptType AttemptType, since time.Time) (int64, error) {
	query := `
		SELECT COUNT(*) FROM otp_attempts
		WHERE ip_address = $1 AND attempt_type = $2 AND attempted_at > $3
	`

	var count int64
	err := r.db.QueryRow(ctx, query, ip, string(attemptType), since).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// CountFailedByUser counts failed attempts of any type for a user strictly after since
func (r *PostgresAttemptRepository) CountFailedByUser(ctx context.Context, userID uuid.UUID, since time.Time) (int64, error) {
	query := `
		SELECT COUNT(*) FROM otp_attempts
		WHERE user_id = $1 AND success = FALSE AND attempted_at > $2
	`

	var count int64
	err := r.db.QueryRow(ctx, query, userID, since).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// OldestByIdentity returns the oldest counted attempt within the window
func (r *PostgresAttemptRepository) OldestByIdentity(ctx context.Context, params CountByIdentityParams) (Attempt, error) {
	var (
		query string
		key   interface{}
	)

	if params.Identity.UserID.Valid {
		query = `
			SELECT id, user_id, email, ip_address, attempt_type, success, attempted_at
			FROM otp_attempts
			WHERE user_id = $1 AND attempt_type = $2 AND attempted_at > $3
			ORDER BY attempted_at ASC
			LIMIT 1
		`
		key = params.Identity.UserID.UUID
	} else {
		query = `
			SELECT id, user_id, email, ip_address, attempt_type, success, attempted_at
			FROM otp_attempts
			WHERE email = $1 AND attempt_type = $2 AND attempted_at > $3
			ORDER BY attempted_at ASC
			LIMIT 1
		`
		key = params.Identity.Email
	}

	return r.scanAttempt(r.db.QueryRow(ctx, query, key, string(params.AttemptType), params.Since))
}

// LatestFailedByUser returns the most recent failed attempt within the window
func (r *PostgresAttemptRepository) LatestFailedByUser(ctx context.Context, userID uuid.UUID, since time.Time) (Attempt, error) {
	query := `
		SELECT id, user_id, email, ip_address, attempt_type, success, attempted_at
		FROM otp_attempts
		WHERE user_id = $1 AND success = FALSE AND attempted_at > $2
		ORDER BY attempted_at DESC
		LIMIT 1
	`

	return r.scanAttempt(r.db.QueryRow(ctx, query, userID, since))
}

// DeleteOlderThan removes ledger rows older than the cutoff; returns rows deleted
func (r *PostgresAttemptRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM otp_attempts WHERE attempted_at < $1`

	tag, err := r.db.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *PostgresAttemptRepository) scanAttempt(row pgx.Row) (Attempt, error) {
	var (
		a           Attempt
		attemptType string
	)
	err := row.Scan(&a.ID, &a.UserID, &a.Email, &a.IPAddress, &attemptType, &a.Success, &a.AttemptedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Attempt{}, ErrNoAttempts
		}
		return Attempt{}, err
	}
	a.AttemptType = AttemptType(attemptType)
	return a, nil
}
