package backupcode

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL-based backup-code repository
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// CreateBatch atomically replaces the user's backup codes with a new batch
func (r *PostgresRepository) CreateBatch(ctx context.Context, userID uuid.UUID, codeHashes []string) ([]BackupCode, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `DELETE FROM backup_codes WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}

	insertQuery := `
		INSERT INTO backup_codes (user_id, code_hash)
		VALUES ($1, $2)
		RETURNING id, user_id, code_hash, used_at, created_at
	`

	codes := make([]BackupCode, 0, len(codeHashes))
	for _, hash := range codeHashes {
		var code BackupCode
		err = tx.QueryRow(ctx, insertQuery, userID, hash).Scan(
			&code.ID,
			&code.UserID,
			&code.CodeHash,
			&code.UsedAt,
			&code.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return codes, nil
}

// FindUnusedByUser returns the user's unconsumed backup codes
func (r *PostgresRepository) FindUnusedByUser(ctx context.Context, userID uuid.UUID) ([]BackupCode, error) {
	query := `
		SELECT id, user_id, code_hash, used_at, created_at
		FROM backup_codes
		WHERE user_id = $1 AND used_at IS NULL
		ORDER BY created_at
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var codes []BackupCode
	for rows.Next() {
		var code BackupCode
		err := rows.Scan(&code.ID, &code.UserID, &code.CodeHash, &code.UsedAt, &code.CreatedAt)
		if err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

// MarkUsed stamps one backup code as consumed
func (r *PostgresRepository) MarkUsed(ctx context.Context, id uuid.UUID, usedAt time.Time) error {
	query := `UPDATE backup_codes SET used_at = $2 WHERE id = $1 AND used_at IS NULL`
	tag, err := r.db.Exec(ctx, query, id, usedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCodeInvalid
	}
	return nil
}

// DeleteByUser removes every backup code for the user
func (r *PostgresRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	query := `DELETE FROM backup_codes WHERE user_id = $1`
	_, err := r.db.Exec(ctx, query, userID)
	return err
}

// CountUnusedByUser counts the user's unconsumed backup codes
func (r *PostgresRepository) CountUnusedByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM backup_codes WHERE user_id = $1 AND used_at IS NULL`

	var count int64
	err := r.db.QueryRow(ctx, query, userID).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}
