package refresh

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ceasapp/auth-service/internal/dbx"
	apperrors "github.com/ceasapp/auth-service/internal/errors"
)

// PostgresRepo implements Repo over dbx.DBTX (satisfied by *sql.DB or *sql.Tx).
type PostgresRepo struct {
	db dbx.DBTX
}

// NewPostgresRepo constructs a repository bound to the given DBTX.
func NewPostgresRepo(db dbx.DBTX) *PostgresRepo {
	return &PostgresRepo{db: db}
}

var _ Repo = (*PostgresRepo)(nil)

func (r *PostgresRepo) Create(ctx context.Context, token *RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (jti, token_hash, user_id, parent_jti, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := r.db.ExecContext(ctx, query,
		token.JTI, token.TokenHash, token.UserID, nullIfEmpty(token.ParentJTI),
		token.CreatedAt, token.ExpiresAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepo) GetByJTI(ctx context.Context, jti string) (*RefreshToken, error) {
	query := `
		SELECT jti, token_hash, user_id, COALESCE(parent_jti, ''), created_at, expires_at, revoked_at
		FROM refresh_tokens
		WHERE jti = $1
	`
	token := &RefreshToken{}
	var revokedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, query, jti).Scan(
		&token.JTI, &token.TokenHash, &token.UserID, &token.ParentJTI,
		&token.CreatedAt, &token.ExpiresAt, &revokedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if revokedAt.Valid {
		token.RevokedAt = &revokedAt.Time
	}
	return token, nil
}

// Revoke is a single-row compare-and-set on "not yet revoked". Concurrent
// rotations of the same jti serialize here: whichever statement matches the
// row wins, the other sees zero rows affected.
func (r *PostgresRepo) Revoke(ctx context.Context, jti string, at time.Time) (bool, error) {
	query := `
		UPDATE refresh_tokens
		SET revoked_at = $2
		WHERE jti = $1 AND revoked_at IS NULL
	`
	res, err := r.db.ExecContext(ctx, query, jti, at)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return affected == 1, nil
}

func (r *PostgresRepo) RevokeAllForUser(ctx context.Context, userID string, at time.Time) error {
	query := `
		UPDATE refresh_tokens
		SET revoked_at = $2
		WHERE user_id = $1 AND revoked_at IS NULL
	`
	if _, err := r.db.ExecContext(ctx, query, userID, at); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepo) ListForUser(ctx context.Context, userID string) ([]*RefreshToken, error) {
	query := `
		SELECT jti, token_hash, user_id, COALESCE(parent_jti, ''), created_at, expires_at, revoked_at
		FROM refresh_tokens
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	tokens := make([]*RefreshToken, 0)
	for rows.Next() {
		token := &RefreshToken{}
		var revokedAt sql.NullTime
		if err := rows.Scan(
			&token.JTI, &token.TokenHash, &token.UserID, &token.ParentJTI,
			&token.CreatedAt, &token.ExpiresAt, &revokedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if revokedAt.Valid {
			token.RevokedAt = &revokedAt.Time
		}
		tokens = append(tokens, token)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return tokens, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
