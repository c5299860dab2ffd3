package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

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

func (r *PostgresRepo) Create(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (id, email, full_name, external_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := r.db.ExecContext(ctx, query,
		user.ID, user.Email, nullIfEmpty(user.FullName), nullIfEmpty(user.ExternalID), user.CreatedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepo) GetByEmail(ctx context.Context, email string) (*User, error) {
	query := `
		SELECT id, email, COALESCE(full_name, ''), COALESCE(external_id, ''), created_at
		FROM users
		WHERE email = $1
	`
	return r.scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *PostgresRepo) GetByID(ctx context.Context, id string) (*User, error) {
	query := `
		SELECT id, email, COALESCE(full_name, ''), COALESCE(external_id, ''), created_at
		FROM users
		WHERE id = $1
	`
	return r.scanUser(r.db.QueryRowContext(ctx, query, id))
}

// Delete removes the user row; refresh tokens go with it via the schema's
// ON DELETE CASCADE.
func (r *PostgresRepo) Delete(ctx context.Context, id string) error {
	query := `
		DELETE FROM users
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepo) scanUser(row *sql.Row) (*User, error) {
	user := &User{}
	if err := row.Scan(&user.ID, &user.Email, &user.FullName, &user.ExternalID, &user.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
