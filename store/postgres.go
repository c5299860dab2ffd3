package store

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/ceasapp/auth-service/internal/dbx"
	"github.com/ceasapp/auth-service/migrations"
	"github.com/ceasapp/auth-service/token/refresh"
	"github.com/ceasapp/auth-service/users"
)

// Postgres is the PostgreSQL-backed Store. The handle is either the root
// *sql.DB or, inside WithinTx, the transaction it opened.
type Postgres struct {
	db *sql.DB
	h  dbx.DBTX
}

var _ Store = (*Postgres)(nil)

// NewPostgres constructs a Store over an open pgx database handle.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db, h: db}
}

// Open connects to PostgreSQL via the pgx stdlib driver and verifies the
// connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func (p *Postgres) Users() users.Repo {
	return users.NewPostgresRepo(p.h)
}

func (p *Postgres) RefreshTokens() refresh.Repo {
	return refresh.NewPostgresRepo(p.h)
}

// WithinTx opens a transaction and hands fn a Store whose repositories run
// inside it. Commit on success, rollback on error.
func (p *Postgres) WithinTx(ctx context.Context, fn func(ctx context.Context, s Store) error) error {
	return dbx.WithTx(ctx, p.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, &Postgres{db: p.db, h: tx})
	})
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the backing database.
func (p *Postgres) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return goose.UpContext(ctx, p.db, ".")
}
