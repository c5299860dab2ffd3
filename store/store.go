// Package store wires the repositories to a shared persistent backend and
// exposes a transaction boundary for operations that must commit atomically.
package store

import (
	"context"

	"github.com/ceasapp/auth-service/token/refresh"
	"github.com/ceasapp/auth-service/users"
)

// Store vends repositories bound to one backend handle. WithinTx runs fn
// against a Store whose repositories share a single transaction; it must not
// be nested.
type Store interface {
	Users() users.Repo
	RefreshTokens() refresh.Repo
	WithinTx(ctx context.Context, fn func(ctx context.Context, s Store) error) error
}
