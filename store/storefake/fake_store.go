package storefake

import (
	"context"

	"github.com/ceasapp/auth-service/store"
	"github.com/ceasapp/auth-service/token/refresh"
	refreshrepofake "github.com/ceasapp/auth-service/token/refresh/repofake"
	"github.com/ceasapp/auth-service/users"
	userrepofake "github.com/ceasapp/auth-service/users/repofake"
)

var _ store.Store = (*FakeStore)(nil)

// FakeStore backs the Store contract with in-memory fakes. WithinTx simply
// runs fn against the same repositories; tests that need failure injection
// can swap the repo fields.
type FakeStore struct {
	UserRepo         users.Repo
	RefreshTokenRepo refresh.Repo
}

func NewFakeStore() *FakeStore {
	return &FakeStore{
		UserRepo:         userrepofake.NewFakeUserRepo(),
		RefreshTokenRepo: refreshrepofake.NewFakeRefreshTokenRepo(),
	}
}

func (f *FakeStore) Users() users.Repo {
	return f.UserRepo
}

func (f *FakeStore) RefreshTokens() refresh.Repo {
	return f.RefreshTokenRepo
}

func (f *FakeStore) WithinTx(ctx context.Context, fn func(ctx context.Context, s store.Store) error) error {
	return fn(ctx, f)
}
