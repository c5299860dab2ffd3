package repofake

import (
	"context"
	"sort"
	"sync"
	"time"

	apperrors "github.com/ceasapp/auth-service/internal/errors"
	"github.com/ceasapp/auth-service/token/refresh"
)

var _ refresh.Repo = (*FakeRefreshTokenRepo)(nil)

type FakeRefreshTokenRepo struct {
	tokens map[string]*refresh.RefreshToken
	lock   sync.RWMutex
}

func NewFakeRefreshTokenRepo() *FakeRefreshTokenRepo {
	return &FakeRefreshTokenRepo{
		tokens: make(map[string]*refresh.RefreshToken),
	}
}

func (tr *FakeRefreshTokenRepo) Create(_ context.Context, token *refresh.RefreshToken) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()

	t := *token
	tr.tokens[t.JTI] = &t
	return nil
}

func (tr *FakeRefreshTokenRepo) GetByJTI(_ context.Context, jti string) (*refresh.RefreshToken, error) {
	tr.lock.RLock()
	defer tr.lock.RUnlock()

	token, ok := tr.tokens[jti]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	t := *token
	return &t, nil
}

func (tr *FakeRefreshTokenRepo) Revoke(_ context.Context, jti string, at time.Time) (bool, error) {
	tr.lock.Lock()
	defer tr.lock.Unlock()

	token, ok := tr.tokens[jti]
	if !ok || token.RevokedAt != nil {
		return false, nil
	}
	revokedAt := at
	token.RevokedAt = &revokedAt
	return true, nil
}

func (tr *FakeRefreshTokenRepo) RevokeAllForUser(_ context.Context, userID string, at time.Time) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()

	for _, token := range tr.tokens {
		if token.UserID == userID && token.RevokedAt == nil {
			revokedAt := at
			token.RevokedAt = &revokedAt
		}
	}
	return nil
}

func (tr *FakeRefreshTokenRepo) ListForUser(_ context.Context, userID string) ([]*refresh.RefreshToken, error) {
	tr.lock.RLock()
	defer tr.lock.RUnlock()

	tokens := make([]*refresh.RefreshToken, 0)
	for _, token := range tr.tokens {
		if token.UserID == userID {
			t := *token
			tokens = append(tokens, &t)
		}
	}
	sort.Slice(tokens, func(i, j int) bool {
		return tokens[i].CreatedAt.After(tokens[j].CreatedAt)
	})
	return tokens, nil
}
