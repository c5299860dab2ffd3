package repofake

import (
	"context"
	"sync"

	apperrors "github.com/ceasapp/auth-service/internal/errors"
	"github.com/ceasapp/auth-service/users"
)

var _ users.Repo = (*FakeUserRepo)(nil)

type FakeUserRepo struct {
	byID    map[string]*users.User
	byEmail map[string]string // email to user ID
	lock    sync.RWMutex
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{
		byID:    make(map[string]*users.User),
		byEmail: make(map[string]string),
	}
}

func (ur *FakeUserRepo) Create(_ context.Context, user *users.User) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	if _, ok := ur.byEmail[user.Email]; ok {
		return apperrors.ErrInternal
	}
	u := *user
	ur.byID[u.ID] = &u
	ur.byEmail[u.Email] = u.ID
	return nil
}

func (ur *FakeUserRepo) GetByEmail(_ context.Context, email string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	id, ok := ur.byEmail[email]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	u := *ur.byID[id]
	return &u, nil
}

func (ur *FakeUserRepo) GetByID(_ context.Context, id string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	user, ok := ur.byID[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	u := *user
	return &u, nil
}

func (ur *FakeUserRepo) Delete(_ context.Context, id string) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	user, ok := ur.byID[id]
	if !ok {
		return nil
	}
	delete(ur.byEmail, user.Email)
	delete(ur.byID, id)
	return nil
}
