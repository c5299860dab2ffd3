package users

import "context"

// Repo manages persistent storage of user records. Deleting a user cascades
// deletion of the user's refresh tokens at the schema level.
type Repo interface {
	Create(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	Delete(ctx context.Context, id string) error
}
