package refresh

import (
	"context"
	"time"
)

// Repo manages server-side storage of refresh-token records, keyed by jti.
// Lookups never involve the secret half; revocation works on any row found
// by its public identifier.
type Repo interface {
	// Create inserts a new token record.
	Create(ctx context.Context, token *RefreshToken) error

	// GetByJTI returns the record for the given jti, or a not-found error.
	GetByJTI(ctx context.Context, jti string) (*RefreshToken, error)

	// Revoke marks the row revoked iff it is not revoked yet, and reports
	// whether this call performed the transition. Two concurrent revocations
	// of the same jti see exactly one true result; this is what keeps
	// rotation single-use under races.
	Revoke(ctx context.Context, jti string, at time.Time) (bool, error)

	// RevokeAllForUser revokes every currently-active token owned by the
	// user in one statement.
	RevokeAllForUser(ctx context.Context, userID string, at time.Time) error

	// ListForUser returns all of the user's token records, newest first,
	// including revoked and expired ones. The parent links in the result are
	// what an operational layer would walk for stolen-token detection.
	ListForUser(ctx context.Context, userID string) ([]*RefreshToken, error)
}
