// Package refresh holds the persisted records behind opaque refresh tokens.
// A client-held refresh token is "<jti>.<secret>": the jti is a public lookup
// key, the secret is only ever stored as a one-way hash.
package refresh

import "time"

// RefreshToken is one issued refresh credential. Rows transition exactly once,
// from active to revoked, and are kept afterwards for audit; expired rows are
// simply unusable.
type RefreshToken struct {
	JTI       string     // Public, non-secret unique identifier (lookup key)
	TokenHash string     // One-way hash of the secret half; the secret is never stored
	UserID    string     // Owning user
	ParentJTI string     // jti this token rotated from; empty for a fresh login
	CreatedAt time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time // Set once, never cleared
}

// Usable reports whether the token can still mint a new pair: not revoked and
// not past its expiry.
func (t *RefreshToken) Usable(now time.Time) bool {
	return t.RevokedAt == nil && t.ExpiresAt.After(now)
}
