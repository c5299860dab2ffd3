// Package hasher provides one-way hashing and verification for refresh-token
// secrets. Raw secrets are never persisted or compared directly.
package hasher

import "golang.org/x/crypto/bcrypt"

// Hasher hashes secrets with bcrypt, which salts each digest and gives
// constant-time-equivalent verification.
type Hasher struct {
	cost int
}

// New returns a Hasher with the default bcrypt cost.
func New() *Hasher {
	return &Hasher{cost: bcrypt.DefaultCost}
}

// NewWithCost returns a Hasher with an explicit bcrypt cost. Tests use
// bcrypt.MinCost to keep hashing cheap.
func NewWithCost(cost int) *Hasher {
	return &Hasher{cost: cost}
}

// Hash derives an irreversible digest of the secret. Each call salts
// independently, so hashing the same secret twice yields different digests.
func (h *Hasher) Hash(secret string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(secret), h.cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Verify reports whether secret matches digest. It never returns an error:
// any failure, including a corrupt digest, reads as a mismatch.
func (h *Hasher) Verify(secret, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(secret)) == nil
}
