// Package token implements the access-token codec: short-lived signed bearer
// assertions carrying subject, expiry, unique id, issuer, and audience claims.
package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	apperrors "github.com/ceasapp/auth-service/internal/errors"
)

// Claims are the assertions encoded inside a signed access token. They are
// transient: encoded on issue, recovered on decode, never persisted.
type Claims struct {
	jwt.RegisteredClaims
}

// Codec signs and verifies access tokens with a server-wide symmetric key.
type Codec struct {
	signer   Signer
	issuer   string
	audience string
	expiry   time.Duration
	nowFunc  func() time.Time
}

type CodecOption func(*Codec)

// WithNowFunc sets the now time function (primarily for testing)
func WithNowFunc(now func() time.Time) CodecOption {
	return func(c *Codec) {
		c.nowFunc = now
	}
}

// NewCodec creates a codec bound to the given signer, issuer/audience pair,
// and access-token lifetime.
func NewCodec(signer Signer, issuer, audience string, expiry time.Duration, options ...CodecOption) *Codec {
	c := &Codec{
		signer:   signer,
		issuer:   issuer,
		audience: audience,
		expiry:   expiry,
		nowFunc:  time.Now,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Encode builds and signs an access token for the given subject. When jti is
// empty a random unique id is generated.
func (c *Codec) Encode(subject string, jti string) (string, error) {
	if jti == "" {
		jti = uuid.NewString()
	}
	now := c.nowFunc()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(c.expiry)),
			ID:        jti,
			Issuer:    c.issuer,
			Audience:  jwt.ClaimStrings{c.audience},
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return c.signer.Sign(claims)
}

// Decode verifies the signature, issuer, audience, and expiry of a signed
// access token atomically and returns its claims. Every failure mode comes
// back as ErrInvalidToken: callers must treat them identically as
// "unauthenticated" and never surface the cause.
func (c *Codec) Decode(signed string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(signed, claims, c.signer.GetVerificationKey,
		jwt.WithValidMethods([]string{c.signer.GetSigningMethod().Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithAudience(c.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.nowFunc),
	)
	if err != nil || !parsed.Valid {
		return nil, apperrors.ErrInvalidToken
	}
	return claims, nil
}
