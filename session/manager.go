// Package session orchestrates issuance, rotation, and revocation of the
// access/refresh token pairs that authenticate every request to the API.
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	apperrors "github.com/ceasapp/auth-service/internal/errors"
	"github.com/ceasapp/auth-service/store"
	"github.com/ceasapp/auth-service/token"
	"github.com/ceasapp/auth-service/token/refresh"
	"github.com/ceasapp/auth-service/users"
)

// refreshTokenSeparator splits the public jti from the secret half in the
// opaque string handed to clients.
const refreshTokenSeparator = "."

// TokenPair is what a client receives on login and on every rotation. It is
// transient: the access token is self-contained, the refresh token's secret
// half exists nowhere else once this value is returned.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// SecretHasher hashes refresh-token secrets one way and verifies candidates
// against stored digests.
type SecretHasher interface {
	Hash(secret string) (string, error)
	Verify(secret, digest string) bool
}

// Manager composes the store, the access-token codec, and the secret hasher
// into the session lifecycle operations.
type Manager struct {
	store        store.Store
	codec        *token.Codec
	hasher       SecretHasher
	refreshTTL   time.Duration
	secretLength int
	nowFunc      func() time.Time
}

// ManagerOption modifies a Manager during construction.
type ManagerOption func(*Manager)

// WithNowFunc sets the now time function (primarily for testing)
func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

// WithSecretLength overrides the entropy, in bytes, behind each refresh
// secret.
func WithSecretLength(n int) ManagerOption {
	return func(m *Manager) {
		m.secretLength = n
	}
}

// NewManager initializes a Manager with its required dependencies.
func NewManager(s store.Store, codec *token.Codec, hasher SecretHasher, refreshTTL time.Duration, options ...ManagerOption) (*Manager, error) {
	if s == nil {
		return nil, errors.New("[NewManager] store is required")
	}
	if codec == nil {
		return nil, errors.New("[NewManager] codec is required")
	}
	if hasher == nil {
		return nil, errors.New("[NewManager] hasher is required")
	}

	m := &Manager{
		store:        s,
		codec:        codec,
		hasher:       hasher,
		refreshTTL:   refreshTTL,
		secretLength: 48,
		nowFunc:      time.Now,
	}

	for _, opt := range options {
		opt(m)
	}

	return m, nil
}

// IssueSession exchanges an identity assertion, already verified upstream,
// for a fresh token pair. Unknown emails are provisioned just in time; this
// is the only path that creates a user, and the user insert commits
// atomically with the first refresh-token insert.
func (m *Manager) IssueSession(ctx context.Context, email, fullName, externalID string) (*TokenPair, error) {
	if email == "" {
		return nil, apperrors.ErrUnauthenticated
	}

	var refreshToken string
	err := m.store.WithinTx(ctx, func(ctx context.Context, s store.Store) error {
		user, err := s.Users().GetByEmail(ctx, email)
		if err != nil {
			if !errors.Is(err, apperrors.ErrNotFound) {
				return errors.Wrap(err, "Manager.IssueSession GetByEmail")
			}
			user = &users.User{
				ID:         uuid.NewString(),
				Email:      email,
				FullName:   fullName,
				ExternalID: externalID,
				CreatedAt:  m.nowFunc(),
			}
			if err := s.Users().Create(ctx, user); err != nil {
				return errors.Wrap(err, "Manager.IssueSession Create user")
			}
		}

		refreshToken, err = m.newRefreshToken(ctx, s.RefreshTokens(), user.ID, "")
		return err
	})
	if err != nil {
		return nil, err
	}

	accessToken, err := m.codec.Encode(email, "")
	if err != nil {
		return nil, errors.Wrap(err, "Manager.IssueSession Encode")
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
	}, nil
}

// RotateRefresh exchanges a refresh token for a new pair, revoking the
// presented one. Rotation is single-use: replaying a rotated-away token fails
// even before its expiry, and two racing rotations of the same jti cannot
// both succeed.
func (m *Manager) RotateRefresh(ctx context.Context, rawRefreshToken string) (*TokenPair, error) {
	jti, secret, err := splitRefreshToken(rawRefreshToken)
	if err != nil {
		return nil, err
	}

	now := m.nowFunc()

	rt, err := m.store.RefreshTokens().GetByJTI(ctx, jti)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrInvalidToken
		}
		return nil, errors.Wrap(err, "Manager.RotateRefresh GetByJTI")
	}
	if rt.RevokedAt != nil {
		return nil, apperrors.ErrInvalidToken
	}
	if !rt.ExpiresAt.After(now) {
		// Expired but never revoked: close the row out so it cannot be
		// presented again, then tell the client to re-authenticate.
		if _, err := m.store.RefreshTokens().Revoke(ctx, jti, now); err != nil {
			return nil, errors.Wrap(err, "Manager.RotateRefresh Revoke expired")
		}
		return nil, apperrors.ErrExpiredToken
	}
	// Secret mismatch reads the same as an unknown jti on purpose: a caller
	// probing jtis learns nothing about which ones exist.
	if !m.hasher.Verify(secret, rt.TokenHash) {
		return nil, apperrors.ErrInvalidToken
	}

	user, err := m.store.Users().GetByID(ctx, rt.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrInvalidToken
		}
		return nil, errors.Wrap(err, "Manager.RotateRefresh GetByID")
	}

	var refreshToken string
	err = m.store.WithinTx(ctx, func(ctx context.Context, s store.Store) error {
		revoked, err := s.RefreshTokens().Revoke(ctx, jti, now)
		if err != nil {
			return errors.Wrap(err, "Manager.RotateRefresh Revoke")
		}
		if !revoked {
			// A concurrent rotation already consumed this token.
			return apperrors.ErrInvalidToken
		}
		refreshToken, err = m.newRefreshToken(ctx, s.RefreshTokens(), user.ID, jti)
		return err
	})
	if err != nil {
		return nil, err
	}

	accessToken, err := m.codec.Encode(user.Email, "")
	if err != nil {
		return nil, errors.Wrap(err, "Manager.RotateRefresh Encode")
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
	}, nil
}

// RevokeThisDevice revokes the presented refresh token if it checks out.
// Logout is best-effort: malformed, unknown, already-revoked, or mismatched
// tokens are all absorbed silently, because logout must never fail the client
// over a token that is already unusable.
func (m *Manager) RevokeThisDevice(ctx context.Context, rawRefreshToken string) {
	jti, secret, err := splitRefreshToken(rawRefreshToken)
	if err != nil {
		return
	}
	rt, err := m.store.RefreshTokens().GetByJTI(ctx, jti)
	if err != nil || rt.RevokedAt != nil {
		return
	}
	if !m.hasher.Verify(secret, rt.TokenHash) {
		return
	}
	_, _ = m.store.RefreshTokens().Revoke(ctx, jti, m.nowFunc())
}

// RevokeAllDevices revokes every active refresh token the user holds, in one
// logical operation. Used for "log out everywhere."
func (m *Manager) RevokeAllDevices(ctx context.Context, user *users.User) error {
	if err := m.store.RefreshTokens().RevokeAllForUser(ctx, user.ID, m.nowFunc()); err != nil {
		return errors.Wrap(err, "Manager.RevokeAllDevices RevokeAllForUser")
	}
	return nil
}

// GetCurrentUser resolves an access token to the user it asserts. Decode
// failures and unknown subjects both come back as ErrUnauthenticated, so an
// attacker cannot use this path to test which accounts exist.
func (m *Manager) GetCurrentUser(ctx context.Context, accessToken string) (*users.User, error) {
	claims, err := m.codec.Decode(accessToken)
	if err != nil {
		return nil, apperrors.ErrUnauthenticated
	}
	user, err := m.store.Users().GetByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrUnauthenticated
		}
		return nil, errors.Wrap(err, "Manager.GetCurrentUser GetByEmail")
	}
	return user, nil
}

// ListDevices returns the user's refresh-token records, newest first,
// including revoked and expired rows. The parent links form per-device
// rotation lineages; nothing here includes a secret or its hash.
func (m *Manager) ListDevices(ctx context.Context, user *users.User) ([]*refresh.RefreshToken, error) {
	tokens, err := m.store.RefreshTokens().ListForUser(ctx, user.ID)
	if err != nil {
		return nil, errors.Wrap(err, "Manager.ListDevices ListForUser")
	}
	return tokens, nil
}

// newRefreshToken mints one refresh credential: a 32-char hex jti, a random
// url-safe secret, and a stored row holding only the secret's hash. The
// returned opaque string is the single place the raw secret ever appears.
func (m *Manager) newRefreshToken(ctx context.Context, repo refresh.Repo, userID, parentJTI string) (string, error) {
	id := uuid.New()
	jti := hex.EncodeToString(id[:])

	secretBytes := make([]byte, m.secretLength)
	if _, err := rand.Read(secretBytes); err != nil {
		return "", errors.Wrap(err, "Manager.newRefreshToken rand.Read")
	}
	secret := base64.RawURLEncoding.EncodeToString(secretBytes)

	digest, err := m.hasher.Hash(secret)
	if err != nil {
		return "", errors.Wrap(err, "Manager.newRefreshToken Hash")
	}

	now := m.nowFunc()
	if err := repo.Create(ctx, &refresh.RefreshToken{
		JTI:       jti,
		TokenHash: digest,
		UserID:    userID,
		ParentJTI: parentJTI,
		CreatedAt: now,
		ExpiresAt: now.Add(m.refreshTTL),
	}); err != nil {
		return "", errors.Wrap(err, "Manager.newRefreshToken Create")
	}

	return jti + refreshTokenSeparator + secret, nil
}

// splitRefreshToken parses the opaque "<jti>.<secret>" wire format. It runs
// before any store access so malformed strings never trigger a lookup.
func splitRefreshToken(raw string) (jti, secret string, err error) {
	jti, secret, found := strings.Cut(raw, refreshTokenSeparator)
	if !found || jti == "" || secret == "" {
		return "", "", apperrors.ErrMalformedToken
	}
	return jti, secret, nil
}
