package session_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/ceasapp/auth-service/internal/errors"
	"github.com/ceasapp/auth-service/session"
	"github.com/ceasapp/auth-service/store/storefake"
	"github.com/ceasapp/auth-service/token"
	"github.com/ceasapp/auth-service/token/hasher"
	"github.com/ceasapp/auth-service/token/refresh"
)

const (
	testIssuer   = "ceas"
	testAudience = "ceas-api"
	accessTTL    = 30 * time.Minute
	refreshTTL   = 7 * 24 * time.Hour
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time {
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newTestManager(t *testing.T) (*session.Manager, *storefake.FakeStore, *testClock) {
	t.Helper()

	clock := &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	signer := token.NewHMACSigner("test-secret-key-that-is-long-enough")
	codec := token.NewCodec(signer, testIssuer, testAudience, accessTTL, token.WithNowFunc(clock.Now))
	fakeStore := storefake.NewFakeStore()

	manager, err := session.NewManager(fakeStore, codec, hasher.NewWithCost(bcrypt.MinCost), refreshTTL,
		session.WithNowFunc(clock.Now),
		session.WithSecretLength(16))
	require.NoError(t, err)

	return manager, fakeStore, clock
}

func refreshJTI(t *testing.T, rawRefreshToken string) string {
	t.Helper()
	jti, _, found := strings.Cut(rawRefreshToken, ".")
	require.True(t, found)
	return jti
}

func TestNewManager(t *testing.T) {
	signer := token.NewHMACSigner("test-secret-key-that-is-long-enough")
	codec := token.NewCodec(signer, testIssuer, testAudience, accessTTL)
	h := hasher.NewWithCost(bcrypt.MinCost)

	t.Run("missing store", func(t *testing.T) {
		_, err := session.NewManager(nil, codec, h, refreshTTL)
		require.Error(t, err)
	})

	t.Run("missing codec", func(t *testing.T) {
		_, err := session.NewManager(storefake.NewFakeStore(), nil, h, refreshTTL)
		require.Error(t, err)
	})

	t.Run("missing hasher", func(t *testing.T) {
		_, err := session.NewManager(storefake.NewFakeStore(), codec, nil, refreshTTL)
		require.Error(t, err)
	})
}

func TestManager_IssueSession(t *testing.T) {
	ctx := context.Background()

	t.Run("provisions unknown user and returns bearer pair", func(t *testing.T) {
		manager, fakeStore, clock := newTestManager(t)

		pair, err := manager.IssueSession(ctx, "a@x.com", "Ada", "ext-1")
		require.NoError(t, err)
		require.Equal(t, "bearer", pair.TokenType)
		require.NotEmpty(t, pair.AccessToken)

		jti, secret, found := strings.Cut(pair.RefreshToken, ".")
		require.True(t, found)
		require.Len(t, jti, 32)
		require.NotEmpty(t, secret)

		user, err := fakeStore.Users().GetByEmail(ctx, "a@x.com")
		require.NoError(t, err)
		require.Equal(t, "Ada", user.FullName)
		require.Equal(t, "ext-1", user.ExternalID)

		rt, err := fakeStore.RefreshTokens().GetByJTI(ctx, jti)
		require.NoError(t, err)
		require.Equal(t, user.ID, rt.UserID)
		require.Empty(t, rt.ParentJTI)
		require.Nil(t, rt.RevokedAt)
		require.Equal(t, clock.Now().Add(refreshTTL), rt.ExpiresAt)
		require.NotEqual(t, secret, rt.TokenHash)
		require.True(t, hasher.NewWithCost(bcrypt.MinCost).Verify(secret, rt.TokenHash))
	})

	t.Run("reuses existing user on second login", func(t *testing.T) {
		manager, fakeStore, _ := newTestManager(t)

		_, err := manager.IssueSession(ctx, "a@x.com", "Ada", "")
		require.NoError(t, err)
		first, err := fakeStore.Users().GetByEmail(ctx, "a@x.com")
		require.NoError(t, err)

		_, err = manager.IssueSession(ctx, "a@x.com", "Ada Renamed", "")
		require.NoError(t, err)
		second, err := fakeStore.Users().GetByEmail(ctx, "a@x.com")
		require.NoError(t, err)
		require.Equal(t, first.ID, second.ID)

		tokens, err := fakeStore.RefreshTokens().ListForUser(ctx, first.ID)
		require.NoError(t, err)
		require.Len(t, tokens, 2)
	})

	t.Run("empty email is rejected", func(t *testing.T) {
		manager, _, _ := newTestManager(t)

		_, err := manager.IssueSession(ctx, "", "Ada", "")
		require.ErrorIs(t, err, apperrors.ErrUnauthenticated)
	})
}

func TestManager_RotateRefresh(t *testing.T) {
	ctx := context.Background()

	t.Run("rotation mints a child and consumes the parent", func(t *testing.T) {
		manager, fakeStore, _ := newTestManager(t)

		pair, err := manager.IssueSession(ctx, "a@x.com", "", "")
		require.NoError(t, err)
		firstJTI := refreshJTI(t, pair.RefreshToken)

		rotated, err := manager.RotateRefresh(ctx, pair.RefreshToken)
		require.NoError(t, err)
		require.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)
		require.Equal(t, "bearer", rotated.TokenType)

		old, err := fakeStore.RefreshTokens().GetByJTI(ctx, firstJTI)
		require.NoError(t, err)
		require.NotNil(t, old.RevokedAt)

		child, err := fakeStore.RefreshTokens().GetByJTI(ctx, refreshJTI(t, rotated.RefreshToken))
		require.NoError(t, err)
		require.Equal(t, firstJTI, child.ParentJTI)
		require.Nil(t, child.RevokedAt)
	})

	t.Run("replaying a rotated token fails", func(t *testing.T) {
		manager, _, _ := newTestManager(t)

		pair, err := manager.IssueSession(ctx, "a@x.com", "", "")
		require.NoError(t, err)

		_, err = manager.RotateRefresh(ctx, pair.RefreshToken)
		require.NoError(t, err)

		_, err = manager.RotateRefresh(ctx, pair.RefreshToken)
		require.ErrorIs(t, err, apperrors.ErrInvalidToken)
	})

	t.Run("malformed token never reaches the store", func(t *testing.T) {
		manager, fakeStore, _ := newTestManager(t)
		fakeStore.RefreshTokenRepo = &failingRefreshRepo{t: t}

		for _, raw := range []string{"", "nodot", ".secretonly", "jtionly."} {
			_, err := manager.RotateRefresh(ctx, raw)
			require.ErrorIs(t, err, apperrors.ErrMalformedToken, "input %q", raw)
		}
	})

	t.Run("unknown jti", func(t *testing.T) {
		manager, _, _ := newTestManager(t)

		_, err := manager.RotateRefresh(ctx, "deadbeefdeadbeefdeadbeefdeadbeef.some-secret")
		require.ErrorIs(t, err, apperrors.ErrInvalidToken)
	})

	t.Run("tampered secret reads the same as unknown jti", func(t *testing.T) {
		manager, _, _ := newTestManager(t)

		pair, err := manager.IssueSession(ctx, "a@x.com", "", "")
		require.NoError(t, err)
		jti := refreshJTI(t, pair.RefreshToken)

		_, err = manager.RotateRefresh(ctx, jti+".wrong-secret")
		require.ErrorIs(t, err, apperrors.ErrInvalidToken)
	})

	t.Run("expired token is revoked and reported distinctly", func(t *testing.T) {
		manager, fakeStore, clock := newTestManager(t)

		pair, err := manager.IssueSession(ctx, "a@x.com", "", "")
		require.NoError(t, err)
		jti := refreshJTI(t, pair.RefreshToken)

		clock.Advance(refreshTTL + time.Minute)

		_, err = manager.RotateRefresh(ctx, pair.RefreshToken)
		require.ErrorIs(t, err, apperrors.ErrExpiredToken)

		rt, err := fakeStore.RefreshTokens().GetByJTI(ctx, jti)
		require.NoError(t, err)
		require.NotNil(t, rt.RevokedAt)

		// Once the expiry side effect has landed, the row is revoked and the
		// merged failure takes precedence.
		_, err = manager.RotateRefresh(ctx, pair.RefreshToken)
		require.ErrorIs(t, err, apperrors.ErrInvalidToken)
	})
}

func TestManager_RevokeThisDevice(t *testing.T) {
	ctx := context.Background()

	t.Run("revokes a live token", func(t *testing.T) {
		manager, fakeStore, _ := newTestManager(t)

		pair, err := manager.IssueSession(ctx, "a@x.com", "", "")
		require.NoError(t, err)
		jti := refreshJTI(t, pair.RefreshToken)

		manager.RevokeThisDevice(ctx, pair.RefreshToken)

		rt, err := fakeStore.RefreshTokens().GetByJTI(ctx, jti)
		require.NoError(t, err)
		require.NotNil(t, rt.RevokedAt)

		_, err = manager.RotateRefresh(ctx, pair.RefreshToken)
		require.ErrorIs(t, err, apperrors.ErrInvalidToken)
	})

	t.Run("absorbs malformed, unknown, and mismatched tokens", func(t *testing.T) {
		manager, _, _ := newTestManager(t)

		pair, err := manager.IssueSession(ctx, "a@x.com", "", "")
		require.NoError(t, err)
		jti := refreshJTI(t, pair.RefreshToken)

		manager.RevokeThisDevice(ctx, "garbage")
		manager.RevokeThisDevice(ctx, "deadbeefdeadbeefdeadbeefdeadbeef.x")
		manager.RevokeThisDevice(ctx, jti+".wrong-secret")

		// A mismatched secret must not revoke the real token.
		_, err = manager.RotateRefresh(ctx, pair.RefreshToken)
		require.NoError(t, err)
	})
}

func TestManager_RevokeAllDevices(t *testing.T) {
	ctx := context.Background()
	manager, fakeStore, _ := newTestManager(t)

	first, err := manager.IssueSession(ctx, "a@x.com", "", "")
	require.NoError(t, err)
	second, err := manager.IssueSession(ctx, "a@x.com", "", "")
	require.NoError(t, err)

	user, err := fakeStore.Users().GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	require.NoError(t, manager.RevokeAllDevices(ctx, user))

	_, err = manager.RotateRefresh(ctx, first.RefreshToken)
	require.ErrorIs(t, err, apperrors.ErrInvalidToken)
	_, err = manager.RotateRefresh(ctx, second.RefreshToken)
	require.ErrorIs(t, err, apperrors.ErrInvalidToken)
}

func TestManager_GetCurrentUser(t *testing.T) {
	ctx := context.Background()

	t.Run("resolves the asserted subject", func(t *testing.T) {
		manager, _, _ := newTestManager(t)

		pair, err := manager.IssueSession(ctx, "a@x.com", "Ada", "")
		require.NoError(t, err)

		user, err := manager.GetCurrentUser(ctx, pair.AccessToken)
		require.NoError(t, err)
		require.Equal(t, "a@x.com", user.Email)
	})

	t.Run("expired access token", func(t *testing.T) {
		manager, _, clock := newTestManager(t)

		pair, err := manager.IssueSession(ctx, "a@x.com", "", "")
		require.NoError(t, err)

		clock.Advance(accessTTL + time.Minute)

		_, err = manager.GetCurrentUser(ctx, pair.AccessToken)
		require.ErrorIs(t, err, apperrors.ErrUnauthenticated)
	})

	t.Run("garbage access token", func(t *testing.T) {
		manager, _, _ := newTestManager(t)

		_, err := manager.GetCurrentUser(ctx, "not-a-jwt")
		require.ErrorIs(t, err, apperrors.ErrUnauthenticated)
	})

	t.Run("valid token for a deleted user", func(t *testing.T) {
		manager, fakeStore, _ := newTestManager(t)

		pair, err := manager.IssueSession(ctx, "a@x.com", "", "")
		require.NoError(t, err)

		user, err := fakeStore.Users().GetByEmail(ctx, "a@x.com")
		require.NoError(t, err)
		require.NoError(t, fakeStore.Users().Delete(ctx, user.ID))

		_, err = manager.GetCurrentUser(ctx, pair.AccessToken)
		require.ErrorIs(t, err, apperrors.ErrUnauthenticated)
	})
}

func TestManager_ListDevices(t *testing.T) {
	ctx := context.Background()
	manager, fakeStore, clock := newTestManager(t)

	pair, err := manager.IssueSession(ctx, "a@x.com", "", "")
	require.NoError(t, err)
	jti1 := refreshJTI(t, pair.RefreshToken)

	clock.Advance(time.Minute)
	rotated, err := manager.RotateRefresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	jti2 := refreshJTI(t, rotated.RefreshToken)

	user, err := fakeStore.Users().GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)

	tokens, err := manager.ListDevices(ctx, user)
	require.NoError(t, err)
	require.Len(t, tokens, 2)

	// Newest first, revoked rows included, lineage preserved.
	require.Equal(t, jti2, tokens[0].JTI)
	require.Equal(t, jti1, tokens[0].ParentJTI)
	require.Nil(t, tokens[0].RevokedAt)
	require.Equal(t, jti1, tokens[1].JTI)
	require.NotNil(t, tokens[1].RevokedAt)
}

// Full lifecycle: login, two rotations, then the access token still resolves
// the user while only the newest refresh token rotates.
func TestManager_Lifecycle(t *testing.T) {
	ctx := context.Background()
	manager, fakeStore, _ := newTestManager(t)

	t1, err := manager.IssueSession(ctx, "a@x.com", "Ada", "ext-1")
	require.NoError(t, err)

	t2, err := manager.RotateRefresh(ctx, t1.RefreshToken)
	require.NoError(t, err)

	t3, err := manager.RotateRefresh(ctx, t2.RefreshToken)
	require.NoError(t, err)

	for _, stale := range []string{t1.RefreshToken, t2.RefreshToken} {
		_, err = manager.RotateRefresh(ctx, stale)
		require.ErrorIs(t, err, apperrors.ErrInvalidToken)
	}

	user, err := manager.GetCurrentUser(ctx, t3.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "a@x.com", user.Email)

	tokens, err := manager.ListDevices(ctx, user)
	require.NoError(t, err)
	require.Len(t, tokens, 3)

	_, err = fakeStore.RefreshTokens().GetByJTI(ctx, refreshJTI(t, t3.RefreshToken))
	require.NoError(t, err)
}

// failingRefreshRepo fails the test on any call.
type failingRefreshRepo struct {
	t *testing.T
}

func (r *failingRefreshRepo) Create(context.Context, *refresh.RefreshToken) error {
	r.t.Fatal("unexpected Create call")
	return nil
}

func (r *failingRefreshRepo) GetByJTI(context.Context, string) (*refresh.RefreshToken, error) {
	r.t.Fatal("unexpected GetByJTI call")
	return nil, nil
}

func (r *failingRefreshRepo) Revoke(context.Context, string, time.Time) (bool, error) {
	r.t.Fatal("unexpected Revoke call")
	return false, nil
}

func (r *failingRefreshRepo) RevokeAllForUser(context.Context, string, time.Time) error {
	r.t.Fatal("unexpected RevokeAllForUser call")
	return nil
}

func (r *failingRefreshRepo) ListForUser(context.Context, string) ([]*refresh.RefreshToken, error) {
	r.t.Fatal("unexpected ListForUser call")
	return nil, nil
}
