package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestContextAuthorizer(t *testing.T) {
	var a ContextAuthorizer
	ctx := context.Background()

	assert.False(t, a.IsAdmin(ctx))
	_, ok := a.CurrentUser(ctx)
	assert.False(t, ok)

	shopper := WithIdentity(ctx, Identity{Subject: "u1", Role: "customer"})
	assert.False(t, a.IsAdmin(shopper))
	id, ok := a.CurrentUser(shopper)
	require.True(t, ok)
	assert.Equal(t, "u1", id.Subject)

	admin := WithIdentity(ctx, Identity{Subject: "root", Role: RoleAdmin})
	assert.True(t, a.IsAdmin(admin))
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("secret", "swift", time.Hour)

	token, err := issuer.Issue(Identity{Subject: "admin@swift.test", Email: "admin@swift.test", Role: RoleAdmin})
	require.NoError(t, err)

	id, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "admin@swift.test", id.Subject)
	assert.True(t, id.IsAdmin())
}

func TestTokenIssuer_Rejects(t *testing.T) {
	issuer := NewTokenIssuer("secret", "swift", time.Hour)
	good, err := issuer.Issue(Identity{Subject: "s", Role: RoleAdmin})
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		_, err := NewTokenIssuer("other", "swift", time.Hour).Parse(good)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		later := NewTokenIssuer("secret", "swift", time.Hour)
		later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, err := later.Parse(good)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		_, err := NewTokenIssuer("secret", "someone-else", time.Hour).Parse(good)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("unsigned", func(t *testing.T) {
		none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "s", "role": RoleAdmin}).
			SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = issuer.Parse(none)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := issuer.Parse("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestAdminLogin(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)
	issuer := NewTokenIssuer("secret", "swift", time.Hour)
	login := NewAdminLogin("Admin@Swift.test", string(hash), issuer)

	token, err := login.Login("admin@swift.test", "hunter2")
	require.NoError(t, err)
	id, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.True(t, id.IsAdmin())

	_, err = login.Login("admin@swift.test", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = login.Login("someone@swift.test", "hunter2")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = NewAdminLogin("", "", issuer).Login("", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
