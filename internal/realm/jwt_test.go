package realm

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secctx/go-core/internal/permission"
	"github.com/secctx/go-core/pkg/types"
)

const testSecret = "unit-test-secret"

func signToken(t *testing.T, claims *Claims, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func testClaims() *Claims {
	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u-1",
			Issuer:    "secctx-test",
			Audience:  jwt.ClaimStrings{"secctx-api"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		UserID:   "u-1",
		Username: "alice",
		Email:    "alice@example.com",
		Roles:    []string{"admin"},
		Scopes:   []string{"doc:*"},
		TenantID: "acme",
	}
}

func newTestJWTRealm(t *testing.T) *JWTRealm {
	t.Helper()
	r, err := NewJWTRealm(JWTConfig{
		Secret:   testSecret,
		Issuer:   "secctx-test",
		Audience: "secctx-api",
	})
	require.NoError(t, err)
	return r
}

func TestJWTConfig_Validate(t *testing.T) {
	assert.Error(t, (&JWTConfig{}).Validate())
	assert.NoError(t, (&JWTConfig{Secret: "s"}).Validate())
}

func TestJWTRealm_Supports(t *testing.T) {
	r := newTestJWTRealm(t)
	assert.True(t, r.Supports(&types.BearerToken{}))
	assert.False(t, r.Supports(&types.UsernamePasswordToken{}))
}

func TestJWTRealm_Authenticate(t *testing.T) {
	r := newTestJWTRealm(t)

	raw := signToken(t, testClaims(), testSecret)
	acct, err := r.Authenticate(context.Background(), &types.BearerToken{Token: raw})
	require.NoError(t, err)

	assert.Equal(t, []types.Principal{
		types.Username("alice"),
		types.UserID("u-1"),
		types.Email("alice@example.com"),
	}, acct.Principals)
	assert.Equal(t, []string{"admin"}, acct.Roles)
	require.Len(t, acct.Permissions, 1)
	assert.True(t, acct.Permissions[0].Implies(permission.MustWildcard("doc:read")))
	assert.Equal(t, "acme", acct.Attributes["tenant_id"])
}

func TestJWTRealm_SubjectFallback(t *testing.T) {
	r := newTestJWTRealm(t)

	claims := testClaims()
	claims.UserID = ""
	claims.Username = ""
	claims.Email = ""
	raw := signToken(t, claims, testSecret)

	acct, err := r.Authenticate(context.Background(), &types.BearerToken{Token: raw})
	require.NoError(t, err)
	assert.Equal(t, []types.Principal{types.UserID("u-1")}, acct.Principals)
}

func TestJWTRealm_RejectsForgedToken(t *testing.T) {
	r := newTestJWTRealm(t)

	raw := signToken(t, testClaims(), "other-secret")
	_, err := r.Authenticate(context.Background(), &types.BearerToken{Token: raw})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestJWTRealm_RejectsExpiredToken(t *testing.T) {
	r := newTestJWTRealm(t)

	claims := testClaims()
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
	raw := signToken(t, claims, testSecret)

	_, err := r.Authenticate(context.Background(), &types.BearerToken{Token: raw})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestJWTRealm_RejectsWrongIssuer(t *testing.T) {
	r := newTestJWTRealm(t)

	claims := testClaims()
	claims.Issuer = "someone-else"
	raw := signToken(t, claims, testSecret)

	_, err := r.Authenticate(context.Background(), &types.BearerToken{Token: raw})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestJWTRealm_RejectsNoIdentity(t *testing.T) {
	r := newTestJWTRealm(t)

	claims := testClaims()
	claims.Subject = ""
	claims.UserID = ""
	claims.Username = ""
	claims.Email = ""
	raw := signToken(t, claims, testSecret)

	_, err := r.Authenticate(context.Background(), &types.BearerToken{Token: raw})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestJWTRealm_EmptyToken(t *testing.T) {
	r := newTestJWTRealm(t)

	_, err := r.Authenticate(context.Background(), &types.BearerToken{})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
