package types

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBuiltinPrincipals(t *testing.T) {
	tests := []struct {
		principal Principal
		kind      string
		value     string
	}{
		{UserID("u-1"), KindUserID, "u-1"},
		{Username("alice"), KindUsername, "alice"},
		{Email("alice@example.com"), KindEmail, "alice@example.com"},
		{X509Subject("CN=alice,O=acme"), KindX509Subject, "CN=alice,O=acme"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.kind, tt.principal.Kind())
		assert.Equal(t, tt.value, tt.principal.String())
	}
}

func TestNoSuchPrincipalError(t *testing.T) {
	var err error = &NoSuchPrincipalError{}
	assert.Equal(t, "no principal associated with this context", err.Error())

	err = &NoSuchPrincipalError{Kind: KindEmail}
	assert.Contains(t, err.Error(), `"email"`)

	var target *NoSuchPrincipalError
	assert.True(t, errors.As(err, &target))
}

func TestAuthorizationError(t *testing.T) {
	var err error = &AuthorizationError{}
	assert.Equal(t, "subject is not authorized", err.Error())

	err = &AuthorizationError{Permissions: []string{"doc:read", "doc:write"}}
	assert.Equal(t, "subject does not imply permission(s): doc:read, doc:write", err.Error())
}

func TestSessionExpired(t *testing.T) {
	now := time.Now()

	s := &Session{ExpiresAt: now.Add(time.Minute)}
	assert.False(t, s.Expired(now))
	assert.True(t, s.Expired(now.Add(2*time.Minute)))

	// Zero expiry never expires.
	assert.False(t, (&Session{}).Expired(now.Add(24*time.Hour)))
}

func TestTokens(t *testing.T) {
	var tok AuthenticationToken = &UsernamePasswordToken{Username: "alice", Password: "pw"}
	assert.Equal(t, "alice", tok.TokenPrincipal())
	assert.Equal(t, "pw", tok.TokenCredentials())

	tok = &BearerToken{Token: "raw.jwt.here"}
	assert.Empty(t, tok.TokenPrincipal())
	assert.Equal(t, "raw.jwt.here", tok.TokenCredentials())
}
