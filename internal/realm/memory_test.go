package realm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secctx/go-core/internal/permission"
	"github.com/secctx/go-core/pkg/types"
)

func newTestMemoryRealm(t *testing.T) *MemoryRealm {
	t.Helper()
	r := NewMemoryRealm()
	err := r.AddAccount("alice", "correct horse", AccountSpec{
		UserID:      "u-1",
		Email:       "alice@example.com",
		Roles:       []string{"admin", "editor"},
		Permissions: []string{"doc:*", "printer:print"},
		Attributes:  map[string]interface{}{"department": "engineering"},
	})
	require.NoError(t, err)
	return r
}

func TestMemoryRealm_Supports(t *testing.T) {
	r := NewMemoryRealm()
	assert.True(t, r.Supports(&types.UsernamePasswordToken{}))
	assert.False(t, r.Supports(&types.BearerToken{}))
}

func TestMemoryRealm_Authenticate(t *testing.T) {
	r := newTestMemoryRealm(t)

	acct, err := r.Authenticate(context.Background(), &types.UsernamePasswordToken{
		Username: "alice",
		Password: "correct horse",
	})
	require.NoError(t, err)

	assert.Equal(t, []types.Principal{
		types.Username("alice"),
		types.UserID("u-1"),
		types.Email("alice@example.com"),
	}, acct.Principals)
	assert.Equal(t, []string{"admin", "editor"}, acct.Roles)
	require.Len(t, acct.Permissions, 2)
	assert.True(t, acct.Permissions[0].Implies(permission.MustWildcard("doc:read")))
	assert.Equal(t, "engineering", acct.Attributes["department"])
}

func TestMemoryRealm_WrongPassword(t *testing.T) {
	r := newTestMemoryRealm(t)

	_, err := r.Authenticate(context.Background(), &types.UsernamePasswordToken{
		Username: "alice",
		Password: "wrong",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestMemoryRealm_UnknownAccount(t *testing.T) {
	r := newTestMemoryRealm(t)

	_, err := r.Authenticate(context.Background(), &types.UsernamePasswordToken{
		Username: "mallory",
		Password: "whatever",
	})
	assert.ErrorIs(t, err, ErrUnknownAccount)
}

func TestMemoryRealm_UnsupportedToken(t *testing.T) {
	r := newTestMemoryRealm(t)

	_, err := r.Authenticate(context.Background(), &types.BearerToken{Token: "x"})
	assert.ErrorIs(t, err, ErrUnsupportedToken)
}

func TestMemoryRealm_MalformedPermissionRejectsAccount(t *testing.T) {
	r := NewMemoryRealm()
	err := r.AddAccount("bob", "pw", AccountSpec{Permissions: []string{""}})
	assert.Error(t, err)

	_, err = r.Authenticate(context.Background(), &types.UsernamePasswordToken{
		Username: "bob",
		Password: "pw",
	})
	assert.ErrorIs(t, err, ErrUnknownAccount)
}
