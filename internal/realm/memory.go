package realm

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/secctx/go-core/internal/permission"
	"github.com/secctx/go-core/pkg/types"
)

// BCryptCost is the cost parameter for bcrypt password hashing
const BCryptCost = 12

// AccountSpec declares an account registered with a MemoryRealm
type AccountSpec struct {
	UserID      string
	Email       string
	Roles       []string
	Permissions []string
	Attributes  map[string]interface{}
}

type memoryAccount struct {
	passwordHash []byte
	spec         AccountSpec
	permissions  []types.Permission
}

// MemoryRealm authenticates username/password tokens against accounts
// registered programmatically. Passwords are stored as bcrypt hashes.
type MemoryRealm struct {
	mu       sync.RWMutex
	accounts map[string]*memoryAccount
}

// NewMemoryRealm creates an empty memory realm
func NewMemoryRealm() *MemoryRealm {
	return &MemoryRealm{accounts: make(map[string]*memoryAccount)}
}

// Name identifies the realm
func (r *MemoryRealm) Name() string { return "memory" }

// AddAccount registers an account. Permission strings are parsed as
// wildcard permissions; a malformed permission rejects the whole account.
func (r *MemoryRealm) AddAccount(username, password string, spec AccountSpec) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), BCryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	perms, err := parsePermissions(spec.Permissions)
	if err != nil {
		return fmt.Errorf("account %q: %w", username, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[username] = &memoryAccount{
		passwordHash: hash,
		spec:         spec,
		permissions:  perms,
	}
	return nil
}

// Supports reports whether the token is a username/password token
func (r *MemoryRealm) Supports(token types.AuthenticationToken) bool {
	_, ok := token.(*types.UsernamePasswordToken)
	return ok
}

// Authenticate verifies the password and returns the subject's account
func (r *MemoryRealm) Authenticate(_ context.Context, token types.AuthenticationToken) (*types.Account, error) {
	upt, ok := token.(*types.UsernamePasswordToken)
	if !ok {
		return nil, ErrUnsupportedToken
	}

	r.mu.RLock()
	acct, ok := r.accounts[upt.Username]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrUnknownAccount
	}

	if err := bcrypt.CompareHashAndPassword(acct.passwordHash, []byte(upt.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return buildAccount(upt.Username, acct.spec, acct.permissions), nil
}

func buildAccount(username string, spec AccountSpec, perms []types.Permission) *types.Account {
	principals := []types.Principal{types.Username(username)}
	if spec.UserID != "" {
		principals = append(principals, types.UserID(spec.UserID))
	}
	if spec.Email != "" {
		principals = append(principals, types.Email(spec.Email))
	}

	return &types.Account{
		Principals:  principals,
		Roles:       append([]string(nil), spec.Roles...),
		Permissions: append([]types.Permission(nil), perms...),
		Attributes:  spec.Attributes,
	}
}

func parsePermissions(specs []string) ([]types.Permission, error) {
	perms := make([]types.Permission, 0, len(specs))
	for _, s := range specs {
		p, err := permission.NewWildcard(s)
		if err != nil {
			return nil, fmt.Errorf("permission %q: %w", s, err)
		}
		perms = append(perms, p)
	}
	return perms, nil
}
