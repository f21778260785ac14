// Package realm provides the authentication collaborators that produce the
// principal sets and grants backing a security context
package realm

import (
	"context"
	"errors"

	"github.com/secctx/go-core/pkg/types"
)

var (
	// ErrUnknownAccount is returned when no account matches the token's principal
	ErrUnknownAccount = errors.New("unknown account")

	// ErrInvalidCredentials is returned when the submitted credentials do not match
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUnsupportedToken is returned when a realm cannot handle the token type
	ErrUnsupportedToken = errors.New("unsupported authentication token")
)

// Realm authenticates tokens against a single account source
type Realm interface {
	// Name identifies the realm in logs and audit events
	Name() string

	// Supports tests whether the supplied token can be handled by this realm
	Supports(token types.AuthenticationToken) bool

	// Authenticate verifies the token and returns the subject's account.
	// It returns ErrUnknownAccount, ErrInvalidCredentials, or
	// ErrUnsupportedToken on the corresponding failure.
	Authenticate(ctx context.Context, token types.AuthenticationToken) (*types.Account, error)
}
