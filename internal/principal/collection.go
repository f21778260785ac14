// Package principal provides the kind-discriminated principal collection
// backing a security context
package principal

import (
	"github.com/secctx/go-core/pkg/types"
)

// Collection is an immutable set of principals established at
// authentication time. The primary principal is the first principal in
// authentication order, so repeated Primary calls on the same collection
// always return the same value. Immutability keeps the queries lock-free;
// the owning context swaps the whole collection on invalidation.
type Collection struct {
	principals []types.Principal
}

// NewCollection builds a collection from the given principals. The slice
// is copied; nil entries are dropped.
func NewCollection(principals ...types.Principal) *Collection {
	ps := make([]types.Principal, 0, len(principals))
	for _, p := range principals {
		if p != nil {
			ps = append(ps, p)
		}
	}
	return &Collection{principals: ps}
}

// Empty is the shared empty collection
var Empty = NewCollection()

// IsEmpty reports whether the collection holds no principals
func (c *Collection) IsEmpty() bool {
	return len(c.principals) == 0
}

// Primary returns the primary principal. It returns a
// *types.NoSuchPrincipalError when the collection is empty.
func (c *Collection) Primary() (types.Principal, error) {
	if len(c.principals) == 0 {
		return nil, &types.NoSuchPrincipalError{}
	}
	return c.principals[0], nil
}

// All returns every principal in authentication order. The result is a
// copy and never nil.
func (c *Collection) All() []types.Principal {
	out := make([]types.Principal, len(c.principals))
	copy(out, c.principals)
	return out
}

// ByKind returns the first principal whose kind matches. It returns a
// *types.NoSuchPrincipalError when none match.
func (c *Collection) ByKind(kind string) (types.Principal, error) {
	for _, p := range c.principals {
		if p.Kind() == kind {
			return p, nil
		}
	}
	return nil, &types.NoSuchPrincipalError{Kind: kind}
}

// AllByKind returns every principal whose kind matches, in authentication
// order. The result is never nil.
func (c *Collection) AllByKind(kind string) []types.Principal {
	out := make([]types.Principal, 0)
	for _, p := range c.principals {
		if p.Kind() == kind {
			out = append(out, p)
		}
	}
	return out
}
