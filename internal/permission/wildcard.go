// Package permission provides concrete permission implementations built on
// the opaque implication capability consumed by the security context
package permission

import (
	"errors"
	"strings"

	"github.com/secctx/go-core/pkg/types"
)

const (
	partDivider    = ":"
	subpartDivider = ","
	wildcard       = "*"
)

// ErrEmptyPermission is returned when parsing a blank permission string
var ErrEmptyPermission = errors.New("permission string must not be empty")

// WildcardPermission is a colon-delimited, multi-level permission with
// wildcard support, e.g. "printer:query,print:lp7200". Each colon-delimited
// part may hold several comma-delimited subparts; "*" in a part matches any
// subpart, and a granted permission with fewer parts than the requested one
// implies the missing trailing parts. Matching is case-insensitive unless
// the permission was built with NewWildcardCS.
type WildcardPermission struct {
	parts         []map[string]struct{}
	source        string
	caseSensitive bool
}

// NewWildcard parses a case-insensitive wildcard permission
func NewWildcard(s string) (*WildcardPermission, error) {
	return newWildcard(s, false)
}

// NewWildcardCS parses a case-sensitive wildcard permission
func NewWildcardCS(s string) (*WildcardPermission, error) {
	return newWildcard(s, true)
}

// MustWildcard parses a case-insensitive wildcard permission and panics on
// a malformed string. Intended for static permission literals.
func MustWildcard(s string) *WildcardPermission {
	p, err := NewWildcard(s)
	if err != nil {
		panic(err)
	}
	return p
}

func newWildcard(s string, caseSensitive bool) (*WildcardPermission, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil, ErrEmptyPermission
	}

	var parts []map[string]struct{}
	for _, part := range strings.Split(trimmed, partDivider) {
		subparts := make(map[string]struct{})
		for _, sub := range strings.Split(part, subpartDivider) {
			sub = strings.TrimSpace(sub)
			if sub == "" {
				continue
			}
			if !caseSensitive {
				sub = strings.ToLower(sub)
			}
			subparts[sub] = struct{}{}
		}
		if len(subparts) == 0 {
			return nil, ErrEmptyPermission
		}
		parts = append(parts, subparts)
	}

	return &WildcardPermission{parts: parts, source: trimmed, caseSensitive: caseSensitive}, nil
}

// Implies reports whether this permission's rights cover perm. Only other
// wildcard permissions can be implied; a foreign permission type is never
// implied (the caller may still grant it via its own implication rules).
func (p *WildcardPermission) Implies(perm types.Permission) bool {
	other, ok := perm.(*WildcardPermission)
	if !ok {
		return false
	}

	i := 0
	for _, otherPart := range other.parts {
		// A granted permission with fewer parts than the requested one
		// implies the requested trailing parts.
		if i > len(p.parts)-1 {
			return true
		}
		part := p.parts[i]
		if !containsWildcard(part) && !containsAll(part, otherPart) {
			return false
		}
		i++
	}

	// Trailing parts on the granted side only match if they are wildcards.
	for ; i < len(p.parts); i++ {
		if !containsWildcard(p.parts[i]) {
			return false
		}
	}
	return true
}

func (p *WildcardPermission) String() string {
	return p.source
}

func containsWildcard(part map[string]struct{}) bool {
	_, ok := part[wildcard]
	return ok
}

func containsAll(part, other map[string]struct{}) bool {
	for sub := range other {
		if _, ok := part[sub]; !ok {
			return false
		}
	}
	return true
}

// AllPermission implies every permission, including foreign types
type AllPermission struct{}

func (AllPermission) Implies(types.Permission) bool { return true }
func (AllPermission) String() string                { return "*" }
