package types

import (
	"fmt"
	"strings"
)

// NoSuchPrincipalError is returned by the single-principal queries when no
// principal (or no principal of the requested kind) is associated with the
// context. The batch forms never return it; they return empty collections.
type NoSuchPrincipalError struct {
	// Kind is the requested principal kind, empty for the unfiltered query
	Kind string
}

func (e *NoSuchPrincipalError) Error() string {
	if e.Kind == "" {
		return "no principal associated with this context"
	}
	return fmt.Sprintf("no principal of kind %q associated with this context", e.Kind)
}

// AuthorizationError is returned by the throwing check forms when the
// decision is negative. It is a control-flow signal for guard clauses, not
// a system fault, and is never returned for any reason other than
// "permission not implied".
type AuthorizationError struct {
	// Permissions lists the requested permissions that were not implied
	Permissions []string
}

func (e *AuthorizationError) Error() string {
	if len(e.Permissions) == 0 {
		return "subject is not authorized"
	}
	return fmt.Sprintf("subject does not imply permission(s): %s", strings.Join(e.Permissions, ", "))
}
