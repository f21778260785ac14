// Package types provides shared types for the security context core
package types

import "time"

// Principal kind discriminators for the built-in principal types.
// Custom principal implementations may introduce their own kinds.
const (
	KindUserID      = "user_id"
	KindUsername    = "username"
	KindEmail       = "email"
	KindX509Subject = "x509_subject"
)

// Principal is a single identifying attribute of a subject (a username,
// a user id, a certificate subject, ...). A subject usually carries more
// than one. Lookup is kind-directed: Kind returns the discriminator used
// by the kind-filtered principal queries.
type Principal interface {
	Kind() string
	String() string
}

// UserID identifies a subject by its unique account id
type UserID string

func (UserID) Kind() string     { return KindUserID }
func (p UserID) String() string { return string(p) }

// Username identifies a subject by its login name
type Username string

func (Username) Kind() string     { return KindUsername }
func (p Username) String() string { return string(p) }

// Email identifies a subject by its email address
type Email string

func (Email) Kind() string     { return KindEmail }
func (p Email) String() string { return string(p) }

// X509Subject identifies a subject by a certificate distinguished name
type X509Subject string

func (X509Subject) Kind() string     { return KindX509Subject }
func (p X509Subject) String() string { return string(p) }

// Permission is an opaque capability descriptor. Implies reports whether
// the rights represented by this (granted) permission are equal to or
// broader than the requested permission p. The implication algorithm is
// owned by the permission implementation; the security context only
// invokes it and aggregates results.
type Permission interface {
	Implies(p Permission) bool
	String() string
}

// Session is the application-level continuity handle bound to an
// authenticated subject.
type Session struct {
	ID             string            `json:"id"`
	StartedAt      time.Time         `json:"started_at"`
	LastAccessedAt time.Time         `json:"last_accessed_at"`
	ExpiresAt      time.Time         `json:"expires_at"`
	Attributes     map[string]string `json:"attributes,omitempty"`
}

// Expired reports whether the session's expiry has passed
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// Account is the result of a successful authentication: the principals
// that identify the subject plus the subject's granted roles and
// permissions. Attributes carry realm-specific metadata (department,
// tenant, ...) consumed by derived-role rules.
type Account struct {
	Principals  []Principal
	Roles       []string
	Permissions []Permission
	Attributes  map[string]interface{}
}
