// Package session provides session handles and the stores that hold them
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/secctx/go-core/pkg/types"
)

var (
	// ErrSessionNotFound is returned when the store holds no live session
	// for the requested id
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExpired is returned when the session exists but its expiry
	// has passed
	ErrSessionExpired = errors.New("session expired")
)

// Store holds sessions keyed by id. Expire is invoked by security context
// invalidation and must be idempotent: expiring an unknown or already
// expired session is not an error.
type Store interface {
	// Create persists a new session
	Create(ctx context.Context, sess *types.Session) error

	// Lookup returns the live session for id
	Lookup(ctx context.Context, id string) (*types.Session, error)

	// Touch updates the session's last-access time and renews its expiry
	Touch(ctx context.Context, id string) error

	// Expire removes the session
	Expire(ctx context.Context, id string) error
}

// New creates an unsaved session handle with a fresh id and the given
// time to live. A zero ttl produces a session that never expires.
func New(ttl time.Duration) *types.Session {
	now := time.Now().UTC()
	sess := &types.Session{
		ID:             uuid.NewString(),
		StartedAt:      now,
		LastAccessedAt: now,
	}
	if ttl > 0 {
		sess.ExpiresAt = now.Add(ttl)
	}
	return sess
}
