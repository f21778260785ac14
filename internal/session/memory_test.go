package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMemoryStore(t *testing.T, ttl time.Duration) *MemoryStore {
	t.Helper()
	s := NewMemoryStore(MemoryConfig{TTL: ttl})
	t.Cleanup(s.Close)
	return s
}

func TestNew_FreshHandle(t *testing.T) {
	sess := New(time.Minute)
	assert.NotEmpty(t, sess.ID)
	assert.False(t, sess.StartedAt.IsZero())
	assert.Equal(t, sess.StartedAt, sess.LastAccessedAt)
	assert.True(t, sess.ExpiresAt.After(sess.StartedAt))

	other := New(time.Minute)
	assert.NotEqual(t, sess.ID, other.ID)
}

func TestNew_ZeroTTL(t *testing.T) {
	sess := New(0)
	assert.True(t, sess.ExpiresAt.IsZero())
	assert.False(t, sess.Expired(time.Now().Add(time.Hour)))
}

func TestMemoryStore_CreateLookup(t *testing.T) {
	s := newTestMemoryStore(t, time.Minute)
	ctx := context.Background()

	sess := New(time.Minute)
	require.NoError(t, s.Create(ctx, sess))

	got, err := s.Lookup(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)
}

func TestMemoryStore_LookupUnknown(t *testing.T) {
	s := newTestMemoryStore(t, time.Minute)

	_, err := s.Lookup(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemoryStore_LookupExpired(t *testing.T) {
	s := newTestMemoryStore(t, time.Minute)
	ctx := context.Background()

	sess := New(time.Millisecond)
	require.NoError(t, s.Create(ctx, sess))
	time.Sleep(5 * time.Millisecond)

	_, err := s.Lookup(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrSessionExpired)

	// The expired entry was dropped on access.
	_, err = s.Lookup(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemoryStore_Touch(t *testing.T) {
	s := newTestMemoryStore(t, time.Hour)
	ctx := context.Background()

	sess := New(time.Minute)
	require.NoError(t, s.Create(ctx, sess))
	require.NoError(t, s.Touch(ctx, sess.ID))

	got, err := s.Lookup(ctx, sess.ID)
	require.NoError(t, err)
	assert.True(t, got.ExpiresAt.After(sess.ExpiresAt))
	assert.False(t, got.LastAccessedAt.Before(sess.LastAccessedAt))

	assert.ErrorIs(t, s.Touch(ctx, "nope"), ErrSessionNotFound)
}

func TestMemoryStore_ExpireIdempotent(t *testing.T) {
	s := newTestMemoryStore(t, time.Minute)
	ctx := context.Background()

	sess := New(time.Minute)
	require.NoError(t, s.Create(ctx, sess))

	require.NoError(t, s.Expire(ctx, sess.ID))
	_, err := s.Lookup(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// Expiring again, or expiring an unknown id, is not an error.
	require.NoError(t, s.Expire(ctx, sess.ID))
	require.NoError(t, s.Expire(ctx, "nope"))
}

func TestMemoryStore_Sweep(t *testing.T) {
	s := NewMemoryStore(MemoryConfig{TTL: time.Minute, SweepInterval: 5 * time.Millisecond})
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, New(time.Millisecond)))
	require.NoError(t, s.Create(ctx, New(time.Hour)))

	assert.Eventually(t, func() bool { return s.Len() == 1 }, time.Second, 5*time.Millisecond)
}

func TestMemoryStore_LookupReturnsCopy(t *testing.T) {
	s := newTestMemoryStore(t, time.Minute)
	ctx := context.Background()

	sess := New(time.Minute)
	require.NoError(t, s.Create(ctx, sess))

	got, err := s.Lookup(ctx, sess.ID)
	require.NoError(t, err)
	got.ID = "mutated"

	again, err := s.Lookup(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, again.ID)
}
