package session

import (
	"context"
	"sync"
	"time"

	"github.com/secctx/go-core/pkg/types"
)

// MemoryStore is an in-process session store. Expired sessions are dropped
// lazily on access and swept periodically by a background goroutine.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*types.Session

	ttl      time.Duration
	stopChan chan struct{}
	stopOnce sync.Once
}

// MemoryConfig configures the in-process session store
type MemoryConfig struct {
	// TTL applied when Touch renews a session
	TTL time.Duration
	// SweepInterval between expiry sweeps; 0 disables the sweeper
	SweepInterval time.Duration
}

// DefaultMemoryConfig returns the default memory store configuration
func DefaultMemoryConfig() MemoryConfig {
	return MemoryConfig{
		TTL:           30 * time.Minute,
		SweepInterval: time.Minute,
	}
}

// NewMemoryStore creates a memory session store and starts its sweeper
func NewMemoryStore(cfg MemoryConfig) *MemoryStore {
	s := &MemoryStore{
		sessions: make(map[string]*types.Session),
		ttl:      cfg.TTL,
		stopChan: make(chan struct{}),
	}
	if cfg.SweepInterval > 0 {
		go s.sweepLoop(cfg.SweepInterval)
	}
	return s
}

// Create persists a new session
func (s *MemoryStore) Create(_ context.Context, sess *types.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sess
	s.sessions[sess.ID] = &cp
	return nil
}

// Lookup returns the live session for id
func (s *MemoryStore) Lookup(_ context.Context, id string) (*types.Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}

	if sess.Expired(time.Now().UTC()) {
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
		return nil, ErrSessionExpired
	}

	cp := *sess
	return &cp, nil
}

// Touch updates the last-access time and renews the expiry
func (s *MemoryStore) Touch(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	now := time.Now().UTC()
	if sess.Expired(now) {
		delete(s.sessions, id)
		return ErrSessionExpired
	}
	sess.LastAccessedAt = now
	if s.ttl > 0 {
		sess.ExpiresAt = now.Add(s.ttl)
	}
	return nil
}

// Expire removes the session. Unknown ids are not an error.
func (s *MemoryStore) Expire(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// Len returns the number of stored sessions, expired ones included
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Close stops the background sweeper
func (s *MemoryStore) Close() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

func (s *MemoryStore) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *MemoryStore) sweep() {
	now := time.Now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		if sess.Expired(now) {
			delete(s.sessions, id)
		}
	}
}
