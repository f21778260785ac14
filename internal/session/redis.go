package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/secctx/go-core/pkg/types"
)

const defaultKeyPrefix = "secctx:session:"

// RedisConfig configures the Redis session store
type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	// KeyPrefix namespaces session keys; defaults to "secctx:session:"
	KeyPrefix string

	// TTL applied on Create and renewed on Touch. Sessions carrying their
	// own expiry use the remaining time instead.
	TTL time.Duration

	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultRedisConfig returns the default Redis store configuration
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:         "localhost:6379",
		KeyPrefix:    defaultKeyPrefix,
		TTL:          30 * time.Minute,
		PoolSize:     10,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// RedisStore is a Redis-backed session store. Sessions are stored as JSON
// with expiry delegated to Redis key TTLs, so a crashed process never
// leaves live sessions behind.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
}

// NewRedisStore creates a Redis session store with its own client
func NewRedisStore(cfg RedisConfig) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
	return NewRedisStoreWithClient(client, cfg)
}

// NewRedisStoreWithClient creates a Redis session store on an existing
// client. Used by tests (redismock, miniredis) and by callers sharing a
// client across components.
func NewRedisStoreWithClient(client redis.UniversalClient, cfg RedisConfig) *RedisStore {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultRedisConfig().TTL
	}
	return &RedisStore{client: client, keyPrefix: prefix, ttl: ttl}
}

// Create persists a new session
func (s *RedisStore) Create(ctx context.Context, sess *types.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.client.Set(ctx, s.key(sess.ID), data, s.expiry(sess)).Err(); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

// Lookup returns the live session for id
func (s *RedisStore) Lookup(ctx context.Context, id string) (*types.Session, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup session: %w", err)
	}

	var sess types.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &sess, nil
}

// Touch updates the last-access time and renews the expiry
func (s *RedisStore) Touch(ctx context.Context, id string) error {
	sess, err := s.Lookup(ctx, id)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	sess.LastAccessedAt = now
	if !sess.ExpiresAt.IsZero() {
		sess.ExpiresAt = now.Add(s.ttl)
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.client.Set(ctx, s.key(id), data, s.expiry(sess)).Err(); err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

// Expire removes the session. Unknown ids are not an error.
func (s *RedisStore) Expire(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("expire session: %w", err)
	}
	return nil
}

// Close releases the underlying client
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) key(id string) string {
	return s.keyPrefix + id
}

func (s *RedisStore) expiry(sess *types.Session) time.Duration {
	if sess.ExpiresAt.IsZero() {
		return s.ttl
	}
	remaining := time.Until(sess.ExpiresAt)
	if remaining <= 0 {
		return time.Millisecond
	}
	return remaining
}
