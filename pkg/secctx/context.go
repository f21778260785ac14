// Package secctx provides the per-subject security context: the single
// decision surface the application consults for principal, role,
// permission, and session queries.
package secctx

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/secctx/go-core/internal/audit"
	"github.com/secctx/go-core/internal/cache"
	"github.com/secctx/go-core/internal/metrics"
	"github.com/secctx/go-core/internal/principal"
	"github.com/secctx/go-core/internal/session"
	"github.com/secctx/go-core/pkg/types"
)

// Config configures a security context. Principals, Roles, and Permissions
// describe the authenticated subject; they are copied and immutable for
// the context's lifetime.
type Config struct {
	Principals  []types.Principal
	Roles       []string
	Permissions []types.Permission

	// Session is the bound application session, nil when none is associated
	Session *types.Session

	// SessionStore is told to expire the bound session on invalidation
	SessionStore session.Store

	// Authenticated marks the subject as having completed authentication
	Authenticated bool

	// CacheSize enables the per-context decision cache when positive
	CacheSize int
	CacheTTL  time.Duration

	// Metrics defaults to no-op when nil
	Metrics metrics.Metrics

	// Audit defaults to a disabled logger when nil
	Audit *audit.Logger
}

// Context is the security context for a single subject. It is safe for
// concurrent use: queries take a read lock and Invalidate takes the write
// lock, so a reader observes either the fully active or the fully
// invalidated state, never a partially cleared one.
//
// A context is created by Manager.Login or, for externally authenticated
// subjects, by New. Invalidation is terminal; a fresh login must construct
// a new context.
type Context struct {
	mu          sync.RWMutex
	invalidated bool

	authenticated bool
	principals    *principal.Collection
	roles         map[string]struct{}
	granted       []types.Permission
	session       *types.Session

	store   session.Store
	cache   *cache.Decisions
	metrics metrics.Metrics
	audit   *audit.Logger

	// subject is the primary principal at construction, retained for
	// audit events after invalidation clears the principal set
	subject string
}

// New creates an active security context for an authenticated subject
func New(cfg Config) *Context {
	roles := make(map[string]struct{}, len(cfg.Roles))
	for _, r := range cfg.Roles {
		roles[r] = struct{}{}
	}

	granted := make([]types.Permission, 0, len(cfg.Permissions))
	for _, p := range cfg.Permissions {
		if p != nil {
			granted = append(granted, p)
		}
	}

	m := cfg.Metrics
	if m == nil {
		m = metrics.NewNoOpMetrics()
	}
	a := cfg.Audit
	if a == nil {
		a = audit.NewWithLogger(nil)
	}

	var dc *cache.Decisions
	if cfg.CacheSize > 0 {
		dc = cache.NewDecisions(cfg.CacheSize, cfg.CacheTTL)
	}

	principals := principal.NewCollection(cfg.Principals...)
	subject := ""
	if p, err := principals.Primary(); err == nil {
		subject = p.String()
	}

	return &Context{
		authenticated: cfg.Authenticated,
		principals:    principals,
		roles:         roles,
		granted:       granted,
		session:       cfg.Session,
		store:         cfg.SessionStore,
		cache:         dc,
		metrics:       m,
		audit:         a,
		subject:       subject,
	}
}

// Principal returns the subject's primary principal: the first principal
// in authentication order, stable across calls for a given context. It
// returns a *types.NoSuchPrincipalError when the context holds no
// principals (anonymous or invalidated).
func (c *Context) Principal() (types.Principal, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.principals.Primary()
}

// AllPrincipals returns every principal associated with the context. The
// result is never nil; an anonymous or invalidated context yields an
// empty slice.
func (c *Context) AllPrincipals() []types.Principal {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.principals.All()
}

// PrincipalByKind returns a principal of the requested kind. When several
// match, the first in authentication order is returned. It returns a
// *types.NoSuchPrincipalError when none match.
func (c *Context) PrincipalByKind(kind string) (types.Principal, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.principals.ByKind(kind)
}

// AllPrincipalsByKind returns every principal of the requested kind,
// empty slice when none match.
func (c *Context) AllPrincipalsByKind(kind string) []types.Principal {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.principals.AllByKind(kind)
}

// HasRole reports whether the subject is a member of the role. Absence of
// membership is a normal false, never an error.
func (c *Context) HasRole(role string) bool {
	start := time.Now()
	c.mu.RLock()
	granted := c.hasRoleLocked(role)
	c.mu.RUnlock()
	c.metrics.RecordCheck(metrics.CheckKindRole, granted, time.Since(start))
	return granted
}

// HasRoles evaluates HasRole for every id independently and returns the
// element-aligned results: out[i] == HasRole(roles[i]) for all i. All
// entries are evaluated against a single state snapshot.
func (c *Context) HasRoles(roles []string) []bool {
	out := make([]bool, len(roles))
	c.mu.RLock()
	for i, r := range roles {
		start := time.Now()
		out[i] = c.hasRoleLocked(r)
		c.metrics.RecordCheck(metrics.CheckKindRole, out[i], time.Since(start))
	}
	c.mu.RUnlock()
	return out
}

// HasAllRoles reports whether the subject holds every listed role. An
// empty input is vacuously true.
func (c *Context) HasAllRoles(roles []string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, r := range roles {
		if !c.hasRoleLocked(r) {
			return false
		}
	}
	return true
}

// Implies reports whether the subject's granted permissions imply p
func (c *Context) Implies(p types.Permission) bool {
	start := time.Now()
	c.mu.RLock()
	granted := c.impliesLocked(p)
	c.mu.RUnlock()
	c.metrics.RecordCheck(metrics.CheckKindPermission, granted, time.Since(start))
	return granted
}

// ImpliesEach evaluates Implies for every permission independently and
// returns the element-aligned results: out[i] == Implies(perms[i]) for
// all i. All entries are evaluated against a single state snapshot.
func (c *Context) ImpliesEach(perms []types.Permission) []bool {
	out := make([]bool, len(perms))
	c.mu.RLock()
	for i, p := range perms {
		start := time.Now()
		out[i] = c.impliesLocked(p)
		c.metrics.RecordCheck(metrics.CheckKindPermission, out[i], time.Since(start))
	}
	c.mu.RUnlock()
	return out
}

// ImpliesAll reports whether every listed permission is implied. An empty
// input is vacuously true.
func (c *Context) ImpliesAll(perms []types.Permission) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, p := range perms {
		if !c.impliesLocked(p) {
			return false
		}
	}
	return true
}

// CheckPermission is the guard-clause form of Implies: it returns nil
// exactly when Implies(p) is true and a *types.AuthorizationError
// otherwise. No other error is ever returned.
func (c *Context) CheckPermission(p types.Permission) error {
	granted := c.Implies(p)
	c.audit.Check(c.subject, "permission", permString(p), granted)
	if !granted {
		return &types.AuthorizationError{Permissions: []string{permString(p)}}
	}
	return nil
}

// CheckPermissions is the guard-clause form of ImpliesAll: it returns nil
// exactly when every permission is implied and a *types.AuthorizationError
// naming the failing permissions otherwise. An empty input returns nil.
func (c *Context) CheckPermissions(perms []types.Permission) error {
	results := c.ImpliesEach(perms)

	var denied []string
	for i, granted := range results {
		c.audit.Check(c.subject, "permission", permString(perms[i]), granted)
		if !granted {
			denied = append(denied, permString(perms[i]))
		}
	}
	if len(denied) > 0 {
		return &types.AuthorizationError{Permissions: denied}
	}
	return nil
}

// IsAuthenticated reports whether the subject completed an authentication
// event that has not since been invalidated. This is a state flag, not a
// live credential check.
func (c *Context) IsAuthenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.authenticated
}

// Session returns the bound application session, or nil when none is
// associated or the context has been invalidated. No session is ever
// created implicitly.
func (c *Context) Session() *types.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// Invalidate terminates the context: it clears the principal set, roles,
// permissions, and authenticated flag, and expires the bound session in
// the session store. The state transition is atomic with respect to
// concurrent queries. Invalidate is idempotent; subsequent calls return
// nil without side effects.
func (c *Context) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	if c.invalidated {
		c.mu.Unlock()
		return nil
	}
	c.invalidated = true
	c.authenticated = false
	c.principals = principal.Empty
	c.roles = nil
	c.granted = nil
	sess := c.session
	c.session = nil
	if c.cache != nil {
		c.cache.Clear()
	}
	c.mu.Unlock()

	c.metrics.RecordInvalidation()

	sessID := ""
	if sess != nil {
		sessID = sess.ID
		c.metrics.DecActiveSessions()
	}
	c.audit.Invalidate(c.subject, sessID)

	if sess != nil && c.store != nil {
		if err := c.store.Expire(ctx, sess.ID); err != nil {
			return fmt.Errorf("expire session: %w", err)
		}
	}
	return nil
}

// hasRoleLocked is the single evaluation path behind every role check.
// Callers hold at least the read lock.
func (c *Context) hasRoleLocked(role string) bool {
	_, ok := c.roles[role]
	return ok
}

// impliesLocked is the single evaluation path behind every permission
// check, boolean and guard forms alike. Callers hold at least the read
// lock.
func (c *Context) impliesLocked(p types.Permission) bool {
	if p == nil {
		return false
	}

	key := p.String()
	if c.cache != nil {
		if decision, ok := c.cache.Get(key); ok {
			c.metrics.RecordCacheHit()
			return decision
		}
		c.metrics.RecordCacheMiss()
	}

	granted := false
	for _, g := range c.granted {
		if g.Implies(p) {
			granted = true
			break
		}
	}

	if c.cache != nil {
		c.cache.Set(key, granted)
	}
	return granted
}

func permString(p types.Permission) string {
	if p == nil {
		return "<nil>"
	}
	return p.String()
}
