package secctx

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/secctx/go-core/internal/audit"
	"github.com/secctx/go-core/internal/cel"
	"github.com/secctx/go-core/internal/config"
	"github.com/secctx/go-core/internal/metrics"
	"github.com/secctx/go-core/internal/realm"
	"github.com/secctx/go-core/internal/session"
	"github.com/secctx/go-core/pkg/types"
)

// Login failure sentinels, re-exported from the realm layer so callers
// can branch without importing internal packages.
var (
	ErrUnknownAccount     = realm.ErrUnknownAccount
	ErrInvalidCredentials = realm.ErrInvalidCredentials
	ErrUnsupportedToken   = realm.ErrUnsupportedToken
)

// ManagerConfig configures a Manager
type ManagerConfig struct {
	// Realms are consulted in order; the first realm that supports the
	// token and knows the account decides the attempt
	Realms []realm.Realm

	// SessionStore holds the sessions bound to issued contexts
	SessionStore session.Store

	// SessionTTL for newly issued sessions
	SessionTTL time.Duration

	// DerivedRoles are CEL rules applied to every authenticated account
	DerivedRoles []realm.DerivedRole

	// CacheSize enables the per-context decision cache when positive
	CacheSize int
	CacheTTL  time.Duration

	// Metrics defaults to no-op when nil
	Metrics metrics.Metrics

	// Audit defaults to a disabled logger when nil
	Audit *audit.Logger

	// Logger defaults to zap.NewNop when nil
	Logger *zap.Logger
}

// Manager is the authentication collaborator: it authenticates tokens
// through its realms, binds a fresh session, and issues active security
// contexts. One Manager serves many concurrent logins.
type Manager struct {
	realms     []realm.Realm
	store      session.Store
	sessionTTL time.Duration

	derived   []realm.DerivedRole
	celEngine *cel.Engine

	cacheSize int
	cacheTTL  time.Duration

	metrics metrics.Metrics
	audit   *audit.Logger
	logger  *zap.Logger

	// closers release collaborators the manager owns; populated only by
	// NewManagerFromConfig, where the manager constructs them itself
	closers   []func() error
	closeOnce sync.Once
}

// Close releases resources owned by a config-built manager: the accounts
// file watcher, the session store, and the audit logger. It is a no-op
// for managers assembled with NewManager, whose collaborators belong to
// the caller. Close is idempotent.
func (m *Manager) Close() error {
	var firstErr error
	m.closeOnce.Do(func() {
		for i := len(m.closers) - 1; i >= 0; i-- {
			if err := m.closers[i](); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	})
	return firstErr
}

// NewManager creates a manager
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if len(cfg.Realms) == 0 {
		return nil, fmt.Errorf("at least one realm is required")
	}
	if cfg.SessionStore == nil {
		return nil, fmt.Errorf("session store is required")
	}

	m := &Manager{
		realms:     cfg.Realms,
		store:      cfg.SessionStore,
		sessionTTL: cfg.SessionTTL,
		derived:    cfg.DerivedRoles,
		cacheSize:  cfg.CacheSize,
		cacheTTL:   cfg.CacheTTL,
		metrics:    cfg.Metrics,
		audit:      cfg.Audit,
		logger:     cfg.Logger,
	}
	if m.sessionTTL <= 0 {
		m.sessionTTL = 30 * time.Minute
	}
	if m.metrics == nil {
		m.metrics = metrics.NewNoOpMetrics()
	}
	if m.audit == nil {
		m.audit = audit.NewWithLogger(nil)
	}
	if m.logger == nil {
		m.logger = zap.NewNop()
	}

	if len(m.derived) > 0 {
		engine, err := cel.NewEngine()
		if err != nil {
			return nil, fmt.Errorf("derived roles: %w", err)
		}
		// Compile eagerly so malformed rules fail at construction, not
		// on the first login.
		for _, rule := range m.derived {
			if _, err := engine.Compile(rule.Condition); err != nil {
				return nil, fmt.Errorf("derived role %q: %w", rule.Name, err)
			}
		}
		m.celEngine = engine
	}

	return m, nil
}

// NewManagerFromConfig builds a manager and its collaborators (session
// store, realms, audit, metrics) from a configuration document
func NewManagerFromConfig(cfg *config.Config, logger *zap.Logger) (*Manager, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	// The manager owns everything built here; closers run in reverse
	// order from Close, or from cleanup when construction fails.
	var closers []func() error
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var store session.Store
	switch cfg.Session.Store {
	case "redis":
		rc := session.DefaultRedisConfig()
		rc.Addr = cfg.Session.RedisAddr
		rc.Password = cfg.Session.RedisPassword
		rc.DB = cfg.Session.RedisDB
		rc.TTL = cfg.Session.TTL.Std()
		rs := session.NewRedisStore(rc)
		store = rs
		closers = append(closers, rs.Close)
	default:
		mc := session.DefaultMemoryConfig()
		mc.TTL = cfg.Session.TTL.Std()
		ms := session.NewMemoryStore(mc)
		store = ms
		closers = append(closers, func() error { ms.Close(); return nil })
	}

	var realms []realm.Realm
	if cfg.AccountsFile != "" {
		fr, err := realm.NewFileRealm(cfg.AccountsFile, logger)
		if err != nil {
			cleanup()
			return nil, err
		}
		// Edits to the accounts file apply to subsequent logins until
		// Close stops the watcher.
		watchCtx, cancel := context.WithCancel(context.Background())
		if err := fr.Watch(watchCtx); err != nil {
			cancel()
			fr.Close()
			cleanup()
			return nil, err
		}
		closers = append(closers, func() error {
			cancel()
			fr.Close()
			return nil
		})
		realms = append(realms, fr)
	}
	if cfg.JWT.Secret != "" {
		jr, err := realm.NewJWTRealm(realm.JWTConfig{
			Secret:   cfg.JWT.Secret,
			Issuer:   cfg.JWT.Issuer,
			Audience: cfg.JWT.Audience,
			Logger:   logger,
		})
		if err != nil {
			cleanup()
			return nil, err
		}
		realms = append(realms, jr)
	}
	if len(realms) == 0 {
		cleanup()
		return nil, fmt.Errorf("config enables no realm (set accounts_file or jwt.secret)")
	}

	auditLogger, err := audit.New(audit.Config{
		Enabled:        cfg.Audit.Enabled,
		Output:         cfg.Audit.Output,
		FilePath:       cfg.Audit.FilePath,
		FileMaxSize:    cfg.Audit.FileMaxSize,
		FileMaxAge:     cfg.Audit.FileMaxAge,
		FileMaxBackups: cfg.Audit.FileMaxBackups,
	})
	if err != nil {
		cleanup()
		return nil, err
	}
	closers = append(closers, auditLogger.Close)

	var m metrics.Metrics = metrics.NewNoOpMetrics()
	if cfg.Metrics.Enabled {
		m = metrics.NewPrometheusMetrics(cfg.Metrics.Namespace)
	}

	cacheSize := 0
	if cfg.Cache.Enabled {
		cacheSize = cfg.Cache.Size
	}

	mgr, err := NewManager(ManagerConfig{
		Realms:       realms,
		SessionStore: store,
		SessionTTL:   cfg.Session.TTL.Std(),
		DerivedRoles: cfg.DerivedRoles,
		CacheSize:    cacheSize,
		CacheTTL:     cfg.Cache.TTL.Std(),
		Metrics:      m,
		Audit:        auditLogger,
		Logger:       logger,
	})
	if err != nil {
		cleanup()
		return nil, err
	}
	mgr.closers = closers
	return mgr, nil
}

// Login authenticates the token through the manager's realms and returns
// an active security context bound to a fresh session. Realms that do not
// support the token type, or that do not know the account, are skipped;
// any other realm failure ends the attempt.
func (m *Manager) Login(ctx context.Context, token types.AuthenticationToken) (*Context, error) {
	if token == nil {
		return nil, ErrUnsupportedToken
	}

	supported := false
	for _, r := range m.realms {
		if !r.Supports(token) {
			continue
		}
		supported = true

		acct, err := r.Authenticate(ctx, token)
		if errors.Is(err, realm.ErrUnknownAccount) {
			continue
		}
		if err != nil {
			m.metrics.RecordLogin(r.Name(), false)
			m.audit.Login(token.TokenPrincipal(), r.Name(), false)
			return nil, fmt.Errorf("login: %w", err)
		}

		return m.issueContext(ctx, r, acct)
	}

	if supported {
		m.audit.Login(token.TokenPrincipal(), "", false)
		return nil, fmt.Errorf("login: %w", ErrUnknownAccount)
	}
	return nil, fmt.Errorf("login: %w", ErrUnsupportedToken)
}

// Metrics returns the manager's metrics sink (e.g. to mount its HTTP
// scrape handler)
func (m *Manager) Metrics() metrics.Metrics {
	return m.metrics
}

func (m *Manager) issueContext(ctx context.Context, r realm.Realm, acct *types.Account) (*Context, error) {
	roles := acct.Roles
	if m.celEngine != nil {
		resolved, err := realm.ResolveDerivedRoles(m.celEngine, acct, m.derived)
		if err != nil {
			// Derived-role evaluation failure must not widen access;
			// the login proceeds with the realm-granted roles only.
			m.logger.Error("derived role resolution failed", zap.Error(err))
		} else {
			roles = resolved
		}
	}

	sess := session.New(m.sessionTTL)
	if err := m.store.Create(ctx, sess); err != nil {
		m.metrics.RecordLogin(r.Name(), false)
		return nil, fmt.Errorf("create session: %w", err)
	}

	sc := New(Config{
		Principals:    acct.Principals,
		Roles:         roles,
		Permissions:   acct.Permissions,
		Session:       sess,
		SessionStore:  m.store,
		Authenticated: true,
		CacheSize:     m.cacheSize,
		CacheTTL:      m.cacheTTL,
		Metrics:       m.metrics,
		Audit:         m.audit,
	})

	m.metrics.RecordLogin(r.Name(), true)
	m.metrics.IncActiveSessions()
	m.audit.Login(sc.subject, r.Name(), true)
	m.logger.Debug("login succeeded",
		zap.String("subject", sc.subject),
		zap.String("realm", r.Name()),
		zap.String("session_id", sess.ID),
	)
	return sc, nil
}
