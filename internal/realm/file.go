package realm

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/secctx/go-core/pkg/types"
)

// accountsFile is the YAML document a FileRealm loads
type accountsFile struct {
	Accounts []fileAccount `yaml:"accounts"`
}

type fileAccount struct {
	Username     string                 `yaml:"username"`
	PasswordHash string                 `yaml:"password_hash"`
	UserID       string                 `yaml:"user_id,omitempty"`
	Email        string                 `yaml:"email,omitempty"`
	Roles        []string               `yaml:"roles,omitempty"`
	Permissions  []string               `yaml:"permissions,omitempty"`
	Attributes   map[string]interface{} `yaml:"attributes,omitempty"`
}

// FileRealm authenticates username/password tokens against a YAML accounts
// file. Watch hot-reloads the file on change, so role and permission edits
// take effect without a restart. Already issued security contexts are not
// affected; reloads apply to subsequent logins.
type FileRealm struct {
	path   string
	logger *zap.Logger

	mu       sync.RWMutex
	accounts map[string]*memoryAccount

	watcher         *fsnotify.Watcher
	debounceTimeout time.Duration
	debounceMu      sync.Mutex
	debounceTimer   *time.Timer
	stopChan        chan struct{}
	stopOnce        sync.Once
}

// NewFileRealm creates a file realm and performs the initial load
func NewFileRealm(path string, logger *zap.Logger) (*FileRealm, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &FileRealm{
		path:            path,
		logger:          logger,
		accounts:        make(map[string]*memoryAccount),
		debounceTimeout: 500 * time.Millisecond,
		stopChan:        make(chan struct{}),
	}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Name identifies the realm
func (r *FileRealm) Name() string { return "file" }

// Reload re-reads the accounts file and swaps the account table. A
// malformed file leaves the previous table in place.
func (r *FileRealm) Reload() error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("read accounts file: %w", err)
	}

	var doc accountsFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse accounts file: %w", err)
	}

	accounts := make(map[string]*memoryAccount, len(doc.Accounts))
	for _, fa := range doc.Accounts {
		if fa.Username == "" || fa.PasswordHash == "" {
			return fmt.Errorf("account entry missing username or password_hash")
		}
		perms, err := parsePermissions(fa.Permissions)
		if err != nil {
			return fmt.Errorf("account %q: %w", fa.Username, err)
		}
		accounts[fa.Username] = &memoryAccount{
			passwordHash: []byte(fa.PasswordHash),
			spec: AccountSpec{
				UserID:      fa.UserID,
				Email:       fa.Email,
				Roles:       fa.Roles,
				Permissions: fa.Permissions,
				Attributes:  fa.Attributes,
			},
			permissions: perms,
		}
	}

	r.mu.Lock()
	r.accounts = accounts
	r.mu.Unlock()

	r.logger.Info("accounts file loaded",
		zap.String("path", r.path),
		zap.Int("accounts", len(accounts)),
	)
	return nil
}

// Watch starts watching the accounts file for changes. Events are
// debounced so editors that write in several steps trigger one reload.
func (r *FileRealm) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	// Watch the directory: most editors replace the file, which drops a
	// watch registered on the file itself.
	if err := watcher.Add(filepath.Dir(r.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to add path to watcher: %w", err)
	}
	r.watcher = watcher

	r.logger.Info("starting accounts file watcher",
		zap.String("path", r.path),
		zap.Duration("debounce", r.debounceTimeout),
	)

	go r.watchLoop(ctx)
	return nil
}

// Close stops the watcher
func (r *FileRealm) Close() {
	r.stopOnce.Do(func() {
		close(r.stopChan)
		if r.watcher != nil {
			r.watcher.Close()
		}
	})
}

func (r *FileRealm) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopChan:
			return

		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if r.shouldProcessEvent(event) {
				r.scheduleReload()
			}

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.logger.Error("watcher error", zap.Error(err))
		}
	}
}

func (r *FileRealm) shouldProcessEvent(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != filepath.Clean(r.path) {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}

func (r *FileRealm) scheduleReload() {
	r.debounceMu.Lock()
	defer r.debounceMu.Unlock()

	if r.debounceTimer != nil {
		r.debounceTimer.Stop()
	}
	r.debounceTimer = time.AfterFunc(r.debounceTimeout, func() {
		if err := r.Reload(); err != nil {
			r.logger.Error("accounts file reload failed", zap.Error(err))
		}
	})
}

// Supports reports whether the token is a username/password token
func (r *FileRealm) Supports(token types.AuthenticationToken) bool {
	_, ok := token.(*types.UsernamePasswordToken)
	return ok
}

// Authenticate verifies the password and returns the subject's account
func (r *FileRealm) Authenticate(_ context.Context, token types.AuthenticationToken) (*types.Account, error) {
	upt, ok := token.(*types.UsernamePasswordToken)
	if !ok {
		return nil, ErrUnsupportedToken
	}

	r.mu.RLock()
	acct, ok := r.accounts[upt.Username]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrUnknownAccount
	}

	if err := bcrypt.CompareHashAndPassword(acct.passwordHash, []byte(upt.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return buildAccount(upt.Username, acct.spec, acct.permissions), nil
}
