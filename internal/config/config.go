// Package config provides YAML configuration for the security context core
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/secctx/go-core/internal/realm"
)

// Duration is a time.Duration that unmarshals from YAML duration strings
// ("30m", "1h") as well as integer nanoseconds
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}

	var n int64
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("invalid duration: %s", value.Value)
	}
	*d = Duration(n)
	return nil
}

// Std returns the value as a time.Duration
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the top-level configuration
type Config struct {
	// Session holds session store settings
	Session SessionConfig `yaml:"session"`

	// Cache holds decision cache settings
	Cache CacheConfig `yaml:"cache"`

	// Audit holds audit trail settings
	Audit AuditConfig `yaml:"audit"`

	// Metrics holds Prometheus settings
	Metrics MetricsConfig `yaml:"metrics"`

	// AccountsFile enables the file realm when set
	AccountsFile string `yaml:"accounts_file,omitempty"`

	// JWT enables the JWT realm when a secret is set
	JWT JWTConfig `yaml:"jwt"`

	// DerivedRoles are CEL rules applied after authentication
	DerivedRoles []realm.DerivedRole `yaml:"derived_roles,omitempty"`
}

// SessionConfig configures the session store
type SessionConfig struct {
	// Store type: memory, redis
	Store string   `yaml:"store"`
	TTL   Duration `yaml:"ttl"`

	// Redis settings, used when Store is redis
	RedisAddr     string `yaml:"redis_addr,omitempty"`
	RedisPassword string `yaml:"redis_password,omitempty"`
	RedisDB       int    `yaml:"redis_db,omitempty"`
}

// CacheConfig configures the per-context decision cache
type CacheConfig struct {
	Enabled bool     `yaml:"enabled"`
	Size    int      `yaml:"size"`
	TTL     Duration `yaml:"ttl"`
}

// AuditConfig configures the audit trail
type AuditConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Output         string `yaml:"output"`
	FilePath       string `yaml:"file_path,omitempty"`
	FileMaxSize    int    `yaml:"file_max_size,omitempty"`
	FileMaxAge     int    `yaml:"file_max_age,omitempty"`
	FileMaxBackups int    `yaml:"file_max_backups,omitempty"`
}

// MetricsConfig configures Prometheus metrics
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

// JWTConfig configures the JWT realm
type JWTConfig struct {
	Secret   string `yaml:"secret,omitempty"`
	Issuer   string `yaml:"issuer,omitempty"`
	Audience string `yaml:"audience,omitempty"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Session: SessionConfig{
			Store: "memory",
			TTL:   Duration(30 * time.Minute),
		},
		Cache: CacheConfig{
			Enabled: true,
			Size:    1024,
			TTL:     Duration(5 * time.Minute),
		},
		Audit: AuditConfig{
			Enabled: true,
			Output:  "stdout",
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "secctx",
		},
	}
}

// Load reads a YAML configuration file over the defaults
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for consistency
func (c *Config) Validate() error {
	switch c.Session.Store {
	case "memory":
	case "redis":
		if c.Session.RedisAddr == "" {
			return fmt.Errorf("session: redis_addr is required for the redis store")
		}
	default:
		return fmt.Errorf("session: invalid store %q (must be memory or redis)", c.Session.Store)
	}

	if c.Session.TTL <= 0 {
		return fmt.Errorf("session: ttl must be positive")
	}

	if c.Cache.Enabled && c.Cache.Size <= 0 {
		return fmt.Errorf("cache: size must be positive when enabled")
	}

	if c.Audit.Enabled {
		if c.Audit.Output != "stdout" && c.Audit.Output != "file" {
			return fmt.Errorf("audit: invalid output %q (must be stdout or file)", c.Audit.Output)
		}
		if c.Audit.Output == "file" && c.Audit.FilePath == "" {
			return fmt.Errorf("audit: file_path is required for file output")
		}
	}

	for _, dr := range c.DerivedRoles {
		if dr.Name == "" || dr.Condition == "" {
			return fmt.Errorf("derived_roles: name and condition are required")
		}
	}

	return nil
}
