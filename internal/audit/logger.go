// Package audit provides the audit trail of authentication and
// authorization events
package audit

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config for the audit logger
type Config struct {
	// Enabled enables audit logging
	Enabled bool

	// Output type: stdout, file
	Output string

	// For file output
	FilePath       string
	FileMaxSize    int // MB
	FileMaxAge     int // Days
	FileMaxBackups int
}

// DefaultConfig returns the default audit configuration
func DefaultConfig() Config {
	return Config{
		Enabled:        true,
		Output:         "stdout",
		FileMaxSize:    100,
		FileMaxAge:     30,
		FileMaxBackups: 10,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Output != "stdout" && c.Output != "file" {
		return fmt.Errorf("invalid audit output: %s (must be stdout or file)", c.Output)
	}
	if c.Output == "file" && c.FilePath == "" {
		return fmt.Errorf("file path is required for file output")
	}
	return nil
}

// Logger writes structured audit events. A disabled logger drops all
// events; all methods are safe on a nil receiver's zap (never nil here).
type Logger struct {
	log *zap.Logger
}

// New creates an audit logger from configuration
func New(cfg Config) (*Logger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !cfg.Enabled {
		return &Logger{log: zap.NewNop()}, nil
	}

	var ws zapcore.WriteSyncer
	switch cfg.Output {
	case "file":
		ws = zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.FileMaxSize,
			MaxAge:     cfg.FileMaxAge,
			MaxBackups: cfg.FileMaxBackups,
			Compress:   true,
		})
	default:
		ws = zapcore.Lock(os.Stdout)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), ws, zapcore.InfoLevel)

	return &Logger{log: zap.New(core)}, nil
}

// NewWithLogger creates an audit logger on an existing zap logger.
// Used by tests with an observer core.
func NewWithLogger(log *zap.Logger) *Logger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Logger{log: log}
}

// Login records an authentication attempt
func (l *Logger) Login(subject, realm string, success bool) {
	l.log.Info("login",
		zap.String("event", "login"),
		zap.String("subject", subject),
		zap.String("realm", realm),
		zap.Bool("success", success),
	)
}

// Check records an authorization decision
func (l *Logger) Check(subject, kind, target string, granted bool) {
	l.log.Info("check",
		zap.String("event", "check"),
		zap.String("subject", subject),
		zap.String("kind", kind),
		zap.String("target", target),
		zap.Bool("granted", granted),
	)
}

// Invalidate records a context invalidation
func (l *Logger) Invalidate(subject, sessionID string) {
	l.log.Info("invalidate",
		zap.String("event", "invalidate"),
		zap.String("subject", subject),
		zap.String("session_id", sessionID),
	)
}

// Close flushes buffered events
func (l *Logger) Close() error {
	return l.log.Sync()
}
