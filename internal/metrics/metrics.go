// Package metrics provides observability for the security context core
package metrics

import (
	"net/http"
	"time"
)

// Check kinds recorded by RecordCheck
const (
	CheckKindRole       = "role"
	CheckKindPermission = "permission"
)

// Metrics provides observability for security context decisions
type Metrics interface {
	// RecordCheck records a single role or permission decision
	RecordCheck(kind string, granted bool, duration time.Duration)

	// RecordLogin records an authentication attempt against a realm
	RecordLogin(realm string, success bool)

	// RecordInvalidation records a context invalidation
	RecordInvalidation()

	// Decision cache metrics
	RecordCacheHit()
	RecordCacheMiss()

	// Active session gauge
	IncActiveSessions()
	DecActiveSessions()

	// HTTPHandler for Prometheus scraping
	HTTPHandler() http.Handler
}

// NoOpMetrics provides a no-op implementation for testing/disabled monitoring
type NoOpMetrics struct{}

// NewNoOpMetrics creates a new no-op metrics instance
func NewNoOpMetrics() *NoOpMetrics {
	return &NoOpMetrics{}
}

func (n *NoOpMetrics) RecordCheck(kind string, granted bool, duration time.Duration) {}
func (n *NoOpMetrics) RecordLogin(realm string, success bool)                        {}
func (n *NoOpMetrics) RecordInvalidation()                                           {}
func (n *NoOpMetrics) RecordCacheHit()                                               {}
func (n *NoOpMetrics) RecordCacheMiss()                                              {}
func (n *NoOpMetrics) IncActiveSessions()                                            {}
func (n *NoOpMetrics) DecActiveSessions()                                            {}

// HTTPHandler returns a no-op handler
func (n *NoOpMetrics) HTTPHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("# NoOp metrics - monitoring disabled\n"))
	})
}
