package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusMetrics_Counters(t *testing.T) {
	m := NewPrometheusMetrics("secctx_test")

	m.RecordCheck(CheckKindRole, true, time.Microsecond)
	m.RecordCheck(CheckKindRole, false, time.Microsecond)
	m.RecordCheck(CheckKindPermission, true, time.Microsecond)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.checksTotal.WithLabelValues(CheckKindRole, "granted")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.checksTotal.WithLabelValues(CheckKindRole, "denied")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.checksTotal.WithLabelValues(CheckKindPermission, "granted")))
}

func TestPrometheusMetrics_Logins(t *testing.T) {
	m := NewPrometheusMetrics("secctx_test")

	m.RecordLogin("memory", true)
	m.RecordLogin("memory", false)
	m.RecordLogin("jwt", true)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.loginsTotal.WithLabelValues("memory", "granted")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.loginsTotal.WithLabelValues("memory", "denied")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.loginsTotal.WithLabelValues("jwt", "granted")))
}

func TestPrometheusMetrics_SessionsGauge(t *testing.T) {
	m := NewPrometheusMetrics("secctx_test")

	m.IncActiveSessions()
	m.IncActiveSessions()
	m.DecActiveSessions()

	assert.Equal(t, float64(1), testutil.ToFloat64(m.activeSessions))
}

func TestPrometheusMetrics_CacheCounters(t *testing.T) {
	m := NewPrometheusMetrics("secctx_test")

	m.RecordCacheHit()
	m.RecordCacheHit()
	m.RecordCacheMiss()

	assert.Equal(t, float64(2), testutil.ToFloat64(m.cacheHits))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.cacheMisses))
}

func TestPrometheusMetrics_HTTPHandler(t *testing.T) {
	m := NewPrometheusMetrics("secctx_test")
	m.RecordInvalidation()

	rec := httptest.NewRecorder()
	m.HTTPHandler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "secctx_test_invalidations_total 1")
}

func TestNoOpMetrics(t *testing.T) {
	m := NewNoOpMetrics()

	m.RecordCheck(CheckKindRole, true, time.Microsecond)
	m.RecordLogin("memory", true)
	m.RecordInvalidation()
	m.RecordCacheHit()
	m.RecordCacheMiss()
	m.IncActiveSessions()
	m.DecActiveSessions()

	rec := httptest.NewRecorder()
	m.HTTPHandler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 200, rec.Code)
}
