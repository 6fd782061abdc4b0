package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveDraw(t *testing.T) {
	m := New()

	m.ObserveDraw(OutcomeBalanced, 10*time.Millisecond)
	m.ObserveDraw(OutcomeBalanced, 20*time.Millisecond)
	m.ObserveDraw(OutcomeRejected, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.draws.WithLabelValues(OutcomeBalanced)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.draws.WithLabelValues(OutcomeRejected)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.draws.WithLabelValues(OutcomeUnbalanced)))
}

func TestAssignmentWritesAndAuditFailures(t *testing.T) {
	m := New()

	m.AddAssignmentWrites("team_assigned", 3)
	m.AddAssignmentWrites("team_reassigned", 2)
	m.AddAssignmentWrites("team_reassigned", 0)
	m.IncAuditFailures()

	assert.Equal(t, 3.0, testutil.ToFloat64(m.assignmentWrites.WithLabelValues("team_assigned")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.assignmentWrites.WithLabelValues("team_reassigned")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.auditFailures))
}

func TestNilManagerIsNoop(t *testing.T) {
	var m *Manager

	assert.NotPanics(t, func() {
		m.ObserveDraw(OutcomeBalanced, time.Second)
		m.AddAssignmentWrites("team_assigned", 1)
		m.IncAuditFailures()
		m.ObserveHTTPRequest(http.MethodGet, "/x", 200, time.Second)
	})
	assert.Nil(t, m.Registry())
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New(WithNamespace("test"))
	m.ObserveHTTPRequest(http.MethodPost, "/api/v1/events/{eventId}/teams/draw", http.StatusOK, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `test_http_requests_total{method="POST",route="/api/v1/events/{eventId}/teams/draw",status="200"} 1`), body)
}

func TestWithRegistry(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(WithRegistry(registry))
	m.IncAuditFailures()

	assert.Same(t, registry, m.Registry())
	count, err := testutil.GatherAndCount(registry, "teamdraw_audit_append_failures_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
