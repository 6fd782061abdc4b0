// Package metrics provides Prometheus metrics for the team draw service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Draw outcomes
const (
	OutcomeBalanced   = "balanced"
	OutcomeUnbalanced = "unbalanced"
	OutcomeRejected   = "rejected" // engine returned success=false
)

// Manager owns the service's collectors. A nil *Manager is valid and records nothing.
type Manager struct {
	namespace string
	buckets   []float64
	registry  *prometheus.Registry

	draws            *prometheus.CounterVec
	drawDuration     prometheus.Histogram
	assignmentWrites *prometheus.CounterVec
	auditFailures    prometheus.Counter
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithNamespace sets the namespace for all metrics.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithRegistry registers collectors on the given registry instead of a fresh one.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(m *Manager) {
		if registry != nil {
			m.registry = registry
		}
	}
}

// WithHistogramBuckets sets custom histogram buckets for latency metrics.
func WithHistogramBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.buckets = buckets
		}
	}
}

// New creates a Manager and registers its collectors.
func New(opts ...Option) *Manager {
	m := &Manager{
		namespace: "teamdraw",
		buckets:   prometheus.DefBuckets,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}

	auto := promauto.With(m.registry)
	m.draws = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "draws_total",
		Help:      "Team draws run, by outcome",
	}, []string{"outcome"})
	m.drawDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "draw_duration_seconds",
		Help:      "Time spent in the balancing engine per draw",
		Buckets:   m.buckets,
	})
	m.assignmentWrites = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "assignment_writes_total",
		Help:      "Assignment rows written, by audit action",
	}, []string{"action"})
	m.auditFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "audit_append_failures_total",
		Help:      "Audit entries that could not be written",
	})
	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests handled, by method, route and status",
	}, []string{"method", "route", "status"})
	m.httpDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by method and route",
		Buckets:   m.buckets,
	}, []string{"method", "route"})

	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Manager) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveDraw records one engine run.
func (m *Manager) ObserveDraw(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.draws.WithLabelValues(outcome).Inc()
	m.drawDuration.Observe(elapsed.Seconds())
}

// AddAssignmentWrites counts assignment rows written for an audit action.
func (m *Manager) AddAssignmentWrites(action string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.assignmentWrites.WithLabelValues(action).Add(float64(n))
}

// IncAuditFailures counts a dropped audit entry.
func (m *Manager) IncAuditFailures() {
	if m == nil {
		return
	}
	m.auditFailures.Inc()
}

// ObserveHTTPRequest records one handled request.
func (m *Manager) ObserveHTTPRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
