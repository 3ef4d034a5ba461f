package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of the service. A nil *Metrics is a no-op.
type Metrics struct {
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	httpErrors    *prometheus.CounterVec
	logins        *prometheus.CounterVec
	profileWrites *prometheus.CounterVec
	auditEvents   *prometheus.CounterVec
}

// NewMetrics registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hr_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hr_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		httpErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hr_http_errors_total",
			Help: "Error responses by error code",
		}, []string{"method", "path", "code"}),
		logins: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hr_login_attempts_total",
			Help: "Login attempts by result",
		}, []string{"result"}),
		profileWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hr_account_updates_total",
			Help: "Reconciled account and profile updates by result",
		}, []string{"result"}),
		auditEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hr_audit_events_total",
			Help: "Audit events by type",
		}, []string{"type"}),
	}
}

// RecordRequest observes a finished HTTP request.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordError counts an error response.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.httpErrors.WithLabelValues(method, path, code).Inc()
}

// RecordLogin counts a login attempt; result is e.g. "success", "invalid", "throttled".
func (m *Metrics) RecordLogin(result string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(result).Inc()
}

// RecordAccountUpdate counts a reconciled update.
func (m *Metrics) RecordAccountUpdate(result string) {
	if m == nil {
		return
	}
	m.profileWrites.WithLabelValues(result).Inc()
}

// RecordAuditEvent counts a published audit event.
func (m *Metrics) RecordAuditEvent(eventType string) {
	if m == nil {
		return
	}
	m.auditEvents.WithLabelValues(eventType).Inc()
}
