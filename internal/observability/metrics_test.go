package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Record(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordRequest("/api/admin/users/", "GET", 200, 15*time.Millisecond)
	m.RecordRequest("/api/admin/users/", "GET", 200, 5*time.Millisecond)
	m.RecordLogin("success")
	m.RecordAuditEvent("account_deleted")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/api/admin/users/", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.logins.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.auditEvents.WithLabelValues("account_deleted")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRequest("/", "GET", 200, time.Millisecond)
		m.RecordError("/", "GET", "X")
		m.RecordLogin("invalid")
		m.RecordAccountUpdate("ok")
		m.RecordAuditEvent("x")
	})
}
