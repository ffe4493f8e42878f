package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserve(t *testing.T) {
	m := New()
	require.NoError(t, m.Register(prometheus.NewRegistry()))

	m.ObserveSubmission("created")
	m.ObserveSubmission("created")
	m.ObserveDecision("approve", "ok")
	m.ObserveNotification(true)
	m.ObserveNotification(false)
	m.ObserveRequest("GET", "/feedback", 403)

	assert.InDelta(t, 2, testutil.ToFloat64(m.Submissions.WithLabelValues("created")), 0.0001)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Decisions.WithLabelValues("approve", "ok")), 0.0001)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Notifications.WithLabelValues("sent")), 0.0001)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Notifications.WithLabelValues("failed")), 0.0001)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Requests.WithLabelValues("GET", "/feedback", "403")), 0.0001)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveSubmission("created")
		m.ObserveDecision("reject", "ok")
		m.ObserveNotification(true)
		m.ObserveRequest("POST", "/feedback", 201)
	})
}

func TestRegisterTwiceFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New()
	require.NoError(t, m.Register(reg))
	assert.Error(t, m.Register(reg))
}
