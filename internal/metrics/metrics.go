// Package metrics holds the prometheus collectors for the service. A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "feedback"

type Metrics struct {
	Submissions   *prometheus.CounterVec
	Decisions     *prometheus.CounterVec
	Notifications *prometheus.CounterVec
	Requests      *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Feedback submissions by outcome.",
		}, []string{"outcome"}),
		Decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Moderation decisions by decision and outcome.",
		}, []string{"decision", "outcome"}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Status change notifications by outcome.",
		}, []string{"outcome"}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "code"}),
	}
}

func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.Submissions, m.Decisions, m.Notifications, m.Requests} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveSubmission(outcome string) {
	if m == nil {
		return
	}
	m.Submissions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveDecision(decision, outcome string) {
	if m == nil {
		return
	}
	m.Decisions.WithLabelValues(decision, outcome).Inc()
}

func (m *Metrics) ObserveNotification(ok bool) {
	if m == nil {
		return
	}
	outcome := "sent"
	if !ok {
		outcome = "failed"
	}
	m.Notifications.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveRequest(method, route string, code int) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
}
