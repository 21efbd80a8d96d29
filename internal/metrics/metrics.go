package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service counters on a private registry. All methods are
// safe on a nil receiver so callers in tests can skip instrumentation.
type Metrics struct {
	registry     *prometheus.Registry
	claims       *prometheus.CounterVec
	authFailures *prometheus.CounterVec
	queueWrites  *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		claims: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "webhook_claims_total",
			Help: "Idempotency claim attempts by provider and outcome.",
		}, []string{"provider", "outcome"}),
		authFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "webhook_auth_failures_total",
			Help: "Rejected webhook credentials by reason.",
		}, []string{"reason"}),
		queueWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "webhook_queue_writes_total",
			Help: "Queue writes after a fresh claim by backend and status.",
		}, []string{"backend", "status"}),
	}
	reg.MustRegister(m.claims, m.authFailures, m.queueWrites)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Claim(provider, outcome string) {
	if m == nil {
		return
	}
	m.claims.WithLabelValues(provider, outcome).Inc()
}

func (m *Metrics) AuthFailure(reason string) {
	if m == nil {
		return
	}
	m.authFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) QueueWrite(backend string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.queueWrites.WithLabelValues(backend, status).Inc()
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
