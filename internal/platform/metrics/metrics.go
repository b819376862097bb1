package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the HTTP transport metrics shared by every router.
type Metrics struct {
	RequestLatency  *prometheus.HistogramVec
	RequestsTotal   *prometheus.CounterVec
	AuthFailures    prometheus.Counter
	PanicsRecovered prometheus.Counter
}

// New registers the metrics with the default registerer.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the metrics with reg. Tests pass a fresh registry.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "desarquivamento_http_request_duration_seconds",
			Help:    "HTTP request latency by route and method",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "desarquivamento_http_requests_total",
			Help: "HTTP requests by route, method and status class",
		}, []string{"route", "method", "status"}),
		AuthFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "desarquivamento_http_auth_failures_total",
			Help: "Requests rejected for a missing or invalid bearer token",
		}),
		PanicsRecovered: factory.NewCounter(prometheus.CounterOpts{
			Name: "desarquivamento_http_panics_recovered_total",
			Help: "Handler panics caught by the recovery middleware",
		}),
	}
}

func (m *Metrics) ObserveRequest(route, method, statusClass string, seconds float64) {
	m.RequestLatency.WithLabelValues(route, method).Observe(seconds)
	m.RequestsTotal.WithLabelValues(route, method, statusClass).Inc()
}

func (m *Metrics) IncrementAuthFailures() {
	m.AuthFailures.Inc()
}

func (m *Metrics) IncrementPanicsRecovered() {
	m.PanicsRecovered.Inc()
}
