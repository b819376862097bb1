package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for the background scan and cleanup runs.
type Metrics struct {
	NotificationsRaised  *prometheus.CounterVec
	ScanFailures         prometheus.Counter
	ScanDuration         prometheus.Histogram
	NotificationsRemoved prometheus.Counter
}

func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		NotificationsRaised: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "desarquivamento_notifications_raised_total",
			Help: "Pending-request notifications raised by priority",
		}, []string{"priority"}),
		ScanFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "desarquivamento_scan_item_failures_total",
			Help: "Stale requests the scanner could not notify about",
		}),
		ScanDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "desarquivamento_scan_duration_seconds",
			Help:    "Duration of pending-request scans",
			Buckets: prometheus.DefBuckets,
		}),
		NotificationsRemoved: factory.NewCounter(prometheus.CounterOpts{
			Name: "desarquivamento_notifications_removed_total",
			Help: "Read notifications deleted by retention cleanup",
		}),
	}
}
