package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var durationBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}

// Metrics provides observability for the desarquivamento lifecycle.
// Tracks mutation counts per outcome and use-case durations.
type Metrics struct {
	RequestsCreated    prometheus.Counter
	StatusChanges      *prometheus.CounterVec
	RequestsDeleted    *prometheus.CounterVec
	RequestsRestored   prometheus.Counter
	DocumentsGenerated prometheus.Counter
	ImportRows         *prometheus.CounterVec
	OperationDuration  *prometheus.HistogramVec
}

// New registers the lifecycle metrics with the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the lifecycle metrics with reg. Tests pass a fresh
// prometheus.NewRegistry() to avoid duplicate registration.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "desarquivamento_requests_created_total",
			Help: "Total number of retrieval requests created",
		}),
		StatusChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "desarquivamento_status_changes_total",
			Help: "Status changes by target status and whether the transition table was bypassed",
		}, []string{"to", "forced"}),
		RequestsDeleted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "desarquivamento_requests_deleted_total",
			Help: "Deletes by mode (soft, permanent, already_deleted)",
		}, []string{"mode"}),
		RequestsRestored: factory.NewCounter(prometheus.CounterOpts{
			Name: "desarquivamento_requests_restored_total",
			Help: "Total number of soft-deleted requests restored",
		}),
		DocumentsGenerated: factory.NewCounter(prometheus.CounterOpts{
			Name: "desarquivamento_documents_generated_total",
			Help: "Total number of delivery receipts rendered",
		}),
		ImportRows: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "desarquivamento_import_rows_total",
			Help: "Spreadsheet rows processed by outcome (created, failed)",
		}, []string{"outcome"}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "desarquivamento_operation_duration_seconds",
			Help:    "Duration of lifecycle use cases",
			Buckets: durationBuckets,
		}, []string{"operation"}),
	}
}

func (m *Metrics) IncrementCreated() {
	m.RequestsCreated.Inc()
}

// IncrementStatusChange records a status change to the given status.
func (m *Metrics) IncrementStatusChange(to string, forced bool) {
	label := "false"
	if forced {
		label = "true"
	}
	m.StatusChanges.WithLabelValues(to, label).Inc()
}

// IncrementDeleted records a delete by mode.
func (m *Metrics) IncrementDeleted(mode string) {
	m.RequestsDeleted.WithLabelValues(mode).Inc()
}

func (m *Metrics) IncrementRestored() {
	m.RequestsRestored.Inc()
}

func (m *Metrics) IncrementDocumentGenerated() {
	m.DocumentsGenerated.Inc()
}

// IncrementImportRow records one processed spreadsheet row.
func (m *Metrics) IncrementImportRow(outcome string) {
	m.ImportRows.WithLabelValues(outcome).Inc()
}

// ObserveOperation records the duration of a use case.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveOperation(operation string, start time.Time) {
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
