package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	AutosavesFired      prometheus.Counter
	AutosavesSkipped    prometheus.Counter
	AutosaveFailures    prometheus.Counter
	DraftLoads          prometheus.Counter
	DraftLoadFailures   prometheus.Counter
	HydrationDrops      prometheus.Counter
	SubmissionsStarted  prometheus.Counter
	SubmissionsFinished prometheus.Counter
	SubmissionsFailed   prometheus.Counter
	StorageOpDuration   *prometheus.HistogramVec
	RequestLatency      *prometheus.HistogramVec
}

// New creates all Prometheus metrics on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith creates all metrics on the given registerer. Tests pass a fresh
// registry so repeated construction does not trip duplicate registration.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		AutosavesFired: factory.NewCounter(prometheus.CounterOpts{
			Name: "deedblock_autosaves_fired_total",
			Help: "Total debounced draft autosaves that reached the store",
		}),
		AutosavesSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "deedblock_autosaves_skipped_total",
			Help: "Autosaves skipped because the snapshot matched the saved baseline",
		}),
		AutosaveFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "deedblock_autosave_failures_total",
			Help: "Autosave writes that failed and will retry on the next mutation",
		}),
		DraftLoads: factory.NewCounter(prometheus.CounterOpts{
			Name: "deedblock_draft_loads_total",
			Help: "Draft hydrations served",
		}),
		DraftLoadFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "deedblock_draft_load_failures_total",
			Help: "Draft loads that failed for reasons other than not-found",
		}),
		HydrationDrops: factory.NewCounter(prometheus.CounterOpts{
			Name: "deedblock_hydration_dropped_refs_total",
			Help: "Stored file references dropped during hydration because the object is gone",
		}),
		SubmissionsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "deedblock_submissions_started_total",
			Help: "Final submissions started",
		}),
		SubmissionsFinished: factory.NewCounter(prometheus.CounterOpts{
			Name: "deedblock_submissions_finished_total",
			Help: "Final submissions completed successfully",
		}),
		SubmissionsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "deedblock_submissions_failed_total",
			Help: "Final submissions aborted with the draft left intact",
		}),
		StorageOpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "deedblock_storage_op_duration_ms",
			Help:    "Latency of object storage operations in milliseconds",
			Buckets: []float64{1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000},
		}, []string{"op"}),
		RequestLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "deedblock_http_request_duration_ms",
			Help:    "HTTP request latency in milliseconds",
			Buckets: []float64{1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		}, []string{"method"}),
	}
}

// ObserveStorageOp records a storage adapter operation duration.
func (m *Metrics) ObserveStorageOp(op string, d time.Duration) {
	m.StorageOpDuration.WithLabelValues(op).Observe(float64(d.Microseconds()) / 1000.0)
}

// ObserveRequestLatency records an HTTP request duration.
func (m *Metrics) ObserveRequestLatency(method string, d time.Duration) {
	m.RequestLatency.WithLabelValues(method).Observe(float64(d.Microseconds()) / 1000.0)
}
