// Package metrics exposes Prometheus collectors for document imports.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "reportcard"

// Recorder groups the import collectors. A nil Recorder is a no-op.
type Recorder struct {
	documents *prometheus.CounterVec
	failures  *prometheus.CounterVec
	students  prometheus.Counter
	dropped   *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_imported_total",
			Help:      "Documents parsed and persisted, by format.",
		}, []string{"format"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_failed_total",
			Help:      "Documents that could not be imported, by format and reason.",
		}, []string{"format", "reason"}),
		students: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "students_parsed_total",
			Help:      "Student records recovered from documents.",
		}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lines_dropped_total",
			Help:      "Lines or fragments discarded while parsing, by kind.",
		}, []string{"kind"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "document_parse_seconds",
			Help:      "Time spent importing one document.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"format"}),
	}

	reg.MustRegister(r.documents, r.failures, r.students, r.dropped, r.duration)
	return r
}

// ObserveDocument records one successful import
func (r *Recorder) ObserveDocument(format string, students int, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.documents.WithLabelValues(format).Inc()
	r.students.Add(float64(students))
	r.duration.WithLabelValues(format).Observe(elapsed.Seconds())
}

// ObserveDropped adds n discarded items of the given kind
func (r *Recorder) ObserveDropped(kind string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.dropped.WithLabelValues(kind).Add(float64(n))
}

// ObserveFailure records one failed import
func (r *Recorder) ObserveFailure(format, reason string) {
	if r == nil {
		return
	}
	r.failures.WithLabelValues(format, reason).Inc()
}

// Handler serves the registry in the Prometheus exposition format
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
