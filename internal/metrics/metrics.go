// Package metrics exposes Prometheus collectors for HTTP traffic, ledger
// writes, source registrations and model classifications.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JaimeStill/concord/internal/ledger"
	"github.com/JaimeStill/concord/internal/workflow"
)

const namespace = "concord"

// Recorder implements the observer interfaces of the middleware, ledger and
// workflow packages.
type Recorder struct {
	requests         *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	labels           *prometheus.CounterVec
	registrations    *prometheus.CounterVec
	classifications  *prometheus.CounterVec
	classifyDuration *prometheus.HistogramVec
}

// New creates a Recorder and registers its collectors on reg.
func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Count of HTTP requests by route and status",
			},
			[]string{"method", "pattern", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Time taken to serve HTTP requests",
				Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
			},
			[]string{"method", "pattern"},
		),
		labels: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "labels_written_total",
				Help:      "Count of labels written to the ledger",
			},
			[]string{"source", "value"},
		),
		registrations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "source_registrations_total",
				Help:      "Count of source registration calls",
			},
			[]string{"kind", "created"},
		),
		classifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "classifications_total",
				Help:      "Count of model classifications by outcome",
			},
			[]string{"model", "outcome"},
		),
		classifyDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "classification_duration_seconds",
				Help:      "Time taken to classify one sentence, retries included",
				Buckets:   []float64{0.1, 0.3, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"model"},
		),
	}

	reg.MustRegister(
		r.requests,
		r.requestDuration,
		r.labels,
		r.registrations,
		r.classifications,
		r.classifyDuration,
	)
	return r
}

func (r *Recorder) ObserveRequest(method, pattern string, status int, elapsed time.Duration) {
	r.requests.WithLabelValues(method, pattern, strconv.Itoa(status)).Inc()
	r.requestDuration.WithLabelValues(method, pattern).Observe(elapsed.Seconds())
}

func (r *Recorder) LabelWritten(source string, value ledger.Value) {
	r.labels.WithLabelValues(source, value.String()).Inc()
}

func (r *Recorder) SourceRegistered(kind ledger.Kind, created bool) {
	r.registrations.WithLabelValues(string(kind), strconv.FormatBool(created)).Inc()
}

func (r *Recorder) Classified(model string, outcome workflow.Outcome, elapsed time.Duration) {
	r.classifications.WithLabelValues(model, string(outcome)).Inc()
	r.classifyDuration.WithLabelValues(model).Observe(elapsed.Seconds())
}

// Handler serves the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
