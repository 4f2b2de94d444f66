// Package metrics records generation-cycle metrics and exposes them in the
// Prometheus text format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "balbo"

// Recorder holds the collectors for one registry.
type Recorder struct {
	registry *prometheus.Registry
	cycles   prometheus.Counter
	outcomes *prometheus.CounterVec
	stale    prometheus.Counter
	rejected prometheus.Counter
	latency  prometheus.Histogram
}

// New creates a Recorder backed by a fresh registry that also carries the Go
// runtime and process collectors.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_started_total",
			Help:      "Generation cycles started.",
		}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outcomes_total",
			Help:      "Generation outcomes applied to the display state, by result kind.",
		}, []string{"kind"}),
		stale: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_outcomes_total",
			Help:      "Outcomes discarded because a newer cycle had started.",
		}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_rejections_total",
			Help:      "Submissions rejected before dispatch because the prompt was blank.",
		}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "workflow_request_duration_seconds",
			Help:      "Time from dispatch to outcome for the workflow request.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
	}

	r.registry.MustRegister(
		r.cycles,
		r.outcomes,
		r.stale,
		r.rejected,
		r.latency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return r
}

// CycleStarted counts a dispatched cycle.
func (r *Recorder) CycleStarted() {
	r.cycles.Inc()
}

// OutcomeResolved counts an applied outcome and observes its latency.
// kind is "success" or a failure kind.
func (r *Recorder) OutcomeResolved(kind string, elapsed time.Duration) {
	r.outcomes.WithLabelValues(kind).Inc()
	r.latency.Observe(elapsed.Seconds())
}

// StaleOutcomeDiscarded counts an outcome dropped for a superseded cycle.
func (r *Recorder) StaleOutcomeDiscarded() {
	r.stale.Inc()
}

// ValidationRejected counts a blank-prompt submission.
func (r *Recorder) ValidationRejected() {
	r.rejected.Inc()
}

// Handler serves the registry for scraping.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
