// Package monitoring exposes Prometheus metrics for lookups, listing sources and the request gate.
package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "lead_qualifier"

// Lookup results.
const (
	ResultHit   = "hit"
	ResultMiss  = "miss"
	ResultError = "error"
)

// Source call outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeEmpty   = "empty"
	OutcomeError   = "error"
	OutcomeSkipped = "skipped"
)

// Metrics holds the Prometheus collectors for the service. Each instance owns
// its registry so tests and multiple servers never collide.
type Metrics struct {
	registry *prometheus.Registry

	Lookups        *prometheus.CounterVec   // labels: result={hit,miss,error}
	SourceRequests *prometheus.CounterVec   // labels: source, outcome={success,empty,error,skipped}
	SourceDuration *prometheus.HistogramVec // labels: source
	CircuitState   *prometheus.GaugeVec     // labels: source; 0 closed, 1 open, 2 half-open
	Scores         prometheus.Histogram
	Feedback       *prometheus.CounterVec // labels: matched={true,false}
	GateRejections prometheus.Counter
	InFlight       prometheus.Gauge
}

// NewMetrics creates and registers all collectors on a fresh registry,
// together with the Go runtime and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookups_total",
			Help:      "Address lookups by cache result.",
		}, []string{"result"}),
		SourceRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_requests_total",
			Help:      "Geocoder and listing source calls by outcome.",
		}, []string{"source", "outcome"}),
		SourceDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_duration_seconds",
			Help:      "Duration of geocoder and listing source calls.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
		}, []string{"source"}),
		CircuitState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_state",
			Help:      "Listing source circuit breaker state (0 closed, 1 open, 2 half-open).",
		}, []string{"source"}),
		Scores: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "score",
			Help:      "Viability scores of freshly fetched addresses.",
			Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
		}),
		Feedback: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feedback_total",
			Help:      "Feedback submissions by whether a cached address matched.",
		}, []string{"matched"}),
		GateRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gate_rejections_total",
			Help:      "Requests rejected with 429 because the search limit was reached.",
		}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "searches_in_flight",
			Help:      "Searches currently holding a gate slot.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Lookups,
		m.SourceRequests,
		m.SourceDuration,
		m.CircuitState,
		m.Scores,
		m.Feedback,
		m.GateRejections,
		m.InFlight,
	)
	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveSource records one source call.
func (m *Metrics) ObserveSource(source, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.SourceRequests.WithLabelValues(source, outcome).Inc()
	if outcome != OutcomeSkipped {
		m.SourceDuration.WithLabelValues(source).Observe(d.Seconds())
	}
}

// ObserveLookup records a lookup result.
func (m *Metrics) ObserveLookup(result string) {
	if m == nil {
		return
	}
	m.Lookups.WithLabelValues(result).Inc()
}

// ObserveScore records the score of a fresh fetch.
func (m *Metrics) ObserveScore(score float64) {
	if m == nil {
		return
	}
	m.Scores.Observe(score)
}

// ObserveFeedback records a feedback submission.
func (m *Metrics) ObserveFeedback(matched bool) {
	if m == nil {
		return
	}
	label := "false"
	if matched {
		label = "true"
	}
	m.Feedback.WithLabelValues(label).Inc()
}

// SetCircuitState records a source breaker state.
func (m *Metrics) SetCircuitState(source string, state int) {
	if m == nil {
		return
	}
	m.CircuitState.WithLabelValues(source).Set(float64(state))
}

// ObserveGateRejection records a request turned away by the search gate.
func (m *Metrics) ObserveGateRejection() {
	if m == nil {
		return
	}
	m.GateRejections.Inc()
}

// AddInFlight adjusts the number of searches holding a gate slot.
func (m *Metrics) AddInFlight(delta float64) {
	if m == nil {
		return
	}
	m.InFlight.Add(delta)
}
