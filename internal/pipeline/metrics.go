// Package pipeline orchestrates the ranking engine: ingestion, parallel
// scoring, rank combination, similarity expansion, and result assembly.
package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names as constants for consistency.
const (
	MetricInvocationsTotal        = "newsrank_invocations_total"
	MetricStageDuration           = "newsrank_stage_duration_seconds"
	MetricCapabilityFailuresTotal = "newsrank_capability_failures_total"
	MetricArticlesTotal           = "newsrank_articles_total"
)

// Capability labels for failure counting.
const (
	CapabilityEntities  = "entity_recognition"
	CapabilityEmbedding = "embedding"
)

// Metrics contains Prometheus metrics for pipeline invocations.
// All operations are thread-safe.
type Metrics struct {
	invocations        *prometheus.CounterVec
	stageDuration      *prometheus.HistogramVec
	capabilityFailures *prometheus.CounterVec
	articles           *prometheus.CounterVec
}

// NewMetrics creates and returns a new Metrics instance with all
// collectors initialized. The metrics are not registered; call Register
// to register them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		invocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricInvocationsTotal,
				Help: "Total number of pipeline invocations by result status",
			},
			[]string{"status"},
		),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricStageDuration,
				Help:    "Histogram of pipeline stage duration in seconds by stage",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
			},
			[]string{"stage"},
		),
		capabilityFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricCapabilityFailuresTotal,
				Help: "Total number of capability call failures by capability",
			},
			[]string{"capability"},
		),
		articles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricArticlesTotal,
				Help: "Total number of articles seen by disposition (ingested, duplicate, output)",
			},
			[]string{"disposition"},
		),
	}
}

// Register registers all metrics with the given registry.
// Returns an error if registration fails.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.invocations,
		m.stageDuration,
		m.capabilityFailures,
		m.articles,
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// ObserveInvocation records one completed invocation with its status.
func (m *Metrics) ObserveInvocation(status Status) {
	if m == nil {
		return
	}
	m.invocations.WithLabelValues(string(status)).Inc()
}

// ObserveStage records the duration of one pipeline stage in seconds.
func (m *Metrics) ObserveStage(stage string, seconds float64) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(seconds)
}

// ObserveCapabilityFailure records one failed capability call.
func (m *Metrics) ObserveCapabilityFailure(capability string) {
	if m == nil {
		return
	}
	m.capabilityFailures.WithLabelValues(capability).Inc()
}

// ObserveArticles adds n to the counter for the given disposition.
func (m *Metrics) ObserveArticles(disposition string, n int) {
	if m == nil {
		return
	}
	m.articles.WithLabelValues(disposition).Add(float64(n))
}
