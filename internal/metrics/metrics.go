// Package metrics exposes Prometheus instruments for the generation pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the pipeline's instruments. A nil *Metrics is a no-op.
type Metrics struct {
	phaseGenerations  *prometheus.CounterVec
	generationLatency prometheus.Histogram
	tokens            prometheus.Counter
	sanitizerFindings *prometheus.CounterVec
	creditDenials     prometheus.Counter
	creditCharges     prometheus.Counter
}

// New creates the instruments and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		phaseGenerations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "program_phase_generations_total",
			Help: "Phase generation calls by outcome.",
		}, []string{"outcome"}),
		generationLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "program_generation_duration_seconds",
			Help:    "Wall time of model-backed phase generation.",
			Buckets: []float64{1, 2.5, 5, 10, 20, 30, 45, 60},
		}),
		tokens: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "program_generation_tokens_total",
			Help: "Model tokens consumed by phase generation, failed attempts included.",
		}),
		sanitizerFindings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "program_sanitizer_findings_total",
			Help: "Profile fields flagged by the sanitizer, by risk level.",
		}, []string{"risk"}),
		creditDenials: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "program_credit_denials_total",
			Help: "Phase-1 requests rejected by the monthly quota.",
		}),
		creditCharges: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "program_credit_charges_total",
			Help: "Generation credits consumed.",
		}),
	}
	reg.MustRegister(
		m.phaseGenerations,
		m.generationLatency,
		m.tokens,
		m.sanitizerFindings,
		m.creditDenials,
		m.creditCharges,
	)
	return m
}

// PhaseCompleted records the terminal outcome of one phase call.
func (m *Metrics) PhaseCompleted(outcome string) {
	if m == nil {
		return
	}
	m.phaseGenerations.WithLabelValues(outcome).Inc()
}

// GenerationObserved records latency and token use of a model-backed generation.
func (m *Metrics) GenerationObserved(d time.Duration, tokens int) {
	if m == nil {
		return
	}
	m.generationLatency.Observe(d.Seconds())
	m.tokens.Add(float64(tokens))
}

func (m *Metrics) SanitizerFinding(risk string) {
	if m == nil {
		return
	}
	m.sanitizerFindings.WithLabelValues(risk).Inc()
}

func (m *Metrics) CreditDenied() {
	if m == nil {
		return
	}
	m.creditDenials.Inc()
}

func (m *Metrics) CreditCharged() {
	if m == nil {
		return
	}
	m.creditCharges.Inc()
}
