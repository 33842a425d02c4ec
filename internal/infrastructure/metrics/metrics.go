// Package metrics holds the Prometheus instruments for the verification
// workflow. Every method is safe on a nil *Metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	// Claim status transitions by source and target status
	Transitions *prometheus.CounterVec

	// AI processing outcomes: ai_approved, human_review, failed, skipped
	AIOutcomes *prometheus.CounterVec

	// Verdict parse fallbacks by mode
	ParseFallbacks *prometheus.CounterVec

	// LLM call latency
	LLMLatency prometheus.Histogram

	// Failed downstream effects by effect name
	EffectFailures *prometheus.CounterVec

	// Channel deliveries by channel and result
	Deliveries *prometheus.CounterVec

	// Worker job results by kind and result
	Jobs *prometheus.CounterVec

	// Waiting jobs
	QueueDepth prometheus.Gauge
}

// New creates a Metrics instance on its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := func(c prometheus.Collector) { reg.MustRegister(c) }

	m := &Metrics{
		registry: reg,
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "factcheck_claim_transitions_total",
			Help: "Claim status transitions by source and target status",
		}, []string{"from", "to"}),
		AIOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "factcheck_ai_outcomes_total",
			Help: "AI verification outcomes",
		}, []string{"outcome"}),
		ParseFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "factcheck_ai_parse_fallbacks_total",
			Help: "Model responses that needed the keyword fallback",
		}, []string{"mode"}),
		LLMLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "factcheck_llm_request_duration_seconds",
			Help:    "Duration of LLM assessment calls",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		EffectFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "factcheck_effect_failures_total",
			Help: "Downstream effects that failed",
		}, []string{"effect"}),
		Deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "factcheck_notification_deliveries_total",
			Help: "Secondary channel deliveries by channel and result",
		}, []string{"channel", "result"}),
		Jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "factcheck_jobs_total",
			Help: "Worker job results by kind and result",
		}, []string{"kind", "result"}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "factcheck_queue_depth",
			Help: "Jobs waiting in the queue",
		}),
	}
	f(m.Transitions)
	f(m.AIOutcomes)
	f(m.ParseFallbacks)
	f(m.LLMLatency)
	f(m.EffectFailures)
	f(m.Deliveries)
	f(m.Jobs)
	f(m.QueueDepth)
	return m
}

// Handler exposes the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) IncTransition(from, to string) {
	if m != nil {
		m.Transitions.WithLabelValues(from, to).Inc()
	}
}

func (m *Metrics) IncAIOutcome(outcome string) {
	if m != nil {
		m.AIOutcomes.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncParseFallback(mode string) {
	if m != nil {
		m.ParseFallbacks.WithLabelValues(mode).Inc()
	}
}

func (m *Metrics) ObserveLLMLatency(d time.Duration) {
	if m != nil {
		m.LLMLatency.Observe(d.Seconds())
	}
}

func (m *Metrics) IncEffectFailure(effect string) {
	if m != nil {
		m.EffectFailures.WithLabelValues(effect).Inc()
	}
}

func (m *Metrics) IncDelivery(channel, result string) {
	if m != nil {
		m.Deliveries.WithLabelValues(channel, result).Inc()
	}
}

func (m *Metrics) IncJob(kind, result string) {
	if m != nil {
		m.Jobs.WithLabelValues(kind, result).Inc()
	}
}

func (m *Metrics) SetQueueDepth(n int64) {
	if m != nil {
		m.QueueDepth.Set(float64(n))
	}
}
