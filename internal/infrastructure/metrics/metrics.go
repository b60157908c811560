// Package metrics exposes Prometheus collectors for the extraction pipeline.
// Every method is safe to call on a nil *Metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
)

// Metrics bundles Prometheus collectors on a dedicated registry.
type Metrics struct {
	Registry           *prometheus.Registry
	StrategyAttempts   *prometheus.CounterVec
	ExtractionDuration *prometheus.HistogramVec
	AICalls            *prometheus.CounterVec
	CacheLookups       *prometheus.CounterVec
	FetchResponses     *prometheus.CounterVec
}

// New constructs and registers all metrics on a dedicated registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	strategyAttempts := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notwins_extraction_strategy_attempts_total",
			Help: "Extraction strategy attempts by strategy and outcome.",
		},
		[]string{"strategy", "outcome"},
	)
	extractionDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notwins_extraction_duration_seconds",
			Help:    "End-to-end product extraction latency.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 60},
		},
		[]string{"outcome"},
	)
	aiCalls := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notwins_ai_calls_total",
			Help: "AI provider calls by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)
	cacheLookups := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notwins_cache_lookups_total",
			Help: "Result cache lookups by namespace and result.",
		},
		[]string{"namespace", "result"},
	)
	fetchResponses := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notwins_fetch_responses_total",
			Help: "Outbound fetch responses by kind and status class.",
		},
		[]string{"kind", "status"},
	)

	registry.MustRegister(
		strategyAttempts, extractionDuration, aiCalls, cacheLookups, fetchResponses,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Metrics{
		Registry:           registry,
		StrategyAttempts:   strategyAttempts,
		ExtractionDuration: extractionDuration,
		AICalls:            aiCalls,
		CacheLookups:       cacheLookups,
		FetchResponses:     fetchResponses,
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// IncStrategy records one strategy attempt.
func (m *Metrics) IncStrategy(strategy, outcome string) {
	if m == nil {
		return
	}
	m.StrategyAttempts.WithLabelValues(strategy, outcome).Inc()
}

// ObserveExtraction records the duration of one extraction.
func (m *Metrics) ObserveExtraction(d time.Duration, outcome string) {
	if m == nil {
		return
	}
	m.ExtractionDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// IncAICall records one AI provider call.
func (m *Metrics) IncAICall(operation, outcome string) {
	if m == nil {
		return
	}
	m.AICalls.WithLabelValues(operation, outcome).Inc()
}

// IncCache records a cache hit or miss for a key namespace.
func (m *Metrics) IncCache(namespace string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(namespace, result).Inc()
}

// IncFetch records an outbound response; status 0 means a transport error.
func (m *Metrics) IncFetch(kind string, status int) {
	if m == nil {
		return
	}
	m.FetchResponses.WithLabelValues(kind, statusClass(status)).Inc()
}

func statusClass(status int) string {
	switch {
	case status <= 0:
		return "error"
	case status < 300:
		return "2xx"
	case status < 400:
		return "3xx"
	case status < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
