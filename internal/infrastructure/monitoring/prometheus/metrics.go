// Package prometheus holds the engine's metric instruments.  All components
// record through the Metrics struct; no other package touches the prometheus
// client directly.
package prometheus

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles every instrument the engine emits, registered on a private
// registry so tests can construct instances without collisions.
type Metrics struct {
	registry *prometheus.Registry

	// AnswersTotal counts completed answer() calls by terminal source tag
	// (agent, fallback_search, error).
	AnswersTotal *prometheus.CounterVec

	// AnswerDuration observes end-to-end answer latency in seconds by source.
	AnswerDuration *prometheus.HistogramVec

	// SearchesTotal counts similarity-index queries by outcome (ok, empty,
	// index_error).
	SearchesTotal *prometheus.CounterVec

	// CacheOps counts query-cache operations by op (get, put, invalidate,
	// sweep) and result (hit, miss, expired, ok, error).
	CacheOps *prometheus.CounterVec

	// ModelCalls counts language-model backend calls by outcome (ok, timeout,
	// error).
	ModelCalls *prometheus.CounterVec

	// LoopIterations observes reasoning-loop iteration counts per answer.
	LoopIterations prometheus.Histogram

	// IndexedRecords counts records accepted and rejected at the ingestion
	// boundary.
	IndexedRecords *prometheus.CounterVec
}

// New constructs a Metrics instance under the given namespace.
func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector())

	m := &Metrics{
		registry: reg,
		AnswersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answers_total",
			Help:      "Completed answer calls by terminal source tag.",
		}, []string{"source"}),
		AnswerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "answer_duration_seconds",
			Help:      "End-to-end answer latency.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"source"}),
		SearchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Similarity-index queries by outcome.",
		}, []string{"outcome"}),
		CacheOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_ops_total",
			Help:      "Query-cache operations by op and result.",
		}, []string{"op", "result"}),
		ModelCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_calls_total",
			Help:      "Language-model backend calls by outcome.",
		}, []string{"outcome"}),
		LoopIterations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "loop_iterations",
			Help:      "Reasoning-loop iterations per answer.",
			Buckets:   []float64{0, 1, 2, 3, 4},
		}),
		IndexedRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "indexed_records_total",
			Help:      "Records accepted or rejected at the ingestion boundary.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.AnswersTotal,
		m.AnswerDuration,
		m.SearchesTotal,
		m.CacheOps,
		m.ModelCalls,
		m.LoopIterations,
		m.IndexedRecords,
	)
	return m
}

// Handler returns the exposition endpoint for this instance's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// ObserveAnswer records one completed answer call.
func (m *Metrics) ObserveAnswer(source string, elapsed time.Duration) {
	m.AnswersTotal.WithLabelValues(source).Inc()
	m.AnswerDuration.WithLabelValues(source).Observe(elapsed.Seconds())
}

// Nop returns a Metrics instance whose instruments are registered on a
// throwaway registry.  Handy default for tests and optional wiring.
func Nop() *Metrics { return New("nop") }
