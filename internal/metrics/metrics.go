// Package metrics holds the Prometheus collectors for both pipelines.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/sells-group/answer-engine/internal/model"
)

const namespace = "answer_engine"

// Metrics groups the collectors. A nil *Metrics is valid and records nothing,
// so library code can take one optionally.
type Metrics struct {
	registry *prometheus.Registry

	questions       *prometheus.CounterVec
	methods         *prometheus.CounterVec
	candidates      *prometheus.CounterVec
	confidence      *prometheus.HistogramVec
	questionLatency *prometheus.HistogramVec
	generations     *prometheus.CounterVec
	retries         *prometheus.CounterVec
	retrievalMisses *prometheus.CounterVec
	indexRebuilds   *prometheus.CounterVec
	sandboxRuns     *prometheus.CounterVec
}

// New creates the collectors on a fresh registry that also carries the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		questions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "questions_total",
			Help:      "Questions processed by pipeline and outcome",
		}, []string{"pipeline", "outcome"}),
		methods: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "math",
			Name:      "reconciliation_total",
			Help:      "Reconciliation results by method",
		}, []string{"method"}),
		candidates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "math",
			Name:      "candidates_total",
			Help:      "Generation path outcomes by path and status",
		}, []string{"path", "status"}),
		confidence: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "confidence",
			Help:      "Distribution of final answer confidence",
			Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.65, 0.7, 0.75, 0.8, 0.9, 1.0},
		}, []string{"pipeline"}),
		questionLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "question_duration_seconds",
			Help:      "Time to answer one question",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		}, []string{"pipeline"}),
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "generations_total",
			Help:      "Generation calls by purpose and status",
		}, []string{"purpose", "status"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "retries_total",
			Help:      "Provider retries by provider and error class",
		}, []string{"provider", "class"}),
		retrievalMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retrieval",
			Name:      "misses_total",
			Help:      "Retrievals that returned no examples, by reason",
		}, []string{"reason"}),
		indexRebuilds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "rebuilds_total",
			Help:      "Index cache rebuilds by index name",
		}, []string{"index"}),
		sandboxRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sandbox",
			Name:      "executions_total",
			Help:      "Sandbox executions by status",
		}, []string{"status"}),
	}
	reg.MustRegister(
		m.questions, m.methods, m.candidates, m.confidence, m.questionLatency,
		m.generations, m.retries, m.retrievalMisses, m.indexRebuilds, m.sandboxRuns,
	)
	return m
}

// Registry returns the registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordQuestion records a finished question. outcome is "ok" or "error".
func (m *Metrics) RecordQuestion(pipeline, outcome string, confidence float64, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.questions.WithLabelValues(pipeline, outcome).Inc()
	m.confidence.WithLabelValues(pipeline).Observe(confidence)
	m.questionLatency.WithLabelValues(pipeline).Observe(elapsed.Seconds())
}

// RecordReconciliation counts the method that decided a math answer.
func (m *Metrics) RecordReconciliation(method model.Method) {
	if m == nil {
		return
	}
	m.methods.WithLabelValues(string(method)).Inc()
}

// RecordCandidate counts one generation path outcome.
func (m *Metrics) RecordCandidate(path string, succeeded bool) {
	if m == nil {
		return
	}
	m.candidates.WithLabelValues(path, status(succeeded)).Inc()
}

// RecordGeneration counts one generation call.
func (m *Metrics) RecordGeneration(purpose string, err error) {
	if m == nil {
		return
	}
	m.generations.WithLabelValues(purpose, status(err == nil)).Inc()
}

// RecordRetry counts one provider retry.
func (m *Metrics) RecordRetry(provider, class string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(provider, class).Inc()
}

// RecordRetrievalMiss counts a retrieval that produced nothing.
func (m *Metrics) RecordRetrievalMiss(reason string) {
	if m == nil {
		return
	}
	m.retrievalMisses.WithLabelValues(reason).Inc()
}

// RecordIndexRebuild counts a cache rebuild of the named index.
func (m *Metrics) RecordIndexRebuild(index string) {
	if m == nil {
		return
	}
	m.indexRebuilds.WithLabelValues(index).Inc()
}

// RecordSandbox counts one sandbox execution.
func (m *Metrics) RecordSandbox(err error) {
	if m == nil {
		return
	}
	m.sandboxRuns.WithLabelValues(status(err == nil)).Inc()
}

func status(ok bool) string {
	if ok {
		return "success"
	}
	return "error"
}
