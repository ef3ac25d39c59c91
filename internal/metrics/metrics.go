// Package metrics registers the Prometheus collectors served on /metrics.
// Everything uses the default registry so promhttp.Handler() picks it up.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tokensleuth"

var (
	// ProviderCalls counts every outbound provider call by data kind
	ProviderCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "provider",
		Name:      "calls_total",
		Help:      "Outbound provider calls by provider and data kind",
	}, []string{"provider", "kind"})

	// ProviderErrors counts provider failures by taxonomy kind
	ProviderErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "provider",
		Name:      "errors_total",
		Help:      "Provider failures by provider and error kind",
	}, []string{"provider", "error_kind"})

	// ProviderLatency observes end-to-end provider call latency
	ProviderLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "provider",
		Name:      "latency_seconds",
		Help:      "Provider call latency",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2},
	}, []string{"provider"})

	// CacheHits counts data-need cache hits by kind
	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Data-need cache hits by kind",
	}, []string{"kind"})

	// CacheMisses counts data-need cache misses by kind
	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Data-need cache misses by kind",
	}, []string{"kind"})

	// ScansTotal counts completed scans by chain and resulting category
	ScansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scan",
		Name:      "completed_total",
		Help:      "Completed scans by chain and category",
	}, []string{"chain", "category"})

	// ScanPhaseSeconds observes time spent in each scan phase
	ScanPhaseSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "scan",
		Name:      "phase_seconds",
		Help:      "Scan phase duration (queue, fetch, evaluate, persist)",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 1.5, 3},
	}, []string{"phase"})

	// JobsInflight tracks jobs currently RUNNING per chain
	JobsInflight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "jobs_inflight",
		Help:      "Jobs currently running per chain",
	}, []string{"chain"})

	// QueueDepth tracks queued jobs per priority band
	QueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "queue_depth",
		Help:      "Queued jobs per tier",
	}, []string{"tier"})

	// JobRetries counts scan attempts beyond the first
	JobRetries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "retries_total",
		Help:      "Scan attempts beyond the first",
	})
)
