// Package observability provides Prometheus metrics for the sweeper.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	registry *prometheus.Registry

	// Discovery metrics
	PairsSeen     *prometheus.CounterVec
	PairsFiltered *prometheus.CounterVec
	PairsEnqueued *prometheus.CounterVec
	FeedErrors    *prometheus.CounterVec

	// Dispatch metrics
	BufferSize       prometheus.Gauge
	DispatchCycles   prometheus.Counter
	DispatchOutcomes *prometheus.CounterVec
	SignalsPosted    *prometheus.CounterVec

	// Notifier metrics
	NotifierErrors      *prometheus.CounterVec
	NotifierRateLimited prometheus.Counter

	// Sweep metrics
	SweepsCompleted prometheus.Counter
}

// NewMetrics registers every metric on a fresh registry so several instances
// can coexist in tests.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "pair_sweeper"
	}
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		PairsSeen: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "pairs_seen_total",
			Help:      "Pairs returned by listing feeds",
		}, []string{"feed", "network"}),
		PairsFiltered: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "pairs_filtered_total",
			Help:      "Pairs dropped before buffering by reason",
		}, []string{"reason"}),
		PairsEnqueued: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "pairs_enqueued_total",
			Help:      "Pairs appended to the request buffer",
		}, []string{"network"}),
		FeedErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "feed_errors_total",
			Help:      "Failed listing page fetches",
		}, []string{"feed", "kind"}),

		BufferSize: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "buffer_size",
			Help:      "Requests waiting for dispatch",
		}),
		DispatchCycles: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "cycles_total",
			Help:      "Dispatch cycles run",
		}),
		DispatchOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "outcomes_total",
			Help:      "Per-pair dispatch outcomes by kind and action",
		}, []string{"kind", "action"}),
		SignalsPosted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "signals_total",
			Help:      "Analyses forwarded to notifiers",
		}, []string{"network"}),

		NotifierErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifier",
			Name:      "errors_total",
			Help:      "Failed notifier posts",
		}, []string{"network"}),
		NotifierRateLimited: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifier",
			Name:      "rate_limited_total",
			Help:      "429 replies from webhooks",
		}),

		SweepsCompleted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "runner",
			Name:      "sweeps_completed_total",
			Help:      "Full rotations over all enabled networks",
		}),
	}
}

// Handler serves this instance's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
