// Package metrics exposes Prometheus instrumentation for the scheduler.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trendpilot/trendpilot/internal/models"
)

// CycleCollector exposes Prometheus metrics for scheduler cycles and agent
// outcomes. It carries a private registry so tests can construct collectors
// without global state collisions.
type CycleCollector struct {
	registry      *prometheus.Registry
	cyclesTotal   prometheus.Counter
	cyclesSkipped prometheus.Counter
	cycleDuration prometheus.Histogram
	agentOutcomes *prometheus.CounterVec
	publishTotal  *prometheus.CounterVec
}

// NewCycleCollector constructs a collector with default histograms/counters.
func NewCycleCollector() (*CycleCollector, error) {
	registry := prometheus.NewRegistry()

	cyclesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "trendpilot",
		Subsystem: "scheduler",
		Name:      "cycles_total",
		Help:      "Total number of completed processing cycles.",
	})

	cyclesSkipped := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "trendpilot",
		Subsystem: "scheduler",
		Name:      "cycles_skipped_total",
		Help:      "Ticks skipped because a cycle was already in flight.",
	})

	cycleDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "trendpilot",
		Subsystem: "scheduler",
		Name:      "cycle_duration_seconds",
		Help:      "Wall-clock duration of one processing cycle.",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
	})

	agentOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trendpilot",
		Subsystem: "scheduler",
		Name:      "agent_outcomes_total",
		Help:      "Per-agent cycle outcomes by status.",
	}, []string{"status"})

	publishTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trendpilot",
		Subsystem: "publisher",
		Name:      "posts_total",
		Help:      "Successful publishes by platform.",
	}, []string{"platform"})

	for _, c := range []prometheus.Collector{
		cyclesTotal, cyclesSkipped, cycleDuration, agentOutcomes, publishTotal,
	} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}

	return &CycleCollector{
		registry:      registry,
		cyclesTotal:   cyclesTotal,
		cyclesSkipped: cyclesSkipped,
		cycleDuration: cycleDuration,
		agentOutcomes: agentOutcomes,
		publishTotal:  publishTotal,
	}, nil
}

// Handler returns an HTTP handler for exposing Prometheus metrics.
func (c *CycleCollector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveCycle records one completed cycle and its duration.
func (c *CycleCollector) ObserveCycle(duration time.Duration) {
	c.cyclesTotal.Inc()
	c.cycleDuration.Observe(duration.Seconds())
}

// ObserveSkippedCycle records a tick dropped by the cycle guard.
func (c *CycleCollector) ObserveSkippedCycle() {
	c.cyclesSkipped.Inc()
}

// RecordOutcome records one agent's cycle outcome.
func (c *CycleCollector) RecordOutcome(status models.AuditStatus) {
	c.agentOutcomes.WithLabelValues(string(status)).Inc()
}

// RecordPublish records a successful publish on a platform.
func (c *CycleCollector) RecordPublish(platform models.Platform) {
	c.publishTotal.WithLabelValues(string(platform)).Inc()
}
