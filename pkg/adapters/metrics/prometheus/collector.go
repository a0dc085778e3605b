package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector implements the pipeline metrics port using Prometheus
type Collector struct {
	runsStarted   *prometheus.CounterVec
	runsCompleted *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec

	unitsExecuted *prometheus.CounterVec
	unitDuration  prometheus.Histogram

	eventsPublished *prometheus.CounterVec
	subscribers     prometheus.Gauge
	bufferedEvents  prometheus.Gauge

	enrichments *prometheus.CounterVec

	llmCalls   *prometheus.CounterVec
	llmLatency *prometheus.HistogramVec
}

// NewCollector creates a new Prometheus metrics collector
func NewCollector() *Collector {
	return &Collector{
		runsStarted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "canvasd_runs_started_total",
				Help: "Total number of pipeline runs started",
			},
			[]string{"kind"},
		),
		runsCompleted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "canvasd_runs_completed_total",
				Help: "Total number of pipeline runs completed",
			},
			[]string{"kind", "status"},
		),
		runDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "canvasd_run_duration_seconds",
				Help:    "Pipeline run duration in seconds",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"kind"},
		),
		unitsExecuted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "canvasd_units_executed_total",
				Help: "Total number of fan-out units executed",
			},
			[]string{"status"},
		),
		unitDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "canvasd_unit_duration_seconds",
				Help:    "Fan-out unit duration in seconds",
				Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
			},
		),
		eventsPublished: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "canvasd_events_published_total",
				Help: "Total number of events published on the bus",
			},
			[]string{"type"},
		),
		subscribers: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "canvasd_bus_subscribers",
				Help: "Current number of bus subscribers",
			},
		),
		bufferedEvents: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "canvasd_bus_buffered_events",
				Help: "Current number of events held in replay buffers",
			},
		),
		enrichments: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "canvasd_enrichments_total",
				Help: "Total number of artifact enrichment outcomes",
			},
			[]string{"status"},
		),
		llmCalls: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "canvasd_llm_calls_total",
				Help: "Total number of LLM API calls",
			},
			[]string{"op", "status"},
		),
		llmLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "canvasd_llm_latency_seconds",
				Help:    "LLM API call latency in seconds",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 45, 90},
			},
			[]string{"op"},
		),
	}
}

// RecordRunStarted records a pipeline run launch
func (c *Collector) RecordRunStarted(kind string) {
	c.runsStarted.WithLabelValues(kind).Inc()
}

// RecordRunCompleted records a pipeline run outcome and duration
func (c *Collector) RecordRunCompleted(kind, status string, duration time.Duration) {
	c.runsCompleted.WithLabelValues(kind, status).Inc()
	c.runDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordUnit records a fan-out unit outcome and duration
func (c *Collector) RecordUnit(status string, duration time.Duration) {
	c.unitsExecuted.WithLabelValues(status).Inc()
	c.unitDuration.Observe(duration.Seconds())
}

// RecordEventPublished counts one published bus event
func (c *Collector) RecordEventPublished(eventType string) {
	c.eventsPublished.WithLabelValues(eventType).Inc()
}

// SetSubscribers sets the current bus subscriber count
func (c *Collector) SetSubscribers(count int) {
	c.subscribers.Set(float64(count))
}

// SetBufferedEvents sets the current replay buffer size
func (c *Collector) SetBufferedEvents(count int) {
	c.bufferedEvents.Set(float64(count))
}

// RecordEnrichment records one artifact enrichment outcome
func (c *Collector) RecordEnrichment(status string) {
	c.enrichments.WithLabelValues(status).Inc()
}

// RecordLLMCall records an LLM API call outcome and latency
func (c *Collector) RecordLLMCall(op, status string, duration time.Duration) {
	c.llmCalls.WithLabelValues(op, status).Inc()
	c.llmLatency.WithLabelValues(op).Observe(duration.Seconds())
}
