package pulse

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the Prometheus instrumentation.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "pulse").
	Namespace string

	// Subsystem is the metrics subsystem (default: "scheduler").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for drain duration.
	// Default: prometheus.DefBuckets.
	Buckets []float64

	// Registry is the Prometheus registry to register with.
	// Default: prometheus.DefaultRegisterer.
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus instrumentation.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the drain-duration histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "pulse",
		Subsystem: "scheduler",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the Prometheus instruments a scheduler records into.
// Attach with WithMetrics:
//
//	reg := prometheus.NewRegistry()
//	sched := pulse.NewScheduler(
//	    pulse.WithMetrics(pulse.NewMetrics(pulse.WithRegistry(reg))),
//	)
//
// Metrics exposed (with the default namespace/subsystem):
//   - pulse_scheduler_updates_scheduled_total
//   - pulse_scheduler_reactions_run_total
//   - pulse_scheduler_flush_passes_total
//   - pulse_scheduler_recovered_panics_total
//   - pulse_scheduler_budget_trips_total
//   - pulse_scheduler_queue_depth
//   - pulse_scheduler_drain_duration_seconds
type Metrics struct {
	updatesScheduled prometheus.Counter
	reactionsRun     prometheus.Counter
	flushPasses      prometheus.Counter
	recoveredPanics  prometheus.Counter
	budgetTrips      prometheus.Counter
	queueDepth       prometheus.Gauge
	drainDuration    prometheus.Histogram
}

// NewMetrics creates and registers the scheduler instruments.
// Registering twice against the same registry panics (promauto semantics);
// create one Metrics per registry.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	factory := promauto.With(config.Registry)

	return &Metrics{
		updatesScheduled: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "updates_scheduled_total",
			Help:        "Total updates accepted into the flush queue",
			ConstLabels: config.ConstLabels,
		}),

		reactionsRun: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "reactions_run_total",
			Help:        "Total reactions executed by flush passes",
			ConstLabels: config.ConstLabels,
		}),

		flushPasses: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "flush_passes_total",
			Help:        "Total flush passes, including recursive continuations",
			ConstLabels: config.ConstLabels,
		}),

		recoveredPanics: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "recovered_panics_total",
			Help:        "Total panics recovered from scheduled reactions",
			ConstLabels: config.ConstLabels,
		}),

		budgetTrips: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "budget_trips_total",
			Help:        "Total drains abandoned because the flush budget was exceeded",
			ConstLabels: config.ConstLabels,
		}),

		queueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "queue_depth",
			Help:        "Tasks currently pending in the flush queue",
			ConstLabels: config.ConstLabels,
		}),

		drainDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "drain_duration_seconds",
			Help:        "Wall time per drain, all passes included",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),
	}
}
