package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the pipeline's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	CyclesTotal   *prometheus.CounterVec
	RowsProcessed prometheus.Counter
	RowsAssigned  prometheus.Counter
	StepFailures  prometheus.Counter
	RowsRecovered prometheus.Counter
	RowsEscalated prometheus.Counter
	CycleDuration prometheus.Histogram
}

// New builds a metrics set on a dedicated registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		CyclesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "loom",
			Name:      "cycles_total",
			Help:      "Pipeline cycles by result status.",
		}, []string{"status"}),
		RowsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "loom",
			Name:      "rows_processed_total",
			Help:      "Rows whose current step was attempted.",
		}),
		RowsAssigned: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "loom",
			Name:      "rows_assigned_total",
			Help:      "Rows assigned to a worker.",
		}),
		StepFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "loom",
			Name:      "step_failures_total",
			Help:      "Step executions that failed.",
		}),
		RowsRecovered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "loom",
			Name:      "rows_recovered_total",
			Help:      "Stale in-flight rows reverted by diagnostics.",
		}),
		RowsEscalated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "loom",
			Name:      "rows_escalated_total",
			Help:      "Rows pinned to the supervisor state.",
		}),
		CycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "loom",
			Name:      "cycle_duration_seconds",
			Help:      "Wall-clock duration of completed cycles.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
	}
}

// Registry exposes the underlying registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
