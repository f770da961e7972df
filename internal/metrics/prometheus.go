package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// simMetrics is the lazily-initialised Prometheus registry for this
// process's simulation counters/gauges, mirroring the teacher's
// network/metrics.go and observability/metrics.go lazy-registry pattern
// (sync.Once-guarded struct of counters/gauges, registered once via
// prometheus.MustRegister).
type simMetrics struct {
	ticksProcessed prometheus.Counter
	activeLoans    prometheus.Gauge
	defaultedLoans prometheus.Gauge
}

var (
	simMetricsOnce sync.Once
	simRegistry    *simMetrics
)

// Prometheus returns the lazily-initialised simulation metrics registry.
func Prometheus() *simMetrics {
	simMetricsOnce.Do(func() {
		simRegistry = &simMetrics{
			ticksProcessed: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "cora_sim",
				Subsystem: "engine",
				Name:      "ticks_processed_total",
				Help:      "Total simulation ticks processed across all runs in this process.",
			}),
			activeLoans: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "cora_sim",
				Subsystem: "pool",
				Name:      "active_loans",
				Help:      "Active loan count as of the most recently processed tick.",
			}),
			defaultedLoans: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "cora_sim",
				Subsystem: "pool",
				Name:      "defaulted_loans",
				Help:      "Defaulted loan count as of the most recently processed tick.",
			}),
		}
		prometheus.MustRegister(
			simRegistry.ticksProcessed,
			simRegistry.activeLoans,
			simRegistry.defaultedLoans,
		)
	})
	return simRegistry
}

// RecordStep increments the tick counter and sets the active/defaulted loan
// gauges to the counts observed at the current tick.
func (m *simMetrics) RecordStep(activeLoans, defaultedLoans int) {
	m.ticksProcessed.Inc()
	m.activeLoans.Set(float64(activeLoans))
	m.defaultedLoans.Set(float64(defaultedLoans))
}
