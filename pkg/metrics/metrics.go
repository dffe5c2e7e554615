// Package metrics defines the prometheus collectors diskprep exposes for
// its cleanup and apply runs. Unlike a long-running daemon, diskprep is a
// one-shot CLI, so collectors are not registered into the global
// registry at init time: a caller constructs a Metrics bound to its own
// prometheus.Registerer (typically a fresh one per run, optionally
// pushed to a pushgateway or dumped to a textfile collector directory).
package metrics

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Metrics holds every collector diskprep updates during a cleanup or
// apply run.
type Metrics struct {
	CleanupNodesVisited   prometheus.Counter
	CleanupNodesFailed    prometheus.Counter
	CleanupDuration       prometheus.Histogram
	ApplyDuration         prometheus.Histogram
	ApplyState            *prometheus.GaugeVec
	FormatterInvocations  *prometheus.CounterVec
	PlannedArrays         prometheus.Gauge
	PlannedLogicalVolumes prometheus.Gauge

	registry *prometheus.Registry
}

// New builds a Metrics and registers every collector with reg. reg must
// not be nil; pass prometheus.NewRegistry() for an isolated, per-run
// registry.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: reg,
		CleanupNodesVisited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "diskprep",
			Subsystem: "cleanup",
			Name:      "nodes_visited_total",
			Help:      "Total number of storage graph nodes visited during cleanup.",
		}),
		CleanupNodesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "diskprep",
			Subsystem: "cleanup",
			Name:      "nodes_failed_total",
			Help:      "Total number of storage graph nodes that failed teardown or scrub.",
		}),
		CleanupDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "diskprep",
			Subsystem: "cleanup",
			Name:      "duration_seconds",
			Help:      "Wall-clock duration of a cleanup run.",
			Buckets:   prometheus.DefBuckets,
		}),
		ApplyDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "diskprep",
			Subsystem: "apply",
			Name:      "duration_seconds",
			Help:      "Wall-clock duration of an apply run, from entering Ready to a terminal state.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		ApplyState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "diskprep",
			Subsystem: "apply",
			Name:      "state",
			Help:      "1 if the most recent apply run is currently in the named state, else 0.",
		}, []string{"state"}),
		FormatterInvocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "diskprep",
			Subsystem: "apply",
			Name:      "formatter_invocations_total",
			Help:      "Total invocations of the declarative formatter, by outcome.",
		}, []string{"outcome"}),
		PlannedArrays: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "diskprep",
			Subsystem: "planner",
			Name:      "arrays",
			Help:      "Number of RAID arrays in the most recently rendered plan.",
		}),
		PlannedLogicalVolumes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "diskprep",
			Subsystem: "planner",
			Name:      "logical_volumes",
			Help:      "Number of logical volumes in the most recently rendered plan.",
		}),
	}

	reg.MustRegister(
		m.CleanupNodesVisited,
		m.CleanupNodesFailed,
		m.CleanupDuration,
		m.ApplyDuration,
		m.ApplyState,
		m.FormatterInvocations,
		m.PlannedArrays,
		m.PlannedLogicalVolumes,
	)

	return m
}

// SetState flips ApplyState so exactly one state label reads 1.
func (m *Metrics) SetState(states []string, current string) {
	for _, s := range states {
		v := 0.0
		if s == current {
			v = 1.0
		}
		m.ApplyState.WithLabelValues(s).Set(v)
	}
}

// WriteTextfile gathers every collector and writes it in the Prometheus
// text exposition format to path, following the node_exporter textfile
// collector convention: diskprep is a one-shot CLI with no HTTP surface
// of its own, so this is how a run's metrics reach a scraper.
func (m *Metrics) WriteTextfile(path string) error {
	families, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("metrics: gathering: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("metrics: creating %q: %w", path, err)
	}
	defer f.Close()

	enc := expfmt.NewEncoder(f, expfmt.FmtText)
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("metrics: encoding: %w", err)
		}
	}
	return nil
}
