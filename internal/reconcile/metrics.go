package reconcile

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts what reconciliation passes did. Each instance owns its
// registry so several reconcilers (and tests) never collide.
type Metrics struct {
	registry *prometheus.Registry

	removed      prometheus.Counter
	renamed      prometheus.Counter
	engineErrors prometheus.Counter
	passes       prometheus.Counter
}

// NewMetrics registers the reconciler counters on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		removed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "heathook",
			Subsystem: "reconcile",
			Name:      "removed_total",
			Help:      "Containers force-removed because their config was withdrawn",
		}),
		renamed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "heathook",
			Subsystem: "reconcile",
			Name:      "renamed_total",
			Help:      "Containers renamed back to their logical name",
		}),
		engineErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "heathook",
			Subsystem: "reconcile",
			Name:      "engine_errors_total",
			Help:      "Engine calls that failed during reconciliation",
		}),
		passes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "heathook",
			Subsystem: "reconcile",
			Name:      "passes_total",
			Help:      "Completed reconciliation passes",
		}),
	}
}

// WriteFile writes the counters in Prometheus text format, replacing path
// atomically. Intended for the node-exporter textfile collector.
func (m *Metrics) WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

func (m *Metrics) observe(s Summary) {
	if m == nil {
		return
	}
	m.removed.Add(float64(s.Removed))
	m.renamed.Add(float64(s.Renamed))
	m.engineErrors.Add(float64(s.Errors))
	m.passes.Inc()
}
