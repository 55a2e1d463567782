package exchange

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the exchange protocol.
type Metrics struct {
	Exports        prometheus.Counter
	Imports        prometheus.Counter
	ImportFailures prometheus.Counter
	SchemaReleases prometheus.Counter
	ArrayReleases  prometheus.Counter
}

// DefaultMetrics is used by every Exporter and by the release callbacks.
var DefaultMetrics = NewMetrics("arrowcapsule")

// NewMetrics creates a new Metrics instance with the given namespace.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		Exports: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "Total number of handles exported to capsule pairs",
		}),
		Imports: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "imports_total",
			Help:      "Total number of capsule pairs imported into handles",
		}),
		ImportFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_failures_total",
			Help:      "Total number of rejected capsule imports",
		}),
		SchemaReleases: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "schema_releases_total",
			Help:      "Total number of schema capsule release callbacks run",
		}),
		ArrayReleases: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "array_releases_total",
			Help:      "Total number of array capsule release callbacks run",
		}),
	}
}
