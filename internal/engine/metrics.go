package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the runtime's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	resolves  prometheus.Counter
	attempts  *prometheus.CounterVec
	updates   *prometheus.CounterVec
	emissions prometheus.Counter
	layers    prometheus.Counter
}

// NewMetrics registers the runtime collectors with reg. Pass
// prometheus.NewRegistry() in tests to keep registrations isolated.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		resolves: f.NewCounter(prometheus.CounterOpts{
			Namespace: "strata",
			Name:      "resolves_total",
			Help:      "Total number of layer resolve cycles started",
		}),
		attempts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "strata",
			Name:      "render_attempts_total",
			Help:      "Render attempts by outcome",
		}, []string{"outcome"}),
		updates: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "strata",
			Name:      "updates_total",
			Help:      "Store updates by propagation path",
		}, []string{"path"}),
		emissions: f.NewCounter(prometheus.CounterOpts{
			Namespace: "strata",
			Name:      "listener_emissions_total",
			Help:      "Total number of listener invocations",
		}),
		layers: f.NewCounter(prometheus.CounterOpts{
			Namespace: "strata",
			Name:      "layers_created_total",
			Help:      "Total number of layers constructed (pool misses)",
		}),
	}
}

func (m *Metrics) resolve() {
	if m != nil {
		m.resolves.Inc()
	}
}

func (m *Metrics) attempt(o outcome) {
	if m != nil {
		m.attempts.WithLabelValues(o.String()).Inc()
	}
}

func (m *Metrics) update(path string) {
	if m != nil {
		m.updates.WithLabelValues(path).Inc()
	}
}

func (m *Metrics) emit() {
	if m != nil {
		m.emissions.Inc()
	}
}

func (m *Metrics) layer() {
	if m != nil {
		m.layers.Inc()
	}
}
