package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks permission checks and grant mutations.
type Metrics struct {
	Checks    *prometheus.CounterVec
	Mutations *prometheus.CounterVec
}

func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Checks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "civic_permission_checks_total",
			Help: "Permission checks by permission and outcome (allowed, denied, error)",
		}, []string{"permission", "outcome"}),
		Mutations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "civic_permission_mutations_total",
			Help: "Permission grants and revocations by permission",
		}, []string{"permission", "op"}),
	}
}

func (m *Metrics) IncCheck(permission, outcome string) {
	if m != nil {
		m.Checks.WithLabelValues(permission, outcome).Inc()
	}
}

func (m *Metrics) IncMutation(permission, op string) {
	if m != nil {
		m.Mutations.WithLabelValues(permission, op).Inc()
	}
}
