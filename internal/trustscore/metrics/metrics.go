package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks trust-score computations and per-source evidence latency.
type Metrics struct {
	Computations  *prometheus.CounterVec
	SourceLatency *prometheus.HistogramVec
	Scores        prometheus.Histogram
}

func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Computations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "civic_trust_score_computations_total",
			Help: "Trust score computations by outcome (ok, error)",
		}, []string{"outcome"}),
		SourceLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "civic_trust_score_source_duration_seconds",
			Help:    "Latency of each evidence source read",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"source"}),
		Scores: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "civic_trust_score_value",
			Help:    "Distribution of computed trust scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		}),
	}
}

func (m *Metrics) ObserveSource(source string, d time.Duration) {
	if m != nil {
		m.SourceLatency.WithLabelValues(source).Observe(d.Seconds())
	}
}

func (m *Metrics) ObserveScore(score int) {
	if m != nil {
		m.Computations.WithLabelValues("ok").Inc()
		m.Scores.Observe(float64(score))
	}
}

func (m *Metrics) IncError() {
	if m != nil {
		m.Computations.WithLabelValues("error").Inc()
	}
}
