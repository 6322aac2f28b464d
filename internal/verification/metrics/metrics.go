package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the verification workflow.
type Metrics struct {
	Submissions      *prometheus.CounterVec
	Decisions        *prometheus.CounterVec
	DecisionDuration prometheus.Histogram
	EmailCodes       *prometheus.CounterVec
	NotifyFailures   prometheus.Counter
}

func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Submissions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "civic_verification_submissions_total",
			Help: "Verification submissions by result (created, existing, approved)",
		}, []string{"result"}),
		Decisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "civic_verification_decisions_total",
			Help: "Verification decisions by outcome (approved, rejected, invalid_state)",
		}, []string{"outcome"}),
		DecisionDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "civic_verification_decision_duration_seconds",
			Help:    "Duration of approve/reject including the permission grant transaction",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		EmailCodes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "civic_verification_email_codes_total",
			Help: "Email code operations by op (issued, confirmed, mismatch, expired, exhausted)",
		}, []string{"op"}),
		NotifyFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "civic_verification_notify_failures_total",
			Help: "Decision notifications that could not be enqueued after commit",
		}),
	}
}

func (m *Metrics) IncSubmission(result string) {
	if m != nil {
		m.Submissions.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) IncDecision(outcome string) {
	if m != nil {
		m.Decisions.WithLabelValues(outcome).Inc()
	}
}

// ObserveDecision records the duration of a decision started at start.
func (m *Metrics) ObserveDecision(start time.Time) {
	if m != nil {
		m.DecisionDuration.Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) IncEmailCode(op string) {
	if m != nil {
		m.EmailCodes.WithLabelValues(op).Inc()
	}
}

func (m *Metrics) IncNotifyFailure() {
	if m != nil {
		m.NotifyFailures.Inc()
	}
}
