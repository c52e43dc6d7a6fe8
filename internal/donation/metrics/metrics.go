package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the donation lifecycle engine.
// Tracks creations, applied and rejected transitions, and the status change
// critical path.
type Metrics struct {
	DonationsCreated          *prometheus.CounterVec
	Transitions               *prometheus.CounterVec
	TransitionRejections      *prometheus.CounterVec
	RequestStatusChangeLatency prometheus.Histogram
}

// New creates a Metrics instance registered on the default registry.
func New() *Metrics {
	return &Metrics{
		DonationsCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "givebridge_donations_created_total",
			Help: "Total number of donations created",
		}, []string{"category"}),
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "givebridge_donation_transitions_total",
			Help: "Applied lifecycle transitions",
		}, []string{"from", "to"}),
		TransitionRejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "givebridge_donation_transition_rejections_total",
			Help: "Rejected status change requests by error code",
		}, []string{"reason"}),
		RequestStatusChangeLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "givebridge_request_status_change_duration_seconds",
			Help:    "Duration of RequestStatusChange operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncrementCreated records a successful donation creation.
func (m *Metrics) IncrementCreated(category string) {
	if m == nil {
		return
	}
	m.DonationsCreated.WithLabelValues(category).Inc()
}

func (m *Metrics) IncrementTransition(from, to string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(from, to).Inc()
}

// IncrementRejection records a refused status change. reason is the error code.
func (m *Metrics) IncrementRejection(reason string) {
	if m == nil {
		return
	}
	m.TransitionRejections.WithLabelValues(reason).Inc()
}

// ObserveRequestStatusChange records the duration of a RequestStatusChange.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveRequestStatusChange(start time.Time) {
	if m == nil {
		return
	}
	m.RequestStatusChangeLatency.Observe(time.Since(start).Seconds())
}
