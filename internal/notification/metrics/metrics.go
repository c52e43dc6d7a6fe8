package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcomes recorded on givebridge_notifications_total.
const (
	OutcomeEnqueued      = "enqueued"
	OutcomeEnqueueFailed = "enqueue_failed"
	OutcomeDelivered     = "delivered"
	OutcomeRetried       = "retried"
	OutcomeExhausted     = "exhausted"
	OutcomeSkipped       = "skipped"
)

// Metrics provides observability for notification dispatch.
type Metrics struct {
	Notifications    *prometheus.CounterVec
	DeliveryDuration prometheus.Histogram
	BreakerOpen      *prometheus.GaugeVec
}

// New registers the notification metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		Notifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "givebridge_notifications_total",
			Help: "Lifecycle notifications by outcome",
		}, []string{"outcome"}),
		DeliveryDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "givebridge_notification_delivery_duration_seconds",
			Help:    "Duration of a single notification delivery attempt",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		BreakerOpen: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "givebridge_notification_breaker_open",
			Help: "1 while the circuit breaker guarding a sender is open",
		}, []string{"sender"}),
	}
}

// Record counts n notifications with the given outcome. Safe on a nil receiver.
func (m *Metrics) Record(outcome string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.Notifications.WithLabelValues(outcome).Add(float64(n))
}

// ObserveDelivery records the duration of one delivery attempt.
// Call with time.Now() at the start of the attempt.
func (m *Metrics) ObserveDelivery(start time.Time) {
	if m == nil {
		return
	}
	m.DeliveryDuration.Observe(time.Since(start).Seconds())
}

// SetBreakerOpen mirrors the breaker state of the named sender.
func (m *Metrics) SetBreakerOpen(sender string, open bool) {
	if m == nil {
		return
	}
	v := 0.0
	if open {
		v = 1
	}
	m.BreakerOpen.WithLabelValues(sender).Set(v)
}
