package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks NGO registration and verification decisions.
type Metrics struct {
	Registered        prometheus.Counter
	Decisions         *prometheus.CounterVec
	VerificationCache *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		Registered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "givebridge_ngos_registered_total",
			Help: "Total number of NGO profiles registered",
		}),
		Decisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "givebridge_ngo_verification_decisions_total",
			Help: "Admin verification decisions by outcome",
		}, []string{"outcome"}),
		VerificationCache: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "givebridge_ngo_verification_cache_total",
			Help: "Verification lookups by cache result (hit, miss, error)",
		}, []string{"result"}),
	}
}

func (m *Metrics) IncrementRegistered() {
	if m == nil {
		return
	}
	m.Registered.Inc()
}

func (m *Metrics) IncrementDecision(outcome string) {
	if m == nil {
		return
	}
	m.Decisions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementCacheResult(result string) {
	if m == nil {
		return
	}
	m.VerificationCache.WithLabelValues(result).Inc()
}
