package resilience

import "github.com/prometheus/client_golang/prometheus"

// The broker fronts a single upstream, but the target label keeps the series
// shape stable if another processor is ever added.
var (
	BreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "payment_upstream_breaker_state",
			Help: "Breaker state for a payment upstream: 0=closed,1=open,2=half-open",
		},
		[]string{"target"},
	)
	BreakerTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_upstream_breaker_transition_total",
			Help: "Breaker state transitions per payment upstream",
		},
		[]string{"target", "from", "to"},
	)
	BreakerOpenedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_upstream_breaker_open_total",
			Help: "Times a payment upstream was cut off by its breaker",
		},
		[]string{"target"},
	)
)

func init() {
	prometheus.MustRegister(BreakerState, BreakerTransitions, BreakerOpenedTotal)
}
