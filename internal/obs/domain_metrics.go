package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// PaymentIntentTotal counts payment intent creation outcomes.
	PaymentIntentTotal *prometheus.CounterVec
	// PaymentWebhookTotal counts inbound Stripe webhook processing outcomes.
	PaymentWebhookTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		PaymentIntentTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_intent_total",
			Help:      "Count of payment intent creation outcomes.",
		}, []string{"result"})
		PaymentWebhookTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_webhook_total",
			Help:      "Count of processed Stripe webhooks by event type and outcome.",
		}, []string{"event_type", "result"})

		mustRegisterCollector(reg, PaymentIntentTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PaymentIntentTotal = v
			}
		})
		mustRegisterCollector(reg, PaymentWebhookTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PaymentWebhookTotal = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, c prometheus.Collector, replace func(prometheus.Collector)) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			replace(are.ExistingCollector)
			return
		}
		panic(err)
	}
}
