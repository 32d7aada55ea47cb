package obs

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Default latency buckets reach 10s because an intent-creation request rides
// on two sequential Stripe round-trips.
var defaultBucketsMillis = []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000}

// HTTPMetrics groups the Prometheus collectors for the broker's HTTP surface.
type HTTPMetrics struct {
	ReqTotal *prometheus.CounterVec
	ReqDur   *prometheus.HistogramVec
	InFlight prometheus.Gauge
}

// NewHTTPMetrics registers and returns HTTP metrics collectors. Registration
// tolerates duplicates so tests can build the middleware stack repeatedly.
func NewHTTPMetrics(namespace string, buckets []float64, reg prometheus.Registerer) *HTTPMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if len(buckets) == 0 {
		buckets = defaultBucketsMillis
	} else {
		sort.Float64s(buckets)
	}
	m := &HTTPMetrics{
		ReqTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests handled by the payment broker.",
		}, []string{"method", "route", "status"}),
		ReqDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency in milliseconds, including upstream processor calls.",
			Buckets:   buckets,
		}, []string{"method", "route"}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_in_flight_requests",
			Help:      "In-flight HTTP requests.",
		}),
	}
	mustRegisterCollector(reg, m.ReqTotal, func(existing prometheus.Collector) {
		if v, ok := existing.(*prometheus.CounterVec); ok {
			m.ReqTotal = v
		}
	})
	mustRegisterCollector(reg, m.ReqDur, func(existing prometheus.Collector) {
		if v, ok := existing.(*prometheus.HistogramVec); ok {
			m.ReqDur = v
		}
	})
	mustRegisterCollector(reg, m.InFlight, func(existing prometheus.Collector) {
		if v, ok := existing.(prometheus.Gauge); ok {
			m.InFlight = v
		}
	})
	return m
}

// ParseBucketsCSV converts a comma-separated list of bucket boundaries (milliseconds) into floats.
func ParseBucketsCSV(csv string) []float64 {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]float64, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		v, err := strconv.ParseFloat(trimmed, 64)
		if err != nil || v <= 0 {
			continue
		}
		out = append(out, v)
	}
	return out
}

// DurationMillis converts a duration to milliseconds for metric observation.
func DurationMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
