package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the payment service collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	initiations     *prometheus.CounterVec
	callbacks       *prometheus.CounterVec
	providerLatency *prometheus.HistogramVec
	sweeps          *prometheus.CounterVec
	requestCounter  *prometheus.CounterVec
	requestLatency  *prometheus.HistogramVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		initiations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_initiations_total",
				Help: "Push payment initiations by outcome",
			},
			[]string{"outcome"},
		),
		callbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_callbacks_total",
				Help: "Provider callbacks by reconciliation outcome",
			},
			[]string{"outcome"},
		),
		providerLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "payment_provider_request_duration_seconds",
				Help:    "Duration of calls to the payment provider in seconds",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 15, 30},
			},
			[]string{"operation", "outcome"},
		),
		sweeps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_sweep_intents_total",
				Help: "Stale pending intents examined by the sweep, by outcome",
			},
			[]string{"outcome"},
		),
		requestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_service_requests_total",
				Help: "Total number of requests to payment service",
			},
			[]string{"method", "route", "status"},
		),
		requestLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "payment_service_request_duration_seconds",
				Help:    "Duration of payment service requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	reg.MustRegister(
		m.initiations,
		m.callbacks,
		m.providerLatency,
		m.sweeps,
		m.requestCounter,
		m.requestLatency,
	)
	return m
}

func (m *Metrics) Initiation(outcome string) {
	if m == nil {
		return
	}
	m.initiations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Callback(outcome string) {
	if m == nil {
		return
	}
	m.callbacks.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ProviderCall(operation, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.providerLatency.WithLabelValues(operation, outcome).Observe(d.Seconds())
}

func (m *Metrics) Sweep(outcome string) {
	if m == nil {
		return
	}
	m.sweeps.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Request(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.requestCounter.WithLabelValues(method, route, status).Inc()
	m.requestLatency.WithLabelValues(method, route).Observe(d.Seconds())
}
