package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects per-run counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry       *prometheus.Registry
	requests       *prometheus.CounterVec
	retries        *prometheus.CounterVec
	lookups        *prometheus.CounterVec
	lookupDuration prometheus.Histogram
}

// NewMetrics creates the collectors on a private registry
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "buybox_api_requests_total",
				Help: "Rainforest API requests by view and HTTP status code",
			},
			[]string{"view", "code"},
		),
		retries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "buybox_api_retries_total",
				Help: "Rainforest API requests retried after 429/5xx",
			},
			[]string{"view"},
		),
		lookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "buybox_lookups_total",
				Help: "ASIN lookups by outcome",
			},
			[]string{"outcome"},
		),
		lookupDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "buybox_lookup_duration_seconds",
				Help:    "Wall time of one ASIN lookup including retries",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
			},
		),
	}
	m.registry.MustRegister(m.requests, m.retries, m.lookups, m.lookupDuration)
	return m
}

// ObserveRequest counts one HTTP round trip. Status 0 means no response.
func (m *Metrics) ObserveRequest(view string, status int) {
	if m == nil {
		return
	}
	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	m.requests.WithLabelValues(view, code).Inc()
}

// ObserveRetry counts one retried request
func (m *Metrics) ObserveRetry(view string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(view).Inc()
}

// ObserveLookup records the outcome ("ok" or "error") and duration of one ASIN
func (m *Metrics) ObserveLookup(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues(outcome).Inc()
	m.lookupDuration.Observe(d.Seconds())
}

// Gatherer exposes the registry
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// WriteTextfile writes the metrics in text exposition format, suitable for
// the node_exporter textfile collector
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
