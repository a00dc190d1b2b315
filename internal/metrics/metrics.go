package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Observer is the module wide metrics sink.
var Observer = &Metrics{
	mutex:      new(sync.RWMutex),
	prometheus: NewPrometheusMetrics(),
}

func init() {
	prometheus.MustRegister(
		Observer.prometheus.Batches,
		Observer.prometheus.Samples,
		Observer.prometheus.Predictions,
		Observer.prometheus.Latency,
	)
}

type Metrics struct {
	mutex      *sync.RWMutex
	prometheus Prometheus
}

// IncrementBatches counts a loaded batch.
func (m *Metrics) IncrementBatches() {
	m.prometheus.Batches.Inc()
}

// TrackSamples counts processed samples for the given phase (train, validate).
func (m *Metrics) TrackSamples(phase string, count int) {
	m.prometheus.Samples.WithLabelValues(phase).Add(float64(count))
}

// IncrementPredictions counts a served prediction request.
func (m *Metrics) IncrementPredictions(model, code string) {
	m.prometheus.Predictions.WithLabelValues(model, code).Inc()
}

// ObserveLatency tracks the duration of a prediction request.
func (m *Metrics) ObserveLatency(d time.Duration) {
	m.prometheus.Latency.Observe(d.Seconds())
}
