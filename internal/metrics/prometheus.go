package metrics

import "github.com/prometheus/client_golang/prometheus"

// Prometheus bundles the prometheus vectors of the module.
type Prometheus struct {
	Batches     prometheus.Counter
	Samples     *prometheus.CounterVec
	Predictions *prometheus.CounterVec
	Latency     prometheus.Histogram
}

// NewPrometheusMetrics creates the prometheus vectors.
func NewPrometheusMetrics() Prometheus {
	return Prometheus{
		Batches: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "vision",
				Name:      "batches_loaded",
			}),
		Samples: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "vision",
				Name:      "samples",
			}, []string{"phase"}),
		Predictions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "vision",
				Name:      "predictions",
			}, []string{"model", "code"}),
		Latency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "vision",
				Name:      "predict_latency_seconds",
				Buckets:   prometheus.DefBuckets,
			}),
	}
}
