package ai

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsRecorder observes provider calls.
type MetricsRecorder interface {
	Observe(ctx context.Context, provider, operation string, success bool, duration time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) Observe(context.Context, string, string, bool, time.Duration) {}

// PrometheusRecorder exports call counts and latency.
type PrometheusRecorder struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// NewPrometheusRecorder registers the AI collectors on reg. A nil reg uses
// the default registerer.
func NewPrometheusRecorder(reg prometheus.Registerer) (*PrometheusRecorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	rec := &PrometheusRecorder{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "star",
			Subsystem: "ai",
			Name:      "requests_total",
			Help:      "Provider calls by provider, operation and outcome.",
		}, []string{"provider", "operation", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "star",
			Subsystem: "ai",
			Name:      "request_duration_seconds",
			Help:      "Provider call latency.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60},
		}, []string{"provider", "operation"}),
	}
	for _, c := range []prometheus.Collector{rec.requests, rec.latency} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

// Observe implements MetricsRecorder.
func (r *PrometheusRecorder) Observe(_ context.Context, provider, operation string, success bool, duration time.Duration) {
	outcome := "error"
	if success {
		outcome = "success"
	}
	r.requests.WithLabelValues(provider, operation, outcome).Inc()
	r.latency.WithLabelValues(provider, operation).Observe(duration.Seconds())
}
