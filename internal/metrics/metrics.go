package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder receives the outcome of every service operation.
type Recorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// Noop discards observations.
type Noop struct{}

func (Noop) Observe(context.Context, string, bool, time.Duration) {}

// PrometheusRecorder exports operation counters and latencies on its own registry.
type PrometheusRecorder struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	transition *prometheus.CounterVec
}

func NewPrometheusRecorder() *PrometheusRecorder {
	reg := prometheus.NewRegistry()
	r := &PrometheusRecorder{
		registry: reg,
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "toolshare",
			Name:      "operations_total",
			Help:      "Service operations by name and result.",
		}, []string{"operation", "result"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "toolshare",
			Name:      "operation_duration_seconds",
			Help:      "Service operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		transition: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "toolshare",
			Name:      "status_transitions_total",
			Help:      "Booking and swap status changes.",
		}, []string{"entity", "to"}),
	}
	reg.MustRegister(
		r.operations,
		r.latency,
		r.transition,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

func (r *PrometheusRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	result := "error"
	if success {
		result = "success"
	}
	r.operations.WithLabelValues(operation, result).Inc()
	r.latency.WithLabelValues(operation).Observe(duration.Seconds())
}

// StatusChanged counts a committed lifecycle transition.
func (r *PrometheusRecorder) StatusChanged(entity, to string) {
	r.transition.WithLabelValues(entity, to).Inc()
}

func (r *PrometheusRecorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus text format.
func (r *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// TransitionCounter is implemented by recorders that also count status changes.
type TransitionCounter interface {
	StatusChanged(entity, to string)
}

// Track observes fn's duration and outcome under operation.
func Track(ctx context.Context, rec Recorder, operation string, fn func() error) error {
	start := time.Now()
	err := fn()
	if rec != nil {
		rec.Observe(ctx, operation, err == nil, time.Since(start))
	}
	return err
}
