// Package metrics provides Prometheus-based metrics recording for LLM operations.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusRecorder implements the Recorder interface using Prometheus metrics.
type PrometheusRecorder struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	degradedTotal   *prometheus.CounterVec
	retriesTotal    *prometheus.CounterVec
}

// NewPrometheusRecorder creates a new Prometheus-based metrics recorder.
// Collectors are registered with the default registry; create at most one
// per process.
func NewPrometheusRecorder() *PrometheusRecorder {
	return &PrometheusRecorder{
		requestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_requests_total",
				Help: "Total number of LLM requests by model, agent, and status",
			},
			[]string{"model", "agent", "status", "error_type"},
		),
		requestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "llm_request_duration_seconds",
				Help:    "Duration of LLM requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"model", "agent"},
		),
		degradedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_degraded_total",
				Help: "Total number of degraded (static fallback) results by agent and reason",
			},
			[]string{"agent", "reason"},
		),
		retriesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_retries_total",
				Help: "Total number of retried remote calls by agent and error type",
			},
			[]string{"agent", "error_type"},
		),
	}
}

// ObserveRequest records metrics for a completed LLM request.
func (p *PrometheusRecorder) ObserveRequest(model, agentName string, success bool, errorType string, duration time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	p.requestsTotal.WithLabelValues(model, agentName, status, errorType).Inc()
	p.requestDuration.WithLabelValues(model, agentName).Observe(duration.Seconds())
}

// IncDegraded increments the degradation counter.
func (p *PrometheusRecorder) IncDegraded(agentName, reason string) {
	p.degradedTotal.WithLabelValues(agentName, reason).Inc()
}

// IncRetry increments the retry counter.
func (p *PrometheusRecorder) IncRetry(agentName, errorType string) {
	p.retriesTotal.WithLabelValues(agentName, errorType).Inc()
}
