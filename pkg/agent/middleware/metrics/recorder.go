// Package metrics provides metrics recording for LLM client operations.
package metrics

import (
	"time"
)

// Recorder defines the interface for recording LLM operation metrics.
type Recorder interface {
	// ObserveRequest records metrics for a completed LLM request.
	ObserveRequest(model, agentName string, success bool, errorType string, duration time.Duration)

	// IncDegraded increments the degradation counter when the fallback
	// policy substitutes a static recommendation.
	IncDegraded(agentName, reason string)

	// IncRetry increments the retry counter for a classified error type.
	IncRetry(agentName, errorType string)
}

// NoopRecorder implements Recorder with no-op behavior for when metrics are disabled.
type NoopRecorder struct{}

// Nop returns a no-op metrics recorder that discards all metrics.
func Nop() Recorder {
	return &NoopRecorder{}
}

// ObserveRequest does nothing in the no-op recorder.
func (n *NoopRecorder) ObserveRequest(_, _ string, _ bool, _ string, _ time.Duration) {}

// IncDegraded does nothing in the no-op recorder.
func (n *NoopRecorder) IncDegraded(_, _ string) {}

// IncRetry does nothing in the no-op recorder.
func (n *NoopRecorder) IncRetry(_, _ string) {}
