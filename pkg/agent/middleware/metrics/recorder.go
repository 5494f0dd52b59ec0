// Package metrics provides metrics recording for LLM client operations and routed turns.
package metrics

import (
	"time"
)

// Recorder defines the interface for recording engine metrics.
type Recorder interface {
	// ObserveRequest records metrics for a completed LLM request.
	ObserveRequest(
		model, label string,
		promptTokens, completionTokens int,
		cost float64,
		success bool,
		errorType string,
		duration time.Duration,
	)

	// ObserveTurn records a finished turn by intent and terminal state.
	ObserveTurn(intent, state string, duration time.Duration)

	// ObserveDataFetch records one call to the external data API.
	ObserveDataFetch(endpoint string, success bool, duration time.Duration)
}

// NoopRecorder implements Recorder with no-op behavior for when metrics are disabled.
type NoopRecorder struct{}

// Nop returns a no-op metrics recorder that discards all metrics.
func Nop() Recorder {
	return &NoopRecorder{}
}

// ObserveRequest does nothing in the no-op recorder.
func (n *NoopRecorder) ObserveRequest(
	_, _ string,
	_, _ int,
	_ float64,
	_ bool,
	_ string,
	_ time.Duration,
) {
	// No-op
}

// ObserveTurn does nothing in the no-op recorder.
func (n *NoopRecorder) ObserveTurn(_, _ string, _ time.Duration) {
	// No-op
}

// ObserveDataFetch does nothing in the no-op recorder.
func (n *NoopRecorder) ObserveDataFetch(_ string, _ bool, _ time.Duration) {
	// No-op
}
