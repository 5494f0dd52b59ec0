package metrics

import (
	"sync"
	"time"
)

// UsageRecorder aggregates token usage in memory, keyed by call-site label.
// The chat CLI prints it on exit; it also wraps another Recorder so both can run at once.
type UsageRecorder struct {
	next   Recorder
	labels map[string]*LabelUsage
	mu     sync.RWMutex
}

// LabelUsage represents aggregated usage for one call site.
//
//nolint:govet
type LabelUsage struct {
	PromptTokens     int64     `json:"prompt_tokens"`
	CompletionTokens int64     `json:"completion_tokens"`
	RequestCount     int64     `json:"request_count"`
	ErrorCount       int64     `json:"error_count"`
	TotalCost        float64   `json:"total_cost_usd"`
	Label            string    `json:"label"`
	LastUpdated      time.Time `json:"last_updated"`
}

// NewUsageRecorder creates an in-memory recorder forwarding to next (nil for none).
func NewUsageRecorder(next Recorder) *UsageRecorder {
	if next == nil {
		next = Nop()
	}
	return &UsageRecorder{
		next:   next,
		labels: make(map[string]*LabelUsage),
	}
}

// ObserveRequest aggregates the request and forwards it.
func (r *UsageRecorder) ObserveRequest(
	model, label string,
	promptTokens, completionTokens int,
	cost float64,
	success bool,
	errorType string,
	duration time.Duration,
) {
	r.next.ObserveRequest(model, label, promptTokens, completionTokens, cost, success, errorType, duration)

	r.mu.Lock()
	defer r.mu.Unlock()

	usage, exists := r.labels[label]
	if !exists {
		usage = &LabelUsage{Label: label}
		r.labels[label] = usage
	}
	usage.RequestCount++
	usage.LastUpdated = time.Now()
	if !success {
		usage.ErrorCount++
		return
	}
	usage.PromptTokens += int64(promptTokens)
	usage.CompletionTokens += int64(completionTokens)
	usage.TotalCost += cost
}

// ObserveTurn forwards to the wrapped recorder.
func (r *UsageRecorder) ObserveTurn(intent, state string, duration time.Duration) {
	r.next.ObserveTurn(intent, state, duration)
}

// ObserveDataFetch forwards to the wrapped recorder.
func (r *UsageRecorder) ObserveDataFetch(endpoint string, success bool, duration time.Duration) {
	r.next.ObserveDataFetch(endpoint, success, duration)
}

// Usage returns a copy of the aggregate for label, or nil.
func (r *UsageRecorder) Usage(label string) *LabelUsage {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if usage, exists := r.labels[label]; exists {
		cp := *usage
		return &cp
	}
	return nil
}

// Totals sums usage across every label.
func (r *UsageRecorder) Totals() LabelUsage {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := LabelUsage{Label: "total"}
	for _, usage := range r.labels {
		total.PromptTokens += usage.PromptTokens
		total.CompletionTokens += usage.CompletionTokens
		total.RequestCount += usage.RequestCount
		total.ErrorCount += usage.ErrorCount
		total.TotalCost += usage.TotalCost
		if usage.LastUpdated.After(total.LastUpdated) {
			total.LastUpdated = usage.LastUpdated
		}
	}
	return total
}

// Reset clears all aggregates.
func (r *UsageRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.labels = make(map[string]*LabelUsage)
}
