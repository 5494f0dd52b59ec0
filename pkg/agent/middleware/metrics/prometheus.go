package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusRecorder implements the Recorder interface using Prometheus metrics.
type PrometheusRecorder struct {
	requestsTotal   *prometheus.CounterVec
	tokensTotal     *prometheus.CounterVec
	costsTotal      *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	turnsTotal      *prometheus.CounterVec
	turnDuration    *prometheus.HistogramVec
	fetchesTotal    *prometheus.CounterVec
	fetchDuration   *prometheus.HistogramVec
}

// NewPrometheusRecorder creates a recorder whose collectors are registered on reg.
// A nil reg uses the default registerer.
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PrometheusRecorder{
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "grindhub_llm_requests_total",
				Help: "Total number of LLM requests by model, call site, and status",
			},
			[]string{"model", "label", "status", "error_type"},
		),
		tokensTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "grindhub_llm_tokens_total",
				Help: "Total number of tokens used in LLM requests",
			},
			[]string{"model", "label", "type"},
		),
		costsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "grindhub_llm_costs_total",
				Help: "Total estimated cost in USD for LLM requests",
			},
			[]string{"model"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "grindhub_llm_request_duration_seconds",
				Help:    "Duration of LLM requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"model", "label"},
		),
		turnsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "grindhub_turns_total",
				Help: "Total number of routed turns by intent and terminal state",
			},
			[]string{"intent", "state"},
		),
		turnDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "grindhub_turn_duration_seconds",
				Help:    "End-to-end turn latency in seconds",
				Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32, 64},
			},
			[]string{"intent"},
		),
		fetchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "grindhub_data_fetches_total",
				Help: "Total number of external data API calls by endpoint and status",
			},
			[]string{"endpoint", "status"},
		),
		fetchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "grindhub_data_fetch_duration_seconds",
				Help:    "Duration of external data API calls in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
	}
}

// ObserveRequest records metrics for a completed LLM request.
func (p *PrometheusRecorder) ObserveRequest(
	model, label string,
	promptTokens, completionTokens int,
	cost float64,
	success bool,
	errorType string,
	duration time.Duration,
) {
	status := statusSuccess
	if !success {
		status = statusError
	}

	p.requestsTotal.WithLabelValues(model, label, status, errorType).Inc()

	// Tokens and costs only on success
	if success {
		p.tokensTotal.WithLabelValues(model, label, "prompt").Add(float64(promptTokens))
		p.tokensTotal.WithLabelValues(model, label, "completion").Add(float64(completionTokens))
		p.costsTotal.WithLabelValues(model).Add(cost)
	}

	p.requestDuration.WithLabelValues(model, label).Observe(duration.Seconds())
}

// ObserveTurn records a finished turn.
func (p *PrometheusRecorder) ObserveTurn(intent, state string, duration time.Duration) {
	p.turnsTotal.WithLabelValues(intent, state).Inc()
	p.turnDuration.WithLabelValues(intent).Observe(duration.Seconds())
}

// ObserveDataFetch records one external data API call.
func (p *PrometheusRecorder) ObserveDataFetch(endpoint string, success bool, duration time.Duration) {
	status := statusSuccess
	if !success {
		status = statusError
	}
	p.fetchesTotal.WithLabelValues(endpoint, status).Inc()
	p.fetchDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}
