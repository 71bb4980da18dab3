// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// ChatTurnsTotal tracks completed chat turns by outcome.
	ChatTurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_turns_total",
			Help: "Total chat turns handled",
		},
		[]string{"tenant_id", "status"},
	)

	// LLMRequestDuration tracks LLM completion duration.
	LLMRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_request_duration_seconds",
			Help:    "LLM completion duration",
			Buckets: []float64{1, 2, 5, 10, 20, 30, 45, 60, 90, 120},
		},
		[]string{"model", "status"},
	)

	// LLMTokensTotal tracks total LLM tokens processed.
	LLMTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_tokens_total",
			Help: "Total LLM tokens processed",
		},
		[]string{"model", "direction"},
	)

	// ConversationsTotal tracks conversations created.
	ConversationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversations_total",
			Help: "Total conversations created",
		},
		[]string{"agent_id"},
	)

	// MessagesTotal tracks messages persisted.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_total",
			Help: "Total messages persisted",
		},
		[]string{"tenant_id", "role"},
	)

	// DomainConflictsTotal tracks allow-list updates rejected for conflicts.
	DomainConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "domain_conflicts_total",
			Help: "Allow-list updates rejected for conflicting patterns",
		},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordLLMRequest records metrics for one LLM completion.
func RecordLLMRequest(model, status string, durationSec float64, tokensIn, tokensOut int) {
	LLMRequestDuration.WithLabelValues(model, status).Observe(durationSec)
	LLMTokensTotal.WithLabelValues(model, "in").Add(float64(tokensIn))
	LLMTokensTotal.WithLabelValues(model, "out").Add(float64(tokensOut))
}
