// Package observability holds the Prometheus metrics for the request
// pipeline. All metrics are registered on the default registry and exposed
// by the server's /metrics handler.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Request metrics
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jarvis_requests_total",
		Help: "Total requests processed, by channel and status",
	}, []string{"channel", "status"})

	requestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "jarvis_request_latency_seconds",
		Help:    "End-to-end request processing latency in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
	}, []string{"channel"})

	activeConversations = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "jarvis_active_conversations",
		Help: "Number of live conversation contexts",
	})

	// LLM metrics
	llmRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jarvis_llm_requests_total",
		Help: "Total LLM completions requested, by status",
	}, []string{"status"})

	llmLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "jarvis_llm_latency_seconds",
		Help:    "LLM completion latency in seconds",
		Buckets: []float64{0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
	})

	llmTokens = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jarvis_llm_tokens_total",
		Help: "Total tokens reported by the LLM backend",
	})

	// Tool metrics
	toolInvocations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jarvis_tool_invocations_total",
		Help: "Total tool invocations, by tool and status",
	}, []string{"tool", "status"})

	toolLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "jarvis_tool_latency_seconds",
		Help:    "Tool execution latency in seconds",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
	}, []string{"tool"})

	// Security metrics
	rateLimitRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jarvis_rate_limit_rejections_total",
		Help: "Requests rejected by the rate limiter, by scope",
	}, []string{"scope"})

	webhookSignatureFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jarvis_webhook_signature_failures_total",
		Help: "Twilio webhook requests rejected for a bad signature",
	})
)

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// RecordRequest records one completed request on a channel.
func RecordRequest(channel string, success bool, elapsed time.Duration) {
	requestsTotal.WithLabelValues(channel, statusLabel(success)).Inc()
	requestLatency.WithLabelValues(channel).Observe(elapsed.Seconds())
}

// SetActiveConversations updates the live context gauge.
func SetActiveConversations(n int) {
	activeConversations.Set(float64(n))
}

// RecordLLMCall records one completion round trip.
func RecordLLMCall(success bool, elapsed time.Duration, totalTokens int) {
	llmRequests.WithLabelValues(statusLabel(success)).Inc()
	llmLatency.Observe(elapsed.Seconds())
	if totalTokens > 0 {
		llmTokens.Add(float64(totalTokens))
	}
}

// RecordToolInvocation records one tool execution.
func RecordToolInvocation(tool string, success bool, elapsed time.Duration) {
	toolInvocations.WithLabelValues(tool, statusLabel(success)).Inc()
	toolLatency.WithLabelValues(tool).Observe(elapsed.Seconds())
}

// RecordRateLimitRejection records a 429, scope is "ip" or "conversation".
func RecordRateLimitRejection(scope string) {
	rateLimitRejections.WithLabelValues(scope).Inc()
}

// RecordSignatureFailure records a rejected webhook signature.
func RecordSignatureFailure() {
	webhookSignatureFailures.Inc()
}
