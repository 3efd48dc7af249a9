package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	intentClassificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querydesk_intent_classifications_total",
			Help: "Intent classifications by label; degraded marks fallbacks after a model failure.",
		},
		[]string{"label", "degraded"},
	)
	pipelineRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querydesk_pipeline_requests_total",
			Help: "SQL pipeline requests by outcome.",
		},
		[]string{"outcome"},
	)
	pipelineStageLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "querydesk_pipeline_stage_latency_ms",
			Help:    "SQL pipeline stage latency in milliseconds.",
			Buckets: []float64{5, 25, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000},
		},
		[]string{"stage"},
	)
	pipelineRowsReturned = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "querydesk_pipeline_rows_returned",
			Help:    "Rows returned by successful SQL pipeline executions.",
			Buckets: []float64{0, 1, 10, 50, 100, 500, 1000, 10000},
		},
	)
	llmRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querydesk_llm_requests_total",
			Help: "Language model calls by operation and status.",
		},
		[]string{"provider", "op", "status"},
	)
	llmLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "querydesk_llm_latency_ms",
			Help:    "Language model call latency in milliseconds; streams are measured to the last fragment.",
			Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000, 120000},
		},
		[]string{"provider", "op"},
	)
	chatFragmentsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "querydesk_chat_stream_fragments_total",
			Help: "Total number of streamed chat fragments delivered to display sinks.",
		},
	)
	conversationsArchivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querydesk_conversations_archived_total",
			Help: "Conversation archive operations by kind and status.",
		},
		[]string{"op", "status"},
	)
)

func init() {
	prometheus.MustRegister(
		intentClassificationsTotal,
		pipelineRequestsTotal,
		pipelineStageLatencyMs,
		pipelineRowsReturned,
		llmRequestsTotal,
		llmLatencyMs,
		chatFragmentsTotal,
		conversationsArchivedTotal,
	)
}

func ObserveIntent(label string, degraded bool) {
	intentClassificationsTotal.WithLabelValues(label, strconv.FormatBool(degraded)).Inc()
}

// ObservePipeline records the outcome of one SQL pipeline request. outcome is
// "ok" or the failure kind.
func ObservePipeline(outcome string, rows int) {
	pipelineRequestsTotal.WithLabelValues(outcome).Inc()
	if outcome == "ok" {
		pipelineRowsReturned.Observe(float64(rows))
	}
}

func ObservePipelineStage(stage string, elapsed time.Duration) {
	pipelineStageLatencyMs.WithLabelValues(stage).Observe(float64(elapsed.Milliseconds()))
}

func ObserveLLMCall(provider, op string, err error, elapsed time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	llmRequestsTotal.WithLabelValues(provider, op, status).Inc()
	llmLatencyMs.WithLabelValues(provider, op).Observe(float64(elapsed.Milliseconds()))
}

func IncrementChatFragments(n int) {
	if n > 0 {
		chatFragmentsTotal.Add(float64(n))
	}
}

func ObserveArchive(op string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	conversationsArchivedTotal.WithLabelValues(op, status).Inc()
}
