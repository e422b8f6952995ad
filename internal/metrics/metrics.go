// Package metrics registers the process-wide Prometheus collectors the
// ops server exposes at /metrics: AI spend and call counts, match
// outcomes, export attempts and ack latency, and retention sweep
// counts. Every collector is labeled by org where the cardinality stays
// bounded (a handful of tenants, not a per-document label).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AICallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orderflow",
		Subsystem: "ai",
		Name:      "calls_total",
		Help:      "LLM/embedding provider calls by org and outcome.",
	}, []string{"org", "call_type", "status"})

	AICostMicrosTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orderflow",
		Subsystem: "ai",
		Name:      "cost_micros_total",
		Help:      "Cumulative AI spend in micros-of-USD by org.",
	}, []string{"org"})

	AIBudgetBlockedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orderflow",
		Subsystem: "ai",
		Name:      "budget_blocked_total",
		Help:      "Extraction runs that fell back to the rule result because the daily AI budget was exhausted.",
	}, []string{"org"})

	MatchOutcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orderflow",
		Subsystem: "matching",
		Name:      "outcomes_total",
		Help:      "Matching engine results by method and status.",
	}, []string{"org", "method", "status"})

	ExportAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orderflow",
		Subsystem: "export",
		Name:      "attempts_total",
		Help:      "Export pipeline push attempts by outcome.",
	}, []string{"org", "outcome"})

	ExportAckLatencySeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "orderflow",
		Subsystem: "export",
		Name:      "ack_latency_seconds",
		Help:      "Time between an export push and its ack/error file being reconciled.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
	}, []string{"org"})

	RetentionRowsDeletedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orderflow",
		Subsystem: "retention",
		Name:      "rows_deleted_total",
		Help:      "Rows removed by the retention sweep by org and table.",
	}, []string{"org", "table"})
)
