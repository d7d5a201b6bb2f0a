// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QueriesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_queries_total",
			Help: "Total number of natural language queries processed",
		},
		[]string{"action"},
	)

	QueryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_query_failures_total",
			Help: "Total number of queries that failed",
		},
		[]string{"reason"},
	)

	QueryCost = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_query_cost_total",
			Help: "Queries by estimated cost class",
		},
		[]string{"cost"},
	)

	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "assistant_query_duration_seconds",
			Help: "Duration of query processing in seconds",
		},
		[]string{"action"},
	)

	ContextHistorySize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "assistant_context_history_size",
			Help: "Number of intents currently held in conversation history",
		},
	)

	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_cache_requests_total",
			Help: "Backend response cache requests by outcome",
		},
		[]string{"outcome"},
	)
)
