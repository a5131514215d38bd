// Package metrics holds the Prometheus collectors for the similarity and
// recommendation engines. Collectors register with the default registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Similarity
	SimilarityPairs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "affinity_similarity_pairs_total",
			Help: "User pairs handled by the similarity aggregator, by outcome",
		},
		[]string{"outcome"}, // "computed", "persisted", "discarded", "skipped_fresh", "failed"
	)

	DimensionFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "affinity_dimension_failures_total",
			Help: "Dimension computations that failed and were scored as zero",
		},
		[]string{"dimension"},
	)

	UpsertFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "affinity_similarity_upsert_failures_total",
			Help: "Similarity rows that could not be persisted",
		},
	)

	SimilarityDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "affinity_similarity_calculation_duration_seconds",
			Help:    "Duration of one similarity calculation request",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Recommendations
	RecommendationRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "affinity_recommendation_requests_total",
			Help: "Transition recommendation requests by richness mode",
		},
		[]string{"mode"},
	)

	BackfilledRecommendations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "affinity_recommendations_backfilled_total",
			Help: "Recommendations filled from global consensus",
		},
	)

	RecommendationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "affinity_recommendation_duration_seconds",
			Help:    "Duration of one recommendation request",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Correlation client
	CorrelationCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "affinity_correlation_calls_total",
			Help: "Calls to the external rating correlation routine",
		},
		[]string{"result"}, // "success", "error", "rejected"
	)

	CorrelationBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "affinity_correlation_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	// HTTP
	APIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "affinity_api_requests_total",
			Help: "HTTP API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "affinity_api_request_duration_seconds",
			Help:    "HTTP API request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

func RecordPair(outcome string) {
	SimilarityPairs.WithLabelValues(outcome).Inc()
}

func RecordDimensionFailure(dimension string) {
	DimensionFailures.WithLabelValues(dimension).Inc()
}

func RecordRecommendation(mode string, backfilled int, duration time.Duration) {
	RecommendationRequests.WithLabelValues(mode).Inc()
	BackfilledRecommendations.Add(float64(backfilled))
	RecommendationDuration.Observe(duration.Seconds())
}

func RecordAPIRequest(method, route, status string, duration time.Duration) {
	APIRequests.WithLabelValues(method, route, status).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
