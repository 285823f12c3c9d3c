// Streamfinder - Streaming Availability and Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamfinder

// Package metrics exposes Prometheus collectors for Streamfinder.
//
// Instrumented concerns:
//   - External catalog source calls (latency, outcomes, circuit breaker state)
//   - Availability aggregation (latency, cache efficiency)
//   - Embedding generation and fallback-path usage
//   - ALS training runs
//   - API endpoint throughput
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Catalog source metrics
	SourceRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "source_requests_total",
			Help: "Total catalog source fetches by outcome",
		},
		[]string{"source", "outcome"}, // outcome: success, failure, rejected
	)

	SourceDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "source_fetch_duration_seconds",
			Help:    "Duration of catalog source fetches in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"source"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "source_circuit_breaker_state",
			Help: "Circuit breaker state per source (0=closed, 1=half-open, 2=open)",
		},
		[]string{"source"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "source_circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions per source",
		},
		[]string{"source", "from", "to"},
	)

	// Aggregation metrics
	AggregationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "availability_aggregation_duration_seconds",
			Help:    "End-to-end availability aggregation duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	AvailabilityCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "availability_cache_hits_total",
			Help: "Total availability aggregate cache hits",
		},
	)

	AvailabilityCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "availability_cache_misses_total",
			Help: "Total availability aggregate cache misses",
		},
	)

	PlatformsAggregated = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "availability_platforms_per_aggregate",
			Help:    "Deduplicated platform count per aggregate",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
		},
	)

	// Embedding metrics
	EmbeddingCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "embedding_cache_hits_total",
			Help: "Embedding cache hits by entity kind",
		},
		[]string{"kind"}, // user, content
	)

	FallbackUsage = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "model_fallback_usage_total",
			Help: "Closed-form fallback invocations by component",
		},
		[]string{"component"}, // encoder, scorer
	)

	// Training metrics
	TrainingRuns = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "als_training_runs_total",
			Help: "Completed ALS training runs",
		},
	)

	TrainingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "als_training_duration_seconds",
			Help:    "ALS training duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	TrainingRMSE = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "als_training_rmse",
			Help: "Convergence RMSE of the most recent ALS training run",
		},
	)

	// API metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)
)
