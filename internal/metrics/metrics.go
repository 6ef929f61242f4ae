// Insightd - Observability Intelligence Service
// Copyright 2026 Insightd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/insightd/insightd

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Pattern engine metrics.
	AnalysesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pattern_analyses_total",
			Help: "Total number of pattern analyses run",
		},
	)

	DetectorRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pattern_detector_runs_total",
			Help: "Detector invocations by detector name",
		},
		[]string{"detector"},
	)

	DetectorErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pattern_detector_errors_total",
			Help: "Detector failures swallowed by the engine",
		},
		[]string{"detector"},
	)

	DetectorDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pattern_detector_duration_seconds",
			Help:    "Wall time of individual detector runs",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"detector"},
	)

	PatternsDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "patterns_detected_total",
			Help: "Patterns surviving post-processing, by type",
		},
		[]string{"type"},
	)

	EngineCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pattern_engine_cache_hits_total",
			Help: "Analysis cache hits",
		},
	)

	EngineCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pattern_engine_cache_misses_total",
			Help: "Analysis cache misses",
		},
	)

	// Query pipeline metrics.
	QueriesGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queries_generated_total",
			Help: "Queries generated, by query type",
		},
		[]string{"query_type"},
	)

	QueryCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "query_cache_hits_total",
			Help: "Query generator cache hits",
		},
	)

	QueryCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "query_cache_misses_total",
			Help: "Query generator cache misses",
		},
	)

	QueryOptimizations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "query_optimizations_total",
			Help: "Optimizer rules applied, by rule",
		},
		[]string{"rule"},
	)

	// Visualization metrics.
	ChartRecommendations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chart_recommendations_total",
			Help: "Chart recommendations emitted, by chart type",
		},
		[]string{"chart_type"},
	)

	LayoutOptimizations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "layout_optimizations_total",
			Help: "Layouts optimized, by strategy",
		},
		[]string{"strategy"},
	)

	// API metrics.
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "API requests by operation and status code",
		},
		[]string{"operation", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request latency by operation",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)
