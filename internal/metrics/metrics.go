// Marquee - Movie Catalog Search and Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tomtom215/marquee/internal/models"
)

var (
	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Cache Metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	CacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cache_entries",
			Help: "Current number of cached entries",
		},
		[]string{"cache_type"},
	)

	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_evictions_total",
			Help: "Total number of capacity evictions",
		},
		[]string{"cache_type"},
	)

	CacheInvalidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_invalidations_total",
			Help: "Total number of full cache invalidations",
		},
		[]string{"cache_type"},
	)

	// Search Metrics
	SearchQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "search_query_duration_seconds",
			Help:    "Duration of catalog queries in seconds",
			Buckets: []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		},
		[]string{"source"}, // "cache", "engine"
	)

	SearchRecordsExamined = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "search_records_examined",
			Help:    "Candidate records examined per uncached query",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		},
	)

	// Index Metrics
	IndexRecords = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "index_records",
			Help: "Number of records in the active index snapshot",
		},
	)

	IndexBuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "index_build_duration_seconds",
			Help:    "Duration of dataset load and index build",
			Buckets: prometheus.DefBuckets,
		},
	)

	IndexLastLoad = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "index_last_load_timestamp",
			Help: "Unix timestamp of the last successful index load",
		},
	)

	IndexLoadErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "index_load_errors_total",
			Help: "Total number of failed index loads",
		},
		[]string{"error_type"},
	)

	// Ingestion Metrics
	IngestRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_runs_total",
			Help: "Total number of ingestion runs by outcome",
		},
		[]string{"result"}, // "success", "contention", "error"
	)

	IngestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ingest_duration_seconds",
			Help:    "Duration of ingestion runs",
			Buckets: prometheus.DefBuckets,
		},
	)

	IngestBatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_batches_total",
			Help: "Total number of inbox batches by outcome",
		},
		[]string{"result"}, // "processed", "skipped"
	)

	IngestItems = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_items_total",
			Help: "Total number of merged items by action",
		},
		[]string{"action"}, // "updated", "appended"
	)

	IngestArchiveFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ingest_archive_failures_total",
			Help: "Total number of batches that could not be archived",
		},
	)

	IngestLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ingest_last_success_timestamp",
			Help: "Unix timestamp of the last successful ingestion run",
		},
	)

	// Lock Metrics
	LockAcquisitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lock_acquisitions_total",
			Help: "Total number of lock acquisition attempts by outcome",
		},
		[]string{"backend", "result"}, // result: "acquired", "contention", "error"
	)

	// Blob Store Metrics
	BlobstoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "blobstore_operation_duration_seconds",
			Help:    "Duration of blob store operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "operation"},
	)

	BlobstoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blobstore_errors_total",
			Help: "Total number of failed blob store operations",
		},
		[]string{"backend", "operation"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Event Metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Total number of catalog events published",
		},
		[]string{"topic", "result"},
	)

	EventsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_received_total",
			Help: "Total number of catalog events received",
		},
		[]string{"topic"},
	)
)

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordSearch records one query, served either from the cache or the engine.
func RecordSearch(cached bool, duration time.Duration) {
	source := "engine"
	if cached {
		source = "cache"
	}
	SearchQueryDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordIndexLoad records a completed or failed snapshot build.
func RecordIndexLoad(records int, duration time.Duration, err error) {
	if err != nil {
		IndexLoadErrors.WithLabelValues(errorType(err)).Inc()
		return
	}
	IndexBuildDuration.Observe(duration.Seconds())
	IndexRecords.Set(float64(records))
	IndexLastLoad.Set(float64(time.Now().Unix()))
}

// RecordIngestRun records the outcome of one ingestion run.
func RecordIngestRun(report *models.IngestReport, duration time.Duration, err error) {
	IngestDuration.Observe(duration.Seconds())

	switch {
	case err == nil:
		IngestRuns.WithLabelValues("success").Inc()
		IngestLastSuccess.Set(float64(time.Now().Unix()))
	case errors.Is(err, models.ErrLockContention):
		IngestRuns.WithLabelValues("contention").Inc()
	default:
		IngestRuns.WithLabelValues("error").Inc()
	}

	if report == nil {
		return
	}
	IngestBatches.WithLabelValues("processed").Add(float64(report.Processed))
	IngestBatches.WithLabelValues("skipped").Add(float64(report.Skipped))
	IngestItems.WithLabelValues("updated").Add(float64(report.ItemsUpdated))
	IngestItems.WithLabelValues("appended").Add(float64(report.ItemsAppended))
	IngestArchiveFailures.Add(float64(report.ArchiveFailures))
}

// RecordLockAttempt records a lock acquisition attempt.
func RecordLockAttempt(backend string, err error) {
	switch {
	case err == nil:
		LockAcquisitions.WithLabelValues(backend, "acquired").Inc()
	case errors.Is(err, models.ErrLockContention):
		LockAcquisitions.WithLabelValues(backend, "contention").Inc()
	default:
		LockAcquisitions.WithLabelValues(backend, "error").Inc()
	}
}

// RecordBlobstoreOp records a blob store call.
func RecordBlobstoreOp(backend, operation string, duration time.Duration, err error) {
	BlobstoreOperationDuration.WithLabelValues(backend, operation).Observe(duration.Seconds())
	if err != nil {
		BlobstoreErrors.WithLabelValues(backend, operation).Inc()
	}
}

// RecordEventPublished records a publish attempt for topic.
func RecordEventPublished(topic string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	EventsPublished.WithLabelValues(topic, result).Inc()
}

// StatusLabel formats an HTTP status for the status_code label.
func StatusLabel(status int) string {
	return strconv.Itoa(status)
}

// errorType maps an error onto a small fixed label set.
func errorType(err error) string {
	switch {
	case errors.Is(err, models.ErrMissingField):
		return "missing_field"
	case errors.Is(err, models.ErrDecode):
		return "decode"
	case errors.Is(err, models.ErrStorageUnavailable):
		return "storage_unavailable"
	default:
		return "other"
	}
}
