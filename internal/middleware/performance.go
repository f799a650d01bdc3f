// Marquee - Movie Catalog Search and Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package middleware

import (
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/marquee/internal/logging"
)

// slowRequestThreshold triggers a warning log.
const slowRequestThreshold = time.Second

// RequestMetrics is one timed request.
type RequestMetrics struct {
	Key        string
	Duration   time.Duration
	StatusCode int
	Timestamp  time.Time
}

// PerformanceMonitor keeps lifetime counters per endpoint and a sliding
// window of recent requests for percentiles.
type PerformanceMonitor struct {
	mu            sync.RWMutex
	metrics       []RequestMetrics
	maxMetrics    int
	requestCounts map[string]int64
	totalDuration map[string]time.Duration
}

// EndpointStats contains windowed statistics for one endpoint.
type EndpointStats struct {
	Endpoint     string  `json:"endpoint"`
	RequestCount int64   `json:"request_count"`
	AvgMS        float64 `json:"avg_ms"`
	P50MS        float64 `json:"p50_ms"`
	P95MS        float64 `json:"p95_ms"`
	P99MS        float64 `json:"p99_ms"`
	MinMS        float64 `json:"min_ms"`
	MaxMS        float64 `json:"max_ms"`
}

// PerfCounters is the /perf_counters payload. Keys are "METHOD pattern".
type PerfCounters struct {
	RequestCounts    map[string]int64   `json:"request_counts"`
	ElapsedSumMS     map[string]float64 `json:"elapsed_sum_ms"`
	AvgRequestTimeMS map[string]float64 `json:"avg_request_time_ms"`
	Recent           []EndpointStats    `json:"recent"`
}

// NewPerformanceMonitor creates a monitor whose percentile window holds
// maxMetrics requests.
func NewPerformanceMonitor(maxMetrics int) *PerformanceMonitor {
	if maxMetrics <= 0 {
		maxMetrics = 1000
	}
	return &PerformanceMonitor{
		metrics:       make([]RequestMetrics, 0, maxMetrics),
		maxMetrics:    maxMetrics,
		requestCounts: make(map[string]int64),
		totalDuration: make(map[string]time.Duration),
	}
}

// RecordRequest adds a request metric.
func (pm *PerformanceMonitor) RecordRequest(metric *RequestMetrics) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	pm.metrics = append(pm.metrics, *metric)
	if len(pm.metrics) > pm.maxMetrics {
		pm.metrics = pm.metrics[1:]
	}

	pm.requestCounts[metric.Key]++
	pm.totalDuration[metric.Key] += metric.Duration
}

// Counters returns lifetime totals plus windowed percentiles.
func (pm *PerformanceMonitor) Counters() PerfCounters {
	pm.mu.RLock()
	counts := make(map[string]int64, len(pm.requestCounts))
	sums := make(map[string]float64, len(pm.totalDuration))
	avgs := make(map[string]float64, len(pm.requestCounts))
	for key, n := range pm.requestCounts {
		counts[key] = n
		sum := toMS(pm.totalDuration[key])
		sums[key] = sum
		avgs[key] = sum / float64(n)
	}
	pm.mu.RUnlock()

	return PerfCounters{
		RequestCounts:    counts,
		ElapsedSumMS:     sums,
		AvgRequestTimeMS: avgs,
		Recent:           pm.GetStats(),
	}
}

// GetStats returns statistics over the sliding window, busiest first.
func (pm *PerformanceMonitor) GetStats() []EndpointStats {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	byEndpoint := make(map[string][]time.Duration)
	for _, m := range pm.metrics {
		byEndpoint[m.Key] = append(byEndpoint[m.Key], m.Duration)
	}

	stats := make([]EndpointStats, 0, len(byEndpoint))
	for endpoint, durations := range byEndpoint {
		sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })

		var sum time.Duration
		for _, d := range durations {
			sum += d
		}

		stats = append(stats, EndpointStats{
			Endpoint:     endpoint,
			RequestCount: int64(len(durations)),
			AvgMS:        toMS(sum) / float64(len(durations)),
			P50MS:        toMS(percentile(durations, 0.50)),
			P95MS:        toMS(percentile(durations, 0.95)),
			P99MS:        toMS(percentile(durations, 0.99)),
			MinMS:        toMS(durations[0]),
			MaxMS:        toMS(durations[len(durations)-1]),
		})
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].RequestCount != stats[j].RequestCount {
			return stats[i].RequestCount > stats[j].RequestCount
		}
		return stats[i].Endpoint < stats[j].Endpoint
	})
	return stats
}

// GetRecentMetrics returns the most recent n metrics.
func (pm *PerformanceMonitor) GetRecentMetrics(n int) []RequestMetrics {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	if n > len(pm.metrics) {
		n = len(pm.metrics)
	}
	recent := make([]RequestMetrics, n)
	copy(recent, pm.metrics[len(pm.metrics)-n:])
	return recent
}

// Middleware times each request under its route key.
func (pm *PerformanceMonitor) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := newStatusWriter(w)

		next.ServeHTTP(wrapper, r)

		duration := time.Since(start)
		key := r.Method + " " + routeLabel(r)

		pm.RecordRequest(&RequestMetrics{
			Key:        key,
			Duration:   duration,
			StatusCode: wrapper.statusCode,
			Timestamp:  start,
		})

		if duration > slowRequestThreshold {
			logging.Ctx(r.Context()).Warn().
				Str("endpoint", key).
				Int64("duration_ms", duration.Milliseconds()).
				Msg("Slow request detected")
		}
	})
}

// percentile picks the nearest-rank value from a sorted slice.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	return sorted[int(float64(len(sorted)-1)*p)]
}

func toMS(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
