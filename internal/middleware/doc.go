// Marquee - Movie Catalog Search and Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

/*
Package middleware provides HTTP middleware for the Marquee API.

Key Components:

  - RequestID: UUID-based request tracking, propagated into log context
  - PrometheusMetrics: request count, latency and in-flight instrumentation
  - PerformanceMonitor: per-endpoint counters and latency percentiles served
    on /perf_counters

All middleware has the func(http.Handler) http.Handler shape and plugs into a
chi router:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)
	r.Use(perfMon.Middleware)

Endpoint labels use the matched chi route pattern rather than the raw path,
so unmatched or parameterised URLs cannot grow label cardinality.

Usage Example - Performance Monitoring:

	perfMon := middleware.NewPerformanceMonitor(1000)
	r.Use(perfMon.Middleware)

	// Later
	counters := perfMon.Counters()
	for key, n := range counters.RequestCounts {
	    fmt.Printf("%s: %d requests, avg %.2fms\n", key, n, counters.AvgRequestTimeMS[key])
	}

Usage Example - Request ID:

	// Upstream X-Request-ID headers are honoured; otherwise a UUID is minted.
	id := middleware.GetRequestID(r.Context())
	logging.Ctx(r.Context()).Info().Msg("handled") // carries request_id
*/
package middleware
