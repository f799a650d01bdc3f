// Marquee - Movie Catalog Search and Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

/*
Package api exposes the movie catalog over HTTP using the Chi router.

Routes:

	GET  /                          search (bare SearchResponse)
	GET  /api/v1/movies             search (bare SearchResponse)
	GET  /api/v1/movies/by-title    exact title lookup
	GET  /api/v1/catalog/stats      snapshot and cache statistics
	POST /api/v1/catalog/reload     rebuild the snapshot from storage
	POST /api/v1/catalog/ingest     run one ingestion pass
	GET  /api/v1/health             liveness and dependency status
	GET  /metrics                   Prometheus exposition
	GET  /perf_counters             per-endpoint request timings

Search parameters are title_contains, year, cast, genre, page and page_size.
Omitted values are wildcards; page defaults to 0 and page_size to the
configured default (10).

The search endpoints return the catalog's wire shape directly:

	{"items":[{"title":"Venom","year":2018,"cast":["Tom Hardy"],"genres":["Action"]}],
	 "page":0,"size":10,"has_more":false}

Every other endpoint, and every error, uses the models.APIResponse envelope.

Errors map onto status codes by taxonomy:

	models.ErrInvalidArgument     400 INVALID_ARGUMENT / VALIDATION_ERROR
	models.ErrLockContention      409 LOCK_CONTENTION
	models.ErrStorageUnavailable  503 STORAGE_UNAVAILABLE
	catalog.ErrIngestDisabled     501 INGEST_DISABLED
	anything else                 500 INTERNAL_ERROR
*/
package api
