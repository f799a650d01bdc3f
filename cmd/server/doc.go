// Marquee - Movie Catalog Search and Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

/*
Command server is the Marquee movie search service.

It loads the canonical movie dataset from the blob store, builds the
in-memory index, and answers filtered, paginated searches over HTTP.

# Supervision

	RootSupervisor ("marquee")
	├── DataSupervisor ("data-layer")
	│   └── nats-server (NATS_EMBEDDED=true)
	├── MessagingSupervisor ("messaging-layer")
	│   ├── event-listener (EVENTS_ENABLED and RELOAD_ON_INGEST)
	│   └── ingest-scheduler (INGEST_SCHEDULE_INTERVAL > 0)
	└── APISupervisor ("api-layer")
	    └── http-server

Initialization order:

 1. Configuration (koanf: defaults, config.yaml, environment)
 2. Logging (zerolog)
 3. NATS connection and embedded server, if enabled
 4. Blob store, circuit breaker and ingestion locker
 5. Event bus and publisher, if enabled
 6. Catalog load; a missing or malformed dataset stops startup
 7. Router and HTTP server
 8. Supervisor tree

# Endpoints

	GET  /                          search, bare {items,page,size,has_more}
	GET  /api/v1/movies             same as /
	GET  /api/v1/movies/by-title    exact title lookup
	GET  /api/v1/catalog/stats      index and cache statistics
	POST /api/v1/catalog/reload     rebuild the snapshot from storage
	POST /api/v1/catalog/ingest     run one ingestion now
	GET  /api/v1/health             health and component status
	GET  /perf_counters             per-route timings
	GET  /metrics                   Prometheus exposition

# Configuration

	HTTP_PORT=8080
	LOG_LEVEL=info
	STORAGE_BACKEND=badger          # memory, badger or nats
	BADGER_PATH=/data/marquee
	INGEST_LOCK_BACKEND=badger      # memory, badger or nats
	NATS_ENABLED=false
	NATS_EMBEDDED=false
	EVENTS_ENABLED=true
	RELOAD_ON_INGEST=true

Run `indexer seed` once to create a dataset before starting the server
against empty storage.

# Signals

SIGINT and SIGTERM cancel the supervisor tree. The HTTP server drains for up
to HTTP_TIMEOUT before the process exits.
*/
package main
