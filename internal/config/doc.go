// Marquee - Movie Catalog Search and Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

/*
Package config loads and validates Marquee configuration.

# Configuration Sources

Configuration is layered with koanf, later sources overriding earlier ones:

 1. Built-in defaults (defaultConfig)
 2. An optional YAML file: CONFIG_PATH, else config.yaml / config.yml in the
    working directory, else /etc/marquee/config.yaml
 3. Environment variables, through an explicit name mapping

Unmapped environment variables are ignored.

# Environment Variables

HTTP server:
  - HTTP_HOST: bind address (default: 0.0.0.0)
  - HTTP_PORT: listen port (default: 8080)
  - HTTP_TIMEOUT: read/write timeout (default: 30s)
  - ENVIRONMENT: development, staging or production (default: development)

Logging:
  - LOG_LEVEL: trace, debug, info, warn, error (default: info)
  - LOG_FORMAT: json or console (default: json)
  - LOG_CALLER: include file:line (default: false)

Storage:
  - STORAGE_BACKEND: memory, badger or nats (default: badger)
  - BADGER_PATH: BadgerDB directory (default: /data/marquee)
  - BADGER_IN_MEMORY: keep BadgerDB in memory (default: false)
  - BADGER_SYNC_WRITES: fsync every write (default: true)
  - INBOX_COLLECTION, DATASET_COLLECTION, ARCHIVE_COLLECTION, DATASET_KEY
  - STORAGE_BREAKER_FAILURES: consecutive failures before the breaker opens (default: 5)
  - STORAGE_BREAKER_TIMEOUT: time the breaker stays open (default: 30s)
  - STORAGE_BREAKER_MAX_REQUESTS: probes allowed while half-open (default: 1)

Search:
  - SEARCH_DEFAULT_PAGE_SIZE: page size when none is given (default: 10)
  - SEARCH_MAX_PAGE_SIZE: largest accepted page size (default: 1000)
  - SEARCH_CACHE_SIZE: query cache entries (default: 16384)

Ingestion:
  - INGEST_LOCK_BACKEND: memory, badger or nats (default: badger)
  - INGEST_LOCK_NAME: lock name (default: ingestion)
  - INGEST_LOCK_TTL: lease lifetime (default: 10m)
  - INGEST_LOCK_WAIT: how long the indexer waits for a busy lock (default: 30s)
  - INGEST_SCHEDULE_INTERVAL: in-server ingest period, 0 disables (default: 0)

NATS:
  - NATS_ENABLED, NATS_URL, NATS_EMBEDDED, NATS_HOST, NATS_PORT, NATS_STORE_DIR
  - NATS_MAX_MEMORY, NATS_MAX_STORE: JetStream limits for the embedded server
  - NATS_KV_BUCKET: lock bucket (default: marquee_locks)
  - NATS_OBJECT_BUCKET_PREFIX: object store bucket prefix (default: marquee)

Events:
  - EVENTS_ENABLED: publish catalog.ingested after ingestion (default: true)
  - EVENTS_TOPIC: topic name (default: catalog.ingested)
  - RELOAD_ON_INGEST: reload the catalog when the event arrives (default: true)

Security:
  - CORS_ORIGINS: comma-separated allowed origins (default: *)
  - RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW, DISABLE_RATE_LIMIT

# Usage

	cfg, err := config.Load()
	if err != nil {
	    logging.Fatal().Err(err).Msg("Invalid configuration")
	}
*/
package config
