// Marquee - Movie Catalog Search and Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths searched for a config file, in order.
// The first file found is used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/marquee/config.yaml",
	"/etc/marquee/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns the built-in defaults. They are applied first, then
// overridden by the config file and environment variables.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        8080,
			Host:        "0.0.0.0",
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Storage: StorageConfig{
			Backend:                 "badger",
			BadgerPath:              "/data/marquee",
			BadgerInMemory:          false,
			BadgerSyncWrites:        true,
			InboxCollection:         "inbox",
			DatasetCollection:       "storage",
			DatasetKey:              "main",
			ArchiveCollection:       "archive",
			BreakerFailureThreshold: 5,
			BreakerTimeout:          30 * time.Second,
			BreakerMaxRequests:      1,
		},
		Search: SearchConfig{
			DefaultPageSize: 10,
			MaxPageSize:     1000,
			CacheSize:       16384,
		},
		Ingest: IngestConfig{
			LockBackend:      "badger",
			LockName:         "ingestion",
			LockTTL:          10 * time.Minute,
			LockWait:         30 * time.Second,
			ScheduleInterval: 0, // disabled; the indexer binary is the usual trigger
		},
		NATS: NATSConfig{
			Enabled:            false,
			URL:                "nats://127.0.0.1:4222",
			EmbeddedServer:     false,
			Host:               "127.0.0.1",
			Port:               4222,
			StoreDir:           "/data/nats/jetstream",
			MaxMemory:          256 << 20, // 256MB
			MaxStore:           4 << 30,   // 4GB
			KVBucket:           "marquee_locks",
			ObjectBucketPrefix: "marquee",
			ConnectTimeout:     10 * time.Second,
		},
		Events: EventsConfig{
			Enabled:        true,
			Topic:          "catalog.ingested",
			ReloadOnIngest: true,
		},
		Security: SecurityConfig{
			CORSOrigins:       []string{"*"},
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
		},
	}
}

// LoadWithKoanf loads configuration with layered sources:
//  1. Defaults
//  2. Config file (optional)
//  3. Environment variables
//
// Precedence is ENV > File > Defaults.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// HTTP_PORT -> server.port, NATS_URL -> nats.url
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// findConfigFile returns the first existing config file, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are parsed as comma-separated lists when they arrive as strings.
var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields splits comma-separated env values for known slice fields.
// Values that are already lists (from YAML) are left alone.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) == 0 {
			continue
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps lower-cased environment variable names to koanf paths.
var envMappings = map[string]string{
	// Server
	"http_port":    "server.port",
	"http_host":    "server.host",
	"http_timeout": "server.timeout",
	"environment":  "server.environment",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	// Storage
	"storage_backend":              "storage.backend",
	"badger_path":                  "storage.badger_path",
	"badger_in_memory":             "storage.badger_in_memory",
	"badger_sync_writes":           "storage.badger_sync_writes",
	"inbox_collection":             "storage.inbox_collection",
	"dataset_collection":           "storage.dataset_collection",
	"dataset_key":                  "storage.dataset_key",
	"archive_collection":           "storage.archive_collection",
	"storage_breaker_failures":     "storage.breaker_failure_threshold",
	"storage_breaker_timeout":      "storage.breaker_timeout",
	"storage_breaker_max_requests": "storage.breaker_max_requests",

	// Search
	"search_default_page_size": "search.default_page_size",
	"search_max_page_size":     "search.max_page_size",
	"search_cache_size":        "search.cache_size",

	// Ingestion
	"ingest_lock_backend":      "ingest.lock_backend",
	"ingest_lock_name":         "ingest.lock_name",
	"ingest_lock_ttl":          "ingest.lock_ttl",
	"ingest_lock_wait":         "ingest.lock_wait",
	"ingest_schedule_interval": "ingest.schedule_interval",

	// NATS
	"nats_enabled":              "nats.enabled",
	"nats_url":                  "nats.url",
	"nats_embedded":             "nats.embedded_server",
	"nats_host":                 "nats.host",
	"nats_port":                 "nats.port",
	"nats_store_dir":            "nats.store_dir",
	"nats_max_memory":           "nats.max_memory",
	"nats_max_store":            "nats.max_store",
	"nats_kv_bucket":            "nats.kv_bucket",
	"nats_object_bucket_prefix": "nats.object_bucket_prefix",
	"nats_connect_timeout":      "nats.connect_timeout",

	// Events
	"events_enabled":   "events.enabled",
	"events_topic":     "events.topic",
	"reload_on_ingest": "events.reload_on_ingest",

	// Security
	"cors_origins":        "security.cors_origins",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
}

// envTransformFunc maps an environment variable name to its koanf path.
// Unmapped variables return "" and are skipped, so unrelated environment
// never leaks into the configuration.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
