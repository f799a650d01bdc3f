// Marquee - Movie Catalog Search and Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package config

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
//
// Config is immutable after Load and safe for concurrent reads.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Logging  LoggingConfig  `koanf:"logging"`
	Storage  StorageConfig  `koanf:"storage"`
	Search   SearchConfig   `koanf:"search"`
	Ingest   IngestConfig   `koanf:"ingest"`
	NATS     NATSConfig     `koanf:"nats"`
	Events   EventsConfig   `koanf:"events"`
	Security SecurityConfig `koanf:"security"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port        int           `koanf:"port" validate:"min=1,max=65535"`
	Host        string        `koanf:"host"`
	Timeout     time.Duration `koanf:"timeout" validate:"gt=0"`
	Environment string        `koanf:"environment" validate:"oneof=development staging production"`
}

// Addr returns host:port for the listener.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `koanf:"level" validate:"oneof=trace debug info warn error"`

	// Format is json or console.
	Format string `koanf:"format" validate:"omitempty,oneof=json console"`

	// Caller includes file:line in every entry.
	Caller bool `koanf:"caller"`
}

// StorageConfig selects the blob store backend and names its collections.
type StorageConfig struct {
	// Backend is memory, badger or nats.
	Backend string `koanf:"backend" validate:"oneof=memory badger nats"`

	BadgerPath       string `koanf:"badger_path"`
	BadgerInMemory   bool   `koanf:"badger_in_memory"`
	BadgerSyncWrites bool   `koanf:"badger_sync_writes"`

	InboxCollection   string `koanf:"inbox_collection" validate:"required,excludes=/"`
	DatasetCollection string `koanf:"dataset_collection" validate:"required,excludes=/"`
	DatasetKey        string `koanf:"dataset_key" validate:"required"`
	ArchiveCollection string `koanf:"archive_collection" validate:"required,excludes=/"`

	BreakerFailureThreshold uint32        `koanf:"breaker_failure_threshold" validate:"min=1"`
	BreakerTimeout          time.Duration `koanf:"breaker_timeout" validate:"gt=0"`
	BreakerMaxRequests      uint32        `koanf:"breaker_max_requests" validate:"min=1"`
}

// SearchConfig holds query and cache settings.
type SearchConfig struct {
	DefaultPageSize int `koanf:"default_page_size" validate:"min=0"`
	MaxPageSize     int `koanf:"max_page_size" validate:"min=1"`
	CacheSize       int `koanf:"cache_size" validate:"min=1"`
}

// IngestConfig holds ingestion lock and scheduling settings.
type IngestConfig struct {
	// LockBackend is memory, badger or nats.
	LockBackend string        `koanf:"lock_backend" validate:"oneof=memory badger nats"`
	LockName    string        `koanf:"lock_name" validate:"required"`
	LockTTL     time.Duration `koanf:"lock_ttl" validate:"gt=0"`
	LockWait    time.Duration `koanf:"lock_wait" validate:"gte=0"`

	// ScheduleInterval runs ingestion inside the server periodically. Zero
	// disables the scheduler.
	ScheduleInterval time.Duration `koanf:"schedule_interval" validate:"gte=0"`
}

// NATSConfig holds NATS connection and embedded server settings.
type NATSConfig struct {
	// Enabled connects to NATS. Required by the nats storage and lock
	// backends and by cross-process ingest events.
	Enabled bool `koanf:"enabled"`

	// URL is the NATS server connection URL.
	URL string `koanf:"url"`

	// EmbeddedServer runs a NATS server in-process. URL is then ignored.
	EmbeddedServer bool   `koanf:"embedded_server"`
	Host           string `koanf:"host"`
	Port           int    `koanf:"port" validate:"min=-1,max=65535"`

	// StoreDir is the JetStream storage directory of the embedded server.
	StoreDir  string `koanf:"store_dir"`
	MaxMemory int64  `koanf:"max_memory" validate:"gte=0"`
	MaxStore  int64  `koanf:"max_store" validate:"gte=0"`

	// KVBucket holds ingestion locks for the nats lock backend.
	KVBucket string `koanf:"kv_bucket" validate:"required,excludesall=.*>/"`

	// ObjectBucketPrefix prefixes one object store bucket per collection.
	ObjectBucketPrefix string `koanf:"object_bucket_prefix" validate:"required"`

	ConnectTimeout time.Duration `koanf:"connect_timeout" validate:"gt=0"`
}

// EventsConfig controls ingest notifications.
type EventsConfig struct {
	Enabled        bool   `koanf:"enabled"`
	Topic          string `koanf:"topic" validate:"required"`
	ReloadOnIngest bool   `koanf:"reload_on_ingest"`
}

// SecurityConfig holds HTTP hardening settings.
type SecurityConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// Load reads configuration from defaults, an optional config file and the
// environment, then validates it. See LoadWithKoanf.
func Load() (*Config, error) {
	return LoadWithKoanf()
}

// String summarizes the effective backends for startup logs.
func (c *Config) String() string {
	return fmt.Sprintf("storage=%s lock=%s nats=%t embedded=%t events=%t",
		c.Storage.Backend, c.Ingest.LockBackend, c.NATS.Enabled, c.NATS.EmbeddedServer, c.Events.Enabled)
}
