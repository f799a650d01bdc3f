// Marquee - Movie Catalog Search and Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package config

import (
	"fmt"
	"time"

	"github.com/tomtom215/marquee/internal/validation"
)

// Validate checks field constraints declared in struct tags, then the
// cross-field rules tags cannot express.
func (c *Config) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		return verr
	}

	validators := []func() error{
		c.validateStorage,
		c.validateSearch,
		c.validateIngest,
		c.validateNATS,
		c.validateRateLimits,
	}
	for _, validator := range validators {
		if err := validator(); err != nil {
			return err
		}
	}
	return nil
}

// validateStorage requires a directory for on-disk badger.
func (c *Config) validateStorage() error {
	if c.Storage.Backend == "badger" && !c.Storage.BadgerInMemory && c.Storage.BadgerPath == "" {
		return fmt.Errorf("BADGER_PATH is required when STORAGE_BACKEND=badger")
	}
	if c.Storage.Backend == "nats" && !c.NATS.Enabled {
		return fmt.Errorf("STORAGE_BACKEND=nats requires NATS_ENABLED=true")
	}

	seen := map[string]string{}
	for name, coll := range map[string]string{
		"INBOX_COLLECTION":   c.Storage.InboxCollection,
		"DATASET_COLLECTION": c.Storage.DatasetCollection,
		"ARCHIVE_COLLECTION": c.Storage.ArchiveCollection,
	} {
		if other, dup := seen[coll]; dup {
			return fmt.Errorf("%s and %s must name different collections, both are %q", name, other, coll)
		}
		seen[coll] = name
	}
	return nil
}

// validateSearch keeps the default page size within the accepted range.
func (c *Config) validateSearch() error {
	if c.Search.DefaultPageSize > c.Search.MaxPageSize {
		return fmt.Errorf("SEARCH_DEFAULT_PAGE_SIZE (%d) must not exceed SEARCH_MAX_PAGE_SIZE (%d)",
			c.Search.DefaultPageSize, c.Search.MaxPageSize)
	}
	return nil
}

// validateIngest checks the lock backend has what it needs.
func (c *Config) validateIngest() error {
	switch c.Ingest.LockBackend {
	case "badger":
		// The badger lock shares the storage database.
		if c.Storage.Backend != "badger" {
			return fmt.Errorf("INGEST_LOCK_BACKEND=badger requires STORAGE_BACKEND=badger")
		}
	case "nats":
		if !c.NATS.Enabled {
			return fmt.Errorf("INGEST_LOCK_BACKEND=nats requires NATS_ENABLED=true")
		}
	}
	if c.Ingest.LockWait > c.Ingest.LockTTL {
		return fmt.Errorf("INGEST_LOCK_WAIT (%v) must not exceed INGEST_LOCK_TTL (%v)", c.Ingest.LockWait, c.Ingest.LockTTL)
	}
	if c.Ingest.ScheduleInterval > 0 && c.Ingest.ScheduleInterval < time.Second {
		return fmt.Errorf("INGEST_SCHEDULE_INTERVAL must be 0 or at least 1s")
	}
	return nil
}

// validateNATS validates NATS configuration (only if enabled).
func (c *Config) validateNATS() error {
	if !c.NATS.Enabled {
		return nil
	}
	if c.NATS.EmbeddedServer {
		if c.NATS.StoreDir == "" {
			return fmt.Errorf("NATS_STORE_DIR is required when NATS_EMBEDDED=true")
		}
		return nil
	}
	if err := validateNATSURL(c.NATS.URL); err != nil {
		return fmt.Errorf("NATS_URL is invalid: %w", err)
	}
	return nil
}

// Rate limit bounds.
const (
	minRateLimitRequests = 1
	maxRateLimitRequests = 100000
	minRateLimitWindow   = time.Second
	maxRateLimitWindow   = time.Hour
)

func (c *Config) validateRateLimits() error {
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < minRateLimitRequests || c.Security.RateLimitReqs > maxRateLimitRequests {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
	}
	if c.Security.RateLimitWindow < minRateLimitWindow || c.Security.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	return nil
}

// HasWildcardCORS reports whether any origin is allowed.
func (c *Config) HasWildcardCORS() bool {
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

// IsProduction reports whether ENVIRONMENT=production.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}
