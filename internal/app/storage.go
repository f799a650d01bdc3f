// Marquee - Movie Catalog Search and Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/marquee/internal/blobstore"
	"github.com/tomtom215/marquee/internal/config"
	"github.com/tomtom215/marquee/internal/lock"
	"github.com/tomtom215/marquee/internal/logging"
)

// ErrNATSRequired is returned when a NATS backend is selected without a
// NATS connection.
var ErrNATSRequired = errors.New("backend requires a NATS connection")

// Storage is the configured blob store behind a circuit breaker, plus the
// ingestion locker.
type Storage struct {
	Store   blobstore.Store
	Breaker *blobstore.BreakerStore
	Locker  lock.Locker
	Backend string
}

// OpenStorage opens the configured backends. natsc may be nil when neither
// backend is nats.
func OpenStorage(ctx context.Context, cfg *config.Config, natsc *NATS) (*Storage, error) {
	var (
		base   blobstore.Store
		badger *blobstore.BadgerStore
	)

	switch cfg.Storage.Backend {
	case "memory":
		base = blobstore.NewMemoryStore()
	case "badger":
		db, err := blobstore.OpenBadger(blobstore.BadgerConfig{
			Path:       cfg.Storage.BadgerPath,
			InMemory:   cfg.Storage.BadgerInMemory,
			SyncWrites: cfg.Storage.BadgerSyncWrites,
		})
		if err != nil {
			return nil, fmt.Errorf("open badger store: %w", err)
		}
		badger = db
		base = db
	case "nats":
		if natsc == nil {
			return nil, fmt.Errorf("storage: %w", ErrNATSRequired)
		}
		store, err := blobstore.NewNATSStore(natsc.JS, cfg.NATS.ObjectBucketPrefix)
		if err != nil {
			return nil, fmt.Errorf("open NATS object store: %w", err)
		}
		base = store
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	breaker := blobstore.NewBreakerStore(base, blobstore.BreakerConfig{
		Backend:          cfg.Storage.Backend,
		FailureThreshold: cfg.Storage.BreakerFailureThreshold,
		Timeout:          cfg.Storage.BreakerTimeout,
		MaxRequests:      cfg.Storage.BreakerMaxRequests,
	})

	locker, err := openLocker(ctx, cfg, badger, natsc)
	if err != nil {
		_ = breaker.Close()
		return nil, err
	}

	logging.Info().
		Str("storage_backend", cfg.Storage.Backend).
		Str("lock_backend", cfg.Ingest.LockBackend).
		Msg("Storage opened")

	return &Storage{
		Store:   breaker,
		Breaker: breaker,
		Locker:  locker,
		Backend: cfg.Storage.Backend,
	}, nil
}

func openLocker(ctx context.Context, cfg *config.Config, badger *blobstore.BadgerStore, natsc *NATS) (lock.Locker, error) {
	switch cfg.Ingest.LockBackend {
	case "memory":
		return lock.NewMemoryLocker(cfg.Ingest.LockTTL), nil
	case "badger":
		if badger == nil {
			return nil, errors.New("badger lock backend requires the badger storage backend")
		}
		return lock.NewBadgerLocker(badger.DB(), cfg.Ingest.LockTTL), nil
	case "nats":
		if natsc == nil {
			return nil, fmt.Errorf("lock: %w", ErrNATSRequired)
		}
		locker, err := lock.NewNATSLocker(ctx, natsc.JS, cfg.NATS.KVBucket, cfg.Ingest.LockTTL)
		if err != nil {
			return nil, fmt.Errorf("open NATS lock bucket: %w", err)
		}
		return locker, nil
	default:
		return nil, fmt.Errorf("unknown lock backend %q", cfg.Ingest.LockBackend)
	}
}

// Status is the storage breaker state: closed, half-open or open.
func (s *Storage) Status() string {
	return s.Breaker.State()
}

// Close releases the underlying store.
func (s *Storage) Close() error {
	return s.Breaker.Close()
}
