// Marquee - Movie Catalog Search and Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/marquee/internal/config"
	"github.com/tomtom215/marquee/internal/models"
	"github.com/tomtom215/marquee/internal/seed"
	"github.com/tomtom215/marquee/internal/testinfra"
)

func testConfig() *config.Config {
	return &config.Config{
		Storage: config.StorageConfig{
			Backend:                 "memory",
			InboxCollection:         "inbox",
			DatasetCollection:       "storage",
			DatasetKey:              "main",
			ArchiveCollection:       "archive",
			BreakerFailureThreshold: 5,
			BreakerTimeout:          time.Second,
			BreakerMaxRequests:      1,
		},
		Search: config.SearchConfig{DefaultPageSize: 10, MaxPageSize: 100, CacheSize: 32},
		Ingest: config.IngestConfig{
			LockBackend: "memory",
			LockName:    "ingestion",
			LockTTL:     time.Minute,
		},
		NATS: config.NATSConfig{
			KVBucket:           "marquee_locks",
			ObjectBucketPrefix: "marquee",
			ConnectTimeout:     5 * time.Second,
		},
		Events: config.EventsConfig{Topic: "catalog.ingested"},
	}
}

func seedStore(t *testing.T, st *Storage, cfg *config.Config) {
	t.Helper()
	if _, err := seed.Run(context.Background(), st.Store, seed.ConfigFrom(IngestConfig(cfg, 0)), seed.Fixtures()); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestOpenStorage_Backends(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"memory", func(*config.Config) {}},
		{"badger in memory with badger lock", func(c *config.Config) {
			c.Storage.Backend = "badger"
			c.Storage.BadgerInMemory = true
			c.Ingest.LockBackend = "badger"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := testConfig()
			tt.mutate(cfg)

			st, err := OpenStorage(context.Background(), cfg, nil)
			if err != nil {
				t.Fatalf("OpenStorage: %v", err)
			}
			t.Cleanup(func() { _ = st.Close() })

			if st.Status() != "closed" {
				t.Errorf("breaker state = %s", st.Status())
			}
			if err := st.Store.Put(context.Background(), "inbox", "a.json", []byte("[]")); err != nil {
				t.Errorf("Put: %v", err)
			}
		})
	}
}

func TestOpenStorage_Misconfigured(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Storage.Backend = "nats"
	if _, err := OpenStorage(context.Background(), cfg, nil); !errors.Is(err, ErrNATSRequired) {
		t.Errorf("nats storage without NATS: %v", err)
	}

	cfg = testConfig()
	cfg.Ingest.LockBackend = "badger"
	if _, err := OpenStorage(context.Background(), cfg, nil); err == nil {
		t.Error("badger lock over memory storage should fail")
	}
}

func TestNewCatalog_ReloadsWithoutEvents(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cfg := testConfig()
	st, err := OpenStorage(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("OpenStorage: %v", err)
	}
	seedStore(t, st, cfg)

	svc := NewCatalog(cfg, st, nil)
	if _, err := svc.Reload(ctx); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if svc.Stats().Records != 12 {
		t.Fatalf("records = %d, want 12", svc.Stats().Records)
	}

	report, err := svc.Ingest(ctx)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if report.DatasetSize != 15 {
		t.Errorf("dataset size = %d", report.DatasetSize)
	}
	if svc.Stats().Records != 15 {
		t.Errorf("records after ingest = %d, want 15", svc.Stats().Records)
	}
}

func TestNewCatalog_ReloadsThroughEvents(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := testConfig()
	cfg.Events.Enabled = true
	st, err := OpenStorage(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("OpenStorage: %v", err)
	}
	seedStore(t, st, cfg)

	events, err := OpenEvents(cfg, nil, "test")
	if err != nil {
		t.Fatalf("OpenEvents: %v", err)
	}
	t.Cleanup(func() { _ = events.Close() })
	if events.Bus.Transport != "gochannel" || events.Status() != models.ComponentConnected {
		t.Fatalf("transport=%s status=%s", events.Bus.Transport, events.Status())
	}

	svc := NewCatalog(cfg, st, events)
	if _, err := svc.Reload(ctx); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	go func() { _ = events.Listener(ReloadOnIngest(svc)).Serve(ctx) }()

	report, err := svc.Ingest(ctx)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	// The in-process bus drops messages published before the listener
	// subscribes, so keep announcing until a reload lands.
	deadline := time.Now().Add(3 * time.Second)
	for svc.Stats().Records != 15 {
		if time.Now().After(deadline) {
			t.Fatalf("catalog not reloaded, records = %d", svc.Stats().Records)
		}
		_ = events.Publisher.IngestCompleted(ctx, report)
		time.Sleep(20 * time.Millisecond)
	}
}

func TestOpenEvents_Disabled(t *testing.T) {
	t.Parallel()

	events, err := OpenEvents(testConfig(), nil, "test")
	if err != nil || events != nil {
		t.Fatalf("events = %v, err = %v", events, err)
	}
	if events.Status() != models.ComponentDisabled {
		t.Errorf("status = %s", events.Status())
	}
	if err := events.Close(); err != nil {
		t.Errorf("Close on nil: %v", err)
	}
}

func TestNATSBackends(t *testing.T) {
	if testing.Short() {
		t.Skip("starts a NATS server")
	}
	t.Parallel()

	ns := testinfra.StartEmbeddedNATS(t)
	cfg := testConfig()
	cfg.NATS.Enabled = true
	cfg.NATS.URL = ns.URL
	cfg.Storage.Backend = "nats"
	cfg.Ingest.LockBackend = "nats"

	natsc, err := ConnectNATS(cfg)
	if err != nil {
		t.Fatalf("ConnectNATS: %v", err)
	}
	t.Cleanup(func() { _ = natsc.Close(context.Background()) })
	if natsc.Status() != models.ComponentConnected {
		t.Errorf("status = %s", natsc.Status())
	}

	ctx := context.Background()
	st, err := OpenStorage(ctx, cfg, natsc)
	if err != nil {
		t.Fatalf("OpenStorage: %v", err)
	}
	seedStore(t, st, cfg)

	engine := NewIngestEngine(cfg, st, 0, nil)
	report, err := engine.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.ItemsUpdated != 1 || report.ItemsAppended != 3 {
		t.Errorf("report = %+v", report)
	}
}

func TestConnectNATS_Disabled(t *testing.T) {
	t.Parallel()

	natsc, err := ConnectNATS(testConfig())
	if err != nil || natsc != nil {
		t.Fatalf("natsc = %v, err = %v", natsc, err)
	}
	if natsc.Status() != models.ComponentDisabled {
		t.Errorf("status = %s", natsc.Status())
	}
}
