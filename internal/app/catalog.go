// Marquee - Movie Catalog Search and Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package app

import (
	"context"
	"time"

	"github.com/tomtom215/marquee/internal/catalog"
	"github.com/tomtom215/marquee/internal/config"
	"github.com/tomtom215/marquee/internal/ingest"
	"github.com/tomtom215/marquee/internal/models"
)

// IngestConfig maps configuration onto the ingestion layout.
func IngestConfig(cfg *config.Config, lockWait time.Duration) ingest.Config {
	return ingest.Config{
		InboxCollection:   cfg.Storage.InboxCollection,
		DatasetCollection: cfg.Storage.DatasetCollection,
		DatasetKey:        cfg.Storage.DatasetKey,
		ArchiveCollection: cfg.Storage.ArchiveCollection,
		LockName:          cfg.Ingest.LockName,
		LockWait:          lockWait,
	}
}

// NewIngestEngine builds an ingestion engine over st. notifier may be nil.
func NewIngestEngine(cfg *config.Config, st *Storage, lockWait time.Duration, notifier ingest.Notifier) *ingest.Engine {
	var opts []ingest.Option
	if notifier != nil {
		opts = append(opts, ingest.WithNotifier(notifier))
	}
	return ingest.NewEngine(st.Store, st.Locker, IngestConfig(cfg, lockWait), opts...)
}

// NewCatalog builds the search service with ingestion wired in.
//
// With events, completed runs are published and reloads happen in the
// listener, including this process's own runs. Without events the service
// reloads itself directly after each run.
func NewCatalog(cfg *config.Config, st *Storage, events *Events) *catalog.Service {
	var svc *catalog.Service

	var notifier ingest.Notifier
	if events != nil {
		notifier = events.Publisher
	} else {
		notifier = ingest.NotifierFunc(func(ctx context.Context, report *models.IngestReport) error {
			return svc.IngestCompleted(ctx, report)
		})
	}

	// HTTP-triggered runs never wait for a busy lock; contention is a 409.
	engine := NewIngestEngine(cfg, st, 0, notifier)
	svc = catalog.NewService(st.Store, catalog.Config{
		DatasetCollection: cfg.Storage.DatasetCollection,
		DatasetKey:        cfg.Storage.DatasetKey,
		CacheSize:         cfg.Search.CacheSize,
	}, catalog.WithIngester(engine))
	return svc
}
