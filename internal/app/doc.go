// Marquee - Movie Catalog Search and Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

// Package app builds Marquee's runtime components from configuration. Both
// binaries use it so the server and the indexer agree on storage layout,
// lock backend and event transport.
//
// Setup order:
//
//	natsc, _ := app.ConnectNATS(cfg)             // nil when NATS is disabled
//	st, _ := app.OpenStorage(ctx, cfg, natsc)     // blob store, breaker, locker
//	ev, _ := app.OpenEvents(cfg, natsc, "server") // nil when events are disabled
//	engine := app.NewIngestEngine(cfg, st, cfg.Ingest.LockWait, notifier)
package app
