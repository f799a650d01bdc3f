// Marquee - Movie Catalog Search and Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

/*
Package services adapts Marquee's long-running components to suture.Service.

Each wrapper translates a component lifecycle into the context-aware Serve
pattern and implements fmt.Stringer so supervisor events name the service.

# Available Services

HTTPServerService wraps *http.Server. ListenAndServe runs in a goroutine
and Shutdown drains connections when the context is canceled.

NATSServerService owns the embedded NATS server. Serve blocks until
cancellation and then shuts the server down. A server that is no longer
running is reported with suture.ErrDoNotRestart because it cannot be
restarted in place.

IngestSchedulerService runs an ingestion on a fixed interval. Lock
contention is expected when another indexer holds the lock and is logged
at debug level; other failures are logged and retried on the next tick.

The event listener in internal/eventprocessor is already a suture.Service
and is added to the tree directly.

# Usage

	tree.AddDataService(services.NewNATSServerService(embedded, 10*time.Second))
	tree.AddMessagingService(services.NewIngestSchedulerService(svc, 5*time.Minute))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
*/
package services
