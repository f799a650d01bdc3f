// Marquee - Movie Catalog Search and Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

/*
Package supervisor runs Marquee's long-lived services under suture v4.

# Tree

	RootSupervisor ("marquee")
	├── DataSupervisor ("data-layer")
	│   └── NATSServerService (if nats.embedded_server)
	├── MessagingSupervisor ("messaging-layer")
	│   ├── eventprocessor.Listener (if events.reload_on_ingest)
	│   └── IngestSchedulerService (if ingest.schedule_interval > 0)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

Each layer counts failures on its own, so a listener that keeps failing backs
off without touching the HTTP server.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.Timeout))
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
	    logging.Error().Err(err).Msg("Supervisor stopped")
	}

# Failure Handling

A service returning an error is restarted. Failures decay over FailureDecay
seconds; once the count passes FailureThreshold the layer waits
FailureBackoff before the next restart. Services that cannot be restarted in
place return an error wrapping suture.ErrDoNotRestart.

Supervisor events are logged through sutureslog into the process slog
logger, which is bridged to zerolog by the logging package.

# Shutdown

Canceling the context passed to Serve stops every layer. Services that do not
return within ShutdownTimeout are listed by UnstoppedServiceReport.
*/
package supervisor
