// Marquee - Movie Catalog Search and Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/marquee/internal/api"
	"github.com/tomtom215/marquee/internal/app"
	"github.com/tomtom215/marquee/internal/config"
	"github.com/tomtom215/marquee/internal/logging"
	"github.com/tomtom215/marquee/internal/supervisor"
	"github.com/tomtom215/marquee/internal/supervisor/services"
)

//nolint:gocyclo // sequential setup steps
func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})
	logging.Info().Str("version", api.Version).Msg("Starting Marquee search service")
	logging.Debug().Str("config", cfg.String()).Msg("Configuration loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	natsc, err := app.ConnectNATS(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize NATS")
	}
	defer func() {
		if err := natsc.CloseConn(); err != nil {
			logging.Warn().Err(err).Msg("Error closing NATS connection")
		}
	}()

	st, err := app.OpenStorage(ctx, cfg, natsc)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer func() {
		if err := st.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing storage")
		}
	}()

	events, err := app.OpenEvents(cfg, natsc, "server")
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize ingestion events")
	}
	defer func() {
		if err := events.Close(); err != nil {
			logging.Warn().Err(err).Msg("Error closing event bus")
		}
	}()

	catalog := app.NewCatalog(cfg, st, events)
	stats, err := catalog.Reload(ctx)
	if err != nil {
		// Fatal skips deferred cleanup; close badger first so its lock
		// file is released.
		_ = st.Close()
		logging.Fatal().Err(err).Msg("Failed to load catalog")
	}
	logging.Info().
		Int("records", stats.Records).
		Int("distinct_titles", stats.DistinctTitles).
		Int("distinct_genres", stats.DistinctGenres).
		Msg("Catalog loaded")

	handler := api.NewHandler(catalog, api.HandlerConfig{
		DefaultPageSize: cfg.Search.DefaultPageSize,
		MaxPageSize:     cfg.Search.MaxPageSize,
	},
		api.WithStorageStatus(st.Status),
		api.WithNATSStatus(natsc.Status),
		api.WithEventsStatus(events.Status),
	)
	chiMw := api.NewChiMiddlewareFromSecurity(
		cfg.Security.CORSOrigins,
		cfg.Security.RateLimitReqs,
		cfg.Security.RateLimitWindow,
		cfg.Security.RateLimitDisabled,
	)
	router := api.NewRouter(handler, chiMw)

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.Setup(),
		ReadTimeout:       cfg.Server.Timeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  cfg.Server.Timeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	if natsc != nil && natsc.Server != nil {
		tree.AddDataService(services.NewNATSServerService(natsc.Server, 10*time.Second))
		logging.Info().Msg("Embedded NATS server added to supervisor tree")
	}

	if events != nil && cfg.Events.ReloadOnIngest {
		tree.AddMessagingService(events.Listener(app.ReloadOnIngest(catalog)))
		logging.Info().Str("topic", cfg.Events.Topic).Msg("Ingestion listener added to supervisor tree")
	}

	if cfg.Ingest.ScheduleInterval > 0 {
		tree.AddMessagingService(services.NewIngestSchedulerService(catalog, cfg.Ingest.ScheduleInterval))
		logging.Info().Dur("interval", cfg.Ingest.ScheduleInterval).Msg("Ingest scheduler added to supervisor tree")
	}

	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.Timeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	var treeErr error
	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
		treeErr = <-errCh
	case treeErr = <-errCh:
	}
	if treeErr != nil && !errors.Is(treeErr, context.Canceled) {
		logging.Error().Err(treeErr).Msg("Supervisor tree error")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Marquee stopped")
}
