// Marquee - Movie Catalog Search and Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

// Command indexer merges inbox batches into the canonical movie dataset.
//
// Usage:
//
//	indexer [ingest] [-lock-wait 30s]
//	indexer seed [-dataset file] [-inbox file] [-inbox-key name] [-overwrite]
//
// ingest is the default. It runs one pass under the ingestion lock and prints
// the report as JSON. seed writes the built-in fixtures, or the given files,
// into storage.
//
// Exit status is 0 on success, 2 when another holder owns the ingestion lock,
// and 1 on any other failure.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/marquee/internal/app"
	"github.com/tomtom215/marquee/internal/config"
	"github.com/tomtom215/marquee/internal/ingest"
	"github.com/tomtom215/marquee/internal/logging"
	"github.com/tomtom215/marquee/internal/models"
	"github.com/tomtom215/marquee/internal/seed"
)

const (
	exitOK         = 0
	exitFailure    = 1
	exitContention = 2
)

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, cfg, os.Args[1:], os.Stdout)
	stop()
	os.Exit(code)
}

// run executes one subcommand and returns the process exit status.
func run(ctx context.Context, cfg *config.Config, args []string, stdout io.Writer) int {
	cmd := "ingest"
	if len(args) > 0 && (args[0] == "ingest" || args[0] == "seed") {
		cmd, args = args[0], args[1:]
	}

	var err error
	switch cmd {
	case "seed":
		err = runSeed(ctx, cfg, args, stdout)
	default:
		err = runIngest(ctx, cfg, args, stdout)
	}
	return exitCode(err)
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, models.ErrLockContention):
		logging.Warn().Err(err).Msg("Ingestion lock is held elsewhere")
		return exitContention
	case errors.Is(err, flag.ErrHelp):
		return exitOK
	default:
		logging.Error().Err(err).Msg("Indexer failed")
		return exitFailure
	}
}

func runIngest(ctx context.Context, cfg *config.Config, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
	lockWait := fs.Duration("lock-wait", cfg.Ingest.LockWait, "how long to wait for a busy ingestion lock")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	return withRuntime(ctx, cfg, func(rt *deps) error {
		var notifier ingest.Notifier
		if rt.events != nil {
			notifier = rt.events.Publisher
		}

		engine := app.NewIngestEngine(cfg, rt.storage, *lockWait, notifier)
		report, err := engine.Run(ctx)
		if err != nil {
			return err
		}
		return writeJSON(stdout, report)
	})
}

func runSeed(ctx context.Context, cfg *config.Config, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	datasetPath := fs.String("dataset", "", "dataset JSON file (default: built-in fixtures)")
	inboxPath := fs.String("inbox", "", "inbox batch JSON file (default: built-in fixtures)")
	inboxKey := fs.String("inbox-key", seed.DefaultInboxKey, "key of the seeded inbox batch")
	overwrite := fs.Bool("overwrite", false, "replace an existing dataset")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	src := seed.Fixtures()
	if *datasetPath != "" || *inboxPath != "" {
		var err error
		if src, err = seed.FromFiles(*datasetPath, *inboxPath); err != nil {
			return err
		}
	}

	return withRuntime(ctx, cfg, func(rt *deps) error {
		seedCfg := seed.ConfigFrom(app.IngestConfig(cfg, 0))
		seedCfg.InboxKey = *inboxKey
		seedCfg.Overwrite = *overwrite

		res, err := seed.Run(ctx, rt.storage.Store, seedCfg, src)
		if err != nil {
			return err
		}
		return writeJSON(stdout, res)
	})
}

type deps struct {
	natsc   *app.NATS
	storage *app.Storage
	events  *app.Events
}

// withRuntime opens storage and, when NATS is available, the event bus, and
// closes them after fn returns.
func withRuntime(ctx context.Context, cfg *config.Config, fn func(rt *deps) error) (err error) {
	rt := &deps{}

	if rt.natsc, err = app.ConnectNATS(cfg); err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if cerr := rt.natsc.Close(closeCtx); cerr != nil {
			logging.Warn().Err(cerr).Msg("Error closing NATS")
		}
	}()

	if rt.storage, err = app.OpenStorage(ctx, cfg, rt.natsc); err != nil {
		return err
	}
	defer func() {
		if cerr := rt.storage.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close storage: %w", cerr))
		}
	}()

	// An in-process bus has no listeners in a one-shot process.
	if rt.natsc != nil {
		if rt.events, err = app.OpenEvents(cfg, rt.natsc, "indexer"); err != nil {
			return err
		}
		defer func() { _ = rt.events.Close() }()
	}

	return fn(rt)
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("%s: unexpected argument %q", fs.Name(), fs.Arg(0))
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
