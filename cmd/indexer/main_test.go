// Marquee - Movie Catalog Search and Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/marquee/internal/config"
	"github.com/tomtom215/marquee/internal/models"
	"github.com/tomtom215/marquee/internal/seed"
)

func badgerConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Storage: config.StorageConfig{
			Backend:                 "badger",
			BadgerPath:              t.TempDir(),
			InboxCollection:         "inbox",
			DatasetCollection:       "storage",
			DatasetKey:              "main",
			ArchiveCollection:       "archive",
			BreakerFailureThreshold: 5,
			BreakerTimeout:          time.Second,
			BreakerMaxRequests:      1,
		},
		Ingest: config.IngestConfig{
			LockBackend: "badger",
			LockName:    "ingestion",
			LockTTL:     time.Minute,
		},
		Events: config.EventsConfig{Enabled: true, Topic: "catalog.ingested"},
	}
}

func TestRun_SeedThenIngest(t *testing.T) {
	cfg := badgerConfig(t)
	ctx := context.Background()

	var out bytes.Buffer
	if code := run(ctx, cfg, []string{"seed"}, &out); code != exitOK {
		t.Fatalf("seed exit = %d", code)
	}
	var res seed.Result
	if err := json.Unmarshal(out.Bytes(), &res); err != nil {
		t.Fatalf("decode seed result: %v\n%s", err, out.String())
	}
	if !res.DatasetWritten || !res.InboxWritten {
		t.Fatalf("seed result = %+v", res)
	}

	out.Reset()
	if code := run(ctx, cfg, nil, &out); code != exitOK {
		t.Fatalf("ingest exit = %d", code)
	}
	var report models.IngestReport
	if err := json.Unmarshal(out.Bytes(), &report); err != nil {
		t.Fatalf("decode report: %v\n%s", err, out.String())
	}
	if report.Processed != 1 || report.DatasetSize != 15 || report.Archived != 1 {
		t.Errorf("report = %+v", report)
	}

	// The inbox is drained, so a second pass has nothing to do.
	out.Reset()
	if code := run(ctx, cfg, []string{"ingest", "-lock-wait", "0s"}, &out); code != exitOK {
		t.Fatalf("second ingest exit = %d", code)
	}
	report = models.IngestReport{}
	_ = json.Unmarshal(out.Bytes(), &report)
	if report.Processed != 0 || report.DatasetSize != 15 {
		t.Errorf("second report = %+v", report)
	}

	// A second seed keeps the merged dataset.
	out.Reset()
	if code := run(ctx, cfg, []string{"seed", "-inbox-key", "again.json"}, &out); code != exitOK {
		t.Fatalf("reseed exit = %d", code)
	}
	res = seed.Result{}
	_ = json.Unmarshal(out.Bytes(), &res)
	if !res.DatasetSkipped {
		t.Errorf("reseed result = %+v", res)
	}
}

func TestRun_BadArguments(t *testing.T) {
	cfg := badgerConfig(t)
	var out bytes.Buffer

	tests := [][]string{
		{"ingest", "extra"},
		{"seed", "-dataset", "/nonexistent/dataset.json"},
		{"ingest", "-lock-wait", "soon"},
	}
	for _, args := range tests {
		if code := run(context.Background(), cfg, args, &out); code != exitFailure {
			t.Errorf("run(%v) = %d, want %d", args, code, exitFailure)
		}
	}
}

func TestExitCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want int
	}{
		{nil, exitOK},
		{fmt.Errorf("run: %w", models.ErrLockContention), exitContention},
		{models.ErrStorageUnavailable, exitFailure},
		{errors.New("boom"), exitFailure},
	}
	for _, tt := range tests {
		if got := exitCode(tt.err); got != tt.want {
			t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
