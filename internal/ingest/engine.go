// Marquee - Movie Catalog Search and Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

// Package ingest merges pending inbox batches into the canonical movie
// dataset.
//
// A run lists the inbox oldest first, upserts every item by its natural key
// (title immediately followed by year), writes the dataset back once and then
// moves each merged batch to the archive. Runs are serialized by a named
// lock so only one writer touches the dataset at a time.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/tomtom215/marquee/internal/blobstore"
	"github.com/tomtom215/marquee/internal/lock"
	"github.com/tomtom215/marquee/internal/logging"
	"github.com/tomtom215/marquee/internal/metrics"
	"github.com/tomtom215/marquee/internal/models"
)

// Config names the collections and lock an Engine works with.
type Config struct {
	InboxCollection   string
	DatasetCollection string
	DatasetKey        string
	ArchiveCollection string
	LockName          string

	// LockWait bounds how long Run waits for a busy lock. Zero fails
	// immediately with models.ErrLockContention.
	LockWait time.Duration
}

// DefaultConfig returns the stock collection layout.
func DefaultConfig() Config {
	return Config{
		InboxCollection:   "inbox",
		DatasetCollection: "storage",
		DatasetKey:        "main",
		ArchiveCollection: "archive",
		LockName:          "ingestion",
	}
}

// Notifier is told about every run that merged at least one batch.
type Notifier interface {
	IngestCompleted(ctx context.Context, report *models.IngestReport) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, report *models.IngestReport) error

// IngestCompleted calls f.
func (f NotifierFunc) IngestCompleted(ctx context.Context, report *models.IngestReport) error {
	return f(ctx, report)
}

// Option configures an Engine.
type Option func(*Engine)

// WithNotifier registers n to hear about completed runs.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) {
		e.notifier = n
	}
}

// WithClock overrides the time source used for archive keys.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// Engine runs ingestion passes.
type Engine struct {
	store    blobstore.Store
	locker   lock.Locker
	cfg      Config
	notifier Notifier
	now      func() time.Time
}

// NewEngine creates an Engine. Empty Config fields fall back to DefaultConfig.
func NewEngine(store blobstore.Store, locker lock.Locker, cfg Config, opts ...Option) *Engine {
	def := DefaultConfig()
	if cfg.InboxCollection == "" {
		cfg.InboxCollection = def.InboxCollection
	}
	if cfg.DatasetCollection == "" {
		cfg.DatasetCollection = def.DatasetCollection
	}
	if cfg.DatasetKey == "" {
		cfg.DatasetKey = def.DatasetKey
	}
	if cfg.ArchiveCollection == "" {
		cfg.ArchiveCollection = def.ArchiveCollection
	}
	if cfg.LockName == "" {
		cfg.LockName = def.LockName
	}

	e := &Engine{
		store:  store,
		locker: locker,
		cfg:    cfg,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Run performs one ingestion pass under the ingestion lock.
//
// Lock contention is returned as models.ErrLockContention without touching
// storage. A malformed canonical dataset or a failed dataset write aborts the
// run with nothing archived.
func (e *Engine) Run(ctx context.Context) (*models.IngestReport, error) {
	start := time.Now()
	ctx = logging.ContextWithNewCorrelationID(ctx)

	var report *models.IngestReport
	err := lock.WithWait(ctx, e.locker, e.cfg.LockName, e.cfg.LockWait, func(ctx context.Context) error {
		var runErr error
		report, runErr = e.merge(ctx)
		return runErr
	})

	duration := time.Since(start)
	metrics.RecordIngestRun(report, duration, err)
	if err != nil {
		if errors.Is(err, models.ErrLockContention) {
			logging.Ctx(ctx).Info().Err(err).Msg("Ingestion skipped, lock busy")
		} else {
			logging.Ctx(ctx).Error().Err(err).Msg("Ingestion failed")
		}
		return report, err
	}

	report.DurationMS = duration.Milliseconds()
	logging.Ctx(ctx).Info().
		Int("processed", report.Processed).
		Int("skipped", report.Skipped).
		Int("updated", report.ItemsUpdated).
		Int("appended", report.ItemsAppended).
		Int("archive_failures", report.ArchiveFailures).
		Int("dataset_size", report.DatasetSize).
		Dur("duration", duration).
		Msg("Ingestion completed")

	if report.Processed > 0 && e.notifier != nil {
		if nerr := e.notifier.IngestCompleted(ctx, report); nerr != nil {
			logging.Ctx(ctx).Warn().Err(nerr).Msg("Failed to announce ingestion")
		}
	}
	return report, nil
}

func (e *Engine) merge(ctx context.Context) (*models.IngestReport, error) {
	report := &models.IngestReport{}

	batches, err := e.readInbox(ctx, report)
	if err != nil {
		return report, err
	}

	dataset, err := e.readDataset(ctx)
	if err != nil {
		return report, err
	}
	report.DatasetSize = dataset.Len()

	if len(batches) == 0 {
		return report, nil
	}

	for _, b := range batches {
		for i, item := range b.Items {
			if dataset.Upsert(b.keys[i], item) {
				report.ItemsUpdated++
			} else {
				report.ItemsAppended++
			}
		}
	}
	report.Processed = len(batches)
	report.DatasetSize = dataset.Len()

	data, err := dataset.Encode()
	if err != nil {
		return report, fmt.Errorf("encode dataset: %w", err)
	}
	// Confirm the lease right before the write so a run that outlived it
	// never overwrites another holder's merge.
	if err := lock.Refresh(ctx); err != nil {
		return report, fmt.Errorf("confirm ingestion lock: %w", err)
	}
	if err := e.store.Put(ctx, e.cfg.DatasetCollection, e.cfg.DatasetKey, data); err != nil {
		return report, fmt.Errorf("write dataset: %w", err)
	}

	for _, b := range batches {
		if e.archive(ctx, b) {
			report.Archived++
		} else {
			report.ArchiveFailures++
		}
	}
	return report, nil
}

// readInbox loads every decodable batch, oldest first. Undecodable batches
// are logged, counted and left in place.
func (e *Engine) readInbox(ctx context.Context, report *models.IngestReport) ([]*Batch, error) {
	infos, err := e.store.List(ctx, e.cfg.InboxCollection)
	if err != nil {
		return nil, fmt.Errorf("list inbox: %w", err)
	}
	sortByArrival(infos)

	batches := make([]*Batch, 0, len(infos))
	for _, info := range infos {
		data, err := e.store.Get(ctx, e.cfg.InboxCollection, info.Key)
		if errors.Is(err, blobstore.ErrNotFound) {
			logging.Ctx(ctx).Warn().Str("key", info.Key).Msg("Inbox entry vanished before it was read")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read inbox entry %s: %w", info.Key, err)
		}

		items, keys, err := decodeItems(data)
		if err != nil {
			derr := &models.DecodeError{Collection: e.cfg.InboxCollection, Key: info.Key, Err: err}
			logging.Ctx(ctx).Warn().Err(derr).Str("key", info.Key).Msg("Skipping undecodable inbox entry")
			report.Skipped++
			report.SkippedKeys = append(report.SkippedKeys, info.Key)
			continue
		}

		batches = append(batches, &Batch{
			Key:          info.Key,
			LastModified: info.LastModified,
			Items:        items,
			keys:         keys,
			raw:          data,
		})
	}
	return batches, nil
}

func (e *Engine) readDataset(ctx context.Context) (*Dataset, error) {
	data, err := e.store.Get(ctx, e.cfg.DatasetCollection, e.cfg.DatasetKey)
	if errors.Is(err, blobstore.ErrNotFound) {
		return NewDataset(nil)
	}
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}

	dataset, err := DecodeDataset(data)
	if err != nil {
		return nil, &models.DecodeError{Collection: e.cfg.DatasetCollection, Key: e.cfg.DatasetKey, Err: err}
	}
	return dataset, nil
}

// archive copies b to the archive and removes it from the inbox. A batch is
// only deleted once its archive copy is stored.
func (e *Engine) archive(ctx context.Context, b *Batch) bool {
	archiveKey := strconv.FormatInt(e.now().UnixMicro(), 10) + b.Key

	if err := e.store.Put(ctx, e.cfg.ArchiveCollection, archiveKey, b.raw); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("key", b.Key).Msg("Failed to archive inbox entry")
		return false
	}
	if err := e.store.Delete(ctx, e.cfg.InboxCollection, b.Key); err != nil && !errors.Is(err, blobstore.ErrNotFound) {
		logging.Ctx(ctx).Warn().Err(err).Str("key", b.Key).Str("archive_key", archiveKey).Msg("Archived entry could not be removed from inbox")
		return false
	}
	return true
}
