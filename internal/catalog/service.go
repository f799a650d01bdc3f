// Marquee - Movie Catalog Search and Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

// Package catalog owns the snapshot the server answers queries from.
//
// The Service loads the canonical dataset from the blob store, builds an
// index snapshot and serves queries through a cached engine. Reload builds a
// fresh snapshot off to the side and swaps it in atomically; readers never
// observe a partially built index, and a failed reload keeps the previous
// snapshot serving.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tomtom215/marquee/internal/blobstore"
	"github.com/tomtom215/marquee/internal/index"
	"github.com/tomtom215/marquee/internal/logging"
	"github.com/tomtom215/marquee/internal/metrics"
	"github.com/tomtom215/marquee/internal/models"
	"github.com/tomtom215/marquee/internal/search"
)

// ErrIngestDisabled is returned by Ingest when no ingester was configured.
var ErrIngestDisabled = errors.New("ingestion is not configured on this instance")

// Ingester runs one ingestion pass.
type Ingester interface {
	Run(ctx context.Context) (*models.IngestReport, error)
}

// Config locates the dataset and sizes the query cache.
type Config struct {
	DatasetCollection string
	DatasetKey        string
	CacheSize         int
}

// Option configures a Service.
type Option func(*Service)

// WithIngester enables Ingest.
func WithIngester(i Ingester) Option {
	return func(s *Service) {
		s.ingester = i
	}
}

// WithScanObserver is passed to every engine the service builds.
func WithScanObserver(o search.ScanObserver) Option {
	return func(s *Service) {
		s.engineOpts = append(s.engineOpts, search.WithScanObserver(o))
	}
}

// Service serves queries over the current snapshot.
type Service struct {
	store      blobstore.Store
	cfg        Config
	ingester   Ingester
	engineOpts []search.Option

	engine atomic.Pointer[search.Engine]
	cached *search.CachedEngine

	// reloadMu serializes reloads so swaps happen in load order.
	reloadMu sync.Mutex
	reloads  atomic.Int64
}

// NewService creates a Service serving an empty snapshot. Call Reload to load
// the dataset.
func NewService(store blobstore.Store, cfg Config, opts ...Option) *Service {
	s := &Service{store: store, cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}

	engine := search.NewEngine(index.Empty(), s.engineOpts...)
	s.engine.Store(engine)
	s.cached = search.NewCachedEngine(engine, cfg.CacheSize)
	return s
}

// Load reads and indexes the canonical dataset without installing it. A
// missing dataset yields an empty snapshot.
func (s *Service) Load(ctx context.Context) (*index.Snapshot, error) {
	start := time.Now()
	snap, err := s.load(ctx)
	if err != nil {
		metrics.RecordIndexLoad(0, time.Since(start), err)
		return nil, err
	}
	metrics.RecordIndexLoad(snap.Len(), time.Since(start), nil)
	return snap, nil
}

func (s *Service) load(ctx context.Context) (*index.Snapshot, error) {
	data, err := s.store.Get(ctx, s.cfg.DatasetCollection, s.cfg.DatasetKey)
	if errors.Is(err, blobstore.ErrNotFound) {
		logging.Ctx(ctx).Warn().
			Str("collection", s.cfg.DatasetCollection).
			Str("key", s.cfg.DatasetKey).
			Msg("Dataset not found, serving an empty catalog")
		return index.Empty(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}

	raw, err := index.Decode(s.cfg.DatasetCollection, s.cfg.DatasetKey, data)
	if err != nil {
		return nil, err
	}
	snap, err := index.Build(raw)
	if err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}
	return snap, nil
}

// Reload loads the dataset, installs the new snapshot and clears the query
// cache. On failure the current snapshot keeps serving.
func (s *Service) Reload(ctx context.Context) (index.Stats, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	snap, err := s.Load(ctx)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("Catalog reload failed, keeping previous snapshot")
		return index.Stats{}, err
	}

	engine := search.NewEngine(snap, s.engineOpts...)
	s.engine.Store(engine)
	s.cached.Reset(engine)
	s.reloads.Add(1)

	stats := snap.Stats()
	logging.Ctx(ctx).Info().
		Int("records", stats.Records).
		Int("distinct_titles", stats.DistinctTitles).
		Dur("build", snap.BuildDuration()).
		Msg("Catalog snapshot installed")
	return stats, nil
}

// Search answers q from the cache or the current snapshot.
func (s *Service) Search(ctx context.Context, q search.Query) (search.Result, error) {
	return s.cached.Find(ctx, q)
}

// FindByTitle returns the records whose title matches exactly.
func (s *Service) FindByTitle(title string) []models.Movie {
	return s.engine.Load().FindByTitle(title)
}

// Snapshot returns the snapshot currently serving.
func (s *Service) Snapshot() *index.Snapshot {
	return s.engine.Load().Snapshot()
}

// Reloads returns how many snapshots have been installed.
func (s *Service) Reloads() int64 {
	return s.reloads.Load()
}

// Stats describes the current snapshot and query cache.
func (s *Service) Stats() models.CatalogStats {
	snap := s.Snapshot()
	idx := snap.Stats()
	cs := s.cached.Stats()

	var loadedAt string
	if !snap.BuiltAt().IsZero() {
		loadedAt = snap.BuiltAt().UTC().Format(time.RFC3339)
	}

	return models.CatalogStats{
		Records:        idx.Records,
		DistinctTitles: idx.DistinctTitles,
		DistinctCast:   idx.DistinctCast,
		DistinctGenres: idx.DistinctGenres,
		DistinctYears:  idx.DistinctYears,
		LoadedAt:       loadedAt,
		CacheEntries:   cs.Size,
		CacheHits:      cs.Hits,
		CacheMisses:    cs.Misses,
	}
}

// Ingest runs one ingestion pass. The snapshot is not reloaded here; that
// follows from the ingest event or an explicit Reload.
func (s *Service) Ingest(ctx context.Context) (*models.IngestReport, error) {
	if s.ingester == nil {
		return nil, ErrIngestDisabled
	}
	return s.ingester.Run(ctx)
}

// IngestCompleted reloads the catalog after a completed ingestion. It lets
// the service listen to ingest events directly.
func (s *Service) IngestCompleted(ctx context.Context, report *models.IngestReport) error {
	_, err := s.Reload(ctx)
	return err
}
