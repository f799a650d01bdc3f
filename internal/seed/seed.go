// Marquee - Movie Catalog Search and Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

// Package seed writes an initial dataset and inbox batch into a blob store.
// It is used by `indexer seed` for demos, load tests and local development.
package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/tomtom215/marquee/internal/blobstore"
	"github.com/tomtom215/marquee/internal/index"
	"github.com/tomtom215/marquee/internal/ingest"
	"github.com/tomtom215/marquee/internal/logging"
)

//go:embed fixtures/dataset.json
var fixtureDataset []byte

//go:embed fixtures/increment.json
var fixtureIncrement []byte

// DefaultInboxKey names the seeded inbox batch.
const DefaultInboxKey = "increment1.json"

// Source holds the documents to write. A nil field is skipped.
type Source struct {
	Dataset []byte
	Inbox   []byte
}

// Fixtures returns the built-in twelve movie dataset and a four item batch
// that updates one movie and appends three.
func Fixtures() Source {
	return Source{Dataset: fixtureDataset, Inbox: fixtureIncrement}
}

// FromFiles reads a source from disk. Either path may be empty.
func FromFiles(datasetPath, inboxPath string) (Source, error) {
	var src Source
	var err error
	if datasetPath != "" {
		if src.Dataset, err = os.ReadFile(datasetPath); err != nil {
			return Source{}, fmt.Errorf("read dataset: %w", err)
		}
	}
	if inboxPath != "" {
		if src.Inbox, err = os.ReadFile(inboxPath); err != nil {
			return Source{}, fmt.Errorf("read inbox batch: %w", err)
		}
	}
	return src, nil
}

// Validate checks the dataset would build an index and that every inbox item
// has a natural key.
func (s Source) Validate() error {
	if s.Dataset != nil {
		raw, err := index.Decode("seed", "dataset", s.Dataset)
		if err != nil {
			return err
		}
		if _, err := index.Build(raw); err != nil {
			return fmt.Errorf("seed dataset: %w", err)
		}
	}
	if s.Inbox != nil {
		if _, err := ingest.DecodeDataset(s.Inbox); err != nil {
			return fmt.Errorf("seed inbox batch: %w", err)
		}
	}
	return nil
}

// Config names where the documents go.
type Config struct {
	DatasetCollection string
	DatasetKey        string
	InboxCollection   string
	InboxKey          string

	// Overwrite replaces an existing dataset. Without it a present dataset
	// is left alone.
	Overwrite bool
}

// ConfigFrom derives a seed layout from the ingestion layout.
func ConfigFrom(cfg ingest.Config) Config {
	return Config{
		DatasetCollection: cfg.DatasetCollection,
		DatasetKey:        cfg.DatasetKey,
		InboxCollection:   cfg.InboxCollection,
		InboxKey:          DefaultInboxKey,
	}
}

// Result reports what Run wrote.
type Result struct {
	DatasetWritten bool `json:"dataset_written"`
	DatasetSkipped bool `json:"dataset_skipped"`
	InboxWritten   bool `json:"inbox_written"`
}

// Run validates src and writes it to store.
func Run(ctx context.Context, store blobstore.Store, cfg Config, src Source) (Result, error) {
	var res Result
	if err := src.Validate(); err != nil {
		return res, err
	}
	if cfg.InboxKey == "" {
		cfg.InboxKey = DefaultInboxKey
	}

	if src.Dataset != nil {
		if !cfg.Overwrite {
			_, err := store.Get(ctx, cfg.DatasetCollection, cfg.DatasetKey)
			switch {
			case err == nil:
				res.DatasetSkipped = true
			case !errors.Is(err, blobstore.ErrNotFound):
				return res, fmt.Errorf("check dataset: %w", err)
			}
		}
		if !res.DatasetSkipped {
			if err := store.Put(ctx, cfg.DatasetCollection, cfg.DatasetKey, src.Dataset); err != nil {
				return res, fmt.Errorf("write dataset: %w", err)
			}
			res.DatasetWritten = true
		}
	}

	if src.Inbox != nil {
		if err := store.Put(ctx, cfg.InboxCollection, cfg.InboxKey, src.Inbox); err != nil {
			return res, fmt.Errorf("write inbox batch: %w", err)
		}
		res.InboxWritten = true
	}

	logging.Ctx(ctx).Info().
		Bool("dataset_written", res.DatasetWritten).
		Bool("dataset_skipped", res.DatasetSkipped).
		Bool("inbox_written", res.InboxWritten).
		Str("inbox_key", cfg.InboxKey).
		Msg("Seed complete")
	return res, nil
}
