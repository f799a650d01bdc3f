// Marquee - Movie Catalog Search and Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

// Package blobstore is the record store adapter: opaque JSON blobs addressed by
// collection and key.
//
// Backends:
//   - MemoryStore: process-local, for tests and single-process runs
//   - BadgerStore: embedded BadgerDB, survives restarts
//   - NATSStore: JetStream object store, one bucket per collection
//
// BreakerStore wraps any backend with a circuit breaker and normalizes backend
// failures to models.ErrStorageUnavailable.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned by Get and Delete when the key does not exist.
	ErrNotFound = errors.New("blob not found")

	// ErrInvalidName is returned for empty or malformed collection and key names.
	ErrInvalidName = errors.New("invalid blob name")
)

// ObjectInfo describes one stored blob.
type ObjectInfo struct {
	Key          string
	LastModified time.Time
	Size         int64
}

// Store is the blob store contract used by the index loader and the ingestion
// engine. Collections are implicit and spring into existence on first Put.
type Store interface {
	// List returns every blob in collection. Order is unspecified.
	List(ctx context.Context, collection string) ([]ObjectInfo, error)

	// Get returns the blob contents or ErrNotFound.
	Get(ctx context.Context, collection, key string) ([]byte, error)

	// Put creates or overwrites a blob.
	Put(ctx context.Context, collection, key string, data []byte) error

	// Delete removes a blob, returning ErrNotFound if absent.
	Delete(ctx context.Context, collection, key string) error
}

// Closer is implemented by backends that hold resources.
type Closer interface {
	Close() error
}

func validateName(collection, key string) error {
	if collection == "" {
		return fmt.Errorf("%w: collection must not be empty", ErrInvalidName)
	}
	if strings.ContainsRune(collection, '/') {
		return fmt.Errorf("%w: collection %q must not contain '/'", ErrInvalidName, collection)
	}
	if key == "" {
		return fmt.Errorf("%w: key must not be empty", ErrInvalidName)
	}
	return nil
}

func validateCollection(collection string) error {
	return validateName(collection, "-")
}
