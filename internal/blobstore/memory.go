// Marquee - Movie Catalog Search and Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package blobstore

import (
	"context"
	"sync"
	"time"
)

type memoryBlob struct {
	data     []byte
	modified time.Time
}

// MemoryStore keeps blobs in a map. Safe for concurrent use.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string]map[string]memoryBlob
	now   func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		blobs: make(map[string]map[string]memoryBlob),
		now:   time.Now,
	}
}

// SetClock replaces the time source used for LastModified. Intended for tests.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// List implements Store.
func (s *MemoryStore) List(ctx context.Context, collection string) ([]ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateCollection(collection); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	coll := s.blobs[collection]
	infos := make([]ObjectInfo, 0, len(coll))
	for key, b := range coll {
		infos = append(infos, ObjectInfo{Key: key, LastModified: b.modified, Size: int64(len(b.data))})
	}
	return infos, nil
}

// Get implements Store. The returned slice is a copy.
func (s *MemoryStore) Get(ctx context.Context, collection, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateName(collection, key); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.blobs[collection][key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(b.data))
	copy(out, b.data)
	return out, nil
}

// Put implements Store.
func (s *MemoryStore) Put(ctx context.Context, collection, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateName(collection, key); err != nil {
		return err
	}

	stored := make([]byte, len(data))
	copy(stored, data)

	s.mu.Lock()
	defer s.mu.Unlock()

	coll, ok := s.blobs[collection]
	if !ok {
		coll = make(map[string]memoryBlob)
		s.blobs[collection] = coll
	}
	coll[key] = memoryBlob{data: stored, modified: s.now()}
	return nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(ctx context.Context, collection, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateName(collection, key); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	coll := s.blobs[collection]
	if _, ok := coll[key]; !ok {
		return ErrNotFound
	}
	delete(coll, key)
	return nil
}
