// Marquee - Movie Catalog Search and Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package blobstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/marquee/internal/logging"
)

// Key layout:
//
//	blob/<collection>/<key>  raw blob bytes
//	meta/<collection>/<key>  JSON blobMeta
//
// Both are written in one transaction so List never sees a blob without its
// metadata.
const (
	prefixBlob = "blob/"
	prefixMeta = "meta/"
)

// ErrStoreClosed is returned after Close.
var ErrStoreClosed = errors.New("blob store is closed")

type blobMeta struct {
	Modified time.Time `json:"modified"`
	Size     int64     `json:"size"`
}

// BadgerConfig configures the embedded database.
type BadgerConfig struct {
	// Path is the data directory. Ignored when InMemory is set.
	Path string

	// InMemory keeps everything in RAM. Intended for tests.
	InMemory bool

	// SyncWrites fsyncs every commit.
	SyncWrites bool

	// CloseTimeout bounds Close. Default 30s.
	CloseTimeout time.Duration
}

// BadgerStore is a Store backed by BadgerDB.
type BadgerStore struct {
	db           *badger.DB
	closeTimeout time.Duration

	mu     sync.RWMutex
	closed bool
}

// OpenBadger opens (or creates) a Badger-backed store.
func OpenBadger(cfg BadgerConfig) (*BadgerStore, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("badger path is required unless in-memory")
	}

	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.SyncWrites = cfg.SyncWrites

	// Reduce logging verbosity
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	timeout := cfg.CloseTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	logging.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.InMemory).
		Bool("sync_writes", cfg.SyncWrites).
		Msg("Badger blob store opened")

	return &BadgerStore{db: db, closeTimeout: timeout}, nil
}

// DB exposes the underlying database so the badger lock backend can share it.
func (s *BadgerStore) DB() *badger.DB {
	return s.db
}

func (s *BadgerStore) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

func blobKey(collection, key string) []byte {
	return []byte(prefixBlob + collection + "/" + key)
}

func metaKey(collection, key string) []byte {
	return []byte(prefixMeta + collection + "/" + key)
}

// List implements Store.
func (s *BadgerStore) List(ctx context.Context, collection string) ([]ObjectInfo, error) {
	if err := validateCollection(collection); err != nil {
		return nil, err
	}
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	var infos []ObjectInfo
	prefix := []byte(prefixMeta + collection + "/")

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			item := it.Item()
			var meta blobMeta
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &meta)
			}); err != nil {
				return fmt.Errorf("decode metadata %s: %w", item.Key(), err)
			}

			infos = append(infos, ObjectInfo{
				Key:          strings.TrimPrefix(string(item.KeyCopy(nil)), string(prefix)),
				LastModified: meta.Modified,
				Size:         meta.Size,
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	return infos, nil
}

// Get implements Store.
func (s *BadgerStore) Get(ctx context.Context, collection, key string) ([]byte, error) {
	if err := validateName(collection, key); err != nil {
		return nil, err
	}
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(blobKey(collection, key))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get %s/%s: %w", collection, key, err)
	}
	return data, nil
}

// Put implements Store.
func (s *BadgerStore) Put(ctx context.Context, collection, key string, data []byte) error {
	if err := validateName(collection, key); err != nil {
		return err
	}
	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	meta, err := json.Marshal(blobMeta{Modified: time.Now().UTC(), Size: int64(len(data))})
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(blobKey(collection, key), data); err != nil {
			return err
		}
		return txn.Set(metaKey(collection, key), meta)
	})
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", collection, key, err)
	}
	return nil
}

// Delete implements Store.
func (s *BadgerStore) Delete(ctx context.Context, collection, key string) error {
	if err := validateName(collection, key); err != nil {
		return err
	}
	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(metaKey(collection, key)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return err
		}
		if err := txn.Delete(blobKey(collection, key)); err != nil {
			return err
		}
		return txn.Delete(metaKey(collection, key))
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete %s/%s: %w", collection, key, err)
	}
	return nil
}

// RunGC reclaims value log space until Badger reports nothing to rewrite.
func (s *BadgerStore) RunGC(ratio float64) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	for {
		err := s.db.RunValueLogGC(ratio)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrGCInMemoryMode) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("run GC: %w", err)
		}
	}
}

// Close shuts the database down, giving up after the configured timeout.
func (s *BadgerStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		done <- s.db.Close()
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("close BadgerDB: %w", err)
		}
		logging.Info().Msg("Badger blob store closed")
		return nil
	case <-time.After(s.closeTimeout):
		logging.Warn().Dur("timeout", s.closeTimeout).Msg("BadgerDB close timed out")
		return fmt.Errorf("badgerdb close timeout after %v", s.closeTimeout)
	}
}
