// Marquee - Movie Catalog Search and Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/marquee/internal/logging"
	"github.com/tomtom215/marquee/internal/metrics"
)

const prefixLock = "lock/"

// leaseRecord is the durable lock value.
type leaseRecord struct {
	Holder    string    `json:"holder"`
	ExpiresAt time.Time `json:"expires_at"`
}

// BadgerLocker stores leases in BadgerDB so a held lock survives a restart
// of the holder. Badger allows one process per data directory, so exclusion
// is among goroutines and successive runs sharing that directory.
type BadgerLocker struct {
	db  *badger.DB
	ttl time.Duration
}

// NewBadgerLocker creates a locker over an open database.
func NewBadgerLocker(db *badger.DB, ttl time.Duration) *BadgerLocker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &BadgerLocker{db: db, ttl: ttl}
}

// TryAcquire implements Locker.
func (b *BadgerLocker) TryAcquire(ctx context.Context, name string) (Lease, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := time.Now()
	rec := leaseRecord{Holder: newHolderID(), ExpiresAt: now.Add(b.ttl)}
	key := []byte(prefixLock + name)

	err := b.db.Update(func(txn *badger.Txn) error {
		cur, err := readLease(txn, key)
		switch {
		case err == nil:
			if now.Before(cur.ExpiresAt) {
				return contention(name, cur.Holder, cur.ExpiresAt)
			}
			logging.Info().Str("lock", name).Str("stale_holder", cur.Holder).Msg("Taking over expired lock")
		case errors.Is(err, badger.ErrKeyNotFound):
		default:
			return err
		}

		data, err := json.Marshal(&rec)
		if err != nil {
			return fmt.Errorf("encode lease: %w", err)
		}
		// The badger TTL drops the record eventually; expiry is still
		// decided by ExpiresAt.
		return txn.SetEntry(badger.NewEntry(key, data).WithTTL(2 * b.ttl))
	})
	if errors.Is(err, badger.ErrConflict) {
		err = contention(name, "a concurrent acquirer", rec.ExpiresAt)
	}
	metrics.RecordLockAttempt("badger", err)
	if err != nil {
		return nil, err
	}

	logging.Debug().Str("lock", name).Str("holder", rec.Holder).Time("expires_at", rec.ExpiresAt).Msg("Acquired durable lock")
	return &badgerLease{locker: b, key: key, name: name, holder: rec.Holder, rec: rec}, nil
}

type badgerLease struct {
	locker *BadgerLocker
	key    []byte
	name   string
	holder string

	mu  sync.Mutex
	rec leaseRecord
}

func (l *badgerLease) Holder() string { return l.holder }

func (l *badgerLease) ExpiresAt() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rec.ExpiresAt
}

func (l *badgerLease) TTL() time.Duration { return l.locker.ttl }

// Refresh rewrites the record with a later expiry if it still names this
// holder and has not expired.
func (l *badgerLease) Refresh(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	now := time.Now()
	next := leaseRecord{Holder: l.holder, ExpiresAt: now.Add(l.locker.ttl)}
	err := l.locker.db.Update(func(txn *badger.Txn) error {
		cur, err := readLease(txn, l.key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return leaseLost(l.name, l.holder)
		}
		if err != nil {
			return err
		}
		if cur.Holder != l.holder || !now.Before(cur.ExpiresAt) {
			return leaseLost(l.name, l.holder)
		}

		data, err := json.Marshal(&next)
		if err != nil {
			return fmt.Errorf("encode lease: %w", err)
		}
		return txn.SetEntry(badger.NewEntry(l.key, data).WithTTL(2 * l.locker.ttl))
	})
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.rec = next
	l.mu.Unlock()
	return nil
}

// Release deletes the record only if it still names this holder.
func (l *badgerLease) Release(_ context.Context) error {
	return l.locker.db.Update(func(txn *badger.Txn) error {
		cur, err := readLease(txn, l.key)
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		if cur.Holder != l.holder {
			return nil
		}
		return txn.Delete(l.key)
	})
}

func readLease(txn *badger.Txn, key []byte) (leaseRecord, error) {
	var cur leaseRecord
	item, err := txn.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return cur, err
		}
		return cur, fmt.Errorf("get lease: %w", err)
	}
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &cur)
	}); err != nil {
		return cur, fmt.Errorf("decode lease: %w", err)
	}
	return cur, nil
}
