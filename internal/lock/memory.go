// Marquee - Movie Catalog Search and Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package lock

import (
	"context"
	"sync"
	"time"

	"github.com/tomtom215/marquee/internal/metrics"
)

type memoryEntry struct {
	holder  string
	expires time.Time
}

// MemoryLocker is a process-local Locker.
type MemoryLocker struct {
	mu    sync.Mutex
	held  map[string]memoryEntry
	ttl   time.Duration
	clock func() time.Time
}

// NewMemoryLocker creates a locker whose leases last ttl.
func NewMemoryLocker(ttl time.Duration) *MemoryLocker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryLocker{
		held:  make(map[string]memoryEntry),
		ttl:   ttl,
		clock: time.Now,
	}
}

// SetClock replaces the time source. Intended for tests.
func (m *MemoryLocker) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clock = now
}

// TryAcquire implements Locker.
func (m *MemoryLocker) TryAcquire(ctx context.Context, name string) (Lease, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock()
	if cur, ok := m.held[name]; ok && now.Before(cur.expires) {
		err := contention(name, cur.holder, cur.expires)
		metrics.RecordLockAttempt("memory", err)
		return nil, err
	}

	entry := memoryEntry{holder: newHolderID(), expires: now.Add(m.ttl)}
	m.held[name] = entry
	metrics.RecordLockAttempt("memory", nil)
	return &memoryLease{locker: m, name: name, entry: entry}, nil
}

// memoryLease fields are guarded by locker.mu.
type memoryLease struct {
	locker *MemoryLocker
	name   string
	entry  memoryEntry
}

func (l *memoryLease) Holder() string {
	l.locker.mu.Lock()
	defer l.locker.mu.Unlock()
	return l.entry.holder
}

func (l *memoryLease) ExpiresAt() time.Time {
	l.locker.mu.Lock()
	defer l.locker.mu.Unlock()
	return l.entry.expires
}

func (l *memoryLease) TTL() time.Duration { return l.locker.ttl }

// Refresh extends the lease if it is still current.
func (l *memoryLease) Refresh(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := l.locker
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock()
	cur, ok := m.held[l.name]
	if !ok || cur.holder != l.entry.holder || !now.Before(cur.expires) {
		return leaseLost(l.name, l.entry.holder)
	}
	cur.expires = now.Add(m.ttl)
	m.held[l.name] = cur
	l.entry = cur
	return nil
}

func (l *memoryLease) Release(_ context.Context) error {
	m := l.locker
	m.mu.Lock()
	defer m.mu.Unlock()

	if cur, ok := m.held[l.name]; ok && cur.holder == l.entry.holder {
		delete(m.held, l.name)
	}
	return nil
}
