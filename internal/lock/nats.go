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

	"github.com/nats-io/nats.go/jetstream"

	"github.com/tomtom215/marquee/internal/logging"
	"github.com/tomtom215/marquee/internal/metrics"
)

// NATSLocker keeps leases in a JetStream KeyValue bucket. The bucket TTL is
// the lease TTL, so a crashed holder's key ages out on the server. Any
// process that shares the NATS account is excluded.
type NATSLocker struct {
	kv  jetstream.KeyValue
	ttl time.Duration
}

// NewNATSLocker opens or creates the lock bucket.
func NewNATSLocker(ctx context.Context, js jetstream.JetStream, bucket string, ttl time.Duration) (*NATSLocker, error) {
	if js == nil {
		return nil, errors.New("jetstream context is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	kv, err := js.KeyValue(ctx, bucket)
	if errors.Is(err, jetstream.ErrBucketNotFound) {
		kv, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
			Bucket:      bucket,
			Description: "marquee ingestion locks",
			TTL:         ttl,
			History:     1,
		})
		if err == nil {
			logging.Info().Str("bucket", bucket).Dur("ttl", ttl).Msg("Created lock bucket")
		}
	}
	if err != nil {
		return nil, fmt.Errorf("open lock bucket %s: %w", bucket, err)
	}

	// An existing bucket's TTL wins over the configured one.
	if status, serr := kv.Status(ctx); serr == nil && status.TTL() > 0 {
		ttl = status.TTL()
	}

	return &NATSLocker{kv: kv, ttl: ttl}, nil
}

// TryAcquire implements Locker.
func (n *NATSLocker) TryAcquire(ctx context.Context, name string) (Lease, error) {
	holder := newHolderID()
	expires := time.Now().Add(n.ttl)

	rev, err := n.kv.Create(ctx, name, []byte(holder))
	if errors.Is(err, jetstream.ErrKeyExists) {
		err = n.describeContention(ctx, name)
	}
	metrics.RecordLockAttempt("nats", err)
	if err != nil {
		return nil, err
	}

	logging.Debug().Str("lock", name).Str("holder", holder).Uint64("revision", rev).Msg("Acquired NATS lock")
	return &natsLease{locker: n, name: name, holder: holder, revision: rev, expires: expires}, nil
}

func (n *NATSLocker) describeContention(ctx context.Context, name string) error {
	entry, err := n.kv.Get(ctx, name)
	if err != nil {
		return contention(name, "another holder", time.Now().Add(n.ttl))
	}
	return contention(name, string(entry.Value()), entry.Created().Add(n.ttl))
}

type natsLease struct {
	locker *NATSLocker
	name   string
	holder string

	mu       sync.Mutex
	revision uint64
	expires  time.Time
}

func (l *natsLease) Holder() string { return l.holder }

func (l *natsLease) ExpiresAt() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.expires
}

func (l *natsLease) TTL() time.Duration { return l.locker.ttl }

func (l *natsLease) current() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.revision
}

// Refresh rewrites the key at the revision this lease last wrote. The new
// revision restarts the bucket TTL. A revision mismatch means the key
// expired or was released, and possibly re-created by another holder.
func (l *natsLease) Refresh(ctx context.Context) error {
	expires := time.Now().Add(l.locker.ttl)
	rev, err := l.locker.kv.Update(ctx, l.name, []byte(l.holder), l.current())
	if err != nil {
		if l.stillHeld(ctx) {
			return fmt.Errorf("refresh %s: %w", l.name, err)
		}
		return leaseLost(l.name, l.holder)
	}

	l.mu.Lock()
	l.revision = rev
	l.expires = expires
	l.mu.Unlock()
	return nil
}

// stillHeld reports whether the key still carries this lease's write.
func (l *natsLease) stillHeld(ctx context.Context) bool {
	entry, err := l.locker.kv.Get(ctx, l.name)
	if err != nil {
		// Unknown state other than a missing key is treated as held so a
		// transient error is retried rather than aborting the run.
		return !errors.Is(err, jetstream.ErrKeyNotFound) && !errors.Is(err, jetstream.ErrKeyDeleted)
	}
	return string(entry.Value()) == l.holder && entry.Revision() == l.current()
}

// Release deletes the key at the revision this lease last wrote. If the key
// has since expired and been re-created, the revision check fails and the
// other holder's lock stays.
func (l *natsLease) Release(ctx context.Context) error {
	err := l.locker.kv.Delete(ctx, l.name, jetstream.LastRevision(l.current()))
	if err == nil {
		return nil
	}

	entry, gerr := l.locker.kv.Get(ctx, l.name)
	if errors.Is(gerr, jetstream.ErrKeyNotFound) || (gerr == nil && string(entry.Value()) != l.holder) {
		return nil
	}
	return fmt.Errorf("release %s: %w", l.name, err)
}
