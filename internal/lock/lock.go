// Marquee - Movie Catalog Search and Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

// Package lock provides the named, lease-based mutex that keeps ingestion
// single-writer.
//
// Every backend grants a lease with a TTL. With and WithWait renew the lease
// while fn runs, so only a holder that crashes without releasing lets the
// lease expire. If a renewal finds the lease taken, fn's context is canceled
// and ErrLeaseLost is returned.
//
//	err := lock.With(ctx, locker, "ingestion", func(ctx context.Context) error {
//	    return runIngest(ctx)
//	})
//	if errors.Is(err, models.ErrLockContention) {
//	    // someone else is ingesting; try later
//	}
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/tomtom215/marquee/internal/logging"
	"github.com/tomtom215/marquee/internal/models"
)

// DefaultTTL is used by backends constructed with a non-positive TTL.
const DefaultTTL = 10 * time.Minute

// ErrLeaseLost reports that a lease expired and may now belong to another
// holder. Work done under it must not be committed.
var ErrLeaseLost = errors.New("lock lease lost")

// minRefreshInterval bounds renewal traffic for very short TTLs.
const minRefreshInterval = 10 * time.Millisecond

// Lease is a held lock.
type Lease interface {
	// Holder is the unique id of this acquisition.
	Holder() string

	// ExpiresAt is when other callers may take the lock without a release.
	ExpiresAt() time.Time

	// TTL is the lifetime granted by each acquisition or refresh.
	TTL() time.Duration

	// Refresh extends the lease by TTL from now. It returns an error
	// wrapping ErrLeaseLost when the lease expired or was released.
	Refresh(ctx context.Context) error

	// Release frees the lock if this lease still holds it. Calling Release
	// more than once, or after expiry and re-acquisition by someone else,
	// is a no-op.
	Release(ctx context.Context) error
}

// Locker grants leases on named locks.
type Locker interface {
	// TryAcquire returns immediately: a Lease, or an error wrapping
	// models.ErrLockContention when the lock is held.
	TryAcquire(ctx context.Context, name string) (Lease, error)
}

// newHolderID returns a fresh lease holder id.
func newHolderID() string {
	return uuid.NewString()
}

func leaseLost(name, holder string) error {
	return fmt.Errorf("%w: %q no longer held by %s", ErrLeaseLost, name, holder)
}

func contention(name, holder string, expires time.Time) error {
	return fmt.Errorf("%w: %q held by %s until %s", models.ErrLockContention, name, holder, expires.UTC().Format(time.RFC3339))
}

// With runs fn while holding name. The lease is released when fn returns,
// even if fn fails; a release failure is logged and otherwise ignored since
// the lease expires on its own.
func With(ctx context.Context, l Locker, name string, fn func(ctx context.Context) error) error {
	lease, err := l.TryAcquire(ctx, name)
	if err != nil {
		return err
	}
	return runAndRelease(ctx, lease, name, fn)
}

type leaseKey struct{}

// Refresh renews the lease that With or WithWait attached to ctx. Writers
// call it immediately before committing so they never act on an expired
// lease. Without a lease in ctx it is a no-op.
func Refresh(ctx context.Context) error {
	lease, ok := ctx.Value(leaseKey{}).(Lease)
	if !ok {
		return nil
	}
	return lease.Refresh(ctx)
}

func runAndRelease(ctx context.Context, lease Lease, name string, fn func(ctx context.Context) error) error {
	defer func() {
		// Release must not be skipped because the caller's context ended.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := lease.Release(releaseCtx); err != nil {
			logging.Warn().Err(err).Str("lock", name).Str("holder", lease.Holder()).Msg("Failed to release lock")
		}
	}()

	runCtx, cancel := context.WithCancelCause(context.WithValue(ctx, leaseKey{}, lease))
	defer cancel(nil)

	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		keepAlive(runCtx, lease, name, done, cancel)
	}()

	err := fn(runCtx)
	close(done)
	<-stopped

	if cause := context.Cause(runCtx); errors.Is(cause, ErrLeaseLost) {
		return errors.Join(cause, err)
	}
	return err
}

// keepAlive refreshes lease every third of its TTL until done closes. A lost
// lease cancels the run; other refresh errors are retried on the next tick.
func keepAlive(ctx context.Context, lease Lease, name string, done <-chan struct{}, cancel context.CancelCauseFunc) {
	interval := max(lease.TTL()/3, minRefreshInterval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		err := lease.Refresh(ctx)
		switch {
		case err == nil:
		case errors.Is(err, ErrLeaseLost):
			logging.Error().Err(err).Str("lock", name).Str("holder", lease.Holder()).Msg("Lock lease lost, aborting")
			cancel(err)
			return
		case ctx.Err() != nil:
			return
		default:
			logging.Warn().Err(err).Str("lock", name).Msg("Failed to refresh lock lease")
		}
	}
}

// DefaultPollInterval is the retry rate for AcquireWithin.
const DefaultPollInterval = 250 * time.Millisecond

// AcquireWithin retries TryAcquire at a bounded rate until it succeeds, wait
// elapses, or ctx ends. On timeout the last contention error is returned.
func AcquireWithin(ctx context.Context, l Locker, name string, wait time.Duration) (Lease, error) {
	return acquireWithin(ctx, l, name, wait, DefaultPollInterval)
}

func acquireWithin(ctx context.Context, l Locker, name string, wait, interval time.Duration) (Lease, error) {
	lease, err := l.TryAcquire(ctx, name)
	if err == nil || wait <= 0 || !errors.Is(err, models.ErrLockContention) {
		return lease, err
	}

	waitCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	limiter := rate.NewLimiter(rate.Every(interval), 1)
	limiter.Allow() // the first attempt above used the initial token

	for {
		r := limiter.Reserve()
		timer := time.NewTimer(r.Delay())
		select {
		case <-waitCtx.Done():
			timer.Stop()
			r.Cancel()
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, err
		case <-timer.C:
		}

		lease, err = l.TryAcquire(ctx, name)
		if err == nil || !errors.Is(err, models.ErrLockContention) {
			return lease, err
		}
		logging.Debug().Str("lock", name).Msg("Lock busy, retrying")
	}
}

// WithWait is With using AcquireWithin.
func WithWait(ctx context.Context, l Locker, name string, wait time.Duration, fn func(ctx context.Context) error) error {
	lease, err := AcquireWithin(ctx, l, name, wait)
	if err != nil {
		return err
	}
	return runAndRelease(ctx, lease, name, fn)
}
