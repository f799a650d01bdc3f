// Marquee - Movie Catalog Search and Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/marquee/internal/models"
	"github.com/tomtom215/marquee/internal/testinfra"
)

// runLockerContract checks behaviour shared by every backend.
func runLockerContract(t *testing.T, newLocker func(t *testing.T) Locker) {
	t.Helper()
	ctx := context.Background()

	t.Run("second acquire contends", func(t *testing.T) {
		l := newLocker(t)
		lease, err := l.TryAcquire(ctx, "ingestion")
		if err != nil {
			t.Fatalf("TryAcquire() error = %v", err)
		}
		defer lease.Release(ctx)

		if _, err := l.TryAcquire(ctx, "ingestion"); !errors.Is(err, models.ErrLockContention) {
			t.Fatalf("expected ErrLockContention, got %v", err)
		}
	})

	t.Run("names are independent", func(t *testing.T) {
		l := newLocker(t)
		a, err := l.TryAcquire(ctx, "a")
		if err != nil {
			t.Fatal(err)
		}
		defer a.Release(ctx)
		b, err := l.TryAcquire(ctx, "b")
		if err != nil {
			t.Fatalf("independent name contended: %v", err)
		}
		defer b.Release(ctx)
	})

	t.Run("release allows reacquire and is idempotent", func(t *testing.T) {
		l := newLocker(t)
		lease, err := l.TryAcquire(ctx, "ingestion")
		if err != nil {
			t.Fatal(err)
		}
		if lease.Holder() == "" || !lease.ExpiresAt().After(time.Now()) {
			t.Errorf("lease metadata not populated: holder=%q expires=%v", lease.Holder(), lease.ExpiresAt())
		}
		if err := lease.Release(ctx); err != nil {
			t.Fatalf("Release() error = %v", err)
		}
		if err := lease.Release(ctx); err != nil {
			t.Fatalf("second Release() error = %v", err)
		}

		again, err := l.TryAcquire(ctx, "ingestion")
		if err != nil {
			t.Fatalf("reacquire error = %v", err)
		}
		if again.Holder() == lease.Holder() {
			t.Error("each acquisition should get a fresh holder id")
		}

		// The stale lease must not release the new holder's lock.
		if err := lease.Release(ctx); err != nil {
			t.Fatal(err)
		}
		if _, err := l.TryAcquire(ctx, "ingestion"); !errors.Is(err, models.ErrLockContention) {
			t.Fatalf("stale release freed another holder's lock: %v", err)
		}
		again.Release(ctx)
	})

	t.Run("refresh extends a held lease", func(t *testing.T) {
		l := newLocker(t)
		lease, err := l.TryAcquire(ctx, "ingestion")
		if err != nil {
			t.Fatal(err)
		}
		defer lease.Release(ctx)

		before := lease.ExpiresAt()
		time.Sleep(5 * time.Millisecond)
		if err := lease.Refresh(ctx); err != nil {
			t.Fatalf("Refresh() error = %v", err)
		}
		if !lease.ExpiresAt().After(before) {
			t.Errorf("ExpiresAt = %v, want after %v", lease.ExpiresAt(), before)
		}
		if _, err := l.TryAcquire(ctx, "ingestion"); !errors.Is(err, models.ErrLockContention) {
			t.Fatalf("refreshed lease lost exclusion: %v", err)
		}
		if err := lease.Refresh(ctx); err != nil {
			t.Fatalf("second Refresh() error = %v", err)
		}
	})

	t.Run("refresh after release is lost", func(t *testing.T) {
		l := newLocker(t)
		lease, err := l.TryAcquire(ctx, "ingestion")
		if err != nil {
			t.Fatal(err)
		}
		if err := lease.Release(ctx); err != nil {
			t.Fatal(err)
		}
		if err := lease.Refresh(ctx); !errors.Is(err, ErrLeaseLost) {
			t.Fatalf("Refresh() after release = %v, want ErrLeaseLost", err)
		}

		other, err := l.TryAcquire(ctx, "ingestion")
		if err != nil {
			t.Fatal(err)
		}
		defer other.Release(ctx)
		if err := lease.Refresh(ctx); !errors.Is(err, ErrLeaseLost) {
			t.Fatalf("Refresh() over another holder = %v, want ErrLeaseLost", err)
		}
	})

	t.Run("with runs exclusively", func(t *testing.T) {
		l := newLocker(t)
		var active, maxActive, ran, contended atomic.Int32

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := With(ctx, l, "ingestion", func(context.Context) error {
					n := active.Add(1)
					for {
						m := maxActive.Load()
						if n <= m || maxActive.CompareAndSwap(m, n) {
							break
						}
					}
					time.Sleep(5 * time.Millisecond)
					active.Add(-1)
					ran.Add(1)
					return nil
				})
				if errors.Is(err, models.ErrLockContention) {
					contended.Add(1)
				} else if err != nil {
					t.Errorf("With() error = %v", err)
				}
			}()
		}
		wg.Wait()

		if maxActive.Load() != 1 {
			t.Errorf("max concurrent holders = %d, want 1", maxActive.Load())
		}
		if ran.Load()+contended.Load() != 8 || ran.Load() == 0 {
			t.Errorf("ran=%d contended=%d", ran.Load(), contended.Load())
		}
	})
}

func TestMemoryLocker_Contract(t *testing.T) {
	runLockerContract(t, func(t *testing.T) Locker {
		return NewMemoryLocker(time.Minute)
	})
}

func TestBadgerLocker_Contract(t *testing.T) {
	runLockerContract(t, func(t *testing.T) Locker {
		db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
		if err != nil {
			t.Fatalf("open badger: %v", err)
		}
		t.Cleanup(func() { db.Close() })
		return NewBadgerLocker(db, time.Minute)
	})
}

func TestNATSLocker_Contract(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping embedded NATS test in short mode")
	}
	runLockerContract(t, func(t *testing.T) Locker {
		ns := testinfra.StartEmbeddedNATS(t)
		l, err := NewNATSLocker(context.Background(), ns.JetStream(t), "locks", time.Minute)
		if err != nil {
			t.Fatalf("NewNATSLocker() error = %v", err)
		}
		return l
	})
}

func TestMemoryLocker_StaleLeaseExpires(t *testing.T) {
	l := NewMemoryLocker(time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.SetClock(func() time.Time { return now })
	ctx := context.Background()

	if _, err := l.TryAcquire(ctx, "ingestion"); err != nil {
		t.Fatal(err)
	}

	now = now.Add(59 * time.Second)
	if _, err := l.TryAcquire(ctx, "ingestion"); !errors.Is(err, models.ErrLockContention) {
		t.Fatalf("expected contention before expiry, got %v", err)
	}

	now = now.Add(2 * time.Second)
	if _, err := l.TryAcquire(ctx, "ingestion"); err != nil {
		t.Fatalf("expected takeover after expiry, got %v", err)
	}
}

func TestBadgerLocker_StaleLeaseExpires(t *testing.T) {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	l := NewBadgerLocker(db, 30*time.Millisecond)
	ctx := context.Background()

	if _, err := l.TryAcquire(ctx, "ingestion"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)
	if _, err := l.TryAcquire(ctx, "ingestion"); err != nil {
		t.Fatalf("expected takeover after expiry, got %v", err)
	}
}

func TestWith_ReleasesOnError(t *testing.T) {
	l := NewMemoryLocker(time.Minute)
	ctx := context.Background()
	boom := errors.New("boom")

	if err := With(ctx, l, "ingestion", func(context.Context) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("With() error = %v, want boom", err)
	}
	lease, err := l.TryAcquire(ctx, "ingestion")
	if err != nil {
		t.Fatalf("lock not released after fn error: %v", err)
	}
	lease.Release(ctx)
}

func TestWith_ReleasesWhenContextCanceled(t *testing.T) {
	l := NewMemoryLocker(time.Minute)
	ctx, cancel := context.WithCancel(context.Background())

	_ = With(ctx, l, "ingestion", func(context.Context) error {
		cancel()
		return nil
	})

	if _, err := l.TryAcquire(context.Background(), "ingestion"); err != nil {
		t.Fatalf("lock not released after cancel: %v", err)
	}
}

func TestAcquireWithin(t *testing.T) {
	l := NewMemoryLocker(time.Minute)
	ctx := context.Background()

	held, err := l.TryAcquire(ctx, "ingestion")
	if err != nil {
		t.Fatal(err)
	}

	t.Run("times out with contention", func(t *testing.T) {
		start := time.Now()
		_, err := acquireWithin(ctx, l, "ingestion", 60*time.Millisecond, 10*time.Millisecond)
		if !errors.Is(err, models.ErrLockContention) {
			t.Fatalf("expected contention, got %v", err)
		}
		if time.Since(start) > time.Second {
			t.Error("wait was not bounded")
		}
	})

	t.Run("succeeds once released", func(t *testing.T) {
		go func() {
			time.Sleep(30 * time.Millisecond)
			held.Release(ctx)
		}()
		lease, err := acquireWithin(ctx, l, "ingestion", 2*time.Second, 10*time.Millisecond)
		if err != nil {
			t.Fatalf("expected acquisition, got %v", err)
		}
		lease.Release(ctx)
	})

	t.Run("zero wait is a single attempt", func(t *testing.T) {
		first, err := l.TryAcquire(ctx, "other")
		if err != nil {
			t.Fatal(err)
		}
		defer first.Release(ctx)
		if _, err := AcquireWithin(ctx, l, "other", 0); !errors.Is(err, models.ErrLockContention) {
			t.Fatalf("expected contention, got %v", err)
		}
	})

	t.Run("caller cancel wins", func(t *testing.T) {
		blocker, err := l.TryAcquire(ctx, "third")
		if err != nil {
			t.Fatal(err)
		}
		defer blocker.Release(ctx)

		cctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()
		_, err = acquireWithin(cctx, l, "third", time.Minute, 5*time.Millisecond)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("expected DeadlineExceeded, got %v", err)
		}
	})
}

func TestWithWait(t *testing.T) {
	l := NewMemoryLocker(time.Minute)
	called := false
	err := WithWait(context.Background(), l, "ingestion", time.Second, func(context.Context) error {
		called = true
		return nil
	})
	if err != nil || !called {
		t.Fatalf("WithWait() err=%v called=%v", err, called)
	}
}

func TestMemoryLocker_RefreshAfterExpiry(t *testing.T) {
	l := NewMemoryLocker(time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.SetClock(func() time.Time { return now })
	ctx := context.Background()

	lease, err := l.TryAcquire(ctx, "ingestion")
	if err != nil {
		t.Fatal(err)
	}

	now = now.Add(50 * time.Second)
	if err := lease.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() before expiry error = %v", err)
	}

	// 100s after acquisition but only 50s after the refresh.
	now = now.Add(50 * time.Second)
	if _, err := l.TryAcquire(ctx, "ingestion"); !errors.Is(err, models.ErrLockContention) {
		t.Fatalf("expected contention after refresh, got %v", err)
	}

	now = now.Add(2 * time.Minute)
	if err := lease.Refresh(ctx); !errors.Is(err, ErrLeaseLost) {
		t.Fatalf("Refresh() after expiry = %v, want ErrLeaseLost", err)
	}
}

func TestWith_RenewsLeaseWhileRunning(t *testing.T) {
	l := NewMemoryLocker(300 * time.Millisecond)
	ctx := context.Background()

	err := With(ctx, l, "ingestion", func(ctx context.Context) error {
		// Outlive the TTL several times over.
		time.Sleep(time.Second)
		if _, err := l.TryAcquire(context.Background(), "ingestion"); !errors.Is(err, models.ErrLockContention) {
			t.Errorf("lock taken while the holder was still running: %v", err)
		}
		return ctx.Err()
	})
	if err != nil {
		t.Fatalf("With() error = %v", err)
	}

	lease, err := l.TryAcquire(ctx, "ingestion")
	if err != nil {
		t.Fatalf("lock not released after run: %v", err)
	}
	lease.Release(ctx)
}

func TestWith_LostLeaseCancelsRun(t *testing.T) {
	l := NewMemoryLocker(30 * time.Millisecond)
	ctx := context.Background()

	err := With(ctx, l, "ingestion", func(ctx context.Context) error {
		// Steal the lock as an external actor would after expiry.
		l.mu.Lock()
		l.held["ingestion"] = memoryEntry{holder: "intruder", expires: time.Now().Add(time.Hour)}
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
			t.Error("run was not canceled after losing its lease")
			return nil
		}
	})
	if !errors.Is(err, ErrLeaseLost) {
		t.Fatalf("With() error = %v, want ErrLeaseLost", err)
	}

	// Release must not free the intruder's lock.
	if _, err := l.TryAcquire(ctx, "ingestion"); !errors.Is(err, models.ErrLockContention) {
		t.Errorf("expected intruder to keep the lock, got %v", err)
	}
}

func TestRefresh_FromContext(t *testing.T) {
	l := NewMemoryLocker(time.Minute)
	ctx := context.Background()

	if err := Refresh(ctx); err != nil {
		t.Fatalf("Refresh() without a lease = %v, want nil", err)
	}

	err := With(ctx, l, "ingestion", func(ctx context.Context) error {
		if err := Refresh(ctx); err != nil {
			return err
		}
		l.mu.Lock()
		delete(l.held, "ingestion")
		l.mu.Unlock()
		return Refresh(ctx)
	})
	if !errors.Is(err, ErrLeaseLost) {
		t.Fatalf("With() error = %v, want ErrLeaseLost", err)
	}
}
