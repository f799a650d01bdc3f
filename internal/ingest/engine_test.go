// Marquee - Movie Catalog Search and Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package ingest

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/marquee/internal/blobstore"
	"github.com/tomtom215/marquee/internal/lock"
	"github.com/tomtom215/marquee/internal/models"
)

const seedDataset = `[
  {"title":"The Old Man & the Gun","year":2018,"cast":["Robert Redford","Casey Affleck","Sissy Spacek"],"genres":["Crime","Drama"]},
  {"title":"Power of the Air","year":2018,"cast":["Michael Ironside","Patricia Richardson"],"genres":["Drama"]},
  {"title":"Venom","year":2018,"cast":["Tom Hardy","Michelle Williams","Riz Ahmed"],"genres":["Superhero","Action"]}
]`

const oldManUpdate = `[
  {"title":"The Old Man & the Gun","year":2018,"cast":["Tom Waits"],"genres":["Crime","Drama"]}
]`

const hellFest = `[
  {"title":"Hell Fest","year":2018,"cast":["Amy Forsyth","Reign Edwards"],"genres":["Horror"]}
]`

// tickingClock returns a time source that advances one second per call.
func tickingClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	now := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

type fixture struct {
	store  *blobstore.MemoryStore
	locker *lock.MemoryLocker
	engine *Engine
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	store := blobstore.NewMemoryStore()
	store.SetClock(tickingClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
	locker := lock.NewMemoryLocker(time.Minute)
	return &fixture{
		store:  store,
		locker: locker,
		engine: NewEngine(store, locker, DefaultConfig(), opts...),
	}
}

func (f *fixture) put(t *testing.T, collection, key, data string) {
	t.Helper()
	if err := f.store.Put(context.Background(), collection, key, []byte(data)); err != nil {
		t.Fatalf("Put(%s/%s) error = %v", collection, key, err)
	}
}

func (f *fixture) keys(t *testing.T, collection string) []string {
	t.Helper()
	infos, err := f.store.List(context.Background(), collection)
	if err != nil {
		t.Fatalf("List(%s) error = %v", collection, err)
	}
	keys := make([]string, len(infos))
	for i, info := range infos {
		keys[i] = info.Key
	}
	return keys
}

func (f *fixture) movies(t *testing.T) []models.Movie {
	t.Helper()
	data, err := f.store.Get(context.Background(), "storage", "main")
	if err != nil {
		t.Fatalf("Get dataset error = %v", err)
	}
	var movies []models.Movie
	if err := json.Unmarshal(data, &movies); err != nil {
		t.Fatalf("dataset is not valid JSON: %v", err)
	}
	return movies
}

func findMovie(movies []models.Movie, title string) *models.Movie {
	for i := range movies {
		if movies[i].Title == title {
			return &movies[i]
		}
	}
	return nil
}

func TestEngine_Run_MergesInbox(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.put(t, "storage", "main", seedDataset)
	f.put(t, "inbox", "dummy1.json", oldManUpdate)
	f.put(t, "inbox", "dummy2.json", hellFest)

	report, err := f.engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if report.Processed != 2 {
		t.Errorf("Processed = %d, want 2", report.Processed)
	}
	if report.ItemsUpdated != 1 || report.ItemsAppended != 1 {
		t.Errorf("updated/appended = %d/%d, want 1/1", report.ItemsUpdated, report.ItemsAppended)
	}
	if report.Archived != 2 || report.ArchiveFailures != 0 {
		t.Errorf("archived/failures = %d/%d, want 2/0", report.Archived, report.ArchiveFailures)
	}
	if report.DatasetSize != 4 {
		t.Errorf("DatasetSize = %d, want 4", report.DatasetSize)
	}

	movies := f.movies(t)
	if len(movies) != 4 {
		t.Fatalf("dataset has %d records, want 4", len(movies))
	}
	if movies[0].Title != "The Old Man & the Gun" || movies[3].Title != "Hell Fest" {
		t.Errorf("unexpected order: first %q last %q", movies[0].Title, movies[3].Title)
	}

	if keys := f.keys(t, "inbox"); len(keys) != 0 {
		t.Errorf("inbox still holds %v", keys)
	}
	archived := f.keys(t, "archive")
	if len(archived) != 2 {
		t.Fatalf("archive holds %d entries, want 2", len(archived))
	}
	for _, key := range archived {
		if !strings.HasSuffix(key, "dummy1.json") && !strings.HasSuffix(key, "dummy2.json") {
			t.Errorf("unexpected archive key %q", key)
		}
	}
}

func TestEngine_Run_ReplacesWholeRecord(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.put(t, "storage", "main", seedDataset)
	f.put(t, "inbox", "dummy1.json", oldManUpdate)

	if _, err := f.engine.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	movie := findMovie(f.movies(t), "The Old Man & the Gun")
	if movie == nil {
		t.Fatal("record missing after update")
	}
	if len(movie.Cast) != 1 || movie.Cast[0] != "Tom Waits" {
		t.Errorf("Cast = %v, want [Tom Waits]", movie.Cast)
	}
}

func TestEngine_Run_PreservesUnknownFields(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.put(t, "inbox", "extra.json", `[{"title":"Alien","year":1979,"cast":[],"genres":["Horror"],"extract":"In space..."}]`)

	if _, err := f.engine.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	data, err := f.store.Get(context.Background(), "storage", "main")
	if err != nil {
		t.Fatalf("Get dataset error = %v", err)
	}
	if !bytes.Contains(data, []byte(`"extract":"In space..."`)) {
		t.Errorf("extra field dropped: %s", data)
	}
}

func TestEngine_Run_OrderByModificationThenKey(t *testing.T) {
	t.Parallel()

	t.Run("older batch applied first", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		// Written second, so newer despite the smaller key.
		f.put(t, "inbox", "b.json", `[{"title":"Venom","year":2018,"cast":["First"],"genres":[]}]`)
		f.put(t, "inbox", "a.json", `[{"title":"Venom","year":2018,"cast":["Second"],"genres":[]}]`)

		if _, err := f.engine.Run(context.Background()); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		movies := f.movies(t)
		if len(movies) != 1 || movies[0].Cast[0] != "Second" {
			t.Errorf("got %+v, want the newer batch to win", movies)
		}
	})

	t.Run("equal times ordered by key", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		fixed := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
		f.store.SetClock(func() time.Time { return fixed })
		f.put(t, "inbox", "b.json", `[{"title":"Venom","year":2018,"cast":["From b"],"genres":[]}]`)
		f.put(t, "inbox", "a.json", `[{"title":"Venom","year":2018,"cast":["From a"],"genres":[]}]`)

		if _, err := f.engine.Run(context.Background()); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if movies := f.movies(t); movies[0].Cast[0] != "From b" {
			t.Errorf("Cast = %v, want the lexically later key to win", movies[0].Cast)
		}
	})
}

func TestEngine_Run_FirstOccurrenceWins(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.put(t, "storage", "main", `[
	  {"title":"Venom","year":2018,"cast":["A"],"genres":[]},
	  {"title":"Venom","year":2018,"cast":["B"],"genres":[]}
	]`)
	f.put(t, "inbox", "update.json", `[{"title":"Venom","year":2018,"cast":["C"],"genres":[]}]`)

	if _, err := f.engine.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	movies := f.movies(t)
	if len(movies) != 2 {
		t.Fatalf("dataset has %d records, want 2", len(movies))
	}
	if movies[0].Cast[0] != "C" || movies[1].Cast[0] != "B" {
		t.Errorf("casts = %v, %v; want C, B", movies[0].Cast, movies[1].Cast)
	}
}

func TestEngine_Run_NaturalKeyHasNoSeparator(t *testing.T) {
	t.Parallel()

	// "Heat1" + 995 and "Heat" + 1995 share the key "Heat1995".
	f := newFixture(t)
	f.put(t, "storage", "main", `[{"title":"Heat","year":1995,"cast":["Al Pacino"],"genres":[]}]`)
	f.put(t, "inbox", "collide.json", `[{"title":"Heat1","year":995,"cast":[],"genres":[]}]`)

	report, err := f.engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.ItemsUpdated != 1 || report.DatasetSize != 1 {
		t.Errorf("updated = %d size = %d, want 1 and 1", report.ItemsUpdated, report.DatasetSize)
	}
}

func TestEngine_Run_NewKeysGrowDataset(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.put(t, "storage", "main", seedDataset)
	f.put(t, "inbox", "new.json", `[
	  {"title":"Alien","year":1979,"cast":[],"genres":[]},
	  {"title":"Alien","year":1979,"cast":["dup"],"genres":[]},
	  {"title":"Aliens","year":1986,"cast":[],"genres":[]}
	]`)

	report, err := f.engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.DatasetSize != 5 {
		t.Errorf("DatasetSize = %d, want 5", report.DatasetSize)
	}
	if report.ItemsAppended != 2 || report.ItemsUpdated != 1 {
		t.Errorf("appended/updated = %d/%d, want 2/1", report.ItemsAppended, report.ItemsUpdated)
	}
	if alien := findMovie(f.movies(t), "Alien"); alien == nil || len(alien.Cast) != 1 {
		t.Errorf("Alien = %+v, want the later item in the batch to replace the earlier", alien)
	}
}

func TestEngine_Run_IdempotentWhenInboxEmpty(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.put(t, "storage", "main", seedDataset)
	f.put(t, "inbox", "dummy2.json", hellFest)

	if _, err := f.engine.Run(context.Background()); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	first, err := f.store.Get(context.Background(), "storage", "main")
	if err != nil {
		t.Fatalf("Get error = %v", err)
	}
	before, _ := f.store.List(context.Background(), "storage")

	report, err := f.engine.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if report.Processed != 0 {
		t.Errorf("Processed = %d, want 0", report.Processed)
	}

	second, err := f.store.Get(context.Background(), "storage", "main")
	if err != nil {
		t.Fatalf("Get error = %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Errorf("dataset changed:\n%s\n%s", first, second)
	}
	after, _ := f.store.List(context.Background(), "storage")
	if !before[0].LastModified.Equal(after[0].LastModified) {
		t.Error("dataset was rewritten by a run with an empty inbox")
	}
}

func TestEngine_Run_EncodingIsStable(t *testing.T) {
	t.Parallel()

	a := newFixture(t)
	a.put(t, "inbox", "x.json", `[{"year":2018,"genres":["Horror"],"title":"Hell Fest","cast":[]}]`)
	b := newFixture(t)
	b.put(t, "inbox", "y.json", `[{"cast":[],"title":"Hell Fest","genres":["Horror"],"year":2018}]`)

	for _, f := range []*fixture{a, b} {
		if _, err := f.engine.Run(context.Background()); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	}

	da, _ := a.store.Get(context.Background(), "storage", "main")
	db, _ := b.store.Get(context.Background(), "storage", "main")
	if !bytes.Equal(da, db) {
		t.Errorf("field order leaked into output:\n%s\n%s", da, db)
	}
}

func TestEngine_Run_EmptyInbox(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	report, err := f.engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Processed != 0 || report.DatasetSize != 0 {
		t.Errorf("report = %+v, want zero", report)
	}
	if _, err := f.store.Get(context.Background(), "storage", "main"); !errors.Is(err, blobstore.ErrNotFound) {
		t.Errorf("dataset written on empty run: err = %v", err)
	}

	// The lock was released.
	lease, err := f.locker.TryAcquire(context.Background(), "ingestion")
	if err != nil {
		t.Fatalf("lock still held after run: %v", err)
	}
	_ = lease.Release(context.Background())
}

func TestEngine_Run_SkipsMalformedBatches(t *testing.T) {
	t.Parallel()

	bad := map[string]string{
		"truncated.json":   `[{"title":"Venom"`,
		"object.json":      `{"title":"Venom","year":2018}`,
		"scalar.json":      `[42]`,
		"null-item.json":   `[null]`,
		"no-year.json":     `[{"title":"Venom","cast":[],"genres":[]}]`,
		"string-year.json": `[{"title":"Venom","year":"2018","cast":[],"genres":[]}]`,
		"null-title.json":  `[{"title":null,"year":2018}]`,
	}

	f := newFixture(t)
	f.put(t, "storage", "main", seedDataset)
	for key, data := range bad {
		f.put(t, "inbox", key, data)
	}
	f.put(t, "inbox", "good.json", hellFest)

	report, err := f.engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Processed != 1 {
		t.Errorf("Processed = %d, want 1", report.Processed)
	}
	if report.Skipped != len(bad) || len(report.SkippedKeys) != len(bad) {
		t.Errorf("Skipped = %d (%v), want %d", report.Skipped, report.SkippedKeys, len(bad))
	}

	remaining := f.keys(t, "inbox")
	if len(remaining) != len(bad) {
		t.Errorf("inbox = %v, want only the malformed entries", remaining)
	}
	for _, key := range remaining {
		if _, ok := bad[key]; !ok {
			t.Errorf("unexpected inbox key %q", key)
		}
	}
	if got := len(f.movies(t)); got != 4 {
		t.Errorf("dataset has %d records, want 4", got)
	}
}

func TestEngine_Run_MalformedDatasetIsFatal(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.put(t, "storage", "main", `[{"title":"Venom"}]`)
	f.put(t, "inbox", "dummy2.json", hellFest)

	_, err := f.engine.Run(context.Background())
	if !errors.Is(err, models.ErrDecode) {
		t.Fatalf("Run() error = %v, want ErrDecode", err)
	}
	var derr *models.DecodeError
	if !errors.As(err, &derr) || derr.Key != "main" {
		t.Errorf("expected DecodeError for the dataset, got %v", err)
	}
	if keys := f.keys(t, "inbox"); len(keys) != 1 {
		t.Errorf("inbox = %v, want untouched", keys)
	}
	if keys := f.keys(t, "archive"); len(keys) != 0 {
		t.Errorf("archive = %v, want empty", keys)
	}
}

func TestEngine_Run_LockContention(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.put(t, "inbox", "dummy2.json", hellFest)

	lease, err := f.locker.TryAcquire(context.Background(), "ingestion")
	if err != nil {
		t.Fatalf("TryAcquire() error = %v", err)
	}
	defer func() { _ = lease.Release(context.Background()) }()

	report, err := f.engine.Run(context.Background())
	if !errors.Is(err, models.ErrLockContention) {
		t.Fatalf("Run() error = %v, want ErrLockContention", err)
	}
	if report != nil {
		t.Errorf("report = %+v, want nil", report)
	}
	if keys := f.keys(t, "inbox"); len(keys) != 1 {
		t.Errorf("inbox = %v, want untouched", keys)
	}
}

// faultyStore injects failures into selected operations.
type faultyStore struct {
	blobstore.Store
	listErr   error
	putErr    map[string]error
	deleteErr error
}

func (s *faultyStore) List(ctx context.Context, collection string) ([]blobstore.ObjectInfo, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.Store.List(ctx, collection)
}

func (s *faultyStore) Put(ctx context.Context, collection, key string, data []byte) error {
	if err := s.putErr[collection]; err != nil {
		return err
	}
	return s.Store.Put(ctx, collection, key, data)
}

func (s *faultyStore) Delete(ctx context.Context, collection, key string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	return s.Store.Delete(ctx, collection, key)
}

func TestEngine_Run_StorageUnavailable(t *testing.T) {
	t.Parallel()

	unavailable := errors.Join(models.ErrStorageUnavailable, errors.New("connection refused"))

	t.Run("list", func(t *testing.T) {
		t.Parallel()
		store := &faultyStore{Store: blobstore.NewMemoryStore(), listErr: unavailable}
		engine := NewEngine(store, lock.NewMemoryLocker(time.Minute), Config{})

		_, err := engine.Run(context.Background())
		if !errors.Is(err, models.ErrStorageUnavailable) {
			t.Errorf("Run() error = %v, want ErrStorageUnavailable", err)
		}
	})

	t.Run("dataset write", func(t *testing.T) {
		t.Parallel()
		mem := blobstore.NewMemoryStore()
		_ = mem.Put(context.Background(), "inbox", "dummy2.json", []byte(hellFest))
		store := &faultyStore{Store: mem, putErr: map[string]error{"storage": unavailable}}
		engine := NewEngine(store, lock.NewMemoryLocker(time.Minute), Config{})

		_, err := engine.Run(context.Background())
		if !errors.Is(err, models.ErrStorageUnavailable) {
			t.Errorf("Run() error = %v, want ErrStorageUnavailable", err)
		}
		infos, _ := mem.List(context.Background(), "inbox")
		if len(infos) != 1 {
			t.Error("inbox entry removed although the dataset write failed")
		}
	})
}

func TestEngine_Run_ArchiveFailure(t *testing.T) {
	t.Parallel()

	mem := blobstore.NewMemoryStore()
	_ = mem.Put(context.Background(), "inbox", "dummy2.json", []byte(hellFest))
	store := &faultyStore{Store: mem, putErr: map[string]error{"archive": errors.New("archive offline")}}
	engine := NewEngine(store, lock.NewMemoryLocker(time.Minute), Config{})

	report, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Processed != 1 || report.ArchiveFailures != 1 || report.Archived != 0 {
		t.Errorf("report = %+v", report)
	}

	infos, _ := mem.List(context.Background(), "inbox")
	if len(infos) != 1 {
		t.Error("batch deleted from inbox without an archive copy")
	}
	if _, err := mem.Get(context.Background(), "storage", "main"); err != nil {
		t.Errorf("dataset not written: %v", err)
	}

	// The leftover batch merges again harmlessly.
	store.putErr = nil
	report, err = engine.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if report.ItemsUpdated != 1 || report.DatasetSize != 1 {
		t.Errorf("re-merge report = %+v", report)
	}
}

func TestEngine_Run_DeleteFailureCounted(t *testing.T) {
	t.Parallel()

	mem := blobstore.NewMemoryStore()
	_ = mem.Put(context.Background(), "inbox", "dummy2.json", []byte(hellFest))
	store := &faultyStore{Store: mem, deleteErr: errors.New("permission denied")}
	engine := NewEngine(store, lock.NewMemoryLocker(time.Minute), Config{})

	report, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.ArchiveFailures != 1 {
		t.Errorf("ArchiveFailures = %d, want 1", report.ArchiveFailures)
	}
}

func TestEngine_Run_ArchiveKey(t *testing.T) {
	t.Parallel()

	fixed := time.UnixMicro(1700000000123456)
	f := newFixture(t, WithClock(func() time.Time { return fixed }))
	f.put(t, "inbox", "increment1.json", hellFest)

	if _, err := f.engine.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	keys := f.keys(t, "archive")
	if len(keys) != 1 || keys[0] != "1700000000123456increment1.json" {
		t.Errorf("archive keys = %v", keys)
	}
	data, _ := f.store.Get(context.Background(), "archive", keys[0])
	if string(data) != hellFest {
		t.Errorf("archive copy differs from the inbox entry")
	}
}

type recordingNotifier struct {
	calls atomic.Int32
	last  atomic.Pointer[models.IngestReport]
	err   error
}

func (n *recordingNotifier) IngestCompleted(_ context.Context, report *models.IngestReport) error {
	n.calls.Add(1)
	n.last.Store(report)
	return n.err
}

func TestEngine_Run_Notifies(t *testing.T) {
	t.Parallel()

	notifier := &recordingNotifier{err: errors.New("bus down")}
	f := newFixture(t, WithNotifier(notifier))

	if _, err := f.engine.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if notifier.calls.Load() != 0 {
		t.Error("notified for a run that processed nothing")
	}

	f.put(t, "inbox", "dummy2.json", hellFest)
	if _, err := f.engine.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v, notifier failures must not fail the run", err)
	}
	if notifier.calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1", notifier.calls.Load())
	}
	if got := notifier.last.Load(); got.Processed != 1 {
		t.Errorf("notified report = %+v", got)
	}
}

func TestNewEngine_Defaults(t *testing.T) {
	t.Parallel()

	e := NewEngine(blobstore.NewMemoryStore(), lock.NewMemoryLocker(0), Config{DatasetKey: "catalog"})
	cfg := e.Config()
	if cfg.DatasetKey != "catalog" {
		t.Errorf("DatasetKey = %q, want override kept", cfg.DatasetKey)
	}
	if cfg.InboxCollection != "inbox" || cfg.ArchiveCollection != "archive" || cfg.LockName != "ingestion" {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

// stallingStore runs onDatasetRead when the canonical dataset is read, to
// simulate a run that stalls mid-merge.
type stallingStore struct {
	blobstore.Store
	onDatasetRead func()
}

func (s *stallingStore) Get(ctx context.Context, collection, key string) ([]byte, error) {
	if collection == "storage" && s.onDatasetRead != nil {
		s.onDatasetRead()
	}
	return s.Store.Get(ctx, collection, key)
}

func TestEngine_Run_ExpiredLeaseDoesNotWrite(t *testing.T) {
	t.Parallel()

	mem := blobstore.NewMemoryStore()
	_ = mem.Put(context.Background(), "storage", "main", []byte(seedDataset))
	_ = mem.Put(context.Background(), "inbox", "dummy2.json", []byte(hellFest))

	var mu sync.Mutex
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	locker := lock.NewMemoryLocker(time.Minute)
	locker.SetClock(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	})

	var rival lock.Lease
	store := &stallingStore{Store: mem, onDatasetRead: func() {
		mu.Lock()
		now = now.Add(2 * time.Minute)
		mu.Unlock()

		var err error
		if rival, err = locker.TryAcquire(context.Background(), "ingestion"); err != nil {
			t.Errorf("rival TryAcquire() error = %v", err)
		}
	}}
	engine := NewEngine(store, locker, DefaultConfig())

	_, err := engine.Run(context.Background())
	if !errors.Is(err, lock.ErrLeaseLost) {
		t.Fatalf("Run() error = %v, want ErrLeaseLost", err)
	}

	data, _ := mem.Get(context.Background(), "storage", "main")
	if string(data) != seedDataset {
		t.Error("dataset was overwritten by a run that had lost its lease")
	}
	infos, _ := mem.List(context.Background(), "inbox")
	if len(infos) != 1 {
		t.Error("inbox entry removed by a run that had lost its lease")
	}

	// The rival still holds the lock.
	if _, err := locker.TryAcquire(context.Background(), "ingestion"); !errors.Is(err, models.ErrLockContention) {
		t.Errorf("expected rival to keep the lock, got %v", err)
	}
	if rival != nil {
		_ = rival.Release(context.Background())
	}
}
