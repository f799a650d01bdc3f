// Marquee - Movie Catalog Search and Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/marquee/internal/blobstore"
	"github.com/tomtom215/marquee/internal/catalog"
	"github.com/tomtom215/marquee/internal/index"
	"github.com/tomtom215/marquee/internal/ingest"
	"github.com/tomtom215/marquee/internal/lock"
	"github.com/tomtom215/marquee/internal/models"
	"github.com/tomtom215/marquee/internal/search"
)

const testDataset = `[
  {"title":"The Old Man & the Gun","year":2018,"cast":["Robert Redford","Casey Affleck","Sissy Spacek"],"genres":["Crime","Drama"]},
  {"title":"Power of the Air","year":2018,"cast":["Michael Ironside","Patricia Richardson"],"genres":["Drama"]},
  {"title":"Venom","year":2018,"cast":["Tom Hardy","Michelle Williams","Riz Ahmed"],"genres":["Superhero","Action"]}
]`

type testEnv struct {
	store   *blobstore.MemoryStore
	locker  *lock.MemoryLocker
	service *catalog.Service
	handler *Handler
	router  http.Handler
}

// newTestEnv builds a loaded catalog over a memory store with ingestion
// wired in, served through the full router.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := blobstore.NewMemoryStore()
	if err := store.Put(context.Background(), "storage", "main", []byte(testDataset)); err != nil {
		t.Fatalf("seed dataset: %v", err)
	}

	locker := lock.NewMemoryLocker(time.Minute)
	engine := ingest.NewEngine(store, locker, ingest.DefaultConfig())
	svc := catalog.NewService(store, catalog.Config{DatasetCollection: "storage", DatasetKey: "main", CacheSize: 64},
		catalog.WithIngester(engine))
	if _, err := svc.Reload(context.Background()); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	h := NewHandler(svc, HandlerConfig{DefaultPageSize: 10, MaxPageSize: 100})
	mw := NewChiMiddleware(&ChiMiddlewareConfig{
		CORSAllowedOrigins: []string{"*"},
		CORSAllowedMethods: []string{http.MethodGet, http.MethodPost},
		RateLimitDisabled:  true,
	})

	return &testEnv{
		store:   store,
		locker:  locker,
		service: svc,
		handler: h,
		router:  NewRouter(h, mw).Setup(),
	}
}

func (e *testEnv) do(t *testing.T, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func decodeSearch(t *testing.T, rec *httptest.ResponseRecorder) models.SearchResponse {
	t.Helper()
	var resp models.SearchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode search response %q: %v", rec.Body.String(), err)
	}
	return resp
}

// envelope mirrors models.APIResponse with a raw Data field.
type envelope struct {
	Status   string           `json:"status"`
	Data     json.RawMessage  `json:"data"`
	Metadata models.Metadata  `json:"metadata"`
	Error    *models.APIError `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope %q: %v", rec.Body.String(), err)
	}
	return env
}

func titles(movies []models.Movie) string {
	names := make([]string, len(movies))
	for i, m := range movies {
		names[i] = m.Title
	}
	return strings.Join(names, "|")
}

// fakeCatalog returns canned errors for status mapping tests.
type fakeCatalog struct {
	searchErr error
	reloadErr error
	ingestErr error
	report    *models.IngestReport
	lastQuery search.Query
}

func (f *fakeCatalog) Search(_ context.Context, q search.Query) (search.Result, error) {
	f.lastQuery = q
	if f.searchErr != nil {
		return search.Result{}, f.searchErr
	}
	return search.Result{Items: []models.Movie{}, Page: q.Page, Size: q.PageSize}, nil
}

func (f *fakeCatalog) FindByTitle(string) []models.Movie { return nil }

func (f *fakeCatalog) Stats() models.CatalogStats { return models.CatalogStats{Records: 7} }

func (f *fakeCatalog) Reload(context.Context) (index.Stats, error) {
	return index.Stats{}, f.reloadErr
}

func (f *fakeCatalog) Ingest(context.Context) (*models.IngestReport, error) {
	return f.report, f.ingestErr
}

func (f *fakeCatalog) Reloads() int64 { return 0 }

func newFakeRouter(f *fakeCatalog, opts ...HandlerOption) http.Handler {
	h := NewHandler(f, HandlerConfig{}, opts...)
	return NewRouter(h, NewChiMiddleware(&ChiMiddlewareConfig{RateLimitDisabled: true})).Setup()
}

func doRequest(h http.Handler, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}
