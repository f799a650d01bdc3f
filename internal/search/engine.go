// Marquee - Movie Catalog Search and Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package search

import (
	"context"
	"math"
	"strings"
	"sync/atomic"

	"github.com/RoaringBitmap/roaring"

	"github.com/tomtom215/marquee/internal/index"
	"github.com/tomtom215/marquee/internal/metrics"
	"github.com/tomtom215/marquee/internal/models"
)

// ctxCheckInterval is how many candidates are examined between context checks.
const ctxCheckInterval = 1024

// Finder is implemented by Engine and CachedEngine.
type Finder interface {
	Find(ctx context.Context, q Query) (Result, error)
}

// ScanObserver is told how many records each uncached Find examined.
type ScanObserver interface {
	Examined(n int)
}

// ScanCounter is a ScanObserver that accumulates totals.
type ScanCounter struct {
	scans    atomic.Int64
	examined atomic.Int64
}

// Examined implements ScanObserver.
func (c *ScanCounter) Examined(n int) {
	c.scans.Add(1)
	c.examined.Add(int64(n))
}

// Scans returns the number of Find calls that reached the engine.
func (c *ScanCounter) Scans() int64 {
	return c.scans.Load()
}

// Total returns the number of records examined across all scans.
func (c *ScanCounter) Total() int64 {
	return c.examined.Load()
}

// Engine evaluates queries against one immutable snapshot. Safe for
// concurrent use.
type Engine struct {
	snap     *index.Snapshot
	observer ScanObserver
}

// Option configures an Engine.
type Option func(*Engine)

// WithScanObserver attaches an observer to every scan.
func WithScanObserver(o ScanObserver) Option {
	return func(e *Engine) {
		e.observer = o
	}
}

// NewEngine creates an engine over snap. A nil snap behaves as empty.
func NewEngine(snap *index.Snapshot, opts ...Option) *Engine {
	if snap == nil {
		snap = index.Empty()
	}
	e := &Engine{snap: snap}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Snapshot returns the snapshot the engine reads.
func (e *Engine) Snapshot() *index.Snapshot {
	return e.snap
}

// Find returns one page of records matching every set filter, in dataset
// order.
func (e *Engine) Find(ctx context.Context, q Query) (Result, error) {
	if err := q.Validate(); err != nil {
		return Result{}, err
	}

	res := Result{Page: q.Page, Size: q.PageSize}

	// Past any reachable offset; nothing can match.
	if q.PageSize > 0 && q.Page > (math.MaxInt-q.PageSize-1)/q.PageSize {
		e.observe(0)
		return res, nil
	}
	skip := q.Page * q.PageSize
	// One past the page detects has_more.
	want := q.PageSize
	if want < math.MaxInt {
		want++
	}

	candidates, ok := e.candidates(q)
	if !ok {
		e.observe(0)
		return res, nil
	}

	needle := strings.ToLower(q.TitleContains)
	matched := 0
	examined := 0
	items := make([]models.Movie, 0, min(q.PageSize, int(candidates.GetCardinality()))+1)

	it := candidates.Iterator()
	for it.HasNext() && len(items) < want {
		if examined%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return Result{}, err
			}
		}
		examined++

		rec := e.snap.Record(it.Next())
		if needle != "" && !strings.Contains(rec.NormalizedTitle, needle) {
			continue
		}

		matched++
		if matched <= skip {
			continue
		}
		items = append(items, rec.Movie())
	}
	e.observe(examined)

	if len(items) > q.PageSize {
		res.HasMore = true
		items = items[:q.PageSize]
	}
	res.Items = items
	return res, nil
}

// candidates intersects the posting lists of the set exact-match filters.
// ok is false when some filter value is unknown to the index.
func (e *Engine) candidates(q Query) (*roaring.Bitmap, bool) {
	var lists []*roaring.Bitmap

	if q.Year != 0 {
		bm := e.snap.ByYear(q.Year)
		if bm == nil {
			return nil, false
		}
		lists = append(lists, bm)
	}
	if q.Cast != "" {
		bm := e.snap.ByCast(q.Cast)
		if bm == nil {
			return nil, false
		}
		lists = append(lists, bm)
	}
	if q.Genre != "" {
		bm := e.snap.ByGenre(q.Genre)
		if bm == nil {
			return nil, false
		}
		lists = append(lists, bm)
	}

	switch len(lists) {
	case 0:
		return e.snap.All(), true
	case 1:
		return lists[0], true
	default:
		return roaring.FastAnd(lists...), true
	}
}

func (e *Engine) observe(n int) {
	metrics.SearchRecordsExamined.Observe(float64(n))
	if e.observer != nil {
		e.observer.Examined(n)
	}
}

// FindByTitle returns every record whose title equals title exactly, in
// dataset order.
func (e *Engine) FindByTitle(title string) []models.Movie {
	ids := e.snap.ByTitle(title)
	out := make([]models.Movie, 0, len(ids))
	for _, id := range ids {
		out = append(out, e.snap.Record(id).Movie())
	}
	return out
}
