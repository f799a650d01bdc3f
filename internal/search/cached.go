// Marquee - Movie Catalog Search and Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package search

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/marquee/internal/cache"
	"github.com/tomtom215/marquee/internal/metrics"
)

const cacheType = "query"

// CachedEngine memoizes Engine results by exact Query equality.
//
// Concurrent misses for one query share a single scan. Errors are never
// cached. Reset swaps in a new engine and drops every cached result; a scan
// that started before the swap cannot repopulate the cache afterwards.
type CachedEngine struct {
	mu         sync.RWMutex
	engine     *Engine
	generation uint64

	cache *cache.LRU[Query, Result]
	group singleflight.Group

	// shared counts results handed to callers who joined an in-flight scan.
	shared atomic.Int64
}

// NewCachedEngine wraps engine with an LRU of at most capacity entries.
func NewCachedEngine(engine *Engine, capacity int) *CachedEngine {
	lru := cache.NewLRU[Query, Result](capacity)
	lru.OnEvict(func(Query, Result) {
		metrics.CacheEvictions.WithLabelValues(cacheType).Inc()
	})
	metrics.CacheSize.WithLabelValues(cacheType).Set(0)

	return &CachedEngine{engine: engine, cache: lru}
}

// Engine returns the engine currently answering misses.
func (c *CachedEngine) Engine() *Engine {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.engine
}

// Reset installs engine and invalidates the whole cache.
func (c *CachedEngine) Reset(engine *Engine) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.engine = engine
	c.generation++
	c.clearLocked()
}

// Clear drops every cached result without changing the engine.
func (c *CachedEngine) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	c.clearLocked()
}

func (c *CachedEngine) clearLocked() {
	c.cache.Clear()
	metrics.CacheInvalidations.WithLabelValues(cacheType).Inc()
	metrics.CacheSize.WithLabelValues(cacheType).Set(0)
}

// Find returns the cached result for q or computes and caches it.
func (c *CachedEngine) Find(ctx context.Context, q Query) (Result, error) {
	if err := q.Validate(); err != nil {
		return Result{}, err
	}

	start := time.Now()
	if res, ok := c.cache.Get(q); ok {
		metrics.CacheHits.WithLabelValues(cacheType).Inc()
		metrics.RecordSearch(true, time.Since(start))
		return res, nil
	}
	metrics.CacheMisses.WithLabelValues(cacheType).Inc()

	c.mu.RLock()
	engine, gen := c.engine, c.generation
	c.mu.RUnlock()

	key := strconv.FormatUint(gen, 10) + "#" + q.String()
	// The shared scan outlives any single caller; each caller still stops
	// waiting when its own context ends.
	scanCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		// A caller that missed just before another finished finds it here.
		if res, ok := c.lookup(gen, q); ok {
			return res, nil
		}
		res, err := engine.Find(scanCtx, q)
		if err != nil {
			return Result{}, err
		}
		c.store(gen, q, res)
		return res, nil
	})

	var r singleflight.Result
	select {
	case r = <-ch:
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
	if r.Shared {
		c.shared.Add(1)
	}
	if r.Err != nil {
		return Result{}, r.Err
	}

	metrics.RecordSearch(false, time.Since(start))
	return r.Val.(Result), nil
}

// lookup returns a cached result computed under generation gen.
func (c *CachedEngine) lookup(gen uint64, q Query) (Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if gen != c.generation {
		return Result{}, false
	}
	return c.cache.Peek(q)
}

// store caches res unless the cache was reset after the scan began.
func (c *CachedEngine) store(gen uint64, q Query, res Result) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if gen != c.generation {
		return
	}
	c.cache.Add(q, res)
	metrics.CacheSize.WithLabelValues(cacheType).Set(float64(c.cache.Len()))
}

// Stats returns the cache counters.
func (c *CachedEngine) Stats() cache.Stats {
	return c.cache.Stats()
}

// SharedResults returns how many callers were served by another caller's scan.
func (c *CachedEngine) SharedResults() int64 {
	return c.shared.Load()
}
