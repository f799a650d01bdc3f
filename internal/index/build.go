// Marquee - Movie Catalog Search and Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package index

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/RoaringBitmap/roaring"
	"github.com/goccy/go-json"

	"github.com/tomtom215/marquee/internal/models"
)

// Decode parses a dataset document, a JSON array of movie objects.
// collection and key only label the returned *models.DecodeError.
func Decode(collection, key string, data []byte) ([]models.RawMovie, error) {
	var raw []models.RawMovie
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &models.DecodeError{Collection: collection, Key: key, Err: err}
	}
	return raw, nil
}

// Build indexes raw in order. Record ids are positions in raw. Any record
// missing title, year, cast or genres aborts the build with a
// *models.FieldError.
func Build(raw []models.RawMovie) (*Snapshot, error) {
	start := time.Now()

	if uint64(len(raw)) > math.MaxUint32 {
		return nil, fmt.Errorf("dataset too large to index: %d records", len(raw))
	}

	pool := newStringPool()
	s := &Snapshot{
		records: make([]Record, len(raw)),
		byTitle: make(map[string][]uint32),
		byCast:  make(map[string]*roaring.Bitmap),
		byGenre: make(map[string]*roaring.Bitmap),
		byYear:  make(map[int]*roaring.Bitmap),
		all:     roaring.New(),
	}

	for i := range raw {
		r := &raw[i]
		if field := r.MissingField(); field != "" {
			return nil, &models.FieldError{Position: i, Field: field}
		}

		id := uint32(i) //nolint:gosec // bounded by the MaxUint32 check above
		title := pool.intern(*r.Title)
		rec := Record{
			ID:              id,
			Title:           title,
			NormalizedTitle: strings.ToLower(title),
			Year:            *r.Year,
			Cast:            pool.internAll(*r.Cast),
			Genres:          pool.internAll(*r.Genres),
		}
		s.records[i] = rec

		s.byTitle[title] = append(s.byTitle[title], id)
		addPosting(s.byYear, rec.Year, id)
		for _, c := range rec.Cast {
			addPosting(s.byCast, c, id)
		}
		for _, g := range rec.Genres {
			addPosting(s.byGenre, g, id)
		}
	}

	s.all.AddRange(0, uint64(len(raw)))
	for _, bm := range s.byCast {
		bm.RunOptimize()
	}
	for _, bm := range s.byGenre {
		bm.RunOptimize()
	}
	for _, bm := range s.byYear {
		bm.RunOptimize()
	}
	s.all.RunOptimize()

	s.builtAt = time.Now()
	s.buildTime = time.Since(start)
	return s, nil
}

func addPosting[K comparable](m map[K]*roaring.Bitmap, key K, id uint32) {
	bm, ok := m[key]
	if !ok {
		bm = roaring.New()
		m[key] = bm
	}
	bm.Add(id)
}
