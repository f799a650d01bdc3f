// Marquee - Movie Catalog Search and Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

// Package index builds the immutable in-memory snapshot the query engine reads.
//
// A Snapshot is built once from the canonical dataset and never mutated.
// Reloading builds a fresh snapshot and swaps it in wholesale.
//
// Posting lists for cast, genre and year are roaring bitmaps over record ids.
// Ids are assigned in dataset order, so iterating a bitmap in ascending order
// visits records in the same order a linear scan would.
package index

import (
	"time"

	"github.com/RoaringBitmap/roaring"

	"github.com/tomtom215/marquee/internal/models"
)

// Record is one normalized catalog entry.
type Record struct {
	ID              uint32
	Title           string
	NormalizedTitle string
	Year            int
	Cast            []string
	Genres          []string
}

// Movie returns the external representation, without the id.
func (r *Record) Movie() models.Movie {
	return models.Movie{
		Title:  r.Title,
		Year:   r.Year,
		Cast:   r.Cast,
		Genres: r.Genres,
	}
}

// HasCast reports whether name is in the record's cast.
func (r *Record) HasCast(name string) bool {
	for _, c := range r.Cast {
		if c == name {
			return true
		}
	}
	return false
}

// HasGenre reports whether genre is in the record's genres.
func (r *Record) HasGenre(genre string) bool {
	for _, g := range r.Genres {
		if g == genre {
			return true
		}
	}
	return false
}

// Snapshot is an immutable index over a loaded dataset. Safe for concurrent
// readers. Bitmaps returned by accessors must not be modified.
type Snapshot struct {
	records   []Record
	byTitle   map[string][]uint32
	byCast    map[string]*roaring.Bitmap
	byGenre   map[string]*roaring.Bitmap
	byYear    map[int]*roaring.Bitmap
	all       *roaring.Bitmap
	builtAt   time.Time
	buildTime time.Duration
}

// Empty returns a snapshot with no records.
func Empty() *Snapshot {
	return &Snapshot{
		byTitle: map[string][]uint32{},
		byCast:  map[string]*roaring.Bitmap{},
		byGenre: map[string]*roaring.Bitmap{},
		byYear:  map[int]*roaring.Bitmap{},
		all:     roaring.New(),
		builtAt: time.Now(),
	}
}

// Len returns the number of records.
func (s *Snapshot) Len() int {
	return len(s.records)
}

// Record returns the record with id. The pointer must be treated as read-only.
func (s *Snapshot) Record(id uint32) *Record {
	return &s.records[id]
}

// All returns the bitmap of every id.
func (s *Snapshot) All() *roaring.Bitmap {
	return s.all
}

// ByTitle returns the ids whose raw title equals title, in dataset order.
func (s *Snapshot) ByTitle(title string) []uint32 {
	return s.byTitle[title]
}

// ByCast returns the posting list for a cast member, or nil.
func (s *Snapshot) ByCast(name string) *roaring.Bitmap {
	return s.byCast[name]
}

// ByGenre returns the posting list for a genre, or nil.
func (s *Snapshot) ByGenre(genre string) *roaring.Bitmap {
	return s.byGenre[genre]
}

// ByYear returns the posting list for a year, or nil.
func (s *Snapshot) ByYear(year int) *roaring.Bitmap {
	return s.byYear[year]
}

// BuiltAt returns when the snapshot was built.
func (s *Snapshot) BuiltAt() time.Time {
	return s.builtAt
}

// BuildDuration returns how long Build took.
func (s *Snapshot) BuildDuration() time.Duration {
	return s.buildTime
}

// Stats summarizes the snapshot.
type Stats struct {
	Records        int
	DistinctTitles int
	DistinctCast   int
	DistinctGenres int
	DistinctYears  int
}

// Stats returns distinct-key counts for each mapping.
func (s *Snapshot) Stats() Stats {
	return Stats{
		Records:        len(s.records),
		DistinctTitles: len(s.byTitle),
		DistinctCast:   len(s.byCast),
		DistinctGenres: len(s.byGenre),
		DistinctYears:  len(s.byYear),
	}
}
