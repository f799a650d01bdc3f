// Marquee - Movie Catalog Search and Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

// Package search answers filtered, paginated catalog queries against an
// index.Snapshot, with an optional memoizing front end.
//
// Filters combine with AND. Results come back in dataset order. Pagination
// reads one record past the page to compute HasMore, so no total count is
// ever computed and scans stop as soon as the page is full.
package search

import (
	"strconv"
	"strings"

	"github.com/tomtom215/marquee/internal/models"
)

// Query is the full argument tuple of a search. Zero values disable filters.
// Query is comparable and used directly as the cache key.
type Query struct {
	TitleContains string
	Year          int
	Cast          string
	Genre         string
	Page          int
	PageSize      int
}

// Validate rejects negative pagination.
func (q Query) Validate() error {
	if q.Page < 0 {
		return models.InvalidArgument("page", q.Page)
	}
	if q.PageSize < 0 {
		return models.InvalidArgument("page_size", q.PageSize)
	}
	return nil
}

// String renders q unambiguously. Used as the singleflight key.
func (q Query) String() string {
	var b strings.Builder
	b.WriteString(strconv.Quote(q.TitleContains))
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(q.Year))
	b.WriteByte('|')
	b.WriteString(strconv.Quote(q.Cast))
	b.WriteByte('|')
	b.WriteString(strconv.Quote(q.Genre))
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(q.Page))
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(q.PageSize))
	return b.String()
}

// Result is one page of matches.
type Result struct {
	Items   []models.Movie
	Page    int
	Size    int
	HasMore bool
}

// Response converts r to its wire form. Items is never null in JSON.
func (r Result) Response() models.SearchResponse {
	items := r.Items
	if items == nil {
		items = []models.Movie{}
	}
	return models.SearchResponse{
		Items:   items,
		Page:    r.Page,
		Size:    r.Size,
		HasMore: r.HasMore,
	}
}
