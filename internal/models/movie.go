// Marquee - Movie Catalog Search and Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package models

// Movie is the external representation of a catalog record.
type Movie struct {
	Title  string   `json:"title"`
	Year   int      `json:"year"`
	Cast   []string `json:"cast"`
	Genres []string `json:"genres"`
}

// RawMovie is a dataset record as decoded from storage, before validation.
// Nil fields were absent from the source document.
type RawMovie struct {
	Title  *string   `json:"title"`
	Year   *int      `json:"year"`
	Cast   *[]string `json:"cast"`
	Genres *[]string `json:"genres"`
}

// MissingField returns the name of the first required attribute that is absent,
// or an empty string when the record is complete.
func (r *RawMovie) MissingField() string {
	switch {
	case r.Title == nil:
		return "title"
	case r.Year == nil:
		return "year"
	case r.Cast == nil:
		return "cast"
	case r.Genres == nil:
		return "genres"
	default:
		return ""
	}
}

// SearchResponse is a single page of search results.
// HasMore reports whether at least one further match exists beyond this page.
type SearchResponse struct {
	Items   []Movie `json:"items"`
	Page    int     `json:"page"`
	Size    int     `json:"size"`
	HasMore bool    `json:"has_more"`
}

// CatalogStats summarizes the currently served index snapshot.
type CatalogStats struct {
	Records        int    `json:"records"`
	DistinctTitles int    `json:"distinct_titles"`
	DistinctCast   int    `json:"distinct_cast"`
	DistinctGenres int    `json:"distinct_genres"`
	DistinctYears  int    `json:"distinct_years"`
	LoadedAt       string `json:"loaded_at"`
	CacheEntries   int    `json:"cache_entries"`
	CacheHits      int64  `json:"cache_hits"`
	CacheMisses    int64  `json:"cache_misses"`
}

// IngestReport is the outcome of a single ingestion run.
type IngestReport struct {
	Processed       int      `json:"processed"`
	Skipped         int      `json:"skipped"`
	ItemsUpdated    int      `json:"items_updated"`
	ItemsAppended   int      `json:"items_appended"`
	Archived        int      `json:"archived"`
	ArchiveFailures int      `json:"archive_failures"`
	DatasetSize     int      `json:"dataset_size"`
	SkippedKeys     []string `json:"skipped_keys,omitempty"`
	DurationMS      int64    `json:"duration_ms"`
}
