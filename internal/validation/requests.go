// Marquee - Movie Catalog Search and Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package validation

// SearchRequest holds the parsed parameters of GET /api/v1/movies.
// Zero and empty values mean "no filter". The page size upper bound is
// configuration and is checked by the handler.
type SearchRequest struct {
	TitleContains string `query:"title_contains" validate:"max=256"`
	Year          int    `query:"year" validate:"gte=0,lte=9999"`
	Cast          string `query:"cast" validate:"max=256"`
	Genre         string `query:"genre" validate:"max=128"`
	Page          int    `query:"page" validate:"gte=0"`
	PageSize      int    `query:"page_size" validate:"gte=0"`
}

// TitleLookupRequest holds the parameters of GET /api/v1/movies/by-title.
type TitleLookupRequest struct {
	Title string `query:"title" validate:"required,max=256"`
}
