// Marquee - Movie Catalog Search and Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

/*
Package models defines the data structures shared across Marquee.

Key Components:

  - Movie: external representation of a catalog record (title, year, cast, genres)
  - RawMovie: typed intermediate form decoded from the canonical dataset, with
    pointer fields so an absent attribute differs from a zero value
  - SearchResponse: paginated query result returned by the search endpoint
  - APIResponse: envelope used by every other HTTP endpoint
  - Error taxonomy: ErrMissingField, ErrDecode, ErrStorageUnavailable,
    ErrLockContention, ErrInvalidArgument

Example search response:

	{
	  "items": [{"title": "Venom", "year": 2018, "cast": ["Tom Hardy"], "genres": ["Action"]}],
	  "page": 0,
	  "size": 10,
	  "has_more": false
	}

Numeric record ids are assigned per index snapshot and never leave the process,
so they do not appear in any of these types.
*/
package models
